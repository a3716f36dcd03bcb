package domain

import (
	"fmt"
	"strings"
)

// SessionKey uniquely identifies a conversation session.
type SessionKey struct {
	ChannelID string `json:"channelId"`
	ChatID    string `json:"chatId"`
}

// String returns a canonical string form of the session key.
func (k SessionKey) String() string {
	return k.ChannelID + ":" + k.ChatID
}

// Slug returns a filesystem-safe form of the key.
func (k SessionKey) Slug() string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, k.String())
}

// GlobalSession is the key shared by every caller when sessions are not
// split per caller.
var GlobalSession = SessionKey{ChannelID: "global", ChatID: "default"}

// ParseSessionKey is the inverse of SessionKey.String. The channel is
// everything before the first colon.
func ParseSessionKey(s string) (SessionKey, error) {
	ch, chat, ok := strings.Cut(s, ":")
	if !ok || ch == "" {
		return SessionKey{}, fmt.Errorf("invalid session key %q", s)
	}
	return SessionKey{ChannelID: ch, ChatID: chat}, nil
}
