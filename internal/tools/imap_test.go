package tools

import (
	"context"
	"crypto/tls"
	"errors"
	"testing"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/stretchr/testify/assert"
)

func TestIMAPMail_Defaults(t *testing.T) {
	m := NewIMAPMail(IMAPConfig{Host: "imap.example.com"}, nil, silentLog())
	assert.Equal(t, "INBOX", m.cfg.Mailbox)
	assert.Equal(t, 993, m.cfg.Port)
}

func TestIMAPMail_DialError(t *testing.T) {
	m := NewIMAPMail(IMAPConfig{Host: "imap.example.com", Port: 1993}, time.UTC, silentLog())
	m.dial = func(addr string, _ *tls.Config) (*client.Client, error) {
		assert.Equal(t, "imap.example.com:1993", addr)
		return nil, errors.New("refused")
	}
	_, err := m.UnreadEmails(context.Background(), 5)
	assert.ErrorContains(t, err, "refused")

	got, err := m.UnreadEmails(context.Background(), 0)
	assert.NoError(t, err)
	assert.Empty(t, got)
}

func TestIMAPMail_Summarize(t *testing.T) {
	m := NewIMAPMail(IMAPConfig{}, time.UTC, silentLog())
	msg := &imap.Message{
		Uid: 42,
		Envelope: &imap.Envelope{
			Subject: "Quarterly report",
			Date:    time.Date(2023, 8, 10, 8, 0, 0, 0, time.UTC),
			From:    []*imap.Address{{MailboxName: "boss", HostName: "example.com"}},
		},
	}
	assert.Equal(t, EmailSummary{
		ID:      "42",
		From:    "boss@example.com",
		Subject: "Quarterly report",
		Snippet: "Quarterly report",
		Time:    "2023-08-10T08:00:00",
	}, m.summarize(msg))
}
