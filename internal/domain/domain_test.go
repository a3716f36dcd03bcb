package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- SessionKey tests ---

func TestSessionKeyString(t *testing.T) {
	tests := []struct {
		name string
		key  SessionKey
		want string
	}{
		{
			name: "voice caller",
			key:  SessionKey{ChannelID: "voice", ChatID: "+15551234567"},
			want: "voice:+15551234567",
		},
		{
			name: "global",
			key:  GlobalSession,
			want: "global:default",
		},
		{
			name: "empty fields",
			key:  SessionKey{},
			want: ":",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.key.String())
		})
	}
}

func TestSessionKeySlug(t *testing.T) {
	key := SessionKey{ChannelID: "voice", ChatID: "+1 (555) 123/4567"}
	assert.Equal(t, "voice__1__555__123_4567", key.Slug())
	assert.Equal(t, "global_default", GlobalSession.Slug())
}

func TestParseSessionKey(t *testing.T) {
	key, err := ParseSessionKey("voice:+15551234567")
	require.NoError(t, err)
	assert.Equal(t, SessionKey{ChannelID: "voice", ChatID: "+15551234567"}, key)

	key, err = ParseSessionKey("ws:a:b")
	require.NoError(t, err)
	assert.Equal(t, "a:b", key.ChatID)

	for _, bad := range []string{"", "nocolon", ":chat"} {
		_, err := ParseSessionKey(bad)
		assert.Error(t, err, bad)
	}
}

// --- Message tests ---

func TestMessageJSON_UsesAuthorField(t *testing.T) {
	data, err := json.Marshal(UserMessage("hello"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"author":"user","content":"hello"}`, string(data))

	var decoded Message
	require.NoError(t, json.Unmarshal([]byte(`{"author":"assistant","content":"hi"}`), &decoded))
	assert.Equal(t, AssistantMessage("hi"), decoded)
}

func TestConversationClone(t *testing.T) {
	orig := Conversation{UserMessage("a"), AssistantMessage("b")}
	clone := orig.Clone()
	clone[0].Content = "changed"
	clone = append(clone, UserMessage("c"))

	assert.Equal(t, "a", orig[0].Content)
	assert.Len(t, orig, 2)

	var empty Conversation
	assert.NotNil(t, empty.Clone())
	assert.Empty(t, empty.Clone())
}

func TestConversationTail(t *testing.T) {
	conv := Conversation{
		UserMessage("q1"), AssistantMessage("a1"),
		UserMessage("q2"), AssistantMessage("a2"),
		UserMessage("q3"), AssistantMessage("a3"),
	}

	tests := []struct {
		name  string
		n     int
		first string
		len   int
	}{
		{"unbounded", 0, "q1", 6},
		{"larger than history", 10, "q1", 6},
		{"even cut", 4, "q2", 4},
		{"odd cut skips leading assistant", 3, "q3", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := conv.Tail(tt.n)
			require.Len(t, got, tt.len)
			assert.Equal(t, tt.first, got[0].Content)
			assert.Equal(t, RoleUser, got[0].Role)
		})
	}
}

func TestConversationTail_SkipsAnswerPrompt(t *testing.T) {
	conv := Conversation{
		UserMessage("q1"), AssistantMessage("Thought: look it up"),
		UserMessage(AnswerPrompt), AssistantMessage("a1"),
		UserMessage("q2"), AssistantMessage("Thought: check mail"),
		UserMessage(AnswerPrompt), AssistantMessage("a2"),
	}

	got := conv.Tail(6)
	require.Len(t, got, 4)
	assert.Equal(t, "q2", got[0].Content)

	got = conv.Tail(2)
	assert.Empty(t, got)

	got = conv.Tail(5)
	require.Len(t, got, 4)
	assert.Equal(t, "q2", got[0].Content)
}
