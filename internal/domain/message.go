package domain

import "strings"

// Role constants for conversation messages.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// AnswerPrompt is the user turn that asks the model to answer from an
// observation. It continues an exchange rather than opening one.
const AnswerPrompt = "Answer:"

// Message is a single role-tagged entry in a conversation.
// The JSON shape matches the persisted conversation format.
type Message struct {
	Role    string `json:"author"`
	Content string `json:"content"`
}

// UserMessage builds a message authored by the caller.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage builds a message authored by the assistant.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// Conversation is the ordered message history of one session.
// Order is significant: it is replayed to the model on every turn.
type Conversation []Message

// Clone returns a copy that can be mutated without touching the original.
func (c Conversation) Clone() Conversation {
	if c == nil {
		return Conversation{}
	}
	out := make(Conversation, len(c))
	copy(out, c)
	return out
}

// Tail keeps at most n trailing messages. The cut never starts on an
// assistant message or an AnswerPrompt, so a retained history always opens
// with a user question. n <= 0 disables trimming.
func (c Conversation) Tail(n int) Conversation {
	if n <= 0 || len(c) <= n {
		return c
	}
	start := len(c) - n
	for start < len(c) && !c[start].opensExchange() {
		start++
	}
	return c[start:]
}

func (m Message) opensExchange() bool {
	return m.Role == RoleUser && strings.TrimSpace(m.Content) != AnswerPrompt
}
