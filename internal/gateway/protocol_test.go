package gateway

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequest(t *testing.T) {
	frame, err := NewRequest("req-1", "chat.send", ChatSendParams{Message: "hello"})
	require.NoError(t, err)

	assert.Equal(t, FrameTypeRequest, frame.Type)
	assert.Equal(t, "req-1", frame.ID)
	assert.Equal(t, "chat.send", frame.Method)
	assert.JSONEq(t, `{"message":"hello"}`, string(frame.Params))
}

func TestNewResponse(t *testing.T) {
	frame, err := NewResponse("req-1", map[string]string{"answer": "hi"})
	require.NoError(t, err)

	require.NotNil(t, frame.OK)
	assert.True(t, *frame.OK)
	assert.Nil(t, frame.Error)
	assert.JSONEq(t, `{"answer":"hi"}`, string(frame.Payload))
}

func TestNewErrorResponse(t *testing.T) {
	frame := NewErrorResponse("req-1", ErrorShape{Code: CodeAgentError, Message: "boom", Retryable: true})

	data, err := json.Marshal(frame)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"res","id":"req-1","ok":false,"error":{"code":"agent_error","message":"boom","retryable":true}}`, string(data))
}

func TestNewEvent(t *testing.T) {
	frame, err := NewEvent(EventTurnCompleted, map[string]any{"session": "voice:+1"}, 7)
	require.NoError(t, err)

	data, err := json.Marshal(frame)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"event","event":"turn.completed","seq":7,"payload":{"session":"voice:+1"}}`, string(data))
}

func TestConnectParamsOptionalFields(t *testing.T) {
	data, err := json.Marshal(ConnectParams{MinProtocol: 1, MaxProtocol: 1, Client: ClientInfo{ID: "cli", Version: "1"}})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "auth")
	assert.NotContains(t, string(data), "events")

	var p ConnectParams
	require.NoError(t, json.Unmarshal([]byte(`{"minProtocol":1,"maxProtocol":1,"client":{"id":"phone"},"events":["call.received"]}`), &p))
	assert.Equal(t, []string{EventCallReceived}, p.Events)
	assert.Nil(t, p.Auth)
}

func TestPushEventsAreDistinct(t *testing.T) {
	assert.ElementsMatch(t, []string{EventTurnCompleted, EventCallReceived}, pushEvents)
	assert.NotContains(t, pushEvents, EventChallenge)
}

func TestChatSendResult_Shape(t *testing.T) {
	data, err := json.Marshal(ChatSendResult{Answer: "Done.", SessionID: "ws:cli", TurnID: "t1", Persisted: true, DurationMs: 12})
	require.NoError(t, err)
	assert.JSONEq(t, `{"answer":"Done.","sessionId":"ws:cli","turnId":"t1","persisted":true,"usage":{"inputTokens":0,"outputTokens":0},"durationMs":12}`, string(data))
}
