package gateway

import (
	"encoding/json"

	"github.com/soyeahso/matrix/internal/domain"
	"github.com/soyeahso/matrix/internal/llm"
)

// Protocol version supported by this server.
const ProtocolVersion = 1

// Frame types for the WebSocket protocol.
const (
	FrameTypeRequest  = "req"
	FrameTypeResponse = "res"
	FrameTypeEvent    = "event"
)

// Events pushed to connected clients.
const (
	EventChallenge     = "connect.challenge"
	EventTurnCompleted = "turn.completed"
	EventCallReceived  = "call.received"
)

// pushEvents are the events a client may subscribe to in ConnectParams.
var pushEvents = []string{EventTurnCompleted, EventCallReceived}

// Frame is the envelope for all WebSocket messages.
// Type discriminates between request, response, and event frames.
type Frame struct {
	Type string `json:"type"`

	// Request
	ID     string          `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`

	// Response
	OK      *bool           `json:"ok,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   *ErrorShape     `json:"error,omitempty"`

	// Event
	Event string `json:"event,omitempty"`
	Seq   int64  `json:"seq,omitempty"`
}

// ErrorShape is the error format in response frames.
type ErrorShape struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}

// ConnectParams are sent by the client in the initial "connect" request.
type ConnectParams struct {
	MinProtocol int          `json:"minProtocol"`
	MaxProtocol int          `json:"maxProtocol"`
	Client      ClientInfo   `json:"client"`
	Auth        *ConnectAuth `json:"auth,omitempty"`
	Events      []string     `json:"events,omitempty"` // push events to receive; empty means all
}

// ClientInfo identifies the connecting client. ID doubles as the default
// conversation for chat.send, so a client that reconnects with the same ID
// continues where it left off.
type ClientInfo struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName,omitempty"`
	Version     string `json:"version"`
	Platform    string `json:"platform,omitempty"`
}

// ConnectAuth carries credentials in the connect request.
type ConnectAuth struct {
	Token    string `json:"token,omitempty"`
	Password string `json:"password,omitempty"`
}

// HelloOK is the server's response payload after successful authentication.
type HelloOK struct {
	Protocol int          `json:"protocol"`
	Server   ServerInfo   `json:"server"`
	Features Features     `json:"features"`
	Policy   ServerPolicy `json:"policy"`
}

// ServerInfo identifies the gateway server.
type ServerInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	Assistant string `json:"assistant,omitempty"`
	ConnID    string `json:"connId"`
	Session   string `json:"session"`
}

// Features advertises available RPC methods and events.
type Features struct {
	Methods []string `json:"methods"`
	Events  []string `json:"events"`
}

// ServerPolicy communicates protocol limits to the client.
type ServerPolicy struct {
	MaxPayload     int `json:"maxPayload"`
	TurnTimeoutMs  int `json:"turnTimeoutMs"`
	TickIntervalMs int `json:"tickIntervalMs"`
}

// ChatSendParams asks for one assistant turn.
type ChatSendParams struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId,omitempty"` // "channel:chat"; defaults to the client's own session
}

// ChatSendResult is the outcome of a chat.send turn.
type ChatSendResult struct {
	Answer      string    `json:"answer"`
	SessionID   string    `json:"sessionId"`
	TurnID      string    `json:"turnId"`
	Action      string    `json:"action,omitempty"`
	ActionError string    `json:"actionError,omitempty"`
	Persisted   bool      `json:"persisted"`
	Usage       llm.Usage `json:"usage"`
	DurationMs  int64     `json:"durationMs"`
}

// SessionParams names a stored conversation.
type SessionParams struct {
	SessionID string `json:"sessionId"`
}

// SessionHistory is the stored message list of one session.
type SessionHistory struct {
	SessionID string           `json:"sessionId"`
	Messages  []domain.Message `json:"messages"`
}

// TurnSearchParams queries the turn log.
type TurnSearchParams struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

// NewRequest creates a request frame.
func NewRequest(id, method string, params any) (Frame, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return Frame{}, err
	}
	return Frame{
		Type:   FrameTypeRequest,
		ID:     id,
		Method: method,
		Params: raw,
	}, nil
}

// NewResponse creates a success response frame.
func NewResponse(id string, payload any) (Frame, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, err
	}
	ok := true
	return Frame{
		Type:    FrameTypeResponse,
		ID:      id,
		OK:      &ok,
		Payload: raw,
	}, nil
}

// NewErrorResponse creates an error response frame.
func NewErrorResponse(id string, errShape ErrorShape) Frame {
	ok := false
	return Frame{
		Type:  FrameTypeResponse,
		ID:    id,
		OK:    &ok,
		Error: &errShape,
	}
}

// NewEvent creates an event frame.
func NewEvent(event string, payload any, seq int64) (Frame, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, err
	}
	return Frame{
		Type:    FrameTypeEvent,
		Event:   event,
		Payload: raw,
		Seq:     seq,
	}, nil
}
