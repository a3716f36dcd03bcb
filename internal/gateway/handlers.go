package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/soyeahso/matrix/internal/agent"
)

// Error codes carried in ErrorShape.Code.
const (
	CodeInvalidParams  = "invalid_params"
	CodeMethodNotFound = "method_not_found"
	CodeForbidden      = "forbidden"
	CodeNotFound       = "not_found"
	CodeStoreError     = "store_error"
	CodeAgentError     = "agent_error"
	CodeUnauthorized   = "unauthorized"
	CodeProtocolError  = "protocol_error"
)

// HealthResponse is returned by health endpoints. The public HTTP endpoint
// only reports Status; the authenticated RPC method fills in the rest.
type HealthResponse struct {
	Status   string   `json:"status"`
	Version  string   `json:"version,omitempty"`
	Clients  int      `json:"clients,omitempty"`
	UptimeMs int64    `json:"uptimeMs,omitempty"`
	Store    string   `json:"store,omitempty"`
	Methods  []string `json:"methods,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]string{
		"error": CodeNotFound,
		"path":  r.URL.Path,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// RequestHandler processes one RPC request frame.
type RequestHandler func(rc *RequestContext)

// RequestContext is what a handler sees. Context ends with the
// connection or server.
type RequestContext struct {
	Context context.Context
	Client  *Client
	Frame   Frame
	Server  *Server
}

// Respond sends a success response.
func (rc *RequestContext) Respond(payload any) {
	if err := rc.Client.Respond(rc.Frame.ID, payload); err != nil {
		rc.Server.log.Warn().Err(err).Str("method", rc.Frame.Method).Msg("failed to send response")
	}
}

// RespondError sends an error response with a fixed message.
func (rc *RequestContext) RespondError(code, message string) {
	rc.send(ErrorShape{Code: code, Message: message})
}

// Fail reports err under code. Model transport failures are marked
// retryable so clients can resend the same message.
func (rc *RequestContext) Fail(code string, err error) {
	rc.Server.log.Debug().Err(err).Str("method", rc.Frame.Method).Str("code", code).Msg("request failed")
	rc.send(ErrorShape{
		Code:      code,
		Message:   err.Error(),
		Retryable: errors.Is(err, agent.ErrModelTransport),
	})
}

func (rc *RequestContext) send(shape ErrorShape) {
	if err := rc.Client.RespondError(rc.Frame.ID, shape); err != nil {
		rc.Server.log.Warn().Err(err).Str("method", rc.Frame.Method).Msg("failed to send error")
	}
}

// Params decodes the request params into target. Absent params leave
// target untouched.
func (rc *RequestContext) Params(target any) error {
	if len(rc.Frame.Params) == 0 || string(rc.Frame.Params) == "null" {
		return nil
	}
	if err := json.Unmarshal(rc.Frame.Params, target); err != nil {
		return errors.New("malformed params: " + err.Error())
	}
	return nil
}
