package gateway

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/soyeahso/matrix/internal/config"
	"github.com/soyeahso/matrix/internal/domain"
)

// readableConfigPrefixes lists config paths config.get may return.
// Everything else, credentials included, is denied.
var readableConfigPrefixes = []string{
	"assistant.name",
	"assistant.location",
	"assistant.timezone",
	"model.provider",
	"model.fallbacks",
	"model.model",
	"model.geminiModel",
	"session",
	"search.country",
	"mail.backend",
	"voice.language",
	"voice.voiceName",
	"voice.missedCall",
	"gateway.port",
	"gateway.bind",
	"logging",
}

func isReadableConfigPath(key string) bool {
	for _, prefix := range readableConfigPrefixes {
		if key == prefix || strings.HasPrefix(key, prefix+".") {
			return true
		}
	}
	return false
}

const defaultSearchLimit = 10

func (s *Server) registerHTTPRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	for _, m := range s.mounts {
		m.Register(mux)
	}
	mux.HandleFunc("/", handleNotFound)
}

func (s *Server) registerRPCHandlers() {
	s.Handle("health", s.rpcHealth)
	s.Handle("config.get", s.rpcConfigGet)
	if s.runner != nil {
		s.Handle("chat.send", s.rpcChatSend)
	}
	if s.sessions != nil {
		s.Handle("session.list", s.rpcSessionList)
		s.Handle("session.history", s.rpcSessionHistory)
		s.Handle("session.clear", s.rpcSessionClear)
	}
	if s.turns != nil {
		s.Handle("turns.search", s.rpcTurnsSearch)
	}
	if s.actions != nil {
		s.Handle("actions.list", s.rpcActionsList)
	}
}

func (s *Server) rpcHealth(rc *RequestContext) {
	rc.Respond(HealthResponse{
		Status:   "ok",
		Version:  s.version,
		Clients:  s.clients.Count(),
		UptimeMs: time.Since(s.startedAt).Milliseconds(),
		Store:    s.cfg.Session.Store,
		Methods:  s.Methods(),
	})
}

type configGetParams struct {
	Key string `json:"key"`
}

func (s *Server) rpcConfigGet(rc *RequestContext) {
	var p configGetParams
	if err := rc.Params(&p); err != nil {
		rc.Fail(CodeInvalidParams, err)
		return
	}
	if p.Key == "" {
		rc.RespondError(CodeInvalidParams, "key is required")
		return
	}
	if !isReadableConfigPath(p.Key) {
		rc.RespondError(CodeForbidden, "access denied for config path: "+p.Key)
		return
	}

	path, err := config.ParseConfigPath(p.Key)
	if err != nil {
		rc.Fail(CodeInvalidParams, err)
		return
	}
	val, ok := config.GetValueAtPath(s.configRaw, path)
	if !ok {
		rc.RespondError(CodeNotFound, "key not found: "+p.Key)
		return
	}
	rc.Respond(map[string]any{"key": p.Key, "value": val})
}

// sessionFor resolves an explicit session id or the client's own session.
func sessionFor(rc *RequestContext, id string) (domain.SessionKey, error) {
	if id == "" {
		return rc.Client.Session(), nil
	}
	return domain.ParseSessionKey(id)
}

func (s *Server) rpcChatSend(rc *RequestContext) {
	var p ChatSendParams
	if err := rc.Params(&p); err != nil {
		rc.Fail(CodeInvalidParams, err)
		return
	}
	p.Message = strings.TrimSpace(p.Message)
	if p.Message == "" {
		rc.RespondError(CodeInvalidParams, "message is required")
		return
	}
	key, err := sessionFor(rc, p.SessionID)
	if err != nil {
		rc.Fail(CodeInvalidParams, err)
		return
	}

	ctx, cancel := context.WithTimeout(rc.Context, turnTimeout)
	defer cancel()

	res, err := s.runner.Turn(ctx, key, p.Message)
	if err != nil {
		rc.Fail(CodeAgentError, err)
		return
	}

	out := ChatSendResult{
		Answer:     res.Answer,
		SessionID:  key.String(),
		TurnID:     res.TurnID,
		Persisted:  res.PersistErr == nil,
		Usage:      res.Usage,
		DurationMs: res.Duration.Milliseconds(),
	}
	if res.Call != nil {
		out.Action = res.Call.Name
	}
	if res.ActionErr != nil {
		out.ActionError = res.ActionErr.Error()
	}
	rc.Respond(out)
}

func (s *Server) rpcSessionList(rc *RequestContext) {
	keys, err := s.sessions.Sessions(rc.Context)
	if err != nil {
		rc.Fail(CodeStoreError, err)
		return
	}
	ids := make([]string, len(keys))
	for i, k := range keys {
		ids[i] = k.String()
	}
	rc.Respond(map[string]any{"sessions": ids})
}

func (s *Server) rpcSessionHistory(rc *RequestContext) {
	var p SessionParams
	if err := rc.Params(&p); err != nil {
		rc.Fail(CodeInvalidParams, err)
		return
	}
	key, err := sessionFor(rc, p.SessionID)
	if err != nil {
		rc.Fail(CodeInvalidParams, err)
		return
	}
	msgs, err := s.sessions.Load(rc.Context, key)
	if err != nil {
		rc.Fail(CodeStoreError, err)
		return
	}
	rc.Respond(SessionHistory{SessionID: key.String(), Messages: msgs})
}

func (s *Server) rpcSessionClear(rc *RequestContext) {
	var p SessionParams
	if err := rc.Params(&p); err != nil {
		rc.Fail(CodeInvalidParams, err)
		return
	}
	key, err := sessionFor(rc, p.SessionID)
	if err != nil {
		rc.Fail(CodeInvalidParams, err)
		return
	}
	if err := s.sessions.Delete(rc.Context, key); err != nil {
		rc.Fail(CodeStoreError, err)
		return
	}
	s.log.Info().Str("session", key.String()).Str("connId", rc.Client.ConnID).Msg("session cleared")
	rc.Respond(map[string]any{"sessionId": key.String(), "cleared": true})
}

func (s *Server) rpcTurnsSearch(rc *RequestContext) {
	var p TurnSearchParams
	if err := rc.Params(&p); err != nil {
		rc.Fail(CodeInvalidParams, err)
		return
	}
	if strings.TrimSpace(p.Query) == "" {
		rc.RespondError(CodeInvalidParams, "query is required")
		return
	}
	if p.Limit <= 0 {
		p.Limit = defaultSearchLimit
	}
	recs, err := s.turns.Search(rc.Context, p.Query, p.Limit)
	if err != nil {
		rc.Fail(CodeStoreError, err)
		return
	}
	rc.Respond(map[string]any{"turns": recs})
}

func (s *Server) rpcActionsList(rc *RequestContext) {
	rc.Respond(map[string]any{"actions": s.actions.Signatures()})
}
