// Package voice is the telephony transport: Twilio webhooks in, TwiML out.
package voice

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/soyeahso/matrix/internal/hooks"
	"github.com/soyeahso/matrix/internal/logging"
)

// Webhook paths served by the handler.
const (
	PathVoice   = "/twilio/voice"
	PathOnAudio = "/twilio/onaudio"
)

// TurnFunc runs one assistant turn for a caller and returns the answer.
type TurnFunc func(ctx context.Context, caller, utterance string) (string, error)

// Config configures the voice transport.
type Config struct {
	Language          string // BCP 47 code spoken to the caller, e.g. "en-US"
	VoiceName         string
	Intro             string
	Fallback          string
	Apology           string
	GatherTimeout     time.Duration
	TurnTimeout       time.Duration
	MissedCall        bool
	CallbackDelay     time.Duration
	ValidateSignature bool
	AuthToken         string
	PublicURL         string // external base URL; derived from the request when empty
}

// Handler serves the Twilio webhooks.
type Handler struct {
	cfg        Config
	turn       TurnFunc
	caller     Caller
	translator Translator
	hooks      *hooks.Manager
	twiml      TwiML
	log        *logging.Logger

	intro, fallback, apology string

	callbacks sync.WaitGroup
	after     func(time.Duration) <-chan time.Time
}

// NewHandler creates the voice handler. When the configured language is
// not English the fixed prompts are translated once, here; translator is
// unused otherwise and may be nil. caller may be nil when missed-call mode
// is off.
func NewHandler(ctx context.Context, cfg Config, turn TurnFunc, caller Caller, translator Translator, hk *hooks.Manager, log *logging.Logger) (*Handler, error) {
	if cfg.MissedCall && caller == nil {
		return nil, errors.New("missed-call mode needs a Twilio client")
	}
	if !isEnglish(cfg.Language) && translator == nil {
		return nil, errors.New("non-English language " + cfg.Language + " needs a translator")
	}

	h := &Handler{
		cfg:        cfg,
		turn:       turn,
		caller:     caller,
		translator: translator,
		hooks:      hk,
		twiml:      TwiML{Voice: cfg.VoiceName, Language: cfg.Language, Timeout: cfg.GatherTimeout},
		log:        log.Sub("voice"),
		intro:      cfg.Intro,
		fallback:   cfg.Fallback,
		apology:    cfg.Apology,
		after:      time.After,
	}

	if !isEnglish(cfg.Language) {
		texts, err := translator.Translate(ctx, []string{cfg.Intro, cfg.Fallback, cfg.Apology}, "en", baseLanguage(cfg.Language))
		if err != nil {
			return nil, err
		}
		h.intro, h.fallback, h.apology = texts[0], texts[1], texts[2]
	}
	return h, nil
}

// Register mounts the webhook routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc(PathVoice, h.handleVoice)
	mux.HandleFunc(PathVoice+"/", h.handleVoice)
	mux.HandleFunc("POST "+PathOnAudio, h.handleOnAudio)
	mux.HandleFunc("POST "+PathOnAudio+"/", h.handleOnAudio)
}

// Wait blocks until scheduled callbacks have finished.
func (h *Handler) Wait() {
	h.callbacks.Wait()
}

func (h *Handler) handleVoice(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !h.verify(w, r) {
		return
	}

	caller := r.Form.Get("Caller")
	if caller == "" {
		caller = r.Form.Get("From")
	}
	h.log.Info().
		Str("callSid", r.Form.Get("CallSid")).
		Str("caller", caller).
		Str("status", r.Form.Get("CallStatus")).
		Msg("incoming call")
	h.emit(r.Context(), hooks.EventCallReceived, map[string]any{"caller": caller, "to": r.Form.Get("To")})

	action := h.callbackURL(r)
	if !h.cfg.MissedCall {
		writeTwiML(w, h.twiml.Gather(h.intro, h.fallback, action))
		return
	}

	if r.Form.Get("StirVerstat") == "" && caller != "" {
		h.scheduleCallback(caller, r.Form.Get("To"), h.twiml.Gather(h.intro, h.fallback, action))
	} else {
		h.log.Debug().Str("caller", caller).Msg("not calling back")
	}
	writeTwiML(w, h.twiml.Reject())
}

// scheduleCallback calls the caller back after the configured delay. It
// outlives the webhook request.
func (h *Handler) scheduleCallback(to, from string, twiml []byte) {
	h.callbacks.Add(1)
	go func() {
		defer h.callbacks.Done()
		<-h.after(h.cfg.CallbackDelay)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		sid, err := h.caller.CreateCall(ctx, to, from, twiml)
		if err != nil {
			h.log.Error().Err(err).Str("to", to).Msg("callback failed")
			return
		}
		h.log.Info().Str("sid", sid).Str("to", to).Msg("called back")
	}()
}

func (h *Handler) handleOnAudio(w http.ResponseWriter, r *http.Request) {
	if !h.verify(w, r) {
		return
	}

	ctx := r.Context()
	caller := r.Form.Get("Caller")
	if caller == "" {
		caller = r.Form.Get("From")
	}
	utterance := strings.TrimSpace(r.Form.Get("SpeechResult"))
	log := h.log.With("caller", caller)
	log.Info().Str("speech", utterance).Str("confidence", r.Form.Get("Confidence")).Msg("speech received")

	if utterance != "" && !isEnglish(h.cfg.Language) {
		translated, err := h.translate(ctx, utterance, baseLanguage(h.cfg.Language), "en")
		if err != nil {
			log.Error().Err(err).Msg("translating utterance failed")
			writeTwiML(w, h.twiml.Gather(h.apology, h.fallback, h.callbackURL(r)))
			return
		}
		utterance = strings.TrimSpace(translated)
	}

	if utterance == "" {
		writeTwiML(w, h.twiml.Goodbye(h.fallback))
		return
	}

	answer, err := h.runTurn(ctx, caller, utterance)
	if err != nil {
		log.Error().Err(err).Msg("turn failed")
		writeTwiML(w, h.twiml.Gather(h.apology, h.fallback, h.callbackURL(r)))
		return
	}

	if answer != "" && !isEnglish(h.cfg.Language) {
		translated, err := h.translate(ctx, answer, "en", baseLanguage(h.cfg.Language))
		if err != nil {
			log.Error().Err(err).Msg("translating answer failed")
			writeTwiML(w, h.twiml.Gather(h.apology, h.fallback, h.callbackURL(r)))
			return
		}
		answer = translated
	}

	log.Info().Str("answer", answer).Msg("answering")
	writeTwiML(w, h.twiml.Gather(answer, h.fallback, h.callbackURL(r)))
}

// runTurn bounds a turn by the caller-facing timeout. The turn keeps its
// own goroutine so a slow model cannot hold the webhook past the deadline.
func (h *Handler) runTurn(ctx context.Context, caller, utterance string) (string, error) {
	if h.cfg.TurnTimeout <= 0 {
		return h.turn(ctx, caller, utterance)
	}

	ctx, cancel := context.WithTimeout(ctx, h.cfg.TurnTimeout)
	defer cancel()

	type result struct {
		answer string
		err    error
	}
	done := make(chan result, 1)
	go func() {
		a, err := h.turn(ctx, caller, utterance)
		done <- result{a, err}
	}()

	select {
	case res := <-done:
		return res.answer, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (h *Handler) translate(ctx context.Context, text, source, target string) (string, error) {
	out, err := h.translator.Translate(ctx, []string{text}, source, target)
	if err != nil {
		return "", err
	}
	return out[0], nil
}

// verify parses the form and, when enabled, checks the Twilio signature.
func (h *Handler) verify(w http.ResponseWriter, r *http.Request) bool {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return false
	}
	if !h.cfg.ValidateSignature {
		return true
	}

	params := r.PostForm
	if r.Method != http.MethodPost {
		params = url.Values{}
	}
	full := h.baseURL(r) + r.URL.RequestURI()
	if !ValidSignature(h.cfg.AuthToken, full, params, r.Header.Get("X-Twilio-Signature")) {
		h.log.Warn().Str("path", r.URL.Path).Str("remote", r.RemoteAddr).Msg("invalid Twilio signature")
		http.Error(w, "forbidden", http.StatusForbidden)
		return false
	}
	return true
}

func (h *Handler) baseURL(r *http.Request) string {
	if h.cfg.PublicURL != "" {
		return strings.TrimRight(h.cfg.PublicURL, "/")
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if p := r.Header.Get("X-Forwarded-Proto"); p != "" {
		scheme = p
	}
	return scheme + "://" + r.Host
}

func (h *Handler) callbackURL(r *http.Request) string {
	return h.baseURL(r) + PathOnAudio
}

func (h *Handler) emit(ctx context.Context, event string, data map[string]any) {
	if h.hooks != nil {
		h.hooks.Emit(ctx, event, data)
	}
}

func writeTwiML(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}
