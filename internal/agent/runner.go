package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/soyeahso/matrix/internal/action"
	"github.com/soyeahso/matrix/internal/domain"
	"github.com/soyeahso/matrix/internal/hooks"
	"github.com/soyeahso/matrix/internal/llm"
	"github.com/soyeahso/matrix/internal/logging"
)

// ErrModelTransport marks a failed or timed-out model call. It is the only
// error that fails a turn once the history has been loaded.
var ErrModelTransport = errors.New("model transport failure")

// PersistenceError reports that a finished turn could not be saved.
type PersistenceError struct {
	Key domain.SessionKey
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("saving conversation %s: %v", e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// RunnerConfig configures the agent runner.
type RunnerConfig struct {
	AssistantName string
	Location      string
	Timezone      *time.Location
	Contacts      []Contact
	MaxMessages   int           // retained history per session; 0 keeps everything
	CallTimeout   time.Duration // budget for each model call; 0 disables
	MaxTokens     int
	Temperature   *float64
}

// TurnResult is the outcome of one turn.
type TurnResult struct {
	TurnID      string
	Answer      string
	Call        *action.Call // the executed call, nil on the no-action path
	Observation any
	ActionErr   error // why a requested action did not run, if it did not
	PersistErr  error // *PersistenceError when saving failed
	Usage       llm.Usage
	Duration    time.Duration
}

// Runner executes reasoning turns: ask the model, run at most one action,
// ask again for the answer, persist the history.
type Runner struct {
	cfg     RunnerConfig
	client  llm.Client
	actions *action.Registry
	store   ConversationStore
	hooks   *hooks.Manager
	locks   *keyedMutex
	now     func() time.Time
	log     *logging.Logger
}

// NewRunner creates an agent runner. hooks may be nil.
func NewRunner(
	cfg RunnerConfig,
	client llm.Client,
	actions *action.Registry,
	store ConversationStore,
	hk *hooks.Manager,
	log *logging.Logger,
) *Runner {
	if cfg.Timezone == nil {
		cfg.Timezone = time.Local
	}
	return &Runner{
		cfg:     cfg,
		client:  client,
		actions: actions,
		store:   store,
		hooks:   hk,
		locks:   newKeyedMutex(),
		now:     time.Now,
		log:     log.Sub("agent"),
	}
}

// Context renders the instructional context for the current moment.
func (r *Runner) Context() string {
	return BuildContext(PromptConfig{
		Now:           r.now().In(r.cfg.Timezone),
		Location:      r.cfg.Location,
		AssistantName: r.cfg.AssistantName,
		Contacts:      r.cfg.Contacts,
		Actions:       r.actions.List(),
	})
}

// Turn runs one reasoning turn for the session identified by key. Turns for
// the same key are serialized. A model failure returns an error wrapping
// ErrModelTransport and leaves the stored history untouched. Action and
// persistence failures never fail the turn; they are reported in the result.
func (r *Runner) Turn(ctx context.Context, key domain.SessionKey, utterance string) (*TurnResult, error) {
	start := time.Now()
	res := &TurnResult{TurnID: uuid.NewString()}
	log := r.log.With("session", key.String()).With("turn", res.TurnID)

	unlock, err := r.locks.Lock(ctx, key.String())
	if err != nil {
		return nil, fmt.Errorf("waiting for session %s: %w", key, err)
	}
	defer unlock()

	history, err := r.store.Load(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("loading conversation %s: %w", key, err)
	}
	conv := domain.Conversation(history).Clone()

	r.emit(ctx, hooks.EventTurnStarted, map[string]any{
		"turn": res.TurnID, "session": key.String(), "utterance": utterance,
	})
	log.Info().Str("utterance", utterance).Int("historyLen", len(conv)).Msg("turn started")

	system := r.Context()

	r1, err := r.complete(ctx, system, append(conv.Clone(), domain.UserMessage(utterance)))
	if err != nil {
		log.Error().Err(err).Msg("first model call failed")
		return nil, err
	}
	res.Usage = r1.Usage

	obs, call, actionErr := r.runAction(ctx, r1.Content, log)
	if call == nil {
		// No-action path: keep the raw exchange and answer from it.
		conv = append(conv, domain.UserMessage(utterance), domain.AssistantMessage(r1.Content))
		res.ActionErr = actionErr
		res.Answer = noActionAnswer(r1.Content)
	} else {
		res.Call = call
		res.Observation = obs
		conv = append(conv,
			domain.UserMessage(utterance),
			domain.AssistantMessage(thoughtAndAction(r1.Content)+"\n"+MarkerPause+"\n"+MarkerObservation+formatObservation(obs)),
		)

		r2, err := r.complete(ctx, system, append(conv.Clone(), domain.UserMessage(MarkerAnswer)))
		if err != nil {
			log.Error().Err(err).Str("action", call.Name).Msg("answer model call failed")
			return nil, err
		}
		res.Usage.InputTokens += r2.Usage.InputTokens
		res.Usage.OutputTokens += r2.Usage.OutputTokens

		conv = append(conv, domain.UserMessage(MarkerAnswer), domain.AssistantMessage(r2.Content))
		if answer, ok := answerAfter(r2.Content); ok {
			res.Answer = answer
		} else {
			res.Answer = strings.TrimSpace(r2.Content)
		}
	}

	conv = conv.Tail(r.cfg.MaxMessages)
	if err := r.store.Save(context.WithoutCancel(ctx), key, conv); err != nil {
		res.PersistErr = &PersistenceError{Key: key, Err: err}
		log.Error().Err(err).Msg("failed to persist conversation")
		r.emit(ctx, hooks.EventPersistenceFailed, map[string]any{
			"turn": res.TurnID, "session": key.String(), "error": err.Error(),
		})
	}

	res.Duration = time.Since(start)
	data := map[string]any{
		"turn":      res.TurnID,
		"session":   key.String(),
		"utterance": utterance,
		"answer":    res.Answer,
		"duration":  res.Duration,
	}
	if res.Call != nil {
		data["action"] = res.Call.Name
	}
	r.emit(ctx, hooks.EventTurnCompleted, data)

	log.Info().
		Bool("action", res.Call != nil).
		Bool("degraded", res.ActionErr != nil).
		Int("inputTokens", res.Usage.InputTokens).
		Int("outputTokens", res.Usage.OutputTokens).
		Dur("duration", res.Duration).
		Msg("turn completed")
	return res, nil
}

// runAction parses and executes the action requested by response. A nil
// call means the turn takes the no-action path; err says why when an
// action was requested but did not run.
func (r *Runner) runAction(ctx context.Context, response string, log *logging.Logger) (any, *action.Call, error) {
	text, ok := ExtractAction(response)
	if !ok || text == "" {
		return nil, nil, nil
	}

	call, err := r.actions.Parse(text)
	if err != nil {
		log.Warn().Err(err).Str("call", text).Msg("unusable action call")
		r.emit(ctx, hooks.EventActionFailed, map[string]any{"call": text, "error": err.Error()})
		return nil, nil, err
	}

	start := time.Now()
	obs, err := r.actions.Invoke(ctx, call)
	if err != nil {
		log.Warn().Err(err).Str("action", call.Name).Msg("action failed")
		r.emit(ctx, hooks.EventActionFailed, map[string]any{"call": text, "action": call.Name, "error": err.Error()})
		return nil, nil, err
	}

	log.Info().Str("action", call.Name).Dur("duration", time.Since(start)).Msg("action executed")
	r.emit(ctx, hooks.EventActionInvoked, map[string]any{"call": text, "action": call.Name})
	return obs, &call, nil
}

func (r *Runner) complete(ctx context.Context, system string, msgs domain.Conversation) (*llm.CompletionResponse, error) {
	if r.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.CallTimeout)
		defer cancel()
	}

	req := llm.CompletionRequest{
		System:      system,
		Messages:    make([]llm.Message, len(msgs)),
		MaxTokens:   r.cfg.MaxTokens,
		Temperature: r.cfg.Temperature,
	}
	for i, m := range msgs {
		req.Messages[i] = llm.Message{Role: m.Role, Content: m.Content}
	}

	resp, err := r.client.Complete(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrModelTransport, err)
	}
	return resp, nil
}

func (r *Runner) emit(ctx context.Context, event string, data map[string]any) {
	if r.hooks != nil {
		r.hooks.Emit(ctx, event, data)
	}
}

// noActionAnswer picks the answer from a response that did not lead to an
// action: the text after the last "Answer:", the whole response when it
// is plain prose, or nothing when it asked for an action without answering.
func noActionAnswer(response string) string {
	if answer, ok := answerAfter(response); ok {
		return answer
	}
	if requestsAction(response) {
		return ""
	}
	return strings.TrimSpace(response)
}

// formatObservation renders an observation as compact JSON.
func formatObservation(obs any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(obs); err != nil {
		return fmt.Sprint(obs)
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n"))
}
