package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
	"google.golang.org/api/translate/v2"

	"github.com/soyeahso/matrix/internal/action"
	"github.com/soyeahso/matrix/internal/agent"
	"github.com/soyeahso/matrix/internal/config"
	"github.com/soyeahso/matrix/internal/domain"
	"github.com/soyeahso/matrix/internal/hooks"
	"github.com/soyeahso/matrix/internal/llm"
	"github.com/soyeahso/matrix/internal/logging"
	"github.com/soyeahso/matrix/internal/store"
	"github.com/soyeahso/matrix/internal/tools"
	"github.com/soyeahso/matrix/internal/voice"
)

// Session channels.
const (
	channelVoice   = "voice"
	channelConsole = "console"
)

// app holds the wired components shared by the commands.
type app struct {
	cfg      config.Config
	log      *logging.Logger
	tz       *time.Location
	hooks    *hooks.Manager
	actions  *action.Registry
	sessions agent.SessionAdmin
	turns    *store.TurnLog
	runner   *agent.Runner

	db        *store.DB
	translate *translate.Service
}

type appOptions struct {
	model bool // build the model client and runner
}

// loadConfig loads and validates the config file.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(paths.Config)
	if err != nil {
		return cfg, err
	}
	if issues := config.Validate(&cfg); len(issues) > 0 {
		for _, issue := range issues {
			log.Error().Str("path", issue.Path).Msg(issue.Message)
		}
		return cfg, fmt.Errorf("config validation failed with %d issue(s)", len(issues))
	}
	return cfg, nil
}

// newApp wires storage, actions and, when asked, the model and runner.
// Google-backed actions are skipped with a warning until 'matrix auth' has
// stored a token.
func newApp(ctx context.Context, cfg config.Config, opts appOptions) (*app, error) {
	tz, err := time.LoadLocation(cfg.Assistant.Timezone)
	if err != nil {
		return nil, fmt.Errorf("assistant timezone: %w", err)
	}
	if err := paths.EnsureDirs(); err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		log:     log,
		tz:      tz,
		hooks:   hooks.NewManager(log),
		actions: action.NewRegistry(),
	}

	if err := a.openStorage(); err != nil {
		return nil, err
	}
	if err := a.registerActions(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if !opts.model {
		return a, nil
	}

	registry, err := llm.NewRegistryFromConfig(ctx, cfg.Model, log)
	if err != nil {
		a.Close()
		return nil, err
	}
	client := llm.NewFailoverClient(registry, cfg.Model.Provider, cfg.Model.Fallbacks, log)
	a.runner = agent.NewRunner(runnerConfig(cfg, tz), client, a.actions, a.sessions, a.hooks, log)
	return a, nil
}

func runnerConfig(cfg config.Config, tz *time.Location) agent.RunnerConfig {
	contacts := make([]agent.Contact, 0, len(cfg.Assistant.Contacts))
	for _, c := range cfg.Assistant.Contacts {
		contacts = append(contacts, agent.Contact{Name: c.Name, Email: c.Email})
	}
	return agent.RunnerConfig{
		AssistantName: cfg.Assistant.Name,
		Location:      cfg.Assistant.Location,
		Timezone:      tz,
		Contacts:      contacts,
		MaxMessages:   cfg.Session.MaxMessages,
		CallTimeout:   time.Duration(cfg.Model.CallTimeoutSeconds) * time.Second,
		MaxTokens:     cfg.Model.MaxOutputTokens,
		Temperature:   cfg.Model.Temperature,
	}
}

// openStorage opens the database behind the turn log and the configured
// conversation store.
func (a *app) openStorage() error {
	db, err := store.Open(paths.Database(), a.log)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	a.db = db
	a.turns = store.NewTurnLog(db)
	a.turns.Attach(a.hooks)

	sessions, err := openConversations(a.cfg.Session.Store, db, a.log)
	if err != nil {
		db.Close()
		return err
	}
	a.sessions = sessions
	a.log.Debug().Str("store", a.cfg.Session.Store).Msg("conversation store ready")
	return nil
}

func openConversations(kind string, db *store.DB, log *logging.Logger) (agent.SessionAdmin, error) {
	switch kind {
	case "memory":
		return agent.NewMemoryConversationStore(), nil
	case "sqlite":
		return store.NewSQLiteConversationStore(db), nil
	case "file", "":
		return store.NewFileConversationStore(paths.Conversations, log)
	default:
		return nil, fmt.Errorf("unknown session store %q", kind)
	}
}

// registerActions builds the backends for every configured action.
func (a *app) registerActions(ctx context.Context) error {
	set := tools.Set{
		UnreadLimit:    a.cfg.Mail.UnreadLimit,
		SearchLocation: a.cfg.Search.Country,
	}

	hc, err := a.googleClient(ctx)
	switch {
	case errors.Is(err, tools.ErrNoToken), errors.Is(err, os.ErrNotExist):
		a.log.Warn().Err(err).Msg("Google account not authorized; mail, calendar and translation disabled")
	case err != nil:
		return err
	default:
		gm, err := gmail.NewService(ctx, option.WithHTTPClient(hc))
		if err != nil {
			return fmt.Errorf("gmail service: %w", err)
		}
		cal, err := calendar.NewService(ctx, option.WithHTTPClient(hc))
		if err != nil {
			return fmt.Errorf("calendar service: %w", err)
		}
		tr, err := translate.NewService(ctx, option.WithHTTPClient(hc))
		if err != nil {
			return fmt.Errorf("translate service: %w", err)
		}
		g := tools.NewGmail(gm, a.tz, a.log)
		set.Mailbox, set.Mailer = g, g
		set.Calendar = tools.NewCalendar(cal, a.tz, a.log)
		a.translate = tr
	}

	if a.cfg.Mail.Backend == "imap" {
		m := a.cfg.Mail.IMAP
		set.Mailbox = tools.NewIMAPMail(tools.IMAPConfig{
			Host:     m.Host,
			Port:     m.Port,
			Username: m.Username,
			Password: m.Password,
			Mailbox:  m.Mailbox,
		}, a.tz, a.log)
	}

	if a.cfg.Search.APIKey != "" {
		set.Search = tools.NewWebSearch(tools.SearchConfig{
			Endpoint: a.cfg.Search.Endpoint,
			APIKey:   a.cfg.Search.APIKey,
			Num:      a.cfg.Search.Num,
		}, a.log)
	} else {
		a.log.Warn().Msg("search.apiKey not set; google_search disabled")
	}

	return tools.Register(a.actions, set)
}

func (a *app) googleClient(ctx context.Context) (*http.Client, error) {
	creds, token := googleFiles(a.cfg.Google)
	return tools.HTTPClient(ctx, creds, token)
}

// voiceHandler builds the Twilio webhook handler around the runner.
func (a *app) voiceHandler(ctx context.Context) (*voice.Handler, error) {
	v := a.cfg.Voice

	var caller voice.Caller
	if v.AccountSID != "" {
		caller = voice.NewTwilioClient(v.AccountSID, v.AuthToken, v.APIBase, a.log)
	}
	var translator voice.Translator
	if a.translate != nil {
		translator = voice.NewGoogleTranslator(a.translate)
	}

	return voice.NewHandler(ctx, voice.Config{
		Language:          v.Language,
		VoiceName:         v.VoiceName,
		Intro:             v.Intro,
		Fallback:          v.Fallback,
		Apology:           v.Apology,
		GatherTimeout:     time.Duration(v.GatherTimeoutSeconds) * time.Second,
		TurnTimeout:       time.Duration(v.TurnTimeoutSeconds) * time.Second,
		MissedCall:        v.MissedCallEnabled(),
		CallbackDelay:     time.Duration(v.CallbackDelaySeconds) * time.Second,
		ValidateSignature: v.ValidateSignature,
		AuthToken:         v.AuthToken,
		PublicURL:         v.PublicURL,
	}, a.voiceTurn, caller, translator, a.hooks, a.log)
}

func (a *app) voiceTurn(ctx context.Context, caller, utterance string) (string, error) {
	res, err := a.runner.Turn(ctx, sessionKey(a.cfg.Session.Scope, channelVoice, caller), utterance)
	if err != nil {
		return "", err
	}
	return res.Answer, nil
}

// Close drains background hook handlers and releases the database.
func (a *app) Close() error {
	if a.hooks != nil {
		a.hooks.Wait()
	}
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

// sessionKey picks the conversation a speaker's turn belongs to.
func sessionKey(scope, channel, id string) domain.SessionKey {
	if scope == "global" {
		return domain.GlobalSession
	}
	return domain.SessionKey{ChannelID: channel, ChatID: id}
}

// scopedTurner applies the session scope to turns arriving over the
// gateway.
type scopedTurner struct {
	next  turner
	scope string
}

func (s scopedTurner) Turn(ctx context.Context, key domain.SessionKey, utterance string) (*agent.TurnResult, error) {
	if s.scope == "global" {
		key = domain.GlobalSession
	}
	return s.next.Turn(ctx, key, utterance)
}
