package internal

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
)

const (
	defaultModel       = "gpt-3.5-turbo"
	defaultSystem      = "You are a helpful assistant."
	defaultTemperature = 0.7
)

const characterPromptTemplate = `You must follow ALL these rules in all responses:
- You are the following character and should ALWAYS act as them: %s
- NEVER speak in a formal tone.
- Concisely introduce yourself first in character.`

// SessionConfig configures a new session. Zero values fall back to the
// manager defaults.
type SessionConfig struct {
	ID             string
	APIKey         string
	APIURL         string
	Model          string
	System         string
	Params         map[string]any
	InputFields    map[string]bool
	RecentMessages int
	SaveMessages   *bool
	Title          string
}

// CallOptions carries the per-call arguments of Call and Stream.
type CallOptions struct {
	// SessionID selects the target session; empty means the default one.
	SessionID string

	System       string
	SaveMessages *bool
	Params       map[string]any

	// Tools routes the call through the tool-selection protocol. Tools
	// cannot be combined with either schema.
	Tools []Tool

	InputSchema  *Schema
	OutputSchema *Schema
}

// Config configures a chat manager and its default session.
type Config struct {
	// Character names a public figure to impersonate; the biography
	// lookup collaborator supplies the factual grounding.
	Character        string
	CharacterCommand string

	// System is the default system prompt when no character is set.
	System string

	// NoDefaultSession skips creating the implicit default session.
	NoDefaultSession bool

	// Client is the shared transport. The default client carries no
	// request deadline; generations are bounded by the caller's context.
	Client *http.Client

	// Lookup overrides the biography collaborator (tests stub it).
	Lookup BiographyLookup

	// Session is the configuration template for the default session.
	Session SessionConfig
}

// AIChat owns a pool of sessions keyed by id and a shared transport
// client. It is the single entry point for calls, streaming and
// persistence.
//
// AIChat is not safe for concurrent mutation; callers wanting concurrent
// turns should use one session per goroutine.
type AIChat struct {
	client         *http.Client
	lookup         BiographyLookup
	defaultSession *Session
	sessions       map[string]*Session
}

// New creates a manager and, unless disabled, its default session.
func New(cfg Config) (*AIChat, error) {
	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}
	lookup := cfg.Lookup
	if lookup == nil {
		lookup = NewWikipediaClient(nil)
	}

	m := &AIChat{
		client:   client,
		lookup:   lookup,
		sessions: make(map[string]*Session),
	}

	if !cfg.NoDefaultSession {
		system := cfg.System
		if system == "" {
			system = cfg.Session.System
		}
		built, err := m.BuildSystem(context.Background(), cfg.Character, cfg.CharacterCommand, system)
		if err != nil {
			return nil, err
		}

		sc := cfg.Session
		sc.System = built
		if sc.Title == "" && cfg.Character != "" {
			sc.Title = cfg.Character
		}
		sess, err := m.NewSession(sc)
		if err != nil {
			return nil, err
		}
		m.defaultSession = sess
	}

	return m, nil
}

// NewSession constructs a session from the config and registers it.
func (m *AIChat) NewSession(cfg SessionConfig) (*Session, error) {
	sess, err := m.buildSession(cfg)
	if err != nil {
		return nil, err
	}
	m.sessions[sess.ID] = sess
	return sess, nil
}

// buildSession validates the model family, resolves the credential and
// fills in defaults. It fails before any network call can happen.
func (m *AIChat) buildSession(cfg SessionConfig) (*Session, error) {
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	family, err := familyForModel(model)
	if err != nil {
		return nil, err
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv(family.credentialEnv)
	}
	if apiKey == "" {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("an API key for %s was not defined", model)}
	}

	id := cfg.ID
	if id == "" {
		id = uuid.New().String()
	}
	apiURL := cfg.APIURL
	if apiURL == "" {
		apiURL = family.defaultURL
	}
	system := cfg.System
	if system == "" {
		system = defaultSystem
	}

	params := make(map[string]any, len(cfg.Params))
	for k, v := range cfg.Params {
		params[k] = v
	}
	if len(params) == 0 {
		params["temperature"] = defaultTemperature
	}

	inputFields := make(map[string]bool, len(cfg.InputFields))
	for k, v := range cfg.InputFields {
		inputFields[k] = v
	}
	if len(inputFields) == 0 {
		for k, v := range DefaultInputFields {
			inputFields[k] = v
		}
	}

	save := true
	if cfg.SaveMessages != nil {
		save = *cfg.SaveMessages
	}

	return &Session{
		ID:             id,
		CreatedAt:      time.Now().UTC(),
		Model:          model,
		System:         system,
		Title:          cfg.Title,
		Params:         params,
		InputFields:    inputFields,
		RecentMessages: cfg.RecentMessages,
		SaveMessages:   save,
		auth:           map[string]string{"api_key": apiKey},
		apiURL:         apiURL,
		adapter:        family.construct(m.client),
	}, nil
}

// GetSession returns the session with the given id, or the default session
// when id is empty.
func (m *AIChat) GetSession(id string) (*Session, error) {
	if id == "" {
		if m.defaultSession == nil {
			return nil, &NoDefaultSessionError{}
		}
		return m.defaultSession, nil
	}
	sess, ok := m.sessions[id]
	if !ok {
		return nil, &UnknownSessionError{ID: id}
	}
	return sess, nil
}

// ResetSession clears a session's message history. Totals and
// configuration are untouched.
func (m *AIChat) ResetSession(id string) error {
	sess, err := m.GetSession(id)
	if err != nil {
		return err
	}
	sess.Reset()
	return nil
}

// DeleteSession removes a session from the pool. Deleting the default
// session clears the default pointer.
func (m *AIChat) DeleteSession(id string) error {
	sess, err := m.GetSession(id)
	if err != nil {
		return err
	}
	if m.defaultSession != nil && m.defaultSession.ID == sess.ID {
		m.defaultSession = nil
	}
	delete(m.sessions, sess.ID)
	return nil
}

// WithSession creates a throwaway session, hands it to fn and deletes it on
// every exit path.
func (m *AIChat) WithSession(cfg SessionConfig, fn func(*Session) error) error {
	sess, err := m.NewSession(cfg)
	if err != nil {
		return err
	}
	defer func() {
		_ = m.DeleteSession(sess.ID)
	}()
	return fn(sess)
}

// Call resolves the target session and performs one generation. The result
// is the response text, the raw structured payload when an output schema
// was requested, or the tool-call result map when tools were offered.
func (m *AIChat) Call(ctx context.Context, prompt string, opts CallOptions) (any, error) {
	sess, err := m.GetSession(opts.SessionID)
	if err != nil {
		return nil, err
	}

	gen := GenOptions{
		System:       opts.System,
		SaveMessages: opts.SaveMessages,
		Params:       opts.Params,
		InputSchema:  opts.InputSchema,
		OutputSchema: opts.OutputSchema,
	}

	if len(opts.Tools) > 0 {
		if opts.InputSchema != nil || opts.OutputSchema != nil {
			return nil, &ToolConflictError{}
		}
		return sess.adapter.GenWithTools(ctx, sess, prompt, opts.Tools, gen)
	}

	result, err := sess.adapter.Gen(ctx, sess, prompt, gen)
	if err != nil {
		return nil, err
	}
	if result.Structured != nil {
		return result.Structured, nil
	}
	return result.Content, nil
}

// Stream resolves the target session and opens a streaming generation.
// The returned channel stays open until the stream ends or ctx is
// cancelled; callers that stop reading before the end must cancel ctx,
// otherwise the producing goroutine blocks on its next send.
func (m *AIChat) Stream(ctx context.Context, prompt string, opts CallOptions) (<-chan StreamEvent, error) {
	sess, err := m.GetSession(opts.SessionID)
	if err != nil {
		return nil, err
	}
	return sess.adapter.Stream(ctx, sess, prompt, GenOptions{
		System:       opts.System,
		SaveMessages: opts.SaveMessages,
		Params:       opts.Params,
		InputSchema:  opts.InputSchema,
	})
}

// BuildSystem assembles a system prompt. A character name takes priority
// and is grounded with a short biography from the lookup collaborator;
// otherwise the explicit system text or the fixed default applies.
func (m *AIChat) BuildSystem(ctx context.Context, character, command, system string) (string, error) {
	if character != "" {
		bio, err := m.lookup.Lookup(ctx, character, 1)
		if err != nil {
			return "", fmt.Errorf("failed to look up %q: %w", character, err)
		}
		prompt := fmt.Sprintf(characterPromptTemplate, bio)
		if command != "" {
			prompt += "\n- " + command
		}
		return prompt, nil
	}
	if system != "" {
		return system, nil
	}
	return defaultSystem, nil
}

// TotalPromptLength returns a session's accumulated prompt token count.
func (m *AIChat) TotalPromptLength(id string) (int, error) {
	sess, err := m.GetSession(id)
	if err != nil {
		return 0, err
	}
	return sess.TotalPromptLength, nil
}

// TotalCompletionLength returns a session's accumulated completion token
// count.
func (m *AIChat) TotalCompletionLength(id string) (int, error) {
	sess, err := m.GetSession(id)
	if err != nil {
		return 0, err
	}
	return sess.TotalCompletionLength, nil
}

// TotalTokens returns a session's accumulated total token count.
func (m *AIChat) TotalTokens(id string) (int, error) {
	sess, err := m.GetSession(id)
	if err != nil {
		return 0, err
	}
	return sess.TotalLength, nil
}
