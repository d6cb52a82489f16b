package internal

import (
	"time"
)

// DefaultInputFields is the message field whitelist sent to the provider
// when a session does not override it.
var DefaultInputFields = map[string]bool{
	"role":    true,
	"content": true,
	"name":    true,
}

// Session holds the state of one ongoing dialogue: its message history,
// generation configuration and running token totals.
type Session struct {
	ID        string    `json:"id" yaml:"id"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`

	Model  string `json:"model" yaml:"model"`
	System string `json:"system" yaml:"system"`
	Title  string `json:"title,omitempty" yaml:"title,omitempty"`

	// Params are the default generation parameters (temperature etc.).
	// Per-call parameters replace them wholesale; there is no merging.
	Params map[string]any `json:"params" yaml:"params"`

	// Messages is the full stored history. The provider only ever sees
	// the window selected by RecentMessages.
	Messages []Message `json:"messages" yaml:"messages"`

	// InputFields controls which message fields are serialized into a
	// provider request.
	InputFields map[string]bool `json:"-" yaml:"-"`

	// RecentMessages bounds the history window sent to the provider.
	// Zero means the full history is sent.
	RecentMessages int `json:"recent_messages,omitempty" yaml:"recent_messages,omitempty"`

	// SaveMessages is the default persistence decision for AddMessages.
	SaveMessages bool `json:"save_messages" yaml:"save_messages"`

	TotalPromptLength     int `json:"total_prompt_length" yaml:"total_prompt_length"`
	TotalCompletionLength int `json:"total_completion_length" yaml:"total_completion_length"`
	TotalLength           int `json:"total_length" yaml:"total_length"`

	// auth holds credentials. It is unexported so no serialization path
	// can ever write it out.
	auth map[string]string

	apiURL  string
	adapter Adapter
}

// APIURL returns the completion endpoint this session talks to.
func (s *Session) APIURL() string { return s.apiURL }

// credential returns a secret by name, or "" if unset.
func (s *Session) credential(key string) string { return s.auth[key] }

// FormatInputMessages assembles the ordered message sequence for a provider
// request: the system message first, the recent-history window, and the new
// user message last. Every entry is projected onto InputFields.
func (s *Session) FormatInputMessages(system, user Message) []map[string]any {
	window := s.Messages
	if s.RecentMessages > 0 && len(window) > s.RecentMessages {
		window = window[len(window)-s.RecentMessages:]
	}

	out := make([]map[string]any, 0, len(window)+2)
	out = append(out, system.Project(s.InputFields))
	for _, m := range window {
		out = append(out, m.Project(s.InputFields))
	}
	out = append(out, user.Project(s.InputFields))
	return out
}

// AddMessages appends a user/assistant turn pair to the history. When
// saveOverride is non-nil it decides whether the pair is kept; otherwise the
// session's SaveMessages default applies. Callers pass an explicit false to
// issue throwaway turns that never pollute history.
func (s *Session) AddMessages(user, assistant Message, saveOverride *bool) {
	save := s.SaveMessages
	if saveOverride != nil {
		save = *saveOverride
	}
	if !save {
		return
	}
	s.Messages = append(s.Messages, user, assistant)
}

// Reset clears the message history. Configuration and running totals are
// untouched.
func (s *Session) Reset() {
	s.Messages = nil
}

// addUsage accumulates reported token usage into the running totals. Totals
// grow on every billed generation regardless of whether the resulting
// messages were saved.
func (s *Session) addUsage(prompt, completion, total int) {
	s.TotalPromptLength += prompt
	s.TotalCompletionLength += completion
	s.TotalLength += total
}
