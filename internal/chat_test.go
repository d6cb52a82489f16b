package internal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/iksnae/aichat/testutil"
)

type stubLookup struct {
	bio string
	err error
}

func (s *stubLookup) Lookup(ctx context.Context, name string, sentences int) (string, error) {
	return s.bio, s.err
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "default session created",
			cfg:  Config{Session: SessionConfig{APIKey: "k"}},
		},
		{
			name: "no default session",
			cfg:  Config{NoDefaultSession: true},
		},
		{
			name:    "missing api key",
			cfg:     Config{Session: SessionConfig{}},
			wantErr: true,
		},
		{
			name:    "unsupported model",
			cfg:     Config{Session: SessionConfig{APIKey: "k", Model: "llama-7b"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("OPENAI_API_KEY", "")
			ai, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				var confErr *ConfigurationError
				if !errors.As(err, &confErr) {
					t.Errorf("New() error = %v, want ConfigurationError", err)
				}
				return
			}
			if tt.cfg.NoDefaultSession {
				if _, err := ai.GetSession(""); err == nil {
					t.Error("GetSession(\"\") succeeded without a default session")
				}
			} else {
				sess, err := ai.GetSession("")
				if err != nil {
					t.Fatalf("GetSession(\"\") error = %v", err)
				}
				if sess.Model != "gpt-3.5-turbo" {
					t.Errorf("default model = %q", sess.Model)
				}
				if sess.System != "You are a helpful assistant." {
					t.Errorf("default system = %q", sess.System)
				}
				if sess.ID == "" {
					t.Error("session id is empty")
				}
				if sess.Params["temperature"] != 0.7 {
					t.Errorf("default temperature = %v", sess.Params["temperature"])
				}
			}
		})
	}
}

func TestNew_APIKeyFromEnvironment(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "env-key")
	ai, err := New(Config{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	sess, _ := ai.GetSession("")
	if sess.credential("api_key") != "env-key" {
		t.Error("credential not taken from environment")
	}
}

func TestNew_Character(t *testing.T) {
	ai, err := New(Config{
		Character: "Ada Lovelace",
		Lookup:    &stubLookup{bio: "Ada Lovelace was an English mathematician."},
		Session:   SessionConfig{APIKey: "k"},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	sess, _ := ai.GetSession("")
	if !strings.Contains(sess.System, "Ada Lovelace was an English mathematician.") {
		t.Errorf("system prompt missing biography: %q", sess.System)
	}
	if sess.Title != "Ada Lovelace" {
		t.Errorf("session title = %q, want Ada Lovelace", sess.Title)
	}
}

func TestNew_CharacterLookupFailure(t *testing.T) {
	_, err := New(Config{
		Character: "Nobody",
		Lookup:    &stubLookup{err: errors.New("no article")},
		Session:   SessionConfig{APIKey: "k"},
	})
	if err == nil {
		t.Fatal("New() succeeded although the biography lookup failed")
	}
}

func TestAIChat_BuildSystem(t *testing.T) {
	ai, err := New(Config{
		NoDefaultSession: true,
		Lookup:           &stubLookup{bio: "A famous person."},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx := context.Background()

	tests := []struct {
		name      string
		character string
		command   string
		system    string
		want      []string
	}{
		{
			name:   "plain system text",
			system: "Answer briefly.",
			want:   []string{"Answer briefly."},
		},
		{
			name: "empty falls back to default",
			want: []string{"You are a helpful assistant."},
		},
		{
			name:      "character overrides system",
			character: "Someone",
			system:    "ignored",
			want:      []string{"A famous person."},
		},
		{
			name:      "character with command",
			character: "Someone",
			command:   "Speak only in riddles",
			want:      []string{"A famous person.", "- Speak only in riddles"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ai.BuildSystem(ctx, tt.character, tt.command, tt.system)
			if err != nil {
				t.Fatalf("BuildSystem() error = %v", err)
			}
			for _, want := range tt.want {
				if !strings.Contains(got, want) {
					t.Errorf("BuildSystem() = %q, missing %q", got, want)
				}
			}
			if tt.character != "" && strings.Contains(got, "ignored") {
				t.Errorf("BuildSystem() kept system text despite character: %q", got)
			}
		})
	}
}

func TestAIChat_SessionLifecycle(t *testing.T) {
	ai, err := New(Config{Session: SessionConfig{APIKey: "k"}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	sess, err := ai.NewSession(SessionConfig{APIKey: "k", ID: "extra"})
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	if sess.ID != "extra" {
		t.Errorf("session id = %q, want extra", sess.ID)
	}

	got, err := ai.GetSession("extra")
	if err != nil || got != sess {
		t.Errorf("GetSession(extra) = %v, %v", got, err)
	}

	_, err = ai.GetSession("nope")
	var unknown *UnknownSessionError
	if !errors.As(err, &unknown) {
		t.Errorf("GetSession(nope) error = %v, want UnknownSessionError", err)
	}

	sess.AddMessages(NewMessage(RoleUser, "q"), NewMessage(RoleAssistant, "a"), nil)
	if err := ai.ResetSession("extra"); err != nil {
		t.Fatalf("ResetSession() error = %v", err)
	}
	if len(sess.Messages) != 0 {
		t.Errorf("ResetSession() left %d messages", len(sess.Messages))
	}

	if err := ai.DeleteSession("extra"); err != nil {
		t.Fatalf("DeleteSession() error = %v", err)
	}
	if _, err := ai.GetSession("extra"); err == nil {
		t.Error("GetSession(extra) succeeded after delete")
	}
}

func TestAIChat_DeleteDefaultSession(t *testing.T) {
	ai, err := New(Config{Session: SessionConfig{APIKey: "k"}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := ai.DeleteSession(""); err != nil {
		t.Fatalf("DeleteSession(\"\") error = %v", err)
	}

	_, err = ai.GetSession("")
	var noDefault *NoDefaultSessionError
	if !errors.As(err, &noDefault) {
		t.Errorf("GetSession(\"\") error = %v, want NoDefaultSessionError", err)
	}
}

func TestAIChat_WithSession(t *testing.T) {
	ai, err := New(Config{NoDefaultSession: true})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	var id string
	err = ai.WithSession(SessionConfig{APIKey: "k"}, func(sess *Session) error {
		id = sess.ID
		if _, err := ai.GetSession(id); err != nil {
			t.Errorf("session not registered inside WithSession: %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithSession() error = %v", err)
	}
	if _, err := ai.GetSession(id); err == nil {
		t.Error("session still registered after WithSession")
	}

	// The session is removed even when fn fails.
	wantErr := errors.New("boom")
	err = ai.WithSession(SessionConfig{APIKey: "k"}, func(sess *Session) error {
		id = sess.ID
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("WithSession() error = %v, want %v", err, wantErr)
	}
	if _, err := ai.GetSession(id); err == nil {
		t.Error("session still registered after failing WithSession")
	}
}

func TestAIChat_CallToolConflict(t *testing.T) {
	ai, err := New(Config{Session: SessionConfig{APIKey: "k"}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	tool := Tool{
		Name:        "t",
		Description: "a tool",
		Run:         func(ctx context.Context, prompt string) (any, error) { return "x", nil },
	}
	schema := &Schema{Name: "s", Description: "a schema"}

	_, err = ai.Call(context.Background(), "x", CallOptions{Tools: []Tool{tool}, OutputSchema: schema})
	var conflict *ToolConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("Call() error = %v, want ToolConflictError", err)
	}
}

func TestAIChat_Totals(t *testing.T) {
	server := testutil.NewCompletionServer(t, func(req map[string]interface{}) interface{} {
		return testutil.CompletionBody("ok", 7, 3)
	})
	ai := newTestChat(t, server.URL)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := ai.Call(ctx, fmt.Sprintf("turn %d", i), CallOptions{}); err != nil {
			t.Fatalf("Call() error = %v", err)
		}
	}

	if got, _ := ai.TotalPromptLength(""); got != 14 {
		t.Errorf("TotalPromptLength() = %d, want 14", got)
	}
	if got, _ := ai.TotalCompletionLength(""); got != 6 {
		t.Errorf("TotalCompletionLength() = %d, want 6", got)
	}
	if got, _ := ai.TotalTokens(""); got != 20 {
		t.Errorf("TotalTokens() = %d, want 20", got)
	}

	if _, err := ai.TotalTokens("missing"); err == nil {
		t.Error("TotalTokens(missing) succeeded")
	}
}
