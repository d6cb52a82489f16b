package internal

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newPersistChat(t *testing.T) (*AIChat, *Session) {
	t.Helper()
	ai, err := New(Config{Session: SessionConfig{APIKey: "test-key", ID: "persist-test"}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	sess, _ := ai.GetSession("")

	base := time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC)
	sess.Messages = []Message{
		{Role: RoleUser, Content: "What is 2+2?", ReceivedAt: base},
		{
			Role:             RoleAssistant,
			Content:          "4",
			ReceivedAt:       base.Add(time.Second),
			FinishReason:     "stop",
			PromptLength:     10,
			CompletionLength: 2,
			TotalLength:      12,
		},
	}
	sess.TotalPromptLength = 10
	sess.TotalCompletionLength = 2
	sess.TotalLength = 12
	return ai, sess
}

func TestSession_DumpIsSnapshot(t *testing.T) {
	_, sess := newPersistChat(t)

	dump := sess.Dump()
	dump.Params["temperature"] = 1.9
	dump.Messages[0].Content = "tampered"

	if sess.Params["temperature"] != 0.7 {
		t.Errorf("session temperature = %v, want 0.7", sess.Params["temperature"])
	}
	if sess.Messages[0].Content != "What is 2+2?" {
		t.Errorf("session message = %q", sess.Messages[0].Content)
	}
}

func TestSaveSession_CSVRoundTrip(t *testing.T) {
	ai, sess := newPersistChat(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "session.csv")

	if err := ai.SaveSession(path, "", "csv", false); err != nil {
		t.Fatalf("SaveSession() error = %v", err)
	}

	loaded, err := ai.LoadSession(path, "restored", SessionConfig{APIKey: "test-key"})
	if err != nil {
		t.Fatalf("LoadSession() error = %v", err)
	}

	if loaded.ID != "restored" {
		t.Errorf("loaded id = %q, want restored", loaded.ID)
	}
	if len(loaded.Messages) != len(sess.Messages) {
		t.Fatalf("loaded %d messages, want %d", len(loaded.Messages), len(sess.Messages))
	}
	for i, got := range loaded.Messages {
		want := sess.Messages[i]
		if got.Role != want.Role || got.Content != want.Content {
			t.Errorf("message %d = %s %q, want %s %q", i, got.Role, got.Content, want.Role, want.Content)
		}
		// CSV stores local time at second precision; the instant
		// survives the round trip, the sub-second part does not.
		if !got.ReceivedAt.Equal(want.ReceivedAt.Truncate(time.Second)) {
			t.Errorf("message %d timestamp = %v, want %v", i, got.ReceivedAt, want.ReceivedAt)
		}
		if got.TotalLength != want.TotalLength {
			t.Errorf("message %d total length = %d, want %d", i, got.TotalLength, want.TotalLength)
		}
		if got.FinishReason != want.FinishReason {
			t.Errorf("message %d finish reason = %q, want %q", i, got.FinishReason, want.FinishReason)
		}
	}

	// CSV carries messages only; totals start fresh.
	if loaded.TotalLength != 0 {
		t.Errorf("loaded TotalLength = %d, want 0", loaded.TotalLength)
	}
}

func TestSaveSession_JSONRoundTrip(t *testing.T) {
	ai, sess := newPersistChat(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "session.json")

	if err := ai.SaveSession(path, "", "json", false); err != nil {
		t.Fatalf("SaveSession() error = %v", err)
	}

	// The dump must never leak credentials or the endpoint.
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read dump: %v", err)
	}
	if strings.Contains(string(raw), "test-key") {
		t.Error("JSON dump contains the API key")
	}
	if strings.Contains(string(raw), "api.openai.com") {
		t.Error("JSON dump contains the API URL")
	}

	// A fresh manager restores everything but the credential.
	other, err := New(Config{NoDefaultSession: true})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	loaded, err := other.LoadSession(path, "", SessionConfig{APIKey: "new-key"})
	if err != nil {
		t.Fatalf("LoadSession() error = %v", err)
	}

	if loaded.ID != sess.ID {
		t.Errorf("loaded id = %q, want %q", loaded.ID, sess.ID)
	}
	if !loaded.CreatedAt.Equal(sess.CreatedAt) {
		t.Errorf("loaded created at = %v, want %v", loaded.CreatedAt, sess.CreatedAt)
	}
	if len(loaded.Messages) != 2 {
		t.Fatalf("loaded %d messages, want 2", len(loaded.Messages))
	}
	if !loaded.Messages[1].ReceivedAt.Equal(sess.Messages[1].ReceivedAt) {
		t.Errorf("loaded timestamp = %v, want %v", loaded.Messages[1].ReceivedAt, sess.Messages[1].ReceivedAt)
	}
	if loaded.TotalLength != 12 {
		t.Errorf("loaded TotalLength = %d, want 12", loaded.TotalLength)
	}
	if loaded.credential("api_key") != "new-key" {
		t.Error("loaded session did not take the fresh credential")
	}

	// The restored session is registered with the manager.
	if _, err := other.GetSession(sess.ID); err != nil {
		t.Errorf("restored session not registered: %v", err)
	}
}

func TestSaveSession_JSONMinify(t *testing.T) {
	ai, _ := newPersistChat(t)
	dir := t.TempDir()

	pretty := filepath.Join(dir, "pretty.json")
	minified := filepath.Join(dir, "min.json")
	if err := ai.SaveSession(pretty, "", "json", false); err != nil {
		t.Fatalf("SaveSession() error = %v", err)
	}
	if err := ai.SaveSession(minified, "", "json", true); err != nil {
		t.Fatalf("SaveSession() error = %v", err)
	}

	prettyData, _ := os.ReadFile(pretty)
	minData, _ := os.ReadFile(minified)
	if len(minData) >= len(prettyData) {
		t.Errorf("minified dump (%d bytes) not smaller than pretty dump (%d bytes)", len(minData), len(prettyData))
	}

	var dump SessionDump
	if err := json.Unmarshal(minData, &dump); err != nil {
		t.Fatalf("minified dump does not parse: %v", err)
	}
}

func TestSaveSession_UnsupportedFormat(t *testing.T) {
	ai, _ := newPersistChat(t)

	err := ai.SaveSession(filepath.Join(t.TempDir(), "s.xml"), "", "xml", false)
	var persistErr *PersistError
	if !errors.As(err, &persistErr) {
		t.Fatalf("SaveSession() error = %v, want PersistError", err)
	}
}

func TestLoadSession_UnsupportedExtension(t *testing.T) {
	ai, _ := newPersistChat(t)

	_, err := ai.LoadSession("session.yaml", "", SessionConfig{APIKey: "k"})
	var persistErr *PersistError
	if !errors.As(err, &persistErr) {
		t.Fatalf("LoadSession() error = %v, want PersistError", err)
	}
}

func TestLoadSession_MalformedCSV(t *testing.T) {
	ai, _ := newPersistChat(t)
	dir := t.TempDir()

	path := filepath.Join(dir, "bad.csv")
	if err := os.WriteFile(path, []byte("role,content\nuser,hi\n"), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	_, err := ai.LoadSession(path, "", SessionConfig{APIKey: "k"})
	var persistErr *PersistError
	if !errors.As(err, &persistErr) {
		t.Fatalf("LoadSession() error = %v, want PersistError", err)
	}
}
