package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/iksnae/aichat/internal"
)

func runCommand(t *testing.T, args ...string) error {
	t.Helper()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	return rootCmd.Execute()
}

func TestExportCommand_RequiresTarget(t *testing.T) {
	archive := filepath.Join(t.TempDir(), "sessions.db")
	if err := runCommand(t, "export", "--archive", archive); err == nil {
		t.Error("export without a session ID or --all should fail")
	}
}

func TestExportCommand_All(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "sessions.db")
	outDir := filepath.Join(dir, "exports")

	store, err := internal.OpenStore(archive)
	if err != nil {
		t.Fatalf("OpenStore() error = %v", err)
	}
	if err := store.Save(internal.CreateTestDump("exported")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	_ = store.Close()

	if err := runCommand(t, "export", "--all", "--format", "md", "--archive", archive, "--out", outDir); err != nil {
		t.Fatalf("export --all error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(outDir, "session_exported.md"))
	if err != nil {
		t.Fatalf("exported file missing: %v", err)
	}
	if len(data) == 0 {
		t.Error("exported file is empty")
	}
}

func TestSessionsCommand_EmptyArchive(t *testing.T) {
	archive := filepath.Join(t.TempDir(), "sessions.db")
	if err := runCommand(t, "sessions", "--archive", archive); err != nil {
		t.Fatalf("sessions on empty archive error = %v", err)
	}
}

func TestSessionsDeleteCommand_Unknown(t *testing.T) {
	archive := filepath.Join(t.TempDir(), "sessions.db")
	if err := runCommand(t, "sessions", "delete", "ghost", "--archive", archive); err == nil {
		t.Error("deleting an unknown session should fail")
	}
}
