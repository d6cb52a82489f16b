package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/iksnae/aichat/internal"
)

func TestMarkdownExporter_Export(t *testing.T) {
	tests := []struct {
		name string
		dump *internal.SessionDump
		want []string
	}{
		{
			name: "basic session",
			dump: internal.CreateTestDump("test1"),
			want: []string{
				"# Test Conversation",
				"**Model:** gpt-3.5-turbo",
				"**Messages:** 2",
				"**Tokens:** 10 prompt / 8 completion / 18 total",
				"**system:**",
				"**user:**",
				"Hello, how are you?",
				"**assistant:**",
			},
		},
		{
			name: "untitled session falls back to id",
			dump: internal.CreateTestDumpWithMessages("test2", nil),
			want: []string{
				"# Session test2",
				"**Messages:** 0",
			},
		},
		{
			name: "message with timestamp",
			dump: internal.CreateTestDumpWithMessages("test3", []internal.Message{
				{
					Role:       internal.RoleUser,
					Content:    "Hello",
					ReceivedAt: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
				},
			}),
			want: []string{
				"**user:** (2023-01-01T00:00:00Z)",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			exporter := &MarkdownExporter{}

			if err := exporter.Export(tt.dump, &buf); err != nil {
				t.Fatalf("MarkdownExporter.Export() error = %v", err)
			}

			output := buf.String()
			for _, wantStr := range tt.want {
				if !strings.Contains(output, wantStr) {
					t.Errorf("Output should contain %q, got:\n%s", wantStr, output)
				}
			}
		})
	}
}

func TestMarkdownExporter_Extension(t *testing.T) {
	exporter := &MarkdownExporter{}
	if got := exporter.Extension(); got != "md" {
		t.Errorf("MarkdownExporter.Extension() = %v, want md", got)
	}
}

func TestEscapeMarkdown(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		notWant []string
	}{
		{
			name:  "basic text",
			input: "Hello world",
			want:  []string{"Hello world"},
		},
		{
			name:    "markdown bold",
			input:   "This is **bold** text",
			want:    []string{"\\*\\*bold\\*\\*"},
			notWant: []string{"**bold**"},
		},
		{
			name:    "markdown underline",
			input:   "This is __underlined__ text",
			want:    []string{"\\_\\_underlined\\_\\_"},
			notWant: []string{"__underlined__"},
		},
		{
			name:  "code block preserved",
			input: "```go\npackage main\n```",
			want:  []string{"```go", "package main", "```"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := escapeMarkdown(tt.input)
			for _, wantStr := range tt.want {
				if !strings.Contains(got, wantStr) {
					t.Errorf("escapeMarkdown() should contain %q, got: %s", wantStr, got)
				}
			}
			for _, notWantStr := range tt.notWant {
				if strings.Contains(got, notWantStr) {
					t.Errorf("escapeMarkdown() should not contain %q, got: %s", notWantStr, got)
				}
			}
		})
	}
}
