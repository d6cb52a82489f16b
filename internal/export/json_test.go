package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/iksnae/aichat/internal"
)

func TestJSONExporter_Export(t *testing.T) {
	dump := internal.CreateTestDump("json1")

	var buf bytes.Buffer
	exporter := &JSONExporter{}
	if err := exporter.Export(dump, &buf); err != nil {
		t.Fatalf("JSONExporter.Export() error = %v", err)
	}

	var decoded internal.SessionDump
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.ID != dump.ID {
		t.Errorf("decoded id = %q, want %q", decoded.ID, dump.ID)
	}
	if decoded.TotalLength != dump.TotalLength {
		t.Errorf("decoded TotalLength = %d, want %d", decoded.TotalLength, dump.TotalLength)
	}

	// Pretty-printed output.
	if !strings.Contains(buf.String(), "\n  ") {
		t.Error("output is not indented")
	}
}

func TestJSONExporter_Extension(t *testing.T) {
	exporter := &JSONExporter{}
	if got := exporter.Extension(); got != "json" {
		t.Errorf("JSONExporter.Extension() = %v, want json", got)
	}
}
