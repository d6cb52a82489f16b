package export

import (
	"encoding/json"
	"io"

	"github.com/iksnae/aichat/internal"
)

// JSONExporter exports sessions in JSON format (pretty-printed)
type JSONExporter struct{}

// Export exports a session dump to JSON format
func (e *JSONExporter) Export(dump *internal.SessionDump, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(dump)
}

// Extension returns the file extension for this format
func (e *JSONExporter) Extension() string {
	return "json"
}
