package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/iksnae/aichat/internal"
)

// JSONLExporter exports sessions in JSONL format (one message per line)
type JSONLExporter struct{}

// Export exports a session dump to JSONL format
func (e *JSONLExporter) Export(dump *internal.SessionDump, w io.Writer) error {
	enc := json.NewEncoder(w)

	for _, msg := range dump.Messages {
		obj := map[string]interface{}{
			"role":    msg.Role,
			"content": msg.Content,
		}
		if msg.Name != "" {
			obj["name"] = msg.Name
		}
		if !msg.ReceivedAt.IsZero() {
			obj["received_at"] = msg.ReceivedAt.Format(time.RFC3339)
		}
		if msg.FinishReason != "" {
			obj["finish_reason"] = msg.FinishReason
		}

		// Encode to single line
		if err := enc.Encode(obj); err != nil {
			return fmt.Errorf("failed to encode message: %w", err)
		}
	}

	return nil
}

// Extension returns the file extension for this format
func (e *JSONLExporter) Extension() string {
	return "jsonl"
}
