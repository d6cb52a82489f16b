package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/iksnae/aichat/internal"
)

// MarkdownExporter exports sessions in Markdown format
type MarkdownExporter struct{}

// Export exports a session dump to Markdown format
func (e *MarkdownExporter) Export(dump *internal.SessionDump, w io.Writer) error {
	title := dump.Title
	if title == "" {
		title = fmt.Sprintf("Session %s", dump.ID)
	}
	_, _ = fmt.Fprintf(w, "# %s\n\n", title)

	_, _ = fmt.Fprintf(w, "**Model:** %s  \n", dump.Model)
	_, _ = fmt.Fprintf(w, "**Created:** %s  \n", dump.CreatedAt.Format(time.RFC3339))
	_, _ = fmt.Fprintf(w, "**Messages:** %d\n\n", len(dump.Messages))

	if dump.TotalLength > 0 {
		_, _ = fmt.Fprintf(w, "**Tokens:** %d prompt / %d completion / %d total\n\n",
			dump.TotalPromptLength, dump.TotalCompletionLength, dump.TotalLength)
	}

	_, _ = fmt.Fprintf(w, "---\n\n")
	_, _ = fmt.Fprintf(w, "**system:**\n\n%s\n\n", escapeMarkdown(dump.System))

	for _, msg := range dump.Messages {
		_, _ = fmt.Fprintf(w, "---\n\n")

		timestamp := ""
		if !msg.ReceivedAt.IsZero() {
			timestamp = fmt.Sprintf(" (%s)", msg.ReceivedAt.Format(time.RFC3339))
		}
		content := escapeMarkdown(msg.Content)

		_, _ = fmt.Fprintf(w, "**%s:**%s\n\n%s\n\n", msg.Role, timestamp, content)
	}

	return nil
}

// escapeMarkdown escapes markdown special characters
func escapeMarkdown(text string) string {
	// Basic escaping - preserve code blocks
	lines := strings.Split(text, "\n")
	var result []string
	inCodeBlock := false

	for _, line := range lines {
		if strings.HasPrefix(line, "```") {
			inCodeBlock = !inCodeBlock
			result = append(result, line)
		} else if inCodeBlock {
			result = append(result, line)
		} else {
			// Escape markdown syntax outside code blocks
			line = strings.ReplaceAll(line, "**", "\\*\\*")
			line = strings.ReplaceAll(line, "__", "\\_\\_")
			result = append(result, line)
		}
	}

	return strings.Join(result, "\n")
}

// Extension returns the file extension for this format
func (e *MarkdownExporter) Extension() string {
	return "md"
}
