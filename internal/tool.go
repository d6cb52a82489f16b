package internal

import "context"

// Tool is an external capability that can augment a turn with context. The
// Description is what the model sees during tool selection, so it must be a
// one-line summary of when the tool applies.
type Tool struct {
	Name        string
	Description string

	// Run is invoked with the original user prompt when the tool is
	// selected. It returns either a plain context string or a
	// map[string]any carrying a "context" key plus any extra keys to
	// pass through to the caller.
	Run func(ctx context.Context, prompt string) (any, error)
}

// Schema declares a structured input or output contract for a generation.
// Parameters is a JSON Schema object describing the fields.
type Schema struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// function returns the wire representation used in the request's
// "functions" list.
func (s *Schema) function() map[string]any {
	return map[string]any{
		"name":        s.Name,
		"description": s.Description,
		"parameters":  s.Parameters,
	}
}
