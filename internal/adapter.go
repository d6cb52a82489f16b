package internal

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// MaxTools is the largest number of tools one call can offer for selection.
// The selection protocol addresses tools with a single digit, 1-9, with 0
// reserved for "no tool".
const MaxTools = 9

// GenOptions carries the per-call overrides for a generation.
type GenOptions struct {
	// System replaces the session's default system prompt for this call.
	System string

	// SaveMessages, when non-nil, overrides the session's persistence
	// default for the resulting turn pair.
	SaveMessages *bool

	// Params replaces the session's generation parameters wholesale for
	// this call. Nil means the session's own parameters apply.
	Params map[string]any

	// InputSchema declares that the prompt is structured input: the user
	// message is sent with the function role, named after the schema.
	// The prompt must already be the serialized form of the schema.
	InputSchema *Schema

	// OutputSchema instructs the provider to return a structured result
	// for this schema instead of free text.
	OutputSchema *Schema

	// FunctionCallOptional leaves it to the provider whether to invoke
	// the output schema. By default the invocation is forced.
	FunctionCallOptional bool
}

// GenResult is the outcome of one blocking generation. Exactly one of
// Content and Structured is set: Structured carries the raw schema payload
// when an output schema was requested.
type GenResult struct {
	Content    string
	Structured json.RawMessage
}

// StreamEvent is one incremental fragment of a streamed response. Response
// is the concatenation of every delta emitted so far. A terminal event may
// carry Err when the stream broke mid-flight.
type StreamEvent struct {
	Delta    string
	Response string
	Err      error
}

// Adapter translates sessions and prompts into provider requests and parses
// provider responses back into messages. One adapter serves one provider
// family; adding a provider means adding an implementation here, not
// branching on model names elsewhere.
type Adapter interface {
	// Gen performs one blocking completion round trip and commits the
	// resulting turn to the session per its save decision.
	Gen(ctx context.Context, sess *Session, prompt string, opts GenOptions) (*GenResult, error)

	// Stream opens a streaming completion and emits delta events in
	// arrival order. After the stream ends cleanly the accumulated
	// assistant message is committed to the session.
	Stream(ctx context.Context, sess *Session, prompt string, opts GenOptions) (<-chan StreamEvent, error)

	// GenWithTools routes the turn through the tool-selection protocol
	// before generating. The returned map holds "response" and "tool",
	// plus "context" and any extra keys the selected tool produced.
	GenWithTools(ctx context.Context, sess *Session, prompt string, tools []Tool, opts GenOptions) (map[string]any, error)
}

// adapterFamily describes one supported provider family: how to recognize
// its models and how to construct its adapter.
type adapterFamily struct {
	name          string
	matches       func(model string) bool
	defaultURL    string
	credentialEnv string
	construct     func(client *http.Client) Adapter
}

var adapterFamilies = []adapterFamily{
	{
		name:          "openai",
		matches:       func(model string) bool { return strings.Contains(model, "gpt-") },
		defaultURL:    openAIDefaultURL,
		credentialEnv: "OPENAI_API_KEY",
		construct:     func(client *http.Client) Adapter { return NewOpenAIAdapter(client) },
	},
}

// familyForModel resolves the provider family serving the given model.
func familyForModel(model string) (*adapterFamily, error) {
	for i := range adapterFamilies {
		if adapterFamilies[i].matches(model) {
			return &adapterFamilies[i], nil
		}
	}
	return nil, &ConfigurationError{Reason: "unsupported model: " + model}
}
