package internal

import "fmt"

// ConfigurationError represents a fatal configuration problem detected
// before any network call (missing credential, unsupported model family).
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s", e.Reason)
}

// UnknownSessionError represents a lookup of a session id that is not
// registered with the manager.
type UnknownSessionError struct {
	ID string
}

func (e *UnknownSessionError) Error() string {
	return fmt.Sprintf("no session with id %q exists", e.ID)
}

// NoDefaultSessionError represents a lookup without an id when the manager
// has no default session.
type NoDefaultSessionError struct{}

func (e *NoDefaultSessionError) Error() string {
	return "no default session exists"
}

// MissingToolDescriptionError represents a tool offered for selection
// without a description. Checked before any request is made.
type MissingToolDescriptionError struct {
	Tool string
}

func (e *MissingToolDescriptionError) Error() string {
	return fmt.Sprintf("tool %q does not have a description", e.Tool)
}

// TooManyToolsError represents a call with more tools than the single-digit
// selection protocol can address.
type TooManyToolsError struct {
	Count int
}

func (e *TooManyToolsError) Error() string {
	return fmt.Sprintf("got %d tools, the maximum is %d", e.Count, MaxTools)
}

// ToolConflictError represents a call combining tools with an input or
// output schema. The two request shapes are mutually exclusive.
type ToolConflictError struct{}

func (e *ToolConflictError) Error() string {
	return "tools cannot be combined with an input or output schema"
}

// MissingCompletionError represents a provider response that lacks the
// expected completion fields. Raw carries the unparsed payload for
// diagnosis.
type MissingCompletionError struct {
	Raw []byte
}

func (e *MissingCompletionError) Error() string {
	return fmt.Sprintf("no completion in provider response: %s", e.Raw)
}

// PersistError represents a failure saving or loading a session dump.
type PersistError struct {
	Format string
	Path   string
	Err    error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist error [%s] %s: %v", e.Format, e.Path, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}
