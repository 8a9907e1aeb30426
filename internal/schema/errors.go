package schema

import "fmt"

// ValidationError reports bad input shape or size. Its message is safe to
// return to the caller verbatim.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// NewValidationError builds a ValidationError with a formatted message.
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// AuthenticationError reports missing or invalid credentials for a backing
// provider. User-facing text stays generic ("please connect your calendar").
type AuthenticationError struct {
	Provider string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("provider %s is not authenticated", e.Provider)
}

// ToolExecutionError reports a tool failure. It is caught at the tool
// boundary and surfaced as a failed ToolInvocationResult; the conversation
// continues.
type ToolExecutionError struct {
	Tool string
	Err  error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool %s: %v", e.Tool, e.Err)
}

func (e *ToolExecutionError) Unwrap() error { return e.Err }

// LLMUnavailableError reports that the completion backend failed or timed
// out. The orchestrator answers with a persona-consistent apology and marks
// health degraded.
type LLMUnavailableError struct {
	Err error
}

func (e *LLMUnavailableError) Error() string {
	return fmt.Sprintf("llm unavailable: %v", e.Err)
}

func (e *LLMUnavailableError) Unwrap() error { return e.Err }
