package autotune

import (
	"errors"
	"fmt"
)

//////
// Const, vars, types.
//////

// ErrBudgetExhausted signals that a session stopped because its trial or
// cost budget ran out while the strategy still had candidates to propose.
// The report returned alongside it is complete and usable; the sentinel only
// tells the caller why no further trials ran.
var ErrBudgetExhausted = errors.New("budget exhausted")

// ConfigError reports an invalid search space schema, an invalid candidate
// configuration, or invalid session settings. It is always raised before any
// evaluation work starts, never in the middle of a run.
type ConfigError struct {
	// Field is the parameter name or setting the error refers to, when known.
	Field string

	// Message describes what is wrong.
	Message string

	// Cause is the underlying error, if any.
	Cause error
}

// EvaluationError wraps a failure returned by an evaluator for a single
// trial. The harness records it on the trial and moves on; a lone evaluation
// failure never stops the session.
type EvaluationError struct {
	// Config is the candidate configuration whose evaluation failed.
	Config Config

	// Cause is the error returned by the evaluator.
	Cause error
}

// AbortedError signals that a session stopped early because too many recent
// trials failed in a row, which usually means the evaluator itself is broken
// rather than the candidates being bad.
type AbortedError struct {
	// Window is the number of most recent trials inspected.
	Window int

	// Failures is how many trials within the window failed.
	Failures int
}

//////
// Methods.
//////

// Error implements the error interface.
func (e *ConfigError) Error() string {
	msg := "invalid configuration"

	if e.Field != "" {
		msg = fmt.Sprintf("%s: parameter %q", msg, e.Field)
	}

	msg = fmt.Sprintf("%s: %s", msg, e.Message)

	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}

	return msg
}

// Unwrap returns the underlying cause, enabling errors.Is and errors.As.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// Error implements the error interface.
func (e *EvaluationError) Error() string {
	return fmt.Sprintf("trial evaluation failed: %v", e.Cause)
}

// Unwrap returns the underlying cause, enabling errors.Is and errors.As.
func (e *EvaluationError) Unwrap() error {
	return e.Cause
}

// Error implements the error interface.
func (e *AbortedError) Error() string {
	return fmt.Sprintf(
		"tuning aborted: %d of the last %d trials failed",
		e.Failures, e.Window,
	)
}

//////
// Factory.
//////

// NewConfigError creates a new ConfigError. field may be empty when the
// error is not tied to a single parameter; cause may be nil.
func NewConfigError(field, message string, cause error) *ConfigError {
	return &ConfigError{
		Field:   field,
		Message: message,
		Cause:   cause,
	}
}

// NewEvaluationError creates a new EvaluationError for the given candidate
// configuration.
func NewEvaluationError(config Config, cause error) *EvaluationError {
	return &EvaluationError{
		Config: config,
		Cause:  cause,
	}
}

// NewAbortedError creates a new AbortedError.
func NewAbortedError(window, failures int) *AbortedError {
	return &AbortedError{
		Window:   window,
		Failures: failures,
	}
}

//////
// Helper functions.
//////

// IsConfigError checks if the given error is, or wraps, a ConfigError.
func IsConfigError(err error) bool {
	var target *ConfigError

	return errors.As(err, &target)
}

// IsEvaluationError checks if the given error is, or wraps, an
// EvaluationError.
func IsEvaluationError(err error) bool {
	var target *EvaluationError

	return errors.As(err, &target)
}

// IsAborted checks if the given error is, or wraps, an AbortedError.
func IsAborted(err error) bool {
	var target *AbortedError

	return errors.As(err, &target)
}

// IsBudgetExhausted checks if the given error is, or wraps,
// ErrBudgetExhausted.
func IsBudgetExhausted(err error) bool {
	return errors.Is(err, ErrBudgetExhausted)
}
