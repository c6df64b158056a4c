package engine

import (
	"errors"
	"fmt"
)

// Control signals returned by setters called while a render is in flight.
//
// They are not failures: the render attempt that owns them catches them and
// either retries (interrupt) or abandons itself (cancel). Components may
// return them as-is to stop rendering early; Resolve never surfaces them.
var (
	// ErrInterrupted reports that the rendering layer mutated its own store.
	ErrInterrupted = errors.New("engine: render interrupted by own store update")

	// ErrCancelled reports that an ancestor's data changed under the rendering
	// layer; the ancestor's re-render will regenerate it.
	ErrCancelled = errors.New("engine: render cancelled by ancestor update")
)

// IsSignal reports whether err is one of the control signals.
func IsSignal(err error) bool {
	return errors.Is(err, ErrInterrupted) || errors.Is(err, ErrCancelled)
}

// MisuseError is raised (as a panic) when the runtime is driven incorrectly,
// e.g. store access with no layer resolving. It is a programmer error and is
// not meant to be recovered.
type MisuseError struct {
	Op     string
	Reason string
}

func (e *MisuseError) Error() string {
	return fmt.Sprintf("engine: %s: %s", e.Op, e.Reason)
}

func misuse(op, reason string) *MisuseError {
	return &MisuseError{Op: op, Reason: reason}
}

// RuntimeError represents a failure detected by the engine itself, as opposed
// to an error returned by a component.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// LayerID identifies the affected layer.
	LayerID string

	// Component names the affected layer's component.
	Component string

	// Details contains additional context.
	Details map[string]string
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeAttemptLimit indicates a resolve kept re-rendering past its quota,
	// typically a component that updates its own store on every render.
	ErrCodeAttemptLimit RuntimeErrorCode = "ATTEMPT_LIMIT"

	// ErrCodeRuntimeStopped indicates the runtime loop was stopped while a
	// caller was waiting on it.
	ErrCodeRuntimeStopped RuntimeErrorCode = "RUNTIME_STOPPED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.LayerID != "" && e.Component != "" {
		return fmt.Sprintf("%s: %s (layer=%s, component=%s)", e.Code, e.Message, e.LayerID, e.Component)
	}
	if e.LayerID != "" {
		return fmt.Sprintf("%s: %s (layer=%s)", e.Code, e.Message, e.LayerID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsAttemptLimitError reports whether err is an attempt quota failure.
// Uses errors.As to handle wrapped errors.
func IsAttemptLimitError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeAttemptLimit
	}
	return false
}

// NewAttemptLimitError creates a RuntimeError for an exhausted attempt quota.
func NewAttemptLimitError(layerID, component string, attempts, maxAttempts int) *RuntimeError {
	return &RuntimeError{
		Code:      ErrCodeAttemptLimit,
		Message:   fmt.Sprintf("render exceeded max attempts (%d > %d)", attempts, maxAttempts),
		LayerID:   layerID,
		Component: component,
		Details: map[string]string{
			"attempts":     fmt.Sprintf("%d", attempts),
			"max_attempts": fmt.Sprintf("%d", maxAttempts),
		},
	}
}

// ErrStopped is returned by Await and Run once the runtime has been stopped.
var ErrStopped = &RuntimeError{Code: ErrCodeRuntimeStopped, Message: "runtime stopped"}
