package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrCompile is the root of every authored-graph validation failure.
	ErrCompile = errors.New("invalid dialogue graph")

	// ErrMissingRoot is returned when the root step id is not among the steps.
	ErrMissingRoot = errors.New("root step not found")

	// ErrDanglingReference is returned when an option points to an unknown step.
	ErrDanglingReference = errors.New("option references unknown step")

	// ErrDuplicateEvent is returned when two options of one step share an event id.
	ErrDuplicateEvent = errors.New("duplicate event id on step")

	// ErrDuplicateStep is returned when two steps share an id.
	ErrDuplicateStep = errors.New("duplicate step id")

	// ErrEmptyStepID is returned for steps without an id.
	ErrEmptyStepID = errors.New("step missing id")

	// ErrEmptyEventID is returned for options without an event id.
	ErrEmptyEventID = errors.New("option missing event id")

	// ErrReservedEvent is returned when an option uses the replay pseudo-event.
	ErrReservedEvent = errors.New("event id is reserved")

	// ErrInvalidDelta is returned for unknown categories or deltas outside {0,1}.
	ErrInvalidDelta = errors.New("invalid score delta")
)

var (
	// ErrRateLimited is returned when the generation window is full.
	ErrRateLimited = errors.New("generation rate limit exceeded")

	// ErrGenerationFailed wraps network and provider failures.
	ErrGenerationFailed = errors.New("generation failed")

	// ErrParseFailure marks a malformed model payload. It never reaches callers
	// of the orchestrator; a fallback turn is substituted instead.
	ErrParseFailure = errors.New("malformed model payload")

	// ErrInvalidOperation is returned for caller misuse.
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrOperationInProgress is returned when an operation overlaps another one
	// on the same orchestrator. It matches ErrInvalidOperation with errors.Is.
	ErrOperationInProgress = fmt.Errorf("%w: operation already in progress", ErrInvalidOperation)

	// ErrDialogueEnded is returned for operations issued after completion.
	ErrDialogueEnded = fmt.Errorf("%w: dialogue already completed", ErrInvalidOperation)

	// ErrResultNotFound is returned when a result id cannot be found in the store.
	ErrResultNotFound = errors.New("result not found")
)

// CompileError identifies the offending step/option of an invalid graph.
type CompileError struct {
	StepID  string
	EventID string
	Target  string
	Err     error
}

func (e *CompileError) Error() string {
	var b strings.Builder
	b.WriteString("compile: ")
	if e.StepID != "" {
		fmt.Fprintf(&b, "step %q", e.StepID)
	}
	if e.EventID != "" {
		fmt.Fprintf(&b, " option %q", e.EventID)
	}
	if e.Target != "" {
		fmt.Fprintf(&b, " -> %q", e.Target)
	}
	if b.Len() > len("compile: ") {
		b.WriteString(": ")
	}
	b.WriteString(e.Err.Error())
	return b.String()
}

func (e *CompileError) Unwrap() []error {
	return []error{ErrCompile, e.Err}
}

// CompileErrors aggregates every failure found in one compilation.
type CompileErrors struct {
	Errors []*CompileError
}

func (e *CompileErrors) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msg := fmt.Sprintf("%d compile errors:\n", len(e.Errors))
	for i, err := range e.Errors {
		msg += fmt.Sprintf("  %d. %s\n", i+1, err.Error())
	}
	return msg
}

func (e *CompileErrors) Unwrap() []error {
	errs := make([]error, 0, len(e.Errors))
	for _, err := range e.Errors {
		errs = append(errs, err)
	}
	return errs
}

// RateLimitError reports how long until the oldest request leaves the window.
type RateLimitError struct {
	Limit      int
	Window     time.Duration
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: %d requests per %s, retry after %s", ErrRateLimited, e.Limit, e.Window, e.RetryAfter)
}

func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}

// GenerationError wraps a provider failure with the model that produced it.
type GenerationError struct {
	Model string
	Err   error
}

func (e *GenerationError) Error() string {
	if e.Model == "" {
		return fmt.Sprintf("%s: %v", ErrGenerationFailed, e.Err)
	}
	return fmt.Sprintf("%s (model %s): %v", ErrGenerationFailed, e.Model, e.Err)
}

func (e *GenerationError) Unwrap() []error {
	return []error{ErrGenerationFailed, e.Err}
}
