package errors

import (
	"errors"
	"fmt"
	"time"
)

// Kind identifies which class of pipeline failure occurred. Only
// KindNoResourcesFound is fatal to a job; every other kind is converted
// to a stage default by its originating stage.
type Kind string

const (
	// KindDiscoveryTimeout means a discovery strategy exceeded its timeout.
	KindDiscoveryTimeout Kind = "discovery_timeout"
	// KindDiscoveryError means a discovery strategy failed outright.
	KindDiscoveryError Kind = "discovery_error"
	// KindNoResourcesFound means the merged discovery result was empty.
	KindNoResourcesFound Kind = "no_resources_found"
	// KindGenerationFailure means the external IaC tool failed or timed out.
	KindGenerationFailure Kind = "generation_failure"
	// KindCheckerError means a per-resource security check could not complete.
	KindCheckerError Kind = "checker_error"
	// KindClassificationError means a finding could not become a gap.
	KindClassificationError Kind = "classification_error"
	// KindInternal covers unexpected failures escaping a stage guard.
	KindInternal Kind = "internal"
)

// PipelineError is a structured error carrying the failure kind and the
// pipeline stage it originated from.
type PipelineError struct {
	Kind      Kind                   `json:"kind"`
	Stage     string                 `json:"stage"`
	Message   string                 `json:"message"`
	Cause     error                  `json:"-"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// New creates a PipelineError of the given kind.
func New(kind Kind, stage, message string) *PipelineError {
	return &PipelineError{
		Kind:      kind,
		Stage:     stage,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// Wrap attaches a cause to a new PipelineError. Returns nil for a nil cause.
func Wrap(err error, kind Kind, stage, message string) *PipelineError {
	if err == nil {
		return nil
	}
	return &PipelineError{
		Kind:      kind,
		Stage:     stage,
		Message:   message,
		Cause:     err,
		Timestamp: time.Now(),
	}
}

// WithDetail attaches contextual detail to the error.
func (e *PipelineError) WithDetail(key string, value interface{}) *PipelineError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

func (e *PipelineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s (caused by: %s)", e.Stage, e.Kind, e.Message, e.Cause.Error())
	}
	return fmt.Sprintf("%s: %s: %s", e.Stage, e.Kind, e.Message)
}

func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// IsFatal reports whether the error must terminate the job.
func (e *PipelineError) IsFatal() bool {
	return e.Kind == KindNoResourcesFound
}

// KindOf returns the pipeline kind of err, or KindInternal when err is
// not a PipelineError.
func KindOf(err error) Kind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindInternal
}

// IsKind reports whether err is a PipelineError of the given kind.
func IsKind(err error, kind Kind) bool {
	var pe *PipelineError
	return errors.As(err, &pe) && pe.Kind == kind
}
