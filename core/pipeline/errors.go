package pipeline

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure. The HTTP layer maps each kind to one
// status code; nothing inside the pipeline is silently swallowed.
type Kind string

const (
	KindValidation     Kind = "ValidationError"
	KindNotFound       Kind = "NotFoundError"
	KindMalformedInput Kind = "MalformedInputError"
	KindTranscode      Kind = "TranscodeError"
	KindFilterGraph    Kind = "FilterGraphError"
	KindRange          Kind = "RangeError"
	KindTimeout        Kind = "TimeoutError"
	KindAssetWrite     Kind = "AssetWriteError"
	KindIO             Kind = "IOError"
)

// Error is a classified pipeline failure. Stage names the pipeline stage that
// was active; for filter-graph failures Message carries the stage/option
// description of the submitted graph.
type Error struct {
	Kind    Kind
	Stage   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Stage != "" {
		return fmt.Sprintf("%s at %s: %s", e.Kind, e.Stage, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Public returns the error rendered without the underlying cause. Underlying
// errors can carry staging-directory paths; those stay in the logs and never
// reach a response body.
func (e *Error) Public() string {
	if e.Message != "" {
		if e.Stage != "" {
			return fmt.Sprintf("%s at %s: %s", e.Kind, e.Stage, e.Message)
		}
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	if e.Stage != "" {
		return fmt.Sprintf("%s at %s", e.Kind, e.Stage)
	}
	return string(e.Kind)
}

// NewError creates a classified pipeline error.
func NewError(kind Kind, stage, message string) *Error {
	return &Error{Kind: kind, Stage: stage, Message: message}
}

// errf builds a classified error with a formatted message.
func errf(kind Kind, stage, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Stage: stage, Message: fmt.Sprintf(format, args...)}
}

// wrap classifies an underlying error.
func wrap(kind Kind, stage string, err error) *Error {
	return &Error{Kind: kind, Stage: stage, Err: err}
}

// KindOf extracts the failure kind from an error chain. Unclassified errors
// report KindIO.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindIO
}
