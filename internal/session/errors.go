package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/doctutor/doctutor/internal/i18n"
	"github.com/doctutor/doctutor/internal/model"
	"github.com/doctutor/doctutor/internal/tutor"
)

// ServiceOp identifies which Tutoring Service call failed.
type ServiceOp string

const (
	OpUpload   ServiceOp = "upload"
	OpGenerate ServiceOp = "generate"
	OpEvaluate ServiceOp = "evaluate"
	OpAnalyze  ServiceOp = "analyze"
	OpChat     ServiceOp = "chat"
	OpStory    ServiceOp = "story"
)

var (
	// ErrBusy rejects input while a prior request is still in flight.
	ErrBusy = errors.New("a request is already in flight")

	// ErrEmptyInput rejects input that is empty after trimming.
	ErrEmptyInput = errors.New("input is empty")

	// ErrSuperseded marks a response that arrived after the session it
	// belonged to was reset. The response is discarded, never applied.
	ErrSuperseded = errors.New("session was reset while the request was in flight")
)

// StateError reports an operation invoked from a stage it is not valid in.
type StateError struct {
	Op    string
	Stage model.Stage
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s is not valid in stage %s", e.Op, e.Stage)
}

// ServiceError reports a Tutoring Service rejection or unreachability.
// Message carries the service-provided text verbatim; it is empty when the
// service was unreachable and a generic fallback applies.
type ServiceError struct {
	Op      ServiceOp
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s failed: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

var fallbackIDs = map[ServiceOp]string{
	OpUpload:   "ErrUploadFailed",
	OpGenerate: "ErrGenerationFailed",
	OpEvaluate: "ErrEvaluationFailed",
	OpAnalyze:  "ErrAnalysisFailed",
	OpChat:     "ErrChatFailed",
	OpStory:    "ErrStoryFailed",
}

// UserMessage returns the text to surface: the service's message verbatim,
// or the localized generic fallback when the service was unreachable.
func (e *ServiceError) UserMessage(ctx context.Context) string {
	if e.Message != "" {
		return e.Message
	}
	return i18n.T(ctx, fallbackIDs[e.Op])
}

// wrapService classifies a failed service call. An *tutor.APIError means the
// service rejected the request with a message of its own.
func wrapService(op ServiceOp, err error) *ServiceError {
	var apiErr *tutor.APIError
	if errors.As(err, &apiErr) {
		return &ServiceError{Op: op, Message: apiErr.Message, Err: err}
	}
	return &ServiceError{Op: op, Err: err}
}
