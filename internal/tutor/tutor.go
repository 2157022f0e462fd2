// Package tutor defines the Tutoring Service consumed by the session
// controller, with two implementations: a remote HTTP client and an
// in-process client backed by an OpenAI-compatible LLM endpoint.
package tutor

import (
	"context"
	"fmt"
	"io"

	"github.com/doctutor/doctutor/internal/model"
)

// Service is the external collaborator performing document understanding,
// quiz generation, and grading. Every method is a suspension point for the
// session controller.
type Service interface {
	// UploadDocument ingests a document and returns its document ID.
	UploadDocument(ctx context.Context, filename string, content io.Reader) (string, error)

	// GenerateQuiz returns an ordered question sequence for the document.
	// The service may return fewer questions than requested.
	GenerateQuiz(ctx context.Context, documentID string, settings model.QuizSettings) ([]model.QuizQuestion, error)

	// EvaluateAnswer grades the user's answer to one question.
	EvaluateAnswer(ctx context.Context, documentID string, questionIndex int, answer string) (model.Evaluation, error)

	// AnalyzeResults produces the weak/strong-area analysis for a complete
	// result sequence.
	AnalyzeResults(ctx context.Context, documentID string, results []model.QuizResult) (model.Analysis, error)

	// LearningReply returns the assistant's reply to a free-form message
	// grounded in the document.
	LearningReply(ctx context.Context, documentID, message string) (string, error)
}

// APIError is a rejection from the Tutoring Service carrying the
// service-provided message verbatim.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("tutoring service: %s (status %d)", e.Message, e.StatusCode)
}
