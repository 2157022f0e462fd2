// Package evaluation aggregates per-question results into a session score
// and guards the backend-supplied analysis.
package evaluation

import (
	"errors"
	"math"
	"strings"

	"github.com/doctutor/doctutor/internal/model"
)

// ErrEmptyResults is returned when the aggregator is invoked with zero
// quiz results. It is fatal to that computation; a score is never produced
// from an empty sequence.
var ErrEmptyResults = errors.New("no quiz results to aggregate")

// Summarize computes the correct count and the percentage score
// (round-half-up) from a complete result sequence.
func Summarize(results []model.QuizResult) (model.Summary, error) {
	if len(results) == 0 {
		return model.Summary{}, ErrEmptyResults
	}

	correct := 0
	for _, r := range results {
		if r.Evaluation.IsCorrect {
			correct++
		}
	}

	score := int(math.Floor(100*float64(correct)/float64(len(results)) + 0.5))

	return model.Summary{
		TotalQuestions: len(results),
		CorrectCount:   correct,
		Score:          score,
	}, nil
}

// CheckAnalysis validates the shape of a backend-supplied analysis before it
// is stored verbatim: the summary must be non-blank text and the area lists
// must not contain blank entries (empty lists are fine).
func CheckAnalysis(a model.Analysis) error {
	if strings.TrimSpace(a.OverallSummary) == "" {
		return errors.New("analysis has no overall summary")
	}
	for _, area := range a.WeakAreas {
		if strings.TrimSpace(area) == "" {
			return errors.New("analysis contains a blank weak area")
		}
	}
	for _, area := range a.StrongAreas {
		if strings.TrimSpace(area) == "" {
			return errors.New("analysis contains a blank strong area")
		}
	}
	return nil
}
