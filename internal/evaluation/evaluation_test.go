package evaluation

import (
	"errors"
	"testing"

	"github.com/doctutor/doctutor/internal/model"
)

func results(verdicts ...bool) []model.QuizResult {
	out := make([]model.QuizResult, len(verdicts))
	for i, correct := range verdicts {
		out[i] = model.QuizResult{
			QuestionIndex: i,
			UserAnswer:    "a",
			Evaluation:    model.Evaluation{IsCorrect: correct},
		}
	}
	return out
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name        string
		results     []model.QuizResult
		wantCorrect int
		wantScore   int
	}{
		{"three of four", results(true, true, true, false), 3, 75},
		{"one of three rounds down", results(true, false, false), 1, 33},
		{"two of three rounds up", results(true, true, false), 2, 67},
		{"half rounds up", results(true, true, true, false, false, false, false, false), 3, 38},
		{"none correct", results(false), 0, 0},
		{"all correct", results(true, true), 2, 100},
		{"one of two", results(true, false), 1, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Summarize(tt.results)
			if err != nil {
				t.Fatalf("Summarize: %v", err)
			}
			if got.CorrectCount != tt.wantCorrect {
				t.Errorf("correct count = %d, want %d", got.CorrectCount, tt.wantCorrect)
			}
			if got.Score != tt.wantScore {
				t.Errorf("score = %d, want %d", got.Score, tt.wantScore)
			}
			if got.TotalQuestions != len(tt.results) {
				t.Errorf("total = %d, want %d", got.TotalQuestions, len(tt.results))
			}
		})
	}
}

func TestSummarizeEmpty(t *testing.T) {
	_, err := Summarize(nil)
	if !errors.Is(err, ErrEmptyResults) {
		t.Fatalf("expected ErrEmptyResults, got %v", err)
	}
}

func TestCheckAnalysis(t *testing.T) {
	tests := []struct {
		name     string
		analysis model.Analysis
		wantErr  bool
	}{
		{"valid", model.Analysis{OverallSummary: "solid grasp", WeakAreas: []string{"recursion"}, StrongAreas: []string{"syntax"}}, false},
		{"empty areas are fine", model.Analysis{OverallSummary: "ok"}, false},
		{"missing summary", model.Analysis{WeakAreas: []string{"recursion"}}, true},
		{"blank summary", model.Analysis{OverallSummary: "   "}, true},
		{"blank weak area", model.Analysis{OverallSummary: "ok", WeakAreas: []string{""}}, true},
		{"blank strong area", model.Analysis{OverallSummary: "ok", StrongAreas: []string{"  "}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckAnalysis(tt.analysis)
			if tt.wantErr && err == nil {
				t.Error("expected error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
