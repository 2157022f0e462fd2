package validate

import (
	"strings"
	"testing"

	"github.com/doctutor/doctutor/internal/model"
)

func validSettings() model.QuizSettings {
	return model.QuizSettings{
		QuizType:     model.QuizTypeMCQ,
		NumQuestions: 5,
		Difficulty:   model.DifficultyEasy,
	}
}

func TestQuizSettingsAcceptsValidRange(t *testing.T) {
	for n := 1; n <= 20; n++ {
		s := validSettings()
		s.NumQuestions = n
		if fe := QuizSettings(s); fe != nil {
			t.Errorf("numQuestions=%d: expected valid, got %v", n, fe)
		}
	}
}

func TestQuizSettingsRejectsOutOfRange(t *testing.T) {
	for _, n := range []int{-5, -1, 0, 21, 100} {
		s := validSettings()
		s.NumQuestions = n
		fe := QuizSettings(s)
		if fe == nil {
			t.Errorf("numQuestions=%d: expected rejection", n)
			continue
		}
		if _, ok := fe["numQuestions"]; !ok {
			t.Errorf("numQuestions=%d: expected field-level error for numQuestions, got %v", n, fe)
		}
	}
}

func TestQuizSettingsFields(t *testing.T) {
	tests := []struct {
		name       string
		settings   model.QuizSettings
		wantFields []string
	}{
		{
			"bad quiz type",
			model.QuizSettings{QuizType: "essay", NumQuestions: 5, Difficulty: model.DifficultyHard},
			[]string{"quizType"},
		},
		{
			"bad difficulty",
			model.QuizSettings{QuizType: model.QuizTypeTheoretical, NumQuestions: 5, Difficulty: "extreme"},
			[]string{"difficulty"},
		},
		{
			"everything wrong at once",
			model.QuizSettings{QuizType: "essay", NumQuestions: 0, Difficulty: "extreme"},
			[]string{"quizType", "numQuestions", "difficulty"},
		},
		{
			"all fields missing",
			model.QuizSettings{},
			[]string{"quizType", "numQuestions", "difficulty"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fe := QuizSettings(tt.settings)
			if fe == nil {
				t.Fatal("expected rejection")
			}
			if len(fe) != len(tt.wantFields) {
				t.Errorf("expected %d field errors, got %d: %v", len(tt.wantFields), len(fe), fe)
			}
			for _, f := range tt.wantFields {
				if _, ok := fe[f]; !ok {
					t.Errorf("expected error for field %q, got %v", f, fe)
				}
			}
		})
	}
}

func TestFieldErrorsError(t *testing.T) {
	fe := FieldErrors{"numQuestions": "out of range", "quizType": "unknown"}
	msg := fe.Error()
	if msg == "" {
		t.Fatal("expected non-empty error string")
	}
	// Both fields should be mentioned.
	for _, f := range []string{"numQuestions", "quizType"} {
		if !strings.Contains(msg, f) {
			t.Errorf("error %q should mention %q", msg, f)
		}
	}
}
