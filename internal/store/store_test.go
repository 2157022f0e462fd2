package store

import (
	"testing"

	"github.com/doctutor/doctutor/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestSession(t *testing.T, s *Store) string {
	t.Helper()
	const id = "sess-1"
	if err := s.CreateSession(id, "doc-1"); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	return id
}

func TestMessageLogOrdering(t *testing.T) {
	s := newTestStore(t)
	id := newTestSession(t, s)

	turns := []struct {
		role    model.Role
		content string
	}{
		{model.RoleUser, "A1"},
		{model.RoleAssistant, "R1"},
		{model.RoleUser, "A2"},
		{model.RoleAssistant, "R2"},
	}
	for _, turn := range turns {
		if _, err := s.AppendMessage(id, turn.role, turn.content); err != nil {
			t.Fatalf("AppendMessage: %v", err)
		}
	}

	msgs, err := s.Messages(id)
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(msgs) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(msgs))
	}
	for i, m := range msgs {
		if m.Role != turns[i].role || m.Content != turns[i].content {
			t.Errorf("message %d = %q/%q, want %q/%q", i, m.Role, m.Content, turns[i].role, turns[i].content)
		}
		if i > 0 && msgs[i].Seq <= msgs[i-1].Seq {
			t.Errorf("sequence index not strictly increasing: %d then %d", msgs[i-1].Seq, msgs[i].Seq)
		}
	}
}

func TestResultsOrderAndUniqueness(t *testing.T) {
	s := newTestStore(t)
	id := newTestSession(t, s)

	// Insert out of index order; reads come back in question order.
	for _, idx := range []int{1, 0, 2} {
		err := s.AddResult(id, model.QuizResult{
			QuestionIndex: idx,
			UserAnswer:    "B",
			Evaluation:    model.Evaluation{IsCorrect: idx == 0, Explanation: "because"},
		})
		if err != nil {
			t.Fatalf("AddResult(%d): %v", idx, err)
		}
	}

	results, err := s.Results(id)
	if err != nil {
		t.Fatalf("Results: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, r := range results {
		if r.QuestionIndex != i {
			t.Errorf("result %d has index %d", i, r.QuestionIndex)
		}
	}
	if !results[0].Evaluation.IsCorrect || results[1].Evaluation.IsCorrect {
		t.Error("verdicts not preserved")
	}

	// Exactly one result per question.
	err = s.AddResult(id, model.QuizResult{QuestionIndex: 1, UserAnswer: "C"})
	if err == nil {
		t.Error("expected duplicate question index to be rejected")
	}
}

func TestExplanationsOrder(t *testing.T) {
	s := newTestStore(t)
	id := newTestSession(t, s)

	for _, section := range []string{"first", "second", "third"} {
		if err := s.AddExplanation(id, model.Explanation{Section: section, Explanation: "text"}); err != nil {
			t.Fatalf("AddExplanation: %v", err)
		}
	}

	exs, err := s.Explanations(id)
	if err != nil {
		t.Fatalf("Explanations: %v", err)
	}
	if len(exs) != 3 {
		t.Fatalf("expected 3 explanations, got %d", len(exs))
	}
	if exs[0].Section != "first" || exs[2].Section != "third" {
		t.Errorf("generation order not preserved: %v", exs)
	}
}

func TestSetMode(t *testing.T) {
	s := newTestStore(t)
	id := newTestSession(t, s)

	if err := s.SetMode(id, model.ModeQuiz); err != nil {
		t.Fatalf("SetMode: %v", err)
	}
}

func TestResetDiscardsEverything(t *testing.T) {
	s := newTestStore(t)
	id := newTestSession(t, s)

	if _, err := s.AppendMessage(id, model.RoleUser, "hello"); err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}
	if err := s.AddResult(id, model.QuizResult{QuestionIndex: 0, UserAnswer: "A"}); err != nil {
		t.Fatalf("AddResult: %v", err)
	}
	if err := s.AddExplanation(id, model.Explanation{Section: "s", Explanation: "e"}); err != nil {
		t.Fatalf("AddExplanation: %v", err)
	}

	if err := s.Reset(id); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	msgs, err := s.Messages(id)
	if err != nil {
		t.Fatalf("Messages after reset: %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("expected empty message log after reset, got %d", len(msgs))
	}
	results, _ := s.Results(id)
	if len(results) != 0 {
		t.Errorf("expected no results after reset, got %d", len(results))
	}
	exs, _ := s.Explanations(id)
	if len(exs) != 0 {
		t.Errorf("expected no explanations after reset, got %d", len(exs))
	}

	// A fresh session under the same store starts a clean log.
	if err := s.CreateSession("sess-2", "doc-2"); err != nil {
		t.Fatalf("CreateSession after reset: %v", err)
	}
	m, err := s.AppendMessage("sess-2", model.RoleUser, "again")
	if err != nil {
		t.Fatalf("AppendMessage after reset: %v", err)
	}
	if m.Seq == 0 {
		t.Error("expected non-zero sequence index")
	}
}
