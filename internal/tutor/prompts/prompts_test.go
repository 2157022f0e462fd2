package prompts

import (
	"strings"
	"testing"
)

func TestBuildGenerateMCQ(t *testing.T) {
	prompt, err := BuildGenerate(GenerateData{
		DocumentExcerpt: "Water boils at 100C at sea level.",
		NumQuestions:    5,
		QuizType:        "mcq",
		Difficulty:      "medium",
	})
	if err != nil {
		t.Fatalf("BuildGenerate: %v", err)
	}
	for _, want := range []string{
		"Water boils at 100C",
		"exactly 5 medium questions",
		`"mcq"`,
		"correct_answer",
		"four options",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestBuildGenerateTheoretical(t *testing.T) {
	prompt, err := BuildGenerate(GenerateData{
		DocumentExcerpt: "doc",
		NumQuestions:    3,
		QuizType:        "theoretical",
		Difficulty:      "hard",
	})
	if err != nil {
		t.Fatalf("BuildGenerate: %v", err)
	}
	if strings.Contains(prompt, "correct_answer") {
		t.Error("theoretical prompt should not request options or a correct answer")
	}
	if !strings.Contains(prompt, "answerable in a few sentences") {
		t.Errorf("theoretical branch missing:\n%s", prompt)
	}
}

func TestBuildEvaluateMCQ(t *testing.T) {
	prompt, err := BuildEvaluateMCQ(EvaluateData{
		DocumentExcerpt: "doc",
		Question:        "What temperature does water boil at?",
		Options:         "A: 90C\nB: 100C",
		CorrectAnswer:   "B",
		UserAnswer:      "A",
	})
	if err != nil {
		t.Fatalf("BuildEvaluateMCQ: %v", err)
	}
	for _, want := range []string{
		"What temperature does water boil at?",
		"CORRECT ANSWER: B",
		"STUDENT ANSWER: A",
		`"explanation"`,
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	// Grading is local for MCQ; the LLM only explains.
	if strings.Contains(prompt, "is_correct") {
		t.Error("MCQ prompt should not ask the LLM to judge correctness")
	}
}

func TestBuildEvaluateTheory(t *testing.T) {
	prompt, err := BuildEvaluateTheory(EvaluateData{
		DocumentExcerpt: "doc",
		Question:        "Explain osmosis.",
		UserAnswer:      "Water moves across a membrane.",
	})
	if err != nil {
		t.Fatalf("BuildEvaluateTheory: %v", err)
	}
	for _, want := range []string{"Explain osmosis.", "is_correct", "explanation"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestBuildAnalysis(t *testing.T) {
	prompt, err := BuildAnalysis(AnalysisData{
		ResultLines: "Q1: correct\nQ2: incorrect",
	})
	if err != nil {
		t.Fatalf("BuildAnalysis: %v", err)
	}
	for _, want := range []string{"Q2: incorrect", "overall_summary", "weak_areas", "strong_areas"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestBuildChat(t *testing.T) {
	prompt, err := BuildChat(ChatData{DocumentExcerpt: "The mitochondrion is the powerhouse."})
	if err != nil {
		t.Fatalf("BuildChat: %v", err)
	}
	if !strings.Contains(prompt, "The mitochondrion is the powerhouse.") {
		t.Errorf("prompt missing the document excerpt:\n%s", prompt)
	}
}
