// Package prompts holds the prompt templates for the LLM-backed tutor.
package prompts

import (
	"bytes"
	"embed"
	"fmt"
	"sync"
	"text/template"
)

//go:embed *.txt
var promptFS embed.FS

var (
	loadOnce  sync.Once
	loadErr   error
	templates map[string]*template.Template
)

const (
	tmplGenerate       = "generate.txt"
	tmplEvaluateMCQ    = "evaluate_mcq.txt"
	tmplEvaluateTheory = "evaluate_theory.txt"
	tmplAnalysis       = "analysis.txt"
	tmplChat           = "chat.txt"
)

func load() error {
	loadOnce.Do(func() {
		templates = make(map[string]*template.Template)
		names := []string{tmplGenerate, tmplEvaluateMCQ, tmplEvaluateTheory, tmplAnalysis, tmplChat}
		for _, name := range names {
			content, err := promptFS.ReadFile(name)
			if err != nil {
				loadErr = fmt.Errorf("read prompt file %s: %w", name, err)
				return
			}
			tmpl, err := template.New(name).Parse(string(content))
			if err != nil {
				loadErr = fmt.Errorf("parse prompt template %s: %w", name, err)
				return
			}
			templates[name] = tmpl
		}
	})
	return loadErr
}

func build(name string, data any) (string, error) {
	if err := load(); err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := templates[name].Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute prompt template %s: %w", name, err)
	}
	return buf.String(), nil
}

// GenerateData holds template data for the quiz generation prompt.
type GenerateData struct {
	DocumentExcerpt string
	NumQuestions    int
	QuizType        string
	Difficulty      string
}

// BuildGenerate builds the quiz generation system prompt.
func BuildGenerate(data GenerateData) (string, error) {
	return build(tmplGenerate, data)
}

// EvaluateData holds template data for the answer evaluation prompts.
type EvaluateData struct {
	DocumentExcerpt string
	Question        string
	Options         string
	CorrectAnswer   string
	UserAnswer      string
}

// BuildEvaluateMCQ builds the explanation prompt for a graded MCQ answer.
func BuildEvaluateMCQ(data EvaluateData) (string, error) {
	return build(tmplEvaluateMCQ, data)
}

// BuildEvaluateTheory builds the grading prompt for a theoretical answer.
func BuildEvaluateTheory(data EvaluateData) (string, error) {
	return build(tmplEvaluateTheory, data)
}

// AnalysisData holds template data for the final analysis prompt.
type AnalysisData struct {
	ResultLines string
}

// BuildAnalysis builds the weak/strong-area analysis prompt.
func BuildAnalysis(data AnalysisData) (string, error) {
	return build(tmplAnalysis, data)
}

// ChatData holds template data for the learning chat system prompt.
type ChatData struct {
	DocumentExcerpt string
}

// BuildChat builds the learning chat system prompt.
func BuildChat(data ChatData) (string, error) {
	return build(tmplChat, data)
}
