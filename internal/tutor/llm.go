package tutor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"

	"github.com/doctutor/doctutor/internal/model"
	"github.com/doctutor/doctutor/internal/tutor/prompts"
)

// maxExcerpt caps how much document text is sent to the LLM per request.
const maxExcerpt = 24_000

// LLM implements Service against an OpenAI-compatible API, keeping the
// uploaded document text and generated questions in memory so that answer
// evaluation and learning chat stay grounded in the same document.
type LLM struct {
	api       *openai.Client
	modelName string

	mu   sync.Mutex
	docs map[string]*docState
}

type docState struct {
	text      string
	questions []model.QuizQuestion
	quizType  model.QuizType
	chat      []openai.ChatCompletionMessage
}

// NewLLM creates an LLM tutor. An empty baseURL uses the OpenAI default.
func NewLLM(baseURL, apiKey, modelName string) *LLM {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &LLM{
		api:       openai.NewClientWithConfig(config),
		modelName: modelName,
		docs:      make(map[string]*docState),
	}
}

// Ping verifies the LLM endpoint is reachable.
func (l *LLM) Ping(ctx context.Context) error {
	_, err := l.api.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("LLM endpoint unreachable: %w", err)
	}
	return nil
}

func (l *LLM) UploadDocument(ctx context.Context, filename string, content io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(content, 8<<20))
	if err != nil {
		return "", fmt.Errorf("read document: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", &APIError{StatusCode: 422, Message: "document contains no extractable text"}
	}

	id := uuid.NewString()
	l.mu.Lock()
	l.docs[id] = &docState{text: text}
	l.mu.Unlock()

	slog.Debug("document ingested", "document_id", id, "filename", filename, "bytes", len(data))
	return id, nil
}

func (l *LLM) GenerateQuiz(ctx context.Context, documentID string, settings model.QuizSettings) ([]model.QuizQuestion, error) {
	doc, err := l.doc(documentID)
	if err != nil {
		return nil, err
	}

	prompt, err := prompts.BuildGenerate(prompts.GenerateData{
		DocumentExcerpt: excerpt(doc.text),
		NumQuestions:    settings.NumQuestions,
		QuizType:        string(settings.QuizType),
		Difficulty:      string(settings.Difficulty),
	})
	if err != nil {
		return nil, err
	}

	var out struct {
		Questions []model.QuizQuestion `json:"questions"`
	}
	if err := l.completeJSON(ctx, prompt, "Generate the quiz now.", 0.7, &out); err != nil {
		return nil, err
	}
	if len(out.Questions) == 0 {
		return nil, &APIError{StatusCode: 502, Message: "the model returned no questions"}
	}
	if len(out.Questions) > settings.NumQuestions {
		out.Questions = out.Questions[:settings.NumQuestions]
	}
	if settings.QuizType == model.QuizTypeMCQ {
		for i, q := range out.Questions {
			if _, ok := q.Options[q.CorrectAnswer]; !ok {
				return nil, &APIError{
					StatusCode: 502,
					Message:    fmt.Sprintf("question %d has correct answer %q outside its options", i+1, q.CorrectAnswer),
				}
			}
		}
	}

	l.mu.Lock()
	doc.questions = out.Questions
	doc.quizType = settings.QuizType
	l.mu.Unlock()

	return out.Questions, nil
}

func (l *LLM) EvaluateAnswer(ctx context.Context, documentID string, questionIndex int, answer string) (model.Evaluation, error) {
	doc, err := l.doc(documentID)
	if err != nil {
		return model.Evaluation{}, err
	}

	l.mu.Lock()
	if questionIndex < 0 || questionIndex >= len(doc.questions) {
		l.mu.Unlock()
		return model.Evaluation{}, &APIError{StatusCode: 404, Message: fmt.Sprintf("no question at index %d", questionIndex)}
	}
	q := doc.questions[questionIndex]
	quizType := doc.quizType
	l.mu.Unlock()

	data := prompts.EvaluateData{
		DocumentExcerpt: excerpt(doc.text),
		Question:        q.Question,
		Options:         formatOptions(q.Options),
		CorrectAnswer:   q.CorrectAnswer,
		UserAnswer:      answer,
	}

	if quizType == model.QuizTypeMCQ {
		// Correctness is a letter comparison; the model only explains.
		correct := strings.EqualFold(strings.TrimSpace(answer), q.CorrectAnswer)
		prompt, err := prompts.BuildEvaluateMCQ(data)
		if err != nil {
			return model.Evaluation{}, err
		}
		var out struct {
			Explanation string `json:"explanation"`
		}
		if err := l.completeJSON(ctx, prompt, "Explain now.", 0.3, &out); err != nil {
			return model.Evaluation{}, err
		}
		return model.Evaluation{IsCorrect: correct, Explanation: out.Explanation}, nil
	}

	prompt, err := prompts.BuildEvaluateTheory(data)
	if err != nil {
		return model.Evaluation{}, err
	}
	var out model.Evaluation
	if err := l.completeJSON(ctx, prompt, "Grade the answer now.", 0.1, &out); err != nil {
		return model.Evaluation{}, err
	}
	return out, nil
}

func (l *LLM) AnalyzeResults(ctx context.Context, documentID string, results []model.QuizResult) (model.Analysis, error) {
	doc, err := l.doc(documentID)
	if err != nil {
		return model.Analysis{}, err
	}

	var sb strings.Builder
	l.mu.Lock()
	for _, r := range results {
		verdict := "incorrect"
		if r.Evaluation.IsCorrect {
			verdict = "correct"
		}
		question := ""
		if r.QuestionIndex >= 0 && r.QuestionIndex < len(doc.questions) {
			question = doc.questions[r.QuestionIndex].Question
		}
		fmt.Fprintf(&sb, "Q%d: %s\nAnswer: %s (%s)\n\n", r.QuestionIndex+1, question, r.UserAnswer, verdict)
	}
	l.mu.Unlock()

	prompt, err := prompts.BuildAnalysis(prompts.AnalysisData{ResultLines: sb.String()})
	if err != nil {
		return model.Analysis{}, err
	}
	var out model.Analysis
	if err := l.completeJSON(ctx, prompt, "Analyze now.", 0.3, &out); err != nil {
		return model.Analysis{}, err
	}
	return out, nil
}

func (l *LLM) LearningReply(ctx context.Context, documentID, message string) (string, error) {
	doc, err := l.doc(documentID)
	if err != nil {
		return "", err
	}

	system, err := prompts.BuildChat(prompts.ChatData{DocumentExcerpt: excerpt(doc.text)})
	if err != nil {
		return "", err
	}

	l.mu.Lock()
	history := append([]openai.ChatCompletionMessage(nil), doc.chat...)
	l.mu.Unlock()

	msgs := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: system},
	}
	msgs = append(msgs, history...)
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: message})

	resp, err := l.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       l.modelName,
		Messages:    msgs,
		Temperature: 0.5,
	})
	if err != nil {
		return "", fmt.Errorf("LLM API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("LLM returned no choices")
	}
	reply := resp.Choices[0].Message.Content

	l.mu.Lock()
	doc.chat = append(doc.chat,
		openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: message},
		openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: reply},
	)
	l.mu.Unlock()

	return reply, nil
}

// completeJSON sends a JSON-mode chat completion and parses the response
// into out.
func (l *LLM) completeJSON(ctx context.Context, system, user string, temperature float32, out any) error {
	resp, err := l.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: l.modelName,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: temperature,
	})
	if err != nil {
		return fmt.Errorf("LLM API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return fmt.Errorf("LLM returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("LLM response", "raw", raw)

	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("parse LLM response: %w (raw: %s)", err, raw)
	}
	return nil
}

func (l *LLM) doc(documentID string) (*docState, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	doc, ok := l.docs[documentID]
	if !ok {
		return nil, &APIError{StatusCode: 404, Message: fmt.Sprintf("unknown document %q", documentID)}
	}
	return doc, nil
}

func excerpt(text string) string {
	if len(text) <= maxExcerpt {
		return text
	}
	return text[:maxExcerpt]
}

func formatOptions(options map[string]string) string {
	letters := make([]string, 0, len(options))
	for letter := range options {
		letters = append(letters, letter)
	}
	sort.Strings(letters)
	var sb strings.Builder
	for _, letter := range letters {
		sb.WriteString(letter + ") " + options[letter] + "\n")
	}
	return sb.String()
}
