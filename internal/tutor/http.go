package tutor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/doctutor/doctutor/internal/model"
)

// Client is the HTTP implementation of Service, talking JSON to a remote
// Tutoring Service.
type Client struct {
	baseURL string
	hc      *http.Client
}

// NewClient creates a Client for the given base URL. A nil httpClient uses
// a default with a 60 second timeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		hc:      httpClient,
	}
}

func (c *Client) UploadDocument(ctx context.Context, filename string, content io.Reader) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("build upload body: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return "", fmt.Errorf("copy upload body: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("finish upload body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out struct {
		DocumentID string `json:"document_id"`
	}
	if err := c.do(req, &out); err != nil {
		return "", err
	}
	if out.DocumentID == "" {
		return "", fmt.Errorf("upload response missing document_id")
	}
	return out.DocumentID, nil
}

func (c *Client) GenerateQuiz(ctx context.Context, documentID string, settings model.QuizSettings) ([]model.QuizQuestion, error) {
	payload := map[string]any{
		"document_id":  documentID,
		"quizType":     settings.QuizType,
		"numQuestions": settings.NumQuestions,
		"difficulty":   settings.Difficulty,
	}
	var out []model.QuizQuestion
	if err := c.postJSON(ctx, "/quiz/generate", payload, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) EvaluateAnswer(ctx context.Context, documentID string, questionIndex int, answer string) (model.Evaluation, error) {
	payload := map[string]any{
		"document_id":   documentID,
		"questionIndex": questionIndex,
		"userAnswer":    answer,
	}
	var out model.Evaluation
	if err := c.postJSON(ctx, "/quiz/answer", payload, &out); err != nil {
		return model.Evaluation{}, err
	}
	return out, nil
}

func (c *Client) AnalyzeResults(ctx context.Context, documentID string, results []model.QuizResult) (model.Analysis, error) {
	payload := map[string]any{
		"document_id": documentID,
		"results":     results,
	}
	var out model.Analysis
	if err := c.postJSON(ctx, "/quiz/analysis", payload, &out); err != nil {
		return model.Analysis{}, err
	}
	return out, nil
}

func (c *Client) LearningReply(ctx context.Context, documentID, message string) (string, error) {
	payload := map[string]any{
		"document_id": documentID,
		"message":     message,
	}
	var out struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	if err := c.postJSON(ctx, "/learning/message", payload, &out); err != nil {
		return "", err
	}
	return out.Content, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload, out any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

// do executes the request and decodes the JSON response into out. A non-2xx
// status becomes an *APIError carrying the service's message verbatim.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("tutoring service request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(body))
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
