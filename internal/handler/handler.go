// Package handler exposes the session controller to the UI layer as a JSON
// API: the reactive session state plus the session operations.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/doctutor/doctutor/internal/i18n"
	"github.com/doctutor/doctutor/internal/model"
	"github.com/doctutor/doctutor/internal/report"
	"github.com/doctutor/doctutor/internal/session"
	"github.com/doctutor/doctutor/internal/validate"
)

// Default report geometry in points (US letter with one-inch margins).
const (
	defaultPageHeight = 648
	defaultPageWidth  = 468
	defaultTopMargin  = 0
)

// maxUploadBytes caps document uploads at 16 MiB.
const maxUploadBytes = 16 << 20

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	ctrl *session.Controller
}

// New creates a new Handler.
func New(ctrl *session.Controller) *Handler {
	return &Handler{ctrl: ctrl}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/session", h.handleState)
	r.Post("/session/document", h.handleDocument)
	r.Post("/session/quiz/settings", h.handleSettings)
	r.Post("/session/answer", h.handleAnswer)
	r.Post("/session/learning", h.handleLearning)
	r.Post("/session/review", h.handleReview)
	r.Post("/session/story", h.handleStory)
	r.Get("/session/story/report", h.handleStoryReport)
	r.Post("/session/reset", h.handleReset)
}

func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"state": h.ctrl.Snapshot()})
}

func (h *Handler) handleDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errBody("missing file field", nil))
		return
	}
	defer file.Close()

	if err := h.ctrl.SubmitDocument(r.Context(), header.Filename, file); err != nil {
		h.respondErr(w, r, err)
		return
	}
	h.respondState(w)
}

func (h *Handler) handleSettings(w http.ResponseWriter, r *http.Request) {
	var settings struct {
		QuizType     string          `json:"quizType"`
		NumQuestions json.RawMessage `json:"numQuestions"`
		Difficulty   string          `json:"difficulty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		writeJSON(w, http.StatusBadRequest, errBody("invalid JSON body", nil))
		return
	}

	parsed, nonInteger := parseSettings(settings.QuizType, settings.NumQuestions, settings.Difficulty)
	if err := h.ctrl.SubmitQuizSettings(r.Context(), parsed); err != nil {
		var fe validate.FieldErrors
		if nonInteger && errors.As(err, &fe) {
			fe["numQuestions"] = "numQuestions must be an integer"
		}
		h.respondErr(w, r, err)
		return
	}
	h.respondState(w)
}

// parseSettings builds the settings struct, flagging a numQuestions value
// that is not a JSON integer. A non-integer is mapped to zero so the
// validator still reports every failing field in one pass; the caller then
// replaces the numQuestions message.
func parseSettings(quizType string, num json.RawMessage, difficulty string) (model.QuizSettings, bool) {
	s := model.QuizSettings{
		QuizType:   model.QuizType(quizType),
		Difficulty: model.Difficulty(difficulty),
	}
	if len(num) == 0 || string(num) == "null" {
		return s, false
	}
	var f float64
	if err := json.Unmarshal(num, &f); err != nil || f != math.Trunc(f) {
		return s, true
	}
	s.NumQuestions = int(f)
	return s, false
}

func (h *Handler) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errBody("invalid JSON body", nil))
		return
	}
	if err := h.ctrl.SubmitAnswer(r.Context(), body.Message); err != nil {
		h.respondErr(w, r, err)
		return
	}
	h.respondState(w)
}

func (h *Handler) handleLearning(w http.ResponseWriter, r *http.Request) {
	if err := h.ctrl.StartLearning(r.Context()); err != nil {
		h.respondErr(w, r, err)
		return
	}
	h.respondState(w)
}

func (h *Handler) handleReview(w http.ResponseWriter, r *http.Request) {
	if err := h.ctrl.EnterReview(r.Context()); err != nil {
		h.respondErr(w, r, err)
		return
	}
	h.respondState(w)
}

func (h *Handler) handleStory(w http.ResponseWriter, r *http.Request) {
	if err := h.ctrl.EnterStory(r.Context()); err != nil {
		h.respondErr(w, r, err)
		return
	}
	h.respondState(w)
}

func (h *Handler) handleStoryReport(w http.ResponseWriter, r *http.Request) {
	layout := report.Layout{
		Height:    queryFloat(r, "height", defaultPageHeight),
		Width:     queryFloat(r, "width", defaultPageWidth),
		TopMargin: queryFloat(r, "top_margin", defaultTopMargin),
	}
	rep, err := h.ctrl.StoryReport(layout)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"report": rep})
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := h.ctrl.Reset(); err != nil {
		h.respondErr(w, r, err)
		return
	}
	h.respondState(w)
}

func (h *Handler) respondState(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]any{"state": h.ctrl.Snapshot()})
}

// respondErr maps the controller's error taxonomy onto HTTP statuses. The
// snapshot rides along so the UI can re-render the stage the session
// returned to.
func (h *Handler) respondErr(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()

	var fe validate.FieldErrors
	var se *session.ServiceError
	var ste *session.StateError

	switch {
	case errors.As(err, &fe):
		writeJSON(w, http.StatusUnprocessableEntity, errBody("validation failed", fe))
	case errors.Is(err, session.ErrEmptyInput):
		writeJSON(w, http.StatusUnprocessableEntity, errBody(i18n.T(ctx, "ErrEmptyAnswer"), nil))
	case errors.Is(err, session.ErrBusy):
		writeJSON(w, http.StatusConflict, errBody(i18n.T(ctx, "ErrBusy"), nil))
	case errors.Is(err, session.ErrSuperseded):
		writeJSON(w, http.StatusGone, errBody("session was reset", nil))
	case errors.As(err, &ste):
		writeJSON(w, http.StatusConflict, errBody(i18n.T(ctx, "ErrWrongStage"), nil))
	case errors.As(err, &se):
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error": se.UserMessage(ctx),
			"state": h.ctrl.Snapshot(),
		})
	case errors.Is(err, report.ErrNoContent):
		writeJSON(w, http.StatusConflict, errBody(err.Error(), nil))
	default:
		slog.Error("internal error", "error", err)
		writeJSON(w, http.StatusInternalServerError, errBody("internal error", nil))
	}
}

func errBody(msg string, fields map[string]string) map[string]any {
	body := map[string]any{"error": msg}
	if len(fields) > 0 {
		body["fields"] = fields
	}
	return body
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func queryFloat(r *http.Request, key string, def float64) float64 {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return f
}
