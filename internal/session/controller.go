// Package session implements the quiz/learning session state machine. The
// controller owns one session at a time, mediates every Tutoring Service
// call, and guarantees at most one in-flight request per session. All
// operations are safe for the single cooperative caller the UI event loop
// provides; the internal mutex only protects the stage data across the
// suspension points around network calls.
package session

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/doctutor/doctutor/internal/evaluation"
	"github.com/doctutor/doctutor/internal/model"
	"github.com/doctutor/doctutor/internal/report"
	"github.com/doctutor/doctutor/internal/store"
	"github.com/doctutor/doctutor/internal/tutor"
	"github.com/doctutor/doctutor/internal/validate"
)

// stage is the tagged union of controller states. Each variant carries only
// the data valid in that stage.
type stage interface {
	name() model.Stage
}

type idle struct{}

type documentUploaded struct {
	docID string
}

type configuringQuiz struct {
	docID       string
	fieldErrors validate.FieldErrors
}

type generatingQuiz struct {
	docID    string
	settings model.QuizSettings
}

type quizInProgress struct {
	docID     string
	settings  model.QuizSettings
	questions []model.QuizQuestion
	results   []model.QuizResult
	next      int
}

type quizCompleted struct {
	docID     string
	settings  model.QuizSettings
	questions []model.QuizQuestion
	results   []model.QuizResult
	summary   model.Summary
	analysis  *model.Analysis
}

type resultsReview struct {
	docID     string
	questions []model.QuizQuestion
	results   []model.QuizResult
	summary   model.Summary
	analysis  model.Analysis
}

type storyMode struct {
	docID        string
	questions    []model.QuizQuestion
	summary      model.Summary
	explanations []model.Explanation
}

type learningChat struct {
	docID string
}

func (idle) name() model.Stage             { return model.StageIdle }
func (documentUploaded) name() model.Stage { return model.StageDocumentUploaded }
func (configuringQuiz) name() model.Stage  { return model.StageConfiguringQuiz }
func (generatingQuiz) name() model.Stage   { return model.StageGeneratingQuiz }
func (quizInProgress) name() model.Stage   { return model.StageQuizInProgress }
func (quizCompleted) name() model.Stage    { return model.StageQuizCompleted }
func (resultsReview) name() model.Stage    { return model.StageResultsReview }
func (storyMode) name() model.Stage        { return model.StageStoryMode }
func (learningChat) name() model.Stage     { return model.StageLearningChat }

// Controller drives one interactive session from upload to reset.
type Controller struct {
	tutor tutor.Service
	store *store.Store

	mu        sync.Mutex
	epoch     uint64
	awaiting  bool
	sessionID string
	mode      model.Mode
	cur       stage
}

// New creates an idle controller.
func New(t tutor.Service, st *store.Store) *Controller {
	return &Controller{tutor: t, store: st, cur: idle{}}
}

// settle is called with the lock held after a service call returns. It
// reports whether the response still belongs to the live session; a stale
// response (the session was reset mid-flight) must be discarded.
func (c *Controller) settle(epoch uint64) bool {
	if epoch != c.epoch {
		return false
	}
	c.awaiting = false
	return true
}

// SubmitDocument uploads a document and starts a session. Valid only from
// Idle; on failure the controller stays in Idle and does not retry.
func (c *Controller) SubmitDocument(ctx context.Context, filename string, content io.Reader) error {
	c.mu.Lock()
	if c.awaiting {
		c.mu.Unlock()
		return ErrBusy
	}
	if _, ok := c.cur.(idle); !ok {
		st := c.cur.name()
		c.mu.Unlock()
		return &StateError{Op: "submitDocument", Stage: st}
	}
	c.awaiting = true
	epoch := c.epoch
	c.mu.Unlock()

	docID, err := c.tutor.UploadDocument(ctx, filename, content)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.settle(epoch) {
		return ErrSuperseded
	}
	if err != nil {
		slog.Warn("document upload failed", "error", err)
		return wrapService(OpUpload, err)
	}

	sessionID := uuid.NewString()
	if err := c.store.CreateSession(sessionID, docID); err != nil {
		return err
	}
	c.sessionID = sessionID
	c.cur = documentUploaded{docID: docID}
	slog.Info("session started", "session_id", sessionID, "document_id", docID)
	return nil
}

// SubmitQuizSettings validates the configuration, then generates the quiz.
// Validation failures keep the session in ConfiguringQuiz with field-level
// errors; generation failures return there with the service's message.
func (c *Controller) SubmitQuizSettings(ctx context.Context, settings model.QuizSettings) error {
	c.mu.Lock()
	if c.awaiting {
		c.mu.Unlock()
		return ErrBusy
	}

	var docID string
	switch s := c.cur.(type) {
	case documentUploaded:
		docID = s.docID
	case configuringQuiz:
		docID = s.docID
	default:
		st := c.cur.name()
		c.mu.Unlock()
		return &StateError{Op: "submitQuizSettings", Stage: st}
	}

	if fe := validate.QuizSettings(settings); fe != nil {
		c.cur = configuringQuiz{docID: docID, fieldErrors: fe}
		c.mu.Unlock()
		return fe
	}

	c.cur = generatingQuiz{docID: docID, settings: settings}
	c.awaiting = true
	epoch := c.epoch
	c.mu.Unlock()

	questions, err := c.tutor.GenerateQuiz(ctx, docID, settings)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.settle(epoch) {
		return ErrSuperseded
	}
	if err != nil {
		c.cur = configuringQuiz{docID: docID}
		slog.Warn("quiz generation failed", "error", err)
		return wrapService(OpGenerate, err)
	}
	if len(questions) == 0 {
		c.cur = configuringQuiz{docID: docID}
		return &ServiceError{Op: OpGenerate, Message: "the service returned no questions"}
	}
	// The service may return fewer questions than requested, never more.
	if len(questions) > settings.NumQuestions {
		questions = questions[:settings.NumQuestions]
	}
	if settings.QuizType == model.QuizTypeMCQ {
		for _, q := range questions {
			if _, ok := q.Options[q.CorrectAnswer]; !ok {
				c.cur = configuringQuiz{docID: docID}
				return &ServiceError{Op: OpGenerate, Message: "question " + q.Question + " has an invalid correct answer"}
			}
		}
	}

	c.mode = model.ModeQuiz
	if err := c.store.SetMode(c.sessionID, model.ModeQuiz); err != nil {
		return err
	}
	c.cur = quizInProgress{docID: docID, settings: settings, questions: questions}
	slog.Info("quiz generated", "questions", len(questions))
	return nil
}

// StartLearning enters free-form learning chat, bypassing quiz
// configuration. Valid from DocumentUploaded.
func (c *Controller) StartLearning(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.awaiting {
		return ErrBusy
	}
	s, ok := c.cur.(documentUploaded)
	if !ok {
		return &StateError{Op: "startLearning", Stage: c.cur.name()}
	}
	c.mode = model.ModeLearning
	if err := c.store.SetMode(c.sessionID, model.ModeLearning); err != nil {
		return err
	}
	c.cur = learningChat{docID: s.docID}
	return nil
}

// SubmitAnswer handles one user turn: a quiz answer in QuizInProgress or a
// chat message in LearningChat. Empty input and input while a request is in
// flight are rejected before anything is appended, so a double submission
// produces exactly one message/result pair.
func (c *Controller) SubmitAnswer(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyInput
	}

	c.mu.Lock()
	if c.awaiting {
		c.mu.Unlock()
		return ErrBusy
	}

	switch s := c.cur.(type) {
	case quizInProgress:
		return c.answerQuiz(ctx, s, text)
	case learningChat:
		return c.answerChat(ctx, s, text)
	default:
		st := c.cur.name()
		c.mu.Unlock()
		return &StateError{Op: "submitAnswer", Stage: st}
	}
}

// answerQuiz is entered with the lock held.
func (c *Controller) answerQuiz(ctx context.Context, s quizInProgress, text string) error {
	if _, err := c.store.AppendMessage(c.sessionID, model.RoleUser, text); err != nil {
		c.mu.Unlock()
		return err
	}
	c.awaiting = true
	epoch := c.epoch
	c.mu.Unlock()

	ev, err := c.tutor.EvaluateAnswer(ctx, s.docID, s.next, text)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.settle(epoch) {
		return ErrSuperseded
	}
	if err != nil {
		slog.Warn("answer evaluation failed", "question", s.next, "error", err)
		return wrapService(OpEvaluate, err)
	}

	result := model.QuizResult{QuestionIndex: s.next, UserAnswer: text, Evaluation: ev}
	if err := c.store.AddResult(c.sessionID, result); err != nil {
		return err
	}
	s.results = append(s.results, result)
	s.next++

	if s.next < len(s.questions) {
		c.cur = s
		return nil
	}

	// Last question answered: aggregate and fetch the analysis.
	summary, err := evaluation.Summarize(s.results)
	if err != nil {
		return err
	}
	done := quizCompleted{
		docID:     s.docID,
		settings:  s.settings,
		questions: s.questions,
		results:   s.results,
		summary:   summary,
	}
	c.cur = done
	slog.Info("quiz completed", "score", summary.Score, "correct", summary.CorrectCount)

	analysis, aerr := c.fetchAnalysis(ctx, epoch, done)
	if aerr != nil {
		return aerr
	}
	done.analysis = analysis
	c.cur = done
	return nil
}

// fetchAnalysis requests the final analysis while the lock is held,
// releasing it around the call. The session stays in QuizCompleted on
// failure; review re-invokes the call.
func (c *Controller) fetchAnalysis(ctx context.Context, epoch uint64, done quizCompleted) (*model.Analysis, error) {
	c.awaiting = true
	c.mu.Unlock()

	analysis, err := c.tutor.AnalyzeResults(ctx, done.docID, done.results)

	c.mu.Lock()
	if !c.settle(epoch) {
		return nil, ErrSuperseded
	}
	if err != nil {
		slog.Warn("results analysis failed", "error", err)
		return nil, wrapService(OpAnalyze, err)
	}
	if err := evaluation.CheckAnalysis(analysis); err != nil {
		return nil, &ServiceError{Op: OpAnalyze, Message: err.Error()}
	}
	return &analysis, nil
}

// answerChat is entered with the lock held.
func (c *Controller) answerChat(ctx context.Context, s learningChat, text string) error {
	if _, err := c.store.AppendMessage(c.sessionID, model.RoleUser, text); err != nil {
		c.mu.Unlock()
		return err
	}
	c.awaiting = true
	epoch := c.epoch
	c.mu.Unlock()

	reply, err := c.tutor.LearningReply(ctx, s.docID, text)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.settle(epoch) {
		return ErrSuperseded
	}
	if err != nil {
		slog.Warn("learning reply failed", "error", err)
		return wrapService(OpChat, err)
	}
	_, err = c.store.AppendMessage(c.sessionID, model.RoleAssistant, reply)
	return err
}

// EnterReview moves to ResultsReview. The Analysis must be present first;
// if the final fetch failed it is re-invoked here (user-initiated, never
// automatic).
func (c *Controller) EnterReview(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.awaiting {
		return ErrBusy
	}
	s, ok := c.cur.(quizCompleted)
	if !ok {
		return &StateError{Op: "enterReview", Stage: c.cur.name()}
	}

	if s.analysis == nil {
		epoch := c.epoch
		analysis, err := c.fetchAnalysis(ctx, epoch, s)
		if err != nil {
			return err
		}
		s.analysis = analysis
		c.cur = s
	}

	c.cur = resultsReview{
		docID:     s.docID,
		questions: s.questions,
		results:   s.results,
		summary:   s.summary,
		analysis:  *s.analysis,
	}
	return nil
}

// EnterStory moves to StoryMode and generates one narrative Explanation per
// quiz question, in question order, through the learning endpoint. A
// mid-sequence failure keeps the Explanations generated so far; calling
// EnterStory again resumes after them.
func (c *Controller) EnterStory(ctx context.Context) error {
	c.mu.Lock()
	if c.awaiting {
		c.mu.Unlock()
		return ErrBusy
	}

	var s storyMode
	switch cur := c.cur.(type) {
	case quizCompleted:
		s = storyMode{docID: cur.docID, questions: cur.questions, summary: cur.summary}
	case storyMode:
		s = cur
	default:
		st := c.cur.name()
		c.mu.Unlock()
		return &StateError{Op: "enterStory", Stage: st}
	}
	c.cur = s

	for i := len(s.explanations); i < len(s.questions); i++ {
		question := s.questions[i]
		c.awaiting = true
		epoch := c.epoch
		c.mu.Unlock()

		reply, err := c.tutor.LearningReply(ctx, s.docID,
			"Explain the following as a short narrative with markdown structure: "+question.Question)

		c.mu.Lock()
		if !c.settle(epoch) {
			c.mu.Unlock()
			return ErrSuperseded
		}
		if err != nil {
			c.mu.Unlock()
			slog.Warn("story explanation failed", "section", i, "error", err)
			return wrapService(OpStory, err)
		}

		ex := model.Explanation{Section: question.Question, Explanation: reply}
		if err := c.store.AddExplanation(c.sessionID, ex); err != nil {
			c.mu.Unlock()
			return err
		}
		s.explanations = append(s.explanations, ex)
		c.cur = s
	}
	c.mu.Unlock()
	return nil
}

// StoryReport paginates the generated Explanations into a self-contained
// printable report. Valid from StoryMode once Explanations exist.
func (c *Controller) StoryReport(layout report.Layout) (report.Report, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.cur.(storyMode)
	if !ok {
		return report.Report{}, &StateError{Op: "requestStoryExport", Stage: c.cur.name()}
	}
	if len(s.explanations) == 0 {
		return report.Report{}, report.ErrNoContent
	}
	return report.Paginate(s.explanations, layout)
}

// Reset discards the session and returns to Idle. Valid from any state; a
// response that later arrives for an in-flight request is discarded.
func (c *Controller) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.epoch++
	c.awaiting = false
	if c.sessionID != "" {
		if err := c.store.Reset(c.sessionID); err != nil {
			return err
		}
		slog.Info("session reset", "session_id", c.sessionID)
	}
	c.sessionID = ""
	c.mode = model.ModeNone
	c.cur = idle{}
	return nil
}

// Snapshot returns the reactive session-state object for the UI. Only the
// fields valid in the current stage are populated; correct answers are
// withheld while the quiz is still in progress.
func (c *Controller) Snapshot() model.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := model.Snapshot{
		SessionID: c.sessionID,
		Stage:     c.cur.name(),
		Mode:      c.mode,
		Awaiting:  c.awaiting,
	}

	switch s := c.cur.(type) {
	case documentUploaded:
		snap.DocumentID = s.docID
	case configuringQuiz:
		snap.DocumentID = s.docID
		snap.FieldErrors = s.fieldErrors
	case generatingQuiz:
		snap.DocumentID = s.docID
		settings := s.settings
		snap.Settings = &settings
	case quizInProgress:
		snap.DocumentID = s.docID
		settings := s.settings
		snap.Settings = &settings
		snap.Questions = withheldAnswers(s.questions)
		snap.Results = s.results
		snap.NextQuestion = s.next
	case quizCompleted:
		snap.DocumentID = s.docID
		settings := s.settings
		snap.Settings = &settings
		snap.Questions = s.questions
		snap.Results = s.results
		summary := s.summary
		snap.Summary = &summary
		snap.Analysis = s.analysis
	case resultsReview:
		snap.DocumentID = s.docID
		snap.Questions = s.questions
		snap.Results = s.results
		summary := s.summary
		snap.Summary = &summary
		analysis := s.analysis
		snap.Analysis = &analysis
	case storyMode:
		snap.DocumentID = s.docID
		summary := s.summary
		snap.Summary = &summary
		snap.Explanations = s.explanations
	case learningChat:
		snap.DocumentID = s.docID
	}

	if c.sessionID != "" {
		if msgs, err := c.store.Messages(c.sessionID); err == nil {
			snap.Messages = msgs
		} else {
			slog.Error("load message log", "error", err)
		}
	}
	return snap
}

func withheldAnswers(questions []model.QuizQuestion) []model.QuizQuestion {
	out := make([]model.QuizQuestion, len(questions))
	for i, q := range questions {
		q.CorrectAnswer = ""
		out[i] = q
	}
	return out
}
