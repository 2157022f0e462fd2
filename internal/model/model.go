package model

import "time"

// Stage is the discrete state of the session controller's state machine.
type Stage string

const (
	StageIdle             Stage = "idle"
	StageDocumentUploaded Stage = "document_uploaded"
	StageConfiguringQuiz  Stage = "configuring_quiz"
	StageGeneratingQuiz   Stage = "generating_quiz"
	StageQuizInProgress   Stage = "quiz_in_progress"
	StageQuizCompleted    Stage = "quiz_completed"
	StageResultsReview    Stage = "results_review"
	StageStoryMode        Stage = "story_mode"
	StageLearningChat     Stage = "learning_chat"
)

// Mode distinguishes the quiz flow from free-form learning chat.
// Fixed once quiz generation starts or learning chat begins.
type Mode string

const (
	ModeNone     Mode = ""
	ModeQuiz     Mode = "quiz"
	ModeLearning Mode = "learning"
)

// QuizType represents the kind of quiz to generate.
type QuizType string

const (
	QuizTypeMCQ         QuizType = "mcq"
	QuizTypeTheoretical QuizType = "theoretical"
)

// Difficulty represents quiz difficulty level.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Role represents a conversation message role.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// QuizSettings is the quiz configuration submitted by the user.
// Immutable once generation begins.
type QuizSettings struct {
	QuizType     QuizType   `json:"quizType" validate:"required,oneof=mcq theoretical"`
	NumQuestions int        `json:"numQuestions" validate:"required,min=1,max=20"`
	Difficulty   Difficulty `json:"difficulty" validate:"required,oneof=easy medium hard"`
}

// QuizQuestion is a single generated question. Read-only after generation.
// Options and CorrectAnswer are empty for theoretical questions.
type QuizQuestion struct {
	Question      string            `json:"question"`
	Options       map[string]string `json:"options,omitempty"`
	CorrectAnswer string            `json:"correct_answer,omitempty"`
}

// Evaluation is the backend's verdict on one answer.
type Evaluation struct {
	IsCorrect   bool   `json:"is_correct"`
	Explanation string `json:"explanation"`
}

// QuizResult records the evaluation of one answered question.
// Exactly one per question, in question order.
type QuizResult struct {
	QuestionIndex int        `json:"question_index"`
	UserAnswer    string     `json:"user_answer"`
	Evaluation    Evaluation `json:"evaluation"`
}

// Analysis is the backend-supplied weak/strong-area breakdown,
// stored verbatim once all results exist.
type Analysis struct {
	OverallSummary string   `json:"overall_summary"`
	WeakAreas      []string `json:"weak_areas"`
	StrongAreas    []string `json:"strong_areas"`
}

// Message is one conversation turn. Immutable once appended; Seq is
// strictly increasing within a session.
type Message struct {
	Seq       int64     `json:"seq"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Explanation is one section of the story-mode narrative,
// ordered by generation sequence.
type Explanation struct {
	Section     string `json:"section"`
	Explanation string `json:"explanation"`
}

// Summary holds the aggregate outcome of a completed quiz.
type Summary struct {
	TotalQuestions int `json:"total_questions"`
	CorrectCount   int `json:"correct_count"`
	Score          int `json:"score"`
}

// Snapshot is the flat session-state object exposed to the UI layer.
// Only the fields valid for the current stage are populated.
type Snapshot struct {
	SessionID    string            `json:"session_id,omitempty"`
	Stage        Stage             `json:"stage"`
	Mode         Mode              `json:"mode,omitempty"`
	DocumentID   string            `json:"document_id,omitempty"`
	Settings     *QuizSettings     `json:"settings,omitempty"`
	Questions    []QuizQuestion    `json:"questions,omitempty"`
	NextQuestion int               `json:"next_question,omitempty"`
	Results      []QuizResult      `json:"results,omitempty"`
	Summary      *Summary          `json:"summary,omitempty"`
	Analysis     *Analysis         `json:"analysis,omitempty"`
	Explanations []Explanation     `json:"explanations,omitempty"`
	Messages     []Message         `json:"messages,omitempty"`
	Awaiting     bool              `json:"awaiting"`
	FieldErrors  map[string]string `json:"field_errors,omitempty"`
}
