// Package store keeps the live session's transcript: the append-only
// message log, quiz results, and story explanations. It is backed by an
// in-memory SQLite database so the transcript dies with the process and a
// reset is a transactional wipe.
package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/doctutor/doctutor/internal/model"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

// New opens the transcript database. An empty dsn means ":memory:".
func New(dsn string) (*Store, error) {
	if dsn == "" {
		dsn = ":memory:"
	}
	db, err := sql.Open("sqlite", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if strings.Contains(dsn, ":memory:") {
		// Each pooled connection would otherwise get its own empty in-memory DB.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL DEFAULT '',
		mode TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS messages (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (session_id) REFERENCES sessions(id)
	);

	CREATE TABLE IF NOT EXISTS quiz_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		question_index INTEGER NOT NULL,
		user_answer TEXT NOT NULL,
		is_correct INTEGER NOT NULL,
		explanation TEXT NOT NULL DEFAULT '',
		UNIQUE (session_id, question_index),
		FOREIGN KEY (session_id) REFERENCES sessions(id)
	);

	CREATE TABLE IF NOT EXISTS explanations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		section TEXT NOT NULL,
		explanation TEXT NOT NULL,
		FOREIGN KEY (session_id) REFERENCES sessions(id)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// CreateSession records a new session with its document.
func (s *Store) CreateSession(id, documentID string) error {
	_, err := s.db.Exec(
		`INSERT INTO sessions (id, document_id, mode, created_at) VALUES (?, ?, '', ?)`,
		id, documentID, time.Now(),
	)
	return err
}

// SetMode fixes the session mode once the quiz or learning flow starts.
func (s *Store) SetMode(id string, mode model.Mode) error {
	_, err := s.db.Exec(`UPDATE sessions SET mode = ? WHERE id = ?`, mode, id)
	return err
}

// AppendMessage appends one turn to the message log and returns it with its
// sequence index. Messages are immutable once appended.
func (s *Store) AppendMessage(sessionID string, role model.Role, content string) (model.Message, error) {
	now := time.Now()
	res, err := s.db.Exec(
		`INSERT INTO messages (session_id, role, content, created_at) VALUES (?, ?, ?, ?)`,
		sessionID, role, content, now,
	)
	if err != nil {
		return model.Message{}, err
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return model.Message{}, err
	}
	return model.Message{Seq: seq, Role: role, Content: content, CreatedAt: now}, nil
}

// Messages returns the session's message log in sequence order.
func (s *Store) Messages(sessionID string) ([]model.Message, error) {
	rows, err := s.db.Query(
		`SELECT seq, role, content, created_at FROM messages WHERE session_id = ? ORDER BY seq`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var messages []model.Message
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.Seq, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// AddResult records the evaluation of one answered question. The unique
// constraint enforces exactly one result per question.
func (s *Store) AddResult(sessionID string, r model.QuizResult) error {
	_, err := s.db.Exec(
		`INSERT INTO quiz_results (session_id, question_index, user_answer, is_correct, explanation)
		 VALUES (?, ?, ?, ?, ?)`,
		sessionID, r.QuestionIndex, r.UserAnswer, r.Evaluation.IsCorrect, r.Evaluation.Explanation,
	)
	return err
}

// Results returns the session's quiz results in question order.
func (s *Store) Results(sessionID string) ([]model.QuizResult, error) {
	rows, err := s.db.Query(
		`SELECT question_index, user_answer, is_correct, explanation
		 FROM quiz_results WHERE session_id = ? ORDER BY question_index`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var results []model.QuizResult
	for rows.Next() {
		var r model.QuizResult
		if err := rows.Scan(&r.QuestionIndex, &r.UserAnswer, &r.Evaluation.IsCorrect, &r.Evaluation.Explanation); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// AddExplanation appends one story explanation in generation order.
func (s *Store) AddExplanation(sessionID string, e model.Explanation) error {
	_, err := s.db.Exec(
		`INSERT INTO explanations (session_id, section, explanation) VALUES (?, ?, ?)`,
		sessionID, e.Section, e.Explanation,
	)
	return err
}

// Explanations returns the session's story explanations in generation order.
func (s *Store) Explanations(sessionID string) ([]model.Explanation, error) {
	rows, err := s.db.Query(
		`SELECT section, explanation FROM explanations WHERE session_id = ? ORDER BY id`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var explanations []model.Explanation
	for rows.Next() {
		var e model.Explanation
		if err := rows.Scan(&e.Section, &e.Explanation); err != nil {
			return nil, err
		}
		explanations = append(explanations, e)
	}
	return explanations, rows.Err()
}

// Reset discards the session and everything scoped to it.
func (s *Store) Reset(sessionID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, q := range []string{
		`DELETE FROM messages WHERE session_id = ?`,
		`DELETE FROM quiz_results WHERE session_id = ?`,
		`DELETE FROM explanations WHERE session_id = ?`,
		`DELETE FROM sessions WHERE id = ?`,
	} {
		if _, err := tx.Exec(q, sessionID); err != nil {
			return err
		}
	}
	return tx.Commit()
}
