package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"interview/pkg/scoring"
	"interview/pkg/session"
)

// SessionRecord is one stored session row.
//
//nolint:govet // fieldalignment: column order preferred
type SessionRecord struct {
	ID            string
	CandidateName string
	Role          string
	FirstTime     bool
	MaxQuestions  int
	QuestionCount int
	Clarity       float64
	Relevance     float64
	Depth         float64
	Tier          string
	OverallScore  int
	FallbackScore bool
	Narrative     string
	CreatedAt     time.Time
	CompletedAt   time.Time
}

// SaveResult persists a finished session in one transaction: the session
// row, every transcript line, and the feedback labels. Called once at
// conclusion.
func (s *Store) SaveResult(ctx context.Context, sess *session.State, feedback scoring.Feedback) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	metrics := sess.Metrics()
	firstTime, _ := sess.FirstTime()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (
			id, candidate_name, role, first_time, max_questions, question_count,
			clarity, relevance, depth, tier, overall_score, fallback_score,
			narrative, created_at, completed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID(), sess.CandidateName(), sess.Role(), firstTime,
		sess.MaxQuestions(), sess.QuestionIndex(),
		metrics.Clarity, metrics.Relevance, metrics.Depth, string(metrics.Tier),
		feedback.OverallScore, feedback.Fallback, feedback.Narrative,
		sess.CreatedAt(), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	for seq, entry := range sess.Transcript() {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO transcript_lines (session_id, seq, speaker, text, spoken_at)
			VALUES (?, ?, ?, ?, ?)`,
			sess.ID(), seq, string(entry.Speaker), entry.Text, entry.Timestamp,
		)
		if err != nil {
			return fmt.Errorf("failed to insert transcript line %d: %w", seq, err)
		}
	}

	insertLabels := func(kind string, labels []string) error {
		for _, label := range labels {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO feedback_labels (session_id, kind, label) VALUES (?, ?, ?)",
				sess.ID(), kind, label,
			); err != nil {
				return fmt.Errorf("failed to insert %s label: %w", kind, err)
			}
		}
		return nil
	}
	if err := insertLabels("strength", feedback.Strengths); err != nil {
		return err
	}
	if err := insertLabels("improvement", feedback.Improvements); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit session result: %w", err)
	}

	s.logger.Info("Saved session %s: score %d, %d transcript lines",
		sess.ID(), feedback.OverallScore, len(sess.Transcript()))
	return nil
}

// GetSession loads one stored session row by ID.
func (s *Store) GetSession(ctx context.Context, id string) (*SessionRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, candidate_name, role, first_time, max_questions, question_count,
		       clarity, relevance, depth, tier, overall_score, fallback_score,
		       narrative, created_at, completed_at
		FROM sessions WHERE id = ?`, id)

	var rec SessionRecord
	err := row.Scan(
		&rec.ID, &rec.CandidateName, &rec.Role, &rec.FirstTime,
		&rec.MaxQuestions, &rec.QuestionCount,
		&rec.Clarity, &rec.Relevance, &rec.Depth, &rec.Tier,
		&rec.OverallScore, &rec.FallbackScore, &rec.Narrative,
		&rec.CreatedAt, &rec.CompletedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", id, err)
	}
	return &rec, nil
}

// ListSessions returns the most recently completed sessions, newest first.
func (s *Store) ListSessions(ctx context.Context, limit int) ([]SessionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, candidate_name, role, first_time, max_questions, question_count,
		       clarity, relevance, depth, tier, overall_score, fallback_score,
		       narrative, created_at, completed_at
		FROM sessions ORDER BY completed_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []SessionRecord
	for rows.Next() {
		var rec SessionRecord
		if err := rows.Scan(
			&rec.ID, &rec.CandidateName, &rec.Role, &rec.FirstTime,
			&rec.MaxQuestions, &rec.QuestionCount,
			&rec.Clarity, &rec.Relevance, &rec.Depth, &rec.Tier,
			&rec.OverallScore, &rec.FallbackScore, &rec.Narrative,
			&rec.CreatedAt, &rec.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sessions: %w", err)
	}
	return records, nil
}

// GetTranscript loads the stored transcript for a session, in order.
func (s *Store) GetTranscript(ctx context.Context, id string) ([]session.TranscriptEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT speaker, text, spoken_at FROM transcript_lines
		WHERE session_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load transcript: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []session.TranscriptEntry
	for rows.Next() {
		var entry session.TranscriptEntry
		var speaker string
		if err := rows.Scan(&speaker, &entry.Text, &entry.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan transcript line: %w", err)
		}
		entry.Speaker = session.Speaker(speaker)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transcript: %w", err)
	}
	return entries, nil
}

// GetFeedbackLabels loads the stored strength and improvement labels.
func (s *Store) GetFeedbackLabels(ctx context.Context, id string) (strengths, improvements []string, err error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT kind, label FROM feedback_labels WHERE session_id = ?", id)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load feedback labels: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var kind, label string
		if err := rows.Scan(&kind, &label); err != nil {
			return nil, nil, fmt.Errorf("failed to scan feedback label: %w", err)
		}
		if kind == "strength" {
			strengths = append(strengths, label)
		} else {
			improvements = append(improvements, label)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to iterate feedback labels: %w", err)
	}
	return strengths, improvements, nil
}
