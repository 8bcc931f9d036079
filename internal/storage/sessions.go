package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/recallkit/recallkit/internal/domain"
)

// CreateSession inserts a session record and returns it with its assigned ID.
func (db *DB) CreateSession(ctx context.Context, s domain.StudySession) (domain.StudySession, error) {
	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO study_sessions (name, mode, start_time, end_time, cards_reviewed,
			correct_answers, average_response_time, is_completed, abort_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		s.Name,
		string(s.Mode),
		s.StartTime,
		nullTime(s.EndTime),
		s.CardsReviewed,
		s.CorrectAnswers,
		s.AverageResponseTime,
		s.IsCompleted,
		s.AbortReason,
	)
	if err != nil {
		return domain.StudySession{}, fmt.Errorf("failed to insert session: %w", err)
	}
	s.ID, err = res.LastInsertId()
	if err != nil {
		return domain.StudySession{}, fmt.Errorf("failed to get session ID: %w", err)
	}
	return s, nil
}

// UpdateSession overwrites a session's counters and completion state.
func (db *DB) UpdateSession(ctx context.Context, s domain.StudySession) error {
	res, err := db.conn.ExecContext(ctx, `
		UPDATE study_sessions
		SET name = ?, mode = ?, end_time = ?, cards_reviewed = ?, correct_answers = ?,
			average_response_time = ?, is_completed = ?, abort_reason = ?
		WHERE id = ?
	`,
		s.Name,
		string(s.Mode),
		nullTime(s.EndTime),
		s.CardsReviewed,
		s.CorrectAnswers,
		s.AverageResponseTime,
		s.IsCompleted,
		s.AbortReason,
		s.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update session %d: %w", s.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("session %d: %w", s.ID, domain.ErrNotFound)
	}
	return nil
}

// GetSession retrieves a session by ID. It fails with domain.ErrNotFound
// when no session has that ID.
func (db *DB) GetSession(ctx context.Context, id int64) (domain.StudySession, error) {
	var (
		s   domain.StudySession
		end sql.NullTime
	)
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, name, mode, start_time, end_time, cards_reviewed, correct_answers,
			average_response_time, is_completed, abort_reason
		FROM study_sessions WHERE id = ?
	`, id)
	err := row.Scan(
		&s.ID,
		&s.Name,
		&s.Mode,
		&s.StartTime,
		&end,
		&s.CardsReviewed,
		&s.CorrectAnswers,
		&s.AverageResponseTime,
		&s.IsCompleted,
		&s.AbortReason,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.StudySession{}, fmt.Errorf("session %d: %w", id, domain.ErrNotFound)
		}
		return domain.StudySession{}, fmt.Errorf("failed to get session %d: %w", id, err)
	}
	s.EndTime = timePtr(end)
	return s, nil
}

// AppendReview inserts one answer event and returns it with its assigned ID.
// The log is append-only; there is no update path.
func (db *DB) AppendReview(ctx context.Context, r domain.SessionReview) (domain.SessionReview, error) {
	if err := r.Validate(); err != nil {
		return domain.SessionReview{}, err
	}
	var rating sql.NullInt64
	if r.DifficultyRating != nil {
		rating = sql.NullInt64{Int64: int64(*r.DifficultyRating), Valid: true}
	}
	var transcribed sql.NullString
	if r.TranscribedResponse != nil {
		transcribed = sql.NullString{String: *r.TranscribedResponse, Valid: true}
	}

	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO session_reviews (session_id, card_id, question_id, user_response,
			transcribed_response, is_correct, confidence, response_time_seconds,
			feedback, difficulty_rating, reviewed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.SessionID,
		r.CardID,
		r.QuestionID,
		r.UserResponse,
		transcribed,
		r.IsCorrect,
		r.Confidence,
		r.ResponseTimeSeconds,
		r.Feedback,
		rating,
		r.ReviewedAt,
	)
	if err != nil {
		return domain.SessionReview{}, fmt.Errorf("failed to insert review for session %d: %w", r.SessionID, err)
	}
	r.ID, err = res.LastInsertId()
	if err != nil {
		return domain.SessionReview{}, fmt.Errorf("failed to get review ID: %w", err)
	}
	return r, nil
}

// ReviewsBySession retrieves the answer events of one session in review
// order.
func (db *DB) ReviewsBySession(ctx context.Context, sessionID int64) ([]domain.SessionReview, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, session_id, card_id, question_id, user_response, transcribed_response,
			is_correct, confidence, response_time_seconds, feedback, difficulty_rating,
			reviewed_at
		FROM session_reviews WHERE session_id = ? ORDER BY id
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get reviews for session %d: %w", sessionID, err)
	}
	defer rows.Close()

	var reviews []domain.SessionReview
	for rows.Next() {
		var (
			r           domain.SessionReview
			transcribed sql.NullString
			rating      sql.NullInt64
		)
		if err := rows.Scan(
			&r.ID,
			&r.SessionID,
			&r.CardID,
			&r.QuestionID,
			&r.UserResponse,
			&transcribed,
			&r.IsCorrect,
			&r.Confidence,
			&r.ResponseTimeSeconds,
			&r.Feedback,
			&rating,
			&r.ReviewedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan review row: %w", err)
		}
		if transcribed.Valid {
			v := transcribed.String
			r.TranscribedResponse = &v
		}
		if rating.Valid {
			v := domain.DifficultyRating(rating.Int64)
			r.DifficultyRating = &v
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}
