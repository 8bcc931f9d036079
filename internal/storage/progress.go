package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/recallkit/recallkit/internal/domain"
	"github.com/recallkit/recallkit/internal/review"
)

// Interval at or above which a card counts as mastered in the overview.
const masteryIntervalDays = 21

// ListCandidates returns every active (card, question) pair matching the
// filters, joined with its scheduling state. Pairs never reviewed carry a
// fresh progress record. Due/new classification is left to the selector.
func (db *DB) ListCandidates(ctx context.Context, f review.Filters) ([]review.Item, error) {
	query := `
		SELECT c.id, c.content, c.source_material, c.tags, c.difficulty, c.is_active,
			c.source_id, c.fingerprint, c.created_at, c.updated_at,
			q.id, q.card_id, q.question_text, q.answer_text, q.question_type,
			q.difficulty, q.created_at,
			p.id, p.ease_factor, p.interval_days, p.repetitions, p.last_review,
			p.next_review, p.total_reviews, p.correct_reviews, p.streak, p.version,
			p.created_at, p.updated_at
		FROM questions q
		JOIN cards c ON c.id = q.card_id
		LEFT JOIN user_progress p ON p.card_id = c.id AND p.question_id = q.id
		WHERE c.is_active = 1`
	args := []any{}
	if f.MinDifficulty != 0 {
		query += ` AND c.difficulty >= ?`
		args = append(args, f.MinDifficulty)
	}
	if f.MaxDifficulty != 0 {
		query += ` AND c.difficulty <= ?`
		args = append(args, f.MaxDifficulty)
	}
	query += ` ORDER BY c.id, q.id`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list review candidates: %w", err)
	}
	defer rows.Close()

	var items []review.Item
	for rows.Next() {
		var (
			it       review.Item
			tags     string
			sourceID sql.NullInt64

			pID        sql.NullInt64
			pEase      sql.NullFloat64
			pInterval  sql.NullInt64
			pReps      sql.NullInt64
			pLast      sql.NullTime
			pNext      sql.NullTime
			pTotal     sql.NullInt64
			pCorrect   sql.NullInt64
			pStreak    sql.NullInt64
			pVersion   sql.NullInt64
			pCreatedAt sql.NullTime
			pUpdatedAt sql.NullTime
		)
		err := rows.Scan(
			&it.Card.ID, &it.Card.Content, &it.Card.SourceMaterial, &tags,
			&it.Card.Difficulty, &it.Card.IsActive, &sourceID, &it.Card.Fingerprint,
			&it.Card.CreatedAt, &it.Card.UpdatedAt,
			&it.Question.ID, &it.Question.CardID, &it.Question.QuestionText,
			&it.Question.AnswerText, &it.Question.Type, &it.Question.Difficulty,
			&it.Question.CreatedAt,
			&pID, &pEase, &pInterval, &pReps, &pLast, &pNext,
			&pTotal, &pCorrect, &pStreak, &pVersion, &pCreatedAt, &pUpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan candidate row: %w", err)
		}
		it.Card.Tags = decodeTags(tags)
		it.Card.SourceID = int64Ptr(sourceID)

		if !matchesTags(it.Card.Tags, f.Tags) {
			continue
		}

		qid := it.Question.ID
		if pID.Valid {
			it.Progress = domain.ReviewProgress{
				ID:             pID.Int64,
				CardID:         it.Card.ID,
				QuestionID:     &qid,
				EaseFactor:     pEase.Float64,
				IntervalDays:   int(pInterval.Int64),
				Repetitions:    int(pReps.Int64),
				LastReview:     timePtr(pLast),
				NextReview:     timePtr(pNext),
				TotalReviews:   int(pTotal.Int64),
				CorrectReviews: int(pCorrect.Int64),
				Streak:         int(pStreak.Int64),
				Version:        pVersion.Int64,
				CreatedAt:      pCreatedAt.Time,
				UpdatedAt:      pUpdatedAt.Time,
			}
		} else {
			it.Progress = domain.NewReviewProgress(it.Card.ID, &qid)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// matchesTags reports whether the card tags contain every wanted tag.
func matchesTags(cardTags, wanted []string) bool {
	for _, w := range wanted {
		found := false
		for _, t := range cardTags {
			if t == w {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

const progressColumns = `id, card_id, question_id, ease_factor, interval_days,
	repetitions, last_review, next_review, total_reviews, correct_reviews,
	streak, version, created_at, updated_at`

func scanProgress(row interface{ Scan(...any) error }) (domain.ReviewProgress, error) {
	var (
		p          domain.ReviewProgress
		questionID sql.NullInt64
		last, next sql.NullTime
	)
	err := row.Scan(
		&p.ID,
		&p.CardID,
		&questionID,
		&p.EaseFactor,
		&p.IntervalDays,
		&p.Repetitions,
		&last,
		&next,
		&p.TotalReviews,
		&p.CorrectReviews,
		&p.Streak,
		&p.Version,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return domain.ReviewProgress{}, err
	}
	p.QuestionID = int64Ptr(questionID)
	p.LastReview = timePtr(last)
	p.NextReview = timePtr(next)
	return p, nil
}

// GetOrCreateProgress fetches the progress record for a (card, question)
// pair, inserting a fresh one on first use.
func (db *DB) GetOrCreateProgress(ctx context.Context, cardID int64, questionID *int64) (domain.ReviewProgress, error) {
	query := `SELECT ` + progressColumns + ` FROM user_progress WHERE card_id = ?`
	args := []any{cardID}
	if questionID == nil {
		query += ` AND question_id IS NULL`
	} else {
		query += ` AND question_id = ?`
		args = append(args, *questionID)
	}

	p, err := scanProgress(db.conn.QueryRowContext(ctx, query, args...))
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return domain.ReviewProgress{}, fmt.Errorf("failed to get progress for card %d: %w", cardID, err)
	}

	p = domain.NewReviewProgress(cardID, questionID)
	now := db.now()
	p.CreatedAt = now
	p.UpdatedAt = now
	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO user_progress (card_id, question_id, ease_factor, interval_days,
			repetitions, total_reviews, correct_reviews, streak, version,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, 0, 0, 0, 0, 0, ?, ?)
	`, cardID, nullInt64(questionID), p.EaseFactor, p.IntervalDays, now, now)
	if err != nil {
		return domain.ReviewProgress{}, fmt.Errorf("failed to create progress for card %d: %w", cardID, err)
	}
	p.ID, err = res.LastInsertId()
	if err != nil {
		return domain.ReviewProgress{}, fmt.Errorf("failed to get progress ID: %w", err)
	}
	return p, nil
}

// SaveProgress persists a scheduled progress record. Updates are guarded by
// the record's version: a stale version fails with domain.ErrVersionConflict
// and the caller must re-fetch and re-schedule. The returned record carries
// the new version.
func (db *DB) SaveProgress(ctx context.Context, p domain.ReviewProgress) (domain.ReviewProgress, error) {
	if err := p.Validate(); err != nil {
		return domain.ReviewProgress{}, err
	}
	now := db.now()

	if p.ID == 0 {
		p.CreatedAt = now
		p.UpdatedAt = now
		p.Version = 1
		res, err := db.conn.ExecContext(ctx, `
			INSERT INTO user_progress (card_id, question_id, ease_factor, interval_days,
				repetitions, last_review, next_review, total_reviews, correct_reviews,
				streak, version, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			p.CardID, nullInt64(p.QuestionID), p.EaseFactor, p.IntervalDays,
			p.Repetitions, nullTime(p.LastReview), nullTime(p.NextReview),
			p.TotalReviews, p.CorrectReviews, p.Streak, p.Version,
			p.CreatedAt, p.UpdatedAt,
		)
		if err != nil {
			return domain.ReviewProgress{}, fmt.Errorf("failed to insert progress for card %d: %w", p.CardID, err)
		}
		p.ID, err = res.LastInsertId()
		if err != nil {
			return domain.ReviewProgress{}, fmt.Errorf("failed to get progress ID: %w", err)
		}
		return p, nil
	}

	res, err := db.conn.ExecContext(ctx, `
		UPDATE user_progress
		SET ease_factor = ?, interval_days = ?, repetitions = ?, last_review = ?,
			next_review = ?, total_reviews = ?, correct_reviews = ?, streak = ?,
			version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?
	`,
		p.EaseFactor, p.IntervalDays, p.Repetitions, nullTime(p.LastReview),
		nullTime(p.NextReview), p.TotalReviews, p.CorrectReviews, p.Streak,
		now, p.ID, p.Version,
	)
	if err != nil {
		return domain.ReviewProgress{}, fmt.Errorf("failed to update progress %d: %w", p.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.ReviewProgress{}, fmt.Errorf("failed to read update result for progress %d: %w", p.ID, err)
	}
	if n == 0 {
		var exists int
		row := db.conn.QueryRowContext(ctx,
			`SELECT COUNT(1) FROM user_progress WHERE id = ?`, p.ID)
		if err := row.Scan(&exists); err != nil {
			return domain.ReviewProgress{}, fmt.Errorf("failed to check progress %d: %w", p.ID, err)
		}
		if exists == 0 {
			return domain.ReviewProgress{}, fmt.Errorf("progress %d: %w", p.ID, domain.ErrNotFound)
		}
		return domain.ReviewProgress{}, fmt.Errorf("progress %d at version %d: %w", p.ID, p.Version, domain.ErrVersionConflict)
	}
	p.Version++
	p.UpdatedAt = now
	return p, nil
}

// Overview summarizes the learner's position across all active cards at the
// given time. A card's class follows its most advanced progress record.
func (db *DB) Overview(ctx context.Context, now time.Time) (domain.ProgressOverview, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT c.id, p.total_reviews, p.interval_days, p.next_review
		FROM cards c
		LEFT JOIN user_progress p ON p.card_id = c.id
		WHERE c.is_active = 1
		ORDER BY c.id
	`)
	if err != nil {
		return domain.ProgressOverview{}, fmt.Errorf("failed to build overview: %w", err)
	}
	defer rows.Close()

	// A card may carry several progress records (per question); fold them to
	// the card's most advanced state and earliest due time.
	type cardState struct {
		totalReviews int
		intervalDays int
		next         *time.Time
	}
	states := make(map[int64]*cardState)
	for rows.Next() {
		var (
			cardID       int64
			totalReviews sql.NullInt64
			intervalDays sql.NullInt64
			next         sql.NullTime
		)
		if err := rows.Scan(&cardID, &totalReviews, &intervalDays, &next); err != nil {
			return domain.ProgressOverview{}, fmt.Errorf("failed to scan overview row: %w", err)
		}
		st, ok := states[cardID]
		if !ok {
			st = &cardState{}
			states[cardID] = st
		}
		if int(totalReviews.Int64) > st.totalReviews {
			st.totalReviews = int(totalReviews.Int64)
		}
		if int(intervalDays.Int64) > st.intervalDays {
			st.intervalDays = int(intervalDays.Int64)
		}
		if next.Valid && (st.next == nil || next.Time.Before(*st.next)) {
			t := next.Time
			st.next = &t
		}
	}
	if err := rows.Err(); err != nil {
		return domain.ProgressOverview{}, err
	}

	var o domain.ProgressOverview
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	for _, st := range states {
		o.TotalCards++
		switch {
		case st.totalReviews == 0:
			o.CardsNew++
		case st.intervalDays >= masteryIntervalDays:
			o.CardsMastered++
		default:
			o.CardsLearning++
		}
		if st.next != nil && !st.next.After(now) {
			if st.next.Before(startOfDay) {
				o.CardsOverdue++
			} else {
				o.CardsDueToday++
			}
		}
	}
	return o, nil
}
