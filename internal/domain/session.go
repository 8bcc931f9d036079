package domain

import (
	"fmt"
	"time"
)

// StudySession is one pass through a set of due cards. It is created on
// session start, updated as reviews complete, and never mutated after
// completion.
type StudySession struct {
	ID                  int64
	Name                string
	Mode                StudyMode
	StartTime           time.Time
	EndTime             *time.Time
	CardsReviewed       int
	CorrectAnswers      int
	AverageResponseTime float64 // seconds
	IsCompleted         bool
	AbortReason         string
}

// Accuracy returns the fraction of reviewed cards answered correctly.
func (s StudySession) Accuracy() float64 {
	if s.CardsReviewed == 0 {
		return 0
	}
	return float64(s.CorrectAnswers) / float64(s.CardsReviewed)
}

// Duration returns the session length, using now for a session still open.
func (s StudySession) Duration(now time.Time) time.Duration {
	end := now
	if s.EndTime != nil {
		end = *s.EndTime
	}
	return end.Sub(s.StartTime)
}

// SessionReview is the append-only record of one answer event within a
// session.
type SessionReview struct {
	ID                  int64
	SessionID           int64 `validate:"required"`
	CardID              int64 `validate:"required"`
	QuestionID          int64 `validate:"required"`
	UserResponse        string
	TranscribedResponse *string
	IsCorrect           bool
	Confidence          float64 `validate:"gte=0,lte=1"`
	ResponseTimeSeconds float64 `validate:"gte=0"`
	Feedback            string
	DifficultyRating    *DifficultyRating
	ReviewedAt          time.Time
}

// Validate checks the review's field constraints.
func (r SessionReview) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("invalid session review: %w", err)
	}
	if r.DifficultyRating != nil && !r.DifficultyRating.IsValid() {
		return fmt.Errorf("invalid session review: difficulty rating %d out of range", *r.DifficultyRating)
	}
	return nil
}

// ProgressOverview summarizes the learner's position across all cards.
type ProgressOverview struct {
	TotalCards    int
	CardsNew      int // never reviewed
	CardsLearning int // reviewed, interval below the mastery threshold
	CardsMastered int // interval at or above the mastery threshold
	CardsDueToday int
	CardsOverdue  int
}
