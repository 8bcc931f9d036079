package domain

import (
	"fmt"
	"time"
)

// Scheduling defaults for a progress record that has never been reviewed.
const (
	DefaultEaseFactor  = 2.5
	MinEaseFactor      = 1.3
	DefaultIntervalDay = 1
)

// ReviewProgress is the scheduling state for a (card, question) pair. It is
// created lazily on first review and mutated exclusively by the scheduler.
//
// Repetitions counts consecutive correct answers and resets to zero on any
// grade below the correctness threshold; Streak is the learner-facing
// counterpart with the same reset rule.
type ReviewProgress struct {
	ID             int64
	CardID         int64 `validate:"required"`
	QuestionID     *int64
	EaseFactor     float64 `validate:"gte=1.3"`
	IntervalDays   int     `validate:"gte=1"`
	Repetitions    int     `validate:"gte=0"`
	LastReview     *time.Time
	NextReview     *time.Time
	TotalReviews   int `validate:"gte=0"`
	CorrectReviews int `validate:"gte=0"`
	Streak         int `validate:"gte=0"`
	Version        int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewReviewProgress returns a fresh progress record with scheduling defaults.
func NewReviewProgress(cardID int64, questionID *int64) ReviewProgress {
	return ReviewProgress{
		CardID:       cardID,
		QuestionID:   questionID,
		EaseFactor:   DefaultEaseFactor,
		IntervalDays: DefaultIntervalDay,
	}
}

// Validate checks every invariant that must hold for a progress record at
// rest. A record that fails here was not produced by the scheduler.
func (p ReviewProgress) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	if p.CorrectReviews > p.TotalReviews {
		return fmt.Errorf("%w: correct_reviews %d exceeds total_reviews %d",
			ErrInvalidState, p.CorrectReviews, p.TotalReviews)
	}
	return nil
}

// Accuracy returns the fraction of reviews answered correctly, in [0, 1].
func (p ReviewProgress) Accuracy() float64 {
	if p.TotalReviews == 0 {
		return 0
	}
	return float64(p.CorrectReviews) / float64(p.TotalReviews)
}

// IsDue reports whether the record is due for review at the given time.
// A record that was never scheduled is always due.
func (p ReviewProgress) IsDue(now time.Time) bool {
	if p.NextReview == nil {
		return true
	}
	return !now.Before(*p.NextReview)
}
