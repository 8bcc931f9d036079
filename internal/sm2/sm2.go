// Package sm2 implements the SM-2 spaced repetition scheduling algorithm.
//
// The scheduler is a pure function over a progress record and a recall
// grade; it performs no I/O and is safe to call concurrently for distinct
// records.
package sm2

import (
	"fmt"
	"math"
	"time"

	"github.com/recallkit/recallkit/internal/domain"
)

// Grade is the 0..5 quality-of-recall rating consumed by the scheduler.
type Grade int

const (
	Blackout      Grade = iota // no recall at all
	Incorrect                  // wrong, but the answer was remembered once seen
	IncorrectEasy              // wrong, but the answer seemed easy to recall
	Hesitant                   // correct with serious difficulty
	Good                       // correct after a hesitation
	Perfect                    // effortless recall
)

// PassThreshold is the lowest grade counted as a correct answer.
const PassThreshold = Hesitant

// IsValid reports whether g is within the 0..5 scale.
func (g Grade) IsValid() bool {
	return g >= Blackout && g <= Perfect
}

// Correct reports whether g counts as a correct answer.
func (g Grade) Correct() bool {
	return g >= PassThreshold
}

var gradeNames = [...]string{
	Blackout:      "blackout",
	Incorrect:     "incorrect",
	IncorrectEasy: "incorrect_easy",
	Hesitant:      "hesitant",
	Good:          "good",
	Perfect:       "perfect",
}

// String returns the name of the grade. For invalid values it returns
// "Grade(n)".
func (g Grade) String() string {
	if g.IsValid() {
		return gradeNames[g]
	}
	return fmt.Sprintf("Grade(%d)", int(g))
}

// Params holds the tunable constants of the scheduler.
// Zero values produce defaults; see field comments.
type Params struct {
	DefaultEase     float64 // zero → 2.5; ease for freshly created records
	MinEase         float64 // zero → 1.3; floor applied after every update
	MaxIntervalDays int     // zero → 36500; cap on the computed interval
}

// DefaultParams returns the standard SM-2 constants.
func DefaultParams() Params {
	return Params{
		DefaultEase:     domain.DefaultEaseFactor,
		MinEase:         domain.MinEaseFactor,
		MaxIntervalDays: 36500,
	}
}

// Scheduler computes the next scheduling state for a progress record.
type Scheduler struct {
	params Params
}

// NewScheduler creates a Scheduler from the given params. Zero-value fields
// are filled with defaults; invalid values return an error.
func NewScheduler(p Params) (*Scheduler, error) {
	defaults := DefaultParams()
	if p.DefaultEase == 0 {
		p.DefaultEase = defaults.DefaultEase
	}
	if p.MinEase == 0 {
		p.MinEase = defaults.MinEase
	}
	if p.MaxIntervalDays == 0 {
		p.MaxIntervalDays = defaults.MaxIntervalDays
	}
	if p.MinEase <= 0 {
		return nil, fmt.Errorf("sm2: minimum ease %f must be positive", p.MinEase)
	}
	if p.DefaultEase < p.MinEase {
		return nil, fmt.Errorf("sm2: default ease %f below minimum %f", p.DefaultEase, p.MinEase)
	}
	if p.MaxIntervalDays < 1 {
		return nil, fmt.Errorf("sm2: maximum interval %d must be at least one day", p.MaxIntervalDays)
	}
	return &Scheduler{params: p}, nil
}

// Schedule computes the next scheduling state from the previous state and a
// grade. The input record is not mutated.
//
// Returns ErrInvalidGrade for a grade outside [0, 5] and ErrInvalidState if
// the input record already violates its invariants; both indicate a contract
// violation upstream and are never silently corrected.
func (s *Scheduler) Schedule(p domain.ReviewProgress, g Grade, now time.Time) (domain.ReviewProgress, error) {
	if !g.IsValid() {
		return domain.ReviewProgress{}, fmt.Errorf("%w: %d", domain.ErrInvalidGrade, int(g))
	}
	if err := p.Validate(); err != nil {
		return domain.ReviewProgress{}, err
	}

	out := p

	// EF' = EF + (0.1 - (5-q) * (0.08 + (5-q) * 0.02)), floored at MinEase.
	q := float64(g)
	out.EaseFactor = p.EaseFactor + (0.1 - (5-q)*(0.08+(5-q)*0.02))
	if out.EaseFactor < s.params.MinEase {
		out.EaseFactor = s.params.MinEase
	}

	if g.Correct() {
		out.Repetitions = p.Repetitions + 1
		out.Streak = p.Streak + 1
		switch out.Repetitions {
		case 1:
			out.IntervalDays = 1
		case 2:
			out.IntervalDays = 6
		default:
			out.IntervalDays = int(math.Round(float64(p.IntervalDays) * out.EaseFactor))
		}
		if out.IntervalDays > s.params.MaxIntervalDays {
			out.IntervalDays = s.params.MaxIntervalDays
		}
		out.CorrectReviews = p.CorrectReviews + 1
	} else {
		out.Repetitions = 0
		out.Streak = 0
		out.IntervalDays = 1
	}

	out.TotalReviews = p.TotalReviews + 1
	out.LastReview = &now

	// Whole days from the review instant, no timezone drift.
	next := now.AddDate(0, 0, out.IntervalDays)
	out.NextReview = &next

	return out, nil
}
