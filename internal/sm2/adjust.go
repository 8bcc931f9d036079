package sm2

import (
	"math"
	"time"

	"github.com/recallkit/recallkit/internal/domain"
)

// Expected response times in seconds per grade, used to judge whether an
// answer came unusually fast or slow.
var expectedResponseTimes = map[Grade]float64{
	Perfect:       2.0,
	Good:          4.0,
	Hesitant:      8.0,
	IncorrectEasy: 15.0,
	Incorrect:     20.0,
	Blackout:      30.0,
}

// AdjustForResponseTime nudges an interval based on how long the answer
// took. Very fast answers suggest the card is too easy; very slow ones that
// it is still challenging. The result is at least one day. This is an
// optional refinement applied by callers on top of Schedule, never inside it.
func (s *Scheduler) AdjustForResponseTime(intervalDays int, g Grade, responseTime float64) int {
	if responseTime <= 0 {
		return intervalDays
	}
	expected, ok := expectedResponseTimes[g]
	if !ok {
		expected = 8.0
	}

	adjustment := 1.0
	switch {
	case responseTime < expected*0.5:
		adjustment = 1.2
	case responseTime < expected:
		adjustment = 1.1
	case responseTime > expected*2:
		adjustment = 0.8
	case responseTime > expected:
		adjustment = 0.9
	}

	adjusted := int(float64(intervalDays) * adjustment)
	if adjusted < 1 {
		adjusted = 1
	}
	if adjusted > s.params.MaxIntervalDays {
		adjusted = s.params.MaxIntervalDays
	}
	return adjusted
}

// DifficultyAdjustment returns an interval multiplier derived from the
// learner's own difficulty rating of a review.
func DifficultyAdjustment(d domain.DifficultyLevel) float64 {
	switch d {
	case domain.VeryEasy:
		return 1.3
	case domain.Easy:
		return 1.1
	case domain.Hard:
		return 0.9
	case domain.VeryHard:
		return 0.7
	default:
		return 1.0
	}
}

// RetentionRate estimates how well the material behind a progress record is
// retained at the given time, in [0, 1]. It combines historical accuracy
// with a 30-day recency decay and a small streak bonus.
func RetentionRate(p domain.ReviewProgress, now time.Time) float64 {
	if p.TotalReviews == 0 {
		return 0
	}

	base := p.Accuracy()

	var recency float64
	if p.LastReview != nil {
		days := now.Sub(*p.LastReview).Hours() / 24.0
		recency = math.Exp(-days / 30.0)
	}

	streak := math.Min(float64(p.Streak)/10.0, 0.2)

	rate := base*(0.8+0.2*recency) + streak
	return math.Max(0, math.Min(1, rate))
}

// PriorityScore ranks a progress record for study ordering: overdue records
// score highest, then poorly retained ones, then short streaks.
func PriorityScore(p domain.ReviewProgress, now time.Time) float64 {
	var overdue float64
	if p.NextReview != nil && p.NextReview.Before(now) {
		days := now.Sub(*p.NextReview).Hours() / 24.0
		overdue = math.Min(days*10, 100)
	}

	retention := (1.0 - RetentionRate(p, now)) * 50

	streak := math.Max(0, 20-float64(p.Streak))

	return overdue + retention + streak
}
