// Package review sequences due cards through a study session: the
// DueSelector builds a prioritized queue, and the Controller drives the
// session state machine, invoking the scheduler and persisting outcomes.
package review

import (
	"context"
	"time"

	"github.com/recallkit/recallkit/internal/domain"
	"github.com/recallkit/recallkit/internal/sm2"
)

// Clock supplies the current time. Injected so sessions and selectors are
// deterministic under test.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall-clock implementation of Clock.
type SystemClock struct{}

// Now returns the current wall-clock time.
func (SystemClock) Now() time.Time { return time.Now() }

// Item is one (card, question) pair pending review, together with its
// current scheduling state.
type Item struct {
	Card     domain.Card
	Question domain.Question
	Progress domain.ReviewProgress
}

// Filters narrows which (card, question) pairs a session considers.
type Filters struct {
	Tags          []string               // card must carry every listed tag
	MinDifficulty domain.DifficultyLevel // zero → no lower bound
	MaxDifficulty domain.DifficultyLevel // zero → no upper bound
	DueOnly       bool                   // exclude never-reviewed material
	IncludeNew    bool                   // admit never-reviewed material
	MaxCount      int                    // zero → unlimited
}

// Evaluation is an externally supplied judgment of one answer.
type Evaluation struct {
	IsCorrect  bool
	Confidence float64 // [0, 1]
	Feedback   string
}

// AnswerEvaluator judges a learner's answer against the expected one.
// Implementations may call out to an external service; a failure is treated
// as "evaluation unavailable" and never advances scheduling.
type AnswerEvaluator interface {
	Evaluate(ctx context.Context, question, expectedAnswer, userAnswer string) (Evaluation, error)
}

// GeneratedQuestion is one phrasing produced by a QuestionGenerator.
type GeneratedQuestion struct {
	QuestionText string
	AnswerText   string
	Difficulty   domain.DifficultyLevel
}

// QuestionGenerator produces question phrasings for a card's content.
type QuestionGenerator interface {
	Generate(ctx context.Context, content string, count int) ([]GeneratedQuestion, error)
}

// ProgressStore is the durable mapping from (card, question) identity to
// scheduling state. Get and save must be atomic per key; SaveProgress
// returns domain.ErrVersionConflict when an optimistic update loses a race.
type ProgressStore interface {
	ListCandidates(ctx context.Context, f Filters) ([]Item, error)
	GetOrCreateProgress(ctx context.Context, cardID int64, questionID *int64) (domain.ReviewProgress, error)
	SaveProgress(ctx context.Context, p domain.ReviewProgress) (domain.ReviewProgress, error)
}

// SessionStore persists study sessions and their append-only review records.
type SessionStore interface {
	CreateSession(ctx context.Context, s domain.StudySession) (domain.StudySession, error)
	UpdateSession(ctx context.Context, s domain.StudySession) error
	AppendReview(ctx context.Context, r domain.SessionReview) (domain.SessionReview, error)
}

// GradeMapper translates an evaluation into the 0..5 grade consumed by the
// scheduler. The mapping must be monotonic in confidence.
type GradeMapper func(eval Evaluation, responseTime float64) sm2.Grade

// DefaultGradeMapper applies the standard confidence-band mapping.
func DefaultGradeMapper(eval Evaluation, responseTime float64) sm2.Grade {
	return sm2.GradeFromEvaluation(eval.IsCorrect, eval.Confidence, responseTime)
}
