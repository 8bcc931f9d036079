package review

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/recallkit/recallkit/internal/domain"
	"github.com/recallkit/recallkit/internal/logger"
	"github.com/recallkit/recallkit/internal/sm2"
)

// State is the lifecycle stage of a session. Completed and Aborted are
// terminal.
type State int

const (
	NotStarted State = iota
	InProgress
	Completed
	Aborted
)

var stateNames = [...]string{
	NotStarted: "not_started",
	InProgress: "in_progress",
	Completed:  "completed",
	Aborted:    "aborted",
}

// String returns the snake_case name of the state.
func (s State) String() string {
	if s >= NotStarted && s <= Aborted {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Options tunes a Controller. Zero values produce defaults.
type Options struct {
	Clock        Clock                // nil → SystemClock
	Logger       *logger.Logger       // nil → no-op logger
	MapGrade     GradeMapper          // nil → DefaultGradeMapper
	MaxRetries   int                  // zero → 3; persistence retry budget
	RetryBackoff time.Duration        // zero → 200ms; doubles per attempt
	AllowEmpty   bool                 // start succeeds with an empty queue
	Sleep        func(time.Duration)  // nil → time.Sleep; injected in tests
}

// Answer carries one submitted response.
type Answer struct {
	QuestionID       int64
	Response         string
	Transcription    *string // set when the response was voice-sourced
	LatencySeconds   float64
	DifficultyRating *domain.DifficultyRating
}

// Summary is the final accounting of a completed session.
type Summary struct {
	CardsReviewed       int
	CorrectAnswers      int
	Accuracy            float64
	AverageResponseTime float64
	Duration            time.Duration
}

// Controller drives one study session through the
// NotStarted → InProgress → {Completed, Aborted} state machine. Every
// submitted answer is committed synchronously, so an abort never loses
// reviews already recorded. All methods are safe for concurrent use; calls
// against a single progress record are serialized by the controller.
type Controller struct {
	mu        sync.Mutex
	state     State
	progress  ProgressStore
	sessions  SessionStore
	selector  *DueSelector
	scheduler *sm2.Scheduler
	evaluator AnswerEvaluator
	opts      Options
	log       *logger.Logger

	record       domain.StudySession
	queue        *Queue
	outstanding  *Item
	totalLatency float64
	summary      Summary
}

// NewController wires a session controller. The evaluator and grade mapper
// are the policy knobs behind the different study modes; the state machine
// itself is shared.
func NewController(progress ProgressStore, sessions SessionStore, scheduler *sm2.Scheduler, evaluator AnswerEvaluator, opts Options) *Controller {
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNop()
	}
	if opts.MapGrade == nil {
		opts.MapGrade = DefaultGradeMapper
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.RetryBackoff == 0 {
		opts.RetryBackoff = 200 * time.Millisecond
	}
	if opts.Sleep == nil {
		opts.Sleep = time.Sleep
	}
	return &Controller{
		progress:  progress,
		sessions:  sessions,
		selector:  NewDueSelector(progress),
		scheduler: scheduler,
		evaluator: evaluator,
		opts:      opts,
		log:       opts.Logger,
	}
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Session returns a snapshot of the session record.
func (c *Controller) Session() domain.StudySession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.record
}

// Start builds the review queue and opens the session record. It fails with
// domain.ErrEmptyQueue when the filters match nothing and AllowEmpty is
// unset.
func (c *Controller) Start(ctx context.Context, f Filters, mode domain.StudyMode, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != NotStarted {
		return fmt.Errorf("start in state %s: %w", c.state, domain.ErrSessionState)
	}
	if !mode.IsValid() {
		return fmt.Errorf("start: unknown study mode %q", mode)
	}

	now := c.opts.Clock.Now()
	q, err := c.selector.Select(ctx, f, now)
	if err != nil {
		return err
	}
	if q.Len() == 0 && !c.opts.AllowEmpty {
		return domain.ErrEmptyQueue
	}

	rec := domain.StudySession{Name: name, Mode: mode, StartTime: now}
	err = c.withRetry(ctx, "create session", func() error {
		var cerr error
		rec, cerr = c.sessions.CreateSession(ctx, rec)
		return cerr
	})
	if err != nil {
		return err
	}

	c.record = rec
	c.queue = q
	c.state = InProgress
	c.log.Info("session started",
		"session_id", rec.ID, "mode", string(mode), "queued", q.Len())
	return nil
}

// NextCard deals the next item from the queue. It fails with
// domain.ErrQueueExhausted when no items remain (the caller should then call
// Complete) and with domain.ErrOutOfOrder while a dealt question is still
// awaiting an answer.
func (c *Controller) NextCard(ctx context.Context) (Item, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != InProgress {
		return Item{}, fmt.Errorf("next card in state %s: %w", c.state, domain.ErrSessionState)
	}
	if c.outstanding != nil {
		return Item{}, fmt.Errorf("question %d still awaiting an answer: %w",
			c.outstanding.Question.ID, domain.ErrOutOfOrder)
	}
	it, err := c.queue.Next()
	if err != nil {
		return Item{}, err
	}
	c.outstanding = &it
	return it, nil
}

// SubmitAnswer grades the outstanding question with the injected evaluator
// and commits the outcome. When the evaluator fails, the item returns to the
// head of the queue unscored and the error wraps
// domain.ErrEvaluationUnavailable, so the learner can retry.
func (c *Controller) SubmitAnswer(ctx context.Context, ans Answer) (domain.SessionReview, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkOutstanding(ans.QuestionID); err != nil {
		return domain.SessionReview{}, err
	}

	q := c.outstanding.Question
	eval, err := c.evaluator.Evaluate(ctx, q.QuestionText, q.AnswerText, ans.Response)
	if err != nil {
		c.queue.PushFront(*c.outstanding)
		c.outstanding = nil
		c.log.Warn("evaluation unavailable, requeued item",
			"session_id", c.record.ID, "question_id", q.ID, "error", err)
		return domain.SessionReview{}, fmt.Errorf("%w: %v", domain.ErrEvaluationUnavailable, err)
	}

	return c.commitReview(ctx, ans, eval)
}

// SubmitEvaluated commits an externally supplied evaluation for the
// outstanding question. This is the path for modes where the learner (or an
// upstream system) makes the grading decision.
func (c *Controller) SubmitEvaluated(ctx context.Context, ans Answer, eval Evaluation) (domain.SessionReview, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkOutstanding(ans.QuestionID); err != nil {
		return domain.SessionReview{}, err
	}
	return c.commitReview(ctx, ans, eval)
}

// Complete finalizes the session. Calling it again on a completed session
// returns the same summary without touching the record.
func (c *Controller) Complete(ctx context.Context) (Summary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == Completed {
		return c.summary, nil
	}
	if c.state != InProgress {
		return Summary{}, fmt.Errorf("complete in state %s: %w", c.state, domain.ErrSessionState)
	}

	now := c.opts.Clock.Now()
	end := now
	c.record.EndTime = &end
	c.record.IsCompleted = true

	err := c.withRetry(ctx, "finalize session", func() error {
		return c.sessions.UpdateSession(ctx, c.record)
	})
	if err != nil {
		// Leave the session in progress so completion can be retried.
		c.record.EndTime = nil
		c.record.IsCompleted = false
		return Summary{}, err
	}

	c.state = Completed
	c.summary = Summary{
		CardsReviewed:       c.record.CardsReviewed,
		CorrectAnswers:      c.record.CorrectAnswers,
		Accuracy:            c.record.Accuracy(),
		AverageResponseTime: c.record.AverageResponseTime,
		Duration:            c.record.Duration(now),
	}
	c.log.Info("session completed",
		"session_id", c.record.ID,
		"cards_reviewed", c.summary.CardsReviewed,
		"accuracy", c.summary.Accuracy)
	return c.summary, nil
}

// Abort ends the session early, recording the reason. Reviews already
// committed are preserved.
func (c *Controller) Abort(ctx context.Context, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != InProgress {
		return fmt.Errorf("abort in state %s: %w", c.state, domain.ErrSessionState)
	}
	c.abortLocked(ctx, reason, c.opts.Clock.Now())
	return nil
}

func (c *Controller) checkOutstanding(questionID int64) error {
	if c.state != InProgress {
		return fmt.Errorf("submit in state %s: %w", c.state, domain.ErrSessionState)
	}
	if c.outstanding == nil {
		return fmt.Errorf("no question outstanding: %w", domain.ErrOutOfOrder)
	}
	if c.outstanding.Question.ID != questionID {
		return fmt.Errorf("question %d submitted while %d is outstanding: %w",
			questionID, c.outstanding.Question.ID, domain.ErrOutOfOrder)
	}
	return nil
}

// commitReview schedules, persists and records one graded answer. Called
// with the mutex held.
func (c *Controller) commitReview(ctx context.Context, ans Answer, eval Evaluation) (domain.SessionReview, error) {
	item := *c.outstanding
	now := c.opts.Clock.Now()
	grade := c.opts.MapGrade(eval, ans.LatencySeconds)

	saved, err := c.persistScheduled(ctx, &item, grade, now)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidGrade) || errors.Is(err, domain.ErrInvalidState) {
			// Contract violation upstream; surface without touching the session.
			return domain.SessionReview{}, err
		}
		c.abortLocked(ctx, fmt.Sprintf("persistence failure: %v", err), now)
		return domain.SessionReview{}, err
	}

	rev := domain.SessionReview{
		SessionID:           c.record.ID,
		CardID:              item.Card.ID,
		QuestionID:          item.Question.ID,
		UserResponse:        ans.Response,
		TranscribedResponse: ans.Transcription,
		IsCorrect:           eval.IsCorrect,
		Confidence:          eval.Confidence,
		ResponseTimeSeconds: ans.LatencySeconds,
		Feedback:            eval.Feedback,
		DifficultyRating:    ans.DifficultyRating,
		ReviewedAt:          now,
	}
	err = c.withRetry(ctx, "append review", func() error {
		var aerr error
		rev, aerr = c.sessions.AppendReview(ctx, rev)
		return aerr
	})
	if err != nil {
		c.abortLocked(ctx, fmt.Sprintf("persistence failure: %v", err), now)
		return domain.SessionReview{}, err
	}

	c.record.CardsReviewed++
	if eval.IsCorrect {
		c.record.CorrectAnswers++
	}
	c.totalLatency += ans.LatencySeconds
	c.record.AverageResponseTime = c.totalLatency / float64(c.record.CardsReviewed)

	err = c.withRetry(ctx, "update session counters", func() error {
		return c.sessions.UpdateSession(ctx, c.record)
	})
	if err != nil {
		c.abortLocked(ctx, fmt.Sprintf("persistence failure: %v", err), now)
		return domain.SessionReview{}, err
	}

	c.outstanding = nil
	c.log.Debug("review committed",
		"session_id", c.record.ID,
		"card_id", item.Card.ID,
		"question_id", item.Question.ID,
		"grade", grade.String(),
		"interval_days", saved.IntervalDays)
	return rev, nil
}

// persistScheduled computes and saves the next scheduling state. A version
// conflict refreshes the record and recomputes; other persistence failures
// are retried with backoff until the budget runs out.
func (c *Controller) persistScheduled(ctx context.Context, item *Item, grade sm2.Grade, now time.Time) (domain.ReviewProgress, error) {
	backoff := c.opts.RetryBackoff
	var lastErr error

	for attempt := 0; attempt <= c.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			c.log.Warn("retrying progress save",
				"attempt", attempt, "card_id", item.Card.ID, "error", lastErr)
			c.opts.Sleep(backoff)
			backoff *= 2
		}

		scheduled, err := c.scheduler.Schedule(item.Progress, grade, now)
		if err != nil {
			return domain.ReviewProgress{}, err
		}

		saved, err := c.progress.SaveProgress(ctx, scheduled)
		if err == nil {
			item.Progress = saved
			return saved, nil
		}
		lastErr = err

		if errors.Is(err, domain.ErrVersionConflict) {
			fresh, gerr := c.progress.GetOrCreateProgress(ctx, item.Card.ID, item.Progress.QuestionID)
			if gerr == nil {
				item.Progress = fresh
			}
		}
		if ctx.Err() != nil {
			return domain.ReviewProgress{}, ctx.Err()
		}
	}
	return domain.ReviewProgress{}, fmt.Errorf("save progress: retries exhausted: %w", lastErr)
}

// withRetry runs fn up to MaxRetries+1 times with doubling backoff.
func (c *Controller) withRetry(ctx context.Context, op string, fn func() error) error {
	backoff := c.opts.RetryBackoff
	var err error
	for attempt := 0; attempt <= c.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			c.log.Warn("retrying store operation", "op", op, "attempt", attempt, "error", err)
			c.opts.Sleep(backoff)
			backoff *= 2
		}
		if err = fn(); err == nil {
			return nil
		}
		if errors.Is(err, domain.ErrNotFound) || ctx.Err() != nil {
			break
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// abortLocked moves the session to Aborted, best-effort persisting the
// outcome. Called with the mutex held.
func (c *Controller) abortLocked(ctx context.Context, reason string, now time.Time) {
	end := now
	c.record.EndTime = &end
	c.record.AbortReason = reason
	if err := c.sessions.UpdateSession(ctx, c.record); err != nil {
		c.log.Error("failed to persist aborted session",
			"session_id", c.record.ID, "error", err)
	}
	c.state = Aborted
	c.log.Info("session aborted", "session_id", c.record.ID, "reason", reason)
}
