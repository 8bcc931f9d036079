package domain

import "errors"

// Sentinel errors for the recallkit packages.
// Use errors.Is to check: errors.Is(err, domain.ErrInvalidGrade)
var (
	// ErrInvalidGrade is returned when a recall grade is outside [0, 5].
	ErrInvalidGrade = errors.New("recallkit: grade out of range")

	// ErrInvalidState is returned when a progress record violates its
	// invariants (ease factor below 1.3, negative counters, and so on).
	ErrInvalidState = errors.New("recallkit: progress violates invariants")

	// ErrNotFound is returned when a card, question or session id is unknown.
	ErrNotFound = errors.New("recallkit: record not found")

	// ErrEmptyQueue is returned by session start when the filters match
	// nothing and the caller required at least one item.
	ErrEmptyQueue = errors.New("recallkit: no cards match the session filters")

	// ErrQueueExhausted is returned when the review queue has no more items.
	ErrQueueExhausted = errors.New("recallkit: review queue exhausted")

	// ErrOutOfOrder is returned when an answer is submitted for a question
	// other than the one last dealt, or when a new card is requested while
	// an answer is still outstanding.
	ErrOutOfOrder = errors.New("recallkit: submission does not match the outstanding question")

	// ErrSessionState is returned for operations invoked in the wrong
	// session state, e.g. submitting before Start.
	ErrSessionState = errors.New("recallkit: operation not valid in current session state")

	// ErrVersionConflict is returned when an optimistic progress update
	// loses a compare-and-swap race.
	ErrVersionConflict = errors.New("recallkit: progress version conflict")

	// ErrEvaluationUnavailable is returned when the answer evaluator failed
	// or timed out; the review is not scored.
	ErrEvaluationUnavailable = errors.New("recallkit: answer evaluation unavailable")
)
