package review

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/recallkit/recallkit/internal/domain"
)

var selectNow = time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

func ts(t time.Time) *time.Time { return &t }

func nextIDs(t *testing.T, q *Queue, n int) []int64 {
	t.Helper()
	ids := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		it, err := q.Next()
		if err != nil {
			t.Fatalf("next %d: %v", i, err)
		}
		ids = append(ids, it.Question.ID)
	}
	return ids
}

func TestSelectOrdering(t *testing.T) {
	store := newMemoryStore(
		makeItem(1, 1, domain.Medium, ts(selectNow.Add(2*time.Hour)), 3),      // future, excluded
		makeItem(2, 2, domain.Medium, ts(selectNow.AddDate(0, 0, -1)), 3),     // overdue by a day
		makeItem(3, 3, domain.Medium, ts(selectNow.AddDate(0, 0, -7)), 3),     // most overdue
		makeItem(4, 4, domain.Medium, ts(selectNow.Add(-time.Hour)), 3),       // due today
		makeItem(5, 5, domain.Medium, nil, 0),                                 // new
	)
	sel := NewDueSelector(store)

	q, err := sel.Select(context.Background(), Filters{IncludeNew: true}, selectNow)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if q.Len() != 4 {
		t.Fatalf("queue length = %d, want 4", q.Len())
	}

	got := nextIDs(t, q, 4)
	want := []int64{3, 2, 4, 5}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}

	if _, err := q.Next(); !errors.Is(err, domain.ErrQueueExhausted) {
		t.Errorf("next on empty queue: err=%v, want ErrQueueExhausted", err)
	}
}

func TestSelectNeverNewBeforeOverdue(t *testing.T) {
	// The ordering law: with due_only unset and overdue items present, a new
	// item must not lead the queue.
	store := newMemoryStore(
		makeItem(1, 1, domain.VeryEasy, nil, 0),                           // new, easiest
		makeItem(2, 2, domain.VeryHard, ts(selectNow.AddDate(0, 0, -3)), 5), // overdue, hardest
	)
	sel := NewDueSelector(store)

	q, err := sel.Select(context.Background(), Filters{IncludeNew: true}, selectNow)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	first, err := q.Next()
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if first.Card.ID != 2 {
		t.Errorf("first item card=%d, want the overdue card 2", first.Card.ID)
	}
}

func TestSelectDifficultyAndCreationTiebreaks(t *testing.T) {
	due := ts(selectNow.Add(-time.Minute))
	store := newMemoryStore(
		makeItem(3, 3, domain.Hard, due, 1),
		makeItem(2, 2, domain.Easy, due, 1),
		makeItem(1, 1, domain.Hard, due, 1),
	)
	sel := NewDueSelector(store)

	q, err := sel.Select(context.Background(), Filters{}, selectNow)
	if err != nil {
		t.Fatalf("select: %v", err)
	}

	// Equal due time: easier material first, then creation order.
	got := nextIDs(t, q, 3)
	want := []int64{2, 1, 3}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestSelectDueOnlyExcludesNew(t *testing.T) {
	store := newMemoryStore(
		makeItem(1, 1, domain.Medium, nil, 0),
		makeItem(2, 2, domain.Medium, ts(selectNow.Add(-time.Hour)), 2),
	)
	sel := NewDueSelector(store)

	q, err := sel.Select(context.Background(), Filters{DueOnly: true, IncludeNew: true}, selectNow)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if q.Len() != 1 {
		t.Fatalf("queue length = %d, want 1", q.Len())
	}
	it, _ := q.Next()
	if it.Card.ID != 2 {
		t.Errorf("got card %d, want 2", it.Card.ID)
	}
}

func TestSelectMaxCount(t *testing.T) {
	due := ts(selectNow.Add(-time.Minute))
	store := newMemoryStore(
		makeItem(1, 1, domain.Medium, due, 1),
		makeItem(2, 2, domain.Medium, due, 1),
		makeItem(3, 3, domain.Medium, due, 1),
	)
	sel := NewDueSelector(store)

	q, err := sel.Select(context.Background(), Filters{MaxCount: 2}, selectNow)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if q.Len() != 2 {
		t.Fatalf("queue length = %d, want 2", q.Len())
	}
	nextIDs(t, q, 2)
	if _, err := q.Next(); !errors.Is(err, domain.ErrQueueExhausted) {
		t.Errorf("err=%v, want ErrQueueExhausted after limit", err)
	}
}

func TestSelectEmptyIsValid(t *testing.T) {
	sel := NewDueSelector(newMemoryStore())
	q, err := sel.Select(context.Background(), Filters{}, selectNow)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if q.Len() != 0 {
		t.Errorf("queue length = %d, want 0", q.Len())
	}
}

func TestQueuePushFront(t *testing.T) {
	due := ts(selectNow.Add(-time.Minute))
	store := newMemoryStore(
		makeItem(1, 1, domain.Medium, due, 1),
		makeItem(2, 2, domain.Medium, due, 1),
	)
	sel := NewDueSelector(store)

	q, err := sel.Select(context.Background(), Filters{}, selectNow)
	if err != nil {
		t.Fatalf("select: %v", err)
	}

	first, err := q.Next()
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	q.PushFront(first)

	again, err := q.Next()
	if err != nil {
		t.Fatalf("next after push front: %v", err)
	}
	if again.Question.ID != first.Question.ID {
		t.Errorf("got question %d, want requeued %d", again.Question.ID, first.Question.ID)
	}
}
