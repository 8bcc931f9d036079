package review

import (
	"container/heap"
	"context"
	"fmt"
	"time"

	"github.com/recallkit/recallkit/internal/domain"
)

// Review priority classes, most urgent first.
const (
	classOverdue  = iota // next review missed on a previous day
	classDueToday        // next review elapsed today
	classNew             // never scheduled
)

// DueSelector orders the set of candidate (card, question) pairs by review
// priority at a point in time.
type DueSelector struct {
	store ProgressStore
}

// NewDueSelector creates a selector over the given store.
func NewDueSelector(store ProgressStore) *DueSelector {
	return &DueSelector{store: store}
}

// Select builds the review queue for the given filters and time. The queue
// is ordered lazily: items are kept in a heap and surfaced one at a time as
// the session consumes them. Re-invoking Select with a new time is required
// to observe state changes; a queue never refreshes itself.
//
// Ordering: overdue items first (most overdue leading), then items due
// today, then new items when the filters admit them. Ties break by lower
// question difficulty, then by creation order. An empty queue is valid and
// signals nothing due.
func (s *DueSelector) Select(ctx context.Context, f Filters, now time.Time) (*Queue, error) {
	candidates, err := s.store.ListCandidates(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("select due cards: %w", err)
	}

	h := &itemHeap{}
	for _, it := range candidates {
		class, ok := classify(it.Progress, now)
		if !ok {
			continue
		}
		if class == classNew && (f.DueOnly || !f.IncludeNew) {
			continue
		}
		h.entries = append(h.entries, entry{item: it, class: class})
	}
	heap.Init(h)

	limit := f.MaxCount
	if limit <= 0 || limit > h.Len() {
		limit = h.Len()
	}
	return &Queue{h: h, remaining: limit}, nil
}

// classify places a progress record into a priority class. The second
// return is false for records scheduled in the future, which never enter a
// queue.
func classify(p domain.ReviewProgress, now time.Time) (int, bool) {
	if p.NextReview == nil {
		if p.TotalReviews == 0 {
			return classNew, true
		}
		// Reviewed but never scheduled; treat as due now.
		return classDueToday, true
	}
	next := *p.NextReview
	if next.After(now) {
		return 0, false
	}
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if next.Before(startOfDay) {
		return classOverdue, true
	}
	return classDueToday, true
}

// Queue is a lazy, finite, non-restartable sequence of review items.
type Queue struct {
	h         *itemHeap
	front     []Item // requeued items, served LIFO before the heap
	remaining int
}

// Next pops the highest-priority item. It returns domain.ErrQueueExhausted
// when the queue is empty or the selection limit has been reached.
func (q *Queue) Next() (Item, error) {
	if q.remaining <= 0 {
		return Item{}, domain.ErrQueueExhausted
	}
	if n := len(q.front); n > 0 {
		it := q.front[n-1]
		q.front = q.front[:n-1]
		q.remaining--
		return it, nil
	}
	if q.h.Len() == 0 {
		return Item{}, domain.ErrQueueExhausted
	}
	q.remaining--
	return heap.Pop(q.h).(entry).item, nil
}

// PushFront returns an item to the head of the queue, ahead of everything
// else. Used when an item must be re-dealt, e.g. after a failed evaluation.
func (q *Queue) PushFront(it Item) {
	q.front = append(q.front, it)
	q.remaining++
}

// Len returns the number of items the queue can still deliver.
func (q *Queue) Len() int {
	n := len(q.front) + q.h.Len()
	if q.remaining < n {
		return q.remaining
	}
	return n
}

type entry struct {
	item  Item
	class int
}

type itemHeap struct {
	entries []entry
}

func (h *itemHeap) Len() int { return len(h.entries) }

func (h *itemHeap) Less(i, j int) bool {
	a, b := h.entries[i], h.entries[j]
	if a.class != b.class {
		return a.class < b.class
	}
	// Within overdue and due-today, the earliest next_review leads.
	an, bn := a.item.Progress.NextReview, b.item.Progress.NextReview
	if an != nil && bn != nil && !an.Equal(*bn) {
		return an.Before(*bn)
	}
	if a.item.Question.Difficulty != b.item.Question.Difficulty {
		return a.item.Question.Difficulty < b.item.Question.Difficulty
	}
	if a.item.Card.ID != b.item.Card.ID {
		return a.item.Card.ID < b.item.Card.ID
	}
	return a.item.Question.ID < b.item.Question.ID
}

func (h *itemHeap) Swap(i, j int) { h.entries[i], h.entries[j] = h.entries[j], h.entries[i] }

func (h *itemHeap) Push(x any) { h.entries = append(h.entries, x.(entry)) }

func (h *itemHeap) Pop() any {
	old := h.entries
	n := len(old)
	e := old[n-1]
	h.entries = old[:n-1]
	return e
}
