package review

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/recallkit/recallkit/internal/domain"
)

var errStoreDown = errors.New("store down")

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

// memoryStore is an in-memory ProgressStore and SessionStore with
// injectable failures.
type memoryStore struct {
	candidates []Item
	progress   map[string]domain.ReviewProgress
	sessions   map[int64]domain.StudySession
	reviews    []domain.SessionReview
	nextID     int64

	failSaves   int // fail this many SaveProgress calls
	failAppends int // fail this many AppendReview calls
	failUpdates int // fail this many UpdateSession calls
}

func newMemoryStore(candidates ...Item) *memoryStore {
	return &memoryStore{
		candidates: candidates,
		progress:   make(map[string]domain.ReviewProgress),
		sessions:   make(map[int64]domain.StudySession),
	}
}

func progressKey(cardID int64, questionID *int64) string {
	if questionID == nil {
		return fmt.Sprintf("%d/-", cardID)
	}
	return fmt.Sprintf("%d/%d", cardID, *questionID)
}

func (m *memoryStore) ListCandidates(ctx context.Context, f Filters) ([]Item, error) {
	out := make([]Item, 0, len(m.candidates))
	for _, it := range m.candidates {
		if key := progressKey(it.Card.ID, it.Progress.QuestionID); m.progress[key].ID != 0 {
			it.Progress = m.progress[key]
		}
		out = append(out, it)
	}
	return out, nil
}

func (m *memoryStore) GetOrCreateProgress(ctx context.Context, cardID int64, questionID *int64) (domain.ReviewProgress, error) {
	key := progressKey(cardID, questionID)
	if p, ok := m.progress[key]; ok {
		return p, nil
	}
	p := domain.NewReviewProgress(cardID, questionID)
	m.nextID++
	p.ID = m.nextID
	m.progress[key] = p
	return p, nil
}

func (m *memoryStore) SaveProgress(ctx context.Context, p domain.ReviewProgress) (domain.ReviewProgress, error) {
	if m.failSaves > 0 {
		m.failSaves--
		return domain.ReviewProgress{}, errStoreDown
	}
	if p.ID == 0 {
		m.nextID++
		p.ID = m.nextID
	}
	p.Version++
	m.progress[progressKey(p.CardID, p.QuestionID)] = p
	return p, nil
}

func (m *memoryStore) CreateSession(ctx context.Context, s domain.StudySession) (domain.StudySession, error) {
	m.nextID++
	s.ID = m.nextID
	m.sessions[s.ID] = s
	return s, nil
}

func (m *memoryStore) UpdateSession(ctx context.Context, s domain.StudySession) error {
	if m.failUpdates > 0 {
		m.failUpdates--
		return errStoreDown
	}
	if _, ok := m.sessions[s.ID]; !ok {
		return fmt.Errorf("session %d: %w", s.ID, domain.ErrNotFound)
	}
	m.sessions[s.ID] = s
	return nil
}

func (m *memoryStore) AppendReview(ctx context.Context, r domain.SessionReview) (domain.SessionReview, error) {
	if m.failAppends > 0 {
		m.failAppends--
		return domain.SessionReview{}, errStoreDown
	}
	m.nextID++
	r.ID = m.nextID
	m.reviews = append(m.reviews, r)
	return r, nil
}

// evalFunc adapts a function to the AnswerEvaluator interface.
type evalFunc func(ctx context.Context, question, expected, answer string) (Evaluation, error)

func (f evalFunc) Evaluate(ctx context.Context, question, expected, answer string) (Evaluation, error) {
	return f(ctx, question, expected, answer)
}

func alwaysCorrect(confidence float64) evalFunc {
	return func(ctx context.Context, question, expected, answer string) (Evaluation, error) {
		return Evaluation{IsCorrect: true, Confidence: confidence, Feedback: "ok"}, nil
	}
}

// makeItem builds a candidate item. nextReview nil plus zero reviews marks
// the item as new.
func makeItem(cardID, questionID int64, difficulty domain.DifficultyLevel, nextReview *time.Time, totalReviews int) Item {
	qid := questionID
	p := domain.NewReviewProgress(cardID, &qid)
	p.NextReview = nextReview
	p.TotalReviews = totalReviews
	p.CorrectReviews = totalReviews
	if totalReviews > 0 {
		p.ID = cardID*100 + questionID
	}
	return Item{
		Card: domain.Card{
			ID:         cardID,
			Content:    fmt.Sprintf("card %d", cardID),
			Difficulty: difficulty,
			IsActive:   true,
		},
		Question: domain.Question{
			ID:           questionID,
			CardID:       cardID,
			QuestionText: fmt.Sprintf("question %d", questionID),
			AnswerText:   "answer",
			Type:         domain.QuestionStandard,
			Difficulty:   difficulty,
		},
		Progress: p,
	}
}
