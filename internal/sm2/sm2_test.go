package sm2

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/recallkit/recallkit/internal/domain"
)

var testNow = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	s, err := NewScheduler(Params{})
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	return s
}

func freshProgress() domain.ReviewProgress {
	return domain.NewReviewProgress(1, nil)
}

func TestScheduleScenarios(t *testing.T) {
	s := newTestScheduler(t)

	// Scenario A: fresh card, grade 5.
	p, err := s.Schedule(freshProgress(), Perfect, testNow)
	if err != nil {
		t.Fatalf("schedule A: %v", err)
	}
	if math.Abs(p.EaseFactor-2.6) > 1e-9 {
		t.Errorf("A: ease = %f, want 2.6", p.EaseFactor)
	}
	if p.IntervalDays != 1 || p.Repetitions != 1 {
		t.Errorf("A: interval=%d reps=%d, want 1 and 1", p.IntervalDays, p.Repetitions)
	}

	// Scenario B: grade 4, ease delta is zero.
	p, err = s.Schedule(p, Good, testNow.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("schedule B: %v", err)
	}
	if math.Abs(p.EaseFactor-2.6) > 1e-9 {
		t.Errorf("B: ease = %f, want 2.6", p.EaseFactor)
	}
	if p.IntervalDays != 6 || p.Repetitions != 2 {
		t.Errorf("B: interval=%d reps=%d, want 6 and 2", p.IntervalDays, p.Repetitions)
	}

	// Scenario C: grade 5, interval scales by the updated ease.
	p, err = s.Schedule(p, Perfect, testNow.AddDate(0, 0, 7))
	if err != nil {
		t.Fatalf("schedule C: %v", err)
	}
	wantInterval := int(math.Round(6 * p.EaseFactor))
	if p.IntervalDays != wantInterval {
		t.Errorf("C: interval=%d, want round(6*%f)=%d", p.IntervalDays, p.EaseFactor, wantInterval)
	}
	if p.Repetitions != 3 {
		t.Errorf("C: reps=%d, want 3", p.Repetitions)
	}

	// Scenario D: grade 2 resets repetitions, streak and interval; ease drops.
	prevEase := p.EaseFactor
	p, err = s.Schedule(p, IncorrectEasy, testNow.AddDate(0, 0, 20))
	if err != nil {
		t.Fatalf("schedule D: %v", err)
	}
	if p.Repetitions != 0 || p.Streak != 0 || p.IntervalDays != 1 {
		t.Errorf("D: reps=%d streak=%d interval=%d, want all reset", p.Repetitions, p.Streak, p.IntervalDays)
	}
	wantEase := prevEase + (0.1 - 3*(0.08+3*0.02))
	if math.Abs(p.EaseFactor-wantEase) > 1e-9 {
		t.Errorf("D: ease=%f, want %f", p.EaseFactor, wantEase)
	}
}

func TestScheduleMonotonicGrowth(t *testing.T) {
	// A run of perfect answers from a fresh record. The ease factor grows by
	// 0.1 per review, so the intervals are 1, 6, round(6*2.8)=17,
	// round(17*2.9)=49.
	s := newTestScheduler(t)
	p := freshProgress()
	now := testNow

	want := []int{1, 6, 17, 49}
	for i, w := range want {
		var err error
		p, err = s.Schedule(p, Perfect, now)
		if err != nil {
			t.Fatalf("review %d: %v", i+1, err)
		}
		if p.IntervalDays != w {
			t.Errorf("review %d: interval=%d, want %d", i+1, p.IntervalDays, w)
		}
		now = *p.NextReview
	}
}

func TestScheduleResetLaw(t *testing.T) {
	s := newTestScheduler(t)

	base := freshProgress()
	base.EaseFactor = 2.8
	base.IntervalDays = 42
	base.Repetitions = 7
	base.Streak = 7
	base.TotalReviews = 9
	base.CorrectReviews = 7

	for _, g := range []Grade{Blackout, Incorrect, IncorrectEasy} {
		p, err := s.Schedule(base, g, testNow)
		if err != nil {
			t.Fatalf("grade %v: %v", g, err)
		}
		if p.Repetitions != 0 || p.Streak != 0 || p.IntervalDays != 1 {
			t.Errorf("grade %v: reps=%d streak=%d interval=%d, want all reset",
				g, p.Repetitions, p.Streak, p.IntervalDays)
		}
	}
}

func TestScheduleCounterLaw(t *testing.T) {
	s := newTestScheduler(t)
	p := freshProgress()

	for g := Blackout; g <= Perfect; g++ {
		next, err := s.Schedule(p, g, testNow)
		if err != nil {
			t.Fatalf("grade %v: %v", g, err)
		}
		if next.TotalReviews != p.TotalReviews+1 {
			t.Errorf("grade %v: total %d -> %d, want +1", g, p.TotalReviews, next.TotalReviews)
		}
		wantCorrect := p.CorrectReviews
		if g.Correct() {
			wantCorrect++
		}
		if next.CorrectReviews != wantCorrect {
			t.Errorf("grade %v: correct=%d, want %d", g, next.CorrectReviews, wantCorrect)
		}
		p = next
	}
}

func TestScheduleNextReviewWholeDays(t *testing.T) {
	s := newTestScheduler(t)
	now := time.Date(2025, 3, 29, 23, 30, 0, 0, time.UTC) // across a DST boundary in many zones

	p, err := s.Schedule(freshProgress(), Good, now)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if p.LastReview == nil || !p.LastReview.Equal(now) {
		t.Fatalf("last review = %v, want %v", p.LastReview, now)
	}
	want := now.AddDate(0, 0, p.IntervalDays)
	if p.NextReview == nil || !p.NextReview.Equal(want) {
		t.Errorf("next review = %v, want %v", p.NextReview, want)
	}
}

func TestScheduleInvalidGrade(t *testing.T) {
	s := newTestScheduler(t)
	for _, g := range []Grade{-1, 6, 42} {
		_, err := s.Schedule(freshProgress(), g, testNow)
		if !errors.Is(err, domain.ErrInvalidGrade) {
			t.Errorf("grade %d: err=%v, want ErrInvalidGrade", g, err)
		}
	}
}

func TestScheduleInvalidState(t *testing.T) {
	s := newTestScheduler(t)

	bad := freshProgress()
	bad.EaseFactor = 1.0
	if _, err := s.Schedule(bad, Good, testNow); !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("low ease: err=%v, want ErrInvalidState", err)
	}

	bad = freshProgress()
	bad.CorrectReviews = 3
	bad.TotalReviews = 1
	if _, err := s.Schedule(bad, Good, testNow); !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("correct > total: err=%v, want ErrInvalidState", err)
	}
}

func TestScheduleEaseFloor(t *testing.T) {
	s := newTestScheduler(t)
	p := freshProgress()

	// Repeated blackouts must never push the ease below 1.3.
	for i := 0; i < 10; i++ {
		var err error
		p, err = s.Schedule(p, Blackout, testNow)
		if err != nil {
			t.Fatalf("review %d: %v", i+1, err)
		}
		if p.EaseFactor < domain.MinEaseFactor {
			t.Fatalf("review %d: ease=%f below floor", i+1, p.EaseFactor)
		}
	}
	if p.EaseFactor != domain.MinEaseFactor {
		t.Errorf("ease=%f, want pinned at %f", p.EaseFactor, domain.MinEaseFactor)
	}
}

func TestScheduleInvariantsProperty(t *testing.T) {
	// Randomized grade sequences: every intermediate state must satisfy the
	// progress invariants.
	s := newTestScheduler(t)
	rng := rand.New(rand.NewSource(1))

	for run := 0; run < 200; run++ {
		p := freshProgress()
		now := testNow
		for step := 0; step < 50; step++ {
			g := Grade(rng.Intn(6))
			next, err := s.Schedule(p, g, now)
			if err != nil {
				t.Fatalf("run %d step %d: %v", run, step, err)
			}
			if err := next.Validate(); err != nil {
				t.Fatalf("run %d step %d grade %v: invariants violated: %v", run, step, g, err)
			}
			if next.TotalReviews != p.TotalReviews+1 {
				t.Fatalf("run %d step %d: total_reviews not incremented", run, step)
			}
			if next.CorrectReviews < p.CorrectReviews {
				t.Fatalf("run %d step %d: correct_reviews decreased", run, step)
			}
			now = now.Add(time.Duration(rng.Intn(72)) * time.Hour)
			p = next
		}
	}
}

func TestNewSchedulerValidation(t *testing.T) {
	cases := []struct {
		name   string
		params Params
		ok     bool
	}{
		{"defaults", Params{}, true},
		{"custom", Params{DefaultEase: 2.0, MinEase: 1.5, MaxIntervalDays: 365}, true},
		{"ease below minimum", Params{DefaultEase: 1.1, MinEase: 1.3}, false},
		{"negative max interval", Params{MaxIntervalDays: -1}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewScheduler(tc.params)
			if tc.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tc.ok && err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestScheduleMaxIntervalCap(t *testing.T) {
	s, err := NewScheduler(Params{MaxIntervalDays: 30})
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}

	p := freshProgress()
	p.IntervalDays = 28
	p.Repetitions = 5
	p.TotalReviews = 5
	p.CorrectReviews = 5
	p.Streak = 5

	p, err = s.Schedule(p, Perfect, testNow)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if p.IntervalDays != 30 {
		t.Errorf("interval=%d, want capped at 30", p.IntervalDays)
	}
}
