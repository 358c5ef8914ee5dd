package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"fe-quiz-runner/internal/app"
	"fe-quiz-runner/internal/domain"
)

func TestQuizSessionTransitions(t *testing.T) {
	bank := testBank()[:3]
	s := app.NewQuizSession(domain.ModeMain, bank, 600)

	if _, err := s.Grade(app.NoChoice); !errors.Is(err, domain.ErrNoChoiceSelected) {
		t.Fatalf("expected no choice, got %v", err)
	}
	if _, err := s.Grade(len(bank[0].Choices)); !errors.Is(err, domain.ErrNoChoiceSelected) {
		t.Fatalf("expected out of range choice to be rejected, got %v", err)
	}

	entry, err := s.Grade(bank[0].Answer)
	if err != nil || !entry.Correct || entry.QuestionID != "c1" || s.Score != 1 {
		t.Fatalf("unexpected grade %+v err=%v", entry, err)
	}
	if done, err := s.Advance(); done || err != nil || s.Current != 1 {
		t.Fatalf("unexpected advance done=%v err=%v current=%d", done, err, s.Current)
	}

	entry, _ = s.Grade(0)
	if entry.Correct || entry.CorrectIndex != 1 {
		t.Fatalf("expected wrong answer, got %+v", entry)
	}
	_, _ = s.Advance()
	_, _ = s.Grade(0)
	done, _ := s.Advance()
	if !done || !s.Finished || s.Reason != domain.ReasonAllAnswered {
		t.Fatalf("expected finished run, got %+v", s)
	}

	s.Finish(domain.ReasonTimeExpired)
	if s.Reason != domain.ReasonAllAnswered {
		t.Fatalf("first finish reason must stick, got %q", s.Reason)
	}

	wrong := s.WrongQuestions()
	if len(wrong) != 1 || wrong[0].ID != "c2" {
		t.Fatalf("unexpected wrong questions %+v", wrong)
	}
	res := s.Result()
	if res.Score != 2 || res.Total != 3 || !res.CanRetry || res.AllCorrect || len(res.Wrong) != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestQuizSessionTickExpires(t *testing.T) {
	s := app.NewQuizSession(domain.ModeReview, testBank()[:2], 2)
	_, _ = s.Grade(0)

	if s.Tick() {
		t.Fatalf("expected one second left")
	}
	if !s.Tick() {
		t.Fatalf("expected expiry")
	}
	if s.Reason != domain.ReasonTimeExpired || s.Checked || s.Running() {
		t.Fatalf("unexpected state after expiry %+v", s)
	}
	if s.Tick() {
		t.Fatalf("tick after finish must be a no-op")
	}
	if res := s.Result(); res.CanRetry || res.AllCorrect || res.Graded != 1 {
		t.Fatalf("review result never offers retry, got %+v", res)
	}
}

func TestSessionStoreScoping(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	clock := newFakeClock()

	beginner := app.NewSessionStoreWithClock(store, true, "beginner", clock.Now)
	advanced := app.NewSessionStoreWithClock(store, true, "advanced", clock.Now)
	unlocked := app.NewSessionStoreWithClock(store, false, "", clock.Now)

	beginner.Save(ctx, app.Snapshot{QuestionIDs: []string{"c1"}, TimeLeft: 42})
	snap, ok := beginner.Load(ctx)
	if !ok || snap.TimeLeft != 42 || snap.Version != app.SessionVersion || snap.SavedAt != clock.Now().UnixMilli() {
		t.Fatalf("unexpected snapshot %+v ok=%v", snap, ok)
	}
	if _, ok := advanced.Load(ctx); ok {
		t.Fatalf("snapshots must not cross presets")
	}

	unlocked.Save(ctx, app.Snapshot{TimeLeft: 1})
	if _, ok := unlocked.Load(ctx); ok {
		t.Fatalf("unlocked store must be inert")
	}
	if _, err := store.Get(ctx, unlocked.Key()); err == nil {
		t.Fatalf("unlocked store must not write")
	}

	beginner.Clear(ctx)
	if _, ok := beginner.Load(ctx); ok {
		t.Fatalf("expected snapshot cleared")
	}
}

func TestTickerSchedulerStops(t *testing.T) {
	fired := make(chan struct{}, 16)
	stop := app.TickerScheduler{}.Every(5*time.Millisecond, func() {
		select {
		case fired <- struct{}{}:
		default:
		}
	})

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatalf("expected the task to fire")
	}
	stop()
	stop()
}
