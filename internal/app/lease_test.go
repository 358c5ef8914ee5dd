package app_test

import (
	"context"
	"testing"
	"time"

	"fe-quiz-runner/internal/app"
)

func TestRunLeaseAcquireAndExpiry(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	clock := newFakeClock()
	a := app.NewRunLeaseWithClock(store, "beginner", 6*time.Second, clock.Now)
	b := app.NewRunLeaseWithClock(store, "beginner", 6*time.Second, clock.Now)

	if !a.Acquire(ctx, "tab-a") {
		t.Fatalf("expected acquire on absent lease")
	}
	if !a.Acquire(ctx, "tab-a") {
		t.Fatalf("expected idempotent reacquire")
	}
	if b.Acquire(ctx, "tab-b") {
		t.Fatalf("expected live foreign lease to block acquire")
	}

	clock.Advance(6 * time.Second)
	if !a.IsOwner(ctx, "tab-a") {
		t.Fatalf("lease is alive at exactly the ttl")
	}
	clock.Advance(time.Millisecond)
	if a.IsOwner(ctx, "tab-a") {
		t.Fatalf("expected lease expired past the ttl")
	}
	if !b.Acquire(ctx, "tab-b") {
		t.Fatalf("expected acquire over an expired lease")
	}
	if !b.IsOwner(ctx, "tab-b") || a.IsOwner(ctx, "tab-a") {
		t.Fatalf("expected ownership to move to tab-b")
	}
}

func TestRunLeaseHeartbeat(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	clock := newFakeClock()
	lease := app.NewRunLeaseWithClock(store, "beginner", 6*time.Second, clock.Now)

	lease.Acquire(ctx, "tab-a")
	for i := 0; i < 10; i++ {
		clock.Advance(2 * time.Second)
		lease.Heartbeat(ctx, "tab-a")
	}
	if !lease.IsOwner(ctx, "tab-a") {
		t.Fatalf("heartbeats must keep the lease alive")
	}

	lease.Heartbeat(ctx, "tab-b")
	if lease.IsOwner(ctx, "tab-b") {
		t.Fatalf("heartbeat from a non-owner must be a no-op")
	}

	clock.Advance(7 * time.Second)
	lease.Heartbeat(ctx, "tab-a")
	if lease.IsOwner(ctx, "tab-a") {
		t.Fatalf("heartbeat must not revive an expired lease")
	}
}

func TestRunLeaseRelease(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	clock := newFakeClock()
	lease := app.NewRunLeaseWithClock(store, "beginner", 0, clock.Now)

	lease.Acquire(ctx, "tab-a")
	lease.Release(ctx, "tab-b")
	if !lease.IsOwner(ctx, "tab-a") {
		t.Fatalf("release by a non-owner must not clobber the lease")
	}
	lease.Release(ctx, "tab-a")
	if _, err := store.Get(ctx, lease.Key()); err == nil {
		t.Fatalf("expected lease record removed")
	}

	if lease.Held(ctx) {
		t.Fatalf("expected no live lease after release")
	}
	lease.Acquire(ctx, "tab-a")
	if !lease.Held(ctx) {
		t.Fatalf("expected a live lease")
	}
	clock.Advance(app.DefaultLeaseTTL + time.Millisecond)
	if lease.Held(ctx) {
		t.Fatalf("expired lease must not count as held")
	}
}

func TestRunLeaseScopedByPreset(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	clock := newFakeClock()
	beginner := app.NewRunLeaseWithClock(store, "beginner", 0, clock.Now)
	advanced := app.NewRunLeaseWithClock(store, "advanced", 0, clock.Now)
	none := app.NewRunLeaseWithClock(store, "", 0, clock.Now)

	if !beginner.Acquire(ctx, "tab-a") || !advanced.Acquire(ctx, "tab-b") {
		t.Fatalf("different presets must not contend")
	}
	if none.Key() != "quiz:runlock:v1:none" {
		t.Fatalf("unexpected key %s", none.Key())
	}
}

func TestRunLeaseIgnoresCorruptRecord(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	clock := newFakeClock()
	lease := app.NewRunLeaseWithClock(store, "beginner", 0, clock.Now)

	_ = store.Set(ctx, lease.Key(), "garbage")
	if !lease.Acquire(ctx, "tab-a") {
		t.Fatalf("corrupt record must read as absent")
	}
	_ = store.Set(ctx, lease.Key(), `{"at":1}`)
	if !lease.Acquire(ctx, "tab-b") {
		t.Fatalf("ownerless record must read as absent")
	}
}
