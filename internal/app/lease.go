package app

import (
	"context"
	"time"
)

const (
	// DefaultLeaseTTL is how long a lease stays alive without a heartbeat.
	DefaultLeaseTTL = 6 * time.Second
	// DefaultHeartbeatInterval renews an owned lease; it must stay below the TTL.
	DefaultHeartbeatInterval = 2 * time.Second
)

type leaseRecord struct {
	Owner string `json:"owner"`
	At    int64  `json:"at"` // unix millis of the last write
}

// RunLease is a best-effort, cooperative lease over a single storage key.
// Reads and writes are not atomic across tabs: concurrent acquirers of an
// absent lease race and the last writer wins.
type RunLease struct {
	store Storage
	key   string
	ttl   time.Duration
	now   func() time.Time
}

// NewRunLease scopes a lease to the forced preset identity.
func NewRunLease(store Storage, presetKey string, ttl time.Duration) *RunLease {
	return NewRunLeaseWithClock(store, presetKey, ttl, time.Now)
}

// NewRunLeaseWithClock allows deterministic expiry in tests.
func NewRunLeaseWithClock(store Storage, presetKey string, ttl time.Duration, now func() time.Time) *RunLease {
	if ttl <= 0 {
		ttl = DefaultLeaseTTL
	}
	return &RunLease{
		store: store,
		key:   scopedKey(keyRunLock, presetKey),
		ttl:   ttl,
		now:   now,
	}
}

// Acquire claims the lease for owner if it is absent, expired, or already owned by owner.
func (l *RunLease) Acquire(ctx context.Context, owner string) bool {
	rec, ok := l.read(ctx)
	if !ok || !l.alive(rec) {
		l.write(ctx, owner)
		return true
	}
	return rec.Owner == owner
}

// Heartbeat renews the lease only while owner holds a live record.
func (l *RunLease) Heartbeat(ctx context.Context, owner string) {
	rec, ok := l.read(ctx)
	if ok && l.alive(rec) && rec.Owner == owner {
		l.write(ctx, owner)
	}
}

// IsOwner reports whether owner holds a live lease.
func (l *RunLease) IsOwner(ctx context.Context, owner string) bool {
	rec, ok := l.read(ctx)
	return ok && l.alive(rec) && rec.Owner == owner
}

// Release removes the record only when it belongs to owner.
func (l *RunLease) Release(ctx context.Context, owner string) {
	rec, ok := l.read(ctx)
	if ok && rec.Owner == owner {
		_ = l.store.Remove(ctx, l.key)
	}
}

// Held reports whether any tab holds a live lease.
func (l *RunLease) Held(ctx context.Context) bool {
	rec, ok := l.read(ctx)
	return ok && l.alive(rec)
}

// Key returns the storage key of the lease record.
func (l *RunLease) Key() string {
	return l.key
}

func (l *RunLease) read(ctx context.Context) (leaseRecord, bool) {
	var rec leaseRecord
	if !loadJSON(ctx, l.store, l.key, &rec) || rec.Owner == "" {
		return leaseRecord{}, false
	}
	return rec, true
}

func (l *RunLease) write(ctx context.Context, owner string) {
	saveJSON(ctx, l.store, l.key, leaseRecord{Owner: owner, At: unixMilli(l.now())})
}

func (l *RunLease) alive(rec leaseRecord) bool {
	age := unixMilli(l.now()) - rec.At
	return age <= l.ttl.Milliseconds()
}
