package app

import (
	"context"
	"time"

	"fe-quiz-runner/internal/domain"
)

// SessionVersion tags the snapshot schema; older snapshots are ignored.
const SessionVersion = 1

// Snapshot is the durable form of an in-progress quiz session.
type Snapshot struct {
	Version     int                  `json:"version"`
	PresetKey   string               `json:"presetKey"`
	SavedAt     int64                `json:"savedAt"`
	Finished    bool                 `json:"isFinished"`
	Mode        domain.Mode          `json:"mode"`
	QuestionIDs []string             `json:"pickedIds"`
	Current     int                  `json:"current"`
	Score       int                  `json:"score"`
	TimeLeft    int                  `json:"timeLeft"`
	AnswersLog  []domain.AnswerEntry `json:"answersLog"`
	Checked     bool                 `json:"checked"`
}

// SessionStore persists snapshots for one forced preset identity.
// It is inert unless the runner is in locked mode.
type SessionStore struct {
	store     Storage
	enabled   bool
	presetKey string
	version   int
	now       func() time.Time
}

func NewSessionStore(store Storage, locked bool, presetKey string) *SessionStore {
	return NewSessionStoreWithClock(store, locked, presetKey, time.Now)
}

// NewSessionStoreWithClock allows deterministic savedAt stamps in tests.
func NewSessionStoreWithClock(store Storage, locked bool, presetKey string, now func() time.Time) *SessionStore {
	return &SessionStore{
		store:     store,
		enabled:   locked,
		presetKey: presetKey,
		version:   SessionVersion,
		now:       now,
	}
}

// Save stamps version, identity and time, then writes best-effort.
func (s *SessionStore) Save(ctx context.Context, snap Snapshot) {
	if !s.enabled {
		return
	}
	snap.Version = s.version
	snap.PresetKey = s.presetKey
	snap.SavedAt = unixMilli(s.now())
	saveJSON(ctx, s.store, s.Key(), snap)
}

// Load returns the stored snapshot if it decodes and matches version and identity.
func (s *SessionStore) Load(ctx context.Context) (Snapshot, bool) {
	if !s.enabled {
		return Snapshot{}, false
	}
	var snap Snapshot
	if !loadJSON(ctx, s.store, s.Key(), &snap) {
		return Snapshot{}, false
	}
	if snap.Version != s.version || snap.PresetKey != s.presetKey {
		return Snapshot{}, false
	}
	return snap, true
}

// Clear removes the snapshot for the current identity.
func (s *SessionStore) Clear(ctx context.Context) {
	if !s.enabled {
		return
	}
	_ = s.store.Remove(ctx, s.Key())
}

// Key returns the storage key of the snapshot record.
func (s *SessionStore) Key() string {
	return scopedKey(keySession, s.presetKey)
}
