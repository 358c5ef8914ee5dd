package app

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"fe-quiz-runner/internal/domain"
)

// Storage abstracts the shared key-value medium every tab reads and writes
// (in-process map, Redis, etc). Missing keys return domain.ErrKeyNotFound.
type Storage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// BankRepository loads the question bank for a version token (from cache/backing store).
type BankRepository interface {
	GetBank(ctx context.Context, version string) ([]domain.Question, error)
}

const (
	keyBeginner    = "quiz:beginner"
	keySettings    = "quiz:settings:v1"
	keyUserPresets = "quiz:presets:v1"
	keyRunLock     = "quiz:runlock:v1:"
	keySession     = "quiz:session:v1:"
)

// scopedKey appends the forced preset identity, using "none" when unset.
func scopedKey(prefix, presetKey string) string {
	if presetKey == "" {
		presetKey = "none"
	}
	return prefix + presetKey
}

// loadJSON reads and decodes key into dst; any failure reports false.
func loadJSON(ctx context.Context, store Storage, key string, dst any) bool {
	raw, err := store.Get(ctx, key)
	if err != nil || raw == "" {
		return false
	}
	return json.Unmarshal([]byte(raw), dst) == nil
}

// saveJSON encodes and writes value under key. Storage failures are logged
// and dropped.
func saveJSON(ctx context.Context, store Storage, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		log.Printf("encode %s: %v", key, err)
		return
	}
	if err := store.Set(ctx, key, string(data)); err != nil {
		log.Printf("save %s: %v", key, err)
	}
}

func unixMilli(t time.Time) int64 {
	return t.UnixNano() / int64(time.Millisecond)
}
