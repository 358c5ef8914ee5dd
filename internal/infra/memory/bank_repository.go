package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"fe-quiz-runner/internal/domain"
	"golang.org/x/sync/singleflight"
)

// BankLoader fetches the question bank for a version token from a backing source
// (HTTP endpoint, Postgres, file).
type BankLoader interface {
	LoadBank(ctx context.Context, version string) ([]domain.Question, error)
}

// BankRepository caches banks per version with TTL so a burst of tabs
// opening at once loads the bank a single time.
type BankRepository struct {
	loader BankLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex

	mu    sync.RWMutex
	cache map[string]cachedBank
}

type cachedBank struct {
	questions []domain.Question
	expiresAt time.Time
}

func NewBankRepository(loader BankLoader, ttl time.Duration) *BankRepository {
	return NewBankRepositoryWithClock(loader, ttl, time.Now)
}

// NewBankRepositoryWithClock allows deterministic expiry in tests.
func NewBankRepositoryWithClock(loader BankLoader, ttl time.Duration, clock func() time.Time) *BankRepository {
	return &BankRepository{
		loader: loader,
		ttl:    ttl,
		clock:  clock,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedBank),
	}
}

func (r *BankRepository) GetBank(ctx context.Context, version string) ([]domain.Question, error) {
	if questions, ok := r.cached(version); ok {
		return questions, nil
	}

	result, err, _ := r.sf.Do(version, func() (interface{}, error) {
		if questions, ok := r.cached(version); ok {
			return questions, nil
		}

		questions, err := r.loader.LoadBank(ctx, version)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.cache[version] = cachedBank{
			questions: questions,
			expiresAt: r.clock().Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

// Invalidate drops the cached bank for version.
func (r *BankRepository) Invalidate(version string) {
	r.mu.Lock()
	delete(r.cache, version)
	r.mu.Unlock()
}

func (r *BankRepository) cached(version string) ([]domain.Question, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[version]
	if !ok || !entry.expiresAt.After(r.clock()) {
		return nil, false
	}
	return entry.questions, true
}

func (r *BankRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticBankLoader serves fixed banks per version (useful for tests/demos).
// An empty version falls back to the "" entry.
type StaticBankLoader struct {
	banks map[string][]domain.Question
}

func NewStaticBankLoader(banks map[string][]domain.Question) *StaticBankLoader {
	return &StaticBankLoader{banks: banks}
}

func (l *StaticBankLoader) LoadBank(_ context.Context, version string) ([]domain.Question, error) {
	if questions, ok := l.banks[version]; ok && len(questions) > 0 {
		return questions, nil
	}
	if questions, ok := l.banks[""]; ok && len(questions) > 0 {
		return questions, nil
	}
	return nil, &domain.BankLoadError{Resource: "static:" + version, Err: domain.ErrBankEmpty}
}
