package app

import (
	"math/rand"
	"strconv"
	"sync"
	"time"

	"fe-quiz-runner/internal/domain"
)

// Selector filters and shuffles the bank into a working set.
type Selector struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewSelector() *Selector {
	return NewSelectorWithSeed(time.Now().UnixNano())
}

// NewSelectorWithSeed gives reproducible shuffles.
func NewSelectorWithSeed(seed int64) *Selector {
	return &Selector{rnd: rand.New(rand.NewSource(seed))}
}

// Apply keeps questions matching langs, genres and difficulties, shuffles them,
// and truncates to count unless count is "all" or not a number.
func (s *Selector) Apply(bank []domain.Question, f domain.Filter) []domain.Question {
	langs := toSet(f.Langs)
	genres := toSet(f.Genres)
	diffs := make(map[int]struct{}, len(f.Difficulties))
	for _, d := range f.Difficulties {
		diffs[d] = struct{}{}
	}

	picked := make([]domain.Question, 0, len(bank))
	for _, q := range bank {
		if langs != nil {
			if _, ok := langs[q.Lang]; !ok {
				continue
			}
		}
		if genres != nil {
			if _, ok := genres[q.Genre]; !ok {
				continue
			}
		}
		if _, ok := diffs[q.Level()]; !ok {
			continue
		}
		picked = append(picked, q)
	}

	picked = s.Shuffle(picked)

	if f.Count != domain.All {
		if n, err := strconv.Atoi(f.Count); err == nil && n >= 0 && n < len(picked) {
			picked = picked[:n]
		}
	}
	return picked
}

// Shuffle returns a Fisher-Yates shuffled copy.
func (s *Selector) Shuffle(questions []domain.Question) []domain.Question {
	out := make([]domain.Question, len(questions))
	copy(out, questions)

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(out) - 1; i > 0; i-- {
		j := s.rnd.Intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// toSet returns nil for the "all" wildcard.
func toSet(values []string) map[string]struct{} {
	if domain.IsAll(values) {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
