package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"fe-quiz-runner/internal/app"
	"fe-quiz-runner/internal/domain"
	"fe-quiz-runner/internal/infra/memory"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves time without firing any scheduled task.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *fakeClock) set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// manualScheduler fires tasks synchronously as the test advances its clock.
// Tabs that share a clock but use separate schedulers can be "frozen" by not
// advancing their scheduler.
type manualScheduler struct {
	clock *fakeClock
	mu    sync.Mutex
	tasks []*manualTask
}

type manualTask struct {
	interval time.Duration
	next     time.Time
	fn       func()
	stopped  bool
}

func newManualScheduler(clock *fakeClock) *manualScheduler {
	return &manualScheduler{clock: clock}
}

func (s *manualScheduler) Every(interval time.Duration, fn func()) func() {
	t := &manualTask{interval: interval, next: s.clock.Now().Add(interval), fn: fn}
	s.mu.Lock()
	s.tasks = append(s.tasks, t)
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		t.stopped = true
		s.mu.Unlock()
	}
}

// Advance moves the clock forward by d, firing due tasks in time order.
func (s *manualScheduler) Advance(d time.Duration) {
	target := s.clock.Now().Add(d)
	for {
		s.mu.Lock()
		var due *manualTask
		for _, t := range s.tasks {
			if t.stopped || t.next.After(target) {
				continue
			}
			if due == nil || t.next.Before(due.next) {
				due = t
			}
		}
		if due == nil {
			s.mu.Unlock()
			if target.After(s.clock.Now()) {
				s.clock.set(target)
			}
			return
		}
		at := due.next
		due.next = due.next.Add(due.interval)
		s.mu.Unlock()

		if at.After(s.clock.Now()) {
			s.clock.set(at)
		}
		due.fn()
	}
}

// active counts tasks that have not been stopped.
func (s *manualScheduler) active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.tasks {
		if !t.stopped {
			n++
		}
	}
	return n
}

type recordingPresenter struct {
	mu        sync.Mutex
	idle      int
	question  *app.QuestionView
	feedback  *app.FeedbackView
	result    *app.Result
	resume    *app.ResumeView
	takenOver bool
	clock     int
	messages  []string
	errors    []string
}

func (p *recordingPresenter) Idle(app.IdleView) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.idle++
}

func (p *recordingPresenter) Question(v app.QuestionView) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.question = &v
	p.feedback = nil
}

func (p *recordingPresenter) Feedback(v app.FeedbackView) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.feedback = &v
}

func (p *recordingPresenter) Clock(timeLeft int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clock = timeLeft
}

func (p *recordingPresenter) Result(res app.Result) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.result = &res
}

func (p *recordingPresenter) ResumeChoice(v app.ResumeView) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resume = &v
}

func (p *recordingPresenter) TakenOver() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.takenOver = true
}

func (p *recordingPresenter) Message(text string, isError bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if isError {
		p.errors = append(p.errors, text)
		return
	}
	p.messages = append(p.messages, text)
}

type tab struct {
	runner *app.Runner
	view   *recordingPresenter
	sched  *manualScheduler
}

func newTab(t *testing.T, store app.Storage, clock *fakeClock, cfg app.RunnerConfig) *tab {
	t.Helper()
	view := &recordingPresenter{}
	sched := newManualScheduler(clock)
	runner := app.NewRunner(cfg, testBank(), app.RunnerDeps{
		Storage:   store,
		Scheduler: sched,
		Selector:  app.NewSelectorWithSeed(42),
		Presenter: view,
		Now:       clock.Now,
	})
	runner.Boot(context.Background())
	return &tab{runner: runner, view: view, sched: sched}
}

func lockedConfig(tabID string) app.RunnerConfig {
	return app.RunnerConfig{
		TabID:     tabID,
		Locked:    true,
		PresetKey: "beginner",
		AutoStart: true,
	}
}

// answer grades the current question correctly or not.
func (tb *tab) answer(t *testing.T, correct bool) domain.AnswerEntry {
	t.Helper()
	st := tb.runner.State()
	if st.Current >= len(st.QuestionIDs) {
		t.Fatalf("no current question: %+v", st)
	}
	q := domain.IndexByID(testBank())[st.QuestionIDs[st.Current]]
	choice := q.Answer
	if !correct {
		choice = (q.Answer + 1) % len(q.Choices)
	}
	entry, err := tb.runner.Grade(context.Background(), choice)
	if err != nil {
		t.Fatalf("grade failed: %v", err)
	}
	return entry
}

func (tb *tab) next(t *testing.T) {
	t.Helper()
	if err := tb.runner.Advance(context.Background()); err != nil {
		t.Fatalf("advance failed: %v", err)
	}
}

func readSnapshot(t *testing.T, store app.Storage, presetKey string) (app.Snapshot, bool) {
	t.Helper()
	raw, err := store.Get(context.Background(), "quiz:session:v1:"+presetKey)
	if errors.Is(err, domain.ErrKeyNotFound) {
		return app.Snapshot{}, false
	}
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	var snap app.Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	return snap, true
}

func leaseOwner(t *testing.T, store app.Storage, presetKey string) string {
	t.Helper()
	raw, err := store.Get(context.Background(), "quiz:runlock:v1:"+presetKey)
	if err != nil {
		return ""
	}
	var rec struct {
		Owner string `json:"owner"`
	}
	_ = json.Unmarshal([]byte(raw), &rec)
	return rec.Owner
}

func newStore() *memory.Storage {
	return memory.NewStorage()
}

func sortedKeys(store *memory.Storage) []string {
	keys := store.Keys()
	sort.Strings(keys)
	return keys
}

func testBank() []domain.Question {
	return []domain.Question{
		{ID: "c1", Lang: "csharp", Genre: "conditions", Difficulty: 1, Question: "x = 5; x > 3", Expr: "x > 3", JP: "x は 3 より大きい", Hint: "compare", Choices: []string{"true", "false"}, Answer: 0},
		{ID: "c2", Lang: "csharp", Genre: "conditions", Difficulty: 1, Question: "x = 2; x > 3", Expr: "x > 3", Choices: []string{"true", "false"}, Answer: 1},
		{ID: "c3", Lang: "csharp", Genre: "conditions", Difficulty: 1, Question: "a && b", Expr: "a && b", Choices: []string{"true", "false"}, Answer: 0},
		{ID: "c4", Lang: "csharp", Genre: "conditions", Difficulty: 1, Question: "!(a || b)", Expr: "!(a || b)", Choices: []string{"true", "false"}, Answer: 1},
		{ID: "c5", Lang: "csharp", Genre: "conditions", Difficulty: 1, Question: "x != y", Expr: "x != y", Choices: []string{"true", "false", "error"}, Answer: 2},
		{ID: "l1", Lang: "csharp", Genre: "loops", Difficulty: 2, Question: "for i < 3", Expr: "i < 3", Choices: []string{"2", "3"}, Answer: 1},
		{ID: "p1", Lang: "python", Genre: "conditions", Difficulty: 3, Question: "not a or b", Expr: "!a || b", Choices: []string{"true", "false"}, Answer: 0},
	}
}
