package app

import (
	"context"
	"log"
	"sync"
	"time"

	"fe-quiz-runner/internal/domain"
)

const (
	// DefaultTotalTime is the main-run clock in seconds.
	DefaultTotalTime = 10 * 60
	// minReviewTime and perQuestionReviewTime size the review clock.
	minReviewTime         = 120
	perQuestionReviewTime = 60
	// maxResumeTime caps a restored clock.
	maxResumeTime = 24 * 60 * 60
	// snapshotEvery is the tick cadence, in remaining seconds, of locked-mode clock snapshots.
	snapshotEvery = 3
)

// RunnerConfig describes one tab.
type RunnerConfig struct {
	TabID     string
	Locked    bool
	PresetKey string // forced preset identity, only used when Locked
	AutoStart bool
	// FreshStart discards any resumable session at boot.
	FreshStart bool

	TotalTime         int
	ClockInterval     time.Duration
	HeartbeatInterval time.Duration
	LeaseTTL          time.Duration
}

func (c RunnerConfig) withDefaults() RunnerConfig {
	if !c.Locked {
		c.PresetKey = ""
		c.AutoStart = false
		c.FreshStart = false
	} else if c.PresetKey == "" {
		c.PresetKey = domain.FallbackPreset
	}
	if c.TotalTime <= 0 {
		c.TotalTime = DefaultTotalTime
	}
	if c.ClockInterval <= 0 {
		c.ClockInterval = time.Second
	}
	if c.LeaseTTL <= 0 {
		c.LeaseTTL = DefaultLeaseTTL
	}
	if c.HeartbeatInterval <= 0 || c.HeartbeatInterval >= c.LeaseTTL {
		c.HeartbeatInterval = c.LeaseTTL / 3
	}
	return c
}

// RunnerDeps are the collaborators of a Runner.
type RunnerDeps struct {
	Storage   Storage
	Scheduler Scheduler
	Selector  *Selector
	Presenter Presenter
	Now       func() time.Time
}

// Runner drives one tab's quiz: setup, the main/review state machine, the
// clock, and in locked mode the run lease and session snapshots. Every user
// action and every tick runs under one mutex, so transitions are sequential.
type Runner struct {
	mu       sync.Mutex
	cfg      RunnerConfig
	bank     []domain.Question
	presets  *PresetService
	lease    *RunLease
	sessions *SessionStore
	selector *Selector
	sched    Scheduler
	now      func() time.Time
	view     Presenter

	settings   domain.Settings
	beginner   bool
	session    *QuizSession
	lastPicked []domain.Question
	candidate  *ResumeCandidate
	takenOver  bool

	stopTimer func()
	runGen    uint64
}

// ResumeCandidate is a validated snapshot ready to be restored.
type ResumeCandidate struct {
	Mode       domain.Mode
	Questions  []domain.Question
	Current    int
	Score      int
	TimeLeft   int
	AnswersLog []domain.AnswerEntry
	Checked    bool
}

func NewRunner(cfg RunnerConfig, bank []domain.Question, deps RunnerDeps) *Runner {
	cfg = cfg.withDefaults()
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	sched := deps.Scheduler
	if sched == nil {
		sched = TickerScheduler{}
	}
	selector := deps.Selector
	if selector == nil {
		selector = NewSelector()
	}
	return &Runner{
		cfg:      cfg,
		bank:     bank,
		presets:  NewPresetService(deps.Storage),
		lease:    NewRunLeaseWithClock(deps.Storage, cfg.PresetKey, cfg.LeaseTTL, now),
		sessions: NewSessionStoreWithClock(deps.Storage, cfg.Locked, cfg.PresetKey, now),
		selector: selector,
		sched:    sched,
		now:      now,
		view:     deps.Presenter,
		settings: domain.Settings{Filter: domain.DefaultFilter()},
	}
}

// Boot runs the startup flow once the bank is loaded. In locked mode it
// forces the preset, then either discards state (fresh start), offers resume,
// auto-starts, or shows the setup screen.
func (r *Runner) Boot(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.beginner = r.presets.Beginner(ctx)
	r.settings.Beginner = r.beginner

	if !r.cfg.Locked {
		if s, ok := r.presets.Settings(ctx); ok {
			r.applySettingsLocked(ctx, s)
		}
		r.showIdleLocked(ctx)
		return
	}

	r.applyForcedPresetLocked(ctx)

	if r.cfg.FreshStart {
		r.lease.Release(ctx, r.cfg.TabID)
		r.sessions.Clear(ctx)
		r.autoStartOrIdleLocked(ctx)
		return
	}

	if candidate, ok := r.resumeCandidateLocked(ctx); ok {
		r.candidate = &candidate
		r.stopTimerLocked(ctx)
		r.view.ResumeChoice(ResumeView{
			Mode:     candidate.Mode,
			Current:  candidate.Current,
			Total:    len(candidate.Questions),
			TimeLeft: candidate.TimeLeft,
		})
		return
	}

	r.autoStartOrIdleLocked(ctx)
}

// ApplySettings replaces the setup filter; rejected in locked mode and while running.
func (r *Runner) ApplySettings(ctx context.Context, s domain.Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkSetupLocked(); err != nil {
		return err
	}
	r.applySettingsLocked(ctx, s)
	return nil
}

// ApplyPreset applies a fixed or user preset by name.
func (r *Runner) ApplyPreset(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkSetupLocked(); err != nil {
		return err
	}
	s, ok := r.presets.Resolve(ctx, name)
	if !ok {
		return domain.ErrPresetNotFound
	}
	r.applySettingsLocked(ctx, s)
	r.view.Message("applied preset "+name, false)
	return nil
}

// SavePreset stores the current settings under name.
func (r *Runner) SavePreset(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cfg.Locked {
		return domain.ErrLocked
	}
	s := r.settings
	s.Beginner = r.beginner
	return r.presets.SavePreset(ctx, name, s)
}

func (r *Runner) DeletePreset(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cfg.Locked {
		return domain.ErrLocked
	}
	return r.presets.DeletePreset(ctx, name)
}

func (r *Runner) ExportPresets(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cfg.Locked {
		return "", domain.ErrLocked
	}
	return r.presets.Export(ctx)
}

func (r *Runner) ImportPresets(ctx context.Context, text string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cfg.Locked {
		return 0, domain.ErrLocked
	}
	return r.presets.Import(ctx, text)
}

// UserPresets lists user preset names.
func (r *Runner) UserPresets(ctx context.Context) []string {
	return r.presets.Names(ctx)
}

// SetBeginner toggles beginner mode; allowed in locked mode too.
func (r *Runner) SetBeginner(ctx context.Context, on bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.beginner = on
	r.settings.Beginner = on
	r.presets.SetBeginner(ctx, on)
	r.presets.SaveSettings(ctx, r.settings)
	if r.session.Running() && !r.session.Checked {
		r.view.Question(questionView(r.session, r.beginner))
	}
}

// Start filters the bank with the current settings and begins a main run.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.takenOver {
		return domain.ErrTakenOver
	}
	if r.session.Running() {
		return domain.ErrRunInProgress
	}
	return r.startLocked(ctx)
}

// Grade grades the current question with choice (NoChoice when nothing is selected).
func (r *Runner) Grade(ctx context.Context, choice int) (domain.AnswerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gradeLocked(ctx, choice)
}

// Advance moves past a graded question, finishing the run after the last one.
func (r *Runner) Advance(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.advanceLocked(ctx)
}

// Primary is the single action button: grade when unchecked, advance when checked.
func (r *Runner) Primary(ctx context.Context, choice int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session.Running() && r.session.Checked {
		return r.advanceLocked(ctx)
	}
	_, err := r.gradeLocked(ctx, choice)
	return err
}

func (r *Runner) gradeLocked(ctx context.Context, choice int) (domain.AnswerEntry, error) {
	if r.takenOver {
		return domain.AnswerEntry{}, domain.ErrTakenOver
	}
	if !r.session.Running() {
		return domain.AnswerEntry{}, domain.ErrNotRunning
	}
	entry, err := r.session.Grade(choice)
	if err != nil {
		return domain.AnswerEntry{}, err
	}
	r.snapshotLocked(ctx)
	r.view.Feedback(feedbackView(r.session, entry, r.beginner))
	return entry, nil
}

func (r *Runner) advanceLocked(ctx context.Context) error {
	if r.takenOver {
		return domain.ErrTakenOver
	}
	if !r.session.Running() {
		return domain.ErrNotRunning
	}
	done, err := r.session.Advance()
	if err != nil {
		return err
	}
	if done {
		r.finishLocked(ctx)
		return nil
	}
	r.snapshotLocked(ctx)
	r.view.Question(questionView(r.session, r.beginner))
	return nil
}

// RetryWrong starts a review run over the wrong answers of a finished main run.
func (r *Runner) RetryWrong(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.takenOver {
		return domain.ErrTakenOver
	}
	if r.session == nil || !r.session.Finished {
		return domain.ErrNotFinished
	}
	if r.session.Mode != domain.ModeMain {
		return domain.ErrNothingToRetry
	}
	wrong := r.session.WrongQuestions()
	if len(wrong) == 0 {
		return domain.ErrNothingToRetry
	}
	r.startReviewLocked(ctx, wrong)
	return nil
}

// Back returns to the setup screen from a finished run.
func (r *Runner) Back(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.takenOver {
		return domain.ErrTakenOver
	}
	if r.session.Running() {
		return domain.ErrRunInProgress
	}
	r.showIdleLocked(ctx)
	return nil
}

// RestartFromZero discards the locked session, releases the lease and begins again.
func (r *Runner) RestartFromZero(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.cfg.Locked {
		return domain.ErrNotLockedMode
	}
	if r.takenOver {
		return domain.ErrTakenOver
	}
	if r.session.Running() {
		return domain.ErrRunInProgress
	}
	r.stopTimerLocked(ctx)
	r.sessions.Clear(ctx)
	r.session = nil
	r.autoStartOrIdleLocked(ctx)
	return nil
}

// Resume restores the pending resume candidate and restarts its clock.
func (r *Runner) Resume(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.takenOver {
		return domain.ErrTakenOver
	}
	if r.candidate == nil {
		return domain.ErrNoResumeCandidate
	}
	c := *r.candidate
	r.candidate = nil

	r.session = &QuizSession{
		Mode:       c.Mode,
		Questions:  c.Questions,
		Current:    c.Current,
		Score:      c.Score,
		TimeLeft:   c.TimeLeft,
		AnswersLog: c.AnswersLog,
		Checked:    c.Checked,
	}

	if c.TimeLeft <= 0 || c.Current >= len(c.Questions) {
		if !r.lease.Acquire(ctx, r.cfg.TabID) {
			r.takeoverLocked(ctx)
			return nil
		}
		if c.TimeLeft <= 0 {
			r.session.Finish(domain.ReasonTimeExpired)
		} else if c.Mode == domain.ModeReview {
			r.session.Finish(domain.ReasonReviewComplete)
		} else {
			r.session.Finish(domain.ReasonAllAnswered)
		}
		r.finishLocked(ctx)
		return nil
	}

	if !r.startTimerLocked(ctx) {
		return nil
	}
	r.showCurrentLocked()
	r.snapshotLocked(ctx)
	r.view.Message("resumed the previous session", false)
	return nil
}

// Discard drops the pending resume candidate, clears the stored session and
// releases a lease this tab owns, then auto-starts or shows the setup screen.
// A live lease held by another tab is left alone, so starting over from here
// ends in takeover.
func (r *Runner) Discard(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.takenOver {
		return domain.ErrTakenOver
	}
	if r.candidate == nil {
		return domain.ErrNoResumeCandidate
	}
	r.candidate = nil
	r.lease.Release(ctx, r.cfg.TabID)
	r.sessions.Clear(ctx)
	r.autoStartOrIdleLocked(ctx)
	return nil
}

// Close is called when the tab goes away: timers stop and an owned lease is
// released. The snapshot stays so a reopened tab can resume.
func (r *Runner) Close(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopTimerLocked(ctx)
}

// StateView is a read-only copy of the runner state.
type StateView struct {
	Mode        domain.Mode          `json:"mode"`
	Current     int                  `json:"current"`
	Total       int                  `json:"total"`
	Score       int                  `json:"score"`
	TimeLeft    int                  `json:"timeLeft"`
	Checked     bool                 `json:"checked"`
	Finished    bool                 `json:"finished"`
	Reason      domain.FinishReason  `json:"reason,omitempty"`
	AnswersLog  []domain.AnswerEntry `json:"answersLog"`
	QuestionIDs []string             `json:"questionIds"`
	Beginner    bool                 `json:"beginner"`
	TakenOver   bool                 `json:"takenOver"`
	Resumable   bool                 `json:"resumable"`
	Running     bool                 `json:"running"`
}

func (r *Runner) State() StateView {
	r.mu.Lock()
	defer r.mu.Unlock()
	v := StateView{
		Mode:      domain.ModeIdle,
		Beginner:  r.beginner,
		TakenOver: r.takenOver,
		Resumable: r.candidate != nil,
		Running:   r.stopTimer != nil,
	}
	if r.session == nil {
		return v
	}
	snap := r.session.snapshot()
	v.Mode = r.session.Mode
	v.Current = r.session.Current
	v.Total = len(r.session.Questions)
	v.Score = r.session.Score
	v.TimeLeft = r.session.TimeLeft
	v.Checked = r.session.Checked
	v.Finished = r.session.Finished
	v.Reason = r.session.Reason
	v.AnswersLog = snap.AnswersLog
	v.QuestionIDs = snap.QuestionIDs
	return v
}

// Settings returns the active setup settings.
func (r *Runner) Settings() domain.Settings {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.settings
}

func (r *Runner) checkSetupLocked() error {
	if r.cfg.Locked {
		return domain.ErrLocked
	}
	if r.session.Running() {
		return domain.ErrRunInProgress
	}
	return nil
}

func (r *Runner) applySettingsLocked(ctx context.Context, s domain.Settings) {
	if domain.IsAll(s.Langs) {
		s.Langs = []string{domain.All}
	}
	if domain.IsAll(s.Genres) {
		s.Genres = []string{domain.All}
	}
	if s.Count == "" {
		s.Count = domain.All
	}
	r.settings = s
	r.beginner = s.Beginner
	r.presets.SetBeginner(ctx, s.Beginner)
	r.presets.SaveSettings(ctx, s)
}

// applyForcedPresetLocked resolves the forced preset, falling back to beginner.
func (r *Runner) applyForcedPresetLocked(ctx context.Context) {
	if s, ok := r.presets.Resolve(ctx, r.cfg.PresetKey); ok {
		r.applySettingsLocked(ctx, s)
		r.view.Message("locked: applied preset "+r.cfg.PresetKey, false)
		return
	}
	r.applySettingsLocked(ctx, domain.FixedPresets()[domain.FallbackPreset])
	r.view.Message("locked: preset "+r.cfg.PresetKey+" not found, applied "+domain.FallbackPreset, true)
}

func (r *Runner) autoStartOrIdleLocked(ctx context.Context) {
	if r.cfg.AutoStart {
		if err := r.startLocked(ctx); err != nil {
			r.showIdleLocked(ctx)
			r.view.Message(err.Error(), true)
		}
		return
	}
	r.showIdleLocked(ctx)
}

func (r *Runner) startLocked(ctx context.Context) error {
	f := r.settings.Filter
	if len(f.Difficulties) == 0 {
		return domain.ErrNoDifficulty
	}
	r.presets.SaveSettings(ctx, r.settings)

	picked := r.selector.Apply(r.bank, f)
	if len(picked) == 0 {
		return domain.ErrNoMatchingQuestions
	}
	r.lastPicked = picked
	r.startRunLocked(ctx, NewQuizSession(domain.ModeMain, picked, r.cfg.TotalTime))
	return nil
}

func (r *Runner) startReviewLocked(ctx context.Context, wrong []domain.Question) {
	t := len(wrong) * perQuestionReviewTime
	if t > r.cfg.TotalTime {
		t = r.cfg.TotalTime
	}
	if t < minReviewTime {
		t = minReviewTime
	}
	r.beginner = true
	r.startRunLocked(ctx, NewQuizSession(domain.ModeReview, wrong, t))
}

func (r *Runner) startRunLocked(ctx context.Context, s *QuizSession) {
	r.stopTimerLocked(ctx)
	r.candidate = nil
	r.session = s
	if !r.startTimerLocked(ctx) {
		return
	}
	r.view.Question(questionView(s, r.beginner))
	r.snapshotLocked(ctx)
}

// showCurrentLocked re-presents the current question, or its feedback when
// it was already graded.
func (r *Runner) showCurrentLocked() {
	if r.session.Checked {
		if entry, ok := r.session.LastEntry(); ok {
			r.view.Feedback(feedbackView(r.session, entry, r.beginner))
			return
		}
	}
	r.view.Question(questionView(r.session, r.beginner))
}

// startTimerLocked acquires the lease (locked mode) and schedules the clock
// and heartbeat. It reports false when the lease is held by another tab.
func (r *Runner) startTimerLocked(ctx context.Context) bool {
	if r.cfg.Locked && !r.lease.Acquire(ctx, r.cfg.TabID) {
		r.takeoverLocked(ctx)
		return false
	}

	r.runGen++
	gen := r.runGen
	stopClock := r.sched.Every(r.cfg.ClockInterval, func() { r.onClockTick(gen) })
	stopBeat := func() {}
	if r.cfg.Locked {
		stopBeat = r.sched.Every(r.cfg.HeartbeatInterval, func() { r.onHeartbeat(gen) })
	}
	r.stopTimer = func() {
		stopClock()
		stopBeat()
	}
	r.view.Clock(r.session.TimeLeft)
	return true
}

// stopTimerLocked cancels clock and heartbeat together and releases an owned lease.
func (r *Runner) stopTimerLocked(ctx context.Context) {
	if r.stopTimer != nil {
		r.stopTimer()
		r.stopTimer = nil
	}
	r.runGen++
	if r.cfg.Locked {
		r.lease.Release(ctx, r.cfg.TabID)
	}
}

func (r *Runner) onClockTick(gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.runGen || !r.session.Running() {
		return
	}
	ctx := context.Background()
	if r.cfg.Locked && !r.lease.IsOwner(ctx, r.cfg.TabID) {
		r.takeoverLocked(ctx)
		return
	}

	expired := r.session.Tick()
	r.view.Clock(r.session.TimeLeft)
	if expired {
		r.finishLocked(ctx)
		return
	}
	if r.cfg.Locked && r.session.TimeLeft%snapshotEvery == 0 {
		r.snapshotLocked(ctx)
	}
}

func (r *Runner) onHeartbeat(gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.runGen {
		return
	}
	ctx := context.Background()
	if !r.lease.IsOwner(ctx, r.cfg.TabID) {
		r.takeoverLocked(ctx)
		return
	}
	r.lease.Heartbeat(ctx, r.cfg.TabID)
}

// takeoverLocked is the terminal state after losing the lease: the run is
// dropped without touching the other tab's snapshot.
func (r *Runner) takeoverLocked(ctx context.Context) {
	r.stopTimerLocked(ctx)
	r.session = nil
	r.candidate = nil
	r.takenOver = true
	log.Printf("tab %s stopped: run lease held by another tab", r.cfg.TabID)
	r.view.TakenOver()
}

func (r *Runner) finishLocked(ctx context.Context) {
	r.snapshotLocked(ctx)
	r.stopTimerLocked(ctx)
	res := r.session.Result()
	res.CanRestart = r.cfg.Locked
	r.view.Result(res)
}

func (r *Runner) showIdleLocked(ctx context.Context) {
	r.stopTimerLocked(ctx)
	r.session = nil
	r.view.Idle(IdleView{
		Loaded:      len(r.bank),
		Locked:      r.cfg.Locked,
		PresetKey:   r.cfg.PresetKey,
		Settings:    r.settings,
		UserPresets: r.presets.Names(ctx),
	})
}

// snapshotLocked persists the session in locked mode, and only while this tab owns the lease.
func (r *Runner) snapshotLocked(ctx context.Context) {
	if !r.cfg.Locked || r.session == nil {
		return
	}
	if !r.lease.IsOwner(ctx, r.cfg.TabID) {
		return
	}
	r.sessions.Save(ctx, r.session.snapshot())
}

// resumeCandidateLocked validates the stored snapshot against the loaded bank.
func (r *Runner) resumeCandidateLocked(ctx context.Context) (ResumeCandidate, bool) {
	snap, ok := r.sessions.Load(ctx)
	if !ok || snap.Finished || len(snap.QuestionIDs) == 0 {
		return ResumeCandidate{}, false
	}

	byID := domain.IndexByID(r.bank)
	questions := make([]domain.Question, 0, len(snap.QuestionIDs))
	for _, id := range snap.QuestionIDs {
		q, ok := byID[id]
		if !ok {
			return ResumeCandidate{}, false
		}
		questions = append(questions, q)
	}

	if snap.Current < 0 || snap.Current > len(questions) {
		return ResumeCandidate{}, false
	}
	graded := snap.Current
	if snap.Checked {
		graded++
	}
	if len(snap.AnswersLog) != graded || graded > len(questions) {
		return ResumeCandidate{}, false
	}
	score := 0
	for i, entry := range snap.AnswersLog {
		if entry.QuestionID != questions[i].ID {
			return ResumeCandidate{}, false
		}
		if entry.Correct {
			score++
		}
	}

	mode := domain.ModeMain
	if snap.Mode == domain.ModeReview {
		mode = domain.ModeReview
	}

	elapsed := int((unixMilli(r.now()) - snap.SavedAt) / 1000)
	if elapsed < 0 {
		elapsed = 0
	}
	timeLeft := clamp(snap.TimeLeft-elapsed, 0, maxResumeTime)

	return ResumeCandidate{
		Mode:       mode,
		Questions:  questions,
		Current:    snap.Current,
		Score:      score,
		TimeLeft:   timeLeft,
		AnswersLog: snap.AnswersLog,
		Checked:    snap.Checked,
	}, true
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
