package app

import "fe-quiz-runner/internal/domain"

// NoChoice marks a grade request without a selected choice.
const NoChoice = -1

// QuizSession is the mutable state of one run. All mutation goes through its
// transition methods; the Runner owns the instance and serializes access.
type QuizSession struct {
	Mode       domain.Mode
	Questions  []domain.Question
	Current    int
	Score      int
	TimeLeft   int
	AnswersLog []domain.AnswerEntry
	Checked    bool
	Finished   bool
	Reason     domain.FinishReason
}

// NewQuizSession starts a run over questions with timeLeft seconds on the clock.
func NewQuizSession(mode domain.Mode, questions []domain.Question, timeLeft int) *QuizSession {
	qs := make([]domain.Question, len(questions))
	copy(qs, questions)
	return &QuizSession{
		Mode:      mode,
		Questions: qs,
		TimeLeft:  timeLeft,
	}
}

// Running reports whether the session still accepts grade/advance/tick.
func (s *QuizSession) Running() bool {
	return s != nil && !s.Finished && (s.Mode == domain.ModeMain || s.Mode == domain.ModeReview)
}

// CurrentQuestion returns the question at the cursor, if any.
func (s *QuizSession) CurrentQuestion() (domain.Question, bool) {
	if s.Current < 0 || s.Current >= len(s.Questions) {
		return domain.Question{}, false
	}
	return s.Questions[s.Current], true
}

// Grade compares choice with the current question's answer and logs the result.
func (s *QuizSession) Grade(choice int) (domain.AnswerEntry, error) {
	if !s.Running() {
		return domain.AnswerEntry{}, domain.ErrNotRunning
	}
	if s.Checked {
		return domain.AnswerEntry{}, domain.ErrAlreadyChecked
	}
	q, ok := s.CurrentQuestion()
	if !ok {
		return domain.AnswerEntry{}, domain.ErrNotRunning
	}
	if choice < 0 || choice >= len(q.Choices) {
		return domain.AnswerEntry{}, domain.ErrNoChoiceSelected
	}

	entry := domain.AnswerEntry{
		QuestionID:   q.ID,
		ChosenIndex:  choice,
		Correct:      choice == q.Answer,
		CorrectIndex: q.Answer,
	}
	if entry.Correct {
		s.Score++
	}
	s.AnswersLog = append(s.AnswersLog, entry)
	s.Checked = true
	return entry, nil
}

// Advance moves past a graded question. It reports true when the run finished.
func (s *QuizSession) Advance() (bool, error) {
	if !s.Running() {
		return false, domain.ErrNotRunning
	}
	if !s.Checked {
		return false, domain.ErrNotChecked
	}
	s.Current++
	s.Checked = false
	if s.Current < len(s.Questions) {
		return false, nil
	}
	if s.Mode == domain.ModeReview {
		s.Finish(domain.ReasonReviewComplete)
	} else {
		s.Finish(domain.ReasonAllAnswered)
	}
	return true, nil
}

// Tick removes one second from the clock. It reports true when time ran out,
// abandoning any ungraded current question.
func (s *QuizSession) Tick() bool {
	if !s.Running() {
		return false
	}
	if s.TimeLeft > 0 {
		s.TimeLeft--
	}
	if s.TimeLeft > 0 {
		return false
	}
	s.Finish(domain.ReasonTimeExpired)
	return true
}

// Finish ends the run; later calls keep the first reason.
func (s *QuizSession) Finish(reason domain.FinishReason) {
	if s.Finished {
		return
	}
	s.Finished = true
	s.Checked = false
	s.Reason = reason
}

// LastEntry returns the most recent log entry.
func (s *QuizSession) LastEntry() (domain.AnswerEntry, bool) {
	if len(s.AnswersLog) == 0 {
		return domain.AnswerEntry{}, false
	}
	return s.AnswersLog[len(s.AnswersLog)-1], true
}

// WrongQuestions returns the incorrectly answered questions in run order.
func (s *QuizSession) WrongQuestions() []domain.Question {
	wrong := make(map[string]struct{})
	for _, entry := range s.AnswersLog {
		if !entry.Correct {
			wrong[entry.QuestionID] = struct{}{}
		}
	}
	out := make([]domain.Question, 0, len(wrong))
	for _, q := range s.Questions {
		if _, ok := wrong[q.ID]; ok {
			out = append(out, q)
		}
	}
	return out
}

// Result summarizes a finished run.
type Result struct {
	Mode       domain.Mode          `json:"mode"`
	Reason     domain.FinishReason  `json:"reason"`
	Score      int                  `json:"score"`
	Total      int                  `json:"total"`
	Graded     int                  `json:"graded"`
	Wrong      []domain.AnswerEntry `json:"wrong"`
	CanRetry   bool                 `json:"canRetry"`
	AllCorrect bool                 `json:"allCorrect"`
	CanRestart bool                 `json:"canRestart"`
}

// Result builds the summary; retry is offered only after a main run with wrong answers.
func (s *QuizSession) Result() Result {
	wrong := make([]domain.AnswerEntry, 0)
	for _, entry := range s.AnswersLog {
		if !entry.Correct {
			wrong = append(wrong, entry)
		}
	}
	res := Result{
		Mode:   s.Mode,
		Reason: s.Reason,
		Score:  s.Score,
		Total:  len(s.Questions),
		Graded: len(s.AnswersLog),
		Wrong:  wrong,
	}
	if s.Mode == domain.ModeMain {
		res.CanRetry = len(wrong) > 0
		res.AllCorrect = len(wrong) == 0
	}
	return res
}

func (s *QuizSession) snapshot() Snapshot {
	ids := make([]string, len(s.Questions))
	for i, q := range s.Questions {
		ids[i] = q.ID
	}
	log := make([]domain.AnswerEntry, len(s.AnswersLog))
	copy(log, s.AnswersLog)
	return Snapshot{
		Finished:    s.Finished,
		Mode:        s.Mode,
		QuestionIDs: ids,
		Current:     s.Current,
		Score:       s.Score,
		TimeLeft:    s.TimeLeft,
		AnswersLog:  log,
		Checked:     s.Checked,
	}
}
