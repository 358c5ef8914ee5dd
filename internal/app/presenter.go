package app

import "fe-quiz-runner/internal/domain"

// Presenter renders runner state. Calls happen while the runner holds its lock,
// so implementations must not call back into the runner.
type Presenter interface {
	Idle(view IdleView)
	Question(view QuestionView)
	Feedback(view FeedbackView)
	Clock(timeLeft int)
	Result(res Result)
	ResumeChoice(view ResumeView)
	TakenOver()
	Message(text string, isError bool)
}

// IdleView is the setup screen.
type IdleView struct {
	Loaded      int             `json:"loaded"`
	Locked      bool            `json:"locked"`
	PresetKey   string          `json:"presetKey,omitempty"`
	Settings    domain.Settings `json:"settings"`
	UserPresets []string        `json:"userPresets"`
}

// QuestionView is an ungraded question; it never carries the answer index.
type QuestionView struct {
	Mode        domain.Mode  `json:"mode"`
	Index       int          `json:"index"`
	Total       int          `json:"total"`
	TimeLeft    int          `json:"timeLeft"`
	ID          string       `json:"id"`
	Lang        string       `json:"lang,omitempty"`
	Genre       string       `json:"genre,omitempty"`
	Topics      []string     `json:"topics,omitempty"`
	Difficulty  int          `json:"difficulty"`
	Question    string       `json:"question"`
	Expr        string       `json:"expr,omitempty"`
	JP          string       `json:"jp,omitempty"`
	Choices     []string     `json:"choices"`
	Explanation *Explanation `json:"explanation,omitempty"`
}

// FeedbackView is the graded state of the current question.
type FeedbackView struct {
	Mode        domain.Mode        `json:"mode"`
	Index       int                `json:"index"`
	Total       int                `json:"total"`
	Entry       domain.AnswerEntry `json:"entry"`
	Question    string             `json:"question"`
	Expr        string             `json:"expr,omitempty"`
	JP          string             `json:"jp,omitempty"`
	ChosenText  string             `json:"chosenText"`
	CorrectText string             `json:"correctText"`
	Hint        string             `json:"hint,omitempty"`
	Explanation *Explanation       `json:"explanation,omitempty"`
}

// ResumeView offers continuing an interrupted run.
type ResumeView struct {
	Mode     domain.Mode `json:"mode"`
	Current  int         `json:"current"`
	Total    int         `json:"total"`
	TimeLeft int         `json:"timeLeft"`
}

func questionView(s *QuizSession, beginner bool) QuestionView {
	q, _ := s.CurrentQuestion()
	v := QuestionView{
		Mode:       s.Mode,
		Index:      s.Current,
		Total:      len(s.Questions),
		TimeLeft:   s.TimeLeft,
		ID:         q.ID,
		Lang:       q.Lang,
		Genre:      q.Genre,
		Topics:     q.Topics,
		Difficulty: q.Level(),
		Question:   q.Question,
		Expr:       q.Expr,
		Choices:    q.Choices,
	}
	if beginner {
		v.JP = q.JP
	}
	if s.Mode == domain.ModeMain {
		v.Explanation = explain(q, true)
	}
	return v
}

func feedbackView(s *QuizSession, entry domain.AnswerEntry, beginner bool) FeedbackView {
	q := domain.IndexByID(s.Questions)[entry.QuestionID]
	v := FeedbackView{
		Mode:        s.Mode,
		Index:       s.Current,
		Total:       len(s.Questions),
		Entry:       entry,
		Question:    q.Question,
		Expr:        q.Expr,
		ChosenText:  q.ChoiceText(entry.ChosenIndex),
		CorrectText: q.ChoiceText(entry.CorrectIndex),
	}
	if !entry.Correct {
		v.Hint = q.Hint
	}
	switch s.Mode {
	case domain.ModeReview:
		v.JP = q.JP
		if !entry.Correct {
			v.Explanation = &Explanation{Pseudo: PseudoText(q)}
			if q.Level() >= 3 {
				v.Explanation.Pseudocode = Pseudocode(q)
			}
		}
	default:
		if beginner {
			v.JP = q.JP
		}
		v.Explanation = explain(q, true)
	}
	return v
}
