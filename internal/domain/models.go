package domain

// Question is one multiple-choice item from the question bank.
type Question struct {
	ID         string   `json:"id"`
	Lang       string   `json:"lang,omitempty"`
	Genre      string   `json:"genre,omitempty"`
	Skill      string   `json:"skill,omitempty"`
	Difficulty int      `json:"difficulty,omitempty"` // 1..3, defaults to 1 if zero
	Topics     []string `json:"topics,omitempty"`
	Question   string   `json:"question"`
	Expr       string   `json:"expr,omitempty"`
	JP         string   `json:"jp,omitempty"`
	Hint       string   `json:"hint,omitempty"`
	Pseudo     string   `json:"pseudo,omitempty"`
	Pseudocode string   `json:"pseudocode,omitempty"`
	Choices    []string `json:"choices"`
	Answer     int      `json:"answer"`
}

// Level returns the difficulty, treating an unset value as 1.
func (q Question) Level() int {
	if q.Difficulty == 0 {
		return 1
	}
	return q.Difficulty
}

// ChoiceText returns the text of choice i, or "(unknown)" when out of range.
func (q Question) ChoiceText(i int) string {
	if i < 0 || i >= len(q.Choices) {
		return "(unknown)"
	}
	return q.Choices[i]
}

// AnswerEntry is one graded question in a run's answer log.
type AnswerEntry struct {
	QuestionID   string `json:"id"`
	ChosenIndex  int    `json:"chosen"`
	Correct      bool   `json:"correct"`
	CorrectIndex int    `json:"correctIndex"`
}

// Mode is the run mode of a quiz session.
type Mode string

const (
	ModeIdle   Mode = "idle"
	ModeMain   Mode = "main"
	ModeReview Mode = "review"
)

// FinishReason explains why a run ended.
type FinishReason string

const (
	ReasonAllAnswered    FinishReason = "all answered"
	ReasonTimeExpired    FinishReason = "time expired"
	ReasonReviewComplete FinishReason = "review complete"
)
