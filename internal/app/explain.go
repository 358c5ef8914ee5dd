package app

import (
	"regexp"
	"strings"

	"fe-quiz-runner/internal/domain"
)

// Explanation is the reading aid shown next to a question or its feedback.
type Explanation struct {
	JP         string `json:"jp,omitempty"`
	Pseudo     string `json:"pseudo,omitempty"`
	Pseudocode string `json:"pseudocode,omitempty"`
}

var (
	proseCondition = strings.NewReplacer(
		"&&", " and ",
		"||", " or ",
		"!=", " is not equal to ",
		"==", " equals ",
		">=", " is at least ",
		"<=", " is at most ",
		">", " is greater than ",
		"<", " is less than ",
	)
	codeCondition = strings.NewReplacer("&&", "AND", "||", "OR")
	notParen      = regexp.MustCompile(`!\s*\(`)
)

// PseudoText renders a one-line plain-language reading of the question's expression.
// A question-level override wins.
func PseudoText(q domain.Question) string {
	if strings.TrimSpace(q.Pseudo) != "" {
		return q.Pseudo
	}
	expr := strings.TrimSpace(q.Expr)
	if expr == "" {
		return ""
	}
	switch strings.ToLower(q.Genre) {
	case "loops":
		return "(loop) " + expr
	case "arrays":
		return "(array) " + expr
	case "strings":
		return "(string) " + expr
	default:
		return "if " + collapse(proseCondition.Replace(collapse(expr))) + " then true"
	}
}

// Pseudocode renders the exam-style pseudocode block for the question.
func Pseudocode(q domain.Question) string {
	if strings.TrimSpace(q.Pseudocode) != "" {
		return q.Pseudocode
	}
	expr := strings.TrimSpace(q.Expr)
	if expr == "" {
		return ""
	}
	switch strings.ToLower(q.Genre) {
	case "loops":
		return "(* LOOP *)\n" + expr
	case "arrays":
		return "(* ARRAY *)\n" + expr
	case "strings":
		return "(* STRING *)\n" + expr
	default:
		cond := notParen.ReplaceAllString(codeCondition.Replace(collapse(expr)), "NOT (")
		return "IF " + cond + " THEN\n    (process)\nENDIF"
	}
}

// explain builds the full explanation; pseudocode is included for hard
// questions or when always is set.
func explain(q domain.Question, always bool) *Explanation {
	e := &Explanation{JP: q.JP, Pseudo: PseudoText(q)}
	if always || q.Level() >= 3 {
		e.Pseudocode = Pseudocode(q)
	}
	if e.JP == "" && e.Pseudo == "" && e.Pseudocode == "" {
		return nil
	}
	return e
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
