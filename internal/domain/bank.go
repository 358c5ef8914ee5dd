package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ParseBank decodes a question bank payload. A payload that is not a JSON array
// or that holds no questions is rejected.
func ParseBank(data []byte) ([]Question, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, ErrBankMalformed
	}
	var questions []Question
	if err := json.Unmarshal(trimmed, &questions); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBankMalformed, err)
	}
	if len(questions) == 0 {
		return nil, ErrBankEmpty
	}
	return questions, nil
}

// IndexByID maps question ids to questions.
func IndexByID(questions []Question) map[string]Question {
	byID := make(map[string]Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}
	return byID
}

// BankLoadError reports which resource failed while loading the bank.
type BankLoadError struct {
	Resource string
	Err      error
}

func (e *BankLoadError) Error() string {
	return fmt.Sprintf("load question bank from %s: %v", e.Resource, e.Err)
}

func (e *BankLoadError) Unwrap() error {
	return e.Err
}
