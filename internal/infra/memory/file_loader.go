package memory

import (
	"context"
	"os"

	"fe-quiz-runner/internal/domain"
)

// FileBankLoader reads the bank from a JSON file on disk. The version token
// is ignored; the file is re-read on every cache miss.
type FileBankLoader struct {
	path string
}

func NewFileBankLoader(path string) *FileBankLoader {
	return &FileBankLoader{path: path}
}

func (l *FileBankLoader) LoadBank(_ context.Context, _ string) ([]domain.Question, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, &domain.BankLoadError{Resource: l.path, Err: err}
	}
	questions, err := domain.ParseBank(data)
	if err != nil {
		return nil, &domain.BankLoadError{Resource: l.path, Err: err}
	}
	return questions, nil
}
