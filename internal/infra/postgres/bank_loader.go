package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"fe-quiz-runner/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// BankLoader loads question bank JSONB arrays from Postgres. A version token
// with no exact row falls back to the most recently stored bank.
type BankLoader struct {
	pool *pgxpool.Pool
}

func NewBankLoader(pool *pgxpool.Pool) *BankLoader {
	return &BankLoader{pool: pool}
}

func (l *BankLoader) LoadBank(ctx context.Context, version string) ([]domain.Question, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx,
		`SELECT data FROM question_banks ORDER BY (version = $1) DESC, created_at DESC LIMIT 1`,
		version,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &domain.BankLoadError{Resource: l.resource(version), Err: domain.ErrBankEmpty}
	}
	if err != nil {
		return nil, &domain.BankLoadError{Resource: l.resource(version), Err: fmt.Errorf("query bank: %w", err)}
	}
	questions, err := domain.ParseBank(raw)
	if err != nil {
		return nil, &domain.BankLoadError{Resource: l.resource(version), Err: err}
	}
	return questions, nil
}

// SaveBank stores questions under version, replacing any previous bank with that version.
func (l *BankLoader) SaveBank(ctx context.Context, version string, questions []domain.Question) error {
	if len(questions) == 0 {
		return domain.ErrBankEmpty
	}
	data, err := json.Marshal(questions)
	if err != nil {
		return fmt.Errorf("marshal bank: %w", err)
	}
	_, err = l.pool.Exec(ctx,
		`INSERT INTO question_banks (version, data) VALUES ($1, $2::jsonb)
		 ON CONFLICT (version) DO UPDATE SET data = EXCLUDED.data, created_at = now()`,
		version, string(data),
	)
	if err != nil {
		return fmt.Errorf("save bank: %w", err)
	}
	return nil
}

func (l *BankLoader) resource(version string) string {
	return "postgres:question_banks@" + version
}
