package remote

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"fe-quiz-runner/internal/domain"
)

// maxBankBytes bounds the response body read from the bank endpoint.
const maxBankBytes = 16 << 20

// BankLoader fetches the question bank over HTTP as <url>?qver=<version>.
// The version token doubles as a cache buster for intermediaries.
type BankLoader struct {
	url    string
	client *http.Client
}

func NewBankLoader(rawURL string, timeout time.Duration) *BankLoader {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &BankLoader{
		url:    rawURL,
		client: &http.Client{Timeout: timeout},
	}
}

func (l *BankLoader) LoadBank(ctx context.Context, version string) ([]domain.Question, error) {
	target, err := l.target(version)
	if err != nil {
		return nil, &domain.BankLoadError{Resource: l.url, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &domain.BankLoadError{Resource: target, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-store")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, &domain.BankLoadError{Resource: target, Err: fmt.Errorf("%w: %v", domain.ErrBankUnavailable, err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &domain.BankLoadError{Resource: target, Err: fmt.Errorf("%w: http %d", domain.ErrBankUnavailable, resp.StatusCode)}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBankBytes))
	if err != nil {
		return nil, &domain.BankLoadError{Resource: target, Err: fmt.Errorf("%w: %v", domain.ErrBankUnavailable, err)}
	}
	questions, err := domain.ParseBank(data)
	if err != nil {
		return nil, &domain.BankLoadError{Resource: target, Err: err}
	}
	return questions, nil
}

func (l *BankLoader) target(version string) (string, error) {
	u, err := url.Parse(l.url)
	if err != nil {
		return "", err
	}
	if version != "" {
		q := u.Query()
		q.Set("qver", version)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// DefaultVersion is the daily cache-busting token (YYYYMMDD).
func DefaultVersion(now time.Time) string {
	return now.Format("20060102")
}
