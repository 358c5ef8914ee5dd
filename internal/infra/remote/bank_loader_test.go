package remote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fe-quiz-runner/internal/domain"
)

func TestBankLoaderFetchesVersion(t *testing.T) {
	var gotVersion string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotVersion = r.URL.Query().Get("qver")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":"q1","question":"a > b","choices":["true","false"],"answer":1}]`))
	}))
	defer srv.Close()

	questions, err := NewBankLoader(srv.URL+"/questions.json", time.Second).LoadBank(context.Background(), "20240101")
	if err != nil {
		t.Fatalf("load bank: %v", err)
	}
	if gotVersion != "20240101" {
		t.Fatalf("expected version token in query, got %q", gotVersion)
	}
	if len(questions) != 1 || questions[0].Answer != 1 {
		t.Fatalf("unexpected bank %+v", questions)
	}
}

func TestBankLoaderErrorsNameTheResource(t *testing.T) {
	cases := map[string]struct {
		status int
		body   string
		want   error
	}{
		"http error": {status: http.StatusNotFound, body: "nope", want: domain.ErrBankUnavailable},
		"not array":  {status: http.StatusOK, body: `{"questions":[]}`, want: domain.ErrBankMalformed},
		"empty":      {status: http.StatusOK, body: `[]`, want: domain.ErrBankEmpty},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := NewBankLoader(srv.URL+"/questions.json", time.Second).LoadBank(context.Background(), "v1")
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			var loadErr *domain.BankLoadError
			if !errors.As(err, &loadErr) || !strings.Contains(loadErr.Resource, "questions.json?qver=v1") {
				t.Fatalf("expected error naming the resource, got %v", err)
			}
		})
	}
}

func TestDefaultVersion(t *testing.T) {
	got := DefaultVersion(time.Date(2024, 3, 9, 23, 0, 0, 0, time.UTC))
	if got != "20240309" {
		t.Fatalf("unexpected version %s", got)
	}
}
