package ai_test

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/p-n-ai/lightup/internal/ai"
)

type flakyProvider struct {
	calls   atomic.Int32
	errs    []error
	content string
}

func (f *flakyProvider) Complete(_ context.Context, _ ai.CompletionRequest) (ai.CompletionResponse, error) {
	n := int(f.calls.Add(1)) - 1
	if n < len(f.errs) {
		return ai.CompletionResponse{}, f.errs[n]
	}
	return ai.CompletionResponse{Content: f.content}, nil
}

func (f *flakyProvider) HealthCheck(context.Context) error { return nil }

func fastRetry(attempts int) ai.RetryConfig {
	return ai.RetryConfig{
		MaxAttempts: attempts,
		InitialWait: time.Millisecond,
		MaxWait:     5 * time.Millisecond,
		Multiplier:  2,
	}
}

func TestRetryProvider(t *testing.T) {
	tests := []struct {
		name      string
		errs      []error
		attempts  int
		wantCalls int32
		wantErr   bool
	}{
		{
			name:      "succeeds first time",
			attempts:  3,
			wantCalls: 1,
		},
		{
			name:      "retries server errors",
			errs:      []error{&ai.APIError{StatusCode: 503}, &ai.APIError{StatusCode: 429}},
			attempts:  3,
			wantCalls: 3,
		},
		{
			name:      "retries transport errors",
			errs:      []error{errors.New("connection reset")},
			attempts:  3,
			wantCalls: 2,
		},
		{
			name:      "gives up after max attempts",
			errs:      []error{&ai.APIError{StatusCode: 500}, &ai.APIError{StatusCode: 500}, &ai.APIError{StatusCode: 500}},
			attempts:  2,
			wantCalls: 2,
			wantErr:   true,
		},
		{
			name:      "client errors are final",
			errs:      []error{&ai.APIError{StatusCode: http.StatusBadRequest}},
			attempts:  3,
			wantCalls: 1,
			wantErr:   true,
		},
		{
			name:      "deadline errors are final",
			errs:      []error{context.DeadlineExceeded},
			attempts:  3,
			wantCalls: 1,
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inner := &flakyProvider{errs: tt.errs, content: "ok"}
			p := ai.WithRetry(inner, fastRetry(tt.attempts))

			resp, err := p.Complete(context.Background(), ai.CompletionRequest{})
			if (err != nil) != tt.wantErr {
				t.Fatalf("Complete() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && resp.Content != "ok" {
				t.Errorf("Content = %q, want ok", resp.Content)
			}
			if got := inner.calls.Load(); got != tt.wantCalls {
				t.Errorf("calls = %d, want %d", got, tt.wantCalls)
			}
		})
	}
}

func TestRetryProvider_StopsOnCancel(t *testing.T) {
	inner := &flakyProvider{errs: []error{errors.New("boom"), errors.New("boom")}}
	p := ai.WithRetry(inner, ai.RetryConfig{MaxAttempts: 3, InitialWait: time.Hour, Multiplier: 1})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := p.Complete(ctx, ai.CompletionRequest{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("error = %v, want deadline exceeded", err)
	}
	if got := inner.calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

func TestDefaultRetryConfig(t *testing.T) {
	cfg := ai.DefaultRetryConfig()
	if cfg.MaxAttempts != 3 || cfg.InitialWait != time.Second || cfg.MaxWait != 10*time.Second {
		t.Errorf("DefaultRetryConfig() = %+v", cfg)
	}
}
