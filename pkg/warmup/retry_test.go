package warmup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Sternrassler/prerender-cache/pkg/render"
)

func TestRetryWithBackoff(t *testing.T) {
	config := RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        4 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
	errBoom := errors.New("boom")

	tests := []struct {
		name         string
		failures     int
		wantAttempts int
		wantErr      bool
	}{
		{name: "first attempt succeeds", failures: 0, wantAttempts: 1},
		{name: "succeeds on retry", failures: 2, wantAttempts: 3},
		{name: "exhausted", failures: 5, wantAttempts: 3, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			attempts, err := retryWithBackoff(context.Background(), config, func() error {
				calls++
				if calls <= tt.failures {
					return errBoom
				}
				return nil
			})

			if attempts != tt.wantAttempts {
				t.Errorf("attempts = %d, want %d", attempts, tt.wantAttempts)
			}
			if calls != tt.wantAttempts {
				t.Errorf("fn called %d times, want %d", calls, tt.wantAttempts)
			}
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, errBoom) {
				t.Errorf("err = %v, want wrapped boom", err)
			}
		})
	}
}

func TestRetryWithBackoff_ContextCancelledDuringBackoff(t *testing.T) {
	config := RetryConfig{MaxAttempts: 3, InitialBackoff: time.Hour, BackoffMultiplier: 2.0}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	attempts, err := retryWithBackoff(ctx, config, func() error { return errors.New("fail") })

	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want context.DeadlineExceeded", err)
	}
	if time.Since(start) > time.Second {
		t.Error("retry did not stop on context cancellation")
	}
}

func TestRetryConfig_ForClass(t *testing.T) {
	base := RetryConfig{InitialBackoff: time.Second, MaxBackoff: 10 * time.Second}

	tests := []struct {
		class render.ErrorClass
		want  time.Duration
	}{
		{render.ErrorClassNavigation, time.Second},
		{render.ErrorClassCapture, time.Second},
		{render.ErrorClassLaunch, 2 * time.Second},
		{render.ErrorClassTimeout, 3 * time.Second},
		{"", time.Second},
	}

	for _, tt := range tests {
		t.Run(string(tt.class), func(t *testing.T) {
			if got := base.forClass(tt.class).InitialBackoff; got != tt.want {
				t.Errorf("InitialBackoff = %v, want %v", got, tt.want)
			}
		})
	}

	capped := RetryConfig{InitialBackoff: 5 * time.Second, MaxBackoff: 6 * time.Second}
	if got := capped.forClass(render.ErrorClassTimeout).InitialBackoff; got != 6*time.Second {
		t.Errorf("capped InitialBackoff = %v, want 6s", got)
	}
}
