package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"eventstream/internal/extraction"
	"eventstream/internal/filter"
	"eventstream/internal/ledger"
)

func TestExponentialBackoffStrategy_Success(t *testing.T) {
	strategy := NewExponentialBackoffStrategy(3, 10*time.Millisecond, 100*time.Millisecond)

	err := strategy.Execute(context.Background(), func(context.Context, int) error {
		return nil
	})

	if err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}
}

func TestExponentialBackoffStrategy_SuccessAfterRetries(t *testing.T) {
	strategy := NewExponentialBackoffStrategy(5, 10*time.Millisecond, 100*time.Millisecond)

	var seen []int
	err := strategy.Execute(context.Background(), func(_ context.Context, attempt int) error {
		seen = append(seen, attempt)
		if attempt < 2 {
			return fmt.Errorf("failed to get events for ledger 10: %w", errors.New("connection reset by peer"))
		}
		return nil
	})

	if err != nil {
		t.Errorf("Expected no error after retries, got: %v", err)
	}

	if len(seen) != 3 || seen[0] != 0 || seen[2] != 2 {
		t.Errorf("Expected attempts [0 1 2], got: %v", seen)
	}
}

func TestExponentialBackoffStrategy_NonRecoverableError(t *testing.T) {
	strategy := NewExponentialBackoffStrategy(5, 10*time.Millisecond, 100*time.Millisecond)

	attempts := 0
	err := strategy.Execute(context.Background(), func(context.Context, int) error {
		attempts++
		return fmt.Errorf("%w: ledger 3, window [10, 20]", ledger.ErrLedgerOutOfRange)
	})

	if !errors.Is(err, ledger.ErrLedgerOutOfRange) {
		t.Errorf("Expected out of range error, got: %v", err)
	}

	if attempts != 1 {
		t.Errorf("Expected only 1 attempt for non-recoverable error, got: %d", attempts)
	}
}

func TestExponentialBackoffStrategy_MaxRetriesExceeded(t *testing.T) {
	strategy := NewExponentialBackoffStrategy(3, 10*time.Millisecond, 100*time.Millisecond)

	attempts := 0
	err := strategy.Execute(context.Background(), func(context.Context, int) error {
		attempts++
		return errors.New("connection refused")
	})

	if err == nil {
		t.Error("Expected error after max retries exceeded")
	}

	expectedAttempts := 4 // 1 initial + 3 retries
	if attempts != expectedAttempts {
		t.Errorf("Expected %d attempts, got: %d", expectedAttempts, attempts)
	}
}

func TestExponentialBackoffStrategy_ContextCancellation(t *testing.T) {
	strategy := NewExponentialBackoffStrategy(10, 100*time.Millisecond, 1*time.Second)

	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	err := strategy.Execute(ctx, func(context.Context, int) error {
		attempts++
		return errors.New("timeout")
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context cancellation, got: %v", err)
	}

	if attempts < 1 {
		t.Errorf("Expected at least 1 attempt, got: %d", attempts)
	}
}

func TestNoRetryStrategy(t *testing.T) {
	attempts := 0
	err := NewNoRetryStrategy().Execute(context.Background(), func(context.Context, int) error {
		attempts++
		return errors.New("connection refused")
	})

	if err == nil || attempts != 1 {
		t.Errorf("Expected a single failed attempt, got %d attempts and error %v", attempts, err)
	}
}

func TestIsRecoverable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection reset", errors.New("connection reset by peer"), true},
		{"timeout", errors.New("i/o timeout"), true},
		{"broken pipe", errors.New("write: broken pipe"), true},
		{"connection refused", errors.New("connection refused"), true},
		{"gateway", errors.New("rpc call getEvents: status 503"), true},
		{"invalid data", errors.New("invalid data format"), false},
		{"already running", ledger.ErrAlreadyRunning, false},
		{"invalid range", fmt.Errorf("%w: [5, 1]", ledger.ErrInvalidRange), false},
		{"unhealthy", ledger.ErrUnhealthySource, false},
		{"unsupported version", fmt.Errorf("failed to process ledger 9: %w", extraction.ErrUnsupportedLedgerVersion), false},
		{"no topics", filter.ErrNoTopics, false},
		{"cancelled", context.Canceled, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsRecoverable(tt.err)
			if result != tt.expected {
				t.Errorf("IsRecoverable(%v) = %v, expected %v", tt.err, result, tt.expected)
			}
		})
	}
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("Expected default config to be valid, got: %v", err)
	}

	bad := DefaultConfig()
	bad.MaxDelay = bad.InitialDelay / 2
	if err := bad.Validate(); err == nil {
		t.Error("Expected error for max delay below initial delay")
	}

	bad.Enabled = false
	if err := bad.Validate(); err != nil {
		t.Errorf("Expected disabled config to skip validation, got: %v", err)
	}

	if _, ok := NewStrategy(Config{}).(*NoRetryStrategy); !ok {
		t.Error("Expected NoRetryStrategy when retry is disabled")
	}
}
