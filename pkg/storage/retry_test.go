package storage

import (
	"errors"
	"testing"
	"time"
)

func TestIsTransientSQLiteErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"non-transient", errors.New("syntax error"), false},
		{"SQLITE_BUSY text", errors.New("SQLITE_BUSY"), true},
		{"SQLITE_LOCKED text", errors.New("SQLITE_LOCKED"), true},
		{"IOERR_SHORT_READ text", errors.New("IOERR_SHORT_READ"), true},
		{"database is locked", errors.New("database is locked"), true},
		{"database table is locked", errors.New("database table is locked"), true},
		{"code 5", errors.New("sqlite: (5) database is busy"), true},
		{"code 522", errors.New("sqlite: (522) short read"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isTransientSQLiteErr(tt.err); got != tt.want {
				t.Errorf("isTransientSQLiteErr(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestRetryOp_SucceedsImmediately(t *testing.T) {
	calls := 0
	err := retryOp(defaultRetryConfig, func() error {
		calls++
		return nil
	})
	if err != nil || calls != 1 {
		t.Fatalf("got err=%v calls=%d, want nil and 1 call", err, calls)
	}
}

func TestRetryOp_NonTransientNoRetry(t *testing.T) {
	calls := 0
	permanent := errors.New("syntax error near SELECT")
	err := retryOp(defaultRetryConfig, func() error {
		calls++
		return permanent
	})
	if err != permanent || calls != 1 {
		t.Fatalf("got err=%v calls=%d, want the permanent error after 1 call", err, calls)
	}
}

func TestRetryOp_RetriesTransientThenSucceeds(t *testing.T) {
	fastCfg := retryConfig{maxRetries: 3, baseDelay: time.Millisecond, maxDelay: 5 * time.Millisecond}
	calls := 0
	err := retryOp(fastCfg, func() error {
		calls++
		if calls < 3 {
			return errors.New("SQLITE_BUSY")
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Fatalf("got err=%v calls=%d, want nil after 3 calls", err, calls)
	}
}

func TestRetryOp_ExhaustsRetries(t *testing.T) {
	fastCfg := retryConfig{maxRetries: 2, baseDelay: time.Millisecond, maxDelay: 5 * time.Millisecond}
	calls := 0
	busy := errors.New("SQLITE_BUSY")
	err := retryOp(fastCfg, func() error {
		calls++
		return busy
	})
	if err != busy || calls != 3 {
		t.Fatalf("got err=%v calls=%d, want busy after maxRetries+1 calls", err, calls)
	}
}

func TestBackoffDelay_CappedAtMax(t *testing.T) {
	cfg := retryConfig{maxRetries: 10, baseDelay: 50 * time.Millisecond, maxDelay: 500 * time.Millisecond}
	for attempt := 0; attempt < 10; attempt++ {
		d := backoffDelay(cfg, attempt)
		// Cap plus at most 25% jitter.
		if d > cfg.maxDelay+cfg.maxDelay/4 {
			t.Fatalf("attempt %d: delay %v exceeds cap", attempt, d)
		}
		if d < cfg.baseDelay {
			t.Fatalf("attempt %d: delay %v below base", attempt, d)
		}
	}
}
