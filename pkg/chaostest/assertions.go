package chaostest

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/getmockd/mayhem/pkg/fault"
)

// AssertFault asserts that err carries a fault and returns it.
func AssertFault(t testing.TB, err error) *fault.Fault {
	t.Helper()

	if err == nil {
		t.Errorf("expected a fault, got nil error")
		return nil
	}
	f, ok := fault.As(err)
	if !ok {
		t.Errorf("expected a fault, got %T: %v", err, err)
		return nil
	}
	return f
}

// AssertCode asserts that err carries a fault with the given code.
func AssertCode(t testing.TB, err error, code fault.Code) {
	t.Helper()

	f := AssertFault(t, err)
	if f != nil && f.Code != code {
		t.Errorf("expected fault code %s, got %s", code, f.Code)
	}
}

// AssertStatus asserts that err carries a fault with the given status code.
func AssertStatus(t testing.TB, err error, status int) {
	t.Helper()

	f := AssertFault(t, err)
	if f != nil && f.StatusCode != status {
		t.Errorf("expected fault status %d, got %d", status, f.StatusCode)
	}
}

// AssertRetryable asserts the retryability of err's fault.
func AssertRetryable(t testing.TB, err error, retryable bool) {
	t.Helper()

	f := AssertFault(t, err)
	if f != nil && f.Retryable != retryable {
		t.Errorf("expected retryable=%v for %s, got %v", retryable, f.Code, f.Retryable)
	}
}

// AssertNetworkFault asserts that err carries one of the NETWORK_* faults.
func AssertNetworkFault(t testing.TB, err error) {
	t.Helper()

	f := AssertFault(t, err)
	if f != nil && !strings.HasPrefix(string(f.Code), "NETWORK_") {
		t.Errorf("expected a network fault, got %s", f.Code)
	}
}

// RequireHangs runs fn with a context that expires after d and fails the
// test unless fn blocks until the deadline.
func RequireHangs(t testing.TB, d time.Duration, fn func(ctx context.Context) error) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()

	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected call to hang until the deadline, got %v after %s", err, elapsed)
	}
	if elapsed < d {
		t.Fatalf("call returned after %s, before the %s deadline", elapsed, d)
	}
}
