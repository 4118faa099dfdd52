// breaker_test.go

package breaker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var errBoom = errors.New("boom")

func failingOp(ctx context.Context) error { return errBoom }
func okOp(ctx context.Context) error      { return nil }

func TestBreakerOpensAfterMaxFailures(t *testing.T) {
	b := New("sink", Config{MaxFailures: 3, ResetTimeout: time.Minute}, testLogger(), nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := b.Execute(ctx, failingOp); !errors.Is(err, errBoom) {
			t.Fatalf("failure %d: err=%v, want the op error while still closed", i, err)
		}
	}
	if got := b.State(); got != Closed {
		t.Fatalf("state=%v before threshold, want Closed", got)
	}

	if err := b.Execute(ctx, failingOp); !errors.Is(err, ErrOpen) {
		t.Fatalf("threshold failure: err=%v, want ErrOpen", err)
	}
	if got := b.State(); got != Open {
		t.Fatalf("state=%v, want Open", got)
	}
}

func TestBreakerFastFailsWhileOpen(t *testing.T) {
	b := New("sink", Config{MaxFailures: 1, ResetTimeout: time.Minute}, testLogger(), nil)
	ctx := context.Background()

	_ = b.Execute(ctx, failingOp)

	calls := 0
	err := b.Execute(ctx, func(ctx context.Context) error {
		calls++
		return nil
	})
	if !errors.Is(err, ErrOpen) {
		t.Fatalf("err=%v, want ErrOpen", err)
	}
	if calls != 0 {
		t.Fatal("op ran while the breaker was open")
	}
}

func TestBreakerClosesAfterSuccessfulProbe(t *testing.T) {
	probed := 0
	b := New("sink", Config{MaxFailures: 1, ResetTimeout: 20 * time.Millisecond}, testLogger(),
		func(ctx context.Context) error { probed++; return nil })
	ctx := context.Background()

	_ = b.Execute(ctx, failingOp)
	time.Sleep(30 * time.Millisecond)

	if err := b.Execute(ctx, okOp); err != nil {
		t.Fatalf("Execute after reset timeout: %v", err)
	}
	if probed != 1 {
		t.Fatalf("probe ran %d times, want 1", probed)
	}
	if got := b.State(); got != Closed {
		t.Fatalf("state=%v, want Closed after recovery", got)
	}
}

func TestBreakerReopensOnFailedProbe(t *testing.T) {
	b := New("sink", Config{MaxFailures: 1, ResetTimeout: 20 * time.Millisecond}, testLogger(),
		func(ctx context.Context) error { return errBoom })
	ctx := context.Background()

	_ = b.Execute(ctx, failingOp)
	time.Sleep(30 * time.Millisecond)

	if err := b.Execute(ctx, okOp); !errors.Is(err, ErrOpen) {
		t.Fatalf("err=%v, want ErrOpen after failed probe", err)
	}
	if got := b.State(); got != Open {
		t.Fatalf("state=%v, want Open", got)
	}
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	b := New("sink", Config{MaxFailures: 2, ResetTimeout: time.Minute}, testLogger(), nil)
	ctx := context.Background()

	_ = b.Execute(ctx, failingOp)
	if err := b.Execute(ctx, okOp); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	// counter was reset, so one more failure must not trip the breaker
	if err := b.Execute(ctx, failingOp); !errors.Is(err, errBoom) {
		t.Fatalf("err=%v, want plain op error", err)
	}
	if got := b.State(); got != Closed {
		t.Fatalf("state=%v, want Closed", got)
	}
}
