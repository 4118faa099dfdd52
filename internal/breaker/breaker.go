// breaker.go

// Package breaker provides a small circuit breaker used around telemetry
// sink writes: after repeated failures the sink is fast-failed until a reset
// timeout elapses, so a dead broker never stalls the simulation.
package breaker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "Closed"
	case Open:
		return "Open"
	case HalfOpen:
		return "HalfOpen"
	default:
		return "Unknown"
	}
}

var ErrOpen = errors.New("circuit breaker is open; fast-fail")

// Config holds the breaker tunables.
type Config struct {
	MaxFailures  int           // consecutive failures before opening
	ResetTimeout time.Duration // wait before probing again
}

// Breaker guards one operation target.
type Breaker struct {
	name   string
	cfg    Config
	logger *slog.Logger

	mu          sync.Mutex
	state       State
	recentFails int
	openedAt    time.Time

	probe func(ctx context.Context) error
}

// New creates a breaker. probe, when non-nil, is called before retrying the
// real operation after the reset timeout.
func New(name string, cfg Config, logger *slog.Logger, probe func(ctx context.Context) error) *Breaker {
	if cfg.MaxFailures < 1 {
		cfg.MaxFailures = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	b := &Breaker{
		name:   name,
		cfg:    cfg,
		logger: logger.With(slog.String("breaker", name)),
		state:  Closed,
		probe:  probe,
	}
	b.logger.Info("breaker_created", "state", b.state.String(), "maxFailures", cfg.MaxFailures, "resetTimeout", cfg.ResetTimeout.String())
	return b
}

// Execute runs op under the breaker policy.
func (b *Breaker) Execute(ctx context.Context, op func(ctx context.Context) error) error {
	b.mu.Lock()
	state := b.state
	openedAt := b.openedAt
	b.mu.Unlock()

	if state == Open {
		if time.Since(openedAt) < b.cfg.ResetTimeout {
			b.logger.Warn("breaker_fast_fail", "since_open", time.Since(openedAt).String())
			return ErrOpen
		}
		return b.tryProbeThenOp(ctx, op)
	}

	err := op(ctx)
	if err == nil {
		b.onSuccess()
		return nil
	}
	b.onFailure(err)
	b.mu.Lock()
	isOpen := b.state == Open
	b.mu.Unlock()
	if isOpen {
		return ErrOpen
	}
	return err
}

func (b *Breaker) tryProbeThenOp(ctx context.Context, op func(ctx context.Context) error) error {
	b.mu.Lock()
	b.state = HalfOpen
	had := b.recentFails
	b.mu.Unlock()
	b.logger.Info("breaker_probe_start", "previous_failures", had)

	if b.probe != nil {
		if err := b.probe(ctx); err != nil {
			b.logger.Warn("breaker_probe_failed", "error", err.Error())
			b.mu.Lock()
			b.state = Open
			b.openedAt = time.Now()
			b.mu.Unlock()
			return ErrOpen
		}
	}

	if err := op(ctx); err != nil {
		b.logger.Warn("breaker_halfopen_op_failed", "error", err.Error())
		b.mu.Lock()
		b.state = Open
		b.openedAt = time.Now()
		b.recentFails++
		b.mu.Unlock()
		return err
	}

	b.mu.Lock()
	b.state = Closed
	b.recentFails = 0
	b.mu.Unlock()
	b.logger.Info("breaker_closed_after_probe")
	return nil
}

func (b *Breaker) onSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != Closed {
		b.logger.Info("breaker_state_to_closed", "from", b.state.String())
	}
	b.state = Closed
	b.recentFails = 0
}

func (b *Breaker) onFailure(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.recentFails++
	b.logger.Warn("operation_failure", "failures", b.recentFails, "error", err.Error())
	if b.recentFails >= b.cfg.MaxFailures {
		b.state = Open
		b.openedAt = time.Now()
		b.logger.Error("breaker_opened", "maxFailures", b.cfg.MaxFailures)
	}
}

// State returns the current breaker state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
