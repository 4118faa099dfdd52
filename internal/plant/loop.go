// loop.go

package plant

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Loop drives one model on its own tick period. Cycles <= 0 means run until
// the context is cancelled; otherwise the loop stops after exactly that many
// ticks (used for deterministic demos and tests).
type Loop struct {
	model    Model
	interval time.Duration
	cycles   int
	log      *slog.Logger
}

func NewLoop(model Model, interval time.Duration, cycles int, log *slog.Logger) *Loop {
	if interval <= 0 {
		interval = time.Second
	}
	return &Loop{
		model:    model,
		interval: interval,
		cycles:   cycles,
		log:      log.With(slog.String("loop", string(model.Key()))),
	}
}

// Run blocks until the context is cancelled or the cycle budget is spent.
func (l *Loop) Run(ctx context.Context) {
	t := time.NewTicker(l.interval)
	defer t.Stop()
	l.log.Info("control loop started", "interval", l.interval.String(), "cycles", l.cycles)

	count := 0
	for {
		select {
		case now := <-t.C:
			l.model.Tick(now)
			count++
			if l.cycles > 0 && count >= l.cycles {
				l.log.Info("cycle budget spent", "ticks", count)
				return
			}
		case <-ctx.Done():
			l.log.Info("control loop stopped", "ticks", count)
			return
		}
	}
}

// Rig owns the set of control loops and handles cooperative shutdown.
type Rig struct {
	loops []*Loop
	log   *slog.Logger
	wg    sync.WaitGroup
	done  chan struct{}
}

func NewRig(log *slog.Logger, loops ...*Loop) *Rig {
	return &Rig{loops: loops, log: log, done: make(chan struct{})}
}

// Start launches every loop in its own goroutine.
func (r *Rig) Start(ctx context.Context) {
	for _, l := range r.loops {
		r.wg.Add(1)
		go func(l *Loop) {
			defer r.wg.Done()
			l.Run(ctx)
		}(l)
	}
	go func() {
		r.wg.Wait()
		close(r.done)
	}()
}

// Done is closed once every loop has returned, which in bounded-cycle mode
// means the cycle budget is spent.
func (r *Rig) Done() <-chan struct{} { return r.done }

// Wait blocks until every loop has returned or the timeout elapses. Stopping
// is cooperative: a loop acknowledges at its next tick boundary, and the rig
// proceeds regardless once the timeout is hit.
func (r *Rig) Wait(timeout time.Duration) bool {
	select {
	case <-r.done:
		return true
	case <-time.After(timeout):
		r.log.Warn("loops did not stop in time, proceeding", "timeout", timeout.String())
		return false
	}
}
