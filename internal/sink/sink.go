// sink.go

// Package sink contains the telemetry glue between the simulation core and
// its external collaborators: the Kafka readings topic, the InfluxDB
// time-series store and the MQTT dashboard feed. Every write is best-effort;
// a failing sink must never stop the control loops.
package sink

import (
	"context"
	"log/slog"

	"github.com/reddashi/SbD/internal/breaker"
	"github.com/reddashi/SbD/internal/coordinator"
)

// Sink receives one aggregate snapshot per coordinator cycle.
type Sink interface {
	Name() string
	Write(ctx context.Context, snap coordinator.Snapshot) error
	Close() error
}

// Fanout delivers snapshots to every configured sink, each behind its own
// circuit breaker so one dead collaborator cannot slow down the others.
type Fanout struct {
	log   *slog.Logger
	sinks []Sink
	brks  map[string]*breaker.Breaker
}

func NewFanout(log *slog.Logger, cfg breaker.Config, sinks ...Sink) *Fanout {
	f := &Fanout{
		log:   log.With(slog.String("component", "sink-fanout")),
		sinks: sinks,
		brks:  make(map[string]*breaker.Breaker, len(sinks)),
	}
	for _, s := range sinks {
		f.brks[s.Name()] = breaker.New(s.Name(), cfg, log, nil)
	}
	return f
}

// Write pushes the snapshot to all sinks. Failures are logged and absorbed.
func (f *Fanout) Write(ctx context.Context, snap coordinator.Snapshot) {
	for _, s := range f.sinks {
		err := f.brks[s.Name()].Execute(ctx, func(ctx context.Context) error {
			return s.Write(ctx, snap)
		})
		if err != nil {
			f.log.Warn("sink write failed", "sink", s.Name(), "err", err)
		}
	}
}

func (f *Fanout) Close() {
	for _, s := range f.sinks {
		if err := s.Close(); err != nil {
			f.log.Warn("sink close failed", "sink", s.Name(), "err", err)
		}
	}
}
