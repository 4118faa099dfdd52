// coordinator.go

// Package coordinator watches the four control loops for correlated health.
// It is a poller: each scan drains at most one pending reading per quantity,
// tracks in-band state with edge-triggered transitions, and counts the scans
// in which every quantity was simultaneously healthy.
package coordinator

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/reddashi/SbD/internal/plant"
)

const inboxDepth = 64

// Alert marks one quantity currently outside its comfort band.
type Alert struct {
	Value  float64 `json:"value"`
	Status string  `json:"status"`
	Target string  `json:"target"`
}

// Snapshot is the aggregate reading consumed by the telemetry sinks and the
// status endpoint: the latest sensed values and actuator duty cycles of all
// quantities plus the derived alert set.
type Snapshot struct {
	Timestamp time.Time          `json:"timestamp"`
	Sensors   map[string]float64 `json:"sensors"`
	Actuators map[string]float64 `json:"actuators"`
	Alerts    map[string]Alert   `json:"alerts"`
	AckCount  int64              `json:"ackCount"`
}

// Coordinator aggregates readings published by the control loops. Readings
// arrive through Observe on per-key FIFO channels; all health state is owned
// by the scanning side.
type Coordinator struct {
	log   *slog.Logger
	bands map[plant.Key]plant.Band
	inbox map[plant.Key]chan plant.Reading

	mu       sync.Mutex
	okFlags  map[plant.Key]bool
	latest   map[plant.Key]plant.Reading
	ackCount int64
	dropped  int64
}

func New(bands map[plant.Key]plant.Band, log *slog.Logger) *Coordinator {
	c := &Coordinator{
		log:     log.With(slog.String("component", "coordinator")),
		bands:   bands,
		inbox:   make(map[plant.Key]chan plant.Reading, len(bands)),
		okFlags: make(map[plant.Key]bool, len(bands)),
		latest:  make(map[plant.Key]plant.Reading, len(bands)),
	}
	for _, k := range plant.Keys() {
		c.inbox[k] = make(chan plant.Reading, inboxDepth)
		c.okFlags[k] = false
	}
	return c
}

// Observe enqueues one reading for the next scan. It never blocks a control
// loop: when a key's inbox is full the reading is dropped and counted.
func (c *Coordinator) Observe(r plant.Reading) {
	ch, ok := c.inbox[r.Key]
	if !ok {
		c.log.Warn("reading for unknown key discarded", "key", r.Key)
		return
	}
	select {
	case ch <- r:
	default:
		c.mu.Lock()
		c.dropped++
		c.mu.Unlock()
		c.log.Warn("inbox full, reading dropped", "key", r.Key)
	}
}

// Scan drains at most one pending reading per key, updates the health flags
// and, when all quantities are simultaneously in-band, increments the ack
// count and resets every flag so the next ack requires fresh proof.
func (c *Coordinator) Scan() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, key := range plant.Keys() {
		var r plant.Reading
		select {
		case r = <-c.inbox[key]:
		default:
			continue // nothing pending this scan
		}
		if math.IsNaN(r.Value) || math.IsInf(r.Value, 0) {
			c.log.Warn("unparsable reading discarded", "key", key)
			continue
		}
		c.latest[key] = r

		inBand := c.bands[key].Contains(r.Value)
		switch {
		case !inBand && c.okFlags[key]:
			c.okFlags[key] = false
			c.log.Warn("quantity drifted out of band", "key", key, "value", r.Value)
		case inBand && !c.okFlags[key]:
			c.okFlags[key] = true
			c.log.Info("quantity recovered into band", "key", key, "value", r.Value)
		}
	}

	all := true
	for _, key := range plant.Keys() {
		if !c.okFlags[key] {
			all = false
			break
		}
	}
	if all {
		c.ackCount++
		for k := range c.okFlags {
			c.okFlags[k] = false
		}
		c.log.Info("all quantities nominal", "ackCount", c.ackCount)
	}
}

// Run polls on its own cadence, decoupled from the loops' tick periods. After
// each scan onCycle receives the fresh snapshot; the caller wires override
// resampling and sink fan-out there.
func (c *Coordinator) Run(ctx context.Context, every time.Duration, onCycle func(Snapshot)) {
	if every <= 0 {
		every = 100 * time.Millisecond
	}
	t := time.NewTicker(every)
	defer t.Stop()
	c.log.Info("scan loop started", "every", every.String())
	for {
		select {
		case <-t.C:
			c.Scan()
			if onCycle != nil {
				onCycle(c.Snapshot())
			}
		case <-ctx.Done():
			c.log.Info("scan loop stopped")
			return
		}
	}
}

// AckCount returns the number of reset-gated all-healthy acknowledgments.
func (c *Coordinator) AckCount() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ackCount
}

// Snapshot assembles the aggregate external reading from the latest samples.
// Keys with no sample yet report zero, matching the historical collector.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		Timestamp: time.Now(),
		Sensors:   make(map[string]float64, len(c.bands)),
		Actuators: make(map[string]float64, 8),
		Alerts:    make(map[string]Alert),
		AckCount:  c.ackCount,
	}
	for _, key := range plant.Keys() {
		r, ok := c.latest[key]
		snap.Sensors[string(key)] = 0
		if !ok {
			continue
		}
		snap.Sensors[string(key)] = r.Value
		switch p := r.Payload.(type) {
		case plant.TemperaturePayload:
			snap.Actuators["heater_pct"] = p.HeaterPct
			snap.Actuators["cooler_pct"] = p.CoolerPct
		case plant.MoisturePayload:
			snap.Actuators["pump_pct"] = p.PumpPct
			snap.Actuators["drain_pct"] = p.DrainPct
		case plant.LightPayload:
			snap.Actuators["grow_power_pct"] = p.GrowPowerPct
		case plant.CO2Payload:
			snap.Actuators["co2_pump_pct"] = p.PumpPct
			snap.Actuators["co2_vent_pct"] = p.VentPct
		}
		if band := c.bands[key]; !band.Contains(r.Value) {
			snap.Alerts[string(key)] = Alert{
				Value:  r.Value,
				Status: "ALERT",
				Target: "PLC for " + string(key),
			}
		}
	}
	return snap
}
