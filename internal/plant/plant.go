// plant.go

// Package plant implements the per-quantity control loops of the greenhouse
// simulator: environment dynamics, proportional actuator control and the
// publishing contract consumed by the coordinator and the telemetry sinks.
package plant

import (
	"log/slog"
	"math"
	"time"
)

// Key identifies one controlled quantity.
type Key string

const (
	KeyTemperature Key = "temperature"
	KeyMoisture    Key = "moisture"
	KeyLight       Key = "light"
	KeyCO2         Key = "co2"
)

// Keys lists every controlled quantity in a stable order.
func Keys() []Key {
	return []Key{KeyTemperature, KeyMoisture, KeyLight, KeyCO2}
}

// Band is the comfort range a quantity is controlled to stay within.
type Band struct {
	Low  float64
	High float64
}

// Contains reports whether v lies inside the band, edges included.
func (b Band) Contains(v float64) bool {
	return b.Low <= v && v <= b.High
}

// Bounds is the absolute physical clamp range; a value never leaves it.
type Bounds struct {
	Min float64
	Max float64
}

// Clamp forces v into [Min, Max].
func (b Bounds) Clamp(v float64) float64 {
	return math.Max(b.Min, math.Min(b.Max, v))
}

// Reading is one published sample from a control loop.
type Reading struct {
	Key       Key       `json:"key"`
	DeviceID  string    `json:"deviceId"`
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"-"`
	Payload   any       `json:"reading"`
}

// Wire payloads. Field names match the historical PLC protocol and must not
// change without updating the detection tooling trained on them.
type TemperaturePayload struct {
	Temperature float64 `json:"temperature"`
	HeaterPct   float64 `json:"heater_pct"`
	CoolerPct   float64 `json:"cooler_pct"`
}

type MoisturePayload struct {
	Moisture float64 `json:"moisture"`
	PumpPct  float64 `json:"pump_pct"`
	DrainPct float64 `json:"drain_pct"`
}

type LightPayload struct {
	Light        float64 `json:"light"`
	GrowPowerPct float64 `json:"grow_power_pct"`
}

type CO2Payload struct {
	CO2PPM  float64 `json:"co2_ppm"`
	PumpPct float64 `json:"pump_pct"`
	VentPct float64 `json:"vent_pct"`
}

// PublishFunc receives exactly one reading per tick. Implementations must not
// block the control loop for long; the loop treats publishing as best-effort.
type PublishFunc func(Reading)

// OverrideSource is the read side of the override table consulted at the top
// of every tick.
type OverrideSource interface {
	Effective(key Key) (float64, bool)
}

// noOverrides is used when a model is wired without an override table.
type noOverrides struct{}

func (noOverrides) Effective(Key) (float64, bool) { return 0, false }

// Model is one quantity's control-loop state machine, advanced by its Loop.
type Model interface {
	Key() Key
	Band() Band
	Tick(now time.Time)
}

// actuatorPct maps severity past a band edge to a duty cycle. The span from
// band edge to physical bound normalizes the output; a degenerate span of
// zero substitutes 1 instead of failing.
func actuatorPct(excess, span float64) float64 {
	if span <= 0 {
		span = 1
	}
	return math.Min(excess/span*100, 100)
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round1(v float64) float64 { return math.Round(v*10) / 10 }

// emit delivers a reading to the publisher, recovering from a panicking sink
// so the control loop keeps ticking.
func emit(log *slog.Logger, publish PublishFunc, r Reading) {
	if publish == nil {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			log.Warn("publisher panicked, reading dropped", "key", r.Key, "panic", p)
		}
	}()
	publish(r)
}
