// moisture.go

package plant

import (
	"log/slog"
	"time"
)

// MoistureConfig carries the physics constants for the soil-moisture loop.
type MoistureConfig struct {
	Initial        float64
	DryDrift       float64 // % lost to evaporation each tick
	IrrigationRate float64 // % gained at 100% pump duty
	DrainRate      float64 // % lost at 100% drain duty
	Band           Band
	Bounds         Bounds
}

// Moisture regulates soil moisture with an irrigation pump and a drain valve.
// Actuator effects carry over: this tick's duty cycles act on the next tick's
// water balance.
type Moisture struct {
	cfg      MoistureConfig
	deviceID string
	log      *slog.Logger
	over     OverrideSource
	publish  PublishFunc

	value     float64
	prevPump  float64
	prevDrain float64
}

func NewMoisture(cfg MoistureConfig, deviceID string, log *slog.Logger, over OverrideSource, publish PublishFunc) *Moisture {
	if over == nil {
		over = noOverrides{}
	}
	return &Moisture{
		cfg:      cfg,
		deviceID: deviceID,
		log:      log.With(slog.String("component", "moisture")),
		over:     over,
		publish:  publish,
		value:    cfg.Initial,
	}
}

func (m *Moisture) Key() Key   { return KeyMoisture }
func (m *Moisture) Band() Band { return m.cfg.Band }

func (m *Moisture) Tick(now time.Time) {
	if v, ok := m.over.Effective(KeyMoisture); ok {
		m.value = m.cfg.Bounds.Clamp(v)
	} else {
		// Evaporation always subtracts; last tick's pump and drain act now.
		m.value -= m.cfg.DryDrift
		m.value += m.prevPump / 100 * m.cfg.IrrigationRate
		m.value -= m.prevDrain / 100 * m.cfg.DrainRate
		m.value = m.cfg.Bounds.Clamp(m.value)
	}

	var pump, drain float64
	if m.value < m.cfg.Band.Low {
		pump = actuatorPct(m.cfg.Band.Low-m.value, m.cfg.Band.Low-m.cfg.Bounds.Min)
	} else if m.value > m.cfg.Band.High {
		drain = actuatorPct(m.value-m.cfg.Band.High, m.cfg.Bounds.Max-m.cfg.Band.High)
	}
	m.prevPump, m.prevDrain = pump, drain

	emit(m.log, m.publish, Reading{
		Key:       KeyMoisture,
		DeviceID:  m.deviceID,
		Timestamp: now,
		Value:     round2(m.value),
		Payload: MoisturePayload{
			Moisture: round2(m.value),
			PumpPct:  round2(pump),
			DrainPct: round2(drain),
		},
	})
}
