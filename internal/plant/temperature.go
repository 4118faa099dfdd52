// temperature.go

package plant

import (
	"log/slog"
	"math/rand"
	"time"
)

// TemperatureConfig carries the physics constants for the temperature loop.
type TemperatureConfig struct {
	Initial float64
	Drift   float64 // max random change per tick, degrees C
	Band    Band
	Bounds  Bounds
}

// Temperature regulates air temperature with a heater and a cooler.
// Exactly one of the two actuators is driven at a time.
type Temperature struct {
	cfg      TemperatureConfig
	deviceID string
	log      *slog.Logger
	rng      *rand.Rand
	over     OverrideSource
	publish  PublishFunc

	value float64
}

func NewTemperature(cfg TemperatureConfig, deviceID string, log *slog.Logger, over OverrideSource, rng *rand.Rand, publish PublishFunc) *Temperature {
	if over == nil {
		over = noOverrides{}
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Temperature{
		cfg:      cfg,
		deviceID: deviceID,
		log:      log.With(slog.String("component", "temperature")),
		rng:      rng,
		over:     over,
		publish:  publish,
		value:    cfg.Initial,
	}
}

func (t *Temperature) Key() Key   { return KeyTemperature }
func (t *Temperature) Band() Band { return t.cfg.Band }

// Tick advances the loop one control period: override or drift, then
// proportional heater/cooler selection, then publish.
func (t *Temperature) Tick(now time.Time) {
	if v, ok := t.over.Effective(KeyTemperature); ok {
		t.value = t.cfg.Bounds.Clamp(v)
	} else {
		t.value += t.rng.Float64()*2*t.cfg.Drift - t.cfg.Drift
		t.value = t.cfg.Bounds.Clamp(t.value)
	}

	var heat, cool float64
	if t.value < t.cfg.Band.Low {
		heat = actuatorPct(t.cfg.Band.Low-t.value, t.cfg.Band.Low-t.cfg.Bounds.Min)
	} else if t.value > t.cfg.Band.High {
		cool = actuatorPct(t.value-t.cfg.Band.High, t.cfg.Bounds.Max-t.cfg.Band.High)
	}

	emit(t.log, t.publish, Reading{
		Key:       KeyTemperature,
		DeviceID:  t.deviceID,
		Timestamp: now,
		Value:     round2(t.value),
		Payload: TemperaturePayload{
			Temperature: round2(t.value),
			HeaterPct:   round2(heat),
			CoolerPct:   round2(cool),
		},
	})
}
