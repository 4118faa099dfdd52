// co2.go

package plant

import (
	"log/slog"
	"time"
)

// CO2Config carries the physics constants and dosing policy for the CO2 loop.
type CO2Config struct {
	Initial     float64
	DaySink     float64 // ppm consumed by photosynthesis each daytime tick
	NightSource float64 // ppm produced by respiration each nighttime tick
	PumpGain    float64 // ppm added per tick at 100% dosing duty
	VentLoss    float64 // ppm removed per tick at 100% vent duty
	Band        Band
	Bounds      Bounds

	DosingPeriod int // dose check allowed every N ticks
	DayStartHour int
	DayEndHour   int
}

// CO2 regulates carbon dioxide with a dosing pump and a vent. Venting takes
// priority; dosing is only attempted during daylight, on dosing-period ticks,
// when the level is below the comfort band.
type CO2 struct {
	cfg      CO2Config
	deviceID string
	log      *slog.Logger
	over     OverrideSource
	now      func() time.Time
	publish  PublishFunc

	value    float64
	tick     int
	prevPump float64
	prevVent float64
}

func NewCO2(cfg CO2Config, deviceID string, log *slog.Logger, over OverrideSource, clock func() time.Time, publish PublishFunc) *CO2 {
	if over == nil {
		over = noOverrides{}
	}
	if clock == nil {
		clock = time.Now
	}
	if cfg.DosingPeriod < 1 {
		cfg.DosingPeriod = 1
	}
	return &CO2{
		cfg:      cfg,
		deviceID: deviceID,
		log:      log.With(slog.String("component", "co2")),
		over:     over,
		now:      clock,
		publish:  publish,
		value:    cfg.Initial,
	}
}

func (c *CO2) Key() Key   { return KeyCO2 }
func (c *CO2) Band() Band { return c.cfg.Band }

func (c *CO2) isDaytime(t time.Time) bool {
	hr := t.Hour()
	return c.cfg.DayStartHour <= hr && hr < c.cfg.DayEndHour
}

func (c *CO2) control(day bool) (pump, vent float64) {
	// Venting priority when over the band.
	if c.value > c.cfg.Band.High {
		vent = actuatorPct(c.value-c.cfg.Band.High, c.cfg.Bounds.Max-c.cfg.Band.High)
		return 0, vent
	}
	if day && c.tick%c.cfg.DosingPeriod == 0 && c.value < c.cfg.Band.Low {
		pump = actuatorPct(c.cfg.Band.Low-c.value, c.cfg.Band.Low-c.cfg.Bounds.Min)
	}
	return pump, 0
}

func (c *CO2) Tick(now time.Time) {
	day := c.isDaytime(c.now())

	if v, ok := c.over.Effective(KeyCO2); ok {
		c.value = c.cfg.Bounds.Clamp(v)
	} else {
		if day {
			c.value -= c.cfg.DaySink
		} else {
			c.value += c.cfg.NightSource
		}
		c.value += c.prevPump / 100 * c.cfg.PumpGain
		c.value -= c.prevVent / 100 * c.cfg.VentLoss
		c.value = c.cfg.Bounds.Clamp(c.value)
	}

	pump, vent := c.control(day)
	c.prevPump, c.prevVent = pump, vent
	c.tick++

	emit(c.log, c.publish, Reading{
		Key:       KeyCO2,
		DeviceID:  c.deviceID,
		Timestamp: now,
		Value:     round1(c.value),
		Payload: CO2Payload{
			CO2PPM:  round1(c.value),
			PumpPct: round2(pump),
			VentPct: round2(vent),
		},
	})
}
