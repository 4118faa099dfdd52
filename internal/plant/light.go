// light.go

package plant

import (
	"log/slog"
	"math/rand"
	"time"
)

// LightConfig carries the physics constants and photoperiod settings for the
// grow-light loop.
type LightConfig struct {
	Initial  float64
	Drift    float64 // ambient lux variation per tick
	LampGain float64 // lux added per tick at 100% lamp duty
	Band     Band
	Bounds   Bounds

	Interval time.Duration // tick period, accumulated into the lit-time budget

	// Photoperiod. The dark window may cross midnight (e.g. 22 -> 6).
	DarkStartHour int
	DarkEndHour   int
	LongDay       time.Duration // target cumulative lit time per calendar day
}

// Light regulates luminosity with a single grow lamp. The lamp is forced off
// inside the dark window and, once the daily lit-time budget is met, stays off
// unless the level drops below the comfort band.
type Light struct {
	cfg      LightConfig
	deviceID string
	log      *slog.Logger
	rng      *rand.Rand
	over     OverrideSource
	now      func() time.Time
	publish  PublishFunc

	value    float64
	prevLamp float64
	litToday time.Duration
	litDay   time.Time // calendar day the counter belongs to
}

func NewLight(cfg LightConfig, deviceID string, log *slog.Logger, over OverrideSource, rng *rand.Rand, clock func() time.Time, publish PublishFunc) *Light {
	if over == nil {
		over = noOverrides{}
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if clock == nil {
		clock = time.Now
	}
	return &Light{
		cfg:      cfg,
		deviceID: deviceID,
		log:      log.With(slog.String("component", "light")),
		rng:      rng,
		over:     over,
		now:      clock,
		publish:  publish,
		value:    cfg.Initial,
	}
}

func (l *Light) Key() Key   { return KeyLight }
func (l *Light) Band() Band { return l.cfg.Band }

func (l *Light) inDarkWindow(t time.Time) bool {
	hr := t.Hour()
	if l.cfg.DarkStartHour < l.cfg.DarkEndHour {
		return l.cfg.DarkStartHour <= hr && hr < l.cfg.DarkEndHour
	}
	// window crosses midnight
	return hr >= l.cfg.DarkStartHour || hr < l.cfg.DarkEndHour
}

func (l *Light) resetAtMidnight(t time.Time) {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	if !day.Equal(l.litDay) {
		l.litDay = day
		l.litToday = 0
	}
}

func (l *Light) lampPct(clock time.Time) float64 {
	// Absolute off inside the dark window.
	if l.inDarkWindow(clock) {
		return 0
	}
	// Long-day budget met: no top-up unless dangerously dim.
	if l.litToday >= l.cfg.LongDay && l.value >= l.cfg.Band.Low {
		return 0
	}
	if l.value < l.cfg.Band.Low {
		return actuatorPct(l.cfg.Band.Low-l.value, l.cfg.Band.Low-l.cfg.Bounds.Min)
	}
	return 0
}

func (l *Light) Tick(now time.Time) {
	clock := l.now()
	l.resetAtMidnight(clock)

	if v, ok := l.over.Effective(KeyLight); ok {
		l.value = l.cfg.Bounds.Clamp(v)
	} else {
		l.value += l.rng.Float64()*2*l.cfg.Drift - l.cfg.Drift
		l.value += l.prevLamp / 100 * l.cfg.LampGain
		l.value = l.cfg.Bounds.Clamp(l.value)
	}
	if l.prevLamp > 0 {
		l.litToday += l.cfg.Interval
	}

	pct := l.lampPct(clock)
	l.prevLamp = pct

	emit(l.log, l.publish, Reading{
		Key:       KeyLight,
		DeviceID:  l.deviceID,
		Timestamp: now,
		Value:     round2(l.value),
		Payload: LightPayload{
			Light:        round2(l.value),
			GrowPowerPct: round2(pct),
		},
	})
}
