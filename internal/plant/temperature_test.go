// temperature_test.go

package plant

import (
	"io"
	"log/slog"
	"math/rand"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type capture struct {
	readings []Reading
}

func (c *capture) publish(r Reading) { c.readings = append(c.readings, r) }

func (c *capture) last(t *testing.T) Reading {
	t.Helper()
	if len(c.readings) == 0 {
		t.Fatal("no reading published")
	}
	return c.readings[len(c.readings)-1]
}

type fixedOverride struct {
	key   Key
	value float64
}

func (f fixedOverride) Effective(k Key) (float64, bool) {
	if k == f.key {
		return f.value, true
	}
	return 0, false
}

func TestTemperatureProportionalControl(t *testing.T) {
	tests := []struct {
		name     string
		initial  float64
		wantHeat float64
		wantCool float64
	}{
		{name: "below band heats", initial: 20, wantHeat: 20, wantCool: 0},
		{name: "in band idles", initial: 26, wantHeat: 0, wantCool: 0},
		{name: "above band cools", initial: 38.5, wantHeat: 0, wantCool: 50},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var c capture
			m := NewTemperature(TemperatureConfig{
				Initial: tc.initial,
				Drift:   0,
				Band:    Band{Low: 25, High: 27},
				Bounds:  Bounds{Min: 0, Max: 50},
			}, "dev-t", testLogger(), nil, nil, c.publish)

			m.Tick(time.Now())

			p := c.last(t).Payload.(TemperaturePayload)
			if p.HeaterPct != tc.wantHeat || p.CoolerPct != tc.wantCool {
				t.Fatalf("got heater=%v cooler=%v, want heater=%v cooler=%v", p.HeaterPct, p.CoolerPct, tc.wantHeat, tc.wantCool)
			}
			if p.Temperature != tc.initial {
				t.Fatalf("got temperature=%v, want %v", p.Temperature, tc.initial)
			}
		})
	}
}

func TestTemperatureInvariants(t *testing.T) {
	var c capture
	m := NewTemperature(TemperatureConfig{
		Initial: 26,
		Drift:   5,
		Band:    Band{Low: 25, High: 27},
		Bounds:  Bounds{Min: 0, Max: 50},
	}, "dev-t", testLogger(), nil, rand.New(rand.NewSource(1)), c.publish)

	for i := 0; i < 500; i++ {
		m.Tick(time.Now())
	}
	for i, r := range c.readings {
		p := r.Payload.(TemperaturePayload)
		if p.Temperature < 0 || p.Temperature > 50 {
			t.Fatalf("tick %d: value %v escaped bounds", i, p.Temperature)
		}
		if p.HeaterPct < 0 || p.HeaterPct > 100 || p.CoolerPct < 0 || p.CoolerPct > 100 {
			t.Fatalf("tick %d: actuator out of range: heater=%v cooler=%v", i, p.HeaterPct, p.CoolerPct)
		}
		if p.HeaterPct > 0 && p.CoolerPct > 0 {
			t.Fatalf("tick %d: heater and cooler both active", i)
		}
	}
}

func TestTemperatureConstantOverride(t *testing.T) {
	t.Run("override replaces drift", func(t *testing.T) {
		var c capture
		m := NewTemperature(TemperatureConfig{
			Initial: 26,
			Drift:   5,
			Band:    Band{Low: 25, High: 27},
			Bounds:  Bounds{Min: 0, Max: 50},
		}, "dev-t", testLogger(), fixedOverride{key: KeyTemperature, value: 10}, rand.New(rand.NewSource(7)), c.publish)

		m.Tick(time.Now())
		if got := c.last(t).Value; got != 10 {
			t.Fatalf("got value %v, want overridden 10", got)
		}
	})

	t.Run("override clamps to bounds", func(t *testing.T) {
		var c capture
		m := NewTemperature(TemperatureConfig{
			Initial: 26,
			Band:    Band{Low: 25, High: 27},
			Bounds:  Bounds{Min: 0, Max: 50},
		}, "dev-t", testLogger(), fixedOverride{key: KeyTemperature, value: 9000}, nil, c.publish)

		m.Tick(time.Now())
		if got := c.last(t).Value; got != 50 {
			t.Fatalf("got value %v, want clamped 50", got)
		}
	})
}

func TestTemperatureZeroSpanGuard(t *testing.T) {
	// band.low == bounds.min makes the heating span zero; the control law
	// substitutes 1 instead of dividing by zero.
	var c capture
	m := NewTemperature(TemperatureConfig{
		Initial: 20,
		Band:    Band{Low: 25, High: 27},
		Bounds:  Bounds{Min: 25, Max: 50},
	}, "dev-t", testLogger(), nil, nil, c.publish)

	m.Tick(time.Now())
	p := c.last(t).Payload.(TemperaturePayload)
	if p.HeaterPct != 100 {
		t.Fatalf("got heater=%v, want saturated 100", p.HeaterPct)
	}
}

func TestTemperaturePublisherPanicIsAbsorbed(t *testing.T) {
	m := NewTemperature(TemperatureConfig{
		Initial: 26,
		Band:    Band{Low: 25, High: 27},
		Bounds:  Bounds{Min: 0, Max: 50},
	}, "dev-t", testLogger(), nil, nil, func(Reading) { panic("sink gone") })

	// must not panic through Tick
	m.Tick(time.Now())
}
