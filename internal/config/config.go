// config.go

// Package config loads the simulator configuration: physics constants and
// band/bound thresholds from an optional properties file (SIM_PROPERTIES),
// transport endpoints from the environment. Invalid values warn and fall
// back to defaults; only a malformed properties path is fatal.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/reddashi/SbD/internal/breaker"
	"github.com/reddashi/SbD/internal/plant"
)

// Config holds everything the greenhouse daemon needs at startup.
type Config struct {
	Location   string
	ListenAddr string

	Temperature plant.TemperatureConfig
	Moisture    plant.MoistureConfig
	Light       plant.LightConfig
	CO2         plant.CO2Config

	TempInterval     time.Duration
	MoistureInterval time.Duration
	LightInterval    time.Duration
	CO2Interval      time.Duration

	ScanInterval time.Duration
	Cycles       int // 0 = run until signalled
	StopTimeout  time.Duration

	// Kafka (empty brokers disable the Kafka legs)
	KafkaBrokers  []string
	TopicReadings string
	TopicCommands string
	CommandGroup  string

	// InfluxDB (empty URL disables the sink)
	InfluxURL    string
	InfluxToken  string
	InfluxOrg    string
	InfluxBucket string

	// MQTT (empty broker disables the sink)
	MQTTBroker string
	MQTTTopic  string

	Breaker breaker.Config
}

func loadProps(path string) (map[string]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot load properties file: %w", err)
	}
	m := map[string]string{}
	for _, ln := range strings.Split(string(b), "\n") {
		ln = strings.TrimSpace(ln)
		if ln == "" || strings.HasPrefix(ln, "#") || strings.HasPrefix(ln, "//") {
			continue
		}
		kv := strings.SplitN(ln, "=", 2)
		if len(kv) != 2 {
			continue
		}
		m[strings.TrimSpace(kv[0])] = strings.TrimSpace(kv[1])
	}
	return m, nil
}

func getf(m map[string]string, key string, def float64, log *slog.Logger) float64 {
	if v, ok := m[key]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		log.Warn("invalid float in properties, using default", "key", key, "val", v, "default", def)
	}
	return def
}

func geti(m map[string]string, key string, def int, log *slog.Logger) int {
	if v, ok := m[key]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Warn("invalid int in properties, using default", "key", key, "val", v, "default", def)
	}
	return def
}

func getd(m map[string]string, key string, def time.Duration, log *slog.Logger) time.Duration {
	if v, ok := m[key]; ok {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		log.Warn("invalid duration in properties, using default", "key", key, "val", v, "default", def)
	}
	return def
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Build assembles the configuration. A missing SIM_PROPERTIES means "all
// defaults": the simulator must run stand-alone with no file at all.
func Build(log *slog.Logger) (Config, error) {
	props := map[string]string{}
	if path := os.Getenv("SIM_PROPERTIES"); path != "" {
		var err error
		props, err = loadProps(path)
		if err != nil {
			return Config{}, err
		}
	}
	return fromProps(props, log), nil
}

func fromProps(props map[string]string, log *slog.Logger) Config {
	cfg := Config{
		Location:   getEnv("LOCATION", "greenhouse_room_1"),
		ListenAddr: getEnv("HTTP_BIND", ":8089"),

		Temperature: plant.TemperatureConfig{
			Initial: getf(props, "temp.initial", 26, log),
			Drift:   getf(props, "temp.drift", 2.0, log),
			Band:    plant.Band{Low: getf(props, "temp.band.low", 25, log), High: getf(props, "temp.band.high", 27, log)},
			Bounds:  plant.Bounds{Min: getf(props, "temp.bound.min", 0, log), Max: getf(props, "temp.bound.max", 50, log)},
		},
		Moisture: plant.MoistureConfig{
			Initial:        getf(props, "moisture.initial", 50, log),
			DryDrift:       getf(props, "moisture.dry_drift", 1.0, log),
			IrrigationRate: getf(props, "moisture.irrigation_rate", 3.0, log),
			DrainRate:      getf(props, "moisture.drain_rate", 4.0, log),
			Band:           plant.Band{Low: getf(props, "moisture.band.low", 40, log), High: getf(props, "moisture.band.high", 60, log)},
			Bounds:         plant.Bounds{Min: getf(props, "moisture.bound.min", 0, log), Max: getf(props, "moisture.bound.max", 100, log)},
		},
		Light: plant.LightConfig{
			Initial:       getf(props, "light.initial", 275, log),
			Drift:         getf(props, "light.drift", 15.0, log),
			LampGain:      getf(props, "light.lamp_gain", 60.0, log),
			Band:          plant.Band{Low: getf(props, "light.band.low", 200, log), High: getf(props, "light.band.high", 350, log)},
			Bounds:        plant.Bounds{Min: getf(props, "light.bound.min", 0, log), Max: getf(props, "light.bound.max", 1000, log)},
			DarkStartHour: geti(props, "light.dark_start_hr", 22, log),
			DarkEndHour:   geti(props, "light.dark_end_hr", 6, log),
			LongDay:       getd(props, "light.long_day", 16*time.Hour, log),
		},
		CO2: plant.CO2Config{
			Initial:      getf(props, "co2.initial", 900, log),
			DaySink:      getf(props, "co2.day_sink", 8.0, log),
			NightSource:  getf(props, "co2.night_source", 15.0, log),
			PumpGain:     getf(props, "co2.pump_gain", 40.0, log),
			VentLoss:     getf(props, "co2.vent_loss", 60.0, log),
			Band:         plant.Band{Low: getf(props, "co2.band.low", 800, log), High: getf(props, "co2.band.high", 1200, log)},
			Bounds:       plant.Bounds{Min: getf(props, "co2.bound.min", 300, log), Max: getf(props, "co2.bound.max", 2000, log)},
			DosingPeriod: geti(props, "co2.dosing_period", 1, log),
			DayStartHour: geti(props, "co2.day_start_hr", 6, log),
			DayEndHour:   geti(props, "co2.day_end_hr", 18, log),
		},

		TempInterval:     getd(props, "temp.interval", 7*time.Second, log),
		MoistureInterval: getd(props, "moisture.interval", 7*time.Second, log),
		LightInterval:    getd(props, "light.interval", 7*time.Second, log),
		CO2Interval:      getd(props, "co2.interval", 7*time.Second, log),

		ScanInterval: getd(props, "scan.interval", 100*time.Millisecond, log),
		Cycles:       geti(props, "cycles", 0, log),
		StopTimeout:  getd(props, "stop.timeout", 3*time.Second, log),

		KafkaBrokers:  splitCSV(os.Getenv("KAFKA_BROKERS")),
		TopicReadings: getEnv("TOPIC_READINGS", "greenhouse.readings"),
		TopicCommands: getEnv("TOPIC_COMMANDS", "greenhouse.commands"),
		CommandGroup:  getEnv("COMMAND_GROUP", "greenhouse-sim"),

		InfluxURL:    os.Getenv("INFLUX_URL"),
		InfluxToken:  os.Getenv("INFLUX_TOKEN"),
		InfluxOrg:    getEnv("INFLUX_ORG", "SUTD"),
		InfluxBucket: getEnv("INFLUX_BUCKET", "greenhouse"),

		MQTTBroker: os.Getenv("MQTT_BROKER"),
		MQTTTopic:  getEnv("MQTT_TOPIC", "greenhouse/aggregate"),

		Breaker: breaker.Config{
			MaxFailures:  geti(props, "circuit.maxfailures", 5, log),
			ResetTimeout: getd(props, "circuit.reset", 30*time.Second, log),
		},
	}
	// Light accumulates lit time in units of its own tick period.
	cfg.Light.Interval = cfg.LightInterval
	return cfg
}

// Bands maps each quantity to its comfort band, as the coordinator needs it.
func (c Config) Bands() map[plant.Key]plant.Band {
	return map[plant.Key]plant.Band{
		plant.KeyTemperature: c.Temperature.Band,
		plant.KeyMoisture:    c.Moisture.Band,
		plant.KeyLight:       c.Light.Band,
		plant.KeyCO2:         c.CO2.Band,
	}
}
