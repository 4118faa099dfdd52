// command.go

// Package command parses the operator command stream and applies it to the
// override store. Commands arrive as line-delimited JSON on stdin, as Kafka
// messages on the commands topic, or through the HTTP API; all three paths
// share Apply.
package command

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/reddashi/SbD/internal/override"
	"github.com/reddashi/SbD/internal/plant"
)

// Recognized message kinds.
const (
	TypeOverride      = "override"
	TypeOverrideRange = "override_range"
	TypeClearOverride = "clear_override"
)

// Message is one command from the operator (or an attacker exercising the
// same interface). Numeric fields are pointers so a missing field is
// distinguishable from zero.
type Message struct {
	Type   string   `json:"type"`
	Sensor string   `json:"sensor"`
	Value  *float64 `json:"value,omitempty"`
	Min    *float64 `json:"min,omitempty"`
	Max    *float64 `json:"max,omitempty"`
}

// NormalizeKey maps the aliases accepted on the wire to canonical quantity
// keys. Returns false for unknown sensors.
func NormalizeKey(s string) (plant.Key, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "temp", "temperature":
		return plant.KeyTemperature, true
	case "moist", "moisture", "irrigation":
		return plant.KeyMoisture, true
	case "light":
		return plant.KeyLight, true
	case "co2", "carbon", "carbon_dioxide":
		return plant.KeyCO2, true
	}
	return "", false
}

// Apply validates one message and dispatches it to the store. Errors are for
// the caller to log; they never affect simulation state.
func Apply(store *override.Store, msg Message) error {
	key, ok := NormalizeKey(msg.Sensor)
	if !ok {
		return fmt.Errorf("unknown sensor %q", msg.Sensor)
	}
	switch msg.Type {
	case TypeOverride:
		if msg.Value == nil {
			return errors.New("override requires a value")
		}
		return store.SetConstant(key, *msg.Value)
	case TypeOverrideRange:
		if msg.Min == nil || msg.Max == nil {
			return errors.New("override_range requires min and max")
		}
		return store.SetRange(key, *msg.Min, *msg.Max)
	case TypeClearOverride:
		store.Clear(key)
		return nil
	}
	return fmt.Errorf("unknown command type %q", msg.Type)
}

// ApplyLine parses one JSON line and applies it. Malformed JSON or numeric
// fields are reported as errors and otherwise ignored.
func ApplyLine(store *override.Store, line string, log *slog.Logger) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	var msg Message
	if err := json.Unmarshal([]byte(line), &msg); err != nil {
		log.Warn("malformed command dropped", "err", err)
		return
	}
	if err := Apply(store, msg); err != nil {
		log.Warn("command rejected", "type", msg.Type, "sensor", msg.Sensor, "err", err)
		return
	}
	log.Info("command applied", "type", msg.Type, "sensor", msg.Sensor)
}
