// store.go

// Package override holds the externally mutated override table. A single
// writer (the command stream) mutates it; every control loop reads it once
// per tick through plant.OverrideSource.
package override

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/reddashi/SbD/internal/plant"
)

type entry struct {
	value    float64
	hasRange bool
	min, max float64
}

// Store maps quantity keys to their current override. At most one entry per
// key; setting either variant replaces the other.
type Store struct {
	log *slog.Logger
	rng *rand.Rand

	mu      sync.RWMutex
	entries map[plant.Key]*entry
}

func NewStore(log *slog.Logger, rng *rand.Rand) *Store {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Store{
		log:     log.With(slog.String("component", "overrides")),
		rng:     rng,
		entries: make(map[plant.Key]*entry),
	}
}

// SetConstant pins a key to a fixed value, replacing any range entry.
func (s *Store) SetConstant(key plant.Key, value float64) error {
	if !isFinite(value) {
		return fmt.Errorf("override for %s must be finite, got %v", key, value)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = &entry{value: value}
	s.log.Info("constant override set", "key", key, "value", value)
	return nil
}

// SetRange stores a uniform range and seeds the effective value with one
// immediate sample so the next tick already observes it.
func (s *Store) SetRange(key plant.Key, min, max float64) error {
	if !isFinite(min) || !isFinite(max) {
		return fmt.Errorf("override range for %s must be finite, got [%v, %v]", key, min, max)
	}
	if min > max {
		min, max = max, min
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = &entry{
		value:    s.uniform(min, max),
		hasRange: true,
		min:      min,
		max:      max,
	}
	s.log.Info("range override set", "key", key, "min", min, "max", max)
	return nil
}

// Clear removes any override for the key.
func (s *Store) Clear(key plant.Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	s.log.Info("override cleared", "key", key)
}

// Resample draws a fresh uniform value for every range entry. Called once per
// coordinator cycle, not per loop tick, so all loops reading the same key
// within one cycle observe the same sample.
func (s *Store) Resample() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.hasRange {
			e.value = s.uniform(e.min, e.max)
		}
	}
}

// Effective returns the current numeric override for the key, if any.
func (s *Store) Effective(key plant.Key) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok {
		return 0, false
	}
	return e.value, true
}

// Active lists the keys currently overridden; used by the status endpoint.
func (s *Store) Active() []plant.Key {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]plant.Key, 0, len(s.entries))
	for _, k := range plant.Keys() {
		if _, ok := s.entries[k]; ok {
			keys = append(keys, k)
		}
	}
	return keys
}

func (s *Store) uniform(min, max float64) float64 {
	return min + s.rng.Float64()*(max-min)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
