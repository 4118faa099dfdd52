// server_test.go

package httpapi

import (
	"encoding/json"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/reddashi/SbD/internal/coordinator"
	"github.com/reddashi/SbD/internal/override"
	"github.com/reddashi/SbD/internal/plant"
)

func newTestServer() (*Server, *override.Store, *coordinator.Coordinator) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := override.NewStore(log, rand.New(rand.NewSource(1)))
	coord := coordinator.New(map[plant.Key]plant.Band{
		plant.KeyTemperature: {Low: 25, High: 27},
		plant.KeyMoisture:    {Low: 40, High: 60},
		plant.KeyLight:       {Low: 200, High: 350},
		plant.KeyCO2:         {Low: 800, High: 1200},
	}, log)
	return New(coord, store, log), store, coord
}

func TestHealthEndpoint(t *testing.T) {
	srv, _, _ := newTestServer()
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", rec.Code)
	}
	if body := rec.Body.String(); body != `{"status":"ok"}` {
		t.Fatalf("body %q", body)
	}
}

func TestStatusEndpoint(t *testing.T) {
	srv, store, coord := newTestServer()
	_ = store.SetConstant(plant.KeyTemperature, 45)
	coord.Observe(plant.Reading{
		Key:       plant.KeyTemperature,
		DeviceID:  "dev-t",
		Timestamp: time.Now(),
		Value:     45,
		Payload:   plant.TemperaturePayload{Temperature: 45, CoolerPct: 78.26},
	})
	coord.Scan()

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", rec.Code)
	}

	var resp struct {
		Sensors   map[string]float64 `json:"sensors"`
		Actuators map[string]float64 `json:"actuators"`
		Alerts    map[string]struct {
			Value  float64 `json:"value"`
			Status string  `json:"status"`
			Target string  `json:"target"`
		} `json:"alerts"`
		AckCount  int64    `json:"ackCount"`
		Overrides []string `json:"overrides"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Sensors["temperature"] != 45 {
		t.Fatalf("temperature=%v, want 45", resp.Sensors["temperature"])
	}
	if resp.Actuators["cooler_pct"] != 78.26 {
		t.Fatalf("cooler_pct=%v, want 78.26", resp.Actuators["cooler_pct"])
	}
	alert, ok := resp.Alerts["temperature"]
	if !ok || alert.Status != "ALERT" || alert.Target != "PLC for temperature" {
		t.Fatalf("alert=%+v,%v", alert, ok)
	}
	if len(resp.Overrides) != 1 || resp.Overrides[0] != "temperature" {
		t.Fatalf("overrides=%v, want [temperature]", resp.Overrides)
	}
}

func TestCommandEndpoint(t *testing.T) {
	srv, store, _ := newTestServer()
	router := srv.Router()

	t.Run("valid override returns 204 and mutates the store", func(t *testing.T) {
		rec := httptest.NewRecorder()
		body := strings.NewReader(`{"type":"override","sensor":"co2","value":1900}`)
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/command", body))
		if rec.Code != http.StatusNoContent {
			t.Fatalf("status %d, want 204", rec.Code)
		}
		if v, ok := store.Effective(plant.KeyCO2); !ok || v != 1900 {
			t.Fatalf("Effective=%v,%v, want 1900,true", v, ok)
		}
	})

	t.Run("malformed JSON returns 400", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/command", strings.NewReader("{broken")))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status %d, want 400", rec.Code)
		}
	})

	t.Run("unknown sensor returns 422", func(t *testing.T) {
		rec := httptest.NewRecorder()
		body := strings.NewReader(`{"type":"override","sensor":"humidity","value":1}`)
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/command", body))
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("status %d, want 422", rec.Code)
		}
	})

	t.Run("clear_override returns 204", func(t *testing.T) {
		rec := httptest.NewRecorder()
		body := strings.NewReader(`{"type":"clear_override","sensor":"co2"}`)
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/command", body))
		if rec.Code != http.StatusNoContent {
			t.Fatalf("status %d, want 204", rec.Code)
		}
		if _, ok := store.Effective(plant.KeyCO2); ok {
			t.Fatal("override survived clear_override")
		}
	})
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _, _ := newTestServer()
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/command", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status %d, want 405", rec.Code)
	}
}
