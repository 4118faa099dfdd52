// server.go

// Package httpapi exposes the operator surface: health, the aggregate status
// snapshot, and the same override commands accepted on the stdin/Kafka
// streams.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/reddashi/SbD/internal/command"
	"github.com/reddashi/SbD/internal/coordinator"
	"github.com/reddashi/SbD/internal/override"
)

type Server struct {
	coord *coordinator.Coordinator
	store *override.Store
	log   *slog.Logger
}

func New(coord *coordinator.Coordinator, store *override.Store, log *slog.Logger) *Server {
	return &Server{coord: coord, store: store, log: log.With(slog.String("component", "httpapi"))}
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/command", s.handleCommand).Methods(http.MethodPost)
	s.log.Info("http routes registered")
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	snap := s.coord.Snapshot()
	resp := map[string]any{
		"sensors":   snap.Sensors,
		"actuators": snap.Actuators,
		"alerts":    snap.Alerts,
		"ackCount":  snap.AckCount,
		"timestamp": snap.Timestamp,
		"overrides": s.store.Active(),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// handleCommand accepts the same JSON message shape as the command stream so
// a dashboard can forward operator overrides without a Kafka client.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var msg command.Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if err := command.Apply(s.store, msg); err != nil {
		s.log.Warn("command rejected", "type", msg.Type, "sensor", msg.Sensor, "err", err)
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	s.log.Info("command applied", "type", msg.Type, "sensor", msg.Sensor)
	w.WriteHeader(http.StatusNoContent)
}
