package api

import (
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/rssimon/internal/dashboard"
)

// handleListDevices returns the current registry snapshot sorted by name.
//
// Under the prune-on-read lifecycle this call also evicts stale devices.
func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	snap := s.registry.Snapshot()

	devices := make([]dashboard.DeviceView, 0, len(snap))
	for _, rec := range snap {
		devices = append(devices, dashboard.ViewFor(rec))
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].Name < devices[j].Name })

	writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
}

// handleGetDevice returns a single device by name.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	rec, ok := s.registry.Get(name)
	if !ok {
		writeNotFound(w, "device not found")
		return
	}
	writeJSON(w, http.StatusOK, dashboard.ViewFor(rec))
}

// handleDashboard returns the most recent dashboard frame.
func (s *Server) handleDashboard(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.dashboard.Latest())
}
