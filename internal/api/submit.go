package api

import (
	"encoding/json"
	"math/rand"
	"net/http"
	"time"

	"github.com/nerrad567/rssimon/internal/device"
	"github.com/nerrad567/rssimon/internal/ingest"
)

// Bounds of the simulated reading used when a web submission omits rssi.
const (
	simulatedRSSIMin = -90
	simulatedRSSIMax = -30
)

// submitRequest is the body of POST /api/v1/submit.
type submitRequest struct {
	DeviceName string `json:"device_name"`
	Password   string `json:"password"`
	RSSI       *int   `json:"rssi,omitempty"`
}

// submitResponse is returned for both accepted and rejected submissions.
type submitResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	RSSI    *int   `json:"rssi,omitempty"`
	Quality string `json:"quality,omitempty"`
}

// statusResponse is returned by GET /api/v1/status.
type statusResponse struct {
	Connected bool   `json:"connected"`
	RSSI      *int   `json:"rssi,omitempty"`
	Quality   string `json:"quality,omitempty"`
}

// handleSubmit records a reading sent from the web form.
//
// The password is the same fixed keyword the TCP protocol uses. A missing
// rssi is replaced by a random value in [-90, -30].
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	ip := clientIP(r)

	if req.Password != ingest.LoginKeyword {
		s.logger.Warn("web submission rejected", "ip", ip, "device", req.DeviceName)
		s.recordAttempt(ingest.Attempt{
			Name:     req.DeviceName,
			SourceIP: ip,
			Source:   device.SourceWeb,
			Err:      ingest.ErrAuthenticationFailed,
		})
		writeJSON(w, http.StatusForbidden, submitResponse{
			Success: false,
			Message: "Invalid password",
		})
		return
	}

	// Names are stored exactly as sent, like the TCP path; empty is allowed.
	name := req.DeviceName

	rssi := simulatedRSSI()
	if req.RSSI != nil {
		rssi = *req.RSSI
	}

	rec := s.registry.Upsert(name, rssi, device.Metadata{
		SourceIP: ip,
		Source:   device.SourceWeb,
	})
	s.logger.Info("device updated", "device", name, "rssi", rssi, "ip", ip, "source", device.SourceWeb)

	s.recordAttempt(ingest.Attempt{
		Name:     name,
		RSSI:     rssi,
		SourceIP: ip,
		Source:   device.SourceWeb,
	})

	writeJSON(w, http.StatusOK, submitResponse{
		Success: true,
		RSSI:    &rec.RSSI,
		Quality: device.QualityFor(rec.RSSI),
	})
}

// handleStatus reports whether a device has been heard from recently.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if !query.Has("device_name") {
		writeBadRequest(w, "device_name is required")
		return
	}
	name := query.Get("device_name")

	rec, ok := s.registry.Get(name)
	if !ok || rec.Age(time.Now().UTC()) >= device.DefaultStaleAfter {
		writeJSON(w, http.StatusOK, statusResponse{Connected: false})
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{
		Connected: true,
		RSSI:      &rec.RSSI,
		Quality:   device.QualityFor(rec.RSSI),
	})
}

func (s *Server) recordAttempt(a ingest.Attempt) {
	if s.auditor != nil {
		s.auditor.RecordAttempt(a)
	}
}

func simulatedRSSI() int {
	return simulatedRSSIMin + rand.Intn(simulatedRSSIMax-simulatedRSSIMin+1) //nolint:gosec // not security sensitive
}
