package api

import (
	"net/http"
	"strconv"

	"github.com/nerrad567/rssimon/internal/audit"
)

// handleListAuditLogs returns paginated audit log entries with optional filters.
//
// Query parameters:
//   - action: login_success or login_rejected
//   - device: filter by device name
//   - source: filter by ingestion path (tcp, web)
//   - limit: max results (default 50, max 200)
//   - offset: pagination offset
func (s *Server) handleListAuditLogs(w http.ResponseWriter, r *http.Request) {
	if s.auditRepo == nil {
		writeUnavailable(w, "audit logging not enabled")
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		Action: q.Get("action"),
		Device: q.Get("device"),
		Source: q.Get("source"),
	}

	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}

	result, err := s.auditRepo.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list audit logs", "error", err)
		writeInternalError(w, "failed to list audit logs")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
