package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/rssimon/internal/panel"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// Reporter page and live dashboard.
	page := panel.Handler(s.cfg.PanelDir)
	r.Handle("/", page)
	r.Handle("/static/*", page)

	// The form posts here; kept at the root for existing pages.
	r.Post("/submit", s.handleSubmit)

	r.Get(s.wsPath(), s.handleWebSocket)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)

		r.Post("/submit", s.handleSubmit)
		r.Get("/status", s.handleStatus)

		r.Get("/devices", s.handleListDevices)
		r.Get("/devices/{name}", s.handleGetDevice)
		r.Get("/dashboard", s.handleDashboard)

		r.Get("/audit", s.handleListAuditLogs)
	})

	return r
}

func (s *Server) wsPath() string {
	if s.wsCfg.Path != "" {
		return s.wsCfg.Path
	}
	return "/ws"
}
