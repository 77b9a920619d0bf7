package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/attendance/internal/web/handlers"
	"github.com/kozaktomas/attendance/internal/web/middleware"
)

func (s *Server) setupRoutes() {
	healthHandler := handlers.NewHealthHandler(s.deps.Store)
	authHandler := handlers.NewAuthHandler(s.tokens)
	slotsHandler := handlers.NewSlotsHandler(s.deps.Service)
	attendanceHandler := handlers.NewAttendanceHandler(s.deps.Service, s.deps.Detector)
	studentsHandler := handlers.NewStudentsHandler(s.deps.Service, s.deps.Students, s.deps.Enroller)
	holidaysHandler := handlers.NewHolidaysHandler(s.deps.Store)

	adminOnly := middleware.RequireRole(middleware.RoleAdmin)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", healthHandler.Check)

		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/logout", authHandler.Logout)
		r.Get("/auth/status", authHandler.Status)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(s.tokens))

			// Slots
			r.Get("/slots", slotsHandler.List)

			// Attendance
			r.Post("/attendance/mark", attendanceHandler.Mark)
			r.Post("/attendance/detect", attendanceHandler.Detect)
			r.Get("/attendance/live", attendanceHandler.Live)
			r.Get("/attendance/slots/{date}", attendanceHandler.Breakdown)

			// Students
			r.Get("/students", studentsHandler.Search)
			r.Get("/students/{id}/history", studentsHandler.History)

			// Holidays
			r.Get("/holidays", holidaysHandler.List)

			// Administration
			r.Group(func(r chi.Router) {
				r.Use(adminOnly)

				r.Post("/slots", slotsHandler.Create)
				r.Post("/slots/reload", slotsHandler.Reload)
				r.Put("/slots/{slotID}", slotsHandler.Update)
				r.Delete("/slots/{slotID}", slotsHandler.Deactivate)
				r.Post("/slots/{slotID}/activate", slotsHandler.Activate)

				r.Post("/attendance/manual", attendanceHandler.Manual)
				r.Post("/summaries/{date}/recompute", attendanceHandler.Recompute)

				r.Post("/students/{id}/embeddings", studentsHandler.Enroll)

				r.Post("/holidays", holidaysHandler.Add)
				r.Delete("/holidays/{id}", holidaysHandler.Delete)
			})
		})
	})
}
