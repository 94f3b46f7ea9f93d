package pockets

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/poverty-pockets/pockets-backend/internal/middleware"
)

// SetupRoutes mounts the read API and the admin reload endpoint.
func SetupRoutes(svc *Service, adminTokenHash string) http.Handler {
	h := &handlers{svc: svc}
	r := chi.NewRouter()

	// Public routes
	r.Get("/tracts/{id}", h.GetTract)
	r.Get("/zips/{zip}", h.GetZip)
	r.Get("/search", h.Search)
	r.Post("/report", h.Report)
	r.Get("/render", h.Render)
	r.Get("/status", h.Status)

	// Admin routes
	r.With(middleware.AdminTokenMiddleware(adminTokenHash)).Post("/reload", h.Reload)

	return r
}
