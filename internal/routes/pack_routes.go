package routes

import (
	"github.com/go-chi/chi/v5"
	"packshop/internal/handlers"
	"packshop/internal/middleware"
)

// RegisterPackRoutes mounts the catalog. Reads are public, writes need an
// admin session.
func RegisterPackRoutes(router chi.Router, h *handlers.PackHandler, auth middleware.Authenticator) {
	router.Route("/packs", func(r chi.Router) {
		r.Get("/", h.ListPacks)
		r.Get("/{id}", h.GetPack)

		r.Group(func(r chi.Router) {
			r.Use(middleware.JWTAuth(auth))
			r.Use(middleware.RequireAdmin)
			r.Post("/", h.CreatePack)
			r.Put("/{id}", h.UpdatePack)
			r.Delete("/{id}", h.DeletePack)
			r.Post("/{id}/images", h.UploadImages)
		})
	})
}
