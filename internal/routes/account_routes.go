package routes

import (
	"github.com/go-chi/chi/v5"
	"packshop/internal/handlers"
	"packshop/internal/middleware"
)

func RegisterAuthRoutes(router chi.Router, h *handlers.AuthHandler, auth middleware.Authenticator) {
	router.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.With(middleware.JWTAuth(auth)).Get("/me", h.Me)
	})
}

func RegisterPasswordRoutes(router chi.Router, h *handlers.PasswordHandler, auth middleware.Authenticator) {
	router.Route("/password", func(r chi.Router) {
		r.Post("/forgot", h.ForgotPassword)
		r.Post("/reset", h.ResetPassword)
		r.With(middleware.JWTAuth(auth)).Post("/change", h.ChangePassword)
	})
}
