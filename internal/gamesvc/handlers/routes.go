package handlers

import (
	"github.com/avvvet/gatortots-services/internal/auth"
	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
)

func (h *Handler) SetRoutes(r *chi.Mux) {
	r.Route("/v1", func(r chi.Router) {

		// public routes here
		r.Get("/health", h.HealthHandler)
		r.Post("/users", h.RegisterHandler)

		// Secure routes
		r.Group(func(r chi.Router) {
			r.Use(auth.Verifier(h.tokenAuth))
			r.Use(jwtauth.Authenticator)

			r.Route("/rooms", func(r chi.Router) {
				r.Post("/", h.CreateRoomHandler)
				r.Get("/", h.ListRoomsHandler)
				r.Get("/{roomID}", h.GetRoomHandler)
				r.Get("/{roomID}/messages", h.MessagesHandler)
			})

			if h.results != nil {
				r.Get("/results", h.ResultsHandler)
			}
		})
	})
}
