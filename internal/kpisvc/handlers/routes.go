package handlers

import (
	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
)

func (h *Handler) SetRoutes(r *chi.Mux) {
	r.Route("/v1", h.mount)
	// paths used by the existing dashboard client
	r.Route("/api", h.mount)
}

func (h *Handler) mount(r chi.Router) {
	r.Get("/health", h.HealthHandler)

	r.Route("/kpi-cards", func(r chi.Router) {
		r.Get("/", h.ListCards)
		r.Post("/", h.CreateCard)
		r.Get("/available", h.ListAvailableCards)
		r.Put("/order", h.ReorderCards)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetCard)
			r.Put("/", h.UpdateCard)
			r.Patch("/", h.SetCardVisibility)
			r.Delete("/", h.HideCard)
			r.Get("/yield", h.GetCardYield)
		})
	})

	r.Group(func(r chi.Router) {
		// tokens are optional; Verifier only exposes the claims
		if h.tokenAuth != nil {
			r.Use(jwtauth.Verifier(h.tokenAuth))
		}
		r.Get("/user-preferences", h.GetUserPreference)
		r.Post("/user-preferences", h.SaveUserPreference)
	})

	if h.hub != nil {
		r.Get("/ws", h.hub.HandleWebSocket)
	}
}

// InitAuth enables reading the user id from HS256 tokens signed with secret.
func (h *Handler) InitAuth(secret string) {
	if secret == "" {
		return
	}
	h.tokenAuth = jwtauth.New("HS256", []byte(secret), nil)
}
