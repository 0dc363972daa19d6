package quotes

import (
	"github.com/go-chi/chi/v5"

	"github.com/bali-malayali/bali-malayali/internal/identity"
)

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/quotes", h.List)
	r.Post("/quotes", h.Create)
	r.Get("/quotes/{id}", h.Show)
	r.Put("/quotes/{id}/itinerary", h.UpdateItinerary)
	r.Post("/quotes/{id}/reprice", h.Reprice)
	r.Get("/quotes/{id}/versions", h.Versions)

	r.Post("/quotes/{id}/send", h.Send)
	r.Post("/quotes/{id}/revise", h.Revise)
	r.Post("/quotes/{id}/approve", h.Approve)
	r.Post("/quotes/{id}/void", h.Void)
	r.Post("/quotes/{id}/hold", h.Hold)
	r.Post("/quotes/{id}/resume", h.Resume)

	r.Group(func(r chi.Router) {
		r.Use(identity.RequireAdmin)
		r.Post("/quotes/expire-due", h.ExpireDue)
	})
}
