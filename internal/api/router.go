// Package api implements the kcal-snap REST API using chi.
package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/saadjs/kcal-snap/internal/service"
)

// NewRouter creates a chi router with all API routes mounted.
func NewRouter(tracker *service.Tracker) chi.Router {
	h := NewHandler(tracker)

	r := chi.NewRouter()

	r.Get("/foods", h.ListFoods)
	r.Post("/foods", h.CreateFood)
	r.Delete("/foods/{id}", h.DeleteFood)

	r.Get("/totals", h.Totals)

	r.Get("/weights", h.ListWeights)
	r.Post("/weights", h.CreateWeight)

	r.Post("/analyze", h.Analyze)

	r.Route("/drafts", func(r chi.Router) {
		r.Post("/", h.CreateDraft)
		r.Get("/{id}", h.GetDraft)
		r.Patch("/{id}", h.UpdateDraft)
		r.Delete("/{id}", h.CancelDraft)
		r.Put("/{id}/image", h.SelectDraftImage)
		r.Post("/{id}/analyze", h.AnalyzeDraft)
		r.Post("/{id}/commit", h.CommitDraft)
	})

	return r
}
