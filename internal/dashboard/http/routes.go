package dashhttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
)

// MountRoutes registers the dashboard view endpoints onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(30, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)

	r.Get("/cards", h.handleCards)
	r.Get("/podium", h.handlePodium)
	r.Group(func(gr chi.Router) {
		gr.Use(limiter)
		gr.Get("/mtd-series", h.handleMTDSeries)
		gr.Get("/rolling-7d", h.handleRolling7d)
		gr.Get("/by-source", h.handleBySource)
		gr.Get("/highlights", h.handleHighlights)
		gr.Get("/rep-table", h.handleRepTable)
	})
}
