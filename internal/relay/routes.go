package relay

import "github.com/go-chi/chi/v5"

// MountRoutes registers the proxied upstream endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	r.Get("/status", h.proxy("status"))
	r.Get("/sales-log", h.proxy("sales-log"))
	r.Get("/rep-table", h.proxy("rep-table"))
	r.Get("/targets", h.proxy("targets", "month"))
	r.Get("/kpis/mtd", h.proxy("kpis/mtd"))
	r.Get("/kpis/highlights", h.proxy("kpis/highlights"))
	r.Get("/drafts/rep-table", h.proxy("drafts/rep-table"))
}
