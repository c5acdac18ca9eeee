// Package dashhttp exposes the dashboard view models as JSON endpoints.
// Failures degrade per widget: an upstream error becomes a 502 with an
// error string for that endpoint only, never a dead dashboard.
package dashhttp

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/salespulse/salespulse/internal/dashboard"
)

const requestTimeout = 10 * time.Second
const defaultRepTableLimit = 8

// DashboardService defines the view-model contract used by the handler.
type DashboardService interface {
	GetSectionCards(ctx context.Context, month string) (dashboard.SectionCards, error)
	GetMTDSeries(ctx context.Context) (dashboard.MTDSeries, error)
	GetRolling7d(ctx context.Context) (dashboard.Rolling7d, error)
	GetBySource(ctx context.Context) (dashboard.BySource, error)
	GetHighlights(ctx context.Context) (dashboard.Highlights, error)
	GetRepTable(ctx context.Context, limit int) (dashboard.RepTable, error)
	GetPodium(ctx context.Context) (dashboard.Podium, error)
}

// Handler coordinates HTTP requests for the dashboard views.
type Handler struct {
	logger   *slog.Logger
	service  DashboardService
	validate *validator.Validate
}

// NewHandler constructs the dashboard HTTP handler.
func NewHandler(logger *slog.Logger, service DashboardService) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(),
	}
}

type cardsQuery struct {
	Month string `validate:"omitempty,datetime=2006-01"`
}

type repTableQuery struct {
	Limit int `validate:"omitempty,min=1,max=100"`
}

func (h *Handler) handleCards(w http.ResponseWriter, r *http.Request) {
	q := cardsQuery{Month: r.URL.Query().Get("month")}
	if err := h.validate.Struct(q); err != nil {
		h.respondBadRequest(w, "month must be YYYY-MM")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	vm, err := h.service.GetSectionCards(ctx, q.Month)
	if err != nil {
		h.respondUpstreamError(w, "section cards", err)
		return
	}
	h.respondJSON(w, vm)
}

func (h *Handler) handleMTDSeries(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	vm, err := h.service.GetMTDSeries(ctx)
	if err != nil {
		h.respondUpstreamError(w, "mtd series", err)
		return
	}
	h.respondJSON(w, vm)
}

func (h *Handler) handleRolling7d(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	vm, err := h.service.GetRolling7d(ctx)
	if err != nil {
		h.respondUpstreamError(w, "rolling 7d", err)
		return
	}
	h.respondJSON(w, vm)
}

func (h *Handler) handleBySource(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	vm, err := h.service.GetBySource(ctx)
	if err != nil {
		h.respondUpstreamError(w, "by source", err)
		return
	}
	h.respondJSON(w, vm)
}

func (h *Handler) handleHighlights(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	vm, err := h.service.GetHighlights(ctx)
	if err != nil {
		h.respondUpstreamError(w, "highlights", err)
		return
	}
	h.respondJSON(w, vm)
}

func (h *Handler) handleRepTable(w http.ResponseWriter, r *http.Request) {
	q := repTableQuery{Limit: defaultRepTableLimit}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.respondBadRequest(w, "limit must be an integer")
			return
		}
		q.Limit = n
	}
	if err := h.validate.Struct(q); err != nil {
		h.respondBadRequest(w, "limit out of range")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	vm, err := h.service.GetRepTable(ctx, q.Limit)
	if err != nil {
		h.respondUpstreamError(w, "rep table", err)
		return
	}
	h.respondJSON(w, vm)
}

func (h *Handler) handlePodium(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	vm, err := h.service.GetPodium(ctx)
	if err != nil {
		h.respondUpstreamError(w, "podium", err)
		return
	}
	h.respondJSON(w, vm)
}

func (h *Handler) respondJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("encode view model", slog.Any("error", err))
	}
}

func (h *Handler) respondBadRequest(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (h *Handler) respondUpstreamError(w http.ResponseWriter, view string, err error) {
	h.logger.Warn("load "+view, slog.Any("error", err))
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusBadGateway)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
