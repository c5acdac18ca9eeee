// Package relay is the same-origin proxy in front of the upstream
// analytics API. It exists so browser clients never talk to the upstream
// directly: the relay injects identifying headers server-side and passes
// status, body and content-type through verbatim. It never caches.
package relay

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// ErrBaseURLUnset indicates the relay has no upstream to forward to.
var ErrBaseURLUnset = errors.New("relay: upstream base URL is not set")

const defaultContentType = "application/json; charset=utf-8"

// configErrorBody is the fixed response every endpoint returns until the
// upstream base URL is configured.
const configErrorBody = `{"error":"UPSTREAM_API_BASE is not set"}`

// Handler proxies the read-only upstream endpoints.
type Handler struct {
	logger    *slog.Logger
	baseURL   string
	clientTag string
	client    *http.Client
}

// NewHandler constructs the relay. baseURL must already be normalized; an
// empty value puts every endpoint into the fixed-500 configuration-error
// state.
func NewHandler(logger *slog.Logger, baseURL, clientTag string, timeout time.Duration) *Handler {
	return &Handler{
		logger:    logger,
		baseURL:   baseURL,
		clientTag: clientTag,
		client: &http.Client{
			Timeout: timeout,
			// Redirects pass through to the caller untouched.
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// proxy forwards one GET to the upstream path, copying the listed query
// parameters from the inbound request.
func (h *Handler) proxy(path string, forwardQuery ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.baseURL == "" {
			w.Header().Set("Content-Type", defaultContentType)
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(configErrorBody))
			return
		}

		endpoint := h.baseURL + "/" + path
		if len(forwardQuery) > 0 {
			query := url.Values{}
			for _, name := range forwardQuery {
				if v := r.URL.Query().Get(name); v != "" {
					query.Set(name, v)
				}
			}
			if len(query) > 0 {
				endpoint += "?" + query.Encode()
			}
		}

		req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, endpoint, nil)
		if err != nil {
			h.logger.Error("relay build request", slog.String("path", path), slog.Any("error", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		req.Header.Set("X-Client", h.clientTag)
		req.Header.Set("X-Relay-Request-Id", uuid.NewString())

		res, err := h.client.Do(req)
		if err != nil {
			h.logger.Warn("relay upstream fetch", slog.String("path", path), slog.Any("error", err))
			w.Header().Set("Content-Type", defaultContentType)
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`{"error":"upstream unreachable"}`))
			return
		}
		defer func() { _ = res.Body.Close() }()

		ct := res.Header.Get("Content-Type")
		if ct == "" {
			ct = defaultContentType
		}
		w.Header().Set("Content-Type", ct)
		w.WriteHeader(res.StatusCode)
		if _, err := io.Copy(w, res.Body); err != nil {
			h.logger.Warn("relay copy body", slog.String("path", path), slog.Any("error", err))
		}
	}
}
