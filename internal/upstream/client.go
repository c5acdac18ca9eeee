// Package upstream is the only place that talks to the analytics API and
// the only place that tolerates its schema variance. Every response is
// normalized to one canonical shape here; the aggregation layer never sees
// a raw payload.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/salespulse/salespulse/internal/rollup"
)

// ErrBaseURLUnset is returned when the client is used before the upstream
// base URL is configured.
var ErrBaseURLUnset = errors.New("upstream: base URL is not set")

const errorBodySnippet = 200

// Client fetches read-only JSON from the upstream analytics API.
type Client struct {
	baseURL   string
	clientTag string
	http      *http.Client
}

// NewClient builds a Client. baseURL must already be normalized (see
// app.NormalizeBaseURL); an empty baseURL makes every call fail with
// ErrBaseURLUnset.
func NewClient(baseURL, clientTag string, timeout time.Duration) *Client {
	return &Client{
		baseURL:   baseURL,
		clientTag: clientTag,
		http: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// RowsEnvelope is the canonical list response: upstream sends either a bare
// array or {"rows": [...], "as_of": ...}; both decode into this.
type RowsEnvelope struct {
	Rows []rollup.Raw
	AsOf string
}

// UnmarshalJSON accepts both upstream list shapes. A payload that is
// neither yields an empty row set, not an error.
func (e *RowsEnvelope) UnmarshalJSON(data []byte) error {
	var bare []rollup.Raw
	if err := json.Unmarshal(data, &bare); err == nil {
		e.Rows = bare
		return nil
	}
	var wrapped struct {
		Rows []rollup.Raw `json:"rows"`
		AsOf string       `json:"as_of"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil {
		e.Rows = wrapped.Rows
		e.AsOf = wrapped.AsOf
		return nil
	}
	e.Rows = nil
	return nil
}

// SalesLog fetches the raw sale/draft record stream.
func (c *Client) SalesLog(ctx context.Context) (RowsEnvelope, error) {
	var env RowsEnvelope
	err := c.getJSON(ctx, "sales-log", nil, &env)
	return env, err
}

// RepTable fetches the upstream's precomputed per-representative table.
func (c *Client) RepTable(ctx context.Context) (RowsEnvelope, error) {
	var env RowsEnvelope
	err := c.getJSON(ctx, "rep-table", nil, &env)
	return env, err
}

// DraftRepTable fetches month-to-date draft counts per representative.
func (c *Client) DraftRepTable(ctx context.Context) (RowsEnvelope, error) {
	var env RowsEnvelope
	err := c.getJSON(ctx, "drafts/rep-table", nil, &env)
	return env, err
}

// Targets fetches goal rows for the given month (YYYY-MM; empty fetches
// the upstream default).
func (c *Client) Targets(ctx context.Context, month string) ([]rollup.Target, error) {
	var query url.Values
	if month != "" {
		query = url.Values{"month": {month}}
	}
	var payload struct {
		Rows []rollup.Target `json:"rows"`
	}
	if err := c.getJSON(ctx, "targets", query, &payload); err != nil {
		return nil, err
	}
	return payload.Rows, nil
}

// KPIsMTD mirrors GET /kpis/mtd: month-to-date totals and deltas computed
// upstream, not reproduced here.
type KPIsMTD struct {
	TotalMTD             float64 `json:"total_mtd"`
	EastMTD              float64 `json:"east_mtd"`
	WestMTD              float64 `json:"west_mtd"`
	DeltaAllVsLastMonth  float64 `json:"delta_all_vs_last_month"`
	DeltaEastVsLastMonth float64 `json:"delta_east_vs_last_month"`
	DeltaWestVsLastMonth float64 `json:"delta_west_vs_last_month"`
}

// MTDKPIs fetches the precomputed month-to-date KPI scalars.
func (c *Client) MTDKPIs(ctx context.Context) (KPIsMTD, error) {
	var kpis KPIsMTD
	err := c.getJSON(ctx, "kpis/mtd", nil, &kpis)
	return kpis, err
}

// Highlights mirrors GET /kpis/highlights.
type Highlights struct {
	Totals struct {
		OnlineSalesMTD float64 `json:"online_sales_mtd"`
	} `json:"totals"`
}

// HighlightKPIs fetches the precomputed highlight totals.
func (c *Client) HighlightKPIs(ctx context.Context) (Highlights, error) {
	var h Highlights
	err := c.getJSON(ctx, "kpis/highlights", nil, &h)
	return h, err
}

// Status fetches the upstream health payload verbatim.
func (c *Client) Status(ctx context.Context) (map[string]any, error) {
	var payload map[string]any
	err := c.getJSON(ctx, "status", nil, &payload)
	return payload, err
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, dest any) error {
	if c.baseURL == "" {
		return ErrBaseURLUnset
	}
	endpoint := c.baseURL + "/" + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("upstream: build request: %w", err)
	}
	req.Header.Set("X-Client", c.clientTag)

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("upstream: %s: %w", path, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(res.Body, errorBodySnippet))
		return fmt.Errorf("upstream: HTTP %d %s for /%s :: %s", res.StatusCode, http.StatusText(res.StatusCode), path, snippet)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("upstream: read %s: %w", path, err)
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("upstream: decode %s: %w", path, err)
	}
	return nil
}
