// Package jobs holds the background worker: the dashboard warmup task that
// refreshes the Redis cache so the first page load after a data change is
// served warm.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskDashboardWarmup refreshes every dashboard view in cache.
	TaskDashboardWarmup = "dash:warmup"
)

// Warmup view names, in the order they are refreshed.
const (
	ViewCards     = "cards"
	ViewMTDSeries = "mtd-series"
	ViewRolling7d = "rolling-7d"
	ViewBySource  = "by-source"
	ViewHighlight = "highlights"
	ViewRepTable  = "rep-table"
	ViewPodium    = "podium"
)

// AllViews lists every warmable dashboard view.
var AllViews = []string{
	ViewCards,
	ViewMTDSeries,
	ViewRolling7d,
	ViewBySource,
	ViewHighlight,
	ViewRepTable,
	ViewPodium,
}

// DashboardWarmupPayload selects which views to refresh. An empty Views
// slice refreshes all of them. Bump invalidates the current cache
// generation before warming so readers never see a stale mix.
type DashboardWarmupPayload struct {
	Views []string `json:"views,omitempty"`
	Bump  bool     `json:"bump,omitempty"`
}

// NewDashboardWarmupTask constructs an Asynq task for the warmup handler.
func NewDashboardWarmupTask(payload DashboardWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDashboardWarmup, data), nil
}
