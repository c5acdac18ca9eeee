package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/salespulse/salespulse/internal/dashboard"
	jobmetrics "github.com/salespulse/salespulse/internal/jobs"
)

const viewTimeout = 20 * time.Second
const warmupRepTableLimit = 8

// DashboardViews is the slice of the dashboard service the warmup job
// drives.
type DashboardViews interface {
	GetSectionCards(ctx context.Context, month string) (dashboard.SectionCards, error)
	GetMTDSeries(ctx context.Context) (dashboard.MTDSeries, error)
	GetRolling7d(ctx context.Context) (dashboard.Rolling7d, error)
	GetBySource(ctx context.Context) (dashboard.BySource, error)
	GetHighlights(ctx context.Context) (dashboard.Highlights, error)
	GetRepTable(ctx context.Context, limit int) (dashboard.RepTable, error)
	GetPodium(ctx context.Context) (dashboard.Podium, error)
}

// DashboardWarmupJob refreshes the dashboard cache by loading each view
// through the service, which populates Redis as a side effect.
type DashboardWarmupJob struct {
	Views   DashboardViews
	Cache   *dashboard.Cache
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewDashboardWarmupJob wires dependencies for the warmup handler.
func NewDashboardWarmupJob(views DashboardViews, cache *dashboard.Cache, logger *slog.Logger, metrics *jobmetrics.Metrics) *DashboardWarmupJob {
	return &DashboardWarmupJob{
		Views:   views,
		Cache:   cache,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes dashboard warmup tasks. The first failing view aborts
// the run so a broken upstream surfaces as a failed job, not a half-warm
// cache presented as success.
func (j *DashboardWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Views == nil {
		return errors.New("dashboard warmup: handler not configured")
	}
	var payload DashboardWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	views := payload.Views
	if len(views) == 0 {
		views = AllViews
	}

	tracker := j.metrics().Track(TaskDashboardWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	start := j.now()
	logger.Info("starting dashboard warmup", slog.Int("views", len(views)))

	if payload.Bump {
		if err := j.Cache.Bump(ctx); err != nil {
			resultErr = err
			logger.Error("bump cache version", slog.Any("error", err))
			return resultErr
		}
	}

	for _, view := range views {
		if err := j.warmView(ctx, view); err != nil {
			resultErr = err
			logger.Error("warm view", slog.String("view", view), slog.Any("error", err))
			return resultErr
		}
	}

	logger.Info("completed dashboard warmup",
		slog.Int("views", len(views)),
		slog.Duration("duration", time.Since(start)))
	return resultErr
}

func (j *DashboardWarmupJob) warmView(ctx context.Context, view string) error {
	viewCtx, cancel := context.WithTimeout(ctx, viewTimeout)
	defer cancel()

	var err error
	switch view {
	case ViewCards:
		_, err = j.Views.GetSectionCards(viewCtx, "")
	case ViewMTDSeries:
		_, err = j.Views.GetMTDSeries(viewCtx)
	case ViewRolling7d:
		_, err = j.Views.GetRolling7d(viewCtx)
	case ViewBySource:
		_, err = j.Views.GetBySource(viewCtx)
	case ViewHighlight:
		_, err = j.Views.GetHighlights(viewCtx)
	case ViewRepTable:
		_, err = j.Views.GetRepTable(viewCtx, warmupRepTableLimit)
	case ViewPodium:
		_, err = j.Views.GetPodium(viewCtx)
	default:
		return fmt.Errorf("dashboard warmup: unknown view %q", view)
	}
	return err
}

func (j *DashboardWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskDashboardWarmup))
	}
	return slog.Default().With(slog.String("job", TaskDashboardWarmup))
}

func (j *DashboardWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return jobmetrics.NewMetrics(nil)
}

func (j *DashboardWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
