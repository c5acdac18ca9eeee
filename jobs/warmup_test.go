package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salespulse/salespulse/internal/dashboard"
)

type stubViews struct {
	calls         []string
	repTableLimit int
	failOn        string
}

func (s *stubViews) record(view string) error {
	s.calls = append(s.calls, view)
	if s.failOn == view {
		return errors.New("upstream: HTTP 503")
	}
	return nil
}

func (s *stubViews) GetSectionCards(ctx context.Context, month string) (dashboard.SectionCards, error) {
	return dashboard.SectionCards{}, s.record(ViewCards)
}

func (s *stubViews) GetMTDSeries(ctx context.Context) (dashboard.MTDSeries, error) {
	return dashboard.MTDSeries{}, s.record(ViewMTDSeries)
}

func (s *stubViews) GetRolling7d(ctx context.Context) (dashboard.Rolling7d, error) {
	return dashboard.Rolling7d{}, s.record(ViewRolling7d)
}

func (s *stubViews) GetBySource(ctx context.Context) (dashboard.BySource, error) {
	return dashboard.BySource{}, s.record(ViewBySource)
}

func (s *stubViews) GetHighlights(ctx context.Context) (dashboard.Highlights, error) {
	return dashboard.Highlights{}, s.record(ViewHighlight)
}

func (s *stubViews) GetRepTable(ctx context.Context, limit int) (dashboard.RepTable, error) {
	s.repTableLimit = limit
	return dashboard.RepTable{}, s.record(ViewRepTable)
}

func (s *stubViews) GetPodium(ctx context.Context) (dashboard.Podium, error) {
	return dashboard.Podium{}, s.record(ViewPodium)
}

func newWarmupJob(views DashboardViews) *DashboardWarmupJob {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewDashboardWarmupJob(views, nil, logger, nil)
}

func TestWarmupRefreshesAllViewsByDefault(t *testing.T) {
	views := &stubViews{}
	job := newWarmupJob(views)

	task, err := NewDashboardWarmupTask(DashboardWarmupPayload{})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	assert.Equal(t, AllViews, views.calls)
	assert.Equal(t, warmupRepTableLimit, views.repTableLimit)
}

func TestWarmupHonoursViewSelection(t *testing.T) {
	views := &stubViews{}
	job := newWarmupJob(views)

	task, err := NewDashboardWarmupTask(DashboardWarmupPayload{Views: []string{ViewPodium, ViewCards}})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	assert.Equal(t, []string{ViewPodium, ViewCards}, views.calls)
}

func TestWarmupStopsAtFirstFailure(t *testing.T) {
	views := &stubViews{failOn: ViewRolling7d}
	job := newWarmupJob(views)

	task, err := NewDashboardWarmupTask(DashboardWarmupPayload{})
	require.NoError(t, err)

	err = job.Handle(context.Background(), task)
	require.Error(t, err)
	assert.Equal(t, []string{ViewCards, ViewMTDSeries, ViewRolling7d}, views.calls)
}

func TestWarmupRejectsUnknownView(t *testing.T) {
	job := newWarmupJob(&stubViews{})

	task, err := NewDashboardWarmupTask(DashboardWarmupPayload{Views: []string{"leaderboard"}})
	require.NoError(t, err)

	err = job.Handle(context.Background(), task)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown view")
}

func TestWarmupSkipsRetryOnMalformedPayload(t *testing.T) {
	job := newWarmupJob(&stubViews{})

	task := asynq.NewTask(TaskDashboardWarmup, []byte("{not json"))
	err := job.Handle(context.Background(), task)
	require.ErrorIs(t, err, asynq.SkipRetry)
}
