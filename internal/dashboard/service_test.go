package dashboard

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/salespulse/salespulse/internal/rollup"
	"github.com/salespulse/salespulse/internal/upstream"
)

type mockUpstream struct {
	salesRows  []rollup.Raw
	salesAsOf  string
	salesErr   error
	salesCalls int

	repRows  []rollup.Raw
	repAsOf  string
	repCalls int

	draftRows []rollup.Raw
	draftErr  error

	targets     []rollup.Target
	targetsErr  error
	targetMonth string

	kpis       upstream.KPIsMTD
	kpiErr     error
	kpiCalls   int
	highlights upstream.Highlights
}

func (m *mockUpstream) SalesLog(ctx context.Context) (upstream.RowsEnvelope, error) {
	m.salesCalls++
	return upstream.RowsEnvelope{Rows: m.salesRows, AsOf: m.salesAsOf}, m.salesErr
}

func (m *mockUpstream) RepTable(ctx context.Context) (upstream.RowsEnvelope, error) {
	m.repCalls++
	return upstream.RowsEnvelope{Rows: m.repRows, AsOf: m.repAsOf}, nil
}

func (m *mockUpstream) DraftRepTable(ctx context.Context) (upstream.RowsEnvelope, error) {
	return upstream.RowsEnvelope{Rows: m.draftRows}, m.draftErr
}

func (m *mockUpstream) Targets(ctx context.Context, month string) ([]rollup.Target, error) {
	m.targetMonth = month
	return m.targets, m.targetsErr
}

func (m *mockUpstream) MTDKPIs(ctx context.Context) (upstream.KPIsMTD, error) {
	m.kpiCalls++
	return m.kpis, m.kpiErr
}

func (m *mockUpstream) HighlightKPIs(ctx context.Context) (upstream.Highlights, error) {
	return m.highlights, nil
}

var testNow = time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, up Upstream) (*Service, func()) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewCache(client, time.Minute)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(up, cache, rollup.NewBucketer(time.UTC), logger)
	svc.WithNow(func() time.Time { return testNow })
	return svc, func() {
		_ = client.Close()
		mr.Close()
	}
}

func TestGetSectionCardsResolvesTargets(t *testing.T) {
	up := &mockUpstream{
		kpis: upstream.KPIsMTD{TotalMTD: 25000, EastMTD: 9000, WestMTD: 8000, DeltaAllVsLastMonth: 0.12},
		targets: []rollup.Target{
			{Scope: "org", Metric: "sales", Key: "all", Value: 50000},
			{Scope: "store", Metric: "sales", Key: "west", Value: 16000},
		},
	}
	up.highlights.Totals.OnlineSalesMTD = 4000

	svc, cleanup := newTestService(t, up)
	defer cleanup()

	cards, err := svc.GetSectionCards(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cards.Month != "2024-06" {
		t.Fatalf("expected month 2024-06 got %s", cards.Month)
	}
	if up.targetMonth != "2024-06" {
		t.Fatalf("expected targets fetched for 2024-06 got %s", up.targetMonth)
	}
	if len(cards.Cards) != 4 {
		t.Fatalf("expected 4 cards got %d", len(cards.Cards))
	}

	total := cards.Cards[0]
	if !total.HasTarget || total.Percent != 0.5 {
		t.Fatalf("expected total card at 50%% of target, got %+v", total)
	}
	if total.TargetDisplay != "$50,000" {
		t.Fatalf("unexpected target display %q", total.TargetDisplay)
	}

	// East has no target row: unavailable, not 0%.
	east := cards.Cards[1]
	if east.HasTarget {
		t.Fatalf("expected east card without target, got %+v", east)
	}
	if east.TargetDisplay != Placeholder {
		t.Fatalf("expected placeholder target display, got %q", east.TargetDisplay)
	}

	west := cards.Cards[2]
	if !west.HasTarget || west.Percent != 0.5 {
		t.Fatalf("expected west card at 50%% of target, got %+v", west)
	}
}

func TestGetSectionCardsCaches(t *testing.T) {
	up := &mockUpstream{kpis: upstream.KPIsMTD{TotalMTD: 100}}
	svc, cleanup := newTestService(t, up)
	defer cleanup()

	ctx := context.Background()
	if _, err := svc.GetSectionCards(ctx, ""); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if _, err := svc.GetSectionCards(ctx, ""); err != nil {
		t.Fatalf("second call: %v", err)
	}
	if up.kpiCalls != 1 {
		t.Fatalf("expected cache hit on second call, kpi fetched %d times", up.kpiCalls)
	}
}

func TestGetSectionCardsPropagatesUpstreamError(t *testing.T) {
	up := &mockUpstream{kpiErr: errors.New("HTTP 503")}
	svc, cleanup := newTestService(t, up)
	defer cleanup()

	if _, err := svc.GetSectionCards(context.Background(), ""); err == nil {
		t.Fatal("expected error")
	}
}

func TestGetMTDSeriesCumulative(t *testing.T) {
	up := &mockUpstream{
		salesRows: []rollup.Raw{
			{"date": "2024-06-01", "orderTotal": float64(100), "salesperson": "A"},
			{"date": "2024-06-03", "orderTotal": float64(50), "salesperson": "A"},
			{"date": "2024-05-02", "orderTotal": float64(80), "salesperson": "A"},
			{"date": "2024-05-28", "orderTotal": float64(999), "salesperson": "A"}, // beyond day 10
			{"date": "2024-06-05", "orderTotal": float64(0), "salesperson": "B"},  // excluded
		},
	}
	svc, cleanup := newTestService(t, up)
	defer cleanup()

	series, err := svc.GetMTDSeries(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(series.Points) != 10 {
		t.Fatalf("expected 10 points through June 10, got %d", len(series.Points))
	}
	if series.ThisMonthTotal != 150 {
		t.Fatalf("expected MTD total 150 got %.0f", series.ThisMonthTotal)
	}
	// Prior month only counts through the same day-of-month.
	if series.PrevMonthThruToday != 80 {
		t.Fatalf("expected prev month total 80 got %.0f", series.PrevMonthThruToday)
	}
	if series.Points[0].Date != "2024-06-01" || series.Points[9].Date != "2024-06-10" {
		t.Fatalf("unexpected axis %s..%s", series.Points[0].Date, series.Points[9].Date)
	}
	for i := 1; i < len(series.Points); i++ {
		if series.Points[i].ThisValue < series.Points[i-1].ThisValue {
			t.Fatalf("cumulative series decreased at %d", i)
		}
	}
}

func TestGetRolling7dWindows(t *testing.T) {
	up := &mockUpstream{
		salesRows: []rollup.Raw{
			{"date": "2024-06-09", "orderTotal": float64(70)},  // inside last 7
			{"date": "2024-06-04", "orderTotal": float64(40)},  // boundary of last 7
			{"date": "2024-06-03", "orderTotal": float64(30)},  // prior 7
			{"date": "2024-05-26", "orderTotal": float64(999)}, // outside 14 days
		},
	}
	svc, cleanup := newTestService(t, up)
	defer cleanup()

	out, err := svc.GetRolling7d(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Last7Total != 110 {
		t.Fatalf("expected last7 total 110 got %.0f", out.Last7Total)
	}
	if out.Prev7Total != 30 {
		t.Fatalf("expected prev7 total 30 got %.0f", out.Prev7Total)
	}
	if len(out.Points) != 7 {
		t.Fatalf("expected 7 points got %d", len(out.Points))
	}
	if out.Points[6].Date != "2024-06-10" {
		t.Fatalf("expected window ending today, got %s", out.Points[6].Date)
	}
}

func TestGetBySourceCounts(t *testing.T) {
	up := &mockUpstream{
		salesAsOf: "2024-06-10",
		salesRows: []rollup.Raw{
			{"store_region": "east"},
			{"store_region": "west"},
			{"source": "online"},
			{"tags": "Partner Network"},
			{"source": "mystery"}, // unknown, skipped
		},
	}
	svc, cleanup := newTestService(t, up)
	defer cleanup()

	out, err := svc.GetBySource(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.East != 1 || out.West != 1 || out.Online != 1 || out.Partner != 1 {
		t.Fatalf("unexpected counts %+v", out)
	}
	if out.Total != 4 {
		t.Fatalf("expected total 4 got %d", out.Total)
	}
	if out.AsOf != "2024-06-10" {
		t.Fatalf("expected as_of passthrough, got %q", out.AsOf)
	}
}

func TestGetHighlightsSuperlatives(t *testing.T) {
	up := &mockUpstream{
		salesRows: []rollup.Raw{
			{"date": "2024-06-02", "orderTotal": float64(900), "salesperson": "Jane"},
			{"date": "2024-06-03", "orderTotal": float64(100), "salesperson": "Jane"},
			{"date": "2024-06-04", "orderTotal": float64(200), "amountPaid": float64(500), "salesperson": "Omar"},
			{"date": "2024-06-05", "orderTotal": float64(150), "salesperson": "Omar"},
			{"date": "2024-06-06", "orderTotal": float64(120), "salesperson": "Omar"},
		},
	}
	svc, cleanup := newTestService(t, up)
	defer cleanup()

	out, err := svc.GetHighlights(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.LargestSale.Rep != "Jane" || out.LargestSale.Value != 900 {
		t.Fatalf("unexpected largest sale %+v", out.LargestSale)
	}
	if out.MostDeposits.Rep != "Omar" || out.MostDeposits.Value != 500 {
		t.Fatalf("unexpected most deposits %+v", out.MostDeposits)
	}
	if out.MostSales.Rep != "Omar" || out.MostSales.Value != 3 {
		t.Fatalf("unexpected most sales %+v", out.MostSales)
	}
	if out.HighestAvgDeal.Rep != "Jane" {
		t.Fatalf("unexpected highest avg deal %+v", out.HighestAvgDeal)
	}
}

func TestGetRepTableBackfillDraftsAndTargets(t *testing.T) {
	up := &mockUpstream{
		salesRows: []rollup.Raw{
			{"date": "2024-06-02", "orderTotal": float64(100), "amountPaid": float64(40), "salesperson": "Jane", "orderId": "X"},
			{"date": "2024-06-03", "orderTotal": float64(50), "orderId": "X"},  // backfills to Jane
			{"date": "2024-06-04", "orderTotal": float64(75), "cashier": "Kim"},
			{"date": "2024-06-05", "orderTotal": float64(10)}, // unassigned, excluded
		},
		draftRows: []rollup.Raw{
			{"rep": "jane", "drafts_mtd": float64(3)},
		},
		targets: []rollup.Target{
			{Scope: "rep", Metric: "sales", Key: "jane", Value: 300},
		},
	}
	svc, cleanup := newTestService(t, up)
	defer cleanup()

	out, err := svc.GetRepTable(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Rows) != 2 {
		t.Fatalf("expected 2 rows got %d", len(out.Rows))
	}

	jane := out.Rows[0]
	if jane.Rep != "Jane" {
		t.Fatalf("expected Jane first, got %s", jane.Rep)
	}
	if jane.Sales != 150 || jane.SalesCount != 2 || jane.Deposits != 40 {
		t.Fatalf("unexpected Jane rollup %+v", jane)
	}
	if jane.Drafts != 3 {
		t.Fatalf("expected drafts merged, got %.0f", jane.Drafts)
	}
	if !jane.HasSalesTarget || jane.SalesProgress != 0.5 {
		t.Fatalf("unexpected Jane progress %+v", jane)
	}

	kim := out.Rows[1]
	if kim.Rep != "Kim" || kim.Sales != 75 {
		t.Fatalf("unexpected second row %+v", kim)
	}
	if kim.HasSalesTarget {
		t.Fatalf("expected Kim without target, got %+v", kim)
	}
}

func TestGetRepTableDraftsFailureNonFatal(t *testing.T) {
	up := &mockUpstream{
		salesRows: []rollup.Raw{
			{"date": "2024-06-02", "orderTotal": float64(100), "salesperson": "Jane"},
		},
		draftErr: errors.New("HTTP 404"),
	}
	svc, cleanup := newTestService(t, up)
	defer cleanup()

	out, err := svc.GetRepTable(context.Background(), 10)
	if err != nil {
		t.Fatalf("drafts failure must be non-fatal: %v", err)
	}
	if len(out.Rows) != 1 || out.Rows[0].Drafts != 0 {
		t.Fatalf("expected row with zero drafts, got %+v", out.Rows)
	}
}

func TestGetPodiumSharesAndStability(t *testing.T) {
	up := &mockUpstream{
		repAsOf: "2024-06-10",
		repRows: []rollup.Raw{
			{"rep": "Jane", "sales": float64(500)},
			{"rep": "Omar", "sales": float64(300)},
			{"rep": "Kim", "sales": float64(300)},
			{"rep": "Lee", "sales": float64(100)},
		},
	}
	svc, cleanup := newTestService(t, up)
	defer cleanup()

	out, err := svc.GetPodium(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.TeamTotal != 1200 {
		t.Fatalf("expected team total 1200 got %.0f", out.TeamTotal)
	}
	if len(out.Entries) != 3 {
		t.Fatalf("expected 3 entries got %d", len(out.Entries))
	}
	if out.Entries[0].Rep != "Jane" {
		t.Fatalf("expected Jane first, got %s", out.Entries[0].Rep)
	}
	// Tie between Omar and Kim keeps input order.
	if out.Entries[1].Rep != "Omar" || out.Entries[2].Rep != "Kim" {
		t.Fatalf("tie not stable: %+v", out.Entries)
	}
	if out.Entries[0].Share != 500.0/1200.0 {
		t.Fatalf("unexpected share %.3f", out.Entries[0].Share)
	}
}

func TestCacheBumpInvalidates(t *testing.T) {
	up := &mockUpstream{kpis: upstream.KPIsMTD{TotalMTD: 100}}
	svc, cleanup := newTestService(t, up)
	defer cleanup()

	ctx := context.Background()
	if _, err := svc.GetSectionCards(ctx, ""); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if err := svc.cache.Bump(ctx); err != nil {
		t.Fatalf("bump: %v", err)
	}
	if _, err := svc.GetSectionCards(ctx, ""); err != nil {
		t.Fatalf("post-bump call: %v", err)
	}
	if up.kpiCalls != 2 {
		t.Fatalf("expected reload after bump, kpi fetched %d times", up.kpiCalls)
	}
}
