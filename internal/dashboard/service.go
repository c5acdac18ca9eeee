// Package dashboard computes the view models behind every card, chart and
// table. All views share one normalize/resolve/bucket/aggregate pipeline,
// so the numbers agree across the dashboard instead of drifting per view.
package dashboard

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/salespulse/salespulse/internal/rollup"
	"github.com/salespulse/salespulse/internal/upstream"
)

// Upstream is the data contract the service consumes.
type Upstream interface {
	SalesLog(ctx context.Context) (upstream.RowsEnvelope, error)
	RepTable(ctx context.Context) (upstream.RowsEnvelope, error)
	DraftRepTable(ctx context.Context) (upstream.RowsEnvelope, error)
	Targets(ctx context.Context, month string) ([]rollup.Target, error)
	MTDKPIs(ctx context.Context) (upstream.KPIsMTD, error)
	HighlightKPIs(ctx context.Context) (upstream.Highlights, error)
}

// Service aggregates upstream data into display-ready view models. Every
// result is recomputed from scratch per call; the cache in front of it is
// a pure read accelerator.
type Service struct {
	up       Upstream
	cache    *Cache
	bucketer rollup.Bucketer
	logger   *slog.Logger
	now      func() time.Time
}

// NewService wires the upstream client with the cache helper.
func NewService(up Upstream, cache *Cache, bucketer rollup.Bucketer, logger *slog.Logger) *Service {
	return &Service{
		up:       up,
		cache:    cache,
		bucketer: bucketer,
		logger:   logger,
		now:      time.Now,
	}
}

// WithNow overrides the service clock for testing.
func (s *Service) WithNow(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// CurrentMonth returns the operating month (YYYY-MM) in the dashboard
// timezone.
func (s *Service) CurrentMonth() string {
	return s.bucketer.YearMonth(s.now())
}

// cached wraps a loader with the versioned cache. A nil cache or nil Redis
// client degrades to calling the loader directly.
func (s *Service) cached(ctx context.Context, view, period string, dest interface{}, loader func(context.Context) (interface{}, error)) error {
	key, err := s.cache.BuildKey(ctx, "dash", view, period)
	if err != nil {
		return err
	}
	return s.cache.FetchJSON(ctx, key, dest, loader)
}

// salesRecords fetches the sales log, normalizes it and backfills
// representatives from shared order ids. Every view that reads the log
// goes through here.
func (s *Service) salesRecords(ctx context.Context) ([]rollup.Record, string, error) {
	env, err := s.up.SalesLog(ctx)
	if err != nil {
		return nil, "", err
	}
	records := rollup.NormalizeAll(env.Rows)
	rollup.BackfillByOrder(records)
	return records, env.AsOf, nil
}

// calendarDay buckets a record's date, honouring the date-only
// short-circuit.
func (s *Service) calendarDay(r rollup.Record) string {
	return s.bucketer.CalendarDay(r.Date)
}

// mtdWindow admits records whose calendar day falls in the month
// containing now.
func (s *Service) mtdWindow(now time.Time) rollup.WindowFunc {
	prefix := s.bucketer.MonthPrefix(now)
	return func(r rollup.Record) bool {
		return strings.HasPrefix(s.calendarDay(r), prefix)
	}
}

// GetSectionCards resolves the four summary cards: total, east, west and
// online MTD sales, each against its target.
func (s *Service) GetSectionCards(ctx context.Context, month string) (SectionCards, error) {
	if month == "" {
		month = s.CurrentMonth()
	}
	loader := func(ctx context.Context) (interface{}, error) {
		var (
			kpis       upstream.KPIsMTD
			targets    []rollup.Target
			highlights upstream.Highlights
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			kpis, err = s.up.MTDKPIs(gctx)
			return err
		})
		g.Go(func() error {
			var err error
			targets, err = s.up.Targets(gctx, month)
			return err
		})
		g.Go(func() error {
			var err error
			highlights, err = s.up.HighlightKPIs(gctx)
			return err
		})
		if err := g.Wait(); err != nil {
			return SectionCards{}, err
		}

		cards := []Card{
			buildCard("Total Sales", kpis.TotalMTD, &kpis.DeltaAllVsLastMonth,
				rollup.ResolveTarget(targets, rollup.ScopeOrg, rollup.MetricSales, "all")),
			buildCard("East Sales", kpis.EastMTD, &kpis.DeltaEastVsLastMonth,
				rollup.ResolveTarget(targets, rollup.ScopeStore, rollup.MetricSales, "east")),
			buildCard("West Sales", kpis.WestMTD, &kpis.DeltaWestVsLastMonth,
				rollup.ResolveTarget(targets, rollup.ScopeStore, rollup.MetricSales, "west")),
			buildCard("Online Sales", highlights.Totals.OnlineSalesMTD, nil,
				rollup.ResolveTarget(targets, rollup.ScopeOrg, rollup.MetricSales, "online")),
		}
		return SectionCards{Month: month, Cards: cards}, nil
	}

	var out SectionCards
	if err := s.cached(ctx, "cards", month, &out, loader); err != nil {
		return SectionCards{}, err
	}
	return out, nil
}

func buildCard(label string, value float64, delta *float64, target float64) Card {
	card := Card{
		Label:         label,
		Value:         value,
		ValueDisplay:  FormatAUD(value),
		Delta:         delta,
		Target:        target,
		TargetDisplay: Placeholder,
	}
	if ratio, ok := rollup.Progress(value, target); ok {
		card.Percent = ratio
		card.HasTarget = true
		card.TargetDisplay = FormatAUD(target)
	}
	return card
}

// GetMTDSeries builds the cumulative this-month vs previous-month chart.
// The previous month is clamped to min(days elapsed, its own length) and
// held flat beyond it.
func (s *Service) GetMTDSeries(ctx context.Context) (MTDSeries, error) {
	now := s.now()
	loader := func(ctx context.Context) (interface{}, error) {
		records, _, err := s.salesRecords(ctx)
		if err != nil {
			return MTDSeries{}, err
		}

		elapsed := s.bucketer.DaysElapsed(now)
		thisPrefix := s.bucketer.MonthPrefix(now)
		prevPrefix, prevDays := s.bucketer.PrevMonthWindow(now)

		thisBuckets := make([]float64, elapsed)
		prevBuckets := make([]float64, prevDays)
		for _, r := range records {
			if r.Amount <= 0 {
				continue
			}
			day := s.calendarDay(r)
			switch {
			case strings.HasPrefix(day, thisPrefix):
				if d := rollup.DayOfMonth(day); d >= 1 && d <= elapsed {
					thisBuckets[d-1] += r.Amount
				}
			case strings.HasPrefix(day, prevPrefix):
				if d := rollup.DayOfMonth(day); d >= 1 && d <= prevDays {
					prevBuckets[d-1] += r.Amount
				}
			}
		}

		cumThis := rollup.CumulativeSums(thisBuckets)
		cumPrev := rollup.CumulativeSums(prevBuckets)

		series := MTDSeries{Points: make([]SeriesPoint, 0, elapsed)}
		prevRun := 0.0
		for i := 0; i < elapsed; i++ {
			if i < len(cumPrev) {
				prevRun = cumPrev[i]
			}
			series.Points = append(series.Points, SeriesPoint{
				Date:      s.bucketer.MonthDay(now, i+1),
				ThisValue: cumThis[i],
				PrevValue: prevRun,
			})
		}
		if elapsed > 0 {
			series.ThisMonthTotal = cumThis[elapsed-1]
			series.PrevMonthThruToday = prevRun
		}
		return series, nil
	}

	var out MTDSeries
	if err := s.cached(ctx, "mtd-series", s.bucketer.CalendarDay(now), &out, loader); err != nil {
		return MTDSeries{}, err
	}
	return out, nil
}

// GetRolling7d builds the last-7 vs prior-7 cumulative comparison over the
// trailing fourteen calendar days.
func (s *Service) GetRolling7d(ctx context.Context) (Rolling7d, error) {
	now := s.now()
	loader := func(ctx context.Context) (interface{}, error) {
		records, _, err := s.salesRecords(ctx)
		if err != nil {
			return Rolling7d{}, err
		}

		axis := s.bucketer.LastNDays(now, 14)
		buckets := rollup.SumByDay(records, s.calendarDay, axis)

		cumPrev := rollup.CumulativeSums(buckets[:7])
		cumLast := rollup.CumulativeSums(buckets[7:])

		out := Rolling7d{Points: make([]SeriesPoint, 0, 7)}
		for i := 0; i < 7; i++ {
			out.Points = append(out.Points, SeriesPoint{
				Date:      axis[7+i],
				ThisValue: cumLast[i],
				PrevValue: cumPrev[i],
			})
		}
		out.Last7Total = cumLast[6]
		out.Prev7Total = cumPrev[6]
		return out, nil
	}

	var out Rolling7d
	if err := s.cached(ctx, "rolling7d", s.bucketer.CalendarDay(now), &out, loader); err != nil {
		return Rolling7d{}, err
	}
	return out, nil
}

// GetBySource counts sales per source tag. Records with an unknown source
// are skipped, matching the pie chart's behaviour.
func (s *Service) GetBySource(ctx context.Context) (BySource, error) {
	loader := func(ctx context.Context) (interface{}, error) {
		records, asOf, err := s.salesRecords(ctx)
		if err != nil {
			return BySource{}, err
		}
		out := BySource{AsOf: asOf}
		for _, r := range records {
			switch r.Source {
			case "east":
				out.East++
			case "west":
				out.West++
			case "online":
				out.Online++
			case "partner":
				out.Partner++
			}
		}
		out.Total = out.East + out.West + out.Online + out.Partner
		return out, nil
	}

	var out BySource
	if err := s.cached(ctx, "by-source", s.CurrentMonth(), &out, loader); err != nil {
		return BySource{}, err
	}
	return out, nil
}

// GetHighlights resolves the month-to-date superlatives per representative.
func (s *Service) GetHighlights(ctx context.Context) (Highlights, error) {
	now := s.now()
	loader := func(ctx context.Context) (interface{}, error) {
		records, _, err := s.salesRecords(ctx)
		if err != nil {
			return Highlights{}, err
		}
		groups := rollup.Aggregate(records,
			func(r rollup.Record) string { return r.Rep.DisplayName() },
			s.mtdWindow(now))

		out := Highlights{
			LargestSale:    Highlight{Rep: Placeholder, Display: Placeholder},
			MostDeposits:   Highlight{Rep: Placeholder, Display: Placeholder},
			MostSales:      Highlight{Rep: Placeholder, Display: Placeholder},
			HighestAvgDeal: Highlight{Rep: Placeholder, Display: Placeholder},
		}
		for _, g := range groups {
			if g.LargestSingleSale > out.LargestSale.Value {
				out.LargestSale = Highlight{Rep: g.Key, Value: g.LargestSingleSale, Display: FormatAUD(g.LargestSingleSale)}
			}
			if g.DepositSum > out.MostDeposits.Value {
				out.MostDeposits = Highlight{Rep: g.Key, Value: g.DepositSum, Display: FormatAUD(g.DepositSum)}
			}
			if float64(g.SalesCount) > out.MostSales.Value {
				out.MostSales = Highlight{Rep: g.Key, Value: float64(g.SalesCount), Display: audPrinter.Sprintf("%d", g.SalesCount)}
			}
			if g.SalesCount > 0 {
				avg := g.SalesSum / float64(g.SalesCount)
				if avg > out.HighestAvgDeal.Value {
					out.HighestAvgDeal = Highlight{Rep: g.Key, Value: avg, Display: FormatAUD(avg)}
				}
			}
		}
		return out, nil
	}

	var out Highlights
	if err := s.cached(ctx, "highlights", s.CurrentMonth(), &out, loader); err != nil {
		return Highlights{}, err
	}
	return out, nil
}

// GetRepTable builds the month-to-date standings: per-rep sales, deposits
// and counts with target progress, draft counts merged in. Unassigned
// records are excluded from standings. A failing drafts endpoint is
// non-fatal; drafts simply stay zero.
func (s *Service) GetRepTable(ctx context.Context, limit int) (RepTable, error) {
	now := s.now()
	month := s.CurrentMonth()
	loader := func(ctx context.Context) (interface{}, error) {
		records, _, err := s.salesRecords(ctx)
		if err != nil {
			return RepTable{}, err
		}

		targets, err := s.up.Targets(ctx, month)
		if err != nil {
			s.logger.Warn("rep table targets fetch", slog.Any("error", err))
			targets = nil
		}
		drafts := s.draftCounts(ctx)

		window := s.mtdWindow(now)
		assigned := func(r rollup.Record) bool { return r.Rep.Assigned && window(r) }
		groups := rollup.Aggregate(records,
			func(r rollup.Record) string { return r.Rep.DisplayName() },
			assigned)
		ranked := rollup.TopN(groups, limit)

		rows := make([]RepRow, 0, len(ranked))
		for _, g := range ranked {
			row := RepRow{
				Rep:        g.Key,
				Sales:      g.SalesSum,
				Deposits:   g.DepositSum,
				SalesCount: g.SalesCount,
				Drafts:     drafts[strings.ToLower(g.Key)],
			}
			row.SalesTarget = rollup.ResolveTarget(targets, "rep", rollup.MetricSales, g.Key)
			row.SalesProgress, row.HasSalesTarget = rollup.Progress(row.Sales, row.SalesTarget)
			row.DepositTarget = rollup.ResolveTarget(targets, "rep", "deposits", g.Key)
			row.DepositProgress, row.HasDepositTarget = rollup.Progress(row.Deposits, row.DepositTarget)
			rows = append(rows, row)
		}
		return RepTable{Month: month, Rows: rows}, nil
	}

	var out RepTable
	if err := s.cached(ctx, "rep-table", month, &out, loader); err != nil {
		return RepTable{}, err
	}
	return out, nil
}

// draftCounts merges the drafts endpoint into a lower-cased rep name map.
func (s *Service) draftCounts(ctx context.Context) map[string]float64 {
	env, err := s.up.DraftRepTable(ctx)
	if err != nil {
		s.logger.Warn("drafts rep-table fetch", slog.Any("error", err))
		return nil
	}
	counts := make(map[string]float64)
	for _, row := range env.Rows {
		name := strings.TrimSpace(rollup.StringField(row, "rep", "salesperson", "salesPerson", "sales_person"))
		key := strings.ToLower(name)
		if key == "" {
			key = "unassigned"
		}
		counts[key] += rollup.NumberField(row, "drafts_mtd", "drafts", "count", "total")
	}
	return counts
}

// GetPodium ranks the upstream rep table's top three by sales with each
// rep's share of the team total.
func (s *Service) GetPodium(ctx context.Context) (Podium, error) {
	loader := func(ctx context.Context) (interface{}, error) {
		env, err := s.up.RepTable(ctx)
		if err != nil {
			return Podium{}, err
		}

		groups := make([]rollup.Group, 0, len(env.Rows))
		teamTotal := 0.0
		for _, row := range env.Rows {
			name := rollup.StringField(row, "rep", "salesperson", "salesPerson", "sales_person")
			if name == "" {
				name = rollup.UnassignedLabel
			}
			sales := rollup.NumberField(row, "sales")
			groups = append(groups, rollup.Group{Key: name, SalesSum: sales})
			teamTotal += sales
		}

		out := Podium{TeamTotal: teamTotal, AsOf: env.AsOf}
		for _, g := range rollup.TopN(groups, 3) {
			entry := PodiumEntry{
				Rep:          g.Key,
				Sales:        g.SalesSum,
				SalesDisplay: FormatAUD(g.SalesSum),
			}
			if teamTotal > 0 {
				entry.Share = g.SalesSum / teamTotal
			}
			out.Entries = append(out.Entries, entry)
		}
		return out, nil
	}

	var out Podium
	if err := s.cached(ctx, "podium", s.CurrentMonth(), &out, loader); err != nil {
		return Podium{}, err
	}
	return out, nil
}
