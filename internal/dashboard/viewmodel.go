package dashboard

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Placeholder rendered where a value is unavailable (no target, no rep).
const Placeholder = "—"

var audPrinter = message.NewPrinter(language.MustParse("en-AU"))

// FormatAUD renders a whole-dollar en-AU currency string, matching the
// front-end's number formatting.
func FormatAUD(v float64) string {
	return audPrinter.Sprintf("$%v", number.Decimal(v, number.MaxFractionDigits(0)))
}

// Card is one section card: an MTD value with optional delta badge and
// target progress.
type Card struct {
	Label        string   `json:"label"`
	Value        float64  `json:"value"`
	ValueDisplay string   `json:"value_display"`
	Delta        *float64 `json:"delta,omitempty"`
	Target       float64  `json:"target"`
	// TargetDisplay is the placeholder when no target is known; a zero
	// target means "unset", never a 0% bar.
	TargetDisplay string  `json:"target_display"`
	Percent       float64 `json:"percent"`
	HasTarget     bool    `json:"has_target"`
}

// SectionCards is the card strip view model.
type SectionCards struct {
	Month string `json:"month"`
	Cards []Card `json:"cards"`
}

// SeriesPoint is one day of a two-series cumulative chart.
type SeriesPoint struct {
	Date      string  `json:"date"`
	ThisValue float64 `json:"this_value"`
	PrevValue float64 `json:"prev_value"`
}

// MTDSeries compares this month's cumulative sales against the previous
// month through the same day.
type MTDSeries struct {
	Points             []SeriesPoint `json:"points"`
	ThisMonthTotal     float64       `json:"this_month_total"`
	PrevMonthThruToday float64       `json:"prev_month_thru_today"`
}

// Rolling7d compares the trailing seven calendar days against the prior
// seven, both cumulative.
type Rolling7d struct {
	Points     []SeriesPoint `json:"points"`
	Last7Total float64       `json:"last7_total"`
	Prev7Total float64       `json:"prev7_total"`
}

// BySource is the sale-count breakdown per source tag.
type BySource struct {
	East    int    `json:"east"`
	West    int    `json:"west"`
	Online  int    `json:"online"`
	Partner int    `json:"partner"`
	Total   int    `json:"total"`
	AsOf    string `json:"as_of,omitempty"`
}

// Highlight is one superlative tile: the winning rep and the value that
// won it.
type Highlight struct {
	Rep     string  `json:"rep"`
	Value   float64 `json:"value"`
	Display string  `json:"display"`
}

// Highlights is the 2x2 tile view model.
type Highlights struct {
	LargestSale    Highlight `json:"largest_sale"`
	MostDeposits   Highlight `json:"most_deposits"`
	MostSales      Highlight `json:"most_sales"`
	HighestAvgDeal Highlight `json:"highest_avg_deal"`
}

// RepRow is one representative's month-to-date rollup.
type RepRow struct {
	Rep              string  `json:"rep"`
	Sales            float64 `json:"sales"`
	Deposits         float64 `json:"deposits"`
	SalesCount       int     `json:"sales_count"`
	Drafts           float64 `json:"drafts"`
	SalesTarget      float64 `json:"sales_target"`
	SalesProgress    float64 `json:"sales_progress"`
	HasSalesTarget   bool    `json:"has_sales_target"`
	DepositTarget    float64 `json:"deposit_target"`
	DepositProgress  float64 `json:"deposit_progress"`
	HasDepositTarget bool    `json:"has_deposit_target"`
}

// RepTable is the standings view model, sorted by sales descending.
type RepTable struct {
	Month string   `json:"month"`
	Rows  []RepRow `json:"rows"`
}

// PodiumEntry is one of the top representatives with their share of the
// team total.
type PodiumEntry struct {
	Rep          string  `json:"rep"`
	Sales        float64 `json:"sales"`
	SalesDisplay string  `json:"sales_display"`
	Share        float64 `json:"share"`
}

// Podium is the top-three view model.
type Podium struct {
	Entries   []PodiumEntry `json:"entries"`
	TeamTotal float64       `json:"team_total"`
	AsOf      string        `json:"as_of,omitempty"`
}
