package rollup

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var dateOnlyPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Bucketer converts raw date values into calendar days of a fixed named
// timezone and answers period-membership questions in that zone's civil
// calendar.
type Bucketer struct {
	loc *time.Location
}

// NewBucketer builds a Bucketer for the given location. A nil location
// falls back to UTC.
func NewBucketer(loc *time.Location) Bucketer {
	if loc == nil {
		loc = time.UTC
	}
	return Bucketer{loc: loc}
}

// Location exposes the bucketer's timezone.
func (b Bucketer) Location() *time.Location {
	return b.loc
}

// CalendarDay renders a raw date value as YYYY-MM-DD in the bucketer's
// timezone. A value that already is a date-only string is returned
// unchanged: re-interpreting it through a timezone conversion could shift
// it by a day. Unparseable values yield "".
func (b Bucketer) CalendarDay(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		s := strings.TrimSpace(val)
		if dateOnlyPattern.MatchString(s) {
			return s
		}
		t, ok := parseInstant(s)
		if !ok {
			return ""
		}
		return t.In(b.loc).Format("2006-01-02")
	case time.Time:
		return val.In(b.loc).Format("2006-01-02")
	case float64:
		return b.epochDay(val)
	case int:
		return b.epochDay(float64(val))
	case int64:
		return b.epochDay(float64(val))
	default:
		return ""
	}
}

// epochDay interprets a numeric value as an epoch instant. Values of
// millisecond magnitude (>= 1e11) are treated as milliseconds, smaller ones
// as seconds.
func (b Bucketer) epochDay(n float64) string {
	if n == 0 {
		return ""
	}
	var t time.Time
	if n >= 1e11 || n <= -1e11 {
		t = time.UnixMilli(int64(n))
	} else {
		t = time.Unix(int64(n), 0)
	}
	return t.In(b.loc).Format("2006-01-02")
}

func parseInstant(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// CivilDate returns the year, month and day-of-month of the instant in the
// bucketer's timezone.
func (b Bucketer) CivilDate(now time.Time) (int, time.Month, int) {
	return now.In(b.loc).Date()
}

// MonthPrefix returns "YYYY-MM-" for the month containing now, used for
// month-to-date filtering against calendar-day strings.
func (b Bucketer) MonthPrefix(now time.Time) string {
	return now.In(b.loc).Format("2006-01-")
}

// YearMonth returns "YYYY-MM" for the month containing now.
func (b Bucketer) YearMonth(now time.Time) string {
	return now.In(b.loc).Format("2006-01")
}

// PrevMonthWindow describes the comparison window in the calendar month
// preceding now: its "YYYY-MM-" prefix and the number of comparable days,
// clamped to min(days elapsed this month, days in the previous month).
// The rollback handles year wraparound (January to previous December).
func (b Bucketer) PrevMonthWindow(now time.Time) (prefix string, days int) {
	y, m, d := b.CivilDate(now)
	firstOfMonth := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	prev := firstOfMonth.AddDate(0, -1, 0)
	prefix = prev.Format("2006-01-")
	daysInPrev := daysInMonth(prev.Year(), prev.Month())
	days = d
	if daysInPrev < days {
		days = daysInPrev
	}
	return prefix, days
}

// DaysElapsed returns the day-of-month of now in the bucketer's zone, i.e.
// the number of month-to-date days including today.
func (b Bucketer) DaysElapsed(now time.Time) int {
	_, _, d := b.CivilDate(now)
	return d
}

// MonthDay returns the calendar day string for the given day-of-month in
// the month containing now.
func (b Bucketer) MonthDay(now time.Time, day int) string {
	y, m, _ := b.CivilDate(now)
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
}

// LastNDays lists the trailing n calendar days ending today, chronological
// ascending. Calendar-day arithmetic, not elapsed-time arithmetic: the
// boundaries are civil midnights in the bucketer's zone.
func (b Bucketer) LastNDays(now time.Time, n int) []string {
	y, m, d := b.CivilDate(now)
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	out := make([]string, 0, n)
	for i := n - 1; i >= 0; i-- {
		out = append(out, today.AddDate(0, 0, -i).Format("2006-01-02"))
	}
	return out
}

// WithinLastNDays reports whether the calendar day falls inside the
// trailing n-day window ending today.
func (b Bucketer) WithinLastNDays(day string, now time.Time, n int) bool {
	for _, d := range b.LastNDays(now, n) {
		if d == day {
			return true
		}
	}
	return false
}

// DayOfMonth extracts the day-of-month from a YYYY-MM-DD string; 0 when the
// string does not look like a calendar day.
func DayOfMonth(day string) int {
	if !dateOnlyPattern.MatchString(day) {
		return 0
	}
	n, err := strconv.Atoi(day[8:])
	if err != nil {
		return 0
	}
	return n
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
