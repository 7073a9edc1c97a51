// Package dashboard runs the per-tab load, aggregate and render pipelines.
package dashboard

import (
	"strings"
	"time"

	"github.com/verte-zerg/typedash/internal/model"
)

// Period limits a view to recent activity.
type Period string

// Supported periods.
const (
	PeriodAll Period = "all"
	Period7d  Period = "7d"
	Period30d Period = "30d"
	Period90d Period = "90d"
)

// Periods lists the periods in menu order.
var Periods = []Period{PeriodAll, Period7d, Period30d, Period90d}

// ParsePeriod maps user input to a Period. Unknown values mean PeriodAll.
func ParsePeriod(raw string) Period {
	p := Period(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range Periods {
		if p == known {
			return p
		}
	}
	return PeriodAll
}

// Label returns the menu label.
func (p Period) Label() string {
	switch p {
	case Period7d:
		return "Last 7 days"
	case Period30d:
		return "Last 30 days"
	case Period90d:
		return "Last 90 days"
	default:
		return "All time"
	}
}

// Window returns the period length, zero for PeriodAll.
func (p Period) Window() time.Duration {
	switch p {
	case Period7d:
		return 7 * 24 * time.Hour
	case Period30d:
		return 30 * 24 * time.Hour
	case Period90d:
		return 90 * 24 * time.Hour
	default:
		return 0
	}
}

// FilterPeriod keeps rows created within the period before the newest attempt
// (or newest miss when there are no attempts). The roster is untouched.
func FilterPeriod(tables model.Tables, p Period) model.Tables {
	window := p.Window()
	if window == 0 {
		return tables
	}
	newest, ok := newestTimestamp(tables)
	if !ok {
		return tables
	}
	cutoff := newest.Add(-window)

	out := model.Tables{Users: tables.Users}
	for _, a := range tables.Attempts {
		if !a.CreatedAt.Before(cutoff) {
			out.Attempts = append(out.Attempts, a)
		}
	}
	for _, m := range tables.Misses {
		if !m.CreatedAt.Before(cutoff) {
			out.Misses = append(out.Misses, m)
		}
	}
	return out
}

func newestTimestamp(tables model.Tables) (time.Time, bool) {
	var newest time.Time
	found := false
	for _, a := range tables.Attempts {
		if !found || a.CreatedAt.After(newest) {
			newest = a.CreatedAt
			found = true
		}
	}
	if found {
		return newest, true
	}
	for _, m := range tables.Misses {
		if !found || m.CreatedAt.After(newest) {
			newest = m.CreatedAt
			found = true
		}
	}
	return newest, found
}
