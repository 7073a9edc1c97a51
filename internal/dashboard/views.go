package dashboard

import (
	"fmt"

	"github.com/verte-zerg/typedash/internal/chart"
	"github.com/verte-zerg/typedash/internal/stats"
)

// Tab names.
const (
	TabOverall   = "overall"
	TabPersonal  = "personal"
	TabAnalytics = "analytics"
)

// PeriodOption is one entry of the period menu.
type PeriodOption struct {
	Value    Period
	Label    string
	Selected bool
}

// Page holds fields shared by every tab.
type Page struct {
	Tab       string
	Period    Period
	Periods   []PeriodOption
	LoadError string
	// Empty is set when the snapshot has no attempts and no misses.
	Empty bool
}

// SummaryItem is one headline figure.
type SummaryItem struct {
	Label string
	Value string
	Unit  string
}

// MissRow is one line of the miss table.
type MissRow struct {
	Char  string
	Count int
	Share string
}

// OverallPage is the cohort-wide view.
type OverallPage struct {
	Page
	Summary      []SummaryItem
	Growth       []chart.RankEntry
	Averages     []chart.RankEntry
	GrowthChart  chart.Rendered
	AverageChart chart.Rendered
	MissChart    chart.Rendered
	Misses       []MissRow
	MissShare    string
}

// UserOption is one entry of the user picker.
type UserOption struct {
	ID       int64
	Name     string
	Selected bool
}

// ModePanel is one mode's trend on the personal tab.
type ModePanel struct {
	Label   string
	HasData bool
	Chart   chart.Rendered
	First   string
	Best    string
	Growth  string
	Plays   int
}

// CrossTabView is the difficulty x language table with sentinel labels.
type CrossTabView struct {
	Languages []string
	Rows      []CrossTabRow
}

// CrossTabRow is one difficulty.
type CrossTabRow struct {
	Difficulty string
	Scores     []string
	Accuracies []string
}

// PersonalPage is one user's view.
type PersonalPage struct {
	Page
	Users       []UserOption
	UserID      int64
	HasUser     bool
	Username    string
	Summary     []SummaryItem
	TotalGrowth string
	Modes       []ModePanel
	MissChart   chart.Rendered
	Misses      []MissRow
	MissShare   string
	WeakModes   []string
	CrossTab    CrossTabView
}

// AnalyticsPage is the time and mode analysis view.
type AnalyticsPage struct {
	Page
	HourChart       chart.Rendered
	BestHour        string
	WeekdayHeatmap  chart.Heatmap
	BestSlot        string
	ScoreHeatmap    chart.Heatmap
	AccuracyHeatmap chart.Heatmap
	CrossScore      chart.Heatmap
	CrossAccuracy   chart.Heatmap
	CrossTab        CrossTabView
}

func newPage(tab string, period Period) Page {
	opts := make([]PeriodOption, 0, len(Periods))
	for _, p := range Periods {
		opts = append(opts, PeriodOption{Value: p, Label: p.Label(), Selected: p == period})
	}
	return Page{Tab: tab, Period: period, Periods: opts}
}

func summaryItems(s stats.Summary) []SummaryItem {
	return []SummaryItem{
		{Label: "Plays", Value: fmt.Sprintf("%d", s.Plays)},
		{Label: "Average score", Value: fmt.Sprintf("%.1f", s.MeanScore)},
		{Label: "Average accuracy", Value: fmt.Sprintf("%.1f", s.MeanAccuracy*100), Unit: "%"},
		{Label: "Average typing count", Value: fmt.Sprintf("%.1f", s.MeanTypingCount)},
		{Label: "Total misses", Value: fmt.Sprintf("%d", s.TotalMisses)},
	}
}

func missRows(freq []stats.MissCount, limit int) ([]MissRow, string) {
	summary := stats.SummarizeMisses(freq)
	top := stats.TopMisses(freq, limit)
	rows := make([]MissRow, 0, len(top))
	for _, mc := range top {
		share := 0.0
		if summary.Total > 0 {
			share = float64(mc.Count) / float64(summary.Total) * 100
		}
		rows = append(rows, MissRow{
			Char:  stats.MissCharLabel(mc.Char),
			Count: mc.Count,
			Share: fmt.Sprintf("%.1f%%", share),
		})
	}
	if summary.Total == 0 {
		return rows, ""
	}
	return rows, fmt.Sprintf("Top %d characters account for %.1f%% of %d misses.", stats.TopShareSize, summary.TopShare, summary.Total)
}

func missChart(title string, freq []stats.MissCount, limit int) chart.Rendered {
	top := stats.TopMisses(freq, limit)
	bars := make([]chart.Bar, 0, len(top))
	for _, mc := range top {
		bars = append(bars, chart.Bar{Label: stats.MissCharLabel(mc.Char), Value: float64(mc.Count)})
	}
	return chart.BarChart(title, bars)
}

func crossTabView(t stats.CrossTable) CrossTabView {
	var view CrossTabView
	if len(t.Rows) == 0 {
		return view
	}
	for _, c := range t.Rows[0] {
		view.Languages = append(view.Languages, c.Language.Label())
	}
	for _, row := range t.Rows {
		r := CrossTabRow{Difficulty: row[0].Difficulty.Label()}
		for _, c := range row {
			r.Scores = append(r.Scores, c.ScoreLabel())
			r.Accuracies = append(r.Accuracies, c.AccuracyLabel())
		}
		view.Rows = append(view.Rows, r)
	}
	return view
}

func crossHeatmap(title string, t stats.CrossTable, accuracy bool) chart.Heatmap {
	var rows, cols []string
	cells := make([][]chart.HeatValue, 0, len(t.Rows))
	for i, row := range t.Rows {
		rows = append(rows, row[0].Difficulty.Label())
		line := make([]chart.HeatValue, 0, len(row))
		for _, c := range row {
			if i == 0 {
				cols = append(cols, c.Language.Label())
			}
			v := chart.HeatValue{HasData: c.HasData, Value: c.MeanScore, Label: c.ScoreLabel()}
			if accuracy {
				v.Value = c.MeanAccuracy
				v.Label = c.AccuracyLabel()
			}
			line = append(line, v)
		}
		cells = append(cells, line)
	}
	return chart.NewHeatmap(title, rows, cols, cells)
}

func hourLabels() []string {
	out := make([]string, 0, stats.HourSlots)
	for h := stats.HourStart; h < stats.HourEnd; h++ {
		out = append(out, fmt.Sprintf("%d", h))
	}
	return out
}

func weekdayLabels() []string {
	return stats.WeekdayLabels[:]
}

func countHeatmap(title string, grid stats.WeekdayHourGrid) chart.Heatmap {
	hasData := grid.Total() > 0
	cells := make([][]chart.HeatValue, 0, stats.Weekdays)
	for _, row := range grid {
		line := make([]chart.HeatValue, 0, len(row))
		for _, v := range row {
			line = append(line, chart.HeatValue{Value: float64(v), Label: fmt.Sprintf("%d", v), HasData: hasData})
		}
		cells = append(cells, line)
	}
	return chart.NewHeatmap(title, weekdayLabels(), hourLabels(), cells)
}

func averageHeatmap(title string, grid [stats.Weekdays][stats.HourSlots]stats.Cell, accuracy bool) chart.Heatmap {
	cells := make([][]chart.HeatValue, 0, stats.Weekdays)
	for _, row := range grid {
		line := make([]chart.HeatValue, 0, len(row))
		for _, c := range row {
			v := chart.HeatValue{HasData: c.HasData, Label: stats.NoDataLabel}
			if c.HasData {
				if accuracy {
					v.Value = c.MeanAccuracy
					v.Label = fmt.Sprintf("%.0f%%", c.MeanAccuracy*100)
				} else {
					v.Value = c.MeanScore
					v.Label = fmt.Sprintf("%.0f", c.MeanScore)
				}
			}
			line = append(line, v)
		}
		cells = append(cells, line)
	}
	return chart.NewHeatmap(title, weekdayLabels(), hourLabels(), cells)
}
