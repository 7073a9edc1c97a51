package dashboard

import (
	"context"
	"fmt"
	"sort"

	"github.com/verte-zerg/typedash/internal/chart"
	"github.com/verte-zerg/typedash/internal/loader"
	"github.com/verte-zerg/typedash/internal/logger"
	"github.com/verte-zerg/typedash/internal/model"
	"github.com/verte-zerg/typedash/internal/stats"
)

const (
	defaultRankingLimit = 10
	missChartLimit      = 20
	trendWindow         = 5
)

// LoadFailedMessage prefixes the page-level load error.
const LoadFailedMessage = "Failed to load data"

// Controller builds tab view models. Every call reloads the tables.
type Controller struct {
	Source       loader.Source
	Cohort       loader.Cohort
	Clock        stats.Clock
	Log          *logger.Logger
	RankingLimit int
}

func (c *Controller) load(ctx context.Context, tab string, period Period) (model.Tables, string) {
	tables, err := loader.Load(ctx, c.Source, c.Cohort)
	if err != nil {
		if c.Log != nil {
			c.Log.Error("table load failed", "tab", tab, "error", err)
		}
		return model.Tables{}, fmt.Sprintf("%s: %v", LoadFailedMessage, err)
	}
	return FilterPeriod(tables, period), ""
}

func (c *Controller) limit() int {
	if c.RankingLimit > 0 {
		return c.RankingLimit
	}
	return defaultRankingLimit
}

// Overall builds the cohort-wide tab.
func (c *Controller) Overall(ctx context.Context, period Period) OverallPage {
	page := OverallPage{Page: newPage(TabOverall, period)}
	tables, loadErr := c.load(ctx, TabOverall, period)
	if loadErr != "" {
		page.LoadError = loadErr
		return page
	}
	page.Empty = tables.Empty()

	report := stats.NewReport(tables, c.Clock)
	page.Summary = summaryItems(report.Summary)

	limit := c.limit()
	page.Growth = chart.Ranking(report.Growth, limit,
		func(r stats.GrowthRow) model.Username { return r.Username },
		func(r stats.GrowthRow) string { return fmt.Sprintf("%.1f%%", r.TotalGrowth) },
		func(r stats.GrowthRow) string { return fmt.Sprintf("%d modes", r.Modes) },
	)
	page.Averages = chart.Ranking(report.Averages, limit,
		func(r stats.AverageRow) model.Username { return r.Username },
		func(r stats.AverageRow) string { return fmt.Sprintf("%.1f", r.MeanScore) },
		func(r stats.AverageRow) string { return fmt.Sprintf("%d plays", r.Attempts) },
	)
	page.GrowthChart = chart.BarChart("Total growth rate (%)", growthBars(report.Growth, limit))
	page.AverageChart = chart.BarChart("Average score", averageBars(report.Averages, limit))
	page.MissChart = missChart("Most missed characters", report.Misses, missChartLimit)
	page.Misses, page.MissShare = missRows(report.Misses, stats.TopShareSize)
	return page
}

// Personal builds one user's tab from the session state. Without a selection
// the first user in the picker is shown.
func (c *Controller) Personal(ctx context.Context, sess Session) PersonalPage {
	period := sess.Period
	if period == "" {
		period = PeriodAll
	}
	page := PersonalPage{Page: newPage(TabPersonal, period)}
	tables, loadErr := c.load(ctx, TabPersonal, period)
	if loadErr != "" {
		page.LoadError = loadErr
		return page
	}
	page.Empty = tables.Empty()

	page.Users = userOptions(tables)
	if len(page.Users) == 0 {
		return page
	}
	page.UserID = page.Users[0].ID
	if sess.HasUser {
		for _, u := range page.Users {
			if u.ID == sess.SelectedUser {
				page.UserID = u.ID
				break
			}
		}
	}
	for i := range page.Users {
		page.Users[i].Selected = page.Users[i].ID == page.UserID
	}
	page.HasUser = true

	p := stats.NewPersonalReport(tables, page.UserID)
	page.Username = chart.DisplayName(p.Username)
	page.Summary = summaryItems(p.Summary)
	page.TotalGrowth = fmt.Sprintf("%.1f%%", p.TotalGrowth)
	for _, mg := range p.Modes {
		panel := ModePanel{Label: mg.Mode.Label(), HasData: mg.HasData, Plays: mg.Plays}
		if mg.HasData {
			panel.Chart = chart.LineChart(mg.Mode.Label(), mg.Scores, stats.MovingAverage(mg.Scores, trendWindow))
			panel.First = fmt.Sprintf("%.1f", mg.First)
			panel.Best = fmt.Sprintf("%.1f", mg.Max)
			panel.Growth = fmt.Sprintf("%.1f%%", mg.Growth)
		} else {
			panel.Chart = chart.LineChart(mg.Mode.Label(), nil, nil)
		}
		page.Modes = append(page.Modes, panel)
	}
	page.MissChart = missChart("Most missed characters", p.Misses, missChartLimit)
	page.Misses, page.MissShare = missRows(p.Misses, stats.TopShareSize)
	for _, m := range p.WeakModes {
		page.WeakModes = append(page.WeakModes, m.Label())
	}
	page.CrossTab = crossTabView(p.CrossTab)
	return page
}

// Analytics builds the time and mode analysis tab.
func (c *Controller) Analytics(ctx context.Context, period Period) AnalyticsPage {
	page := AnalyticsPage{Page: newPage(TabAnalytics, period)}
	tables, loadErr := c.load(ctx, TabAnalytics, period)
	if loadErr != "" {
		page.LoadError = loadErr
		return page
	}
	page.Empty = tables.Empty()

	report := stats.NewReport(tables, c.Clock)
	bars := make([]chart.Bar, 0, len(report.Hours))
	for _, b := range report.Hours {
		bars = append(bars, chart.Bar{Label: fmt.Sprintf("%d", b.Hour), Value: float64(b.Count)})
	}
	if best, ok := stats.BestHour(report.Hours); ok {
		page.HourChart = chart.BarChart("Best attempts by hour", bars)
		page.BestHour = fmt.Sprintf("%02d:00 (%d best attempts)", best.Hour, best.Count)
	} else {
		page.HourChart = chart.BarChart("Best attempts by hour", nil)
	}
	page.WeekdayHeatmap = countHeatmap("Best attempts by weekday and hour", report.Weekdays)
	if best, ok := stats.BestWeekdayHour(report.Weekdays); ok {
		page.BestSlot = fmt.Sprintf("%s %02d:00 (%d best attempts)", stats.WeekdayLabels[best.Weekday], best.Hour, best.Count)
	}
	page.ScoreHeatmap = averageHeatmap("Average score by weekday and hour", report.SlotAverages, false)
	page.AccuracyHeatmap = averageHeatmap("Average accuracy by weekday and hour", report.SlotAverages, true)
	page.CrossScore = crossHeatmap("Average score by difficulty and language", report.CrossTab, false)
	page.CrossAccuracy = crossHeatmap("Average accuracy by difficulty and language", report.CrossTab, true)
	page.CrossTab = crossTabView(report.CrossTab)
	return page
}

func userOptions(tables model.Tables) []UserOption {
	seen := make(map[int64]bool)
	var out []UserOption
	for _, u := range tables.Users {
		if seen[u.UserID] {
			continue
		}
		seen[u.UserID] = true
		out = append(out, UserOption{ID: u.UserID, Name: u.Username})
	}
	// Users with attempts but no roster entry stay selectable.
	for _, a := range tables.Attempts {
		if seen[a.UserID] {
			continue
		}
		seen[a.UserID] = true
		out = append(out, UserOption{ID: a.UserID, Name: fmt.Sprintf("%s #%d", chart.DisplayName(a.Username), a.UserID)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out
}

func growthBars(rows []stats.GrowthRow, limit int) []chart.Bar {
	if len(rows) > limit {
		rows = rows[:limit]
	}
	bars := make([]chart.Bar, 0, len(rows))
	for _, r := range rows {
		bars = append(bars, chart.Bar{Label: chart.DisplayName(r.Username), Value: r.TotalGrowth})
	}
	return bars
}

func averageBars(rows []stats.AverageRow, limit int) []chart.Bar {
	if len(rows) > limit {
		rows = rows[:limit]
	}
	bars := make([]chart.Bar, 0, len(rows))
	for _, r := range rows {
		bars = append(bars, chart.Bar{Label: chart.DisplayName(r.Username), Value: r.MeanScore})
	}
	return bars
}
