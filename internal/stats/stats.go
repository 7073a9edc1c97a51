// Package stats contains aggregation and text reporting of typing telemetry.
package stats

import (
	"fmt"
	"io"
	"math"
	"strings"
)

const sparkChars = " .:-=+*#%@"

// NoDataMessage is printed in place of an empty section.
const NoDataMessage = "No data."

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal := values[0]
	maxVal := values[0]
	for _, v := range values[1:] {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sparkChars) {
			idx = len(sparkChars) - 1
		}
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

func writeSection(w io.Writer, title string, lines []string) error {
	if _, err := fmt.Fprintln(w, title); err != nil {
		return err
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderSummary prints headline figures.
func RenderSummary(w io.Writer, title string, s Summary) error {
	if s.Empty {
		return writeSection(w, title, []string{NoDataMessage})
	}
	return writeSection(w, title, []string{
		fmt.Sprintf("Plays: %d", s.Plays),
		fmt.Sprintf("Avg Score: %.1f", s.MeanScore),
		fmt.Sprintf("Avg Accuracy: %.1f%%", s.MeanAccuracy*100),
		fmt.Sprintf("Avg Typing Count: %.1f", s.MeanTypingCount),
		fmt.Sprintf("Total Misses: %d", s.TotalMisses),
	})
}

// RenderGrowthRanking prints the top growth rows.
func RenderGrowthRanking(w io.Writer, rows []GrowthRow, limit int) error {
	if len(rows) == 0 {
		return writeSection(w, "Growth Ranking", []string{NoDataMessage})
	}
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	tableRows := make([][]string, 0, len(rows))
	for i, r := range rows {
		tableRows = append(tableRows, []string{
			fmt.Sprintf("%d", i+1),
			r.Username.Display(),
			fmt.Sprintf("%.1f%%", r.TotalGrowth),
			fmt.Sprintf("%d", r.Modes),
		})
	}
	lines := formatTable([]string{"#", "User", "Growth", "Modes"}, tableRows, map[int]bool{0: true, 2: true, 3: true})
	return writeSection(w, "Growth Ranking", lines)
}

// RenderAverageRanking prints the top average score rows.
func RenderAverageRanking(w io.Writer, rows []AverageRow, limit int) error {
	if len(rows) == 0 {
		return writeSection(w, "Average Score Ranking", []string{NoDataMessage})
	}
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	tableRows := make([][]string, 0, len(rows))
	for i, r := range rows {
		tableRows = append(tableRows, []string{
			fmt.Sprintf("%d", i+1),
			r.Username.Display(),
			fmt.Sprintf("%.1f", r.MeanScore),
			fmt.Sprintf("%d", r.Attempts),
		})
	}
	lines := formatTable([]string{"#", "User", "Avg Score", "Plays"}, tableRows, map[int]bool{0: true, 2: true, 3: true})
	return writeSection(w, "Average Score Ranking", lines)
}

// MissCharLabel makes whitespace characters visible.
func MissCharLabel(ch string) string {
	switch ch {
	case " ":
		return "<space>"
	case "\t":
		return "<tab>"
	case "":
		return "<empty>"
	default:
		return ch
	}
}

// RenderMisses prints the most missed characters and the top-10 share.
func RenderMisses(w io.Writer, title string, freq []MissCount, limit int) error {
	if len(freq) == 0 {
		return writeSection(w, title, []string{NoDataMessage})
	}
	summary := SummarizeMisses(freq)
	tableRows := make([][]string, 0, limit)
	for _, mc := range TopMisses(freq, limit) {
		share := 0.0
		if summary.Total > 0 {
			share = float64(mc.Count) / float64(summary.Total) * 100
		}
		tableRows = append(tableRows, []string{
			MissCharLabel(mc.Char),
			fmt.Sprintf("%d", mc.Count),
			fmt.Sprintf("%.1f%%", share),
		})
	}
	lines := formatTable([]string{"Char", "Misses", "Share"}, tableRows, map[int]bool{1: true, 2: true})
	lines = append(lines, fmt.Sprintf("Top %d share: %.1f%% of %d misses", TopShareSize, summary.TopShare, summary.Total))
	return writeSection(w, title, lines)
}

// RenderCrossTab prints mean score and accuracy per difficulty and language.
func RenderCrossTab(w io.Writer, table CrossTable) error {
	if len(table.Rows) == 0 || len(table.Rows[0]) == 0 {
		return writeSection(w, "Difficulty x Language", []string{NoDataMessage})
	}
	headers := []string{"Difficulty"}
	for _, c := range table.Rows[0] {
		headers = append(headers, c.Language.Label()+" score", c.Language.Label()+" acc")
	}
	rightAlign := map[int]bool{}
	for i := 1; i < len(headers); i++ {
		rightAlign[i] = true
	}
	tableRows := make([][]string, 0, len(table.Rows))
	for _, row := range table.Rows {
		cells := []string{row[0].Difficulty.Label()}
		for _, c := range row {
			cells = append(cells, c.ScoreLabel(), c.AccuracyLabel())
		}
		tableRows = append(tableRows, cells)
	}
	return writeSection(w, "Difficulty x Language", formatTable(headers, tableRows, rightAlign))
}

// RenderHourHistogram prints best-attempt counts per display hour.
func RenderHourHistogram(w io.Writer, hist []HourBucket) error {
	best, ok := BestHour(hist)
	if !ok {
		return writeSection(w, "Best Attempts by Hour", []string{NoDataMessage})
	}
	values := make([]float64, len(hist))
	tableRows := make([][]string, 0, len(hist))
	for i, b := range hist {
		values[i] = float64(b.Count)
		tableRows = append(tableRows, []string{fmt.Sprintf("%02d:00", b.Hour), fmt.Sprintf("%d", b.Count)})
	}
	lines := formatTable([]string{"Hour", "Best"}, tableRows, map[int]bool{1: true})
	lines = append(lines,
		"Trend: "+Sparkline(values),
		fmt.Sprintf("Best time to play: %02d:00 (%d)", best.Hour, best.Count),
	)
	return writeSection(w, "Best Attempts by Hour", lines)
}

// RenderWeekdayGrid prints the weekday x hour count grid.
func RenderWeekdayGrid(w io.Writer, grid WeekdayHourGrid) error {
	best, ok := BestWeekdayHour(grid)
	if !ok {
		return writeSection(w, "Best Attempts by Weekday", []string{NoDataMessage})
	}
	headers := []string{""}
	rightAlign := map[int]bool{}
	for h := HourStart; h < HourEnd; h++ {
		headers = append(headers, fmt.Sprintf("%d", h))
		rightAlign[len(headers)-1] = true
	}
	tableRows := make([][]string, 0, Weekdays)
	for wd, row := range grid {
		cells := []string{WeekdayLabels[wd]}
		for _, v := range row {
			cells = append(cells, fmt.Sprintf("%d", v))
		}
		tableRows = append(tableRows, cells)
	}
	lines := formatTable(headers, tableRows, rightAlign)
	lines = append(lines, fmt.Sprintf("Busiest slot: %s %02d:00 (%d)", WeekdayLabels[best.Weekday], best.Hour, best.Count))
	return writeSection(w, "Best Attempts by Weekday", lines)
}

// RenderModeCurves prints smoothed score curves for every mode with data.
func RenderModeCurves(w io.Writer, modes []ModeGrowth, window int) error {
	return RenderModeCurvesWithSize(w, modes, window, 0, 8, false)
}

// RenderModeCurvesWithSize prints mode curves sized to a given total width.
func RenderModeCurvesWithSize(w io.Writer, modes []ModeGrowth, window, totalWidth, height int, useColor bool) error {
	width := 0
	if totalWidth > 0 {
		width = PlotWidthFor(totalWidth)
	}
	plotted := 0
	for _, mg := range modes {
		if !mg.HasData {
			continue
		}
		plotted++
		title := fmt.Sprintf("%s  first %.1f  best %.1f  growth %.1f%%  plays %d",
			mg.Mode.Label(), mg.First, mg.Max, mg.Growth, mg.Plays)
		if err := PlotSeriesWithColor(w, title, []Series{
			{Name: "Score", Values: mg.Scores},
			{Name: "Trend", Values: MovingAverage(mg.Scores, window)},
		}, width, height, useColor); err != nil {
			return err
		}
	}
	if plotted == 0 {
		return writeSection(w, "Score Trends", []string{NoDataMessage})
	}
	return nil
}
