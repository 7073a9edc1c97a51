package stats

import (
	"context"
	"io"

	"github.com/verte-zerg/typedash/internal/loader"
	"github.com/verte-zerg/typedash/internal/model"
)

// Report contains precomputed data for the overall and analytics views.
type Report struct {
	Tables      model.Tables
	Summary     Summary
	Growth      []GrowthRow
	Averages    []AverageRow
	Misses      []MissCount
	MissSummary MissSummary

	// Best holds the top attempt per user and mode used by the time views.
	Best         []model.JoinedAttempt
	Hours        []HourBucket
	Weekdays     WeekdayHourGrid
	CrossTab     CrossTable
	SlotAverages [Weekdays][HourSlots]Cell
}

// NewReport runs every aggregation over a snapshot.
func NewReport(tables model.Tables, clock Clock) Report {
	best := BestAttempts(tables.Attempts)
	misses := MissFrequency(tables.Misses)
	return Report{
		Tables:       tables,
		Summary:      Summarize(tables.Attempts, tables.Misses),
		Growth:       GrowthRanking(tables.Attempts),
		Averages:     AverageScoreRanking(tables.Attempts),
		Misses:       misses,
		MissSummary:  SummarizeMisses(misses),
		Best:         best,
		Hours:        HourHistogram(best, clock),
		Weekdays:     CountWeekdayHours(best, clock),
		CrossTab:     CrossTab(tables.Attempts),
		SlotAverages: WeekdayHourAverages(tables.Attempts, clock),
	}
}

// BuildReport loads and prepares data for stats rendering.
func BuildReport(ctx context.Context, src loader.Source, cohort loader.Cohort, clock Clock) (Report, error) {
	tables, err := loader.Load(ctx, src, cohort)
	if err != nil {
		return Report{}, err
	}
	return NewReport(tables, clock), nil
}

// PersonalReport holds one user's figures.
type PersonalReport struct {
	UserID      int64
	Username    model.Username
	Summary     Summary
	Modes       []ModeGrowth
	TotalGrowth float64
	Misses      []MissCount
	MissSummary MissSummary
	CrossTab    CrossTable
	WeakModes   []model.Mode
}

// NewPersonalReport narrows a snapshot to one user.
func NewPersonalReport(tables model.Tables, userID int64) PersonalReport {
	attempts := UserAttempts(tables.Attempts, userID)
	misses := UserMisses(tables.Misses, userID)
	p := PersonalReport{
		UserID:   userID,
		Summary:  Summarize(attempts, misses),
		Modes:    ModeGrowths(attempts),
		Misses:   MissFrequency(misses),
		CrossTab: CrossTab(attempts),
	}
	for _, u := range tables.Users {
		if u.UserID == userID {
			p.Username = model.KnownUsername(u.Username)
			break
		}
	}
	if !p.Username.Valid && len(attempts) > 0 {
		p.Username = attempts[0].Username
	}
	for _, mg := range p.Modes {
		if mg.HasData {
			p.TotalGrowth += mg.Growth
		}
	}
	p.MissSummary = SummarizeMisses(p.Misses)
	p.WeakModes = WeakModes(p.CrossTab, 2)
	return p
}

// RenderOverall prints the overall view.
func RenderOverall(w io.Writer, r Report, limit int) error {
	if err := RenderSummary(w, "Summary", r.Summary); err != nil {
		return err
	}
	if err := RenderGrowthRanking(w, r.Growth, limit); err != nil {
		return err
	}
	if err := RenderAverageRanking(w, r.Averages, limit); err != nil {
		return err
	}
	return RenderMisses(w, "Most Missed Characters", r.Misses, TopShareSize)
}

// RenderAnalytics prints the analytics view.
func RenderAnalytics(w io.Writer, r Report) error {
	if err := RenderHourHistogram(w, r.Hours); err != nil {
		return err
	}
	if err := RenderWeekdayGrid(w, r.Weekdays); err != nil {
		return err
	}
	return RenderCrossTab(w, r.CrossTab)
}

// RenderPersonal prints one user's view.
func RenderPersonal(w io.Writer, p PersonalReport, window int) error {
	if err := RenderSummary(w, "Summary: "+p.Username.Display(), p.Summary); err != nil {
		return err
	}
	if err := RenderModeCurves(w, p.Modes, window); err != nil {
		return err
	}
	if err := RenderMisses(w, "Most Missed Characters", p.Misses, TopShareSize); err != nil {
		return err
	}
	return RenderCrossTab(w, p.CrossTab)
}
