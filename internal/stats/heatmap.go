package stats

import (
	"time"

	"github.com/verte-zerg/typedash/internal/model"
)

// Heatmap axes.
const (
	HourStart = 8
	HourEnd   = 21
	HourSlots = HourEnd - HourStart
	Weekdays  = 5
)

// WeekdayLabels are the Monday-first labels of the weekday axis.
var WeekdayLabels = [Weekdays]string{"Mon", "Tue", "Wed", "Thu", "Fri"}

// Clock converts stored UTC timestamps into display buckets.
type Clock struct {
	// HourOffset is added to the UTC hour modulo 24.
	HourOffset int
	// WeekdayShift aligns the Sunday-first weekday to a Monday-first index.
	WeekdayShift int
}

// DefaultClock displays UTC+9 with Monday as the first weekday.
var DefaultClock = Clock{HourOffset: 9, WeekdayShift: 1}

// ShiftHour applies an hour offset modulo 24.
func ShiftHour(hour, offset int) int {
	return ((hour+offset)%24 + 24) % 24
}

// Hour returns the display hour of t.
func (c Clock) Hour(t time.Time) int {
	return ShiftHour(t.UTC().Hour(), c.HourOffset)
}

// Weekday returns the Monday-first weekday index (0..6) of t's UTC date.
// Only the hour is offset.
func (c Clock) Weekday(t time.Time) int {
	return ((int(t.UTC().Weekday())-c.WeekdayShift)%7 + 7) % 7
}

// InHourWindow reports whether hour is on the heatmap axis.
func InHourWindow(hour int) bool {
	return hour >= HourStart && hour < HourEnd
}

// BestAttempts keeps the highest scoring attempt per (user, difficulty,
// language). Ties keep the earliest row in input order. Output follows the
// first appearance of each triple.
func BestAttempts(attempts []model.JoinedAttempt) []model.JoinedAttempt {
	type key struct {
		user int64
		diff model.Difficulty
		lang model.Language
	}
	index := make(map[key]int)
	var out []model.JoinedAttempt
	for _, a := range attempts {
		k := key{user: a.UserID, diff: a.Difficulty, lang: a.Language}
		i, ok := index[k]
		if !ok {
			index[k] = len(out)
			out = append(out, a)
			continue
		}
		if a.Score > out[i].Score {
			out[i] = a
		}
	}
	return out
}

// HourBucket is one column of the hour histogram.
type HourBucket struct {
	Hour  int
	Count int
}

// HourHistogram counts attempts per display hour on the [8,21) axis.
func HourHistogram(attempts []model.JoinedAttempt, clock Clock) []HourBucket {
	out := make([]HourBucket, HourSlots)
	for i := range out {
		out[i].Hour = HourStart + i
	}
	for _, a := range attempts {
		h := clock.Hour(a.CreatedAt)
		if !InHourWindow(h) {
			continue
		}
		out[h-HourStart].Count++
	}
	return out
}

// WeekdayHourGrid is a Mon-Fri x [8,21) count grid.
type WeekdayHourGrid [Weekdays][HourSlots]int

// CountWeekdayHours buckets attempts into the weekday x hour grid. Weekends
// and hours outside the axis are dropped.
func CountWeekdayHours(attempts []model.JoinedAttempt, clock Clock) WeekdayHourGrid {
	var grid WeekdayHourGrid
	for _, a := range attempts {
		wd := clock.Weekday(a.CreatedAt)
		h := clock.Hour(a.CreatedAt)
		if wd >= Weekdays || !InHourWindow(h) {
			continue
		}
		grid[wd][h-HourStart]++
	}
	return grid
}

// Total sums every cell.
func (g WeekdayHourGrid) Total() int {
	var total int
	for _, row := range g {
		for _, v := range row {
			total += v
		}
	}
	return total
}

// BestHour returns the bucket with the highest count, lowest hour first on
// ties. ok is false when every bucket is empty.
func BestHour(hist []HourBucket) (HourBucket, bool) {
	var best HourBucket
	ok := false
	for _, b := range hist {
		if b.Count > best.Count {
			best = b
			ok = true
		}
	}
	return best, ok
}

// WeekdayHour names one grid cell.
type WeekdayHour struct {
	Weekday int
	Hour    int
	Count   int
}

// BestWeekdayHour returns the busiest cell scanning weekday then hour
// ascending. ok is false when the grid is empty.
func BestWeekdayHour(grid WeekdayHourGrid) (WeekdayHour, bool) {
	var best WeekdayHour
	ok := false
	for wd, row := range grid {
		for i, v := range row {
			if v > best.Count {
				best = WeekdayHour{Weekday: wd, Hour: HourStart + i, Count: v}
				ok = true
			}
		}
	}
	return best, ok
}

// Cell is a mean score and accuracy over a group of attempts.
type Cell struct {
	MeanScore    float64
	MeanAccuracy float64
	Count        int
	HasData      bool

	sumScore    float64
	sumAccuracy float64
}

func (c *Cell) add(a model.Attempt) {
	c.Count++
	c.sumScore += a.Score
	c.sumAccuracy += a.Accuracy
	c.MeanScore = c.sumScore / float64(c.Count)
	c.MeanAccuracy = c.sumAccuracy / float64(c.Count)
	c.HasData = true
}

// WeekdayHourAverages computes mean score and accuracy per weekday x hour cell
// over all attempts.
func WeekdayHourAverages(attempts []model.JoinedAttempt, clock Clock) [Weekdays][HourSlots]Cell {
	var grid [Weekdays][HourSlots]Cell
	for _, a := range attempts {
		wd := clock.Weekday(a.CreatedAt)
		h := clock.Hour(a.CreatedAt)
		if wd >= Weekdays || !InHourWindow(h) {
			continue
		}
		grid[wd][h-HourStart].add(a.Attempt)
	}
	return grid
}
