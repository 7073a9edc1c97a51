package stats

import (
	"sort"

	"github.com/verte-zerg/typedash/internal/model"
)

// GrowthRate returns the percentage change from first to best. A zero
// baseline yields exactly 0.
func GrowthRate(first, best float64) float64 {
	if first == 0 {
		return 0
	}
	return (best - first) / first * 100
}

// ModeGrowth is one user's progress within a single mode.
type ModeGrowth struct {
	Mode    model.Mode
	HasData bool
	First   float64
	Max     float64
	Plays   int
	Growth  float64
	// Scores is the chronological score series.
	Scores []float64
}

// GrowthRow is one entry of the growth ranking.
type GrowthRow struct {
	UserID      int64
	Username    model.Username
	TotalGrowth float64
	// Modes counts the modes that contributed to TotalGrowth.
	Modes int
}

// GrowthRanking sums per-mode growth rates per user and sorts descending.
// Users keep first-appearance order on ties.
func GrowthRanking(attempts []model.JoinedAttempt) []GrowthRow {
	users := groupByUser(attempts)
	rows := make([]GrowthRow, 0, len(users))
	for _, g := range users {
		row := GrowthRow{UserID: g.userID, Username: g.username}
		for _, mg := range ModeGrowths(g.attempts) {
			if !mg.HasData {
				continue
			}
			row.TotalGrowth += mg.Growth
			row.Modes++
		}
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].TotalGrowth > rows[j].TotalGrowth
	})
	return rows
}

// ModeGrowths returns the six modes in display order for one user's attempts.
func ModeGrowths(attempts []model.JoinedAttempt) []ModeGrowth {
	byMode := make(map[model.Mode][]model.JoinedAttempt)
	for _, a := range attempts {
		byMode[a.Mode()] = append(byMode[a.Mode()], a)
	}
	modes := model.Modes()
	out := make([]ModeGrowth, 0, len(modes))
	for _, mode := range modes {
		out = append(out, modeGrowth(mode, byMode[mode]))
	}
	return out
}

func modeGrowth(mode model.Mode, attempts []model.JoinedAttempt) ModeGrowth {
	mg := ModeGrowth{Mode: mode}
	if len(attempts) == 0 {
		return mg
	}
	ordered := chronological(attempts)
	mg.HasData = true
	mg.Plays = len(ordered)
	mg.First = ordered[0].Score
	mg.Max = ordered[0].Score
	mg.Scores = make([]float64, len(ordered))
	for i, a := range ordered {
		mg.Scores[i] = a.Score
		if a.Score > mg.Max {
			mg.Max = a.Score
		}
	}
	mg.Growth = GrowthRate(mg.First, mg.Max)
	return mg
}

// chronological returns a copy sorted by created_at, keeping input order on ties.
func chronological(attempts []model.JoinedAttempt) []model.JoinedAttempt {
	out := make([]model.JoinedAttempt, len(attempts))
	copy(out, attempts)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

type userGroup struct {
	userID   int64
	username model.Username
	attempts []model.JoinedAttempt
}

func groupByUser(attempts []model.JoinedAttempt) []*userGroup {
	index := make(map[int64]*userGroup)
	var order []*userGroup
	for _, a := range attempts {
		g, ok := index[a.UserID]
		if !ok {
			g = &userGroup{userID: a.UserID, username: a.Username}
			index[a.UserID] = g
			order = append(order, g)
		}
		g.attempts = append(g.attempts, a)
	}
	return order
}
