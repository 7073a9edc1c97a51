package stats

import (
	"sort"

	"github.com/verte-zerg/typedash/internal/model"
)

// AverageRow is one entry of the average score ranking.
type AverageRow struct {
	UserID    int64
	Username  model.Username
	MeanScore float64
	Attempts  int
}

// AverageScoreRanking returns mean score and attempt count per user, sorted
// descending by mean. There is no minimum sample size.
func AverageScoreRanking(attempts []model.JoinedAttempt) []AverageRow {
	groups := groupByUser(attempts)
	rows := make([]AverageRow, 0, len(groups))
	for _, g := range groups {
		var sum float64
		for _, a := range g.attempts {
			sum += a.Score
		}
		rows = append(rows, AverageRow{
			UserID:    g.userID,
			Username:  g.username,
			MeanScore: sum / float64(len(g.attempts)),
			Attempts:  len(g.attempts),
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].MeanScore > rows[j].MeanScore
	})
	return rows
}
