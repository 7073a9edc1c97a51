package chart

import (
	"fmt"

	"github.com/verte-zerg/typedash/internal/model"
)

// DisplayName is the single rule mapping a joined username to display text.
func DisplayName(u model.Username) string {
	return u.Display()
}

// RankEntry is one line of a ranking snippet.
type RankEntry struct {
	Rank   int
	Name   string
	Value  string
	Detail string
	// Class is rank-1..rank-3 for the podium and rank-other below it.
	Class string
}

// Ranking turns sorted rows into at most limit entries.
func Ranking[T any](rows []T, limit int, name func(T) model.Username, value func(T) string, detail func(T) string) []RankEntry {
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	out := make([]RankEntry, 0, len(rows))
	for i, row := range rows {
		entry := RankEntry{
			Rank:  i + 1,
			Name:  DisplayName(name(row)),
			Value: value(row),
			Class: rankClass(i + 1),
		}
		if detail != nil {
			entry.Detail = detail(row)
		}
		out = append(out, entry)
	}
	return out
}

func rankClass(rank int) string {
	if rank <= 3 {
		return fmt.Sprintf("rank-%d", rank)
	}
	return "rank-other"
}
