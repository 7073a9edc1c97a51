package stats

import (
	"sort"

	"github.com/verte-zerg/typedash/internal/model"
)

// WeakModes selects the lowest-accuracy modes that have data.
func WeakModes(table CrossTable, top int) []model.Mode {
	var candidates []CrossCell
	for _, row := range table.Rows {
		for _, c := range row {
			if c.HasData {
				candidates = append(candidates, c)
			}
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].MeanAccuracy < candidates[j].MeanAccuracy
	})
	if top <= 0 || top > len(candidates) {
		top = len(candidates)
	}
	out := make([]model.Mode, 0, top)
	for _, c := range candidates[:top] {
		out = append(out, model.Mode{Language: c.Language, Difficulty: c.Difficulty})
	}
	return out
}
