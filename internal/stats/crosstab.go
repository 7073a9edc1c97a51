package stats

import (
	"fmt"

	"github.com/verte-zerg/typedash/internal/model"
)

// NoDataLabel marks a cell without attempts. It is never a formatted number.
const NoDataLabel = "-"

// CrossCell is one (difficulty, language) cell.
type CrossCell struct {
	Difficulty model.Difficulty
	Language   model.Language
	Cell
}

// ScoreLabel formats the mean score or returns NoDataLabel.
func (c CrossCell) ScoreLabel() string {
	if !c.HasData {
		return NoDataLabel
	}
	return fmt.Sprintf("%.1f", c.MeanScore)
}

// AccuracyLabel formats the mean accuracy as a percentage or returns NoDataLabel.
func (c CrossCell) AccuracyLabel() string {
	if !c.HasData {
		return NoDataLabel
	}
	return fmt.Sprintf("%.1f%%", c.MeanAccuracy*100)
}

// CrossTable is the difficulties x languages grid.
type CrossTable struct {
	// Rows follow model.Difficulties, columns follow model.Languages.
	Rows [][]CrossCell
}

// Cell returns the cell for a difficulty and language.
func (t CrossTable) Cell(d model.Difficulty, l model.Language) (CrossCell, bool) {
	for _, row := range t.Rows {
		for _, c := range row {
			if c.Difficulty == d && c.Language == l {
				return c, true
			}
		}
	}
	return CrossCell{}, false
}

// Empty reports whether no cell has data.
func (t CrossTable) Empty() bool {
	for _, row := range t.Rows {
		for _, c := range row {
			if c.HasData {
				return false
			}
		}
	}
	return true
}

// CrossTab groups attempts by difficulty and language. Every combination is
// present; attempts with unknown codes are ignored.
func CrossTab(attempts []model.JoinedAttempt) CrossTable {
	rows := make([][]CrossCell, len(model.Difficulties))
	pos := make(map[model.Mode][2]int)
	for i, d := range model.Difficulties {
		rows[i] = make([]CrossCell, len(model.Languages))
		for j, l := range model.Languages {
			rows[i][j] = CrossCell{Difficulty: d, Language: l}
			pos[model.Mode{Language: l, Difficulty: d}] = [2]int{i, j}
		}
	}
	for _, a := range attempts {
		p, ok := pos[a.Mode()]
		if !ok {
			continue
		}
		rows[p[0]][p[1]].add(a.Attempt)
	}
	return CrossTable{Rows: rows}
}
