package chart

import (
	"fmt"
	"html/template"

	"github.com/lucasb-eyer/go-colorful"
)

var (
	heatLow   = mustHex("#f7fbff")
	heatHigh  = mustHex("#08306b")
	heatEmpty = mustHex("#eeeeee")
)

// HeatValue is one input cell. Label is printed inside the cell.
type HeatValue struct {
	Value   float64
	Label   string
	HasData bool
}

// HeatCell is one rendered cell.
type HeatCell struct {
	Label      string
	Title      string
	Background template.CSS
	Foreground template.CSS
}

// HeatRow is one rendered row.
type HeatRow struct {
	Label string
	Cells []HeatCell
}

// Heatmap is an HTML grid with interpolated cell colours.
type Heatmap struct {
	Title       string
	Columns     []string
	Rows        []HeatRow
	Placeholder string
}

// Empty reports whether the heatmap was replaced by a placeholder.
func (h Heatmap) Empty() bool {
	return h.Placeholder != ""
}

// NewHeatmap colours cells between the smallest and largest value that has
// data. Cells without data get a neutral colour. When no cell has data the
// heatmap is a NoData placeholder.
func NewHeatmap(title string, rowLabels, colLabels []string, cells [][]HeatValue) Heatmap {
	h := Heatmap{Title: title, Columns: colLabels}
	minVal, maxVal, found := valueRange(cells)
	if !found {
		h.Placeholder = NoData
		return h
	}
	for i, row := range cells {
		label := ""
		if i < len(rowLabels) {
			label = rowLabels[i]
		}
		out := HeatRow{Label: label, Cells: make([]HeatCell, 0, len(row))}
		for j, v := range row {
			col := ""
			if j < len(colLabels) {
				col = colLabels[j]
			}
			out.Cells = append(out.Cells, heatCell(v, minVal, maxVal, label, col))
		}
		h.Rows = append(h.Rows, out)
	}
	return h
}

func valueRange(cells [][]HeatValue) (float64, float64, bool) {
	var minVal, maxVal float64
	found := false
	for _, row := range cells {
		for _, v := range row {
			if !v.HasData {
				continue
			}
			if !found || v.Value < minVal {
				minVal = v.Value
			}
			if !found || v.Value > maxVal {
				maxVal = v.Value
			}
			found = true
		}
	}
	return minVal, maxVal, found
}

func heatCell(v HeatValue, minVal, maxVal float64, row, col string) HeatCell {
	cell := HeatCell{Label: v.Label, Title: fmt.Sprintf("%s %s: %s", row, col, v.Label)}
	if !v.HasData {
		cell.Background = css(heatEmpty)
		cell.Foreground = "#777777"
		return cell
	}
	t := 0.0
	if maxVal > minVal {
		t = (v.Value - minVal) / (maxVal - minVal)
	}
	bg := heatLow.BlendLab(heatHigh, t).Clamped()
	cell.Background = css(bg)
	cell.Foreground = textColorFor(bg)
	return cell
}

// textColorFor picks black or white text by perceived lightness.
func textColorFor(bg colorful.Color) template.CSS {
	l, _, _ := bg.Lab()
	if l < 0.55 {
		return "#ffffff"
	}
	return "#111111"
}

func css(c colorful.Color) template.CSS {
	return template.CSS(c.Hex())
}
