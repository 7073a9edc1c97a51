package stats

import "testing"

func TestFormatTableAlignsColumns(t *testing.T) {
	headers := []string{"Char", "Misses", "Share"}
	rows := [][]string{
		{"a", "12", "97.5%"},
		{"<space>", "3", "8.0%"},
	}
	rightAlign := map[int]bool{1: true, 2: true}

	lines := formatTable(headers, rows, rightAlign)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "Char    Misses Share" {
		t.Fatalf("unexpected header line: %q", lines[0])
	}
	if lines[1] != "a           12 97.5%" {
		t.Fatalf("unexpected row line: %q", lines[1])
	}
	if lines[2] != "<space>      3  8.0%" {
		t.Fatalf("unexpected row line: %q", lines[2])
	}
}

func TestFormatTableWideCharacters(t *testing.T) {
	lines := formatTable([]string{"User", "Plays"}, [][]string{
		{"たろう", "4"},
		{"bob", "12"},
	}, map[int]bool{1: true})
	if lines[1] != "たろう     4" {
		t.Fatalf("unexpected wide row: %q", lines[1])
	}
	if lines[2] != "bob       12" {
		t.Fatalf("unexpected narrow row: %q", lines[2])
	}
}
