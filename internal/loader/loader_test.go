package loader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/verte-zerg/typedash/internal/model"
	"github.com/verte-zerg/typedash/internal/store"
)

const scoresCSV = `user_id,difficulty_id,language_id,score,accuracy,typing_count,created_at
1,1,1,100,0.9,200,2024-04-01T00:00:00Z
1,1,1,150,0.95,210,2024-04-02 00:00:00

2,3,2,80.5,0.8,120,2024-04-03T12:30:00Z
`

const missesCSV = `user_id,miss_char,miss_count,created_at
1,a,5,2024-04-01T00:00:00Z
1, ,2,2024-04-01T00:00:00Z
3,b,3,2024-04-02T00:00:00Z
`

const usersCSV = `user_id,username,created_at,is_newgraduate
1,alice,2024-01-01,true
2,bob,2024-01-01,false
`

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestParseAttemptsAliasesAndBlankLines(t *testing.T) {
	attempts, err := ParseAttempts(strings.NewReader(scoresCSV))
	if err != nil {
		t.Fatalf("parse attempts: %v", err)
	}
	if len(attempts) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(attempts))
	}
	if attempts[2].Difficulty != model.DifficultyHard || attempts[2].Language != model.LanguageEnglish {
		t.Fatalf("unexpected mode: %+v", attempts[2])
	}
	want := time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)
	if !attempts[1].CreatedAt.Equal(want) {
		t.Fatalf("expected %v, got %v", want, attempts[1].CreatedAt)
	}
}

func TestParseMissesKeepsSpaceCharacter(t *testing.T) {
	misses, err := ParseMisses(strings.NewReader(missesCSV))
	if err != nil {
		t.Fatalf("parse misses: %v", err)
	}
	if len(misses) != 3 {
		t.Fatalf("expected 3 misses, got %d", len(misses))
	}
	if misses[1].Char != " " {
		t.Fatalf("expected space character, got %q", misses[1].Char)
	}
}

func TestParseMissingColumns(t *testing.T) {
	_, err := ParseAttempts(strings.NewReader("user_id,score,created_at\n1,10,2024-04-01\n"))
	var mce *MissingColumnsError
	if !errors.As(err, &mce) {
		t.Fatalf("expected MissingColumnsError, got %v", err)
	}
	want := []string{"diff_id", "lang_id", "accuracy", "typing_count"}
	if !reflect.DeepEqual(mce.Missing, want) {
		t.Fatalf("expected %v, got %v", want, mce.Missing)
	}
	if mce.Table != TableScores {
		t.Fatalf("unexpected table %q", mce.Table)
	}
}

func TestParseEmptyInputReportsAllColumns(t *testing.T) {
	err := Validate(TableUsers, strings.NewReader(""))
	missing, ok := MissingColumns(err)
	if !ok {
		t.Fatalf("expected missing columns, got %v", err)
	}
	if !reflect.DeepEqual(missing, RequiredColumns(TableUsers)) {
		t.Fatalf("unexpected missing list %v", missing)
	}
}

func TestParseMalformedCell(t *testing.T) {
	_, err := ParseMisses(strings.NewReader("user_id,miss_char,miss_count,created_at\n1,a,many,2024-04-01\n"))
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if pe.Row != 2 || pe.Column != "miss_count" {
		t.Fatalf("unexpected parse error location: %+v", pe)
	}
}

func TestParseUsersWithoutGraduateColumn(t *testing.T) {
	users, err := ParseUsers(strings.NewReader("user_id,username,created_at\n5,eve,2024-02-01T09:00:00Z\n"))
	if err != nil {
		t.Fatalf("parse users: %v", err)
	}
	if len(users) != 1 || users[0].IsNewGraduate || users[0].Username != "eve" {
		t.Fatalf("unexpected users: %+v", users)
	}
}

func TestDirSourceCSV(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "t_score.csv", scoresCSV)
	writeFile(t, dir, "t_miss.csv", missesCSV)
	writeFile(t, dir, "m_user.csv", usersCSV)

	raw, err := DirSource{Dir: dir}.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(raw.Attempts) != 3 || len(raw.Misses) != 3 || len(raw.Users) != 2 {
		t.Fatalf("unexpected sizes: %d %d %d", len(raw.Attempts), len(raw.Misses), len(raw.Users))
	}
}

func TestDirSourceMissingTable(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "t_score.csv", scoresCSV)
	if _, err := (DirSource{Dir: dir}).Load(context.Background()); err == nil {
		t.Fatalf("expected error for missing tables")
	}
}

func TestDirSourceXLSX(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "t_score.csv", scoresCSV)
	writeFile(t, dir, "t_miss.csv", missesCSV)

	wb := excelize.NewFile()
	sheet := wb.GetSheetName(0)
	rows := [][]interface{}{
		{"user_id", "username", "created_at", "is_newgraduate"},
		{1, "alice", "2024-01-01", "TRUE"},
		{2, "bob", "2024-01-01", "FALSE"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := wb.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	if err := wb.SaveAs(filepath.Join(dir, "m_user.xlsx")); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
	_ = wb.Close()

	raw, err := DirSource{Dir: dir}.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(raw.Users) != 2 || raw.Users[0].Username != "alice" || !raw.Users[0].IsNewGraduate {
		t.Fatalf("unexpected users from workbook: %+v", raw.Users)
	}
}

func TestBuildLeftJoinKeepsUnknownUsers(t *testing.T) {
	raw := mustRaw(t)
	tables := Build(raw, Cohort{})
	if len(tables.Attempts) != 3 {
		t.Fatalf("expected all attempts, got %d", len(tables.Attempts))
	}
	if got := tables.Attempts[0].Username; !got.Valid || got.Name != "alice" {
		t.Fatalf("unexpected username %+v", got)
	}
	var unknown int
	for _, m := range tables.Misses {
		if !m.Username.Valid {
			unknown++
		}
	}
	if unknown != 1 {
		t.Fatalf("expected 1 unmatched miss, got %d", unknown)
	}
}

func TestBuildCohortFilters(t *testing.T) {
	raw := mustRaw(t)
	floor := 100.0
	tables := Build(raw, Cohort{NewGraduatesOnly: true, ScoreFloor: &floor})
	if len(tables.Users) != 1 || tables.Users[0].Username != "alice" {
		t.Fatalf("unexpected users: %+v", tables.Users)
	}
	if len(tables.Attempts) != 1 || tables.Attempts[0].Score != 150 {
		t.Fatalf("expected only alice's 150 attempt, got %+v", tables.Attempts)
	}
	for _, m := range tables.Misses {
		if m.UserID != 1 {
			t.Fatalf("unexpected miss from user %d", m.UserID)
		}
	}
}

func TestStoreSource(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "typedash.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	raw := mustRaw(t)
	ctx := context.Background()
	if err := st.ReplaceTables(ctx, raw); err != nil {
		t.Fatalf("replace tables: %v", err)
	}
	tables, err := Load(ctx, StoreSource{Store: st}, Cohort{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(tables.Attempts) != len(raw.Attempts) || len(tables.Misses) != len(raw.Misses) {
		t.Fatalf("unexpected snapshot sizes: %d %d", len(tables.Attempts), len(tables.Misses))
	}
}

func mustRaw(t *testing.T) model.RawTables {
	t.Helper()
	attempts, err := ParseAttempts(strings.NewReader(scoresCSV))
	if err != nil {
		t.Fatalf("parse attempts: %v", err)
	}
	misses, err := ParseMisses(strings.NewReader(missesCSV))
	if err != nil {
		t.Fatalf("parse misses: %v", err)
	}
	users, err := ParseUsers(strings.NewReader(usersCSV))
	if err != nil {
		t.Fatalf("parse users: %v", err)
	}
	return model.RawTables{Attempts: attempts, Misses: misses, Users: users}
}
