// Package loader reads the telemetry tables and builds cohort snapshots.
package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/verte-zerg/typedash/internal/model"
)

// Table names, also used as file stems in a data directory.
const (
	TableScores = "t_score"
	TableMisses = "t_miss"
	TableUsers  = "m_user"
)

// Tables lists every table name in load order.
var Tables = []string{TableScores, TableMisses, TableUsers}

type tableSpec struct {
	required []string
	optional []string
	aliases  map[string]string
}

var specs = map[string]tableSpec{
	TableScores: {
		required: []string{"user_id", "diff_id", "lang_id", "score", "accuracy", "typing_count", "created_at"},
		aliases:  map[string]string{"difficulty_id": "diff_id", "language_id": "lang_id"},
	},
	TableMisses: {
		required: []string{"user_id", "miss_char", "miss_count", "created_at"},
	},
	TableUsers: {
		required: []string{"user_id", "username", "created_at"},
		optional: []string{"is_newgraduate"},
	},
}

// RequiredColumns returns the required header of a table.
func RequiredColumns(table string) []string {
	spec, ok := specs[table]
	if !ok {
		return nil
	}
	out := make([]string, len(spec.required))
	copy(out, spec.required)
	return out
}

// MissingColumnsError reports required columns absent from a table header.
type MissingColumnsError struct {
	Table   string
	Missing []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("%s: missing required columns: %s", e.Table, strings.Join(e.Missing, ", "))
}

// ParseError reports a malformed cell.
type ParseError struct {
	Table  string
	Row    int
	Column string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s row %d column %s: %v", e.Table, e.Row, e.Column, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// columns maps canonical column names to record indexes.
type columns struct {
	table string
	index map[string]int
}

func resolveHeader(table string, header []string) (columns, error) {
	spec, ok := specs[table]
	if !ok {
		return columns{}, fmt.Errorf("unknown table %q", table)
	}
	index := make(map[string]int, len(header))
	for i, raw := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(raw, "\ufeff")))
		if canonical, ok := spec.aliases[name]; ok {
			name = canonical
		}
		if _, seen := index[name]; !seen {
			index[name] = i
		}
	}
	var missing []string
	for _, col := range spec.required {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return columns{}, &MissingColumnsError{Table: table, Missing: missing}
	}
	return columns{table: table, index: index}, nil
}

func (c columns) has(name string) bool {
	_, ok := c.index[name]
	return ok
}

func (c columns) cell(record []string, name string) string {
	i, ok := c.index[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func (c columns) int64(record []string, row int, name string) (int64, error) {
	raw := c.cell(record, name)
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		// Spreadsheet exports often write integers as "3.0".
		f, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil || f != float64(int64(f)) {
			return 0, &ParseError{Table: c.table, Row: row, Column: name, Err: err}
		}
		v = int64(f)
	}
	return v, nil
}

func (c columns) float(record []string, row int, name string) (float64, error) {
	v, err := strconv.ParseFloat(c.cell(record, name), 64)
	if err != nil {
		return 0, &ParseError{Table: c.table, Row: row, Column: name, Err: err}
	}
	return v, nil
}

func (c columns) bool(record []string, row int, name string) (bool, error) {
	raw := strings.ToLower(c.cell(record, name))
	switch raw {
	case "":
		return false, nil
	case "yes", "y":
		return true, nil
	case "no", "n":
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, &ParseError{Table: c.table, Row: row, Column: name, Err: err}
	}
	return v, nil
}

func (c columns) timestamp(record []string, row int, name string) (time.Time, error) {
	t, err := model.ParseTimestamp(c.cell(record, name))
	if err != nil {
		return time.Time{}, &ParseError{Table: c.table, Row: row, Column: name, Err: err}
	}
	return t, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	return records, nil
}

// splitRecords separates the header from data rows, skipping blank lines.
func splitRecords(records [][]string) ([]string, [][]string) {
	if len(records) == 0 {
		return nil, nil
	}
	rows := make([][]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		if blankRecord(rec) {
			rows = append(rows, nil)
			continue
		}
		rows = append(rows, rec)
	}
	return records[0], rows
}

func blankRecord(rec []string) bool {
	for _, cell := range rec {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// ParseAttempts parses the scores table from CSV.
func ParseAttempts(r io.Reader) ([]model.Attempt, error) {
	records, err := readCSV(r)
	if err != nil {
		return nil, err
	}
	return attemptsFromRecords(records)
}

// ParseMisses parses the miss-character table from CSV.
func ParseMisses(r io.Reader) ([]model.MissEvent, error) {
	records, err := readCSV(r)
	if err != nil {
		return nil, err
	}
	return missesFromRecords(records)
}

// ParseUsers parses the roster from CSV.
func ParseUsers(r io.Reader) ([]model.User, error) {
	records, err := readCSV(r)
	if err != nil {
		return nil, err
	}
	return usersFromRecords(records)
}

// Validate fully parses a CSV table without keeping the rows. It returns a
// *MissingColumnsError when the header lacks required columns.
func Validate(table string, r io.Reader) error {
	var err error
	switch table {
	case TableScores:
		_, err = ParseAttempts(r)
	case TableMisses:
		_, err = ParseMisses(r)
	case TableUsers:
		_, err = ParseUsers(r)
	default:
		err = fmt.Errorf("unknown table %q", table)
	}
	return err
}

// MissingColumns extracts the missing column list from err, if any.
func MissingColumns(err error) ([]string, bool) {
	var mce *MissingColumnsError
	if errors.As(err, &mce) {
		return mce.Missing, true
	}
	return nil, false
}

func attemptsFromRecords(records [][]string) ([]model.Attempt, error) {
	header, rows := splitRecords(records)
	cols, err := resolveHeader(TableScores, header)
	if err != nil {
		return nil, err
	}
	out := make([]model.Attempt, 0, len(rows))
	for i, rec := range rows {
		if rec == nil {
			continue
		}
		row := i + 2
		userID, err := cols.int64(rec, row, "user_id")
		if err != nil {
			return nil, err
		}
		diff, err := cols.int64(rec, row, "diff_id")
		if err != nil {
			return nil, err
		}
		lang, err := cols.int64(rec, row, "lang_id")
		if err != nil {
			return nil, err
		}
		score, err := cols.float(rec, row, "score")
		if err != nil {
			return nil, err
		}
		acc, err := cols.float(rec, row, "accuracy")
		if err != nil {
			return nil, err
		}
		typing, err := cols.int64(rec, row, "typing_count")
		if err != nil {
			return nil, err
		}
		created, err := cols.timestamp(rec, row, "created_at")
		if err != nil {
			return nil, err
		}
		out = append(out, model.Attempt{
			UserID:      userID,
			Difficulty:  model.Difficulty(diff),
			Language:    model.Language(lang),
			Score:       score,
			Accuracy:    acc,
			TypingCount: int(typing),
			CreatedAt:   created,
		})
	}
	return out, nil
}

func missesFromRecords(records [][]string) ([]model.MissEvent, error) {
	header, rows := splitRecords(records)
	cols, err := resolveHeader(TableMisses, header)
	if err != nil {
		return nil, err
	}
	out := make([]model.MissEvent, 0, len(rows))
	for i, rec := range rows {
		if rec == nil {
			continue
		}
		row := i + 2
		userID, err := cols.int64(rec, row, "user_id")
		if err != nil {
			return nil, err
		}
		count, err := cols.int64(rec, row, "miss_count")
		if err != nil {
			return nil, err
		}
		created, err := cols.timestamp(rec, row, "created_at")
		if err != nil {
			return nil, err
		}
		// The character itself may be a space, so the cell is not trimmed.
		var char string
		if idx := cols.index["miss_char"]; idx < len(rec) {
			char = rec[idx]
		}
		if char == "" {
			return nil, &ParseError{Table: TableMisses, Row: row, Column: "miss_char", Err: errors.New("empty character")}
		}
		out = append(out, model.MissEvent{
			UserID:    userID,
			Char:      char,
			Count:     int(count),
			CreatedAt: created,
		})
	}
	return out, nil
}

func usersFromRecords(records [][]string) ([]model.User, error) {
	header, rows := splitRecords(records)
	cols, err := resolveHeader(TableUsers, header)
	if err != nil {
		return nil, err
	}
	out := make([]model.User, 0, len(rows))
	for i, rec := range rows {
		if rec == nil {
			continue
		}
		row := i + 2
		userID, err := cols.int64(rec, row, "user_id")
		if err != nil {
			return nil, err
		}
		created, err := cols.timestamp(rec, row, "created_at")
		if err != nil {
			return nil, err
		}
		var newGrad bool
		if cols.has("is_newgraduate") {
			newGrad, err = cols.bool(rec, row, "is_newgraduate")
			if err != nil {
				return nil, err
			}
		}
		out = append(out, model.User{
			UserID:        userID,
			Username:      cols.cell(rec, "username"),
			IsNewGraduate: newGrad,
			CreatedAt:     created,
		})
	}
	return out, nil
}
