package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/verte-zerg/typedash/internal/model"
)

// Source loads the three raw tables.
type Source interface {
	Load(ctx context.Context) (model.RawTables, error)
}

// TableReader is the storage surface a StoreSource reads from.
type TableReader interface {
	ListAttempts(ctx context.Context) ([]model.Attempt, error)
	ListMisses(ctx context.Context) ([]model.MissEvent, error)
	ListUsers(ctx context.Context) ([]model.User, error)
}

// StoreSource loads tables from a SQL store.
type StoreSource struct {
	Store TableReader
}

// Load implements Source.
func (s StoreSource) Load(ctx context.Context) (model.RawTables, error) {
	attempts, err := s.Store.ListAttempts(ctx)
	if err != nil {
		return model.RawTables{}, err
	}
	misses, err := s.Store.ListMisses(ctx)
	if err != nil {
		return model.RawTables{}, err
	}
	users, err := s.Store.ListUsers(ctx)
	if err != nil {
		return model.RawTables{}, err
	}
	return model.RawTables{Attempts: attempts, Misses: misses, Users: users}, nil
}

// DirSource loads tables from <dir>/<table>.csv or <dir>/<table>.xlsx.
type DirSource struct {
	Dir string
}

// Load implements Source.
func (s DirSource) Load(ctx context.Context) (model.RawTables, error) {
	var raw model.RawTables
	for _, table := range Tables {
		if err := ctx.Err(); err != nil {
			return model.RawTables{}, err
		}
		records, err := ReadTableFile(s.Dir, table)
		if err != nil {
			return model.RawTables{}, err
		}
		if err := ParseRecords(table, records, &raw); err != nil {
			return model.RawTables{}, err
		}
	}
	return raw, nil
}

// ReadTableFile finds the file for table in dir and returns its records,
// header first. CSV wins when both formats are present.
func ReadTableFile(dir, table string) ([][]string, error) {
	csvPath := filepath.Join(dir, table+".csv")
	f, err := os.Open(csvPath)
	if err == nil {
		defer func() {
			if cerr := f.Close(); cerr != nil {
				// Best-effort close for read-only file.
				_ = cerr
			}
		}()
		return readCSV(f)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to open %s: %w", csvPath, err)
	}

	xlsxPath := filepath.Join(dir, table+".xlsx")
	if _, err := os.Stat(xlsxPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("table %s not found in %s", table, dir)
		}
		return nil, fmt.Errorf("failed to stat %s: %w", xlsxPath, err)
	}
	return ReadXLSX(xlsxPath)
}

// ReadXLSX returns the rows of the first sheet of a workbook.
func ReadXLSX(path string) ([][]string, error) {
	wb, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() {
		if cerr := wb.Close(); cerr != nil {
			// Best-effort close for read-only workbook.
			_ = cerr
		}
	}()
	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook %s has no sheets", path)
	}
	rows, err := wb.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	return rows, nil
}

// ParseRecords parses records (header first) of the named table into raw.
func ParseRecords(table string, records [][]string, raw *model.RawTables) error {
	var err error
	switch table {
	case TableScores:
		raw.Attempts, err = attemptsFromRecords(records)
	case TableMisses:
		raw.Misses, err = missesFromRecords(records)
	case TableUsers:
		raw.Users, err = usersFromRecords(records)
	default:
		err = fmt.Errorf("unknown table %q", table)
	}
	return err
}
