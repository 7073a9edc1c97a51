package web

import (
	"bytes"
	"context"
	"crypto/subtle"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/verte-zerg/typedash/internal/loader"
	"github.com/verte-zerg/typedash/internal/model"
)

const maxUploadBytes = 32 << 20

// UploadTarget stores a validated set of table files, keyed by table name.
type UploadTarget interface {
	Replace(ctx context.Context, files map[string][]byte) error
}

// DirTarget writes tables as <table>.csv into Dir. Every file is staged
// before any rename so a failed write leaves the directory unchanged.
type DirTarget struct {
	Dir string
}

func (t DirTarget) Replace(ctx context.Context, files map[string][]byte) (err error) {
	if err := os.MkdirAll(t.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	staged := make(map[string]string, len(files))
	defer func() {
		if err == nil {
			return
		}
		for _, tmp := range staged {
			_ = os.Remove(tmp)
		}
	}()
	for _, table := range loader.Tables {
		data, ok := files[table]
		if !ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		tmp, err := writeTemp(t.Dir, table, data)
		if err != nil {
			return err
		}
		staged[table] = tmp
	}
	for _, table := range loader.Tables {
		tmp, ok := staged[table]
		if !ok {
			continue
		}
		if err := os.Rename(tmp, filepath.Join(t.Dir, table+".csv")); err != nil {
			return fmt.Errorf("failed to replace %s: %w", table, err)
		}
		delete(staged, table)
	}
	return nil
}

func writeTemp(dir, table string, data []byte) (string, error) {
	f, err := os.CreateTemp(dir, "."+table+"-*.csv")
	if err != nil {
		return "", fmt.Errorf("failed to stage %s: %w", table, err)
	}
	name := f.Name()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(name)
		return "", fmt.Errorf("failed to stage %s: %w", table, err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(name)
		return "", fmt.Errorf("failed to sync %s: %w", table, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(name)
		return "", fmt.Errorf("failed to close %s: %w", table, err)
	}
	return name, nil
}

// TableReplacer is the store operation StoreTarget needs.
type TableReplacer interface {
	ReplaceTables(ctx context.Context, raw model.RawTables) error
}

// StoreTarget parses the files and swaps them into a database in one
// transaction. All three tables are required.
type StoreTarget struct {
	Store TableReplacer
}

func (t StoreTarget) Replace(ctx context.Context, files map[string][]byte) error {
	var raw model.RawTables
	for _, table := range loader.Tables {
		data, ok := files[table]
		if !ok {
			return fmt.Errorf("table %s is required", table)
		}
		var err error
		switch table {
		case loader.TableScores:
			raw.Attempts, err = loader.ParseAttempts(bytes.NewReader(data))
		case loader.TableMisses:
			raw.Misses, err = loader.ParseMisses(bytes.NewReader(data))
		case loader.TableUsers:
			raw.Users, err = loader.ParseUsers(bytes.NewReader(data))
		}
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", table, err)
		}
	}
	return t.Store.ReplaceTables(ctx, raw)
}

// FileResult is the validation outcome of one uploaded file.
type FileResult struct {
	Table    string
	Filename string
	OK       bool
	Missing  []string
	Error    string
}

// UploadPage is the upload form view model.
type UploadPage struct {
	Tab     string
	Enabled bool
	Tables  []string
	Message string
	Error   string
	Results []FileResult
}

func (s *Server) uploadPage() UploadPage {
	return UploadPage{
		Tab:     "upload",
		Enabled: s.cfg.UploadPassword != "" && s.cfg.Upload != nil,
		Tables:  loader.Tables,
	}
}

func (s *Server) uploadForm(c *gin.Context) {
	c.HTML(http.StatusOK, "upload.html", s.uploadPage())
}

func (s *Server) upload(c *gin.Context) {
	page := s.uploadPage()
	if !page.Enabled {
		c.HTML(http.StatusForbidden, "upload.html", page)
		return
	}
	if !passwordMatches(c.PostForm("password"), s.cfg.UploadPassword) {
		page.Error = "Invalid password."
		c.HTML(http.StatusUnauthorized, "upload.html", page)
		return
	}

	files := make(map[string][]byte, len(loader.Tables))
	failed := false
	for _, table := range loader.Tables {
		res, data := readUploadedTable(c, table)
		page.Results = append(page.Results, res)
		if !res.OK {
			failed = true
			continue
		}
		files[table] = data
	}
	if failed {
		page.Error = "Upload rejected; no tables were changed."
		c.HTML(http.StatusBadRequest, "upload.html", page)
		return
	}

	if err := s.cfg.Upload.Replace(c.Request.Context(), files); err != nil {
		_ = c.Error(err)
		s.cfg.Log.Error("upload failed", "error", err)
		page.Error = "Failed to store the uploaded tables."
		c.HTML(http.StatusInternalServerError, "upload.html", page)
		return
	}
	s.cfg.Log.Info("tables replaced", "tables", len(files))
	page.Message = "Upload complete."
	c.HTML(http.StatusOK, "upload.html", page)
}

func readUploadedTable(c *gin.Context, table string) (FileResult, []byte) {
	res := FileResult{Table: table}
	header, err := c.FormFile(table)
	if err != nil {
		res.Error = "file missing"
		return res, nil
	}
	res.Filename = header.Filename
	f, err := header.Open()
	if err != nil {
		res.Error = "failed to read file"
		return res, nil
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes+1))
	if err != nil {
		res.Error = "failed to read file"
		return res, nil
	}
	if len(data) > maxUploadBytes {
		res.Error = "file too large"
		return res, nil
	}
	if err := loader.Validate(table, bytes.NewReader(data)); err != nil {
		if missing, ok := loader.MissingColumns(err); ok {
			res.Missing = missing
			return res, nil
		}
		res.Error = err.Error()
		return res, nil
	}
	res.OK = true
	return res, data
}

func passwordMatches(given, want string) bool {
	return subtle.ConstantTimeCompare([]byte(given), []byte(want)) == 1
}
