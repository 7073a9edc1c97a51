package stats

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/verte-zerg/typedash/internal/loader"
	"github.com/verte-zerg/typedash/internal/model"
)

func writeTables(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"t_score.csv": "user_id,diff_id,lang_id,score,accuracy,typing_count,created_at\n" +
			"1,1,1,100,0.9,200,2024-04-01T00:00:00Z\n" +
			"1,1,1,150,0.95,210,2024-04-02T00:00:00Z\n" +
			"2,3,2,80,0.7,120,2024-04-02T03:00:00Z\n" +
			"3,2,1,60,0.8,90,2024-04-03T04:00:00Z\n",
		"t_miss.csv": "user_id,miss_char,miss_count,created_at\n" +
			"1,a,5,2024-04-01T00:00:00Z\n" +
			"2,b,3,2024-04-02T00:00:00Z\n" +
			"1,a,2,2024-04-02T00:00:00Z\n",
		"m_user.csv": "user_id,username,created_at,is_newgraduate\n" +
			"1,alice,2024-01-01,true\n" +
			"2,bob,2024-01-01,false\n",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func TestBuildReport(t *testing.T) {
	dir := writeTables(t)
	report, err := BuildReport(context.Background(), loader.DirSource{Dir: dir}, loader.Cohort{}, DefaultClock)
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if report.Summary.Plays != 4 || report.Summary.TotalMisses != 10 {
		t.Fatalf("unexpected summary: %+v", report.Summary)
	}
	if len(report.Growth) != 3 || report.Growth[0].Username.Name != "alice" || report.Growth[0].TotalGrowth != 50 {
		t.Fatalf("unexpected growth ranking: %+v", report.Growth)
	}
	if report.Misses[0] != (MissCount{Char: "a", Count: 7}) {
		t.Fatalf("unexpected misses: %+v", report.Misses)
	}
	if len(report.Best) != 3 {
		t.Fatalf("expected 3 best attempts, got %d", len(report.Best))
	}
	var unknown bool
	for _, row := range report.Averages {
		if !row.Username.Valid {
			unknown = true
		}
	}
	if !unknown {
		t.Fatalf("expected user 3 to stay in the ranking with an unknown name")
	}
}

func TestBuildReportCohort(t *testing.T) {
	dir := writeTables(t)
	report, err := BuildReport(context.Background(), loader.DirSource{Dir: dir}, loader.Cohort{NewGraduatesOnly: true}, DefaultClock)
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if len(report.Growth) != 1 || report.Summary.Plays != 2 {
		t.Fatalf("expected only alice, got %+v", report.Growth)
	}
}

func TestBuildReportLoadError(t *testing.T) {
	if _, err := BuildReport(context.Background(), loader.DirSource{Dir: t.TempDir()}, loader.Cohort{}, DefaultClock); err == nil {
		t.Fatalf("expected error for empty data directory")
	}
}

func TestRenderReports(t *testing.T) {
	dir := writeTables(t)
	report, err := BuildReport(context.Background(), loader.DirSource{Dir: dir}, loader.Cohort{}, DefaultClock)
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	var buf bytes.Buffer
	if err := RenderOverall(&buf, report, 5); err != nil {
		t.Fatalf("render overall: %v", err)
	}
	if err := RenderAnalytics(&buf, report); err != nil {
		t.Fatalf("render analytics: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Growth Ranking", "alice", model.UnknownUsername, "Top 10 share: 100.0%", "Best time to play: 09:00", "Busiest slot: Tue 09:00", "hard"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}

	buf.Reset()
	personal := NewPersonalReport(report.Tables, 1)
	if personal.Username.Name != "alice" || personal.TotalGrowth != 50 || personal.Summary.Plays != 2 {
		t.Fatalf("unexpected personal report: %+v", personal)
	}
	if err := RenderPersonal(&buf, personal, 3); err != nil {
		t.Fatalf("render personal: %v", err)
	}
	if !strings.Contains(buf.String(), "ja - easy") {
		t.Fatalf("expected mode curve title in output:\n%s", buf.String())
	}
}

func TestRenderEmptySections(t *testing.T) {
	report := NewReport(model.Tables{}, DefaultClock)
	var buf bytes.Buffer
	if err := RenderOverall(&buf, report, 5); err != nil {
		t.Fatalf("render overall: %v", err)
	}
	if err := RenderAnalytics(&buf, report); err != nil {
		t.Fatalf("render analytics: %v", err)
	}
	if got := strings.Count(buf.String(), NoDataMessage); got < 6 {
		t.Fatalf("expected placeholders for every section, got %d:\n%s", got, buf.String())
	}
}
