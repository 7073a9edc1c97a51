// Package generator builds seeded demo cohorts.
package generator

import (
	"encoding/csv"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/verte-zerg/typedash/internal/loader"
	"github.com/verte-zerg/typedash/internal/model"
)

const missAlphabet = "abcdefghijklmnopqrstuvwxyz,.-; "

// Options shape a generated cohort.
type Options struct {
	Users int
	Days  int
	// PlaysPerDay is the mean number of attempts per user and active day.
	PlaysPerDay float64
	// GraduateShare is the fraction of users flagged as new graduates.
	GraduateShare float64
	Start         time.Time
	Seed          int64
}

// DefaultOptions returns a small cohort starting 2024-04-01 UTC.
func DefaultOptions() Options {
	return Options{
		Users:         12,
		Days:          30,
		PlaysPerDay:   2,
		GraduateShare: 0.75,
		Start:         time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		Seed:          1,
	}
}

// Generator produces deterministic demo tables for a seed.
type Generator struct {
	rnd *rand.Rand
}

// New returns a Generator for seed.
func New(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

// Generate builds the three tables. Every user improves over the period at
// their own pace and favours a handful of weak characters.
func (g *Generator) Generate(opts Options) model.RawTables {
	if opts.Users <= 0 || opts.Days <= 0 {
		return model.RawTables{}
	}
	var raw model.RawTables
	for i := 0; i < opts.Users; i++ {
		userID := int64(i + 1)
		raw.Users = append(raw.Users, model.User{
			UserID:        userID,
			Username:      fmt.Sprintf("user%02d", userID),
			IsNewGraduate: g.rnd.Float64() < opts.GraduateShare,
			CreatedAt:     opts.Start.AddDate(0, 0, -7),
		})

		base := 120 + g.rnd.Float64()*120
		pace := 0.5 + g.rnd.Float64()*2
		weak := g.weakSet(4)
		for day := 0; day < opts.Days; day++ {
			date := opts.Start.AddDate(0, 0, day)
			if !activeDay(date) || g.rnd.Float64() < 0.2 {
				continue
			}
			plays := g.poisson(opts.PlaysPerDay)
			for p := 0; p < plays; p++ {
				at := g.playTime(date)
				a := g.attempt(userID, at, base+pace*float64(day))
				raw.Attempts = append(raw.Attempts, a)
				raw.Misses = append(raw.Misses, g.misses(userID, at, a.Accuracy, weak)...)
			}
		}
	}
	return raw
}

// activeDay skips weekends in the display timezone.
func activeDay(date time.Time) bool {
	wd := date.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// playTime picks a UTC instant whose display hour falls within working hours.
func (g *Generator) playTime(date time.Time) time.Time {
	displayHour := 9 + g.rnd.Intn(12)
	utcHour := displayHour - 9
	minute := g.rnd.Intn(60)
	return date.Add(time.Duration(utcHour)*time.Hour + time.Duration(minute)*time.Minute)
}

func (g *Generator) attempt(userID int64, at time.Time, level float64) model.Attempt {
	diff := model.Difficulties[g.rnd.Intn(len(model.Difficulties))]
	lang := model.Languages[g.rnd.Intn(len(model.Languages))]
	penalty := 1 - 0.15*float64(diff-model.DifficultyEasy)
	score := math.Max(0, (level+g.rnd.NormFloat64()*15)*penalty)
	acc := math.Min(1, math.Max(0.5, 0.85+g.rnd.NormFloat64()*0.05))
	return model.Attempt{
		UserID:      userID,
		Difficulty:  diff,
		Language:    lang,
		Score:       math.Round(score*10) / 10,
		Accuracy:    math.Round(acc*1000) / 1000,
		TypingCount: 100 + g.rnd.Intn(200),
		CreatedAt:   at,
	}
}

func (g *Generator) weakSet(n int) map[rune]struct{} {
	alphabet := []rune(missAlphabet)
	out := make(map[rune]struct{}, n)
	for len(out) < n {
		out[alphabet[g.rnd.Intn(len(alphabet))]] = struct{}{}
	}
	return out
}

// misses draws miss characters weighted toward the user's weak set.
func (g *Generator) misses(userID int64, at time.Time, accuracy float64, weak map[rune]struct{}) []model.MissEvent {
	alphabet := []rune(missAlphabet)
	weights := make([]float64, len(alphabet))
	total := 0.0
	for i, r := range alphabet {
		w := 1.0
		if _, ok := weak[r]; ok {
			w = 8
		}
		weights[i] = w
		total += w
	}

	draws := int((1 - accuracy) * 40)
	counts := make(map[rune]int)
	var order []rune
	for i := 0; i < draws; i++ {
		x := g.rnd.Float64() * total
		acc := 0.0
		idx := len(alphabet) - 1
		for j, w := range weights {
			acc += w
			if x <= acc {
				idx = j
				break
			}
		}
		r := alphabet[idx]
		if counts[r] == 0 {
			order = append(order, r)
		}
		counts[r]++
	}
	out := make([]model.MissEvent, 0, len(order))
	for _, r := range order {
		out = append(out, model.MissEvent{UserID: userID, Char: string(r), Count: counts[r], CreatedAt: at})
	}
	return out
}

func (g *Generator) poisson(mean float64) int {
	if mean <= 0 {
		return 0
	}
	limit := math.Exp(-mean)
	k := 0
	p := 1.0
	for {
		p *= g.rnd.Float64()
		if p <= limit {
			return k
		}
		k++
	}
}

// WriteCSV writes raw as <table>.csv files into dir.
func WriteCSV(dir string, raw model.RawTables) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	tables := map[string][][]string{
		loader.TableScores: scoreRecords(raw.Attempts),
		loader.TableMisses: missRecords(raw.Misses),
		loader.TableUsers:  userRecords(raw.Users),
	}
	for _, table := range loader.Tables {
		if err := writeRecords(filepath.Join(dir, table+".csv"), tables[table]); err != nil {
			return err
		}
	}
	return nil
}

func writeRecords(path string, records [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(records); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}

func scoreRecords(attempts []model.Attempt) [][]string {
	out := [][]string{loader.RequiredColumns(loader.TableScores)}
	for _, a := range attempts {
		out = append(out, []string{
			strconv.FormatInt(a.UserID, 10),
			strconv.Itoa(int(a.Difficulty)),
			strconv.Itoa(int(a.Language)),
			strconv.FormatFloat(a.Score, 'f', -1, 64),
			strconv.FormatFloat(a.Accuracy, 'f', -1, 64),
			strconv.Itoa(a.TypingCount),
			model.FormatTimestamp(a.CreatedAt),
		})
	}
	return out
}

func missRecords(misses []model.MissEvent) [][]string {
	out := [][]string{loader.RequiredColumns(loader.TableMisses)}
	for _, m := range misses {
		out = append(out, []string{
			strconv.FormatInt(m.UserID, 10),
			m.Char,
			strconv.Itoa(m.Count),
			model.FormatTimestamp(m.CreatedAt),
		})
	}
	return out
}

func userRecords(users []model.User) [][]string {
	out := [][]string{{"user_id", "username", "is_newgraduate", "created_at"}}
	for _, u := range users {
		out = append(out, []string{
			strconv.FormatInt(u.UserID, 10),
			u.Username,
			strconv.FormatBool(u.IsNewGraduate),
			model.FormatTimestamp(u.CreatedAt),
		})
	}
	return out
}
