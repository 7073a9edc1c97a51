package stats

import (
	"sort"

	"github.com/verte-zerg/typedash/internal/model"
)

// TopShareSize is how many characters the top share covers.
const TopShareSize = 10

// MissCount is the summed miss count of one character.
type MissCount struct {
	Char  string
	Count int
}

// MissFrequency sums miss counts per character, most missed first. Ties are
// ordered by character.
func MissFrequency(misses []model.JoinedMiss) []MissCount {
	totals := make(map[string]int)
	for _, m := range misses {
		totals[m.Char] += m.Count
	}
	out := make([]MissCount, 0, len(totals))
	for ch, total := range totals {
		out = append(out, MissCount{Char: ch, Count: total})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Char < out[j].Char
		}
		return out[i].Count > out[j].Count
	})
	return out
}

// MissFrequencyForUser restricts MissFrequency to one user.
func MissFrequencyForUser(misses []model.JoinedMiss, userID int64) []MissCount {
	var mine []model.JoinedMiss
	for _, m := range misses {
		if m.UserID == userID {
			mine = append(mine, m)
		}
	}
	return MissFrequency(mine)
}

// TopMisses returns at most n leading entries of a frequency list.
func TopMisses(freq []MissCount, n int) []MissCount {
	if n <= 0 || len(freq) == 0 {
		return nil
	}
	if n > len(freq) {
		n = len(freq)
	}
	return freq[:n]
}

// MissSummary describes a frequency list.
type MissSummary struct {
	Total    int
	Distinct int
	Top      MissCount
	// TopShare is the percentage of all misses taken by the top characters.
	TopShare float64
}

// SummarizeMisses computes totals and the top-10 share of a sorted frequency list.
func SummarizeMisses(freq []MissCount) MissSummary {
	var s MissSummary
	s.Distinct = len(freq)
	for _, mc := range freq {
		s.Total += mc.Count
	}
	if len(freq) == 0 || s.Total == 0 {
		return s
	}
	s.Top = freq[0]
	var top int
	for _, mc := range TopMisses(freq, TopShareSize) {
		top += mc.Count
	}
	s.TopShare = float64(top) / float64(s.Total) * 100
	return s
}
