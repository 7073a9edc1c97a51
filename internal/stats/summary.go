package stats

import "github.com/verte-zerg/typedash/internal/model"

// Summary holds headline figures for a set of attempts and misses.
type Summary struct {
	Plays           int
	MeanScore       float64
	MeanAccuracy    float64
	MeanTypingCount float64
	TotalMisses     int
	Empty           bool
}

// Summarize computes headline figures. Empty input yields zeros.
func Summarize(attempts []model.JoinedAttempt, misses []model.JoinedMiss) Summary {
	s := Summary{Plays: len(attempts)}
	for _, m := range misses {
		s.TotalMisses += m.Count
	}
	if len(attempts) == 0 {
		s.Empty = len(misses) == 0
		return s
	}
	var score, acc, typing float64
	for _, a := range attempts {
		score += a.Score
		acc += a.Accuracy
		typing += float64(a.TypingCount)
	}
	n := float64(len(attempts))
	s.MeanScore = score / n
	s.MeanAccuracy = acc / n
	s.MeanTypingCount = typing / n
	return s
}

// UserAttempts returns the attempts of one user in input order.
func UserAttempts(attempts []model.JoinedAttempt, userID int64) []model.JoinedAttempt {
	var out []model.JoinedAttempt
	for _, a := range attempts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out
}

// UserMisses returns the miss events of one user in input order.
func UserMisses(misses []model.JoinedMiss, userID int64) []model.JoinedMiss {
	var out []model.JoinedMiss
	for _, m := range misses {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	return out
}
