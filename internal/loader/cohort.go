package loader

import (
	"context"
	"fmt"

	"github.com/verte-zerg/typedash/internal/model"
)

// Cohort restricts which rows enter a snapshot.
type Cohort struct {
	// NewGraduatesOnly keeps only users flagged is_newgraduate.
	NewGraduatesOnly bool
	// ScoreFloor drops attempts with score <= *ScoreFloor when set.
	ScoreFloor *float64
}

// Build applies the cohort and left-joins usernames onto attempts and misses.
// Rows whose user is missing from the roster keep an invalid Username.
func Build(raw model.RawTables, cohort Cohort) model.Tables {
	roster := make(map[int64]model.User, len(raw.Users))
	users := make([]model.User, 0, len(raw.Users))
	for _, u := range raw.Users {
		if cohort.NewGraduatesOnly && !u.IsNewGraduate {
			continue
		}
		if _, dup := roster[u.UserID]; dup {
			continue
		}
		roster[u.UserID] = u
		users = append(users, u)
	}

	lookup := func(id int64) (model.Username, bool) {
		u, ok := roster[id]
		if !ok {
			// Unknown users cannot be confirmed as new graduates.
			return model.Username{}, !cohort.NewGraduatesOnly
		}
		return model.KnownUsername(u.Username), true
	}

	attempts := make([]model.JoinedAttempt, 0, len(raw.Attempts))
	for _, a := range raw.Attempts {
		if cohort.ScoreFloor != nil && a.Score <= *cohort.ScoreFloor {
			continue
		}
		name, keep := lookup(a.UserID)
		if !keep {
			continue
		}
		attempts = append(attempts, model.JoinedAttempt{Attempt: a, Username: name})
	}

	misses := make([]model.JoinedMiss, 0, len(raw.Misses))
	for _, m := range raw.Misses {
		name, keep := lookup(m.UserID)
		if !keep {
			continue
		}
		misses = append(misses, model.JoinedMiss{MissEvent: m, Username: name})
	}

	return model.Tables{Attempts: attempts, Misses: misses, Users: users}
}

// Load reads raw tables from src and builds the cohort snapshot.
func Load(ctx context.Context, src Source, cohort Cohort) (model.Tables, error) {
	raw, err := src.Load(ctx)
	if err != nil {
		return model.Tables{}, fmt.Errorf("failed to load tables: %w", err)
	}
	return Build(raw, cohort), nil
}
