// Package model defines shared data structures.
package model

import (
	"fmt"
	"time"
)

// Difficulty is the numeric difficulty code stored with each attempt.
type Difficulty int

// Difficulty codes.
const (
	DifficultyEasy   Difficulty = 1
	DifficultyNormal Difficulty = 2
	DifficultyHard   Difficulty = 3
)

// Difficulties lists every difficulty in display order.
var Difficulties = []Difficulty{DifficultyEasy, DifficultyNormal, DifficultyHard}

// Label returns the display label of the difficulty.
func (d Difficulty) Label() string {
	switch d {
	case DifficultyEasy:
		return "easy"
	case DifficultyNormal:
		return "normal"
	case DifficultyHard:
		return "hard"
	default:
		return fmt.Sprintf("diff-%d", int(d))
	}
}

// Valid reports whether d is one of the known codes.
func (d Difficulty) Valid() bool {
	return d >= DifficultyEasy && d <= DifficultyHard
}

// Language is the numeric language code stored with each attempt.
type Language int

// Language codes.
const (
	LanguageJapanese Language = 1
	LanguageEnglish  Language = 2
)

// Languages lists every language in display order.
var Languages = []Language{LanguageJapanese, LanguageEnglish}

// Label returns the display label of the language.
func (l Language) Label() string {
	switch l {
	case LanguageJapanese:
		return "ja"
	case LanguageEnglish:
		return "en"
	default:
		return fmt.Sprintf("lang-%d", int(l))
	}
}

// Valid reports whether l is one of the known codes.
func (l Language) Valid() bool {
	return l == LanguageJapanese || l == LanguageEnglish
}

// Mode is a (language, difficulty) pair.
type Mode struct {
	Language   Language
	Difficulty Difficulty
}

// Label renders the mode as "ja - easy".
func (m Mode) Label() string {
	return m.Language.Label() + " - " + m.Difficulty.Label()
}

// Modes returns the fixed 2x3 mode space, language-major.
func Modes() []Mode {
	out := make([]Mode, 0, len(Languages)*len(Difficulties))
	for _, lang := range Languages {
		for _, diff := range Difficulties {
			out = append(out, Mode{Language: lang, Difficulty: diff})
		}
	}
	return out
}

// Username is the result of joining a user id against the roster.
// Valid is false when the id had no matching user.
type Username struct {
	Name  string
	Valid bool
}

// UnknownUsername is shown for rows whose user is missing from the roster.
const UnknownUsername = "(unknown)"

// KnownUsername wraps a roster name.
func KnownUsername(name string) Username {
	return Username{Name: name, Valid: true}
}

// Display returns the name, or UnknownUsername when the join missed.
func (u Username) Display() string {
	if !u.Valid {
		return UnknownUsername
	}
	return u.Name
}

// Attempt is one row of the scores table.
type Attempt struct {
	UserID      int64
	Difficulty  Difficulty
	Language    Language
	Score       float64
	Accuracy    float64
	TypingCount int
	CreatedAt   time.Time
}

// Mode returns the attempt's (language, difficulty) pair.
func (a Attempt) Mode() Mode {
	return Mode{Language: a.Language, Difficulty: a.Difficulty}
}

// MissEvent is one row of the miss-character table.
type MissEvent struct {
	UserID    int64
	Char      string
	Count     int
	CreatedAt time.Time
}

// User is one row of the roster.
type User struct {
	UserID        int64
	Username      string
	IsNewGraduate bool
	CreatedAt     time.Time
}

// RawTables holds the three tables as read from a source.
type RawTables struct {
	Attempts []Attempt
	Misses   []MissEvent
	Users    []User
}

// JoinedAttempt is an attempt with its username resolved.
type JoinedAttempt struct {
	Attempt
	Username Username
}

// JoinedMiss is a miss event with its username resolved.
type JoinedMiss struct {
	MissEvent
	Username Username
}

// Tables is the cohort-filtered, joined snapshot used by one render.
type Tables struct {
	Attempts []JoinedAttempt
	Misses   []JoinedMiss
	Users    []User
}

// Empty reports whether the snapshot holds no attempts and no misses.
func (t Tables) Empty() bool {
	return len(t.Attempts) == 0 && len(t.Misses) == 0
}
