package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/verte-zerg/typedash/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "nested", "typedash.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

func TestReplaceTablesRoundTrip(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 4, 1, 3, 15, 0, 0, time.UTC)

	raw := model.RawTables{
		Users: []model.User{
			{UserID: 2, Username: "bob", CreatedAt: base},
			{UserID: 1, Username: "alice", IsNewGraduate: true, CreatedAt: base},
		},
		Attempts: []model.Attempt{
			{UserID: 1, Difficulty: model.DifficultyHard, Language: model.LanguageEnglish, Score: 120.5, Accuracy: 0.93, TypingCount: 210, CreatedAt: base},
			{UserID: 2, Difficulty: model.DifficultyEasy, Language: model.LanguageJapanese, Score: 80, Accuracy: 0.88, TypingCount: 150, CreatedAt: base.Add(time.Hour)},
		},
		Misses: []model.MissEvent{
			{UserID: 1, Char: "k", Count: 4, CreatedAt: base},
		},
	}
	if err := st.ReplaceTables(ctx, raw); err != nil {
		t.Fatalf("replace tables: %v", err)
	}

	users, err := st.ListUsers(ctx)
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if len(users) != 2 || users[0].Username != "alice" || !users[0].IsNewGraduate {
		t.Fatalf("unexpected users: %+v", users)
	}
	if users[1].IsNewGraduate {
		t.Fatalf("expected bob to not be a new graduate")
	}

	attempts, err := st.ListAttempts(ctx)
	if err != nil {
		t.Fatalf("list attempts: %v", err)
	}
	if len(attempts) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(attempts))
	}
	first := attempts[0]
	if first.UserID != 1 || first.Difficulty != model.DifficultyHard || first.Language != model.LanguageEnglish {
		t.Fatalf("unexpected first attempt: %+v", first)
	}
	if first.Score != 120.5 || first.TypingCount != 210 || !first.CreatedAt.Equal(base) {
		t.Fatalf("unexpected first attempt values: %+v", first)
	}

	misses, err := st.ListMisses(ctx)
	if err != nil {
		t.Fatalf("list misses: %v", err)
	}
	if len(misses) != 1 || misses[0].Char != "k" || misses[0].Count != 4 {
		t.Fatalf("unexpected misses: %+v", misses)
	}
}

func TestReplaceTablesOverwrites(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	first := model.RawTables{
		Users:    []model.User{{UserID: 1, Username: "alice", CreatedAt: now}},
		Attempts: []model.Attempt{{UserID: 1, Difficulty: 1, Language: 1, Score: 10, CreatedAt: now}},
	}
	if err := st.ReplaceTables(ctx, first); err != nil {
		t.Fatalf("first replace: %v", err)
	}
	second := model.RawTables{
		Users: []model.User{{UserID: 7, Username: "carol", CreatedAt: now}},
	}
	if err := st.ReplaceTables(ctx, second); err != nil {
		t.Fatalf("second replace: %v", err)
	}
	attempts, err := st.ListAttempts(ctx)
	if err != nil {
		t.Fatalf("list attempts: %v", err)
	}
	if len(attempts) != 0 {
		t.Fatalf("expected attempts to be cleared, got %d", len(attempts))
	}
	users, err := st.ListUsers(ctx)
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if len(users) != 1 || users[0].UserID != 7 {
		t.Fatalf("unexpected users: %+v", users)
	}
}

func TestReplaceTablesRollsBackOnDuplicateUser(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	good := model.RawTables{
		Users: []model.User{{UserID: 1, Username: "alice", CreatedAt: now}},
	}
	if err := st.ReplaceTables(ctx, good); err != nil {
		t.Fatalf("replace: %v", err)
	}
	bad := model.RawTables{
		Users: []model.User{
			{UserID: 2, Username: "dup", CreatedAt: now},
			{UserID: 3, Username: "dup", CreatedAt: now},
		},
	}
	if err := st.ReplaceTables(ctx, bad); err == nil {
		t.Fatalf("expected duplicate username to fail")
	}
	users, err := st.ListUsers(ctx)
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if len(users) != 1 || users[0].Username != "alice" {
		t.Fatalf("expected previous roster to survive, got %+v", users)
	}
}

func TestListOrdersByCreationTime(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 4, 1, 3, 15, 0, 0, time.UTC)

	raw := model.RawTables{
		Attempts: []model.Attempt{
			{UserID: 1, Difficulty: 1, Language: 1, Score: 30, CreatedAt: base.Add(time.Hour)},
			{UserID: 1, Difficulty: 1, Language: 1, Score: 20, CreatedAt: base.Add(500 * time.Millisecond)},
			{UserID: 1, Difficulty: 1, Language: 1, Score: 10, CreatedAt: base},
		},
		Misses: []model.MissEvent{
			{UserID: 2, Char: "b", Count: 1, CreatedAt: base.Add(time.Minute)},
			{UserID: 1, Char: "a", Count: 1, CreatedAt: base},
		},
	}
	if err := st.ReplaceTables(ctx, raw); err != nil {
		t.Fatalf("replace tables: %v", err)
	}
	attempts, err := st.ListAttempts(ctx)
	if err != nil {
		t.Fatalf("list attempts: %v", err)
	}
	if len(attempts) != 3 || attempts[0].Score != 10 || attempts[1].Score != 20 || attempts[2].Score != 30 {
		t.Fatalf("expected chronological attempts, got %+v", attempts)
	}
	if !attempts[1].CreatedAt.Equal(base.Add(500 * time.Millisecond)) {
		t.Fatalf("expected sub-second precision, got %v", attempts[1].CreatedAt)
	}
	misses, err := st.ListMisses(ctx)
	if err != nil {
		t.Fatalf("list misses: %v", err)
	}
	if len(misses) != 2 || misses[0].Char != "a" || misses[1].Char != "b" {
		t.Fatalf("expected chronological misses, got %+v", misses)
	}
}

func TestOpenPostgresDefersConnection(t *testing.T) {
	dsn := "host=127.0.0.1 port=1 user=typedash dbname=typedash sslmode=disable connect_timeout=1"
	st, err := OpenPostgres(dsn)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	defer st.Close()

	if _, err := st.ListAttempts(context.Background()); err == nil {
		t.Fatalf("expected query against unreachable postgres to fail")
	}
	if _, err := ConnectPostgres(context.Background(), dsn); err == nil {
		t.Fatalf("expected connect to unreachable postgres to fail")
	}
}
