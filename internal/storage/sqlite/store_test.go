package sqlite

import (
	stderrors "errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/julianstephens/sprout/internal/errors"
	"github.com/julianstephens/sprout/internal/metrics"
	"github.com/julianstephens/sprout/internal/models"
	"github.com/julianstephens/sprout/internal/storage"
)

func setupTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sprout.db")
	store := NewStore(path)
	if err := store.Init(); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store, path
}

func testUser(name string) models.User {
	return models.User{Username: name, PasswordHash: "hash-" + name, CreatedAt: time.Now().UTC()}
}

func testEntry(id, date string) models.Entry {
	return models.Entry{
		ID:           id,
		Date:         date,
		Mood:         models.MoodOkay,
		Achievements: "shipped",
		Lessons:      "tests first",
		CreatedAt:    time.Date(2024, 1, 5, 10, 0, 0, 123456789, time.UTC),
	}
}

func TestStoreSatisfiesProvider(t *testing.T) {
	var _ storage.Provider = NewStore("unused")
}

func TestLoadUninitialized(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "missing.db"))
	err := store.Load()
	if err == nil || !strings.Contains(err.Error(), "sprout init") {
		t.Fatalf("Load() error = %v, want not-initialized error", err)
	}
	if _, err := store.GetEntries("alice"); !stderrors.Is(err, storage.ErrNotLoaded) {
		t.Errorf("GetEntries before Load error = %v, want ErrNotLoaded", err)
	}
}

func TestLoadAfterInit(t *testing.T) {
	store, path := setupTestStore(t)
	if err := store.CreateUser(testUser("alice")); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	reopened := NewStore(path)
	if err := reopened.Load(); err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	defer reopened.Close()

	if _, err := reopened.GetUser("alice"); err != nil {
		t.Errorf("GetUser() after reload failed: %v", err)
	}
}

func TestCreateUserProvisionsSummary(t *testing.T) {
	store, _ := setupTestStore(t)

	u := testUser("alice")
	if err := store.CreateUser(u); err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}

	got, err := store.GetUser("alice")
	if err != nil {
		t.Fatal(err)
	}
	if got.PasswordHash != u.PasswordHash || !got.CreatedAt.Equal(u.CreatedAt) {
		t.Errorf("GetUser() = %+v, want %+v", got, u)
	}

	entries, err := store.GetEntries("alice")
	if err != nil {
		t.Fatal(err)
	}
	if entries == nil || len(entries) != 0 {
		t.Errorf("new journal should be empty and non-nil, got %v", entries)
	}

	summary, err := store.GetSummary("alice")
	if err != nil {
		t.Fatalf("GetSummary() failed: %v", err)
	}
	if !summary.Equal(models.Summary{}) {
		t.Errorf("new summary = %+v, want zero", summary)
	}
}

func TestCreateUserConflict(t *testing.T) {
	store, _ := setupTestStore(t)

	if err := store.CreateUser(testUser("alice")); err != nil {
		t.Fatal(err)
	}
	dup := testUser("alice")
	dup.PasswordHash = "other"
	err := store.CreateUser(dup)
	if !stderrors.Is(err, storage.ErrUserExists) {
		t.Fatalf("duplicate CreateUser() error = %v, want ErrUserExists", err)
	}
	if !errors.IsConflict(err) {
		t.Errorf("duplicate error kind = %v, want conflict", errors.KindOf(err))
	}

	got, _ := store.GetUser("alice")
	if got.PasswordHash != "hash-alice" {
		t.Errorf("existing credential changed to %q", got.PasswordHash)
	}
}

func TestUnknownUser(t *testing.T) {
	store, _ := setupTestStore(t)

	if _, err := store.GetUser("ghost"); !stderrors.Is(err, storage.ErrUserNotFound) {
		t.Errorf("GetUser() error = %v, want ErrUserNotFound", err)
	}
	if _, err := store.GetEntries("ghost"); !stderrors.Is(err, storage.ErrUserNotFound) {
		t.Errorf("GetEntries() error = %v, want ErrUserNotFound", err)
	}
	if _, err := store.AppendEntry("ghost", testEntry("1", "2024-01-05")); !stderrors.Is(err, storage.ErrUserNotFound) {
		t.Errorf("AppendEntry() error = %v, want ErrUserNotFound", err)
	}
	if _, err := store.GetSummary("ghost"); !stderrors.Is(err, storage.ErrUserNotFound) {
		t.Errorf("GetSummary() error = %v, want ErrUserNotFound", err)
	}
}

func TestAppendEntry(t *testing.T) {
	store, _ := setupTestStore(t)
	if err := store.CreateUser(testUser("alice")); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		id, date   string
		wantDays   int
		wantCount  int
		wantLatest string
	}{
		{"a", "2024-01-05", 1, 1, "2024-01-05"},
		{"b", "2024-01-05", 1, 2, "2024-01-05"},
		{"c", "2024-01-03", 2, 3, "2024-01-05"},
		{"d", "2024-02-01", 3, 4, "2024-02-01"},
	}
	for _, tt := range tests {
		summary, err := store.AppendEntry("alice", testEntry(tt.id, tt.date))
		if err != nil {
			t.Fatalf("AppendEntry(%s) failed: %v", tt.id, err)
		}
		if summary.DaysActive != tt.wantDays || summary.ChallengesCompleted != tt.wantCount || summary.LastActive() != tt.wantLatest {
			t.Errorf("after %s summary = {%d %d %s}, want {%d %d %s}", tt.id,
				summary.DaysActive, summary.ChallengesCompleted, summary.LastActive(),
				tt.wantDays, tt.wantCount, tt.wantLatest)
		}
	}

	entries, err := store.GetEntries("alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != len(tests) {
		t.Fatalf("got %d entries, want %d", len(entries), len(tests))
	}
	for i, tt := range tests {
		if entries[i].ID != tt.id {
			t.Errorf("entries[%d].ID = %s, want %s (storage order)", i, entries[i].ID, tt.id)
		}
	}
	if !entries[0].SameContent(testEntry("a", "2024-01-05")) {
		t.Errorf("round trip changed entry: %+v", entries[0])
	}

	stored, _ := store.GetSummary("alice")
	if !stored.Equal(metrics.Recompute(entries)) {
		t.Errorf("stored summary %+v does not match entries", stored)
	}
}

func TestDuplicateEntryIDRollsBack(t *testing.T) {
	store, _ := setupTestStore(t)
	if err := store.CreateUser(testUser("alice")); err != nil {
		t.Fatal(err)
	}
	if _, err := store.AppendEntry("alice", testEntry("same", "2024-01-05")); err != nil {
		t.Fatal(err)
	}

	_, err := store.AppendEntry("alice", testEntry("same", "2024-01-09"))
	if !errors.IsStorage(err) {
		t.Fatalf("duplicate id error = %v, want storage error", err)
	}

	summary, _ := store.GetSummary("alice")
	if summary.ChallengesCompleted != 1 || summary.LastActive() != "2024-01-05" {
		t.Errorf("failed append should leave summary untouched, got %+v", summary)
	}
}

func TestRefreshSummaryRepairsDrift(t *testing.T) {
	store, _ := setupTestStore(t)
	if err := store.CreateUser(testUser("alice")); err != nil {
		t.Fatal(err)
	}
	if _, err := store.AppendEntry("alice", testEntry("1", "2024-01-05")); err != nil {
		t.Fatal(err)
	}
	if _, err := store.GetDB().Exec("UPDATE summaries SET days_active = 0, challenges_completed = 0, last_active_date = NULL"); err != nil {
		t.Fatal(err)
	}

	summary, err := store.RefreshSummary("alice")
	if err != nil {
		t.Fatalf("RefreshSummary() failed: %v", err)
	}
	if summary.DaysActive != 1 || summary.ChallengesCompleted != 1 || summary.LastActive() != "2024-01-05" {
		t.Errorf("refreshed summary = %+v", summary)
	}
	stored, _ := store.GetSummary("alice")
	if !stored.Equal(summary) {
		t.Errorf("refresh did not persist: %+v", stored)
	}
}

func TestConcurrentAppendsAcrossConnections(t *testing.T) {
	store, path := setupTestStore(t)
	if err := store.CreateUser(testUser("alice")); err != nil {
		t.Fatal(err)
	}
	second := NewStore(path)
	if err := second.Load(); err != nil {
		t.Fatal(err)
	}
	defer second.Close()

	const perStore = 10
	var wg sync.WaitGroup
	errs := make(chan error, 2*perStore)
	for i, s := range []*Store{store, second} {
		for j := 0; j < perStore; j++ {
			wg.Add(1)
			go func(s *Store, n int) {
				defer wg.Done()
				date := fmt.Sprintf("2024-03-%02d", 1+n%7)
				if _, err := s.AppendEntry("alice", testEntry(fmt.Sprintf("e-%d", n), date)); err != nil {
					errs <- err
				}
			}(s, i*perStore+j)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent append failed: %v", err)
	}

	entries, err := store.GetEntries("alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2*perStore {
		t.Errorf("got %d entries, want %d", len(entries), 2*perStore)
	}
	summary, _ := store.GetSummary("alice")
	if !summary.Equal(metrics.Recompute(entries)) {
		t.Errorf("summary %+v does not match entries", summary)
	}
}

func TestGetAllUsers(t *testing.T) {
	store, _ := setupTestStore(t)
	for _, name := range []string{"carol", "alice", "bobby"} {
		if err := store.CreateUser(testUser(name)); err != nil {
			t.Fatal(err)
		}
	}
	users, err := store.GetAllUsers()
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, u := range users {
		names = append(names, u.Username)
	}
	if strings.Join(names, ",") != "alice,bobby,carol" {
		t.Errorf("GetAllUsers() order = %v", names)
	}
}
