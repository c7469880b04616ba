package storage

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mitchellh/go-ps"

	"github.com/julianstephens/sprout/internal/errors"
	"github.com/julianstephens/sprout/internal/metrics"
	"github.com/julianstephens/sprout/internal/models"
)

func setupJSONStore(t *testing.T) (*JSONStore, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "data")
	store := NewJSONStore(dir)
	if err := store.Init(); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	return store, dir
}

func newUser(name string) models.User {
	return models.User{Username: name, PasswordHash: "hash-" + name, CreatedAt: time.Now().UTC()}
}

func newEntry(id, date string) models.Entry {
	return models.Entry{
		ID:           id,
		Date:         date,
		Mood:         models.MoodOkay,
		Achievements: "x",
		Lessons:      "y",
		CreatedAt:    time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC),
	}
}

type fakeProcess struct{ pid int }

func (p fakeProcess) Pid() int           { return p.pid }
func (p fakeProcess) PPid() int          { return 1 }
func (p fakeProcess) Executable() string { return "sprout" }

func TestJSONStoreLoadUninitialized(t *testing.T) {
	store := NewJSONStore(filepath.Join(t.TempDir(), "missing"))
	err := store.Load()
	if err == nil || !strings.Contains(err.Error(), "sprout init") {
		t.Fatalf("Load() error = %v, want not-initialized error", err)
	}
	if _, err := store.GetUser("alice"); !stderrors.Is(err, ErrNotLoaded) {
		t.Errorf("GetUser before Load error = %v, want ErrNotLoaded", err)
	}
}

func TestJSONStoreInitIsIdempotent(t *testing.T) {
	store, dir := setupJSONStore(t)
	if err := store.CreateUser(newUser("alice")); err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	again := NewJSONStore(dir)
	if err := again.Init(); err != nil {
		t.Fatalf("second Init() failed: %v", err)
	}
	if _, err := again.GetUser("alice"); err != nil {
		t.Errorf("second Init() should keep existing users: %v", err)
	}
}

func TestJSONStoreCreateUserProvisionsJournal(t *testing.T) {
	store, dir := setupJSONStore(t)

	if err := store.CreateUser(newUser("alice")); err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}

	for _, name := range []string{"entries.json", "metrics.json"} {
		path := filepath.Join(dir, "journals", "alice", name)
		if _, err := os.Stat(path); err != nil {
			t.Errorf("expected %s to exist: %v", path, err)
		}
	}

	entries, err := store.GetEntries("alice")
	if err != nil {
		t.Fatalf("GetEntries() failed: %v", err)
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

	data, err := os.ReadFile(filepath.Join(dir, "journals", "alice", "metrics.json"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"last_active_date": null`) {
		t.Errorf("zero summary should persist an absent last_active_date, got %s", data)
	}
}

func TestJSONStoreCreateUserConflict(t *testing.T) {
	store, _ := setupJSONStore(t)

	first := newUser("alice")
	if err := store.CreateUser(first); err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	if _, err := store.AppendEntry("alice", newEntry("1", "2024-01-05")); err != nil {
		t.Fatalf("AppendEntry() failed: %v", err)
	}

	second := newUser("alice")
	second.PasswordHash = "other"
	err := store.CreateUser(second)
	if !stderrors.Is(err, ErrUserExists) {
		t.Fatalf("CreateUser() duplicate error = %v, want ErrUserExists", err)
	}
	if !errors.IsConflict(err) {
		t.Errorf("duplicate error kind = %v, want conflict", errors.KindOf(err))
	}

	got, err := store.GetUser("alice")
	if err != nil {
		t.Fatal(err)
	}
	if got.PasswordHash != first.PasswordHash {
		t.Errorf("existing credential changed to %q", got.PasswordHash)
	}
	entries, _ := store.GetEntries("alice")
	if len(entries) != 1 {
		t.Errorf("existing journal should be untouched, has %d entries", len(entries))
	}
}

func TestJSONStoreCreateUserCaseFoldedConflict(t *testing.T) {
	store, _ := setupJSONStore(t)

	if err := store.CreateUser(newUser("alice")); err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	if _, err := store.AppendEntry("alice", newEntry("1", "2024-01-05")); err != nil {
		t.Fatalf("AppendEntry() failed: %v", err)
	}

	for _, name := range []string{"Alice", "ALICE", "aLiCe"} {
		if err := store.CreateUser(newUser(name)); !stderrors.Is(err, ErrUserExists) {
			t.Errorf("CreateUser(%q) error = %v, want ErrUserExists", name, err)
		}
	}

	entries, err := store.GetEntries("alice")
	if err != nil || len(entries) != 1 {
		t.Errorf("existing journal should be untouched, got %d entries (%v)", len(entries), err)
	}
	summary, err := store.GetSummary("alice")
	if err != nil || summary.ChallengesCompleted != 1 {
		t.Errorf("existing summary should be untouched, got %+v (%v)", summary, err)
	}
}

func TestJSONStoreCreateUserKeepsExistingJournal(t *testing.T) {
	store, dir := setupJSONStore(t)

	// A journal directory without a user record, holding entries
	journalDir := filepath.Join(dir, "journals", "bobby")
	if err := os.Mkdir(journalDir, 0700); err != nil {
		t.Fatal(err)
	}
	if err := writeJSON(filepath.Join(journalDir, "entries.json"), []models.Entry{newEntry("1", "2024-01-05")}); err != nil {
		t.Fatal(err)
	}

	if err := store.CreateUser(newUser("bobby")); !stderrors.Is(err, ErrUserExists) {
		t.Fatalf("CreateUser() over a populated journal error = %v, want ErrUserExists", err)
	}
	var entries []models.Entry
	if err := readJSON(filepath.Join(journalDir, "entries.json"), &entries); err != nil {
		t.Fatalf("populated journal was removed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("populated journal was overwritten, has %d entries", len(entries))
	}
	if _, err := store.GetUser("bobby"); !stderrors.Is(err, ErrUserNotFound) {
		t.Errorf("no user record should be written, GetUser() error = %v", err)
	}

	// An empty leftover from an interrupted signup is reused
	orphan := filepath.Join(dir, "journals", "carol")
	if err := os.Mkdir(orphan, 0700); err != nil {
		t.Fatal(err)
	}
	if err := store.CreateUser(newUser("carol")); err != nil {
		t.Errorf("CreateUser() over an empty leftover failed: %v", err)
	}
}

func TestJSONStoreRejectsUnsafeNames(t *testing.T) {
	store, _ := setupJSONStore(t)
	for _, name := range []string{"..", "a/b", `a\b`, ""} {
		if err := store.CreateUser(newUser(name)); err == nil {
			t.Errorf("CreateUser(%q) should fail", name)
		}
	}
}

func TestJSONStoreUnknownUser(t *testing.T) {
	store, _ := setupJSONStore(t)

	if _, err := store.GetUser("ghost"); !stderrors.Is(err, ErrUserNotFound) {
		t.Errorf("GetUser() error = %v, want ErrUserNotFound", err)
	}
	if _, err := store.GetEntries("ghost"); !stderrors.Is(err, ErrUserNotFound) {
		t.Errorf("GetEntries() error = %v, want ErrUserNotFound", err)
	}
	if _, err := store.AppendEntry("ghost", newEntry("1", "2024-01-05")); !stderrors.Is(err, ErrUserNotFound) {
		t.Errorf("AppendEntry() error = %v, want ErrUserNotFound", err)
	}
	if _, err := store.RefreshSummary("ghost"); !stderrors.Is(err, ErrUserNotFound) {
		t.Errorf("RefreshSummary() error = %v, want ErrUserNotFound", err)
	}
}

func TestJSONStoreAppendAndList(t *testing.T) {
	store, dir := setupJSONStore(t)
	if err := store.CreateUser(newUser("alice")); err != nil {
		t.Fatal(err)
	}

	e := newEntry("id-1", "2024-01-05")
	e.Mood = models.MoodGreat
	e.Challenges = "tough bug"
	summary, err := store.AppendEntry("alice", e)
	if err != nil {
		t.Fatalf("AppendEntry() failed: %v", err)
	}
	if summary.DaysActive != 1 || summary.ChallengesCompleted != 1 || summary.LastActive() != "2024-01-05" {
		t.Errorf("summary after first append = %+v", summary)
	}

	summary, err = store.AppendEntry("alice", newEntry("id-2", "2024-01-05"))
	if err != nil {
		t.Fatal(err)
	}
	if summary.DaysActive != 1 || summary.ChallengesCompleted != 2 {
		t.Errorf("summary after second append = %+v", summary)
	}

	entries, err := store.GetEntries("alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("GetEntries() returned %d entries, want 2", len(entries))
	}
	if !entries[0].SameContent(e) {
		t.Errorf("stored entry %+v does not match appended %+v", entries[0], e)
	}

	stored, err := store.GetSummary("alice")
	if err != nil {
		t.Fatal(err)
	}
	if !stored.Equal(summary) {
		t.Errorf("persisted summary %+v != returned %+v", stored, summary)
	}

	matches, _ := filepath.Glob(filepath.Join(dir, "journals", "alice", "*.tmp"))
	if len(matches) != 0 {
		t.Errorf("temp files left behind: %v", matches)
	}
	if _, err := os.Stat(filepath.Join(dir, "journals", "alice", ".lock")); !os.IsNotExist(err) {
		t.Errorf("lockfile should be released after append, stat err = %v", err)
	}
}

func TestJSONStoreRefreshSeesOtherSessions(t *testing.T) {
	store, dir := setupJSONStore(t)
	if err := store.CreateUser(newUser("alice")); err != nil {
		t.Fatal(err)
	}

	other := NewJSONStore(dir)
	if err := other.Load(); err != nil {
		t.Fatal(err)
	}
	if _, err := other.AppendEntry("alice", newEntry("1", "2024-01-05")); err != nil {
		t.Fatal(err)
	}
	if _, err := other.AppendEntry("alice", newEntry("2", "2024-01-07")); err != nil {
		t.Fatal(err)
	}

	// Simulate a stale summary document
	stale := metrics.Recompute(nil)
	if err := writeJSON(filepath.Join(dir, "journals", "alice", "metrics.json"), stale); err != nil {
		t.Fatal(err)
	}

	summary, err := store.RefreshSummary("alice")
	if err != nil {
		t.Fatalf("RefreshSummary() failed: %v", err)
	}
	if summary.DaysActive != 2 || summary.ChallengesCompleted != 2 || summary.LastActive() != "2024-01-07" {
		t.Errorf("refreshed summary = %+v", summary)
	}
	persisted, _ := store.GetSummary("alice")
	if !persisted.Equal(summary) {
		t.Errorf("refresh did not persist: %+v", persisted)
	}
}

func TestJSONStoreConcurrentAppends(t *testing.T) {
	store, dir := setupJSONStore(t)
	if err := store.CreateUser(newUser("alice")); err != nil {
		t.Fatal(err)
	}
	if err := store.CreateUser(newUser("bobby")); err != nil {
		t.Fatal(err)
	}
	second := NewJSONStore(dir)
	if err := second.Load(); err != nil {
		t.Fatal(err)
	}

	const perStore = 15
	var wg sync.WaitGroup
	errs := make(chan error, 4*perStore)
	for i, s := range []*JSONStore{store, second} {
		for j := 0; j < perStore; j++ {
			wg.Add(2)
			go func(s *JSONStore, n int) {
				defer wg.Done()
				date := fmt.Sprintf("2024-01-%02d", 1+n%10)
				if _, err := s.AppendEntry("alice", newEntry(fmt.Sprintf("a-%d", n), date)); err != nil {
					errs <- err
				}
			}(s, i*perStore+j)
			go func(s *JSONStore, n int) {
				defer wg.Done()
				if _, err := s.AppendEntry("bobby", newEntry(fmt.Sprintf("b-%d", n), "2024-02-01")); err != nil {
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

	for _, user := range []string{"alice", "bobby"} {
		entries, err := store.GetEntries(user)
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 2*perStore {
			t.Errorf("%s has %d entries, want %d (lost update)", user, len(entries), 2*perStore)
		}
		summary, _ := store.GetSummary(user)
		if !summary.Equal(metrics.Recompute(entries)) {
			t.Errorf("%s summary %+v does not match entries", user, summary)
		}
	}
}

func TestJSONStoreReclaimsStaleLock(t *testing.T) {
	store, dir := setupJSONStore(t)
	if err := store.CreateUser(newUser("alice")); err != nil {
		t.Fatal(err)
	}

	origFind := findProcessFunc
	defer func() { findProcessFunc = origFind }()
	findProcessFunc = func(pid int) (ps.Process, error) { return nil, nil }

	lockfile := filepath.Join(dir, "journals", "alice", ".lock")
	if err := os.WriteFile(lockfile, []byte("999999"), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := store.AppendEntry("alice", newEntry("1", "2024-01-05")); err != nil {
		t.Fatalf("AppendEntry() should reclaim a dead owner's lock: %v", err)
	}
}

func TestJSONStoreLiveLockTimesOut(t *testing.T) {
	store, dir := setupJSONStore(t)
	if err := store.CreateUser(newUser("alice")); err != nil {
		t.Fatal(err)
	}

	origFind, origWait := findProcessFunc, lockWait
	defer func() { findProcessFunc, lockWait = origFind, origWait }()
	findProcessFunc = func(pid int) (ps.Process, error) { return fakeProcess{pid: pid}, nil }
	lockWait = 50 * time.Millisecond

	lockfile := filepath.Join(dir, "journals", "alice", ".lock")
	if err := os.WriteFile(lockfile, []byte("424242"), 0600); err != nil {
		t.Fatal(err)
	}

	_, err := store.AppendEntry("alice", newEntry("1", "2024-01-05"))
	if !stderrors.Is(err, ErrLockTimeout) {
		t.Fatalf("AppendEntry() error = %v, want ErrLockTimeout", err)
	}
	if !errors.IsStorage(err) {
		t.Errorf("lock timeout kind = %v, want storage", errors.KindOf(err))
	}
	entries, _ := store.GetEntries("alice")
	if len(entries) != 0 {
		t.Errorf("no entry should be written while locked, got %d", len(entries))
	}
}

func TestGetAllUsersSorted(t *testing.T) {
	store, _ := setupJSONStore(t)
	for _, name := range []string{"carol", "alice", "bobby"} {
		if err := store.CreateUser(newUser(name)); err != nil {
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

func TestWriteFileAtomicReplaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	if err := WriteFileAtomic(path, []byte("old"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := WriteFileAtomic(path, []byte("new"), 0600); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "new" {
		t.Errorf("content = %q, want new", data)
	}
	info, _ := os.Stat(path)
	if info.Mode().Perm() != 0600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}
}

func TestWriteFileAtomicMissingDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "doc.json")
	if err := WriteFileAtomic(path, []byte("x"), 0600); err == nil {
		t.Error("expected an error for a missing directory")
	}
}
