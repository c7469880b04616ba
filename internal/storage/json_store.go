package storage

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/julianstephens/sprout/internal/constants"
	"github.com/julianstephens/sprout/internal/errors"
	"github.com/julianstephens/sprout/internal/logger"
	"github.com/julianstephens/sprout/internal/metrics"
	"github.com/julianstephens/sprout/internal/models"
)

// usersDocument is the on-disk credential table
type usersDocument struct {
	Version int                    `json:"version"`
	Users   map[string]models.User `json:"users"`
}

// JSONStore keeps one credential table plus a directory per user holding
// the entry collection and the metrics summary:
//
//	<dir>/users.json
//	<dir>/journals/<username>/entries.json
//	<dir>/journals/<username>/metrics.json
//
// Every append rewrites the whole entry collection. Daily journaling keeps
// collections small, so O(n) writes are accepted.
type JSONStore struct {
	dir    string
	loaded bool
}

func NewJSONStore(dir string) *JSONStore {
	return &JSONStore{dir: dir}
}

func (s *JSONStore) usersPath() string {
	return filepath.Join(s.dir, constants.UsersFileName)
}

func (s *JSONStore) journalDir(username string) string {
	return filepath.Join(s.dir, constants.JournalsDirName, username)
}

func (s *JSONStore) Init() error {
	if err := os.MkdirAll(filepath.Join(s.dir, constants.JournalsDirName), 0700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	if _, err := os.Stat(s.usersPath()); os.IsNotExist(err) {
		doc := usersDocument{Version: 1, Users: map[string]models.User{}}
		if err := writeJSON(s.usersPath(), doc); err != nil {
			return errors.Storage("failed to write user table", err)
		}
	} else if err != nil {
		return errors.Storage("failed to access user table", err)
	}

	s.loaded = true
	return nil
}

func (s *JSONStore) Load() error {
	if s.loaded {
		return nil
	}
	if _, err := os.Stat(s.usersPath()); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("storage not initialized, run 'sprout init' first")
		}
		return errors.Storage("failed to access user table", err)
	}
	s.loaded = true
	return nil
}

func (s *JSONStore) Close() error {
	s.loaded = false
	return nil
}

func (s *JSONStore) GetConfigPath() string {
	return s.dir
}

func (s *JSONStore) readUsers() (usersDocument, error) {
	var doc usersDocument
	if err := readJSON(s.usersPath(), &doc); err != nil {
		return doc, errors.Storage("failed to read user table", err)
	}
	if doc.Users == nil {
		doc.Users = map[string]models.User{}
	}
	return doc, nil
}

func (s *JSONStore) CreateUser(user models.User) error {
	if !s.loaded {
		return ErrNotLoaded
	}
	if !isSafeName(user.Username) {
		return errors.Validationf("username %q cannot be used as a journal name", user.Username)
	}

	unlock, err := lockPath(s.usersPath() + constants.JournalLockName)
	if err != nil {
		return errors.Storage("failed to lock user table", err)
	}
	defer unlock()

	doc, err := s.readUsers()
	if err != nil {
		return err
	}
	// Usernames double as directory names, and "Alice" and "alice" share a
	// directory on case-insensitive filesystems.
	for name := range doc.Users {
		if strings.EqualFold(name, user.Username) {
			return ErrUserExists
		}
	}

	// Provision the journal first and commit the user record last, so a
	// user record never exists without its journal.
	journalDir := s.journalDir(user.Username)
	created, err := s.provisionJournal(journalDir)
	if err != nil {
		if created {
			_ = os.RemoveAll(journalDir)
		}
		if stderrors.Is(err, ErrUserExists) {
			return err
		}
		return errors.Storage("failed to provision journal", err)
	}

	doc.Users[user.Username] = user
	if err := writeJSON(s.usersPath(), doc); err != nil {
		if created {
			if rmErr := os.RemoveAll(journalDir); rmErr != nil {
				logger.Warn("Failed to roll back journal directory", "user", user.Username, "error", rmErr)
			}
		}
		return errors.Storage("failed to write user table", err)
	}
	return nil
}

// provisionJournal writes an empty journal into dir. created reports whether
// dir is new; a directory left behind by an interrupted signup is reused, but
// one that already holds entries is never overwritten.
func (s *JSONStore) provisionJournal(dir string) (created bool, err error) {
	if err := os.Mkdir(dir, 0700); err == nil {
		created = true
	} else if !os.IsExist(err) {
		return false, err
	} else if err := s.checkOrphanJournal(dir); err != nil {
		return false, err
	}

	if err := writeJSON(filepath.Join(dir, constants.EntriesFileName), []models.Entry{}); err != nil {
		return created, err
	}
	return created, writeJSON(filepath.Join(dir, constants.SummaryFileName), metrics.Recompute(nil))
}

func (s *JSONStore) checkOrphanJournal(dir string) error {
	if _, err := os.Stat(filepath.Join(dir, constants.EntriesFileName)); os.IsNotExist(err) {
		return nil
	} else if err != nil {
		return err
	}
	entries, err := s.readEntries(dir)
	if err != nil {
		return err
	}
	if len(entries) > 0 {
		logger.Warn("Refusing to provision over an existing journal", "dir", dir)
		return ErrUserExists
	}
	return nil
}

func (s *JSONStore) GetUser(username string) (models.User, error) {
	if !s.loaded {
		return models.User{}, ErrNotLoaded
	}
	doc, err := s.readUsers()
	if err != nil {
		return models.User{}, err
	}
	user, ok := doc.Users[username]
	if !ok {
		return models.User{}, ErrUserNotFound
	}
	return user, nil
}

func (s *JSONStore) GetAllUsers() ([]models.User, error) {
	if !s.loaded {
		return nil, ErrNotLoaded
	}
	doc, err := s.readUsers()
	if err != nil {
		return nil, err
	}
	users := make([]models.User, 0, len(doc.Users))
	for _, u := range doc.Users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].Username < users[j].Username
	})
	return users, nil
}

func (s *JSONStore) AppendEntry(username string, entry models.Entry) (models.Summary, error) {
	if _, err := s.GetUser(username); err != nil {
		return models.Summary{}, err
	}

	dir := s.journalDir(username)
	unlock, err := lockPath(filepath.Join(dir, constants.JournalLockName))
	if err != nil {
		return models.Summary{}, errors.Storage("failed to lock journal", err)
	}
	defer unlock()

	entries, err := s.readEntries(dir)
	if err != nil {
		return models.Summary{}, err
	}
	entries = append(entries, entry)
	if err := writeJSON(filepath.Join(dir, constants.EntriesFileName), entries); err != nil {
		return models.Summary{}, errors.Storage("failed to write entries", err)
	}

	summary := metrics.Recompute(entries)
	if err := writeJSON(filepath.Join(dir, constants.SummaryFileName), summary); err != nil {
		return models.Summary{}, errors.Storage("failed to write summary", err)
	}
	return summary, nil
}

func (s *JSONStore) GetEntries(username string) ([]models.Entry, error) {
	if _, err := s.GetUser(username); err != nil {
		return nil, err
	}
	return s.readEntries(s.journalDir(username))
}

func (s *JSONStore) readEntries(dir string) ([]models.Entry, error) {
	var entries []models.Entry
	if err := readJSON(filepath.Join(dir, constants.EntriesFileName), &entries); err != nil {
		return nil, errors.Storage("failed to read entries", err)
	}
	if entries == nil {
		entries = []models.Entry{}
	}
	return entries, nil
}

func (s *JSONStore) GetSummary(username string) (models.Summary, error) {
	if _, err := s.GetUser(username); err != nil {
		return models.Summary{}, err
	}
	var summary models.Summary
	if err := readJSON(filepath.Join(s.journalDir(username), constants.SummaryFileName), &summary); err != nil {
		return models.Summary{}, errors.Storage("failed to read summary", err)
	}
	return summary, nil
}

func (s *JSONStore) RefreshSummary(username string) (models.Summary, error) {
	if _, err := s.GetUser(username); err != nil {
		return models.Summary{}, err
	}

	dir := s.journalDir(username)
	unlock, err := lockPath(filepath.Join(dir, constants.JournalLockName))
	if err != nil {
		return models.Summary{}, errors.Storage("failed to lock journal", err)
	}
	defer unlock()

	entries, err := s.readEntries(dir)
	if err != nil {
		return models.Summary{}, err
	}
	summary := metrics.Recompute(entries)
	if err := writeJSON(filepath.Join(dir, constants.SummaryFileName), summary); err != nil {
		return models.Summary{}, errors.Storage("failed to write summary", err)
	}
	return summary, nil
}

// isSafeName rejects names that would escape the journals directory
func isSafeName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return false
	}
	return filepath.Base(name) == name
}
