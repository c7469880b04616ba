package storage

import (
	stderrors "errors"

	"github.com/julianstephens/sprout/internal/errors"
	"github.com/julianstephens/sprout/internal/models"
)

var (
	// ErrUserExists is returned by CreateUser when the username is taken
	ErrUserExists = errors.Conflict("username already exists")
	// ErrUserNotFound is returned when a username has no account
	ErrUserNotFound = stderrors.New("user not found")
	// ErrNotLoaded is returned when a store is used before Init or Load
	ErrNotLoaded = stderrors.New("storage not loaded")
)

type Provider interface {
	// Lifecycle
	Init() error
	Load() error
	Close() error

	// Users
	// CreateUser stores the account and provisions an empty journal and a
	// zeroed summary. Either all of it becomes visible or none of it does.
	CreateUser(models.User) error
	GetUser(username string) (models.User, error)
	GetAllUsers() ([]models.User, error)

	// Journal
	// AppendEntry persists the entry and the recomputed summary while
	// holding the user's write lock, and returns the new summary.
	AppendEntry(username string, entry models.Entry) (models.Summary, error)
	// GetEntries returns the user's entries in storage order
	GetEntries(username string) ([]models.Entry, error)

	// Summary
	GetSummary(username string) (models.Summary, error)
	// RefreshSummary recomputes the summary from the persisted entries and
	// overwrites the stored one.
	RefreshSummary(username string) (models.Summary, error)

	// Utils
	GetConfigPath() string
}
