package cli

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/julianstephens/sprout/internal/auth"
	"github.com/julianstephens/sprout/internal/backup"
	"github.com/julianstephens/sprout/internal/config"
	"github.com/julianstephens/sprout/internal/constants"
	"github.com/julianstephens/sprout/internal/errors"
	"github.com/julianstephens/sprout/internal/journal"
	"github.com/julianstephens/sprout/internal/keyring"
	"github.com/julianstephens/sprout/internal/logger"
	"github.com/julianstephens/sprout/internal/storage"
	"github.com/julianstephens/sprout/internal/storage/postgres"
	"github.com/julianstephens/sprout/internal/storage/sqlite"
)

// TokenEnv overrides the session token saved in the keyring
const TokenEnv = "SPROUT_TOKEN"

var errNotLoggedIn = errors.Auth("not logged in, run 'sprout login <username>' first")

type Context struct {
	Config   *config.Config
	Store    storage.Provider
	Accounts *auth.Accounts
	Sessions *auth.Sessions
	Journal  *journal.Service

	// tokenSource returns the saved session token; swapped out in tests
	tokenSource func() (string, error)
}

// NewContext opens the configured store and builds the services on top of
// it. The store is not loaded; callers run Init or Load as the command needs.
func NewContext(cfg *config.Config) (*Context, error) {
	store, err := OpenStore(cfg)
	if err != nil {
		return nil, err
	}

	key, err := SigningKey(cfg)
	if err != nil {
		return nil, err
	}

	return &Context{
		Config:   cfg,
		Store:    store,
		Accounts: auth.NewAccounts(store, cfg.Auth.BcryptCost),
		Sessions: auth.NewSessions(key, cfg.Auth.TokenTTL),
		Journal:  journal.NewService(store),
	}, nil
}

// OpenStore returns the storage backend selected by the config
func OpenStore(cfg *config.Config) (storage.Provider, error) {
	switch cfg.Storage.Backend {
	case constants.BackendSQLite:
		return sqlite.NewStore(filepath.Join(cfg.Storage.Path, constants.SQLiteFileName)), nil
	case constants.BackendPostgres:
		connStr, err := connectionString(cfg)
		if err != nil {
			return nil, err
		}
		return postgres.New(connStr), nil
	default:
		return storage.NewJSONStore(cfg.Storage.Path), nil
	}
}

// connectionString prefers storage.dsn and falls back to the keyring. Only
// the keyring may hold a connection string with a password.
func connectionString(cfg *config.Config) (string, error) {
	if cfg.Storage.DSN != "" {
		if _, err := postgres.ValidateConnString(cfg.Storage.DSN); err != nil {
			if stderrors.Is(err, postgres.ErrEmbeddedCredentials) {
				return "", fmt.Errorf("storage.dsn must not embed a password; use 'sprout keyring set', ~/.pgpass or PGPASSWORD instead")
			}
			return "", err
		}
		return cfg.Storage.DSN, nil
	}

	connStr, err := keyring.GetConnectionString()
	if err != nil {
		if stderrors.Is(err, keyring.ErrNotFound) {
			return "", fmt.Errorf("no PostgreSQL connection configured; set storage.dsn or run 'sprout keyring set'")
		}
		return "", err
	}
	return connStr, nil
}

// SigningKey returns the configured JWT secret, or the generated key kept
// next to the config file.
func SigningKey(cfg *config.Config) ([]byte, error) {
	if cfg.Auth.JWTSecret != "" {
		return []byte(cfg.Auth.JWTSecret), nil
	}
	return auth.LoadOrCreateKey(cfg.SessionKeyPath())
}

// NeedsStorage reports whether a kong command path touches the store
func NeedsStorage(command string) bool {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return true
	}
	switch fields[0] {
	case "keyring", "challenge", "quote", "learn", "logout":
		return false
	}
	return true
}

// Close releases the store
func (c *Context) Close() {
	if c.Store == nil {
		return
	}
	if err := c.Store.Close(); err != nil {
		logger.Warn("Failed to close storage", "error", err)
	}
}

// SavedToken returns the session token from SPROUT_TOKEN or the keyring
func (c *Context) SavedToken() (string, error) {
	if token := strings.TrimSpace(os.Getenv(TokenEnv)); token != "" {
		return token, nil
	}
	source := c.tokenSource
	if source == nil {
		source = keyring.GetToken
	}
	token, err := source()
	if err != nil {
		if stderrors.Is(err, keyring.ErrNotFound) {
			return "", errNotLoggedIn
		}
		return "", err
	}
	return token, nil
}

// CurrentSession resolves the saved token into a session for an existing user
func (c *Context) CurrentSession() (auth.Session, error) {
	token, err := c.SavedToken()
	if err != nil {
		return auth.Session{}, err
	}
	sess, err := c.Sessions.Parse(token)
	if err != nil {
		return auth.Session{}, err
	}
	if _, err := c.Store.GetUser(sess.Username); err != nil {
		if stderrors.Is(err, storage.ErrUserNotFound) {
			return auth.Session{}, errNotLoggedIn
		}
		return auth.Session{}, err
	}
	return sess, nil
}

// BackupManager returns a backup manager for the file-based backends
func (c *Context) BackupManager() (*backup.Manager, error) {
	switch c.Config.Storage.Backend {
	case constants.BackendSQLite:
		return backup.NewManager(c.Store.GetConfigPath()), nil
	case constants.BackendJSON:
		return backup.NewDirManager(c.Store.GetConfigPath()), nil
	default:
		return nil, fmt.Errorf("backups are not supported for the %s backend, use pg_dump instead", c.Config.Storage.Backend)
	}
}

// PerformAutomaticBackup creates an automatic backup and silently handles errors
func (c *Context) PerformAutomaticBackup() {
	mgr, err := c.BackupManager()
	if err != nil {
		logger.Debug("Skipping automatic backup", "reason", err)
		return
	}
	if _, err := mgr.CreateBackup(); err != nil {
		// Log warning but don't interrupt user workflow
		logger.Warn("Automatic backup failed", "error", err)
	}
}
