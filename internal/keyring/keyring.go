package keyring

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"

	"github.com/julianstephens/sprout/internal/constants"
)

var (
	// ErrNotFound is returned when no secret is stored under the requested key
	ErrNotFound = errors.New("credentials not found in keyring")
	// ErrKeyringUnavailable is returned when the OS keyring is not available
	ErrKeyringUnavailable = errors.New("OS keyring is not available")
)

func get(user string) (string, error) {
	secret, err := keyring.Get(constants.AppName, user)
	if err != nil {
		if err == keyring.ErrNotFound {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	return secret, nil
}

func set(user, secret, what string) error {
	if secret == "" {
		return fmt.Errorf("%s cannot be empty", what)
	}
	if err := keyring.Set(constants.AppName, user, secret); err != nil {
		return fmt.Errorf("failed to store %s in keyring: %w", what, err)
	}
	return nil
}

func del(user, what string) error {
	if err := keyring.Delete(constants.AppName, user); err != nil {
		if err == keyring.ErrNotFound {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete %s from keyring: %w", what, err)
	}
	return nil
}

// GetToken returns the session token saved by the last login
func GetToken() (string, error) {
	return get(constants.DefaultKeyringUser)
}

// SetToken stores the session token in the OS keyring
func SetToken(token string) error {
	return set(constants.DefaultKeyringUser, token, "session token")
}

// DeleteToken removes the session token. Returns ErrNotFound if there was none.
func DeleteToken() error {
	return del(constants.DefaultKeyringUser, "session token")
}

// GetConnectionString retrieves the PostgreSQL connection string.
// Returns ErrNotFound if no credentials are stored.
func GetConnectionString() (string, error) {
	return get(constants.KeyringDSNUser)
}

// SetConnectionString stores the PostgreSQL connection string. This is the
// only place a connection string with a password may live.
func SetConnectionString(connStr string) error {
	return set(constants.KeyringDSNUser, connStr, "connection string")
}

func DeleteConnectionString() error {
	return del(constants.KeyringDSNUser, "connection string")
}

// IsAvailable checks if the OS keyring is available on the current system.
// This is a best-effort check.
func IsAvailable() bool {
	_, err := keyring.Get(constants.AppName, "test-availability")
	return err == nil || err == keyring.ErrNotFound
}
