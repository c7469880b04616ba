package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	sprouterrors "github.com/julianstephens/sprout/internal/errors"
	"github.com/julianstephens/sprout/internal/models"
	"github.com/julianstephens/sprout/internal/storage"
)

func (s *Store) CreateUser(user models.User) error {
	if s.db == nil {
		return storage.ErrNotLoaded
	}

	tx, err := s.db.Begin()
	if err != nil {
		return sprouterrors.Storage("failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	if err := tx.QueryRow("SELECT COUNT(*) FROM users WHERE username = ?", user.Username).Scan(&exists); err != nil {
		return sprouterrors.Storage("failed to check username", err)
	}
	if exists > 0 {
		return storage.ErrUserExists
	}

	if _, err := tx.Exec(
		"INSERT INTO users (username, password_hash, created_at) VALUES (?, ?, ?)",
		user.Username, user.PasswordHash, user.CreatedAt.UTC().Format(time.RFC3339Nano),
	); err != nil {
		return sprouterrors.Storage("failed to insert user", err)
	}
	if _, err := tx.Exec(
		"INSERT INTO summaries (username, days_active, challenges_completed, last_active_date) VALUES (?, 0, 0, NULL)",
		user.Username,
	); err != nil {
		return sprouterrors.Storage("failed to provision summary", err)
	}

	if err := tx.Commit(); err != nil {
		return sprouterrors.Storage("failed to commit user", err)
	}
	return nil
}

func (s *Store) GetUser(username string) (models.User, error) {
	if s.db == nil {
		return models.User{}, storage.ErrNotLoaded
	}
	return scanUser(s.db.QueryRow(
		"SELECT username, password_hash, created_at FROM users WHERE username = ?", username))
}

func (s *Store) GetAllUsers() ([]models.User, error) {
	if s.db == nil {
		return nil, storage.ErrNotLoaded
	}
	rows, err := s.db.Query("SELECT username, password_hash, created_at FROM users ORDER BY username")
	if err != nil {
		return nil, sprouterrors.Storage("failed to query users", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, sprouterrors.Storage("failed to read users", err)
	}
	return users, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row scanner) (models.User, error) {
	var u models.User
	var createdAt string
	if err := row.Scan(&u.Username, &u.PasswordHash, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, storage.ErrUserNotFound
		}
		return models.User{}, sprouterrors.Storage("failed to read user", err)
	}
	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	u.CreatedAt = t
	return u, nil
}

func userExists(q interface {
	QueryRow(query string, args ...interface{}) *sql.Row
}, username string) error {
	var n int
	if err := q.QueryRow("SELECT COUNT(*) FROM users WHERE username = ?", username).Scan(&n); err != nil {
		return sprouterrors.Storage("failed to look up user", err)
	}
	if n == 0 {
		return storage.ErrUserNotFound
	}
	return nil
}
