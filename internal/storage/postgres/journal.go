package postgres

import (
	"database/sql"
	"errors"

	sprouterrors "github.com/julianstephens/sprout/internal/errors"
	"github.com/julianstephens/sprout/internal/metrics"
	"github.com/julianstephens/sprout/internal/models"
	"github.com/julianstephens/sprout/internal/storage"
)

const entryColumns = "id, to_char(date, 'YYYY-MM-DD'), mood, achievements, lessons, challenges, tomorrow_goals, created_at"

func (s *Store) CreateUser(user models.User) error {
	if s.db == nil {
		return storage.ErrNotLoaded
	}

	tx, err := s.db.Begin()
	if err != nil {
		return sprouterrors.Storage("failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.Exec(
		"INSERT INTO users (username, password_hash, created_at) VALUES ($1, $2, $3) ON CONFLICT (username) DO NOTHING",
		user.Username, user.PasswordHash, user.CreatedAt.UTC(),
	)
	if err != nil {
		return sprouterrors.Storage("failed to insert user", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return sprouterrors.Storage("failed to insert user", err)
	} else if n == 0 {
		return storage.ErrUserExists
	}

	if _, err := tx.Exec(
		"INSERT INTO summaries (username, days_active, challenges_completed, last_active_date) VALUES ($1, 0, 0, NULL)",
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
	var u models.User
	err := s.db.QueryRow(
		"SELECT username, password_hash, created_at FROM users WHERE username = $1", username,
	).Scan(&u.Username, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, storage.ErrUserNotFound
	}
	if err != nil {
		return models.User{}, sprouterrors.Storage("failed to read user", err)
	}
	return u, nil
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
		var u models.User
		if err := rows.Scan(&u.Username, &u.PasswordHash, &u.CreatedAt); err != nil {
			return nil, sprouterrors.Storage("failed to read user", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, sprouterrors.Storage("failed to read users", err)
	}
	return users, nil
}

// lockUser checks the user exists and takes a transaction-scoped advisory
// lock on the username, serializing appends across connections.
func lockUser(tx *sql.Tx, username string) error {
	var n int
	if err := tx.QueryRow("SELECT COUNT(*) FROM users WHERE username = $1", username).Scan(&n); err != nil {
		return sprouterrors.Storage("failed to look up user", err)
	}
	if n == 0 {
		return storage.ErrUserNotFound
	}
	if _, err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext($1))", username); err != nil {
		return sprouterrors.Storage("failed to lock journal", err)
	}
	return nil
}

func (s *Store) AppendEntry(username string, entry models.Entry) (models.Summary, error) {
	if s.db == nil {
		return models.Summary{}, storage.ErrNotLoaded
	}

	tx, err := s.db.Begin()
	if err != nil {
		return models.Summary{}, sprouterrors.Storage("failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := lockUser(tx, username); err != nil {
		return models.Summary{}, err
	}

	if _, err := tx.Exec(
		`INSERT INTO entries (id, username, date, mood, achievements, lessons, challenges, tomorrow_goals, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		entry.ID, username, entry.Date, string(entry.Mood), entry.Achievements, entry.Lessons,
		entry.Challenges, entry.TomorrowGoals, entry.CreatedAt.UTC(),
	); err != nil {
		return models.Summary{}, sprouterrors.Storage("failed to insert entry", err)
	}

	summary, err := recomputeTx(tx, username)
	if err != nil {
		return models.Summary{}, err
	}
	if err := tx.Commit(); err != nil {
		return models.Summary{}, sprouterrors.Storage("failed to commit entry", err)
	}
	return summary, nil
}

func (s *Store) GetEntries(username string) ([]models.Entry, error) {
	if s.db == nil {
		return nil, storage.ErrNotLoaded
	}
	if _, err := s.GetUser(username); err != nil {
		return nil, err
	}
	return queryEntries(s.db, username)
}

func (s *Store) GetSummary(username string) (models.Summary, error) {
	if s.db == nil {
		return models.Summary{}, storage.ErrNotLoaded
	}

	var summary models.Summary
	var last sql.NullString
	err := s.db.QueryRow(
		"SELECT days_active, challenges_completed, to_char(last_active_date, 'YYYY-MM-DD') FROM summaries WHERE username = $1",
		username,
	).Scan(&summary.DaysActive, &summary.ChallengesCompleted, &last)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Summary{}, storage.ErrUserNotFound
	}
	if err != nil {
		return models.Summary{}, sprouterrors.Storage("failed to read summary", err)
	}
	if last.Valid {
		summary.LastActiveDate = &last.String
	}
	return summary, nil
}

func (s *Store) RefreshSummary(username string) (models.Summary, error) {
	if s.db == nil {
		return models.Summary{}, storage.ErrNotLoaded
	}

	tx, err := s.db.Begin()
	if err != nil {
		return models.Summary{}, sprouterrors.Storage("failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := lockUser(tx, username); err != nil {
		return models.Summary{}, err
	}
	summary, err := recomputeTx(tx, username)
	if err != nil {
		return models.Summary{}, err
	}
	if err := tx.Commit(); err != nil {
		return models.Summary{}, sprouterrors.Storage("failed to commit summary", err)
	}
	return summary, nil
}

func recomputeTx(tx *sql.Tx, username string) (models.Summary, error) {
	entries, err := queryEntries(tx, username)
	if err != nil {
		return models.Summary{}, err
	}
	summary := metrics.Recompute(entries)

	var last interface{}
	if summary.LastActiveDate != nil {
		last = *summary.LastActiveDate
	}
	if _, err := tx.Exec(`
		INSERT INTO summaries (username, days_active, challenges_completed, last_active_date)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (username) DO UPDATE SET
			days_active = EXCLUDED.days_active,
			challenges_completed = EXCLUDED.challenges_completed,
			last_active_date = EXCLUDED.last_active_date`,
		username, summary.DaysActive, summary.ChallengesCompleted, last,
	); err != nil {
		return models.Summary{}, sprouterrors.Storage("failed to write summary", err)
	}
	return summary, nil
}

type querier interface {
	Query(query string, args ...interface{}) (*sql.Rows, error)
}

func queryEntries(q querier, username string) ([]models.Entry, error) {
	rows, err := q.Query("SELECT "+entryColumns+" FROM entries WHERE username = $1 ORDER BY seq", username)
	if err != nil {
		return nil, sprouterrors.Storage("failed to query entries", err)
	}
	defer rows.Close()

	entries := []models.Entry{}
	for rows.Next() {
		var e models.Entry
		var mood string
		if err := rows.Scan(&e.ID, &e.Date, &mood, &e.Achievements, &e.Lessons, &e.Challenges, &e.TomorrowGoals, &e.CreatedAt); err != nil {
			return nil, sprouterrors.Storage("failed to read entry", err)
		}
		e.Mood = models.Mood(mood)
		e.CreatedAt = e.CreatedAt.UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, sprouterrors.Storage("failed to read entries", err)
	}
	return entries, nil
}
