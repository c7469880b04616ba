package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	sprouterrors "github.com/julianstephens/sprout/internal/errors"
	"github.com/julianstephens/sprout/internal/metrics"
	"github.com/julianstephens/sprout/internal/models"
	"github.com/julianstephens/sprout/internal/storage"
)

const entryColumns = "id, date, mood, achievements, lessons, challenges, tomorrow_goals, created_at"

func (s *Store) AppendEntry(username string, entry models.Entry) (models.Summary, error) {
	if s.db == nil {
		return models.Summary{}, storage.ErrNotLoaded
	}

	tx, err := s.db.Begin()
	if err != nil {
		return models.Summary{}, sprouterrors.Storage("failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := userExists(tx, username); err != nil {
		return models.Summary{}, err
	}

	if _, err := tx.Exec(
		"INSERT INTO entries (id, username, date, mood, achievements, lessons, challenges, tomorrow_goals, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		entry.ID, username, entry.Date, string(entry.Mood), entry.Achievements, entry.Lessons,
		entry.Challenges, entry.TomorrowGoals, entry.CreatedAt.UTC().Format(time.RFC3339Nano),
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
	if err := userExists(s.db, username); err != nil {
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
		"SELECT days_active, challenges_completed, last_active_date FROM summaries WHERE username = ?", username,
	).Scan(&summary.DaysActive, &summary.ChallengesCompleted, &last)
	if err == sql.ErrNoRows {
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

	if err := userExists(tx, username); err != nil {
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

// recomputeTx rebuilds the summary from the entries visible in tx and
// upserts it, so it commits or rolls back together with the caller's write.
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
		VALUES (?, ?, ?, ?)
		ON CONFLICT(username) DO UPDATE SET
			days_active = excluded.days_active,
			challenges_completed = excluded.challenges_completed,
			last_active_date = excluded.last_active_date`,
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
	rows, err := q.Query("SELECT "+entryColumns+" FROM entries WHERE username = ? ORDER BY seq", username)
	if err != nil {
		return nil, sprouterrors.Storage("failed to query entries", err)
	}
	defer rows.Close()

	entries := []models.Entry{}
	for rows.Next() {
		var e models.Entry
		var mood, createdAt string
		if err := rows.Scan(&e.ID, &e.Date, &mood, &e.Achievements, &e.Lessons, &e.Challenges, &e.TomorrowGoals, &createdAt); err != nil {
			return nil, sprouterrors.Storage("failed to read entry", err)
		}
		e.Mood = models.Mood(mood)
		e.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created_at for entry %s: %w", e.ID, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, sprouterrors.Storage("failed to read entries", err)
	}
	return entries, nil
}
