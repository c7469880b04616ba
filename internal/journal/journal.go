// Package journal is the entry point presentation layers use to read and
// write a user's reflections. Every call takes the caller's session
// explicitly.
package journal

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/sprout/internal/auth"
	"github.com/julianstephens/sprout/internal/constants"
	"github.com/julianstephens/sprout/internal/logger"
	"github.com/julianstephens/sprout/internal/models"
	"github.com/julianstephens/sprout/internal/storage"
	"github.com/julianstephens/sprout/internal/validation"
)

type Service struct {
	store     storage.Provider
	validator *validation.Validator
	now       func() time.Time
	newID     func() (uuid.UUID, error)
}

func NewService(store storage.Provider) *Service {
	return &Service{
		store:     store,
		validator: validation.New(),
		now:       time.Now,
		newID:     uuid.NewV7,
	}
}

// Query narrows a listing. Zero values match everything.
type Query struct {
	Date   string
	Search string
	Limit  int
}

// Add validates the input and appends it to the session user's journal. An
// empty date means today. The summary returned is the one persisted with the
// entry.
func (s *Service) Add(sess auth.Session, in validation.EntryInput) (models.Entry, models.Summary, error) {
	// Postgres keeps microseconds; truncating here makes every backend
	// hand back exactly the entry that was stored.
	now := s.now().Truncate(time.Microsecond)
	if strings.TrimSpace(in.Date) == "" {
		in.Date = now.Format(constants.DateFormat)
	}

	in, mood, err := s.validator.ValidateEntry(in)
	if err != nil {
		return models.Entry{}, models.Summary{}, err
	}

	id, err := s.newID()
	if err != nil {
		return models.Entry{}, models.Summary{}, fmt.Errorf("failed to generate entry id: %w", err)
	}

	entry := models.Entry{
		ID:            id.String(),
		Date:          in.Date,
		Mood:          mood,
		Achievements:  in.Achievements,
		Lessons:       in.Lessons,
		Challenges:    in.Challenges,
		TomorrowGoals: in.TomorrowGoals,
		CreatedAt:     now,
	}

	summary, err := s.store.AppendEntry(sess.Username, entry)
	if err != nil {
		return models.Entry{}, models.Summary{}, err
	}

	logger.Info("Entry appended", "username", sess.Username, "id", entry.ID, "date", entry.Date)
	return entry, summary, nil
}

// Entries returns the session user's entries in storage order
func (s *Service) Entries(sess auth.Session) ([]models.Entry, error) {
	return s.store.GetEntries(sess.Username)
}

// List returns the matching entries, newest first
func (s *Service) List(sess auth.Session, q Query) ([]models.Entry, error) {
	entries, err := s.store.GetEntries(sess.Username)
	if err != nil {
		return nil, err
	}
	entries = Filter(entries, q.Date, q.Search)
	SortNewestFirst(entries)
	if q.Limit > 0 && len(entries) > q.Limit {
		entries = entries[:q.Limit]
	}
	return entries, nil
}

// Summary returns the stored summary without recomputing it
func (s *Service) Summary(sess auth.Session) (models.Summary, error) {
	return s.store.GetSummary(sess.Username)
}

// Refresh recomputes the summary from the persisted entries, picking up
// writes made by other sessions.
func (s *Service) Refresh(sess auth.Session) (models.Summary, error) {
	summary, err := s.store.RefreshSummary(sess.Username)
	if err != nil {
		return models.Summary{}, err
	}
	logger.Debug("Summary refreshed", "username", sess.Username, "days_active", summary.DaysActive)
	return summary, nil
}

// Filter keeps entries whose date equals date (when set) and whose free text
// contains search, ignoring case (when set). The input slice is not modified.
func Filter(entries []models.Entry, date, search string) []models.Entry {
	date = strings.TrimSpace(date)
	search = strings.ToLower(strings.TrimSpace(search))

	out := make([]models.Entry, 0, len(entries))
	for _, e := range entries {
		if date != "" && e.Date != date {
			continue
		}
		if search != "" && !strings.Contains(e.SearchText(), search) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// SortNewestFirst orders entries by creation time, most recent first.
// Entries created at the same instant keep reverse storage order.
func SortNewestFirst(entries []models.Entry) {
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
}
