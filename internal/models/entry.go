package models

import (
	"strings"
	"time"
)

// Entry is one reflection written by a user for a calendar date
type Entry struct {
	ID            string    `json:"id"`
	Date          string    `json:"date"` // YYYY-MM-DD format
	Mood          Mood      `json:"mood"`
	Achievements  string    `json:"achievements"`
	Lessons       string    `json:"lessons"`
	Challenges    string    `json:"challenges"`
	TomorrowGoals string    `json:"tomorrow_goals"`
	CreatedAt     time.Time `json:"created_at"`
}

// SearchText returns the lowercased free-text fields joined by spaces,
// which is what keyword search matches against.
func (e Entry) SearchText() string {
	return strings.ToLower(strings.Join([]string{
		e.Achievements,
		e.Lessons,
		e.Challenges,
		e.TomorrowGoals,
	}, " "))
}

// SameContent reports whether two entries match in every field except the
// generated identifier.
func (e Entry) SameContent(other Entry) bool {
	return e.Date == other.Date &&
		e.Mood == other.Mood &&
		e.Achievements == other.Achievements &&
		e.Lessons == other.Lessons &&
		e.Challenges == other.Challenges &&
		e.TomorrowGoals == other.TomorrowGoals &&
		e.CreatedAt.Equal(other.CreatedAt)
}
