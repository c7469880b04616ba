package models

// Summary holds the counters derived from a user's entries. It is never
// authoritative and can always be rebuilt from the entry collection.
type Summary struct {
	DaysActive          int     `json:"days_active"`
	ChallengesCompleted int     `json:"challenges_completed"`
	LastActiveDate      *string `json:"last_active_date"`
}

// LastActive returns the last active date or an empty string if the user has
// no entries yet.
func (s Summary) LastActive() string {
	if s.LastActiveDate == nil {
		return ""
	}
	return *s.LastActiveDate
}

// Equal compares two summaries by value
func (s Summary) Equal(other Summary) bool {
	return s.DaysActive == other.DaysActive &&
		s.ChallengesCompleted == other.ChallengesCompleted &&
		s.LastActive() == other.LastActive() &&
		(s.LastActiveDate == nil) == (other.LastActiveDate == nil)
}
