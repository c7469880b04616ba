// Package metrics derives progress counters from a journal's entries.
package metrics

import "github.com/julianstephens/sprout/internal/models"

// Recompute builds a summary from scratch. It is a pure function of the
// entry collection and yields the zero summary for an empty collection.
//
// Dates are compared as YYYY-MM-DD strings, so lexical order is calendar order.
func Recompute(entries []models.Entry) models.Summary {
	summary := models.Summary{ChallengesCompleted: len(entries)}
	if len(entries) == 0 {
		return summary
	}

	days := make(map[string]struct{}, len(entries))
	last := ""
	for _, e := range entries {
		days[e.Date] = struct{}{}
		if e.Date > last {
			last = e.Date
		}
	}

	summary.DaysActive = len(days)
	summary.LastActiveDate = &last
	return summary
}
