// Package export renders journal entries as CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/julianstephens/sprout/internal/constants"
	"github.com/julianstephens/sprout/internal/models"
)

// Header is the fixed column order of an export
var Header = []string{
	"Date",
	"Mood",
	"Achievements",
	"Lessons Learned",
	"Challenges Faced",
	"Tomorrow's Goals",
	"Timestamp",
}

// WriteCSV writes the header and one row per entry, in the order given.
// Timestamps are rendered in local time.
func WriteCSV(w io.Writer, entries []models.Entry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, e := range entries {
		if err := cw.Write(Row(e)); err != nil {
			return fmt.Errorf("failed to write csv row for entry %s: %w", e.ID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}

// Row returns the export columns for a single entry
func Row(e models.Entry) []string {
	return []string{
		e.Date,
		string(e.Mood),
		e.Achievements,
		e.Lessons,
		e.Challenges,
		e.TomorrowGoals,
		e.CreatedAt.Local().Format(constants.TimestampFormat),
	}
}
