package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/julianstephens/sprout/internal/constants"
	"github.com/julianstephens/sprout/internal/journal"
	"github.com/julianstephens/sprout/internal/models"
	"github.com/julianstephens/sprout/internal/tui"
	"github.com/julianstephens/sprout/internal/validation"
)

type EntryAddCmd struct {
	Date         string `help:"Entry date (YYYY-MM-DD). Defaults to today."`
	Mood         string `help:"Mood: 😔 😐 🙂 😊 🤩 or low, meh, okay, good, great." default:"okay"`
	Achievements string `help:"What you achieved."`
	Lessons      string `help:"What you learned."`
	Challenges   string `help:"Challenges you faced."`
	Goals        string `help:"What you will work on tomorrow."`
}

func (c *EntryAddCmd) Run(ctx *Context) error {
	sess, err := ctx.CurrentSession()
	if err != nil {
		return err
	}

	in := validation.EntryInput{
		Date:          c.Date,
		Mood:          c.Mood,
		Achievements:  c.Achievements,
		Lessons:       c.Lessons,
		Challenges:    c.Challenges,
		TomorrowGoals: c.Goals,
	}
	if strings.TrimSpace(in.Achievements) == "" || strings.TrimSpace(in.Lessons) == "" {
		if in, err = promptEntry(in); err != nil {
			return err
		}
	}

	entry, summary, err := ctx.Journal.Add(sess, in)
	if err != nil {
		return err
	}

	fmt.Printf("✓ Saved reflection for %s %s\n", entry.Date, entry.Mood)
	fmt.Printf("  Days active: %d | Challenges completed: %d\n", summary.DaysActive, summary.ChallengesCompleted)
	return nil
}

// promptEntry fills in the missing fields with the reflection form
func promptEntry(in validation.EntryInput) (validation.EntryInput, error) {
	fm := &tui.ReflectFormModel{
		Date:          in.Date,
		Mood:          in.Mood,
		Achievements:  in.Achievements,
		Lessons:       in.Lessons,
		Challenges:    in.Challenges,
		TomorrowGoals: in.TomorrowGoals,
	}
	if fm.Date == "" {
		fm.Date = time.Now().Format(constants.DateFormat)
	}
	if mood, err := models.ParseMood(fm.Mood); err == nil {
		fm.Mood = string(mood)
	} else {
		fm.Mood = string(models.DefaultMood)
	}

	if err := tui.NewReflectForm(fm).Run(); err != nil {
		return in, err
	}
	return validation.EntryInput{
		Date:          fm.Date,
		Mood:          fm.Mood,
		Achievements:  fm.Achievements,
		Lessons:       fm.Lessons,
		Challenges:    fm.Challenges,
		TomorrowGoals: fm.TomorrowGoals,
	}, nil
}

type EntryListCmd struct {
	Date   string `help:"Only show entries for this date (YYYY-MM-DD)."`
	Search string `help:"Only show entries containing this text." short:"s"`
	Limit  int    `help:"Maximum number of entries to show." default:"0"`
	JSON   bool   `help:"Print entries as JSON." name:"json"`
}

func (c *EntryListCmd) Run(ctx *Context) error {
	sess, err := ctx.CurrentSession()
	if err != nil {
		return err
	}

	entries, err := ctx.Journal.List(sess, journal.Query{Date: c.Date, Search: c.Search, Limit: c.Limit})
	if err != nil {
		return err
	}

	if c.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	if len(entries) == 0 {
		fmt.Println("No entries found.")
		return nil
	}

	for _, e := range entries {
		fmt.Printf("%s %s  (%s)\n", e.Date, e.Mood, e.CreatedAt.Local().Format(constants.TimestampFormat))
		fmt.Printf("  Achievements: %s\n", e.Achievements)
		fmt.Printf("  Lessons:      %s\n", e.Lessons)
		if e.Challenges != "" {
			fmt.Printf("  Challenges:   %s\n", e.Challenges)
		}
		if e.TomorrowGoals != "" {
			fmt.Printf("  Tomorrow:     %s\n", e.TomorrowGoals)
		}
		fmt.Println()
	}
	fmt.Printf("%d entries\n", len(entries))
	return nil
}
