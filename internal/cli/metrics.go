package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/julianstephens/sprout/internal/models"
)

type MetricsCmd struct {
	Refresh bool `help:"Recompute the summary from stored entries first."`
	JSON    bool `help:"Print the summary as JSON." name:"json"`
}

func (c *MetricsCmd) Run(ctx *Context) error {
	sess, err := ctx.CurrentSession()
	if err != nil {
		return err
	}

	var summary models.Summary
	if c.Refresh {
		summary, err = ctx.Journal.Refresh(sess)
	} else {
		summary, err = ctx.Journal.Summary(sess)
	}
	if err != nil {
		return err
	}

	if c.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}

	last := summary.LastActive()
	if last == "" {
		last = "never"
	}
	fmt.Printf("Days active:          %d\n", summary.DaysActive)
	fmt.Printf("Challenges completed: %d\n", summary.ChallengesCompleted)
	fmt.Printf("Last active:          %s\n", last)
	return nil
}
