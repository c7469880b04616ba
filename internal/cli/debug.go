package cli

import (
	"encoding/json"
	"fmt"

	"github.com/julianstephens/sprout/internal/metrics"
	"github.com/julianstephens/sprout/internal/models"
)

type DebugCmd struct {
	Paths DebugPathsCmd `cmd:"" help:"Show config and storage locations."`
	Dump  DebugDumpCmd  `cmd:"" help:"Dump your entries and summary as JSON."`
}

type DebugPathsCmd struct{}

func (cmd *DebugPathsCmd) Run(ctx *Context) error {
	// Output in machine-readable format
	output := map[string]string{
		"backend":     ctx.Config.Storage.Backend,
		"storage":     ctx.Store.GetConfigPath(),
		"config_dir":  ctx.Config.Dir,
		"config_file": ctx.Config.File,
	}

	jsonBytes, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}

	fmt.Println(string(jsonBytes))
	return nil
}

type debugDump struct {
	Username   string         `json:"username"`
	Entries    []models.Entry `json:"entries"`
	Stored     models.Summary `json:"stored_summary"`
	Recomputed models.Summary `json:"recomputed_summary"`
}

// DebugDumpCmd prints the session user's raw entries along with the stored
// and the recomputed summary, which makes drift easy to spot.
type DebugDumpCmd struct{}

func (cmd *DebugDumpCmd) Run(ctx *Context) error {
	dump, err := buildDump(ctx)
	if err != nil {
		return err
	}

	jsonBytes, err := json.MarshalIndent(dump, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal dump: %w", err)
	}

	fmt.Println(string(jsonBytes))
	return nil
}

func buildDump(ctx *Context) (debugDump, error) {
	sess, err := ctx.CurrentSession()
	if err != nil {
		return debugDump{}, err
	}
	entries, err := ctx.Journal.Entries(sess)
	if err != nil {
		return debugDump{}, fmt.Errorf("failed to get entries: %w", err)
	}
	stored, err := ctx.Journal.Summary(sess)
	if err != nil {
		return debugDump{}, fmt.Errorf("failed to get summary: %w", err)
	}
	return debugDump{
		Username:   sess.Username,
		Entries:    entries,
		Stored:     stored,
		Recomputed: metrics.Recompute(entries),
	}, nil
}
