package cli

import (
	"bytes"
	"fmt"
	"os"

	"github.com/julianstephens/sprout/internal/constants"
	"github.com/julianstephens/sprout/internal/export"
	"github.com/julianstephens/sprout/internal/storage"
)

type ExportCmd struct {
	Out string `help:"Output file, or - for stdout." short:"o" default:"${export_file}"`
}

func (c *ExportCmd) Run(ctx *Context) error {
	sess, err := ctx.CurrentSession()
	if err != nil {
		return err
	}
	entries, err := ctx.Journal.Entries(sess)
	if err != nil {
		return err
	}

	if c.Out == "-" {
		return export.WriteCSV(os.Stdout, entries)
	}

	out := c.Out
	if out == "" {
		out = constants.ExportFileName
	}
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, entries); err != nil {
		return err
	}
	if err := storage.WriteFileAtomic(out, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	fmt.Printf("✓ Exported %d entries to %s\n", len(entries), out)
	return nil
}
