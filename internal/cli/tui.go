package cli

import (
	stderrors "errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/sprout/internal/errors"
	"github.com/julianstephens/sprout/internal/keyring"
	"github.com/julianstephens/sprout/internal/logger"
	"github.com/julianstephens/sprout/internal/tui"
)

type TuiCmd struct{}

func (c *TuiCmd) Run(ctx *Context) error {
	// Perform automatic backup on TUI startup (after successful load)
	ctx.PerformAutomaticBackup()

	deps := tui.Deps{
		Accounts: ctx.Accounts,
		Sessions: ctx.Sessions,
		Journal:  ctx.Journal,
		OnLogin:  keyring.SetToken,
	}

	// An expired or missing session falls through to the login form
	sess, err := ctx.CurrentSession()
	switch {
	case err == nil:
		deps.Session = &sess
	case errors.IsAuth(err), stderrors.Is(err, keyring.ErrKeyringUnavailable):
		logger.Debug("No usable session, showing login", "reason", err)
	default:
		return err
	}

	p := tea.NewProgram(tui.NewModel(deps), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Alas, there's been an error: %v", err)
		os.Exit(1)
	}
	return nil
}
