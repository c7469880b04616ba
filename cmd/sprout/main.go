package main

import (
	"github.com/alecthomas/kong"

	"github.com/julianstephens/sprout/internal/cli"
	"github.com/julianstephens/sprout/internal/config"
	"github.com/julianstephens/sprout/internal/constants"
	"github.com/julianstephens/sprout/internal/errors"
	"github.com/julianstephens/sprout/internal/logger"
)

var CLI struct {
	Version kong.VersionFlag
	Config  string `help:"Config file path. Defaults to ~/.config/sprout/config.yaml." env:"SPROUT_CONFIG" type:"string"`
	Verbose bool   `help:"Log debug output to stderr." short:"v"`

	Init    cli.InitCmd    `cmd:"" help:"Initialize sprout storage."`
	Signup  cli.SignupCmd  `cmd:"" help:"Create an account."`
	Login   cli.LoginCmd   `cmd:"" help:"Log in and remember the session."`
	Logout  cli.LogoutCmd  `cmd:"" help:"Forget the saved session."`
	Whoami  cli.WhoamiCmd  `cmd:"" help:"Show the logged in user."`
	Tui     cli.TuiCmd     `cmd:"" help:"Launch the interactive TUI." default:"1"`
	Serve   cli.ServeCmd   `cmd:"" help:"Run the HTTP API."`
	Doctor  cli.DoctorCmd  `cmd:"" help:"Run health checks and diagnostics."`
	Metrics cli.MetricsCmd `cmd:"" help:"Show your progress."`
	Export  cli.ExportCmd  `cmd:"" help:"Export your journal as CSV."`
	Entry   struct {
		Add  cli.EntryAddCmd  `cmd:"" help:"Write a reflection."`
		List cli.EntryListCmd `cmd:"" help:"List reflections, newest first."`
	} `cmd:"" help:"Manage journal entries."`
	Challenge cli.ChallengeCmd `cmd:"" help:"Show a daily challenge."`
	Quote     cli.QuoteCmd     `cmd:"" help:"Show an inspirational quote."`
	Learn     cli.LearnCmd     `cmd:"" help:"Read about growth and fixed mindsets."`
	Backup    struct {
		Create  cli.BackupCreateCmd  `cmd:"" help:"Create a manual backup." default:"1"`
		List    cli.BackupListCmd    `cmd:"" help:"List available backups."`
		Restore cli.BackupRestoreCmd `cmd:"" help:"Restore from a backup."`
	} `cmd:"" help:"Manage journal backups."`
	Keyring struct {
		Set    cli.KeyringSetCmd    `cmd:"" help:"Store the PostgreSQL connection string."`
		Get    cli.KeyringGetCmd    `cmd:"" help:"Show the stored connection string."`
		Delete cli.KeyringDeleteCmd `cmd:"" help:"Delete the stored connection string."`
		Status cli.KeyringStatusCmd `cmd:"" help:"Check keyring availability."`
	} `cmd:"" help:"Manage credentials in the OS keyring."`
	Debug cli.DebugCmd `cmd:"" help:"Debug commands for troubleshooting."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Growth mindset journal"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version":     constants.Version,
			"export_file": constants.ExportFileName,
		},
	)

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		errors.Fatal(err)
	}

	command := ctx.Command()
	if err := logger.Init(logger.Config{
		Debug:     CLI.Verbose || cfg.Log.Debug,
		ConfigDir: cfg.Dir,
		Stderr:    command == "serve",
	}); err != nil {
		errors.Fatal(err)
	}

	appCtx := &cli.Context{Config: cfg}
	if cli.NeedsStorage(command) {
		appCtx, err = cli.NewContext(cfg)
		if err != nil {
			errors.Fatal(err)
		}
		defer appCtx.Close()

		// init creates the storage itself
		if command != "init" {
			if err := appCtx.Store.Load(); err != nil {
				appCtx.Close()
				errors.Fatal(err)
			}
		}
	}

	if err := ctx.Run(appCtx); err != nil {
		appCtx.Close()
		errors.Fatal(err)
	}
}
