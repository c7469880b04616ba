package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/sprout/internal/metrics"
	"github.com/julianstephens/sprout/internal/migration"
)

// migrator is implemented by the SQL backends
type migrator interface {
	Runner() (*migration.Runner, error)
}

type DoctorCmd struct{}

func (cmd *DoctorCmd) Run(ctx *Context) error {
	fmt.Println("Running diagnostics...")
	fmt.Println()

	hasError := false
	reachable := false

	// Check 1: Storage reachable
	if err := checkStorageReachable(ctx); err != nil {
		fmt.Printf("❌ Storage reachable: FAIL\n")
		fmt.Printf("   Error: %v\n", err)
		hasError = true
	} else {
		fmt.Printf("✓ Storage reachable: OK\n")
		reachable = true
	}

	// Check 2: Schema version (SQL backends only)
	if _, ok := ctx.Store.(migrator); !ok {
		fmt.Printf("⊘ Schema version: SKIPPED (%s backend has no schema)\n", ctx.Config.Storage.Backend)
	} else if !reachable {
		fmt.Printf("⊘ Schema version: SKIPPED (storage not reachable)\n")
	} else if err := checkSchemaVersion(ctx); err != nil {
		fmt.Printf("❌ Schema version: FAIL\n")
		fmt.Printf("   Error: %v\n", err)
		hasError = true
	} else {
		fmt.Printf("✓ Schema version: OK\n")
	}

	// Check 3: Backups present (warning only)
	if err := checkBackupsPresent(ctx); err != nil {
		fmt.Printf("⚠ Backups present: WARNING\n")
		fmt.Printf("   %v\n", err)
	} else {
		fmt.Printf("✓ Backups present: OK\n")
	}

	// Check 4: Stored summaries match the entries they were derived from
	if reachable {
		if err := checkSummaries(ctx); err != nil {
			fmt.Printf("❌ Summary consistency: FAIL\n")
			fmt.Printf("   Error: %v\n", err)
			hasError = true
		} else {
			fmt.Printf("✓ Summary consistency: OK\n")
		}
	} else {
		fmt.Printf("⊘ Summary consistency: SKIPPED (storage not reachable)\n")
	}

	// Check 5: Clock/timezone sanity
	if err := checkClockTimezone(time.Now()); err != nil {
		fmt.Printf("❌ Clock/timezone: FAIL\n")
		fmt.Printf("   Error: %v\n", err)
		hasError = true
	} else {
		fmt.Printf("✓ Clock/timezone: OK\n")
	}

	fmt.Println()
	if hasError {
		fmt.Println("Diagnostics completed with errors.")
		return fmt.Errorf("one or more health checks failed")
	}

	fmt.Println("All diagnostics passed!")
	return nil
}

func checkStorageReachable(ctx *Context) error {
	if err := ctx.Store.Load(); err != nil {
		return fmt.Errorf("failed to load storage: %w", err)
	}
	if _, err := ctx.Store.GetAllUsers(); err != nil {
		return fmt.Errorf("failed to read users: %w", err)
	}
	return nil
}

func checkSchemaVersion(ctx *Context) error {
	m, ok := ctx.Store.(migrator)
	if !ok {
		return nil
	}
	runner, err := m.Runner()
	if err != nil {
		return err
	}

	if err := runner.ValidateVersion(); err != nil {
		return err
	}

	pending, err := runner.Pending()
	if err != nil {
		return fmt.Errorf("failed to check pending migrations: %w", err)
	}
	if pending > 0 {
		return fmt.Errorf("%d migration(s) pending, run 'sprout init' to apply them", pending)
	}
	return nil
}

func checkBackupsPresent(ctx *Context) error {
	mgr, err := ctx.BackupManager()
	if err != nil {
		return err
	}
	backups, err := mgr.ListBackups()
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}

	if len(backups) == 0 {
		return fmt.Errorf("no backups found - consider creating one with 'sprout backup create'")
	}

	return nil
}

// checkSummaries recomputes every user's summary and compares it with the
// stored one.
func checkSummaries(ctx *Context) error {
	users, err := ctx.Store.GetAllUsers()
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}

	var drifted []string
	for _, u := range users {
		entries, err := ctx.Store.GetEntries(u.Username)
		if err != nil {
			return fmt.Errorf("failed to read entries for %s: %w", u.Username, err)
		}
		stored, err := ctx.Store.GetSummary(u.Username)
		if err != nil {
			return fmt.Errorf("failed to read summary for %s: %w", u.Username, err)
		}
		if !metrics.Recompute(entries).Equal(stored) {
			drifted = append(drifted, u.Username)
		}
	}

	if len(drifted) > 0 {
		return fmt.Errorf("stale summary for %s; run 'sprout metrics --refresh' as that user", strings.Join(drifted, ", "))
	}
	return nil
}

func checkClockTimezone(now time.Time) error {
	// Check if time is in a reasonable range (after 2020 and before 2100)
	if now.Year() < 2020 || now.Year() > 2100 {
		return fmt.Errorf("system time appears incorrect: %s", now.Format(time.RFC3339))
	}

	// Check if timezone is set
	_, offset := now.Zone()
	if offset == 0 && now.Location() == time.UTC {
		// This might be intentional, so just note it
		fmt.Printf("   Note: timezone is UTC\n")
	}

	return nil
}
