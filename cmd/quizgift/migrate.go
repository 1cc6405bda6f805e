package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/kkkkikiki/quizgift/internal/migration"
	"github.com/kkkkikiki/quizgift/internal/ui"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate the legacy quiz tables to the current schema",
	Long: `Renames the pre-2.0 quiz tables, creates the participants table, adds the
new columns and indexes, backfills participants from legacy users and sessions,
and records the schema version. Every step is safe to re-run.

With --rollback, drops the participants table, restores the legacy table
names and removes the recorded version.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		rollback, _ := cmd.Flags().GetBool("rollback")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		autoYes, _ := cmd.Flags().GetBool("yes")
		force, _ := cmd.Flags().GetBool("force")

		db, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer closeDB(db)

		if failed := printChecks(ctx, db); failed > 0 && !dryRun {
			if !force {
				return fmt.Errorf("%d requirement(s) not met; fix them or pass --force", failed)
			}
			fmt.Println(ui.RenderWarn("Continuing despite failed requirements (--force)"))
		}

		if !dryRun && !autoYes {
			action := "Migrate"
			if rollback {
				action = "Roll back"
			}
			confirmed := false
			err := huh.NewConfirm().
				Title(action + " the quiz tables in " + cfg.Database.Name + "?").
				Description("Make sure you have a backup of the database.").
				Affirmative(action).
				Negative("Cancel").
				Value(&confirmed).
				Run()
			if err != nil && !errors.Is(err, huh.ErrUserAborted) {
				return fmt.Errorf("confirmation prompt: %w", err)
			}
			if !confirmed {
				fmt.Println("Cancelled.")
				return nil
			}
		}

		m := migration.New(db, migration.Options{DryRun: dryRun, DefaultCampaignID: cfg.App.DefaultCampaignID})
		var report *migration.Report
		if rollback {
			report = m.Rollback(ctx)
		} else {
			report = m.Run(ctx)
		}

		printReport(report)
		if err := report.Err(); err != nil {
			return fmt.Errorf("%d step(s) failed: %w", report.Count(migration.StatusFailed), err)
		}
		return nil
	},
}

func init() {
	migrateCmd.Flags().Bool("rollback", false, "Undo the migration")
	migrateCmd.Flags().Bool("dry-run", false, "Show what would be done without making changes")
	migrateCmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
	migrateCmd.Flags().Bool("force", false, "Run even when system requirements are not met")
	rootCmd.AddCommand(migrateCmd)
}

func printReport(r *migration.Report) {
	title := "Migration"
	if r.Rollback {
		title = "Rollback"
	}
	if r.DryRun {
		title += " (dry run)"
	}
	fmt.Println(ui.RenderCategory(title))
	for _, s := range r.Steps {
		fmt.Println(ui.RenderStep(s))
		if s.Err != nil {
			fmt.Println("   " + ui.RenderFail(s.Err.Error()))
		}
	}
	fmt.Println(ui.RenderSeparator())
	fmt.Println(ui.RenderMuted(fmt.Sprintf("%d done, %d skipped, %d pending, %d failed in %s",
		r.Count(migration.StatusDone),
		r.Count(migration.StatusSkipped),
		r.Count(migration.StatusPending),
		r.Count(migration.StatusFailed),
		r.Duration().Round(time.Millisecond))))
}
