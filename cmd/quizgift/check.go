package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/kkkkikiki/quizgift/internal/database"
	"github.com/kkkkikiki/quizgift/internal/requirements"
	"github.com/kkkkikiki/quizgift/internal/ui"
)

const checkConnectTimeout = 10 * time.Second

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify system requirements for running the plugin and its migration",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		// The checks still run without a database; the database ones then fail.
		connectCtx, cancel := context.WithTimeout(ctx, checkConnectTimeout)
		db, err := openDB(connectCtx)
		cancel()
		if err != nil {
			slog.Warn("running checks without a database", "error", err)
		} else {
			defer closeDB(db)
		}

		if failed := printChecks(ctx, db); failed > 0 {
			return fmt.Errorf("%d requirement(s) not met", failed)
		}
		fmt.Println(ui.RenderPass("All requirements met"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

// printChecks prints every requirement result and returns the number of failures
func printChecks(ctx context.Context, db *database.DB) int {
	fmt.Println(ui.RenderCategory("System requirements"))
	failed := 0
	for _, r := range requirements.NewChecker(cfg, db).Results(ctx) {
		fmt.Println(ui.RenderCheck(r.Name, r.Err))
		if !r.Passed() {
			failed++
		}
	}
	fmt.Println(ui.RenderSeparator())
	return failed
}
