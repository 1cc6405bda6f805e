package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kkkkikiki/quizgift/internal/migration"
	"github.com/kkkkikiki/quizgift/internal/repository"
	"github.com/kkkkikiki/quizgift/internal/settings"
	"github.com/kkkkikiki/quizgift/internal/ui"
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Create the current schema on a site without legacy tables",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		db, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer closeDB(db)

		m := migration.New(db, migration.Options{DefaultCampaignID: cfg.App.DefaultCampaignID})
		state, err := m.State(ctx)
		if err != nil {
			return err
		}
		for _, t := range state.Tables {
			if t.LegacyExists && !t.CurrentExists {
				return fmt.Errorf("legacy table %s found; run `quizgift migrate` instead", t.Legacy)
			}
		}

		if err := db.InstallSchema(ctx); err != nil {
			return err
		}
		options := repository.NewOptionRepository(db.Tables)
		if err := options.SetOption(ctx, db.Conn, settings.DBVersionOption, migration.SchemaVersion); err != nil {
			return err
		}
		fmt.Println(ui.RenderPass("Schema " + migration.SchemaVersion + " installed"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(installCmd)
}
