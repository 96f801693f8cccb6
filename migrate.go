package main

import (
	"github.com/rpupo63/round/database"
	"github.com/rpupo63/round/models"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, err := openDatabase(getCfg(cmd))
		if err != nil {
			return err
		}
		if err := database.New(db).Migrate(cmd.Context()); err != nil {
			return err
		}
		log.Info().Msg("Migration complete")
		return nil
	},
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate gorm/gen query helpers and print a column mismatch report",
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, err := openDatabase(getCfg(cmd))
		if err != nil {
			return err
		}
		if reportOnly, _ := cmd.Flags().GetBool("report-only"); reportOnly {
			models.GenerateColumnMismatchReport(db)
			return nil
		}
		out, _ := cmd.Flags().GetString("out")
		return models.GenerateModels(db, out)
	},
}

func init() {
	generateCmd.Flags().String("out", "./generated", "Output directory for generated query code")
	generateCmd.Flags().Bool("report-only", false, "Only print the column mismatch report")
}
