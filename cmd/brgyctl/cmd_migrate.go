package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/noah-isme/brgy-records-api/pkg/database"
)

var printSchema bool

// migrateCmd applies the embedded schema
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	Long: `Apply the embedded schema to the configured database.

Every statement is idempotent, so migrate is safe to re-run.`,
	RunE: runMigrate,
}

func init() {
	migrateCmd.Flags().BoolVar(&printSchema, "print", false, "Print the schema instead of applying it")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	if printSchema {
		_, err := fmt.Fprint(cmd.OutOrStdout(), database.Schema())
		return err
	}

	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.close()

	ctx, cancel := commandContext(cmd)
	defer cancel()
	if err := database.Migrate(ctx, e.db); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "schema applied")
	return nil
}
