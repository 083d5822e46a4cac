// Command brgyctl runs operational tasks against the records database.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/brgy-records-api/pkg/config"
	"github.com/noah-isme/brgy-records-api/pkg/database"
	"github.com/noah-isme/brgy-records-api/pkg/logger"
)

var timeout time.Duration

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "brgyctl",
	Short: "Barangay records operations tool",
	Long: `brgyctl manages the barangay records database outside the API server.

Configuration is read from the environment and .env, exactly like the server.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "Operation timeout")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(createAdminCmd)
	rootCmd.AddCommand(exportCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// env bundles what every subcommand needs.
type env struct {
	cfg    *config.Config
	db     *sqlx.DB
	logger *zap.Logger
}

func (e *env) close() {
	_ = e.db.Close()
	_ = e.logger.Sync()
}

func openEnv() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &env{cfg: cfg, db: db, logger: logr}, nil
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), timeout)
}
