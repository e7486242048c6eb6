package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	"github.com/uniedit/photos/internal/app"
	"github.com/uniedit/photos/internal/model"
	"github.com/uniedit/photos/internal/shared/config"
	"github.com/uniedit/photos/internal/shared/database/migrations"
)

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config named by --config, or the default search paths.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, nil
}

// newApp builds the application without starting background work. The caller
// must defer a.Stop().
func newApp() (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	a, err := app.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

// openDB opens a plain database/sql handle for schema management.
func openDB() (*sql.DB, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Database.IsMemory() {
		return nil, fmt.Errorf("database.driver is memory; nothing to migrate")
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	return db, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

var rootCmd = &cobra.Command{
	Use:          "photosctl",
	Short:        "Operate the photo storage quota service",
	SilenceUsage: true,
}

// migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := migrations.MigrateUp(db); err != nil {
			return err
		}

		status, err := migrations.GetStatus(db)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Schema at version %d\n", status.Version)
		return nil
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		steps, _ := cmd.Flags().GetInt("steps")

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := migrations.MigrateDown(db, steps); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Rolled back %d migration(s)\n", steps)
		return nil
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		status, err := migrations.GetStatus(db)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Version: %d\n", status.Version)
		fmt.Fprintf(out, "Latest:  %d\n", status.Latest)
		fmt.Fprintf(out, "Dirty:   %t\n", status.Dirty)
		if err := migrations.CheckDBMigrationStatus(db); err != nil {
			fmt.Fprintf(out, "Status:  %v\n", err)
		} else {
			fmt.Fprintln(out, "Status:  up to date")
		}
		return nil
	},
}

// purge-expired command
var purgeExpiredCmd = &cobra.Command{
	Use:   "purge-expired",
	Short: "Permanently remove trash older than the retention period",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Stop()

		ctx, cancel := signalContext()
		defer cancel()

		var result *model.SweepResult
		if cmd.Flags().Changed("retention") {
			retention, _ := cmd.Flags().GetDuration("retention")
			result, err = a.Photos().PurgeExpired(ctx, retention)
		} else {
			result, err = a.PurgeExpired(ctx)
		}
		if err != nil {
			return fmt.Errorf("purging expired trash: %w", err)
		}

		printSweep(cmd, result)
		return nil
	},
}

// audit command
var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Report accounts whose usage counter disagrees with their photos",
	RunE: func(cmd *cobra.Command, args []string) error {
		pageSize, _ := cmd.Flags().GetInt("page-size")
		failOnDrift, _ := cmd.Flags().GetBool("fail-on-drift")

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Stop()

		ctx, cancel := signalContext()
		defer cancel()

		reports, err := a.Photos().AuditDrift(ctx, pageSize)
		if err != nil {
			return fmt.Errorf("auditing ledger: %w", err)
		}

		printDrift(cmd, reports)
		if failOnDrift && len(reports) > 0 {
			return fmt.Errorf("%d account(s) drifted", len(reports))
		}
		return nil
	},
}

// plans command
var plansCmd = &cobra.Command{
	Use:   "plans",
	Short: "List the configured plan tiers",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Stop()

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TIER\tNAME\tLIMIT\tPRICE (CENTS/MONTH)")
		for _, t := range a.Photos().ListPlans() {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", t.TierID, t.DisplayName, model.FormatBytes(t.LimitBytes), t.MonthlyPriceCents)
		}
		return w.Flush()
	},
}

func printSweep(cmd *cobra.Command, result *model.SweepResult) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Accounts:  %d\n", result.AccountsProcessed)
	fmt.Fprintf(out, "Purged:    %d\n", result.PurgedCount)
	fmt.Fprintf(out, "Failed:    %d\n", result.FailedCount)
	fmt.Fprintf(out, "Reclaimed: %s\n", model.FormatBytes(result.ReclaimedDiskBytes))
	fmt.Fprintf(out, "Leftovers: %d\n", result.LeftoversRemoved)
}

func printDrift(cmd *cobra.Command, reports []model.DriftReport) {
	out := cmd.OutOrStdout()
	if len(reports) == 0 {
		fmt.Fprintln(out, "No drift found.")
		return
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ACCOUNT\tLEDGER BYTES\tACTIVE BYTES\tLEDGER COUNT\tACTIVE COUNT")
	for _, r := range reports {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\n", r.AccountID, r.LedgerBytes, r.ActiveBytes, r.LedgerCount, r.ActiveCount)
	}
	_ = w.Flush()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")

	migrateDownCmd.Flags().Int("steps", 1, "number of migrations to roll back")
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateStatusCmd)

	purgeExpiredCmd.Flags().Duration("retention", 30*24*time.Hour, "override photos.trash_retention")

	auditCmd.Flags().Int("page-size", 100, "accounts read per page")
	auditCmd.Flags().Bool("fail-on-drift", false, "exit non-zero when drift is found")

	rootCmd.AddCommand(migrateCmd, purgeExpiredCmd, auditCmd, plansCmd)
}
