// Command import_storage loads a browser local-storage dump into the
// AgriSmart store, so accounts, bookings and saved predictions carry over.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"agri-smart/config"
	"agri-smart/farm"
	"agri-smart/logging"
)

func main() {
	if err := newCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newCmd() *cobra.Command {
	var (
		cfgPath string
		dbPath  string
		fresh   bool
	)
	cmd := &cobra.Command{
		Use:   "import_storage <dump.json>",
		Short: "Import a local-storage JSON dump",
		Long: `Import a local-storage JSON dump, as produced by JSON.stringify(localStorage)
in the browser or by "agrismart export". Every key is written in one
transaction; keys already in the store are overwritten.`,
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath, func(c *config.Config) {
				if dbPath != "" {
					c.Storage.Path = dbPath
				}
			})
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			log, err := logging.New(cfg.Logging, false)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			if fresh && strings.EqualFold(cfg.Storage.Backend, "sqlite") {
				removeSQLite(cmd, cfg.Storage.Path)
			}
			return run(cmd, cfg, log, args[0])
		},
	}
	cmd.Flags().StringVar(&cfgPath, "config", "", "path to the YAML config")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path, overrides storage.path")
	cmd.Flags().BoolVar(&fresh, "fresh", false, "delete the SQLite database before importing")
	return cmd
}

// removeSQLite deletes path and its WAL side files.
func removeSQLite(cmd *cobra.Command, path string) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Cleaning up existing database files...")
	for _, file := range []string{path, path + "-shm", path + "-wal"} {
		if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
			fmt.Fprintf(out, "Warning: Could not remove %s: %v\n", file, err)
		}
	}
}

func run(cmd *cobra.Command, cfg *config.Config, log *zap.Logger, path string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	mgr, err := farm.OpenManager(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer mgr.Close()

	fmt.Fprintf(out, "Importing %s...\n", path)
	keys, err := mgr.Import(ctx, f)
	if err != nil {
		return err
	}
	log.Info("imported storage dump", zap.String("file", path), zap.Int("keys", len(keys)))

	fmt.Fprintf(out, "\nImport complete! %d keys: %s\n", len(keys), strings.Join(keys, ", "))
	return printSummary(ctx, cmd, mgr)
}

func printSummary(ctx context.Context, cmd *cobra.Command, mgr *farm.Manager) error {
	out := cmd.OutOrStdout()
	accounts, err := mgr.Identity.Accounts(ctx)
	if err != nil {
		return err
	}
	listings, err := mgr.Catalog.Stored(ctx)
	if err != nil {
		return err
	}
	bookings, err := mgr.AllBookings(ctx)
	if err != nil {
		return err
	}
	saved, err := mgr.SavedPredictions(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\n%-20s %5s\n", "Collection", "Count")
	fmt.Fprintln(out, strings.Repeat("-", 26))
	fmt.Fprintf(out, "%-20s %5d\n", "Accounts", len(accounts))
	fmt.Fprintf(out, "%-20s %5d\n", "Equipment", len(listings))
	fmt.Fprintf(out, "%-20s %5d\n", "Bookings", len(bookings))
	fmt.Fprintf(out, "%-20s %5d\n", "Saved predictions", len(saved))
	return nil
}
