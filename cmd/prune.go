package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"gameserver-backup/internal/backup"
	"gameserver-backup/internal/display"
)

// pruneCmd runs a standalone retention sweep without taking a backup
var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete dated backup folders beyond the retention cap",
	Long: `Prune lists the dated folders under the remote prefix and deletes the
oldest ones beyond max_backups, exactly as the end of a normal backup
run would. Nothing is paused and no snapshot is taken.

Examples:
  gameserver-backup prune --config backup.yaml
  gameserver-backup prune --config backup.yaml --max-backups 3 --dry-run`,
	RunE: runPrune,
}

func runPrune(cmd *cobra.Command, args []string) error {
	config, err := buildPruneConfig()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger, err := newLogger(config)
	if err != nil {
		return err
	}
	printer := display.NewStdoutPrinter(noColor)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	storage, err := backup.NewStorageProviderFactory().CreateStorageProvider(ctx, config.Storage)
	if err != nil {
		return err
	}

	retention := backup.NewRetentionManager(storage, config.Prefix, config.DryRun, logger)
	result, err := retention.EnforceRetention(ctx, config.MaxBackups)
	if err != nil {
		return err
	}

	if !quiet {
		if result.DryRun {
			printer.Infof("Dry run: would delete %d of %d dated folder(s) under %s/%s",
				result.Deleted(), result.Matched, storage.Location(), config.Prefix)
		} else {
			printer.Successf("Deleted %d of %d dated folder(s) under %s/%s",
				result.Deleted(), result.Matched, storage.Location(), config.Prefix)
		}
		for _, folder := range result.DeletedFolders {
			printer.Infof("  %s", folder)
		}
		for _, failure := range result.Errors {
			printer.Errorf("  failed: %s", failure)
		}
	}

	if len(result.Errors) > 0 {
		return fmt.Errorf("%d folder deletion(s) failed", len(result.Errors))
	}
	return nil
}

// buildPruneConfig builds configuration for prune, which needs storage
// and retention settings but no targets
func buildPruneConfig() (*backup.SystemConfig, error) {
	config, err := buildConfig()
	if err == nil {
		return config, nil
	}

	// Target validation does not apply to prune; retry without it
	config = &backup.SystemConfig{}
	if unmarshalErr := viper.Unmarshal(config); unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", unmarshalErr)
	}
	config.SetDefaults()

	validator := backup.NewValidator()
	if storageErr := validator.ValidateStorageConfig(config.Storage); storageErr != nil {
		return nil, storageErr
	}
	if config.MaxBackups < 1 {
		return nil, fmt.Errorf("max_backups must be at least 1")
	}
	return config, nil
}

func init() {
	rootCmd.AddCommand(pruneCmd)
}
