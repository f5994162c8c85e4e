package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"gameserver-backup/internal/backup"
	"gameserver-backup/internal/display"
	"gameserver-backup/internal/logging"
)

var cfgFile string

// CLI flag variables
var (
	targets     []string
	prefix      string
	workDir     string
	maxBackups  int
	compression string
	frequency   string
	weeklyDay   string
	gracePeriod time.Duration
	settleDelay time.Duration
	webhookURL  string

	dryRun  bool
	verbose bool
	quiet   bool
	logFile string
	noColor bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "gameserver-backup",
	Short: "Consistency-preserving backups for live game servers",
	Long: `gameserver-backup snapshots live game-server worlds without corrupting
them. For every target tied to a running service it warns players, pauses
autosaves through the server's screen console session, takes an rsync
snapshot, and resumes autosaves before archiving and uploading the
snapshot to the configured storage backend (local path, S3, GCS, or
Azure Blob). Old dated backup folders beyond the retention cap are
deleted afterwards.

Paused services are always resumed, whatever fails mid-run.

Examples:
  # Back up one world tied to the "mc-main" screen session
  gameserver-backup --target /srv/minecraft/world:mc-main:daily \
                    --config backup.yaml

  # Multiple targets, weekly world only backed up on Sundays
  gameserver-backup --target /srv/mc/world:mc-main:daily \
                    --target /srv/mc/creative:mc-creative:weekly \
                    --config backup.yaml

  # Rehearse without touching anything
  gameserver-backup --config backup.yaml --dry-run

  # Standalone retention sweep
  gameserver-backup prune --config backup.yaml`,
	RunE:          runBackup,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Configuration file flag
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.gameserver-backup.yaml)")

	// Backup flags
	rootCmd.PersistentFlags().StringArrayVar(&targets, "target", nil, "backup target as path[:service[:frequency]] (repeatable)")
	rootCmd.PersistentFlags().StringVar(&prefix, "prefix", "", "remote folder prefix for the backup set")
	rootCmd.PersistentFlags().StringVar(&workDir, "work-dir", "", "local working directory for snapshots and archives")
	rootCmd.PersistentFlags().IntVar(&maxBackups, "max-backups", 0, "number of dated backup folders to keep")
	rootCmd.PersistentFlags().StringVar(&compression, "compression", "", "archive compression (gzip, zstd, lz4, none)")
	rootCmd.Flags().StringVar(&frequency, "frequency", "", "default frequency for targets that do not set one (daily, weekly, monthly)")
	rootCmd.Flags().StringVar(&weeklyDay, "weekly-day", "", "weekday weekly targets run on (default sunday)")
	rootCmd.Flags().DurationVar(&gracePeriod, "grace-period", 0, "wait between player warning and pausing saves")
	rootCmd.Flags().DurationVar(&settleDelay, "settle-delay", 0, "wait after the flush directive before snapshotting")
	rootCmd.Flags().StringVar(&webhookURL, "webhook-url", "", "POST the run report to this URL when the run ends")

	// Operation flags
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "log every action without sending directives or writing data")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-error output")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also write logs to this file (truncated each run)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable color output")

	// Bind flags to viper
	viper.BindPFlag("targets", rootCmd.PersistentFlags().Lookup("target"))
	viper.BindPFlag("prefix", rootCmd.PersistentFlags().Lookup("prefix"))
	viper.BindPFlag("work_dir", rootCmd.PersistentFlags().Lookup("work-dir"))
	viper.BindPFlag("max_backups", rootCmd.PersistentFlags().Lookup("max-backups"))
	viper.BindPFlag("compression", rootCmd.PersistentFlags().Lookup("compression"))
	viper.BindPFlag("default_frequency", rootCmd.Flags().Lookup("frequency"))
	viper.BindPFlag("weekly_day", rootCmd.Flags().Lookup("weekly-day"))
	viper.BindPFlag("grace_period", rootCmd.Flags().Lookup("grace-period"))
	viper.BindPFlag("settle_delay", rootCmd.Flags().Lookup("settle-delay"))
	viper.BindPFlag("webhook_url", rootCmd.Flags().Lookup("webhook-url"))
	viper.BindPFlag("dry_run", rootCmd.PersistentFlags().Lookup("dry-run"))
	viper.BindPFlag("log_file", rootCmd.PersistentFlags().Lookup("log-file"))
}

// runBackup is the main execution function for the CLI
func runBackup(cmd *cobra.Command, args []string) error {
	if verbose && quiet {
		return fmt.Errorf("--verbose and --quiet flags are mutually exclusive")
	}

	config, err := buildConfig()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger, err := newLogger(config)
	if err != nil {
		return err
	}
	printer := display.NewStdoutPrinter(noColor)

	// An interrupt cancels the run; the orchestrator's finalizer still
	// resumes every paused service before the process exits.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orchestrator, err := backup.NewOrchestrator(ctx, config, logger)
	if err != nil {
		return err
	}

	report, err := orchestrator.Run(ctx)
	if report != nil && !quiet {
		printer.RunSummary(report)
	}
	return err
}

// newLogger builds the run logger from flags and configuration
func newLogger(config *backup.SystemConfig) (*logging.Logger, error) {
	level := logging.LogLevelNormal
	if verbose {
		level = logging.LogLevelVerbose
	}
	if quiet {
		level = logging.LogLevelQuiet
	}
	return logging.NewLogger(logging.Config{
		Level:   level,
		LogFile: config.LogFile,
	})
}

// buildConfig builds the tool configuration from the config file,
// environment, and CLI flags (already merged by viper)
func buildConfig() (*backup.SystemConfig, error) {
	config := &backup.SystemConfig{}

	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	parsed, err := backup.ParseCompressionType(string(config.Compression))
	if err != nil {
		return nil, err
	}
	config.Compression = parsed

	config.SetDefaults()

	if err := backup.NewValidator().ValidateSystemConfig(config); err != nil {
		return nil, err
	}
	return config, nil
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".gameserver-backup" (without extension).
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".gameserver-backup")
	}

	// Set environment variable prefix
	viper.SetEnvPrefix("GAMESERVER_BACKUP")
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		if verbose {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

// Version information (set by main package)
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
	goVersion = "unknown"
)

// SetVersionInfo sets the version information from build flags
func SetVersionInfo(v, bt, gc, gv string) {
	version = v
	buildTime = bt
	gitCommit = gc
	goVersion = gv
}

// createVersionCommand creates the version subcommand
func createVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("gameserver-backup version %s\n", version)
			fmt.Printf("Built: %s\n", buildTime)
			fmt.Printf("Commit: %s\n", gitCommit)
			fmt.Printf("Go version: %s\n", goVersion)
		},
	}
}

// createConfigCommand creates the config subcommand for generating sample config
func createConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Generate a sample configuration file",
		Long: `Generate a sample configuration file that can be used with the --config flag.

Examples:
  gameserver-backup config > backup.yaml`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s", sampleConfig)
		},
	}
}

// createShowConfigCommand creates a subcommand that dumps the effective
// configuration after merging file, environment, and flags
func createShowConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show-config",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := buildConfig()
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(config)
			if err != nil {
				return err
			}
			fmt.Print(string(data))
			return nil
		},
	}
}

const sampleConfig = `# gameserver-backup configuration file

# Backup targets: path[:service[:frequency]]
# service is the screen session name of the live server (omit for
# plain directories); frequency is daily, weekly, or monthly.
targets:
  - /srv/minecraft/world:mc-main:daily
  - /srv/minecraft/creative:mc-creative:weekly
  - /srv/minecraft/configs::monthly

# Storage backend: local, s3, gcs, or azure
storage:
  provider: S3
  s3:
    bucket: my-backups
    region: eu-central-1
    access_key: ""            # empty = default AWS credential chain
    secret_key: ""
  # local:
  #   base_path: /mnt/nas/backups
  # gcs:
  #   bucket: my-backups
  #   project_id: my-project
  #   credentials_path: /etc/gcs.json
  # azure:
  #   account_name: myaccount
  #   account_key: ""
  #   container_name: backups

prefix: backups               # remote folder holding the dated backup set
work_dir: /var/tmp            # local scratch space for snapshots/archives
max_backups: 7                # dated folders to keep
compression: GZIP             # GZIP, ZSTD, LZ4, or NONE

default_frequency: daily      # used by targets that set no frequency
weekly_day: sunday            # weekday weekly targets run on
grace_period: 30s             # wait between player warning and pause
settle_delay: 5s              # wait after save flush before snapshot

# Console directives (Minecraft defaults)
directives:
  pause_saves: save-off
  flush_saves: save-all
  resume_saves: save-on
  notify_format: "say %s"
notify_message: "Server backup starting soon. Brief lag possible."

webhook_url: ""               # optional run-report webhook
log_file: ""                  # optional log file, truncated each run
dry_run: false

# Environment variables with the GAMESERVER_BACKUP_ prefix override
# file settings, e.g. GAMESERVER_BACKUP_DRY_RUN=1
`

func init() {
	// Add subcommands
	rootCmd.AddCommand(createVersionCommand())
	rootCmd.AddCommand(createConfigCommand())
	rootCmd.AddCommand(createShowConfigCommand())
}
