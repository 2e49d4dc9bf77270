package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/diogenes-ai-code/taskman/internal/attachment"
	"github.com/diogenes-ai-code/taskman/internal/backup"
	"github.com/diogenes-ai-code/taskman/internal/config"
	"github.com/diogenes-ai-code/taskman/internal/db"
	"github.com/diogenes-ai-code/taskman/internal/service"
	"github.com/spf13/cobra"
)

// Version information (set at build time via ldflags)
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Global flags
var (
	storeName string
	dataDir   string
	jsonOut   bool
	quiet     bool
	verbose   bool
	noColor   bool
)

// Global configuration (loaded once at startup)
var globalConfig *config.Config

// logger is rebuilt from the verbosity flags before each command runs.
var logger = slog.New(slog.DiscardHandler)

// Exit codes, shared with the error kinds in internal/errors.
const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	ExitInvalidArgs  = 2
	ExitNotFound     = 3
	ExitStorageError = 5
	ExitAttachment   = 7
)

// skipBackupCommands lists commands that should not trigger automatic backup.
// These are either commands that don't need a store, or that create one.
var skipBackupCommands = map[string]bool{
	"help":       true,
	"version":    true,
	"init":       true,
	"completion": true,
}

var rootCmd = &cobra.Command{
	Use:   "taskman",
	Short: "Local-first kanban board for personal tasks",
	Long: `Taskman keeps tickets on a three-column board (Todo, Doing, Done) in a
local SQLite store.

Tickets carry a due date, a priority, free-form tags, an optional attachment
and a checklist of subtasks. Several independent boards can be kept as named
stores in the data directory.

Use "taskman init" to create the data directory and default store.
Use "taskman --help" to see all available commands.`,
	Version:       Version,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogger()
		return runAutoBackup(cmd)
	},
}

func init() {
	// Load global configuration at startup
	var err error
	globalConfig, err = config.Load()
	if err != nil {
		// If config file is invalid, print warning but continue with defaults
		fmt.Fprintf(os.Stderr, "Warning: failed to load config file: %v\n", err)
		globalConfig = config.DefaultConfig()
	}

	rootCmd.PersistentFlags().StringVar(&storeName, "store", "", "Store to use (default tickets.db)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Directory holding stores (default ~/.taskman)")
	rootCmd.PersistentFlags().BoolVarP(&jsonOut, "json", "j", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-essential output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	// Set version template for --version flag
	rootCmd.SetVersionTemplate(fmt.Sprintf("taskman %s (%s, %s)\n", Version, shortCommit(), shortDate()))

	// Add commands
	rootCmd.AddCommand(versionCmd)
}

// shortCommit returns the first 7 characters of the git commit hash
func shortCommit() string {
	if len(GitCommit) >= 7 {
		return GitCommit[:7]
	}
	return GitCommit
}

// shortDate returns just the date portion of BuildDate (YYYY-MM-DD)
func shortDate() string {
	if len(BuildDate) >= 10 {
		return BuildDate[:10]
	}
	return BuildDate
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// setupLogger sends warnings to stderr, everything with --verbose and only
// errors with --quiet.
func setupLogger() {
	level := slog.LevelWarn
	switch {
	case quiet:
		level = slog.LevelError
	case verbose:
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// runAutoBackup performs automatic backup if needed before command execution.
// It skips backup for commands that don't need it (help, version, init).
func runAutoBackup(cmd *cobra.Command) error {
	if skipBackupCommands[cmd.Name()] {
		return nil
	}

	if globalConfig == nil || !globalConfig.Backup.Enabled {
		return nil
	}

	storePath := GetStorePath()

	// Nothing to back up before the store exists
	if !db.Exists(storePath) {
		return nil
	}

	cfg := globalConfig.Backup
	cfg.Path = db.ExpandPath(cfg.Path)
	mgr := backup.NewManager(storePath, cfg)
	backupPath, err := mgr.BackupIfNeeded()
	if err != nil {
		// Log warning but don't fail the command
		logger.Warn("automatic backup failed", "store", storePath, "error", err)
		return nil
	}

	if backupPath != "" {
		logger.Debug("created backup", "path", backupPath)
	}

	return nil
}

// GetDataDir returns the data directory from flags, config, or default.
// Priority: flag > env > config file > default
func GetDataDir() string {
	if dataDir != "" {
		return db.ExpandPath(dataDir)
	}
	return db.ExpandPath(GetConfig().GetDataDir())
}

// GetStoreName returns the active store name from flags, config, or default.
func GetStoreName() string {
	if storeName != "" {
		return db.StoreName(storeName)
	}
	return db.StoreName(GetConfig().Store)
}

// GetStorePath returns the file path of the active store.
func GetStorePath() string {
	return db.StorePath(GetDataDir(), GetStoreName())
}

// GetUploadsDir returns the attachment directory. Without an explicit
// uploads_dir it follows the data directory, including --data-dir.
func GetUploadsDir() string {
	cfg := GetConfig()
	if cfg.UploadsDir != "" {
		return db.ExpandPath(cfg.UploadsDir)
	}
	return filepath.Join(GetDataDir(), "uploads")
}

// openBoard opens the active store, creating and migrating it when needed,
// and returns a board service over it. The caller closes the store.
func openBoard() (*db.DB, *service.BoardService, error) {
	database, err := db.OpenStore(GetDataDir(), GetStoreName())
	if err != nil {
		return nil, nil, ErrStorage(err, "failed to open store %s", GetStoreName())
	}
	files := attachment.NewStore(GetUploadsDir(), GetConfig().Uploads.AllowedExt...)
	return database, service.NewBoardService(database.DB, files, logger), nil
}

// IsJSON returns whether JSON output is requested
func IsJSON() bool {
	return jsonOut
}

// IsNoColor returns whether colored output should be disabled.
// Priority: flag > env > config file > default
func IsNoColor() bool {
	if noColor {
		return true
	}
	return GetConfig().NoColor
}

// GetConfig returns the global configuration.
func GetConfig() *config.Config {
	if globalConfig != nil {
		return globalConfig
	}
	return config.DefaultConfig()
}

// IsQuiet returns whether quiet mode is enabled
func IsQuiet() bool {
	return quiet
}

// IsVerbose returns whether verbose mode is enabled
func IsVerbose() bool {
	return verbose
}

// Output prints to stdout unless quiet mode is enabled
func Output(format string, args ...interface{}) {
	if !quiet {
		fmt.Printf(format, args...)
	}
}

// OutputLine prints a line to stdout unless quiet mode is enabled
func OutputLine(format string, args ...interface{}) {
	if !quiet {
		fmt.Printf(format+"\n", args...)
	}
}

// VerboseOutput prints to stdout only in verbose mode
func VerboseOutput(format string, args ...interface{}) {
	if verbose && !quiet {
		fmt.Printf(format, args...)
	}
}

// ErrorOutput prints to stderr
func ErrorOutput(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format, args...)
}

// printJSON writes v as indented JSON on stdout.
func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
