package cli

import (
	"os"
	"path/filepath"

	"github.com/diogenes-ai-code/taskman/internal/config"
	"github.com/diogenes-ai-code/taskman/internal/db"
	"github.com/spf13/cobra"
)

var initForce bool

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing store")
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize taskman for first-time use",
	Long: `Initialize taskman by creating the data directory and the active store.

This command:
- Creates ~/.taskman/ (or --data-dir) if it doesn't exist
- Creates the active store (tickets.db unless --store is given)
- Runs any pending migrations
- Writes a sample config.toml when none exists

Use --force to overwrite an existing store.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

type initResult struct {
	Store   string `json:"store"`
	Path    string `json:"path"`
	Created bool   `json:"created"`
	Schema  int64  `json:"schema_version"`
	Config  string `json:"config,omitempty"`
}

func runInit(cmd *cobra.Command, args []string) error {
	storePath := GetStorePath()

	if db.Exists(storePath) && !initForce {
		if IsJSON() {
			return printJSON(initResult{Store: GetStoreName(), Path: storePath})
		}
		return ErrInvalidArgsWithSuggestion(
			"Use --force to overwrite it, or 'taskman store create' for another board.",
			"store already exists at %s", storePath)
	}

	if initForce && db.Exists(storePath) {
		VerboseOutput("Removing existing store...\n")
		for _, suffix := range []string{"", "-wal", "-shm"} {
			if err := os.Remove(storePath + suffix); err != nil && !os.IsNotExist(err) {
				return ErrStorage(err, "failed to remove existing store")
			}
		}
	}

	VerboseOutput("Creating store...\n")
	database, err := db.OpenStore(GetDataDir(), GetStoreName())
	if err != nil {
		return ErrStorage(err, "failed to create store")
	}
	defer database.Close()

	version, err := database.MigrationStatus()
	if err != nil {
		return ErrStorage(err, "failed to get migration status")
	}

	if err := os.MkdirAll(GetUploadsDir(), 0755); err != nil {
		return ErrAttachment(err, "failed to create uploads directory")
	}

	result := initResult{
		Store:   database.Name(),
		Path:    database.Path(),
		Created: true,
		Schema:  version,
	}

	// A sample config only goes next to the default data directory.
	if dataDir == "" {
		configPath := config.DefaultConfigPath()
		if configPath != "" && !db.Exists(configPath) && filepath.Dir(configPath) == GetDataDir() {
			if err := config.WriteConfigFile(configPath); err != nil {
				logger.Warn("failed to write sample config", "path", configPath, "error", err)
			} else {
				result.Config = configPath
			}
		}
	}

	if IsJSON() {
		return printJSON(result)
	}

	OutputLine("Initialized taskman store at %s", result.Path)
	OutputLine("Schema version: %d", version)
	if result.Config != "" {
		OutputLine("Wrote sample config to %s", result.Config)
	}
	return nil
}
