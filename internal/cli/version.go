package cli

import (
	"fmt"
	"runtime"

	"github.com/diogenes-ai-code/taskman/internal/db"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long:  `Display the version of taskman, build date, Go version, and store information.`,
	RunE:  runVersion,
}

type versionInfo struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
	Store     string `json:"store,omitempty"`
	Schema    int64  `json:"schema_version,omitempty"`
}

func runVersion(cmd *cobra.Command, args []string) error {
	info := versionInfo{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}

	// Report the store without creating it.
	storePath := GetStorePath()
	if db.Exists(storePath) {
		info.Store = storePath
		database, err := db.Open(storePath)
		if err == nil {
			defer database.Close()
			if version, err := database.MigrationStatus(); err == nil {
				info.Schema = version
			}
		}
	}

	if IsJSON() {
		return printJSON(info)
	}

	// Compact format matching --version: taskman v0.1.0 (9f61316, 2026-02-02)
	fmt.Printf("taskman %s (%s, %s)\n", info.Version, shortCommit(), shortDate())
	fmt.Printf("Go: %s\n", info.GoVersion)
	fmt.Printf("Platform: %s\n", info.Platform)

	if info.Store != "" {
		fmt.Printf("Store: %s (schema v%d)\n", info.Store, info.Schema)
	} else {
		fmt.Println("Store: not initialized (run 'taskman init')")
	}

	return nil
}
