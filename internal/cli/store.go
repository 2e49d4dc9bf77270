package cli

import (
	"github.com/diogenes-ai-code/taskman/internal/db"
	"github.com/spf13/cobra"
)

func init() {
	storeCmd.AddCommand(storeListCmd)
	storeCmd.AddCommand(storeCreateCmd)
	rootCmd.AddCommand(storeCmd)
}

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Manage named stores",
	Long: `A store is one independent board kept as a *.db file in the data
directory. Select a store for any command with --store NAME.`,
}

var storeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stores in the data directory",
	Args:  cobra.NoArgs,
	RunE:  runStoreList,
}

var storeCreateCmd = &cobra.Command{
	Use:   "create <NAME>",
	Short: "Create a new empty store",
	Long: `Create a new store in the data directory. The .db extension is added
when missing. An existing store is never overwritten.

Examples:
  taskman store create work
  taskman --store work add "Quarterly report"`,
	Args: cobra.ExactArgs(1),
	RunE: runStoreCreate,
}

type storeEntry struct {
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

func runStoreList(cmd *cobra.Command, args []string) error {
	names, err := db.ListStores(GetDataDir())
	if err != nil {
		return ErrStorage(err, "failed to list stores")
	}

	active := GetStoreName()
	entries := make([]storeEntry, 0, len(names))
	for _, name := range names {
		entries = append(entries, storeEntry{Name: name, Active: name == active})
	}

	if IsJSON() {
		return printJSON(entries)
	}

	if len(entries) == 0 {
		OutputLine("No stores in %s. Run 'taskman init' to create one.", GetDataDir())
		return nil
	}
	for _, e := range entries {
		marker := " "
		if e.Active {
			marker = "*"
		}
		OutputLine("%s %s", marker, e.Name)
	}
	return nil
}

func runStoreCreate(cmd *cobra.Command, args []string) error {
	path, err := db.CreateStore(GetDataDir(), args[0])
	if err != nil {
		return err
	}

	if IsJSON() {
		return printJSON(map[string]string{"name": db.StoreName(args[0]), "path": path})
	}
	OutputLine("Created store %s at %s", db.StoreName(args[0]), path)
	return nil
}
