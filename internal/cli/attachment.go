package cli

import (
	"context"
	"io"
	"os"

	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"
)

var attachmentOut string

func init() {
	attachmentCmd.Flags().StringVarP(&attachmentOut, "output", "o", "", "Write to this path instead of the original file name (- for stdout)")
	rootCmd.AddCommand(attachmentCmd)
}

var attachmentCmd = &cobra.Command{
	Use:   "attachment <ID>",
	Short: "Save a ticket's attachment",
	Long: `Copy a ticket's attachment out of the uploads directory. By default the
file is written under its original name in the current directory.

Examples:
  taskman attachment 12
  taskman attachment 12 -o ~/Desktop/report.pdf
  taskman attachment 12 -o - | less`,
	Args: cobra.ExactArgs(1),
	RunE: runAttachment,
}

func runAttachment(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	database, board, err := openBoard()
	if err != nil {
		return err
	}
	defer database.Close()

	f, name, err := board.OpenAttachment(context.Background(), id)
	if err != nil {
		return err
	}
	defer f.Close()

	if attachmentOut == "-" {
		if _, err := io.Copy(os.Stdout, f); err != nil {
			return ErrAttachment(err, "failed to write attachment")
		}
		return nil
	}

	dest := attachmentOut
	if dest == "" {
		dest = name
	}
	if err := atomic.WriteFile(dest, f); err != nil {
		return ErrAttachment(err, "failed to write %s", dest)
	}

	if IsJSON() {
		return printJSON(map[string]interface{}{"id": id, "name": name, "path": dest})
	}
	OutputLine("Saved %s", dest)
	return nil
}
