package cli

import (
	"context"
	"strconv"

	"github.com/diogenes-ai-code/taskman/internal/common"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(nextCmd)
	rootCmd.AddCommand(prevCmd)
	rootCmd.AddCommand(upCmd)
	rootCmd.AddCommand(downCmd)
	rootCmd.AddCommand(dragCmd)
	rootCmd.AddCommand(reorderCmd)
	rootCmd.AddCommand(expandCmd)
	rootCmd.AddCommand(collapseCmd)
	rootCmd.AddCommand(expandAllCmd)
	rootCmd.AddCommand(collapseAllCmd)
}

var nextCmd = &cobra.Command{
	Use:   "next <ID>",
	Short: "Move a ticket one column right",
	Long:  `Move a ticket one column right. A ticket already in Done stays put.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStep(args[0], true)
	},
}

var prevCmd = &cobra.Command{
	Use:   "prev <ID>",
	Short: "Move a ticket one column left",
	Long:  `Move a ticket one column left. A ticket already in Todo stays put.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStep(args[0], false)
	},
}

var upCmd = &cobra.Command{
	Use:   "up <ID>",
	Short: "Move a ticket one place up in its column",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runShift(args[0], -1)
	},
}

var downCmd = &cobra.Command{
	Use:   "down <ID>",
	Short: "Move a ticket one place down in its column",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runShift(args[0], 1)
	},
}

var dragCmd = &cobra.Command{
	Use:   "drag <ID> <STATUS> <INDEX>",
	Short: "Drop a ticket at a position in any column",
	Long: `Drop a ticket at INDEX (0 is the top) of the STATUS column, as a
drag and drop would. Indexes past the end place the ticket last.

Examples:
  taskman drag 12 Done 0
  taskman drag 7 doing 3`,
	Args: cobra.ExactArgs(3),
	RunE: runDrag,
}

var reorderCmd = &cobra.Command{
	Use:   "reorder <STATUS> <ID>...",
	Short: "Set the order of a column",
	Long: `Set the order of a column. Listed tickets are moved into the column
in the given order. Column members left out keep their relative order after them.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runReorder,
}

var expandCmd = &cobra.Command{
	Use:   "expand <ID>",
	Short: "Show a card's detail on the board",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSetExpanded(args[0], true)
	},
}

var collapseCmd = &cobra.Command{
	Use:   "collapse <ID>",
	Short: "Hide a card's detail on the board",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSetExpanded(args[0], false)
	},
}

var expandAllCmd = &cobra.Command{
	Use:   "expand-all",
	Short: "Expand every card",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSetAllExpanded(true)
	},
}

var collapseAllCmd = &cobra.Command{
	Use:   "collapse-all",
	Short: "Collapse every card",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSetAllExpanded(false)
	},
}

type moveResult struct {
	ID     int64  `json:"id"`
	Moved  bool   `json:"moved"`
	Status string `json:"status,omitempty"`
}

func runStep(arg string, forward bool) error {
	id, err := parseID(arg)
	if err != nil {
		return err
	}

	database, board, err := openBoard()
	if err != nil {
		return err
	}
	defer database.Close()

	step := board.Retreat
	if forward {
		step = board.Advance
	}
	ticket, moved, err := step(context.Background(), id)
	if err != nil {
		return err
	}

	if IsJSON() {
		return printJSON(moveResult{ID: id, Moved: moved, Status: string(ticket.Status)})
	}
	if !moved {
		OutputLine("#%d stays in %s", id, ticket.Status)
		return nil
	}
	OutputLine("#%d -> %s", id, ticket.Status)
	return nil
}

func runShift(arg string, delta int) error {
	id, err := parseID(arg)
	if err != nil {
		return err
	}

	database, board, err := openBoard()
	if err != nil {
		return err
	}
	defer database.Close()

	moved, err := board.Shift(context.Background(), id, delta)
	if err != nil {
		return err
	}

	if IsJSON() {
		return printJSON(moveResult{ID: id, Moved: moved})
	}
	switch {
	case !moved:
		OutputLine("#%d is already at the edge of its column", id)
	case delta < 0:
		OutputLine("#%d moved up", id)
	default:
		OutputLine("#%d moved down", id)
	}
	return nil
}

func runDrag(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	status, err := parseStatus(args[1])
	if err != nil {
		return err
	}
	index, err := strconv.Atoi(args[2])
	if err != nil {
		return ErrInvalidArgs("invalid index %q", args[2])
	}

	database, board, err := openBoard()
	if err != nil {
		return err
	}
	defer database.Close()

	if err := board.DragMove(context.Background(), id, status, index); err != nil {
		return err
	}

	if IsJSON() {
		return printJSON(moveResult{ID: id, Moved: true, Status: string(status)})
	}
	OutputLine("#%d -> %s", id, status)
	return nil
}

func runReorder(cmd *cobra.Command, args []string) error {
	status, err := parseStatus(args[0])
	if err != nil {
		return err
	}
	ids, err := common.ParseTicketIDs(args[1:])
	if err != nil {
		return ErrInvalidArgsWithSuggestion(SuggestTicketID, "%v", err)
	}

	database, board, err := openBoard()
	if err != nil {
		return err
	}
	defer database.Close()

	if err := board.Reorder(context.Background(), status, ids); err != nil {
		return err
	}

	if IsJSON() {
		return printJSON(map[string]interface{}{"status": status, "ids": ids})
	}
	OutputLine("Reordered %s", status)
	return nil
}

func runSetExpanded(arg string, expanded bool) error {
	id, err := parseID(arg)
	if err != nil {
		return err
	}

	database, board, err := openBoard()
	if err != nil {
		return err
	}
	defer database.Close()

	if err := board.SetExpanded(context.Background(), id, expanded); err != nil {
		return err
	}

	if IsJSON() {
		return printJSON(map[string]interface{}{"id": id, "expanded": expanded})
	}
	if expanded {
		OutputLine("Expanded #%d", id)
	} else {
		OutputLine("Collapsed #%d", id)
	}
	return nil
}

func runSetAllExpanded(expanded bool) error {
	database, board, err := openBoard()
	if err != nil {
		return err
	}
	defer database.Close()

	if err := board.SetAllExpanded(context.Background(), expanded); err != nil {
		return err
	}

	if IsJSON() {
		return printJSON(map[string]bool{"expanded": expanded})
	}
	if expanded {
		OutputLine("Expanded all cards")
	} else {
		OutputLine("Collapsed all cards")
	}
	return nil
}
