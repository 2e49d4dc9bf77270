package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/diogenes-ai-code/taskman/internal/models"
	"github.com/spf13/cobra"
)

func init() {
	subtaskCmd.AddCommand(subtaskListCmd)
	subtaskCmd.AddCommand(subtaskAddCmd)
	subtaskCmd.AddCommand(subtaskDoneCmd)
	subtaskCmd.AddCommand(subtaskUndoCmd)
	subtaskCmd.AddCommand(subtaskRmCmd)
	rootCmd.AddCommand(subtaskCmd)
}

var subtaskCmd = &cobra.Command{
	Use:   "subtask",
	Short: "Manage a ticket's checklist",
	Long: `Each ticket carries an ordered checklist of subtasks.

Examples:
  taskman subtask add 12 "Draft outline"
  taskman subtask list 12
  taskman subtask done 31
  taskman subtask rm 31`,
}

var subtaskListCmd = &cobra.Command{
	Use:   "list <TICKET_ID>",
	Short: "List a ticket's subtasks",
	Args:  cobra.ExactArgs(1),
	RunE:  runSubtaskList,
}

var subtaskAddCmd = &cobra.Command{
	Use:   "add <TICKET_ID> <TITLE>...",
	Short: "Append a subtask",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runSubtaskAdd,
}

var subtaskDoneCmd = &cobra.Command{
	Use:   "done <SUBTASK_ID>",
	Short: "Mark a subtask done",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSubtaskToggle(args[0], true)
	},
}

var subtaskUndoCmd = &cobra.Command{
	Use:   "undo <SUBTASK_ID>",
	Short: "Mark a subtask not done",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSubtaskToggle(args[0], false)
	},
}

var subtaskRmCmd = &cobra.Command{
	Use:   "rm <SUBTASK_ID>",
	Short: "Remove a subtask",
	Args:  cobra.ExactArgs(1),
	RunE:  runSubtaskRm,
}

func subtaskLine(st *models.Subtask) string {
	box := "[ ]"
	title := st.Title
	if st.Done {
		box = "[x]"
		title = colorize(ansiDim, title)
	}
	return fmt.Sprintf("  %s %s  %s", box, title, colorize(ansiDim, fmt.Sprintf("(%d)", st.ID)))
}

func runSubtaskList(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	database, board, err := openBoard()
	if err != nil {
		return err
	}
	defer database.Close()

	subtasks, err := board.ListSubtasks(context.Background(), id)
	if err != nil {
		return err
	}

	if IsJSON() {
		if subtasks == nil {
			subtasks = []*models.Subtask{}
		}
		return printJSON(subtasks)
	}

	if len(subtasks) == 0 {
		OutputLine("No subtasks on #%d", id)
		return nil
	}
	for _, st := range subtasks {
		fmt.Println(subtaskLine(st))
	}
	return nil
}

func runSubtaskAdd(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	title := strings.Join(args[1:], " ")

	database, board, err := openBoard()
	if err != nil {
		return err
	}
	defer database.Close()

	st, err := board.AddSubtask(context.Background(), id, title)
	if err != nil {
		return err
	}
	if st == nil {
		return ErrInvalidArgs("subtask title cannot be empty")
	}

	if IsJSON() {
		return printJSON(st)
	}
	OutputLine("Added subtask %d to #%d", st.ID, id)
	return nil
}

func runSubtaskToggle(arg string, done bool) error {
	id, err := parseID(arg)
	if err != nil {
		return err
	}

	database, board, err := openBoard()
	if err != nil {
		return err
	}
	defer database.Close()

	if err := board.ToggleSubtask(context.Background(), id, done); err != nil {
		return err
	}

	if IsJSON() {
		return printJSON(map[string]interface{}{"id": id, "done": done})
	}
	if done {
		OutputLine("Subtask %d done", id)
	} else {
		OutputLine("Subtask %d reopened", id)
	}
	return nil
}

func runSubtaskRm(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	database, board, err := openBoard()
	if err != nil {
		return err
	}
	defer database.Close()

	if err := board.DeleteSubtask(context.Background(), id); err != nil {
		return err
	}

	if IsJSON() {
		return printJSON(map[string]int64{"deleted": id})
	}
	OutputLine("Removed subtask %d", id)
	return nil
}
