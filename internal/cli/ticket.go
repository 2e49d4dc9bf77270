package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/diogenes-ai-code/taskman/internal/common"
	"github.com/diogenes-ai-code/taskman/internal/models"
	"github.com/diogenes-ai-code/taskman/internal/service"
	"github.com/spf13/cobra"
)

// Ticket command flags
var (
	ticketTitle            string
	ticketDetail           string
	ticketDue              string
	ticketPriority         string
	ticketTags             string
	ticketParent           string
	ticketAttach           string
	ticketRemoveAttachment bool
)

func init() {
	addCmd.Flags().StringVarP(&ticketDetail, "detail", "d", "", "Detail text (Markdown)")
	addCmd.Flags().StringVar(&ticketDue, "due", "", "Due date (YYYY-MM-DD)")
	addCmd.Flags().StringVarP(&ticketPriority, "priority", "p", "Medium", "Priority: High, Medium, Low")
	addCmd.Flags().StringVarP(&ticketTags, "tags", "t", "", "Comma-separated tags")
	addCmd.Flags().StringVar(&ticketParent, "parent", "", "Parent ticket ID")
	addCmd.Flags().StringVar(&ticketAttach, "attach", "", "File to attach")

	editCmd.Flags().StringVar(&ticketTitle, "title", "", "New title")
	editCmd.Flags().StringVarP(&ticketDetail, "detail", "d", "", "Detail text (Markdown)")
	editCmd.Flags().StringVar(&ticketDue, "due", "", "Due date (YYYY-MM-DD, empty to clear)")
	editCmd.Flags().StringVarP(&ticketPriority, "priority", "p", "Medium", "Priority: High, Medium, Low")
	editCmd.Flags().StringVarP(&ticketTags, "tags", "t", "", "Comma-separated tags")
	editCmd.Flags().StringVar(&ticketAttach, "attach", "", "File to attach, replacing the current one")
	editCmd.Flags().BoolVar(&ticketRemoveAttachment, "remove-attachment", false, "Remove the current attachment")

	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(deleteCmd)
}

var addCmd = &cobra.Command{
	Use:   "add <TITLE>",
	Short: "Add a ticket to Todo",
	Long: `Add a ticket at the end of the Todo column.

Examples:
  taskman add "Write report"
  taskman add "Pay invoice" --due 2026-02-01 -p High -t money,home
  taskman add "Review draft" --attach draft.pdf`,
	Args: cobra.ExactArgs(1),
	RunE: runAdd,
}

var editCmd = &cobra.Command{
	Use:   "edit <ID>",
	Short: "Edit ticket fields",
	Long: `Edit an existing ticket. Only the flags given are changed.

Examples:
  taskman edit 12 --title "Write final report"
  taskman edit 12 --due ""              # clear the due date
  taskman edit 12 --attach notes.txt    # replace the attachment
  taskman edit 12 --remove-attachment`,
	Args: cobra.ExactArgs(1),
	RunE: runEdit,
}

var showCmd = &cobra.Command{
	Use:   "show <ID>",
	Short: "Show ticket details",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var deleteCmd = &cobra.Command{
	Use:     "delete <ID>",
	Aliases: []string{"rm"},
	Short:   "Delete a ticket with its subtasks and attachment",
	Long: `Delete a ticket. Its subtasks and attachment file go with it.
Deleting a ticket that no longer exists is not an error.`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

// openUpload opens the file named by --attach. The returned close func is
// always safe to call.
func openUpload(path string) (*service.Upload, func(), error) {
	if path == "" {
		return nil, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, func() {}, ErrAttachment(err, "failed to open %s", path)
	}
	return &service.Upload{Name: filepath.Base(path), Body: f}, func() { f.Close() }, nil
}

func runAdd(cmd *cobra.Command, args []string) error {
	due, err := models.ParseDate(ticketDue)
	if err != nil {
		return ErrInvalidArgs("%v", err)
	}
	priority, err := models.ParsePriority(ticketPriority)
	if err != nil {
		return ErrInvalidArgs("%v", err)
	}

	input := service.TicketInput{
		Title:    args[0],
		Detail:   ticketDetail,
		Due:      due,
		Priority: priority,
		Tags:     ticketTags,
	}
	if ticketParent != "" {
		parentID, err := parseID(ticketParent)
		if err != nil {
			return err
		}
		input.ParentID = &parentID
	}

	upload, closeUpload, err := openUpload(ticketAttach)
	if err != nil {
		return err
	}
	defer closeUpload()
	input.Upload = upload

	database, board, err := openBoard()
	if err != nil {
		return err
	}
	defer database.Close()

	ctx := context.Background()
	ticket, err := board.CreateTicket(ctx, input)
	if err != nil {
		return err
	}

	view, err := board.GetTicket(ctx, ticket.ID, models.Today())
	if err != nil {
		return err
	}

	if IsJSON() {
		return printJSON(view)
	}

	OutputLine("Created: #%d", ticket.ID)
	OutputLine("Title: %s", ticket.Title)
	OutputLine("Status: %s", ticket.Status)
	if view.AttachmentName != "" {
		OutputLine("Attachment: %s", view.AttachmentName)
	}
	return nil
}

func runEdit(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	database, board, err := openBoard()
	if err != nil {
		return err
	}
	defer database.Close()

	ctx := context.Background()
	current, err := board.GetTicket(ctx, id, models.Today())
	if err != nil {
		return err
	}

	update := service.TicketUpdate{
		Title:            current.Title,
		Detail:           current.Detail,
		Due:              current.Ticket.Due,
		Priority:         current.Priority,
		Tags:             current.Tags,
		RemoveAttachment: ticketRemoveAttachment,
	}

	flags := cmd.Flags()
	if flags.Changed("title") {
		update.Title = ticketTitle
	}
	if flags.Changed("detail") {
		update.Detail = ticketDetail
	}
	if flags.Changed("due") {
		if update.Due, err = models.ParseDate(ticketDue); err != nil {
			return ErrInvalidArgs("%v", err)
		}
	}
	if flags.Changed("priority") {
		if update.Priority, err = models.ParsePriority(ticketPriority); err != nil {
			return ErrInvalidArgs("%v", err)
		}
	}
	if flags.Changed("tags") {
		update.Tags = ticketTags
	}
	if ticketAttach != "" && ticketRemoveAttachment {
		return ErrInvalidArgs("--attach and --remove-attachment cannot be combined")
	}

	upload, closeUpload, err := openUpload(ticketAttach)
	if err != nil {
		return err
	}
	defer closeUpload()
	update.Upload = upload

	ticket, err := board.EditTicket(ctx, id, update)
	if err != nil {
		return err
	}

	if IsJSON() {
		view, err := board.GetTicket(ctx, id, models.Today())
		if err != nil {
			return err
		}
		return printJSON(view)
	}

	OutputLine("Updated: #%d %s", ticket.ID, ticket.Title)
	return nil
}

type ticketShowResult struct {
	*service.TicketView
	Subtasks []*models.Subtask `json:"checklist"`
	Moves    []service.Move    `json:"moves"`
}

func runShow(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	database, board, err := openBoard()
	if err != nil {
		return err
	}
	defer database.Close()

	ctx := context.Background()
	today := models.Today()
	view, err := board.GetTicket(ctx, id, today)
	if err != nil {
		return err
	}
	subtasks, err := board.ListSubtasks(ctx, id)
	if err != nil {
		return err
	}

	if IsJSON() {
		if subtasks == nil {
			subtasks = []*models.Subtask{}
		}
		return printJSON(ticketShowResult{TicketView: view, Subtasks: subtasks, Moves: board.AllowedMoves(view.Status)})
	}

	fmt.Println(strings.Repeat("=", 65))
	fmt.Printf("#%d: %s\n", view.ID, view.Title)
	fmt.Println(strings.Repeat("=", 65))
	fmt.Println()
	fmt.Printf("Status:      %s\n", view.Status)
	if moves := board.AllowedMoves(view.Status); len(moves) > 0 {
		parts := make([]string, 0, len(moves))
		for _, m := range moves {
			gestures := make([]string, 0, len(m.Gestures))
			for _, g := range m.Gestures {
				gestures = append(gestures, string(g))
			}
			parts = append(parts, fmt.Sprintf("%s (%s)", m.To, strings.Join(gestures, ", ")))
		}
		fmt.Printf("Moves:       %s\n", strings.Join(parts, "; "))
	}
	fmt.Printf("Priority:    %s\n", colorize(priorityColor(view.Priority), string(view.Priority)))
	if view.Due != "" {
		fmt.Printf("Due:         %s (%s)\n", view.Due, colorize(urgencyColor(view.Urgency), common.FormatDue(view.Ticket.Due, today)))
	}
	if tags := view.TagList(); len(tags) > 0 {
		fmt.Printf("Tags:        %s\n", strings.Join(tags, ", "))
	}
	if view.ParentID != nil {
		fmt.Printf("Parent:      #%d\n", *view.ParentID)
	}
	if view.AttachmentName != "" {
		status := ""
		if !view.AttachmentAvailable {
			status = " (file missing)"
		}
		fmt.Printf("Attachment:  %s%s\n", view.AttachmentName, status)
	}
	fmt.Println()
	fmt.Printf("Created:     %s (%s)\n", view.CreatedAt.Format("2006-01-02 15:04:05"), common.FormatAge(view.CreatedAt))
	fmt.Printf("Updated:     %s\n", view.UpdatedAt.Format("2006-01-02 15:04:05"))

	if strings.TrimSpace(view.Detail) != "" {
		fmt.Println()
		fmt.Println(strings.Repeat("-", 65))
		fmt.Println("Detail:")
		fmt.Println(strings.Repeat("-", 65))
		fmt.Println(view.Detail)
	}

	if len(subtasks) > 0 {
		fmt.Println()
		fmt.Println(strings.Repeat("-", 65))
		fmt.Printf("Subtasks (%d/%d):\n", view.Subtasks.Done, view.Subtasks.Total)
		fmt.Println(strings.Repeat("-", 65))
		for _, st := range subtasks {
			fmt.Println(subtaskLine(st))
		}
	}

	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	database, board, err := openBoard()
	if err != nil {
		return err
	}
	defer database.Close()

	if err := board.DeleteTicket(context.Background(), id); err != nil {
		return err
	}

	if IsJSON() {
		return printJSON(map[string]int64{"deleted": id})
	}
	OutputLine("Deleted: #%d", id)
	return nil
}
