package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/diogenes-ai-code/taskman/internal/board"
	"github.com/diogenes-ai-code/taskman/internal/common"
	"github.com/diogenes-ai-code/taskman/internal/models"
	"github.com/diogenes-ai-code/taskman/internal/service"
	"github.com/spf13/cobra"
)

// Board command flags
var (
	boardDue          bool
	boardNoDue        bool
	boardPrioritySort bool
	boardOverdue      bool
	boardSearch       string
	boardPriorities   string
	boardTags         string
	boardHideDone     bool
)

func init() {
	boardCmd.Flags().BoolVar(&boardDue, "due", false, "Sort by due date (undated last)")
	boardCmd.Flags().BoolVar(&boardNoDue, "no-due", false, "Do not sort by due date")
	boardCmd.Flags().BoolVar(&boardPrioritySort, "priority-sort", false, "Sort by priority")
	boardCmd.Flags().BoolVar(&boardOverdue, "overdue", false, "Only tickets due today or earlier")
	boardCmd.Flags().StringVarP(&boardSearch, "search", "s", "", "Case-insensitive search in titles and tags")
	boardCmd.Flags().StringVar(&boardPriorities, "prio", "", "Comma-separated priorities to show (default all)")
	boardCmd.Flags().StringVar(&boardTags, "tag", "", "Comma-separated tags to show (untagged tickets always shown)")
	boardCmd.Flags().BoolVar(&boardHideDone, "hide-done", false, "Leave the Done column out")

	rootCmd.AddCommand(boardCmd)
	rootCmd.AddCommand(tagsCmd)
	rootCmd.AddCommand(timelineCmd)
}

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Show the board",
	Long: `Show the three columns with their tickets. Sorting defaults come from the
[view] section of the config file.

Examples:
  taskman board
  taskman board --no-due --priority-sort
  taskman board --overdue
  taskman board --prio High,Medium --tag work
  taskman board -s invoice --hide-done`,
	Args: cobra.NoArgs,
	RunE: runBoard,
}

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "List every tag in use",
	Args:  cobra.NoArgs,
	RunE:  runTags,
}

var timelineCmd = &cobra.Command{
	Use:   "timeline",
	Short: "Show dated tickets as spans up to their due date",
	Args:  cobra.NoArgs,
	RunE:  runTimeline,
}

// boardQuery builds the board query from the flags given and the configured view.
func boardQuery(cmd *cobra.Command) (service.BoardQuery, error) {
	view := GetConfig().View
	q := service.BoardQuery{
		Sort: board.SortOptions{
			ByDue:      view.SortByDue,
			ByPriority: view.SortByPriority || boardPrioritySort,
		},
		Filter: board.FilterOptions{
			OverdueOnly: boardOverdue,
			Search:      boardSearch,
			Priorities:  append([]models.Priority{}, models.Priorities...),
		},
		HideDone: view.HideDone || boardHideDone,
		Today:    models.Today(),
	}

	if boardDue && boardNoDue {
		return q, ErrInvalidArgs("--due and --no-due cannot be combined")
	}
	if boardDue {
		q.Sort.ByDue = true
	}
	if boardNoDue {
		q.Sort.ByDue = false
	}

	if cmd.Flags().Changed("prio") {
		q.Filter.Priorities = []models.Priority{}
		for _, p := range common.SplitList(boardPriorities) {
			priority, err := models.ParsePriority(p)
			if err != nil {
				return q, ErrInvalidArgs("%v", err)
			}
			q.Filter.Priorities = append(q.Filter.Priorities, priority)
		}
	}

	if cmd.Flags().Changed("tag") {
		q.Filter.RestrictTags = true
		q.Filter.Tags = common.SplitList(boardTags)
	}

	return q, nil
}

func runBoard(cmd *cobra.Command, args []string) error {
	q, err := boardQuery(cmd)
	if err != nil {
		return err
	}

	database, svc, err := openBoard()
	if err != nil {
		return err
	}
	defer database.Close()

	columns, err := svc.Board(context.Background(), q)
	if err != nil {
		return err
	}

	if IsJSON() {
		return printJSON(columns)
	}

	for i, col := range columns {
		if i > 0 {
			fmt.Println()
		}
		header := fmt.Sprintf("%s (%d)", col.Status, len(col.Tickets))
		if len(col.Tickets) != col.Total {
			header = fmt.Sprintf("%s (%d of %d)", col.Status, len(col.Tickets), col.Total)
		}
		fmt.Println(colorize(ansiBold, header))
		fmt.Println(strings.Repeat("-", 40))
		if len(col.Tickets) == 0 {
			fmt.Println(colorize(ansiDim, "  (empty)"))
			continue
		}
		for _, v := range col.Tickets {
			fmt.Println("  " + cardLine(v))
			if v.Expanded && strings.TrimSpace(v.Detail) != "" {
				fmt.Println(indent(v.Detail, "        "))
			}
		}
	}
	return nil
}

func runTags(cmd *cobra.Command, args []string) error {
	database, svc, err := openBoard()
	if err != nil {
		return err
	}
	defer database.Close()

	tags, err := svc.Tags(context.Background())
	if err != nil {
		return err
	}

	if IsJSON() {
		return printJSON(tags)
	}
	for _, tag := range tags {
		fmt.Println(tag)
	}
	return nil
}

func runTimeline(cmd *cobra.Command, args []string) error {
	database, svc, err := openBoard()
	if err != nil {
		return err
	}
	defer database.Close()

	entries, err := svc.Timeline(context.Background(), models.Today())
	if err != nil {
		return err
	}

	if IsJSON() {
		return printJSON(entries)
	}

	if len(entries) == 0 {
		OutputLine("No dated tickets.")
		return nil
	}

	for _, e := range entries {
		span := fmt.Sprintf("%s -> %s (%dd)", e.Start, e.End, e.Days)
		fmt.Printf("%-32s #%-4d %-6s %s\n",
			colorize(urgencyColor(e.Urgency), span), e.ID, e.Status, truncate(e.Title, 40))
	}
	return nil
}
