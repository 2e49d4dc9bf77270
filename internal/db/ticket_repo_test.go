package db

import (
	"context"
	"testing"
	"time"

	werrors "github.com/diogenes-ai-code/taskman/internal/errors"
	"github.com/diogenes-ai-code/taskman/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func insertTestTicket(t *testing.T, repo *TicketRepo, title string) int64 {
	t.Helper()

	id, err := repo.Insert(context.Background(), NewTicket{Title: title, Priority: models.PriorityMedium})
	require.NoError(t, err)
	return id
}

func columnIDsOf(board models.Board, status models.Status) []int64 {
	ids := []int64{}
	for _, t := range board[status] {
		ids = append(ids, t.ID)
	}
	return ids
}

func TestTicketRepo_InsertRoundTrip(t *testing.T) {
	database := NewTestDB(t)
	defer database.Close()

	ctx := context.Background()
	repo := NewTicketRepo(database.DB)

	id, err := repo.Insert(ctx, NewTicket{Title: "A", Detail: "d", Priority: models.PriorityMedium, Tags: "x"})
	require.NoError(t, err)

	board, err := repo.FetchBoard(ctx)
	require.NoError(t, err)
	require.Len(t, board[models.StatusTodo], 1)

	got := board[models.StatusTodo][0]
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "A", got.Title)
	assert.Equal(t, "d", got.Detail)
	assert.Equal(t, 0, got.Sort)
	assert.Equal(t, "x", got.Tags)
	assert.Nil(t, got.Due)
	assert.True(t, got.Expanded, "new cards start expanded")
	assert.False(t, got.CreatedAt.IsZero())
}

func TestTicketRepo_InsertDefaultsAndFields(t *testing.T) {
	database := NewTestDB(t)
	defer database.Close()

	ctx := context.Background()
	repo := NewTicketRepo(database.DB)

	parent := insertTestTicket(t, repo, "Parent")
	due := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	id, err := repo.Insert(ctx, NewTicket{
		Title:      "Child",
		Due:        &due,
		ParentID:   &parent,
		Attachment: "uploads/20240101T000000-abcd1234-brief.pdf",
	})
	require.NoError(t, err)

	got, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.PriorityMedium, got.Priority)
	assert.Equal(t, models.StatusTodo, got.Status)
	assert.Equal(t, "2024-01-31", got.DueString())
	require.NotNil(t, got.ParentID)
	assert.Equal(t, parent, *got.ParentID)
	assert.Equal(t, "uploads/20240101T000000-abcd1234-brief.pdf", got.Attachment)
}

func TestTicketRepo_InsertRejectsEmptyTitle(t *testing.T) {
	database := NewTestDB(t)
	defer database.Close()

	ctx := context.Background()
	repo := NewTicketRepo(database.DB)
	insertTestTicket(t, repo, "Existing")

	before, err := repo.FetchBoard(ctx)
	require.NoError(t, err)

	_, err = repo.Insert(ctx, NewTicket{Title: "", Priority: models.PriorityMedium})
	require.Error(t, err)
	assert.True(t, werrors.Is(err, werrors.KindValidation))

	_, err = repo.Insert(ctx, NewTicket{Title: "Bad", Priority: "Urgent"})
	assert.True(t, werrors.Is(err, werrors.KindValidation))

	after, err := repo.FetchBoard(ctx)
	require.NoError(t, err)
	assert.Equal(t, columnIDsOf(before, models.StatusTodo), columnIDsOf(after, models.StatusTodo))
}

func TestTicketRepo_FetchBoardPartition(t *testing.T) {
	database := NewTestDB(t)
	defer database.Close()

	ctx := context.Background()
	repo := NewTicketRepo(database.DB)

	all := map[int64]bool{}
	for i, status := range []models.Status{models.StatusTodo, models.StatusDoing, models.StatusDone, models.StatusDoing} {
		id := insertTestTicket(t, repo, "ticket")
		require.NoError(t, repo.Move(ctx, id, status), "ticket %d", i)
		all[id] = true
	}

	board, err := repo.FetchBoard(ctx)
	require.NoError(t, err)
	require.Len(t, board, 3)

	seen := map[int64]int{}
	for _, ticket := range board.All() {
		seen[ticket.ID]++
		assert.Contains(t, board[ticket.Status], ticket)
	}
	assert.Len(t, seen, len(all))
	for id := range all {
		assert.Equal(t, 1, seen[id], "ticket %d must appear exactly once", id)
	}
}

func TestTicketRepo_FetchBoardOrdersBySortThenID(t *testing.T) {
	database := NewTestDB(t)
	defer database.Close()

	ctx := context.Background()
	repo := NewTicketRepo(database.DB)

	a := insertTestTicket(t, repo, "a")
	b := insertTestTicket(t, repo, "b")
	c := insertTestTicket(t, repo, "c")

	board, err := repo.FetchBoard(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{a, b, c}, columnIDsOf(board, models.StatusTodo), "ties on sort break by id")

	_, err = database.Exec(`UPDATE tickets SET sort = 5 WHERE id = ?`, a)
	require.NoError(t, err)

	board, err = repo.FetchBoard(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{b, c, a}, columnIDsOf(board, models.StatusTodo))
}

func TestTicketRepo_Update(t *testing.T) {
	database := NewTestDB(t)
	defer database.Close()

	ctx := context.Background()
	repo := NewTicketRepo(database.DB)
	id := insertTestTicket(t, repo, "Original")
	require.NoError(t, repo.Move(ctx, id, models.StatusDoing))
	require.NoError(t, repo.SetExpanded(ctx, id, false))

	before, err := repo.Get(ctx, id)
	require.NoError(t, err)

	t.Run("replaces editable fields only", func(t *testing.T) {
		due := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
		err := repo.Update(ctx, id, TicketEdit{
			Title:    "Renamed",
			Detail:   "line one\nline two",
			Due:      &due,
			Priority: models.PriorityHigh,
			Tags:     "bug, urgent",
		})
		require.NoError(t, err)

		got, err := repo.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "Renamed", got.Title)
		assert.Equal(t, "line one\nline two", got.Detail)
		assert.Equal(t, "2025-05-01", got.DueString())
		assert.Equal(t, models.PriorityHigh, got.Priority)
		assert.Equal(t, "bug, urgent", got.Tags)
		assert.Equal(t, models.StatusDoing, got.Status)
		assert.Equal(t, before.Sort, got.Sort)
		assert.False(t, got.Expanded)
		assert.False(t, got.UpdatedAt.Before(before.UpdatedAt))
	})

	t.Run("clears the due date", func(t *testing.T) {
		require.NoError(t, repo.Update(ctx, id, TicketEdit{Title: "Renamed"}))
		got, err := repo.Get(ctx, id)
		require.NoError(t, err)
		assert.Nil(t, got.Due)
	})

	t.Run("missing ticket", func(t *testing.T) {
		err := repo.Update(ctx, 9999, TicketEdit{Title: "x"})
		assert.True(t, werrors.Is(err, werrors.KindNotFound))
	})

	t.Run("empty title", func(t *testing.T) {
		err := repo.Update(ctx, id, TicketEdit{Title: " "})
		assert.True(t, werrors.Is(err, werrors.KindValidation))

		got, err := repo.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "Renamed", got.Title)
	})
}

func TestTicketRepo_MoveKeepsSort(t *testing.T) {
	database := NewTestDB(t)
	defer database.Close()

	ctx := context.Background()
	repo := NewTicketRepo(database.DB)
	id := insertTestTicket(t, repo, "ticket")
	_, err := database.Exec(`UPDATE tickets SET sort = 7 WHERE id = ?`, id)
	require.NoError(t, err)

	require.NoError(t, repo.Move(ctx, id, models.StatusDone))

	got, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDone, got.Status)
	assert.Equal(t, 7, got.Sort)

	assert.True(t, werrors.Is(repo.Move(ctx, 9999, models.StatusDone), werrors.KindNotFound))
	assert.True(t, werrors.Is(repo.Move(ctx, id, "Later"), werrors.KindValidation))
}

func TestTicketRepo_DeleteIsIdempotent(t *testing.T) {
	database := NewTestDB(t)
	defer database.Close()

	ctx := context.Background()
	repo := NewTicketRepo(database.DB)
	id := insertTestTicket(t, repo, "ticket")

	require.NoError(t, repo.Delete(ctx, id))
	require.NoError(t, repo.Delete(ctx, id))
	require.NoError(t, repo.Delete(ctx, 12345))

	_, err := repo.Get(ctx, id)
	assert.True(t, werrors.Is(err, werrors.KindNotFound))
}

func TestTicketRepo_SwapSort(t *testing.T) {
	database := NewTestDB(t)
	defer database.Close()

	ctx := context.Background()
	repo := NewTicketRepo(database.DB)
	a := insertTestTicket(t, repo, "a")
	b := insertTestTicket(t, repo, "b")
	require.NoError(t, repo.ReorderColumn(ctx, models.StatusTodo, []int64{a, b}))

	require.NoError(t, repo.SwapSort(ctx, a, b))

	board, err := repo.FetchBoard(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{b, a}, columnIDsOf(board, models.StatusTodo))

	err = repo.SwapSort(ctx, a, 9999)
	assert.True(t, werrors.Is(err, werrors.KindNotFound))

	board, err = repo.FetchBoard(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{b, a}, columnIDsOf(board, models.StatusTodo), "failed swap leaves order unchanged")
}

func TestTicketRepo_ReorderColumn(t *testing.T) {
	database := NewTestDB(t)
	defer database.Close()

	ctx := context.Background()
	repo := NewTicketRepo(database.DB)
	a := insertTestTicket(t, repo, "a")
	b := insertTestTicket(t, repo, "b")
	c := insertTestTicket(t, repo, "c")
	d := insertTestTicket(t, repo, "d")
	require.NoError(t, repo.Move(ctx, d, models.StatusDoing))

	t.Run("applies the given order", func(t *testing.T) {
		order := []int64{c, a, b}
		require.NoError(t, repo.ReorderColumn(ctx, models.StatusTodo, order))

		board, err := repo.FetchBoard(ctx)
		require.NoError(t, err)
		assert.Equal(t, order, columnIDsOf(board, models.StatusTodo))
		for i, ticket := range board[models.StatusTodo] {
			assert.Equal(t, i, ticket.Sort)
		}
	})

	t.Run("pulls tickets in from other columns", func(t *testing.T) {
		require.NoError(t, repo.ReorderColumn(ctx, models.StatusTodo, []int64{c, d, a, b}))

		board, err := repo.FetchBoard(ctx)
		require.NoError(t, err)
		assert.Equal(t, []int64{c, d, a, b}, columnIDsOf(board, models.StatusTodo))
		assert.Empty(t, board[models.StatusDoing])
	})

	t.Run("unlisted column members follow the listed ones", func(t *testing.T) {
		require.NoError(t, repo.ReorderColumn(ctx, models.StatusTodo, []int64{b}))

		board, err := repo.FetchBoard(ctx)
		require.NoError(t, err)
		assert.Equal(t, []int64{b, c, d, a}, columnIDsOf(board, models.StatusTodo))
	})

	t.Run("rejects duplicates", func(t *testing.T) {
		err := repo.ReorderColumn(ctx, models.StatusTodo, []int64{a, a})
		assert.True(t, werrors.Is(err, werrors.KindValidation))
	})

	t.Run("unknown id rolls back", func(t *testing.T) {
		err := repo.ReorderColumn(ctx, models.StatusTodo, []int64{a, 9999, b})
		assert.True(t, werrors.Is(err, werrors.KindNotFound))

		board, err := repo.FetchBoard(ctx)
		require.NoError(t, err)
		assert.Equal(t, []int64{b, c, d, a}, columnIDsOf(board, models.StatusTodo))
	})
}

func TestTicketRepo_ReorderColumnsAcrossColumns(t *testing.T) {
	database := NewTestDB(t)
	defer database.Close()

	ctx := context.Background()
	repo := NewTicketRepo(database.DB)
	a := insertTestTicket(t, repo, "a")
	b := insertTestTicket(t, repo, "b")
	c := insertTestTicket(t, repo, "c")
	require.NoError(t, repo.Move(ctx, c, models.StatusDone))

	err := repo.ReorderColumns(ctx,
		models.ColumnOrder{Status: models.StatusDone, IDs: []int64{a, c}},
		models.ColumnOrder{Status: models.StatusTodo, IDs: []int64{b}},
	)
	require.NoError(t, err)

	board, err := repo.FetchBoard(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{b}, columnIDsOf(board, models.StatusTodo))
	assert.Equal(t, []int64{a, c}, columnIDsOf(board, models.StatusDone))
}

func TestTicketRepo_SetExpandedKeepsUpdated(t *testing.T) {
	database := NewTestDB(t)
	defer database.Close()

	ctx := context.Background()
	repo := NewTicketRepo(database.DB)
	id := insertTestTicket(t, repo, "ticket")

	before, err := repo.Get(ctx, id)
	require.NoError(t, err)

	require.NoError(t, repo.SetExpanded(ctx, id, false))

	got, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.False(t, got.Expanded)
	assert.True(t, got.UpdatedAt.Equal(before.UpdatedAt))

	require.NoError(t, repo.SetAllExpanded(ctx, true))
	got, err = repo.Get(ctx, id)
	require.NoError(t, err)
	assert.True(t, got.Expanded)

	assert.True(t, werrors.Is(repo.SetExpanded(ctx, 9999, true), werrors.KindNotFound))
}
