package db

import (
	"context"
	"testing"

	werrors "github.com/diogenes-ai-code/taskman/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubtaskRepo_AddAndList(t *testing.T) {
	database := NewTestDB(t)
	defer database.Close()

	ctx := context.Background()
	tickets := NewTicketRepo(database.DB)
	repo := NewSubtaskRepo(database.DB)
	ticketID := insertTestTicket(t, tickets, "ticket")

	first, err := repo.Add(ctx, ticketID, "  write outline ")
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, "write outline", first.Title)
	assert.Equal(t, 0, first.Sort)

	second, err := repo.Add(ctx, ticketID, "review")
	require.NoError(t, err)
	assert.Equal(t, 1, second.Sort)

	subtasks, err := repo.List(ctx, ticketID)
	require.NoError(t, err)
	require.Len(t, subtasks, 2)
	assert.Equal(t, first.ID, subtasks[0].ID)
	assert.Equal(t, second.ID, subtasks[1].ID)
	assert.False(t, subtasks[0].Done)
}

func TestSubtaskRepo_AddIgnoresBlankTitle(t *testing.T) {
	database := NewTestDB(t)
	defer database.Close()

	ctx := context.Background()
	ticketID := insertTestTicket(t, NewTicketRepo(database.DB), "ticket")
	repo := NewSubtaskRepo(database.DB)

	for _, title := range []string{"", "   ", "\t\n"} {
		s, err := repo.Add(ctx, ticketID, title)
		require.NoError(t, err)
		assert.Nil(t, s)
	}

	subtasks, err := repo.List(ctx, ticketID)
	require.NoError(t, err)
	assert.Empty(t, subtasks)
}

func TestSubtaskRepo_AddToMissingTicket(t *testing.T) {
	database := NewTestDB(t)
	defer database.Close()

	_, err := NewSubtaskRepo(database.DB).Add(context.Background(), 9999, "orphan")
	assert.True(t, werrors.Is(err, werrors.KindNotFound))
}

func TestSubtaskRepo_AddRejectsInvalidTicketID(t *testing.T) {
	database := NewTestDB(t)
	defer database.Close()

	repo := NewSubtaskRepo(database.DB)
	for _, id := range []int64{0, -1} {
		st, err := repo.Add(context.Background(), id, "orphan")
		assert.Nil(t, st)
		assert.True(t, werrors.Is(err, werrors.KindValidation), "ticket id %d", id)
	}
}

func TestSubtaskRepo_ToggleLeavesTicketUntouched(t *testing.T) {
	database := NewTestDB(t)
	defer database.Close()

	ctx := context.Background()
	tickets := NewTicketRepo(database.DB)
	repo := NewSubtaskRepo(database.DB)
	ticketID := insertTestTicket(t, tickets, "ticket")
	before, err := tickets.Get(ctx, ticketID)
	require.NoError(t, err)

	s, err := repo.Add(ctx, ticketID, "item")
	require.NoError(t, err)
	require.NoError(t, repo.Toggle(ctx, s.ID, true))

	subtasks, err := repo.List(ctx, ticketID)
	require.NoError(t, err)
	assert.True(t, subtasks[0].Done)

	after, err := tickets.Get(ctx, ticketID)
	require.NoError(t, err)
	assert.True(t, after.UpdatedAt.Equal(before.UpdatedAt))

	assert.True(t, werrors.Is(repo.Toggle(ctx, 9999, true), werrors.KindNotFound))
}

func TestSubtaskRepo_DeleteAndCascade(t *testing.T) {
	database := NewTestDB(t)
	defer database.Close()

	ctx := context.Background()
	tickets := NewTicketRepo(database.DB)
	repo := NewSubtaskRepo(database.DB)
	ticketID := insertTestTicket(t, tickets, "ticket")

	a, err := repo.Add(ctx, ticketID, "a")
	require.NoError(t, err)
	_, err = repo.Add(ctx, ticketID, "b")
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, a.ID))
	require.NoError(t, repo.Delete(ctx, a.ID), "deleting twice is a no-op")

	subtasks, err := repo.List(ctx, ticketID)
	require.NoError(t, err)
	assert.Len(t, subtasks, 1)

	require.NoError(t, tickets.Delete(ctx, ticketID))

	subtasks, err = repo.List(ctx, ticketID)
	require.NoError(t, err)
	assert.Empty(t, subtasks, "subtasks are removed with their ticket")
}

func TestSubtaskRepo_Counts(t *testing.T) {
	database := NewTestDB(t)
	defer database.Close()

	ctx := context.Background()
	tickets := NewTicketRepo(database.DB)
	repo := NewSubtaskRepo(database.DB)
	withItems := insertTestTicket(t, tickets, "with items")
	insertTestTicket(t, tickets, "without items")

	a, err := repo.Add(ctx, withItems, "a")
	require.NoError(t, err)
	_, err = repo.Add(ctx, withItems, "b")
	require.NoError(t, err)
	require.NoError(t, repo.Toggle(ctx, a.ID, true))

	counts, err := repo.Counts(ctx)
	require.NoError(t, err)
	assert.Len(t, counts, 1)
	assert.Equal(t, 1, counts[withItems].Done)
	assert.Equal(t, 2, counts[withItems].Total)
}

func TestSubtaskRepo_CountsOnClosedStore(t *testing.T) {
	database := NewTestDB(t)
	repo := NewSubtaskRepo(database.DB)
	require.NoError(t, database.Close())

	counts, err := repo.Counts(context.Background())
	assert.Nil(t, counts)
	assert.True(t, werrors.Is(err, werrors.KindStorage))
}
