package repository

import (
	"context"
	"testing"
	"time"

	"github.com/jhnmartin/hey-sub000/internal/storetest"
	"github.com/jhnmartin/hey-sub000/internal/ticket/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertSkipsDuplicateCode(t *testing.T) {
	db := storetest.Open(t)
	node := storetest.Node(t)
	repo := Provide()
	ctx := context.Background()

	first := domain.Ticket{ID: node.Generate(), Code: "AAAABBBBCCCCDDDDEEEEFFFF", OrderID: 1, BuyerID: 2, EventID: 3, TierID: 4,
		TierName: "GA", Status: domain.TicketStatusValid, IssuedAt: time.Now().UTC()}
	inserted, err := repo.Insert(ctx, db, &first)
	require.NoError(t, err)
	assert.True(t, inserted)

	second := first
	second.ID = node.Generate()
	inserted, err = repo.Insert(ctx, db, &second)
	require.NoError(t, err)
	assert.False(t, inserted)

	found, err := repo.FindByCode(ctx, db, first.Code)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, first.ID, found.ID)
}

func TestMarkUsedOnlyOnce(t *testing.T) {
	db := storetest.Open(t)
	repo := Provide()
	ctx := context.Background()
	ticket := domain.Ticket{ID: storetest.Node(t).Generate(), Code: "0123456789ABCDEFGHJKMNPQ", OrderID: 1, BuyerID: 2, EventID: 3,
		TierID: 4, TierName: "GA", Status: domain.TicketStatusValid, IssuedAt: time.Now().UTC()}
	_, err := repo.Insert(ctx, db, &ticket)
	require.NoError(t, err)

	at := time.Now().UTC().Truncate(time.Second)
	ok, err := repo.MarkUsed(ctx, db, ticket.Code, at)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.MarkUsed(ctx, db, ticket.Code, at.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, ok)

	found, err := repo.FindByID(ctx, db, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusUsed, found.Status)
	require.NotNil(t, found.RedeemedAt)
	assert.True(t, found.RedeemedAt.Equal(at))

	ok, err = repo.MarkUsed(ctx, db, "ZZZZZZZZZZZZZZZZZZZZZZZZ", at)
	require.NoError(t, err)
	assert.False(t, ok)
}
