package repository

import (
	"context"
	"testing"
	"time"

	"github.com/jhnmartin/hey-sub000/internal/inventory/domain"
	"github.com/jhnmartin/hey-sub000/internal/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIncrementSoldMovesTierToSoldOut(t *testing.T) {
	db := storetest.Open(t)
	seed := storetest.NewSeed(t, db)
	eventID := seed.Event("Gala", "platform")
	tierID := seed.Tier(eventID, "VIP", 5000, 3, 0)
	repo := Provide()
	ctx := context.Background()

	counter, err := repo.IncrementSold(ctx, db, tierID, 2, time.Now().UTC())
	require.NoError(t, err)
	require.NotNil(t, counter)
	assert.Equal(t, int64(2), counter.Sold)
	assert.Zero(t, counter.Oversold())

	tier, err := repo.FindByID(ctx, db, tierID)
	require.NoError(t, err)
	assert.Equal(t, domain.TierStatusActive, tier.Status)

	counter, err = repo.IncrementSold(ctx, db, tierID, 2, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, int64(4), counter.Sold)
	assert.Equal(t, int64(1), counter.Oversold())

	tier, err = repo.FindByID(ctx, db, tierID)
	require.NoError(t, err)
	assert.Equal(t, domain.TierStatusSoldOut, tier.Status)
	assert.Zero(t, tier.Available())
}

func TestIncrementSoldKeepsHiddenStatus(t *testing.T) {
	db := storetest.Open(t)
	seed := storetest.NewSeed(t, db)
	tierID := seed.Tier(seed.Event("Gala", "platform"), "Crew", 0, 1, 0)
	require.NoError(t, db.Exec(`UPDATE ticket_tiers SET status = 'hidden' WHERE id = ?`, tierID).Error)

	_, err := Provide().IncrementSold(context.Background(), db, tierID, 1, time.Now().UTC())
	require.NoError(t, err)

	tier, err := Provide().FindByID(context.Background(), db, tierID)
	require.NoError(t, err)
	assert.Equal(t, domain.TierStatusHidden, tier.Status)
}

func TestIncrementSoldOnMissingTier(t *testing.T) {
	db := storetest.Open(t)
	counter, err := Provide().IncrementSold(context.Background(), db, 99, 1, time.Now().UTC())
	require.NoError(t, err)
	assert.Nil(t, counter)
}

func TestUpdateDetailsRefusesQuantityBelowSold(t *testing.T) {
	db := storetest.Open(t)
	seed := storetest.NewSeed(t, db)
	tierID := seed.Tier(seed.Event("Gala", "platform"), "GA", 1000, 10, 6)
	repo := Provide()

	tier, err := repo.FindByID(context.Background(), db, tierID)
	require.NoError(t, err)
	tier.Quantity = 5
	affected, err := repo.UpdateDetails(context.Background(), db, tier)
	require.NoError(t, err)
	assert.Zero(t, affected)
	assert.Equal(t, int64(6), storetest.Sold(t, db, tierID))
}

func TestListByEventHidesHiddenTiers(t *testing.T) {
	db := storetest.Open(t)
	seed := storetest.NewSeed(t, db)
	eventID := seed.Event("Gala", "platform")
	seed.Tier(eventID, "GA", 1000, 10, 0)
	hidden := seed.Tier(eventID, "Comp", 0, 10, 0)
	require.NoError(t, db.Exec(`UPDATE ticket_tiers SET status = 'hidden' WHERE id = ?`, hidden).Error)

	visible, err := Provide().ListByEvent(context.Background(), db, eventID, false)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, "GA", visible[0].Name)

	all, err := Provide().ListByEvent(context.Background(), db, eventID, true)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
