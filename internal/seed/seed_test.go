package seed

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jhnmartin/hey-sub000/internal/clock"
	inventorydomain "github.com/jhnmartin/hey-sub000/internal/inventory/domain"
	inventoryrepo "github.com/jhnmartin/hey-sub000/internal/inventory/repository"
	inventoryservice "github.com/jhnmartin/hey-sub000/internal/inventory/service"
	"github.com/jhnmartin/hey-sub000/internal/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newInventory(t *testing.T, db *gorm.DB, node *snowflake.Node) inventorydomain.Service {
	t.Helper()
	return inventoryservice.New(inventoryservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Now().UTC()),
		Repo:  inventoryrepo.Provide(),
	})
}

func TestEnsureDemoIsIdempotent(t *testing.T) {
	db := storetest.Open(t)
	node := storetest.Node(t)
	inventory := newInventory(t, db, node)
	now := time.Now().UTC()

	first, err := EnsureDemo(context.Background(), db, node, inventory, now, "demo-token")
	require.NoError(t, err)
	require.Len(t, first.TierIDs, len(demoTiers))

	second, err := EnsureDemo(context.Background(), db, node, inventory, now.Add(time.Hour), "demo-token")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	assert.EqualValues(t, 1, storetest.Count(t, db, "buyers", "email = ?", demoBuyerEmail))
	assert.EqualValues(t, 1, storetest.Count(t, db, "buyer_sessions", "token_hash = ?", storetest.HashToken("demo-token")))
	assert.EqualValues(t, len(demoTiers), storetest.Count(t, db, "ticket_tiers", "event_id = ?", first.EventID))
}

func TestEnsureDemoReconcilesTiers(t *testing.T) {
	db := storetest.Open(t)
	node := storetest.Node(t)
	inventory := newInventory(t, db, node)
	ctx := context.Background()
	now := time.Now().UTC()

	demo, err := EnsureDemo(ctx, db, node, inventory, now, "demo-token")
	require.NoError(t, err)

	require.NoError(t, db.Exec(`UPDATE ticket_tiers SET unit_price = 1 WHERE id = ?`, demo.TierIDs[0]).Error)
	unsold, err := inventory.CreateTier(ctx, inventorydomain.CreateTierRequest{EventID: demo.EventID, Name: "Early Bird", UnitPrice: 1500, Quantity: 10})
	require.NoError(t, err)
	sold, err := inventory.CreateTier(ctx, inventorydomain.CreateTierRequest{EventID: demo.EventID, Name: "Press", Quantity: 10})
	require.NoError(t, err)
	require.NoError(t, db.Exec(`UPDATE ticket_tiers SET sold = 2 WHERE id = ?`, sold.ID).Error)

	again, err := EnsureDemo(ctx, db, node, inventory, now, "demo-token")
	require.NoError(t, err)
	assert.Equal(t, demo.TierIDs, again.TierIDs)

	reset, err := inventory.GetTier(ctx, demo.TierIDs[0])
	require.NoError(t, err)
	assert.Equal(t, demoTiers[0].UnitPrice, reset.UnitPrice)

	_, err = inventory.GetTier(ctx, unsold.ID)
	assert.ErrorIs(t, err, inventorydomain.ErrTierNotFound)

	retired, err := inventory.GetTier(ctx, sold.ID)
	require.NoError(t, err)
	assert.Equal(t, inventorydomain.TierStatusHidden, retired.Status)
	assert.Equal(t, int64(2), retired.Sold)
}

func TestEnsureDemoRequiresToken(t *testing.T) {
	db := storetest.Open(t)
	node := storetest.Node(t)
	_, err := EnsureDemo(context.Background(), db, node, newInventory(t, db, node), time.Now().UTC(), "  ")
	require.Error(t, err)
}
