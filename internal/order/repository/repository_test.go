package repository

import (
	"context"
	"testing"
	"time"

	"github.com/jhnmartin/hey-sub000/internal/order/domain"
	"github.com/jhnmartin/hey-sub000/internal/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func insertPendingOrder(t *testing.T, db *gorm.DB) *domain.Order {
	t.Helper()
	seed := storetest.NewSeed(t, db)
	buyerID := seed.Buyer("Ada", "ada@example.com")
	eventID := seed.Event("Gala", "platform")
	now := time.Now().UTC()

	order := &domain.Order{
		ID:      storetest.Node(t).Generate(),
		BuyerID: buyerID,
		EventID: eventID,
		LineItems: []domain.LineItem{
			{TierID: 11, TierName: "GA", Quantity: 2, UnitPrice: 2500},
		},
		TotalAmount:      5000,
		PlatformFee:      250,
		FeeRate:          "0.05",
		Currency:         "usd",
		PaymentReference: domain.PlaceholderReference(),
		Status:           domain.OrderStatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	require.NoError(t, Provide().Insert(context.Background(), db, order))
	return order
}

func TestInsertAndFindKeepsLineItemSnapshot(t *testing.T) {
	db := storetest.Open(t)
	order := insertPendingOrder(t, db)

	found, err := Provide().FindByID(context.Background(), db, order.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Len(t, found.LineItems, 1)
	assert.Equal(t, order.LineItems[0], found.LineItems[0])
	assert.Equal(t, domain.OrderStatusPending, found.Status)
	assert.Nil(t, found.PaymentIntent)

	missing, err := Provide().FindByPaymentReference(context.Background(), db, "cs_unknown")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSetPaymentReferenceOnlyReplacesPlaceholder(t *testing.T) {
	db := storetest.Open(t)
	order := insertPendingOrder(t, db)
	repo := Provide()
	ctx := context.Background()

	ok, err := repo.SetPaymentReference(ctx, db, order.ID, order.PaymentReference, "cs_test_1", time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.SetPaymentReference(ctx, db, order.ID, order.PaymentReference, "cs_test_2", time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, ok)

	found, err := repo.FindByPaymentReference(ctx, db, "cs_test_1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, order.ID, found.ID)
}

func TestSetPaymentReferenceRejectsReferenceOfAnotherOrder(t *testing.T) {
	db := storetest.Open(t)
	first := insertPendingOrder(t, db)
	repo := Provide()
	ctx := context.Background()

	second := *first
	second.ID = first.ID + 1
	second.PaymentReference = domain.PlaceholderReference()
	require.NoError(t, repo.Insert(ctx, db, &second))

	ok, err := repo.SetPaymentReference(ctx, db, first.ID, first.PaymentReference, "cs_shared", time.Now().UTC())
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.SetPaymentReference(ctx, db, second.ID, second.PaymentReference, "cs_shared", time.Now().UTC())
	require.ErrorIs(t, err, domain.ErrDuplicateReference)
	assert.False(t, ok)
}

func TestTransitionIsCompareAndSwap(t *testing.T) {
	db := storetest.Open(t)
	order := insertPendingOrder(t, db)
	repo := Provide()
	ctx := context.Background()
	at := time.Now().UTC()

	won, err := repo.Transition(ctx, db, order.ID, domain.OrderStatusPending, domain.OrderStatusCompleted,
		domain.TransitionUpdate{At: at, PaymentIntent: "pi_1"})
	require.NoError(t, err)
	assert.True(t, won)

	won, err = repo.Transition(ctx, db, order.ID, domain.OrderStatusPending, domain.OrderStatusCompleted,
		domain.TransitionUpdate{At: at})
	require.NoError(t, err)
	assert.False(t, won)

	won, err = repo.Transition(ctx, db, order.ID, domain.OrderStatusPending, domain.OrderStatusFailed,
		domain.TransitionUpdate{At: at, FailureReason: "expired"})
	require.NoError(t, err)
	assert.False(t, won)

	_, err = repo.Transition(ctx, db, order.ID, domain.OrderStatusCompleted, domain.OrderStatusFailed,
		domain.TransitionUpdate{At: at})
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	found, err := repo.FindByID(ctx, db, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCompleted, found.Status)
	require.NotNil(t, found.PaymentIntent)
	assert.Equal(t, "pi_1", *found.PaymentIntent)
	assert.NotNil(t, found.CompletedAt)
	assert.Nil(t, found.FailedAt)
}
