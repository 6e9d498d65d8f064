package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jhnmartin/hey-sub000/internal/clock"
	"github.com/jhnmartin/hey-sub000/internal/redemption/domain"
	"github.com/jhnmartin/hey-sub000/internal/redemption/repository"
	"github.com/jhnmartin/hey-sub000/internal/storetest"
	"github.com/jhnmartin/hey-sub000/internal/ticket/code"
	ticketdomain "github.com/jhnmartin/hey-sub000/internal/ticket/domain"
	ticketrepo "github.com/jhnmartin/hey-sub000/internal/ticket/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db    *gorm.DB
	svc   domain.Service
	clock *clock.FakeClock
	node  *snowflake.Node
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := storetest.Open(t)
	clk := clock.NewFakeClock(time.Date(2026, 5, 1, 19, 30, 0, 0, time.UTC))
	return &fixture{
		db:    db,
		clock: clk,
		node:  storetest.Node(t),
		svc: New(Params{
			DB:         db,
			Log:        zap.NewNop(),
			Clock:      clk,
			Repo:       repository.Provide(),
			TicketRepo: ticketrepo.Provide(),
		}),
	}
}

// issue stores one ticket for a fresh buyer and event and returns its code.
func (f *fixture) issue(t *testing.T, status ticketdomain.TicketStatus) (string, *ticketdomain.Ticket) {
	t.Helper()
	seed := storetest.NewSeed(t, f.db)
	buyerID := seed.Buyer("Grace Hopper", "grace@example.com")
	eventID := seed.Event("Harbor Lights", "platform")
	tierID := seed.Tier(eventID, "Balcony", 4000, 50, 1)

	raw, err := code.NewGenerator().New()
	require.NoError(t, err)
	ticket := &ticketdomain.Ticket{
		ID:       f.node.Generate(),
		Code:     raw,
		OrderID:  f.node.Generate(),
		BuyerID:  buyerID,
		EventID:  eventID,
		TierID:   tierID,
		TierName: "Balcony",
		Status:   status,
		IssuedAt: f.clock.Now().Add(-time.Hour),
	}
	inserted, err := ticketrepo.Provide().Insert(context.Background(), f.db, ticket)
	require.NoError(t, err)
	require.True(t, inserted)
	return raw, ticket
}

func TestRedeemAdmitsOnce(t *testing.T) {
	f := newFixture(t)
	raw, ticket := f.issue(t, ticketdomain.TicketStatusValid)

	confirmation, err := f.svc.Redeem(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, ticket.ID, confirmation.TicketID)
	assert.Equal(t, "Harbor Lights", confirmation.EventName)
	assert.Equal(t, "Grace Hopper", confirmation.BuyerName)
	assert.Equal(t, "Balcony", confirmation.TierName)
	assert.True(t, f.clock.Now().Equal(confirmation.RedeemedAt))
	firstAdmitted := confirmation.RedeemedAt

	f.clock.Advance(10 * time.Minute)
	for i := 0; i < 2; i++ {
		_, err = f.svc.Redeem(context.Background(), raw)
		require.ErrorIs(t, err, domain.ErrAlreadyRedeemed)
		var redeemed *domain.AlreadyRedeemedError
		require.True(t, errors.As(err, &redeemed))
		assert.True(t, firstAdmitted.Equal(redeemed.RedeemedAt), "redeemed_at must not move")
	}

	assert.Equal(t, int64(1), storetest.Count(t, f.db, "tickets", "id = ? AND status = ?", ticket.ID, "used"))
}

func TestRedeemAcceptsPrintedForm(t *testing.T) {
	f := newFixture(t)
	raw, _ := f.issue(t, ticketdomain.TicketStatusValid)

	printed := strings.ToLower(code.Format(raw))
	_, err := f.svc.Redeem(context.Background(), "  "+printed+" ")
	require.NoError(t, err)
}

func TestRedeemRejections(t *testing.T) {
	f := newFixture(t)
	voided, _ := f.issue(t, ticketdomain.TicketStatusVoid)
	unknown, err := code.NewGenerator().New()
	require.NoError(t, err)

	_, err = f.svc.Redeem(context.Background(), voided)
	assert.ErrorIs(t, err, domain.ErrVoided)

	_, err = f.svc.Redeem(context.Background(), unknown)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.Redeem(context.Background(), "not-a-ticket")
	assert.ErrorIs(t, err, code.ErrInvalidCode)

	assert.Equal(t, int64(1), storetest.Count(t, f.db, "tickets", "status = ?", "void"))
}

func TestConcurrentRedemptionHasOneWinner(t *testing.T) {
	f := newFixture(t)
	raw, _ := f.issue(t, ticketdomain.TicketStatusValid)

	const scanners = 10
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		admitted int
		rejected int
	)
	for i := 0; i < scanners; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Redeem(context.Background(), raw)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				admitted++
			case errors.Is(err, domain.ErrAlreadyRedeemed):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, admitted)
	assert.Equal(t, scanners-1, rejected)
}
