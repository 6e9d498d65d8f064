package service

import (
	"context"
	"fmt"

	"github.com/jhnmartin/hey-sub000/internal/clock"
	"github.com/jhnmartin/hey-sub000/internal/observability/metrics"
	"github.com/jhnmartin/hey-sub000/internal/redemption/domain"
	"github.com/jhnmartin/hey-sub000/internal/ticket/code"
	ticketdomain "github.com/jhnmartin/hey-sub000/internal/ticket/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Clock      clock.Clock
	Repo       domain.Repository
	TicketRepo ticketdomain.Repository
	Metrics    *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	clock   clock.Clock
	repo    domain.Repository
	tickets ticketdomain.Repository
	metrics *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("redemption.service"),
		clock:   p.Clock,
		repo:    p.Repo,
		tickets: p.TicketRepo,
		metrics: p.Metrics,
	}
}

// Redeem admits the holder of raw. The valid to used swap is a single
// conditional update, so of two concurrent scans exactly one wins.
func (s *Service) Redeem(ctx context.Context, raw string) (*domain.Confirmation, error) {
	normalized, err := code.Normalize(raw)
	if err != nil {
		s.metrics.RecordRedemption(ctx, "invalid")
		return nil, err
	}

	won, err := s.tickets.MarkUsed(ctx, s.db, normalized, s.clock.Now())
	if err != nil {
		return nil, err
	}
	pass, err := s.repo.FindPass(ctx, s.db, normalized)
	if err != nil {
		return nil, err
	}
	if pass == nil {
		s.metrics.RecordRedemption(ctx, "not_found")
		return nil, domain.ErrNotFound
	}

	if won {
		s.metrics.RecordRedemption(ctx, "admitted")
		s.log.Info("ticket redeemed", zap.String("ticket_id", pass.TicketID.String()))
		confirmation := &domain.Confirmation{
			TicketID:  pass.TicketID,
			EventName: pass.EventName,
			BuyerName: pass.BuyerName,
			TierName:  pass.TierName,
		}
		if pass.RedeemedAt != nil {
			confirmation.RedeemedAt = pass.RedeemedAt.UTC()
		}
		return confirmation, nil
	}

	switch pass.Status {
	case ticketdomain.TicketStatusUsed:
		s.metrics.RecordRedemption(ctx, "already_redeemed")
		s.log.Warn("ticket presented again", zap.String("ticket_id", pass.TicketID.String()))
		redeemed := &domain.AlreadyRedeemedError{TicketID: pass.TicketID}
		if pass.RedeemedAt != nil {
			redeemed.RedeemedAt = pass.RedeemedAt.UTC()
		}
		return nil, redeemed
	case ticketdomain.TicketStatusVoid:
		s.metrics.RecordRedemption(ctx, "voided")
		return nil, domain.ErrVoided
	default:
		return nil, fmt.Errorf("redeem ticket %s: unexpected status %q", pass.TicketID, pass.Status)
	}
}
