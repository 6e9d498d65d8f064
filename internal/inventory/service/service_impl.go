package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/jhnmartin/hey-sub000/internal/clock"
	"github.com/jhnmartin/hey-sub000/internal/inventory/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("inventory.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) GetTier(ctx context.Context, id snowflake.ID) (*domain.TicketTier, error) {
	tier, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if tier == nil {
		return nil, domain.ErrTierNotFound
	}
	return tier, nil
}

// ListByEvent returns the buyer-visible tiers of an event.
func (s *Service) ListByEvent(ctx context.Context, eventID snowflake.ID) ([]domain.TicketTier, error) {
	return s.repo.ListByEvent(ctx, s.db, eventID, false)
}

func (s *Service) CreateTier(ctx context.Context, req domain.CreateTierRequest) (*domain.TicketTier, error) {
	if req.EventID == 0 {
		return nil, domain.ErrInvalidEvent
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	if req.UnitPrice < 0 {
		return nil, domain.ErrInvalidPrice
	}
	if req.Quantity < 0 {
		return nil, domain.ErrInvalidQuantity
	}
	status := req.Status
	if status == "" {
		status = domain.TierStatusActive
	}
	if !status.Valid() {
		return nil, domain.ErrInvalidStatus
	}

	now := s.clock.Now()
	tier := domain.TicketTier{
		ID:        s.genID.Generate(),
		EventID:   req.EventID,
		Name:      name,
		UnitPrice: req.UnitPrice,
		Quantity:  req.Quantity,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, s.db, &tier); err != nil {
		return nil, err
	}
	return &tier, nil
}

func (s *Service) UpdateTier(ctx context.Context, id snowflake.ID, req domain.UpdateTierRequest) (*domain.TicketTier, error) {
	tier, err := s.GetTier(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.ErrInvalidName
		}
		tier.Name = name
	}
	if req.UnitPrice != nil {
		if *req.UnitPrice < 0 {
			return nil, domain.ErrInvalidPrice
		}
		tier.UnitPrice = *req.UnitPrice
	}
	if req.Quantity != nil {
		if *req.Quantity < 0 {
			return nil, domain.ErrInvalidQuantity
		}
		if *req.Quantity < tier.Sold {
			return nil, domain.ErrQuantityBelowSold
		}
		tier.Quantity = *req.Quantity
	}
	if req.Status != nil {
		if !req.Status.Valid() {
			return nil, domain.ErrInvalidStatus
		}
		tier.Status = *req.Status
	}
	tier.UpdatedAt = s.clock.Now()

	affected, err := s.repo.UpdateDetails(ctx, s.db, tier)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		// sold moved past the new quantity between the read and the write.
		return nil, domain.ErrQuantityBelowSold
	}
	return s.GetTier(ctx, id)
}

func (s *Service) DeleteTier(ctx context.Context, id snowflake.ID) error {
	if _, err := s.GetTier(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, s.db, id)
}
