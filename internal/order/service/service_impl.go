package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/jhnmartin/hey-sub000/internal/buyercontext"
	"github.com/jhnmartin/hey-sub000/internal/order/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo domain.Repository
}

type Service struct {
	db   *gorm.DB
	log  *zap.Logger
	repo domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:   p.DB,
		log:  p.Log.Named("order.service"),
		repo: p.Repo,
	}
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.Order, error) {
	buyerID, ok := buyercontext.BuyerIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrUnauthenticated
	}

	order, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	// Someone else's order is reported as missing.
	if order == nil || order.BuyerID != buyerID {
		return nil, domain.ErrNotFound
	}
	return order, nil
}
