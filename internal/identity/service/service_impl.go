package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/jhnmartin/hey-sub000/internal/clock"
	"github.com/jhnmartin/hey-sub000/internal/identity/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("identity.service"),
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Authenticate(ctx context.Context, rawToken string) (*domain.Buyer, error) {
	token := strings.TrimSpace(rawToken)
	if token == "" {
		return nil, domain.ErrUnauthenticated
	}

	session, err := s.repo.FindSessionByTokenHash(ctx, s.db, domain.HashToken(token))
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, domain.ErrUnauthenticated
	}

	now := s.clock.Now()
	if session.RevokedAt != nil {
		return nil, domain.ErrSessionRevoked
	}
	if now.After(session.ExpiresAt) {
		return nil, domain.ErrSessionExpired
	}

	buyer, err := s.repo.FindBuyerByID(ctx, s.db, session.BuyerID)
	if err != nil {
		return nil, err
	}
	if buyer == nil {
		s.log.Warn("session references missing buyer", zap.String("session_id", session.ID.String()))
		return nil, domain.ErrUnauthenticated
	}

	if err := s.repo.TouchSession(ctx, s.db, session.ID, now); err != nil {
		s.log.Warn("failed to update session last_seen_at", zap.Error(err))
	}
	return buyer, nil
}

func (s *Service) GetBuyer(ctx context.Context, id snowflake.ID) (*domain.Buyer, error) {
	buyer, err := s.repo.FindBuyerByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if buyer == nil {
		return nil, domain.ErrNotFound
	}
	return buyer, nil
}
