package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jhnmartin/hey-sub000/internal/identity/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindSessionByTokenHash(ctx context.Context, db *gorm.DB, tokenHash string) (*domain.Session, error) {
	var session domain.Session
	err := db.WithContext(ctx).Raw(
		`SELECT id, buyer_id, token_hash, expires_at, revoked_at, last_seen_at, created_at
		 FROM buyer_sessions WHERE token_hash = ?`,
		tokenHash,
	).Scan(&session).Error
	if err != nil {
		return nil, err
	}
	if session.ID == 0 {
		return nil, nil
	}
	return &session, nil
}

func (r *repo) TouchSession(ctx context.Context, db *gorm.DB, id snowflake.ID, seenAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE buyer_sessions SET last_seen_at = ? WHERE id = ?`,
		seenAt,
		id,
	).Error
}

func (r *repo) FindBuyerByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Buyer, error) {
	var buyer domain.Buyer
	err := db.WithContext(ctx).Raw(
		`SELECT id, display_name, email, created_at FROM buyers WHERE id = ?`,
		id,
	).Scan(&buyer).Error
	if err != nil {
		return nil, err
	}
	if buyer.ID == 0 {
		return nil, nil
	}
	return &buyer, nil
}
