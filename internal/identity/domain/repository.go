package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindSessionByTokenHash(ctx context.Context, db *gorm.DB, tokenHash string) (*Session, error)
	TouchSession(ctx context.Context, db *gorm.DB, id snowflake.ID, seenAt time.Time) error
	FindBuyerByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Buyer, error)
}
