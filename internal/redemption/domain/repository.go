package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	FindPass(ctx context.Context, db *gorm.DB, code string) (*Pass, error)
}
