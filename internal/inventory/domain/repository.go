package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, tier *TicketTier) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*TicketTier, error)
	ListByEvent(ctx context.Context, db *gorm.DB, eventID snowflake.ID, includeHidden bool) ([]TicketTier, error)
	// UpdateDetails writes name, price, quantity and status. It never touches
	// sold and affects no row when quantity would drop below sold.
	UpdateDetails(ctx context.Context, db *gorm.DB, tier *TicketTier) (int64, error)
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	// IncrementSold is the only writer of sold. It returns nil when the tier
	// no longer exists.
	IncrementSold(ctx context.Context, tx *gorm.DB, id snowflake.ID, qty int64, at time.Time) (*SoldCounter, error)
}
