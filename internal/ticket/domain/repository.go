package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// Insert stores a ticket unless its code is taken; it reports whether
	// the row was written.
	Insert(ctx context.Context, db *gorm.DB, ticket *Ticket) (bool, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Ticket, error)
	FindByCode(ctx context.Context, db *gorm.DB, code string) (*Ticket, error)
	ListByOrder(ctx context.Context, db *gorm.DB, orderID, buyerID snowflake.ID) ([]Ticket, error)
	// ListForBuyer pages by descending id; beforeID 0 starts at the newest.
	ListForBuyer(ctx context.Context, db *gorm.DB, buyerID, beforeID snowflake.ID, limit int) ([]Ticket, error)
	// MarkUsed flips a valid ticket to used and reports whether it did.
	MarkUsed(ctx context.Context, db *gorm.DB, code string, at time.Time) (bool, error)
}
