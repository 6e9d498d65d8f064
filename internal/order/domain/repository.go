package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, order *Order) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Order, error)
	FindByPaymentReference(ctx context.Context, db *gorm.DB, ref string) (*Order, error)
	// SetPaymentReference swaps the placeholder for the processor session id
	// while the order is still pending.
	SetPaymentReference(ctx context.Context, db *gorm.DB, id snowflake.ID, placeholder, ref string, at time.Time) (bool, error)
	// Transition moves an order from one status to another and reports
	// whether this call performed the change.
	Transition(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to OrderStatus, update TransitionUpdate) (bool, error)
}
