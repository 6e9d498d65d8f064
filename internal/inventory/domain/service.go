package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type CreateTierRequest struct {
	EventID   snowflake.ID
	Name      string
	UnitPrice int64
	Quantity  int64
	Status    TierStatus
}

// UpdateTierRequest carries optional changes; nil fields are left alone.
type UpdateTierRequest struct {
	Name      *string
	UnitPrice *int64
	Quantity  *int64
	Status    *TierStatus
}

type Service interface {
	GetTier(ctx context.Context, id snowflake.ID) (*TicketTier, error)
	ListByEvent(ctx context.Context, eventID snowflake.ID) ([]TicketTier, error)
	CreateTier(ctx context.Context, req CreateTierRequest) (*TicketTier, error)
	UpdateTier(ctx context.Context, id snowflake.ID, req UpdateTierRequest) (*TicketTier, error)
	DeleteTier(ctx context.Context, id snowflake.ID) error
}

var (
	ErrTierNotFound          = errors.New("tier_not_found")
	ErrTierUnavailable       = errors.New("tier_unavailable")
	ErrInsufficientInventory = errors.New("insufficient_inventory")
	ErrInvalidEvent          = errors.New("invalid_event")
	ErrInvalidName           = errors.New("invalid_name")
	ErrInvalidPrice          = errors.New("invalid_price")
	ErrInvalidQuantity       = errors.New("invalid_quantity")
	ErrInvalidStatus         = errors.New("invalid_status")
	ErrQuantityBelowSold     = errors.New("quantity_below_sold")
)
