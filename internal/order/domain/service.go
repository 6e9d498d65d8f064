package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	// Get returns an order owned by the buyer in ctx.
	Get(ctx context.Context, id snowflake.ID) (*Order, error)
}

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrNotFound        = errors.New("order_not_found")
	ErrInvalidState    = errors.New("invalid_state")

	// ErrDuplicateReference means the session id is already bound to another order.
	ErrDuplicateReference = errors.New("duplicate_payment_reference")
)
