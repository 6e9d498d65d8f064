package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	orderdomain "github.com/jhnmartin/hey-sub000/internal/order/domain"
	"github.com/jhnmartin/hey-sub000/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListTicketsResponse struct {
	pagination.PageInfo
	Tickets []Ticket `json:"tickets"`
}

// Issuer mints the tickets of an order that has just completed.
type Issuer interface {
	// Issue must run inside the transaction that completed the order.
	Issue(ctx context.Context, tx *gorm.DB, order *orderdomain.Order) ([]Ticket, error)
}

type Service interface {
	Issuer
	Get(ctx context.Context, id snowflake.ID) (*Ticket, error)
	ListByOrder(ctx context.Context, orderID snowflake.ID) ([]Ticket, error)
	ListForBuyer(ctx context.Context, page pagination.Pagination) (ListTicketsResponse, error)
}

var (
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrNotFound         = errors.New("ticket_not_found")
	ErrOrderNotComplete = errors.New("order_not_completed")
	ErrCodeExhausted    = errors.New("code_generation_exhausted")
)
