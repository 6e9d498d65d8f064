package domain

import (
	"context"
	"errors"
)

type Service interface {
	Initiate(ctx context.Context, req Request) (*Result, error)
}

var (
	ErrUnauthenticated      = errors.New("unauthenticated")
	ErrInvalidTicketingMode = errors.New("invalid_ticketing_mode")
	ErrEmptyItems           = errors.New("empty_items")
	ErrTooManyItems         = errors.New("too_many_items")
	ErrInvalidQuantity      = errors.New("invalid_quantity")
	ErrInvalidReturnURL     = errors.New("invalid_return_url")
)
