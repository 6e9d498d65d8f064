package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	Redeem(ctx context.Context, code string) (*Confirmation, error)
}

var (
	ErrNotFound        = errors.New("ticket_not_found")
	ErrAlreadyRedeemed = errors.New("already_redeemed")
	ErrVoided          = errors.New("voided")
)

// AlreadyRedeemedError reports when the ticket was first admitted.
type AlreadyRedeemedError struct {
	TicketID   snowflake.ID
	RedeemedAt time.Time
}

func (e *AlreadyRedeemedError) Error() string { return ErrAlreadyRedeemed.Error() }

func (e *AlreadyRedeemedError) Unwrap() error { return ErrAlreadyRedeemed }
