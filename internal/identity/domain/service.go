package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	// Authenticate resolves a raw bearer or cookie token to its buyer.
	Authenticate(ctx context.Context, rawToken string) (*Buyer, error)
	GetBuyer(ctx context.Context, id snowflake.ID) (*Buyer, error)
}

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrSessionExpired  = errors.New("session_expired")
	ErrSessionRevoked  = errors.New("session_revoked")
	ErrNotFound        = errors.New("not_found")
)
