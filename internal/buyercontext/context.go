package buyercontext

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// BuyerContextKey is the request context key for the authenticated buyer.
type BuyerContextKey struct{}

// Buyer is the identity the request acts on behalf of.
type Buyer struct {
	ID          snowflake.ID
	DisplayName string
}

// WithBuyer stores the authenticated buyer in the context.
func WithBuyer(ctx context.Context, buyer Buyer) context.Context {
	return context.WithValue(ctx, BuyerContextKey{}, buyer)
}

// BuyerFromContext returns the authenticated buyer, if set.
func BuyerFromContext(ctx context.Context) (Buyer, bool) {
	if ctx == nil {
		return Buyer{}, false
	}
	buyer, ok := ctx.Value(BuyerContextKey{}).(Buyer)
	if !ok || buyer.ID == 0 {
		return Buyer{}, false
	}
	return buyer, true
}

// BuyerIDFromContext returns the authenticated buyer id, if set.
func BuyerIDFromContext(ctx context.Context) (snowflake.ID, bool) {
	buyer, ok := BuyerFromContext(ctx)
	return buyer.ID, ok
}
