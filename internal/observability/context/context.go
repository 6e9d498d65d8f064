// Package context carries request-scoped correlation values used by logs and spans.
package context

import (
	"context"
	"strings"
)

type requestIDKey struct{}
type buyerIDKey struct{}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(requestIDKey{}).(string)
	return value
}

// WithBuyerID records the authenticated buyer for log correlation only.
func WithBuyerID(ctx context.Context, buyerID string) context.Context {
	buyerID = strings.TrimSpace(buyerID)
	if buyerID == "" {
		return ctx
	}
	return context.WithValue(ctx, buyerIDKey{}, buyerID)
}

func BuyerIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(buyerIDKey{}).(string)
	return value
}
