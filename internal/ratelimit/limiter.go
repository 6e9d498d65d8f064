package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jhnmartin/hey-sub000/internal/config"
	redis "github.com/redis/go-redis/v9"
)

const (
	keyRedeemClient  = "boxoffice:ratelimit:redeem:%s"
	keyCheckoutBuyer = "boxoffice:ratelimit:checkout:%s"
)

// Limiter throttles the door scanner and checkout endpoints. A nil Limiter
// allows everything.
type Limiter struct {
	bucket *TokenBucket

	redeemRate    float64
	redeemBurst   int
	checkoutRate  float64
	checkoutBurst int
}

func NewLimiter(cfg config.Config, client redis.Scripter) (*Limiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled || client == nil {
		return nil, nil
	}
	if limitCfg.RedeemRate <= 0 || limitCfg.RedeemBurst <= 0 {
		return nil, errors.New("redeem rate limit must be positive")
	}
	if limitCfg.CheckoutRate <= 0 || limitCfg.CheckoutBurst <= 0 {
		return nil, errors.New("checkout rate limit must be positive")
	}
	return &Limiter{
		bucket:        NewTokenBucket(client),
		redeemRate:    limitCfg.RedeemRate,
		redeemBurst:   limitCfg.RedeemBurst,
		checkoutRate:  limitCfg.CheckoutRate,
		checkoutBurst: limitCfg.CheckoutBurst,
	}, nil
}

func (l *Limiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

// AllowRedemption is keyed by the scanning client's address.
func (l *Limiter) AllowRedemption(ctx context.Context, clientIP string) (*RateLimitResult, error) {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyRedeemClient, strings.TrimSpace(clientIP)), l.redeemRate, l.redeemBurst)
}

// AllowCheckout is keyed by the authenticated buyer.
func (l *Limiter) AllowCheckout(ctx context.Context, buyerID string) (*RateLimitResult, error) {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyCheckoutBuyer, strings.TrimSpace(buyerID)), l.checkoutRate, l.checkoutBurst)
}

// NewRedisClient returns nil when rate limiting is disabled.
func NewRedisClient(cfg config.Config) (*redis.Client, error) {
	if !cfg.RateLimit.Enabled {
		return nil, nil
	}
	addr := strings.TrimSpace(cfg.RateLimit.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RateLimit.RedisPassword),
		DB:       cfg.RateLimit.RedisDB,
	}), nil
}
