package server

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jhnmartin/hey-sub000/internal/buyercontext"
	"github.com/jhnmartin/hey-sub000/internal/ratelimit"
	"go.uber.org/zap"
)

const (
	rateLimitEndpointRedeem   = "redeem"
	rateLimitEndpointCheckout = "checkout"
)

// RedeemRateLimit throttles door scans per client address.
func (s *Server) RedeemRateLimit() gin.HandlerFunc {
	return s.rateLimit(rateLimitEndpointRedeem, func(c *gin.Context) (*ratelimit.RateLimitResult, error) {
		return s.limiter.AllowRedemption(c.Request.Context(), c.ClientIP())
	})
}

// CheckoutRateLimit throttles checkout attempts per buyer. It must run after
// BuyerAuthRequired.
func (s *Server) CheckoutRateLimit() gin.HandlerFunc {
	return s.rateLimit(rateLimitEndpointCheckout, func(c *gin.Context) (*ratelimit.RateLimitResult, error) {
		buyerID, _ := buyercontext.BuyerIDFromContext(c.Request.Context())
		return s.limiter.AllowCheckout(c.Request.Context(), buyerID.String())
	})
}

func (s *Server) rateLimit(endpoint string, allow func(c *gin.Context) (*ratelimit.RateLimitResult, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Enabled() {
			c.Next()
			return
		}

		result, err := allow(c)
		if err != nil {
			s.log(c.Request.Context()).Warn("rate limit check failed",
				zap.String("endpoint", endpoint),
				zap.Error(err),
			)
			AbortWithError(c, ErrServiceUnavailable)
			return
		}

		if result == nil || result.Allowed {
			s.obsMetrics.RecordRateLimitAllowed(c.Request.Context(), endpoint)
			c.Next()
			return
		}

		s.obsMetrics.RecordRateLimitDenied(c.Request.Context(), endpoint, "bucket_empty")
		seconds := int(result.RetryAfter.Seconds())
		if seconds < 1 {
			seconds = 1
		}
		c.Header("Retry-After", strconv.Itoa(seconds))
		c.Header("X-Rate-Limited-Reason", endpoint)
		AbortWithError(c, ErrRateLimited)
	}
}
