package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jhnmartin/hey-sub000/internal/buyercontext"
	obscontext "github.com/jhnmartin/hey-sub000/internal/observability/context"
)

const sessionCookieName = "boxoffice_session"

// BuyerAuthRequired resolves the buyer session from a bearer token or the
// session cookie and stores the buyer on the request context.
func (s *Server) BuyerAuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			if cookie, err := c.Cookie(sessionCookieName); err == nil {
				token = strings.TrimSpace(cookie)
			}
		}
		if token == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		buyer, err := s.identitySvc.Authenticate(c.Request.Context(), token)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		ctx := buyercontext.WithBuyer(c.Request.Context(), buyercontext.Buyer{
			ID:          buyer.ID,
			DisplayName: buyer.DisplayName,
		})
		ctx = obscontext.WithBuyerID(ctx, buyer.ID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
