package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type redeemRequest struct {
	Code string `json:"code"`
}

func (s *Server) RedeemTicket(c *gin.Context) {
	var req redeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	confirmation, err := s.redemptionSvc.Redeem(c.Request.Context(), req.Code)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ticket_id":   confirmation.TicketID.String(),
		"event_name":  confirmation.EventName,
		"buyer_name":  confirmation.BuyerName,
		"tier_name":   confirmation.TierName,
		"redeemed_at": formatTimestamp(confirmation.RedeemedAt),
	})
}
