package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	checkoutdomain "github.com/jhnmartin/hey-sub000/internal/checkout/domain"
)

type checkoutItemRequest struct {
	TierID   string `json:"tier_id"`
	Quantity int64  `json:"quantity"`
}

type checkoutRequest struct {
	EventID    string                `json:"event_id"`
	Items      []checkoutItemRequest `json:"items"`
	SuccessURL string                `json:"success_url"`
	CancelURL  string                `json:"cancel_url"`
}

func (s *Server) InitiateCheckout(c *gin.Context) {
	var body checkoutRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	eventID, err := s.pathID("event_id", body.EventID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	req := checkoutdomain.Request{
		EventID:    eventID,
		Items:      make([]checkoutdomain.ItemRequest, 0, len(body.Items)),
		SuccessURL: strings.TrimSpace(body.SuccessURL),
		CancelURL:  strings.TrimSpace(body.CancelURL),
	}
	for _, item := range body.Items {
		tierID, err := s.pathID("tier_id", item.TierID)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		req.Items = append(req.Items, checkoutdomain.ItemRequest{TierID: tierID, Quantity: item.Quantity})
	}

	result, err := s.checkoutSvc.Initiate(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"order_id":     result.OrderID.String(),
		"redirect_url": result.RedirectURL,
	})
}
