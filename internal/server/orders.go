package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	orderdomain "github.com/jhnmartin/hey-sub000/internal/order/domain"
	ticketdomain "github.com/jhnmartin/hey-sub000/internal/ticket/domain"
)

type lineItemView struct {
	TierID    string `json:"tier_id"`
	TierName  string `json:"tier_name"`
	Quantity  int64  `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

type orderView struct {
	ID            string         `json:"id"`
	EventID       string         `json:"event_id"`
	Status        string         `json:"status"`
	LineItems     []lineItemView `json:"line_items"`
	TotalAmount   int64          `json:"total_amount"`
	PlatformFee   int64          `json:"platform_fee"`
	Currency      string         `json:"currency"`
	FailureReason *string        `json:"failure_reason,omitempty"`
	CreatedAt     string         `json:"created_at"`
	CompletedAt   *string        `json:"completed_at,omitempty"`
}

func newOrderView(order *orderdomain.Order) orderView {
	view := orderView{
		ID:            order.ID.String(),
		EventID:       order.EventID.String(),
		Status:        string(order.Status),
		LineItems:     make([]lineItemView, 0, len(order.LineItems)),
		TotalAmount:   order.TotalAmount,
		PlatformFee:   order.PlatformFee,
		Currency:      order.Currency,
		FailureReason: order.FailureReason,
		CreatedAt:     formatTimestamp(order.CreatedAt),
	}
	for _, item := range order.LineItems {
		view.LineItems = append(view.LineItems, lineItemView{
			TierID:    item.TierID.String(),
			TierName:  item.TierName,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	if order.CompletedAt != nil {
		completed := formatTimestamp(*order.CompletedAt)
		view.CompletedAt = &completed
	}
	return view
}

func (s *Server) GetOrder(c *gin.Context) {
	orderID, err := s.pathID("order_id", c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	order, err := s.orderSvc.Get(c.Request.Context(), orderID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": newOrderView(order)})
}

func (s *Server) ListOrderTickets(c *gin.Context) {
	orderID, err := s.pathID("order_id", c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	order, err := s.orderSvc.Get(c.Request.Context(), orderID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if order.Status != orderdomain.OrderStatusCompleted {
		AbortWithError(c, ticketdomain.ErrOrderNotComplete)
		return
	}

	tickets, err := s.ticketSvc.ListByOrder(c.Request.Context(), orderID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": newTicketViews(tickets)})
}
