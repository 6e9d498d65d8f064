package server

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jhnmartin/hey-sub000/internal/buyercontext"
	"github.com/jhnmartin/hey-sub000/internal/providers/pdf"
	redemptiondomain "github.com/jhnmartin/hey-sub000/internal/redemption/domain"
	ticketdomain "github.com/jhnmartin/hey-sub000/internal/ticket/domain"
	"github.com/jhnmartin/hey-sub000/pkg/db/pagination"
	"go.uber.org/zap"
)

// ticketView exposes the printed code to the ticket holder only.
type ticketView struct {
	ID          string  `json:"id"`
	OrderID     string  `json:"order_id"`
	EventID     string  `json:"event_id"`
	TierID      string  `json:"tier_id"`
	TierName    string  `json:"tier_name"`
	Code        string  `json:"code"`
	DisplayCode string  `json:"display_code"`
	Status      string  `json:"status"`
	IssuedAt    string  `json:"issued_at"`
	RedeemedAt  *string `json:"redeemed_at,omitempty"`
}

func newTicketView(t ticketdomain.Ticket) ticketView {
	view := ticketView{
		ID:          t.ID.String(),
		OrderID:     t.OrderID.String(),
		EventID:     t.EventID.String(),
		TierID:      t.TierID.String(),
		TierName:    t.TierName,
		Code:        t.Code,
		DisplayCode: t.DisplayCode(),
		Status:      string(t.Status),
		IssuedAt:    formatTimestamp(t.IssuedAt),
	}
	if t.RedeemedAt != nil {
		redeemed := formatTimestamp(*t.RedeemedAt)
		view.RedeemedAt = &redeemed
	}
	return view
}

func newTicketViews(tickets []ticketdomain.Ticket) []ticketView {
	views := make([]ticketView, 0, len(tickets))
	for _, t := range tickets {
		views = append(views, newTicketView(t))
	}
	return views
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func (s *Server) ListMyTickets(c *gin.Context) {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.ticketSvc.ListForBuyer(c.Request.Context(), page)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":      newTicketViews(resp.Tickets),
		"page_info": resp.PageInfo,
	})
}

func (s *Server) GetTicketPDF(c *gin.Context) {
	ticketID, err := s.pathID("ticket_id", c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ctx := c.Request.Context()
	ticket, err := s.ticketSvc.Get(ctx, ticketID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if ticket.Status == ticketdomain.TicketStatusVoid {
		AbortWithError(c, redemptiondomain.ErrVoided)
		return
	}

	order, err := s.orderSvc.Get(ctx, ticket.OrderID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	event, err := s.eventRepo.FindByID(ctx, s.db, ticket.EventID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	data := pdf.TicketData{
		TicketID:    ticket.ID.String(),
		OrderID:     order.ID.String(),
		TierName:    ticket.TierName,
		Currency:    order.Currency,
		Code:        ticket.Code,
		DisplayCode: ticket.DisplayCode(),
		Status:      string(ticket.Status),
		IssuedAt:    ticket.IssuedAt,
	}
	if event != nil {
		data.EventName = event.Name
		data.StartsAt = event.StartsAt
	}
	if buyer, ok := buyercontext.BuyerFromContext(ctx); ok {
		data.HolderName = buyer.DisplayName
	}
	for _, item := range order.LineItems {
		if item.TierID == ticket.TierID {
			data.UnitPrice = item.UnitPrice
			break
		}
	}

	doc, err := s.pdfProvider.GenerateTicket(ctx, data)
	if err != nil {
		s.log(ctx).Error("render ticket pdf", zap.String("ticket_id", ticket.ID.String()), zap.Error(err))
		AbortWithError(c, ErrInternal)
		return
	}

	body, err := io.ReadAll(doc)
	if err != nil {
		AbortWithError(c, ErrInternal)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=\"ticket-%s.pdf\"", ticket.ID.String()))
	c.Data(http.StatusOK, "application/pdf", body)
}
