package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	eventdomain "github.com/jhnmartin/hey-sub000/internal/event/domain"
	inventorydomain "github.com/jhnmartin/hey-sub000/internal/inventory/domain"
)

type tierView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int64  `json:"quantity"`
	Sold      int64  `json:"sold"`
	Available int64  `json:"available"`
	Status    string `json:"status"`
}

func newTierView(tier inventorydomain.TicketTier) tierView {
	return tierView{
		ID:        tier.ID.String(),
		Name:      tier.Name,
		UnitPrice: tier.UnitPrice,
		Quantity:  tier.Quantity,
		Sold:      tier.Sold,
		Available: tier.Available(),
		Status:    string(tier.Status),
	}
}

func (s *Server) ListEventTiers(c *gin.Context) {
	eventID, err := s.pathID("event_id", c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	event, err := s.eventRepo.FindByID(c.Request.Context(), s.db, eventID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if event == nil {
		AbortWithError(c, eventdomain.ErrNotFound)
		return
	}

	tiers, err := s.inventorySvc.ListByEvent(c.Request.Context(), eventID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	views := make([]tierView, 0, len(tiers))
	for _, tier := range tiers {
		views = append(views, newTierView(tier))
	}

	c.JSON(http.StatusOK, gin.H{
		"event_id":       event.ID.String(),
		"event_name":     event.Name,
		"ticketing_mode": event.TicketingMode,
		"data":           views,
	})
}
