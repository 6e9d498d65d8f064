package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	ticketdomain "github.com/jhnmartin/hey-sub000/internal/ticket/domain"
)

// Confirmation is shown to the door operator after a successful scan.
type Confirmation struct {
	TicketID   snowflake.ID `json:"ticket_id"`
	EventName  string       `json:"event_name"`
	BuyerName  string       `json:"buyer_name"`
	TierName   string       `json:"tier_name"`
	RedeemedAt time.Time    `json:"redeemed_at"`
}

// Pass is a ticket joined with the names printed on the confirmation.
type Pass struct {
	TicketID   snowflake.ID
	Status     ticketdomain.TicketStatus
	TierName   string
	EventName  string
	BuyerName  string
	RedeemedAt *time.Time
}
