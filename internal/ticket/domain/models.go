package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jhnmartin/hey-sub000/internal/ticket/code"
)

type TicketStatus string

const (
	TicketStatusValid TicketStatus = "valid"
	TicketStatusUsed  TicketStatus = "used"
	TicketStatusVoid  TicketStatus = "void"
)

// Ticket is one admission. Code is the only credential the door accepts.
type Ticket struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	Code       string       `gorm:"column:code" json:"-"`
	OrderID    snowflake.ID `gorm:"column:order_id" json:"order_id"`
	BuyerID    snowflake.ID `gorm:"column:buyer_id" json:"buyer_id"`
	EventID    snowflake.ID `gorm:"column:event_id" json:"event_id"`
	TierID     snowflake.ID `gorm:"column:tier_id" json:"tier_id"`
	TierName   string       `gorm:"column:tier_name" json:"tier_name"`
	Status     TicketStatus `gorm:"column:status" json:"status"`
	IssuedAt   time.Time    `gorm:"column:issued_at" json:"issued_at"`
	RedeemedAt *time.Time   `gorm:"column:redeemed_at" json:"redeemed_at,omitempty"`
	VoidedAt   *time.Time   `gorm:"column:voided_at" json:"voided_at,omitempty"`
}

func (Ticket) TableName() string { return "tickets" }

// DisplayCode is the grouped form printed on the ticket.
func (t Ticket) DisplayCode() string {
	return code.Format(t.Code)
}
