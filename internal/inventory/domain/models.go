package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type TierStatus string

const (
	TierStatusActive  TierStatus = "active"
	TierStatusSoldOut TierStatus = "sold_out"
	TierStatusHidden  TierStatus = "hidden"
)

func (s TierStatus) Valid() bool {
	switch s {
	case TierStatusActive, TierStatusSoldOut, TierStatusHidden:
		return true
	}
	return false
}

// TicketTier is one price tier of an event. Sold is advanced only through
// Repository.IncrementSold.
type TicketTier struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	EventID   snowflake.ID `gorm:"column:event_id" json:"event_id"`
	Name      string       `gorm:"column:name" json:"name"`
	UnitPrice int64        `gorm:"column:unit_price" json:"unit_price"`
	Quantity  int64        `gorm:"column:quantity" json:"quantity"`
	Sold      int64        `gorm:"column:sold" json:"sold"`
	Status    TierStatus   `gorm:"column:status" json:"status"`
	CreatedAt time.Time    `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time    `gorm:"column:updated_at" json:"updated_at"`
}

func (TicketTier) TableName() string { return "ticket_tiers" }

// Available is quantity minus sold, floored at zero once a tier is oversold.
func (t TicketTier) Available() int64 {
	if t.Sold >= t.Quantity {
		return 0
	}
	return t.Quantity - t.Sold
}

// SoldCounter is the state of a tier after an increment.
type SoldCounter struct {
	TierID   snowflake.ID
	Sold     int64
	Quantity int64
}

// Oversold reports how many units were sold past quantity.
func (c SoldCounter) Oversold() int64 {
	if c.Sold <= c.Quantity {
		return 0
	}
	return c.Sold - c.Quantity
}
