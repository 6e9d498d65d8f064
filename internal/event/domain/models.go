package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// TicketingMode says who sells tickets for an event.
type TicketingMode string

const (
	// TicketingModePlatform events sell tiers through this service.
	TicketingModePlatform TicketingMode = "platform"
	// TicketingModeExternal events link to a third-party seller.
	TicketingModeExternal TicketingMode = "external"
)

// Event is owned by event management; the box office only reads it.
type Event struct {
	ID            snowflake.ID  `gorm:"primaryKey" json:"id"`
	Name          string        `gorm:"column:name" json:"name"`
	TicketingMode TicketingMode `gorm:"column:ticketing_mode" json:"ticketing_mode"`
	StartsAt      *time.Time    `gorm:"column:starts_at" json:"starts_at,omitempty"`
	CreatedAt     time.Time     `gorm:"column:created_at" json:"created_at"`
	UpdatedAt     time.Time     `gorm:"column:updated_at" json:"updated_at"`
}

func (Event) TableName() string { return "events" }

func (e Event) PlatformManaged() bool {
	return e.TicketingMode == TicketingModePlatform
}

var ErrNotFound = errors.New("event_not_found")
