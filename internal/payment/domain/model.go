package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// EventRecord is the audit row of a verified processor notification.
type EventRecord struct {
	ID               snowflake.ID   `json:"id" gorm:"primaryKey"`
	Provider         string         `json:"provider" gorm:"type:text;not null"`
	ProviderEventID  string         `json:"provider_event_id" gorm:"type:text;not null"`
	EventType        string         `json:"event_type" gorm:"type:text;not null"`
	PaymentReference string         `json:"payment_reference" gorm:"type:text;not null"`
	Payload          datatypes.JSON `json:"payload" gorm:"type:jsonb;not null"`
	ReceivedAt       time.Time      `json:"received_at" gorm:"not null"`
	ProcessedAt      *time.Time     `json:"processed_at"`
}

func (EventRecord) TableName() string { return "payment_events" }

const (
	// EventTypeSessionCompleted means the buyer paid for the session.
	EventTypeSessionCompleted = "session_completed"
	// EventTypeSessionExpired covers expired sessions and failed async payments.
	EventTypeSessionExpired = "session_expired"
)

// PaymentEvent is the canonical notification parsed by adapters.
type PaymentEvent struct {
	Provider        string
	ProviderEventID string
	ProviderType    string
	Type            string

	// SessionID correlates the notification with Order.PaymentReference.
	SessionID     string
	PaymentIntent string
	OrderID       snowflake.ID
	Amount        int64
	Currency      string
	Reason        string
	OccurredAt    time.Time
	RawPayload    []byte
}

// Outcome is what ProcessEvent did with a notification.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
	// OutcomeNoop is a redelivery against an order already in a terminal state.
	OutcomeNoop      Outcome = "noop"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeIgnored   Outcome = "ignored"
)

type SessionLineItem struct {
	Name       string
	UnitAmount int64
	Quantity   int64
}

// SessionRequest opens a hosted payment session for one order.
type SessionRequest struct {
	OrderID        snowflake.ID
	IdempotencyKey string
	Currency       string
	LineItems      []SessionLineItem
	SuccessURL     string
	CancelURL      string
}

type Session struct {
	ID  string
	URL string
}
