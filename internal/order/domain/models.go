package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusFailed    OrderStatus = "failed"
)

// Terminal statuses never transition again.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusFailed
}

// LineItem snapshots the tier name and price agreed at checkout.
type LineItem struct {
	TierID    snowflake.ID `json:"tier_id"`
	TierName  string       `json:"tier_name"`
	Quantity  int64        `json:"quantity"`
	UnitPrice int64        `json:"unit_price"`
}

func (l LineItem) Amount() int64 {
	return l.UnitPrice * l.Quantity
}

type Order struct {
	ID               snowflake.ID                  `gorm:"primaryKey" json:"id"`
	BuyerID          snowflake.ID                  `gorm:"column:buyer_id" json:"buyer_id"`
	EventID          snowflake.ID                  `gorm:"column:event_id" json:"event_id"`
	LineItems        datatypes.JSONSlice[LineItem] `gorm:"column:line_items;type:jsonb" json:"line_items"`
	TotalAmount      int64                         `gorm:"column:total_amount" json:"total_amount"`
	PlatformFee      int64                         `gorm:"column:platform_fee" json:"platform_fee"`
	FeeRate          string                        `gorm:"column:fee_rate" json:"fee_rate"`
	Currency         string                        `gorm:"column:currency" json:"currency"`
	PaymentReference string                        `gorm:"column:payment_reference" json:"payment_reference"`
	PaymentIntent    *string                       `gorm:"column:payment_intent" json:"payment_intent,omitempty"`
	Status           OrderStatus                   `gorm:"column:status" json:"status"`
	FailureReason    *string                       `gorm:"column:failure_reason" json:"failure_reason,omitempty"`
	CreatedAt        time.Time                     `gorm:"column:created_at" json:"created_at"`
	UpdatedAt        time.Time                     `gorm:"column:updated_at" json:"updated_at"`
	CompletedAt      *time.Time                    `gorm:"column:completed_at" json:"completed_at,omitempty"`
	FailedAt         *time.Time                    `gorm:"column:failed_at" json:"failed_at,omitempty"`
}

func (Order) TableName() string { return "orders" }

// TicketCount is the number of tickets the order mints on completion.
func (o Order) TicketCount() int64 {
	var n int64
	for _, item := range o.LineItems {
		n += item.Quantity
	}
	return n
}

// Total sums the line item amounts.
func Total(items []LineItem) int64 {
	var total int64
	for _, item := range items {
		total += item.Amount()
	}
	return total
}

// PlatformFee is total × rate rounded half-up to a whole minor unit.
func PlatformFee(total int64, rate decimal.Decimal) int64 {
	return decimal.NewFromInt(total).Mul(rate).Round(0).IntPart()
}

const placeholderPrefix = "pending_"

// PlaceholderReference is stored until the processor session exists. It is
// unique so pending orders never collide on the payment_reference index.
func PlaceholderReference() string {
	return placeholderPrefix + ulid.Make().String()
}

func IsPlaceholderReference(ref string) bool {
	return strings.HasPrefix(ref, placeholderPrefix)
}

// TransitionUpdate carries the columns written alongside a status change.
type TransitionUpdate struct {
	At            time.Time
	PaymentIntent string
	FailureReason string
}
