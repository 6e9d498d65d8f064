package domain

import "github.com/bwmarrin/snowflake"

// ItemRequest asks for quantity units of one tier.
type ItemRequest struct {
	TierID   snowflake.ID `json:"tier_id"`
	Quantity int64        `json:"quantity"`
}

type Request struct {
	EventID    snowflake.ID  `json:"event_id"`
	Items      []ItemRequest `json:"items"`
	SuccessURL string        `json:"success_url"`
	CancelURL  string        `json:"cancel_url"`
}

type Result struct {
	OrderID     snowflake.ID `json:"order_id"`
	RedirectURL string       `json:"redirect_url"`
}
