package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Buyer is owned by the identity system; this service only reads it.
type Buyer struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	DisplayName string       `gorm:"column:display_name" json:"display_name"`
	Email       string       `gorm:"column:email" json:"email"`
	CreatedAt   time.Time    `gorm:"column:created_at" json:"created_at"`
}

func (Buyer) TableName() string { return "buyers" }

type Session struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	BuyerID    snowflake.ID `gorm:"column:buyer_id"`
	TokenHash  string       `gorm:"column:token_hash"`
	ExpiresAt  time.Time    `gorm:"column:expires_at"`
	RevokedAt  *time.Time   `gorm:"column:revoked_at"`
	LastSeenAt *time.Time   `gorm:"column:last_seen_at"`
	CreatedAt  time.Time    `gorm:"column:created_at"`
}

func (Session) TableName() string { return "buyer_sessions" }

// HashToken is the digest sessions are stored and looked up by.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
