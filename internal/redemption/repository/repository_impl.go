package repository

import (
	"context"

	"github.com/jhnmartin/hey-sub000/internal/redemption/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindPass(ctx context.Context, db *gorm.DB, code string) (*domain.Pass, error) {
	var pass domain.Pass
	err := db.WithContext(ctx).Raw(
		`SELECT t.id AS ticket_id, t.status, t.tier_name, t.redeemed_at,
		        COALESCE(e.name, '') AS event_name,
		        COALESCE(b.display_name, '') AS buyer_name
		 FROM tickets t
		 LEFT JOIN events e ON e.id = t.event_id
		 LEFT JOIN buyers b ON b.id = t.buyer_id
		 WHERE t.code = ?`,
		code,
	).Scan(&pass).Error
	if err != nil {
		return nil, err
	}
	if pass.TicketID == 0 {
		return nil, nil
	}
	return &pass, nil
}
