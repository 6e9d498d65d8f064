package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jhnmartin/hey-sub000/internal/ticket/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const ticketColumns = `id, code, order_id, buyer_id, event_id, tier_id, tier_name, status, issued_at, redeemed_at, voided_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, ticket *domain.Ticket) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`INSERT INTO tickets (`+ticketColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (code) DO NOTHING`,
		ticket.ID,
		ticket.Code,
		ticket.OrderID,
		ticket.BuyerID,
		ticket.EventID,
		ticket.TierID,
		ticket.TierName,
		ticket.Status,
		ticket.IssuedAt,
		ticket.RedeemedAt,
		ticket.VoidedAt,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Ticket, error) {
	return r.findOne(ctx, db, `id = ?`, id)
}

func (r *repo) FindByCode(ctx context.Context, db *gorm.DB, code string) (*domain.Ticket, error) {
	return r.findOne(ctx, db, `code = ?`, code)
}

func (r *repo) findOne(ctx context.Context, db *gorm.DB, where string, arg any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	err := db.WithContext(ctx).Raw(
		`SELECT `+ticketColumns+` FROM tickets WHERE `+where,
		arg,
	).Scan(&ticket).Error
	if err != nil {
		return nil, err
	}
	if ticket.ID == 0 {
		return nil, nil
	}
	return &ticket, nil
}

func (r *repo) ListByOrder(ctx context.Context, db *gorm.DB, orderID, buyerID snowflake.ID) ([]domain.Ticket, error) {
	var tickets []domain.Ticket
	err := db.WithContext(ctx).Raw(
		`SELECT `+ticketColumns+` FROM tickets
		 WHERE order_id = ? AND buyer_id = ?
		 ORDER BY id ASC`,
		orderID,
		buyerID,
	).Scan(&tickets).Error
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

func (r *repo) ListForBuyer(ctx context.Context, db *gorm.DB, buyerID, beforeID snowflake.ID, limit int) ([]domain.Ticket, error) {
	var tickets []domain.Ticket
	stmt := db.WithContext(ctx).
		Model(&domain.Ticket{}).
		Where("buyer_id = ?", buyerID)
	if beforeID != 0 {
		stmt = stmt.Where("id < ?", beforeID)
	}
	if err := stmt.Order("id desc").Limit(limit).Find(&tickets).Error; err != nil {
		return nil, err
	}
	return tickets, nil
}

func (r *repo) MarkUsed(ctx context.Context, db *gorm.DB, code string, at time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE tickets SET status = ?, redeemed_at = ?
		 WHERE code = ? AND status = ?`,
		domain.TicketStatusUsed,
		at,
		code,
		domain.TicketStatusValid,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
