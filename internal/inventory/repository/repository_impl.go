package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jhnmartin/hey-sub000/internal/inventory/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const tierColumns = `id, event_id, name, unit_price, quantity, sold, status, created_at, updated_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, tier *domain.TicketTier) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO ticket_tiers (`+tierColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tier.ID,
		tier.EventID,
		tier.Name,
		tier.UnitPrice,
		tier.Quantity,
		tier.Sold,
		tier.Status,
		tier.CreatedAt,
		tier.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.TicketTier, error) {
	var tier domain.TicketTier
	err := db.WithContext(ctx).Raw(
		`SELECT `+tierColumns+` FROM ticket_tiers WHERE id = ?`,
		id,
	).Scan(&tier).Error
	if err != nil {
		return nil, err
	}
	if tier.ID == 0 {
		return nil, nil
	}
	return &tier, nil
}

func (r *repo) ListByEvent(ctx context.Context, db *gorm.DB, eventID snowflake.ID, includeHidden bool) ([]domain.TicketTier, error) {
	var tiers []domain.TicketTier
	stmt := db.WithContext(ctx).
		Model(&domain.TicketTier{}).
		Where("event_id = ?", eventID)
	if !includeHidden {
		stmt = stmt.Where("status <> ?", domain.TierStatusHidden)
	}
	if err := stmt.Order("unit_price asc, id asc").Find(&tiers).Error; err != nil {
		return nil, err
	}
	return tiers, nil
}

func (r *repo) UpdateDetails(ctx context.Context, db *gorm.DB, tier *domain.TicketTier) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE ticket_tiers
		 SET name = ?, unit_price = ?, quantity = ?, status = ?, updated_at = ?
		 WHERE id = ? AND sold <= ?`,
		tier.Name,
		tier.UnitPrice,
		tier.Quantity,
		tier.Status,
		tier.UpdatedAt,
		tier.ID,
		tier.Quantity,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(`DELETE FROM ticket_tiers WHERE id = ?`, id).Error
}

func (r *repo) IncrementSold(ctx context.Context, tx *gorm.DB, id snowflake.ID, qty int64, at time.Time) (*domain.SoldCounter, error) {
	result := tx.WithContext(ctx).Exec(
		`UPDATE ticket_tiers
		 SET sold = sold + ?,
		     status = CASE WHEN status = ? AND sold + ? >= quantity THEN ? ELSE status END,
		     updated_at = ?
		 WHERE id = ?`,
		qty,
		domain.TierStatusActive,
		qty,
		domain.TierStatusSoldOut,
		at,
		id,
	)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}

	counter := domain.SoldCounter{TierID: id}
	err := tx.WithContext(ctx).Raw(
		`SELECT sold, quantity FROM ticket_tiers WHERE id = ?`,
		id,
	).Row().Scan(&counter.Sold, &counter.Quantity)
	if err != nil {
		return nil, err
	}
	return &counter, nil
}
