package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jhnmartin/hey-sub000/internal/order/domain"
	pkgdb "github.com/jhnmartin/hey-sub000/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const orderColumns = `id, buyer_id, event_id, line_items, total_amount, platform_fee, fee_rate, currency,
	payment_reference, payment_intent, status, failure_reason, created_at, updated_at, completed_at, failed_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, order *domain.Order) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO orders (`+orderColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID,
		order.BuyerID,
		order.EventID,
		order.LineItems,
		order.TotalAmount,
		order.PlatformFee,
		order.FeeRate,
		order.Currency,
		order.PaymentReference,
		order.PaymentIntent,
		order.Status,
		order.FailureReason,
		order.CreatedAt,
		order.UpdatedAt,
		order.CompletedAt,
		order.FailedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Order, error) {
	return r.findOne(ctx, db, `id = ?`, id)
}

func (r *repo) FindByPaymentReference(ctx context.Context, db *gorm.DB, ref string) (*domain.Order, error) {
	return r.findOne(ctx, db, `payment_reference = ?`, ref)
}

func (r *repo) findOne(ctx context.Context, db *gorm.DB, where string, arg any) (*domain.Order, error) {
	var order domain.Order
	err := db.WithContext(ctx).Raw(
		`SELECT `+orderColumns+` FROM orders WHERE `+where,
		arg,
	).Scan(&order).Error
	if err != nil {
		return nil, err
	}
	if order.ID == 0 {
		return nil, nil
	}
	return &order, nil
}

func (r *repo) SetPaymentReference(ctx context.Context, db *gorm.DB, id snowflake.ID, placeholder, ref string, at time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE orders SET payment_reference = ?, updated_at = ?
		 WHERE id = ? AND status = ? AND payment_reference = ?`,
		ref,
		at,
		id,
		domain.OrderStatusPending,
		placeholder,
	)
	if result.Error != nil {
		if pkgdb.IsDuplicateKeyErr(result.Error) {
			return false, domain.ErrDuplicateReference
		}
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) Transition(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to domain.OrderStatus, update domain.TransitionUpdate) (bool, error) {
	if from.Terminal() {
		return false, domain.ErrInvalidState
	}

	var result *gorm.DB
	switch to {
	case domain.OrderStatusCompleted:
		result = db.WithContext(ctx).Exec(
			`UPDATE orders
			 SET status = ?, payment_intent = COALESCE(?, payment_intent), completed_at = ?, updated_at = ?
			 WHERE id = ? AND status = ?`,
			to,
			nullable(update.PaymentIntent),
			update.At,
			update.At,
			id,
			from,
		)
	case domain.OrderStatusFailed:
		result = db.WithContext(ctx).Exec(
			`UPDATE orders
			 SET status = ?, failure_reason = ?, failed_at = ?, updated_at = ?
			 WHERE id = ? AND status = ?`,
			to,
			nullable(update.FailureReason),
			update.At,
			update.At,
			id,
			from,
		)
	default:
		return false, domain.ErrInvalidState
	}
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func nullable(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
