package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/jhnmartin/hey-sub000/internal/buyercontext"
	"github.com/jhnmartin/hey-sub000/internal/clock"
	inventorydomain "github.com/jhnmartin/hey-sub000/internal/inventory/domain"
	"github.com/jhnmartin/hey-sub000/internal/observability/metrics"
	orderdomain "github.com/jhnmartin/hey-sub000/internal/order/domain"
	"github.com/jhnmartin/hey-sub000/internal/ticket/code"
	"github.com/jhnmartin/hey-sub000/internal/ticket/domain"
	"github.com/jhnmartin/hey-sub000/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxCodeAttempts = 5

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Clock         clock.Clock
	Repo          domain.Repository
	InventoryRepo inventorydomain.Repository
	Codes         *code.Generator  `optional:"true"`
	Metrics       *metrics.Metrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	inventory inventorydomain.Repository
	codes     *code.Generator
	metrics   *metrics.Metrics
}

func New(p Params) domain.Service {
	codes := p.Codes
	if codes == nil {
		codes = code.NewGenerator()
	}
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("ticket.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		inventory: p.InventoryRepo,
		codes:     codes,
		metrics:   p.Metrics,
	}
}

// Issue mints one ticket per purchased unit and advances each tier's sold
// counter. Callers guarantee it runs once per order, inside the transaction
// that moved the order to completed.
func (s *Service) Issue(ctx context.Context, tx *gorm.DB, order *orderdomain.Order) ([]domain.Ticket, error) {
	if tx == nil || order == nil {
		return nil, fmt.Errorf("issue tickets: transaction and order are required")
	}

	now := s.clock.Now()
	tickets := make([]domain.Ticket, 0, order.TicketCount())
	for _, item := range order.LineItems {
		for i := int64(0); i < item.Quantity; i++ {
			ticket, err := s.mint(ctx, tx, order, item)
			if err != nil {
				return nil, err
			}
			tickets = append(tickets, *ticket)
		}

		counter, err := s.inventory.IncrementSold(ctx, tx, item.TierID, item.Quantity, now)
		if err != nil {
			return nil, fmt.Errorf("increment sold for tier %s: %w", item.TierID, err)
		}
		if counter == nil {
			s.log.Warn("tier removed before issuance; sold not advanced",
				zap.String("order_id", order.ID.String()),
				zap.String("tier_id", item.TierID.String()),
				zap.Int64("quantity", item.Quantity),
			)
			continue
		}
		if over := counter.Oversold(); over > 0 {
			units := min(over, item.Quantity)
			s.log.Warn("tier oversold",
				zap.String("order_id", order.ID.String()),
				zap.String("tier_id", item.TierID.String()),
				zap.Int64("sold", counter.Sold),
				zap.Int64("quantity", counter.Quantity),
			)
			s.metrics.RecordOversold(ctx, units)
		}
	}

	s.log.Info("tickets issued",
		zap.String("order_id", order.ID.String()),
		zap.Int("count", len(tickets)),
	)
	return tickets, nil
}

func (s *Service) mint(ctx context.Context, tx *gorm.DB, order *orderdomain.Order, item orderdomain.LineItem) (*domain.Ticket, error) {
	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		redemptionCode, err := s.codes.New()
		if err != nil {
			return nil, fmt.Errorf("generate redemption code: %w", err)
		}
		ticket := domain.Ticket{
			ID:       s.genID.Generate(),
			Code:     redemptionCode,
			OrderID:  order.ID,
			BuyerID:  order.BuyerID,
			EventID:  order.EventID,
			TierID:   item.TierID,
			TierName: item.TierName,
			Status:   domain.TicketStatusValid,
			IssuedAt: s.clock.Now(),
		}
		inserted, err := s.repo.Insert(ctx, tx, &ticket)
		if err != nil {
			return nil, err
		}
		if inserted {
			return &ticket, nil
		}
		s.log.Warn("redemption code collision", zap.Int("attempt", attempt))
	}
	return nil, domain.ErrCodeExhausted
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.Ticket, error) {
	buyerID, ok := buyercontext.BuyerIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrUnauthenticated
	}
	ticket, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if ticket == nil || ticket.BuyerID != buyerID {
		return nil, domain.ErrNotFound
	}
	return ticket, nil
}

func (s *Service) ListByOrder(ctx context.Context, orderID snowflake.ID) ([]domain.Ticket, error) {
	buyerID, ok := buyercontext.BuyerIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrUnauthenticated
	}
	tickets, err := s.repo.ListByOrder(ctx, s.db, orderID, buyerID)
	if err != nil {
		return nil, err
	}
	if tickets == nil {
		tickets = []domain.Ticket{}
	}
	return tickets, nil
}

func (s *Service) ListForBuyer(ctx context.Context, page pagination.Pagination) (domain.ListTicketsResponse, error) {
	buyerID, ok := buyercontext.BuyerIDFromContext(ctx)
	if !ok {
		return domain.ListTicketsResponse{}, domain.ErrUnauthenticated
	}

	var beforeID snowflake.ID
	if page.PageToken != "" {
		cursor, err := pagination.DecodeCursor(page.PageToken)
		if err != nil {
			return domain.ListTicketsResponse{}, err
		}
		beforeID, err = snowflake.ParseString(cursor.ID)
		if err != nil {
			return domain.ListTicketsResponse{}, pagination.ErrInvalidPageToken
		}
	}

	limit := page.Limit()
	items, err := s.repo.ListForBuyer(ctx, s.db, buyerID, beforeID, limit+1)
	if err != nil {
		return domain.ListTicketsResponse{}, err
	}

	items, pageInfo := pagination.BuildCursorPageInfo(items, limit, func(t domain.Ticket) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{ID: t.ID.String()})
		if err != nil {
			return ""
		}
		return token
	})
	if items == nil {
		items = []domain.Ticket{}
	}
	return domain.ListTicketsResponse{PageInfo: pageInfo, Tickets: items}, nil
}
