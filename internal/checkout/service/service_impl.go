package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jhnmartin/hey-sub000/internal/buyercontext"
	"github.com/jhnmartin/hey-sub000/internal/checkout/domain"
	"github.com/jhnmartin/hey-sub000/internal/clock"
	"github.com/jhnmartin/hey-sub000/internal/config"
	eventdomain "github.com/jhnmartin/hey-sub000/internal/event/domain"
	inventorydomain "github.com/jhnmartin/hey-sub000/internal/inventory/domain"
	"github.com/jhnmartin/hey-sub000/internal/observability/metrics"
	orderdomain "github.com/jhnmartin/hey-sub000/internal/order/domain"
	paymentdomain "github.com/jhnmartin/hey-sub000/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Clock         clock.Clock
	Cfg           config.Config
	Pricing       *config.CheckoutConfigHolder
	EventRepo     eventdomain.Repository
	InventoryRepo inventorydomain.Repository
	OrderRepo     orderdomain.Repository
	Sessions      paymentdomain.SessionCreator
	Metrics       *metrics.Metrics `optional:"true"`
}

type Service struct {
	db             *gorm.DB
	log            *zap.Logger
	genID          *snowflake.Node
	clock          clock.Clock
	pricing        *config.CheckoutConfigHolder
	sessionTimeout time.Duration
	events         eventdomain.Repository
	inventory      inventorydomain.Repository
	orders         orderdomain.Repository
	sessions       paymentdomain.SessionCreator
	metrics        *metrics.Metrics
}

func New(p Params) domain.Service {
	pricing := p.Pricing
	if pricing == nil {
		pricing = config.NewStaticCheckoutConfig(config.DefaultCheckoutConfig())
	}
	timeout := p.Cfg.Payment.SessionTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Service{
		db:             p.DB,
		log:            p.Log.Named("checkout.service"),
		genID:          p.GenID,
		clock:          p.Clock,
		pricing:        pricing,
		sessionTimeout: timeout,
		events:         p.EventRepo,
		inventory:      p.InventoryRepo,
		orders:         p.OrderRepo,
		sessions:       p.Sessions,
		metrics:        p.Metrics,
	}
}

// Initiate prices the request against live inventory, persists a pending
// order and opens a payment session for it. Inventory is checked, not held.
func (s *Service) Initiate(ctx context.Context, req domain.Request) (*domain.Result, error) {
	buyerID, ok := buyercontext.BuyerIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrUnauthenticated
	}

	event, err := s.events.FindByID(ctx, s.db, req.EventID)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, s.reject(ctx, eventdomain.ErrNotFound)
	}
	if !event.PlatformManaged() {
		return nil, s.reject(ctx, domain.ErrInvalidTicketingMode)
	}

	pricing := s.pricing.Get()
	items, err := mergeItems(req.Items, pricing)
	if err != nil {
		return nil, s.reject(ctx, err)
	}
	if err := validateReturnURL(req.SuccessURL); err != nil {
		return nil, s.reject(ctx, err)
	}
	if err := validateReturnURL(req.CancelURL); err != nil {
		return nil, s.reject(ctx, err)
	}

	lineItems := make([]orderdomain.LineItem, 0, len(items))
	for _, item := range items {
		tier, err := s.inventory.FindByID(ctx, s.db, item.TierID)
		if err != nil {
			return nil, err
		}
		if tier == nil || tier.EventID != event.ID {
			return nil, s.reject(ctx, inventorydomain.ErrTierNotFound)
		}
		if tier.Status != inventorydomain.TierStatusActive {
			return nil, s.reject(ctx, inventorydomain.ErrTierUnavailable)
		}
		if item.Quantity > tier.Available() {
			return nil, s.reject(ctx, inventorydomain.ErrInsufficientInventory)
		}
		lineItems = append(lineItems, orderdomain.LineItem{
			TierID:    tier.ID,
			TierName:  tier.Name,
			Quantity:  item.Quantity,
			UnitPrice: tier.UnitPrice,
		})
	}

	now := s.clock.Now()
	total := orderdomain.Total(lineItems)
	order := &orderdomain.Order{
		ID:               s.genID.Generate(),
		BuyerID:          buyerID,
		EventID:          event.ID,
		LineItems:        lineItems,
		TotalAmount:      total,
		PlatformFee:      orderdomain.PlatformFee(total, pricing.Rate()),
		FeeRate:          pricing.Rate().String(),
		Currency:         pricing.Currency,
		PaymentReference: orderdomain.PlaceholderReference(),
		Status:           orderdomain.OrderStatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.orders.Insert(ctx, s.db, order); err != nil {
		return nil, err
	}

	log := s.log.With(
		zap.String("order_id", order.ID.String()),
		zap.String("event_id", event.ID.String()),
		zap.Int64("total_amount", order.TotalAmount),
	)

	// The order exists now. A caller hanging up must not cut the session
	// call or the reference update short.
	ctx = context.WithoutCancel(ctx)
	session, err := s.openSession(ctx, order, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			// Outcome unknown; the session may still complete and be matched by id later.
			log.Warn("payment session outcome unknown; order left pending", zap.Error(err))
			s.metrics.RecordCheckout(ctx, "session_timeout")
			return nil, paymentdomain.ErrPaymentSessionTimeout
		}
		log.Error("payment session failed", zap.Error(err))
		if _, failErr := s.orders.Transition(ctx, s.db, order.ID, orderdomain.OrderStatusPending, orderdomain.OrderStatusFailed, orderdomain.TransitionUpdate{
			At:            s.clock.Now(),
			FailureReason: "payment_session_error",
		}); failErr != nil {
			log.Error("mark order failed", zap.Error(failErr))
		}
		s.metrics.RecordCheckout(ctx, "session_failed")
		return nil, paymentdomain.ErrPaymentSession
	}

	patched, err := s.orders.SetPaymentReference(ctx, s.db, order.ID, order.PaymentReference, session.ID, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if !patched {
		return nil, fmt.Errorf("checkout: order %s no longer awaits a session", order.ID)
	}

	s.metrics.RecordCheckout(ctx, "created")
	log.Info("checkout initiated", zap.String("session_id", session.ID))
	return &domain.Result{OrderID: order.ID, RedirectURL: session.URL}, nil
}

// reject counts a request refused before any order was written.
func (s *Service) reject(ctx context.Context, err error) error {
	s.metrics.RecordCheckout(ctx, "rejected")
	return err
}

func (s *Service) openSession(ctx context.Context, order *orderdomain.Order, req domain.Request) (*paymentdomain.Session, error) {
	if s.sessions == nil {
		return nil, paymentdomain.ErrInvalidConfig
	}
	ctx, cancel := context.WithTimeout(ctx, s.sessionTimeout)
	defer cancel()

	lineItems := make([]paymentdomain.SessionLineItem, 0, len(order.LineItems))
	for _, item := range order.LineItems {
		lineItems = append(lineItems, paymentdomain.SessionLineItem{
			Name:       item.TierName,
			UnitAmount: item.UnitPrice,
			Quantity:   item.Quantity,
		})
	}
	return s.sessions.CreateSession(ctx, paymentdomain.SessionRequest{
		OrderID:        order.ID,
		IdempotencyKey: "order_" + order.ID.String(),
		Currency:       order.Currency,
		LineItems:      lineItems,
		SuccessURL:     req.SuccessURL,
		CancelURL:      req.CancelURL,
	})
}

// mergeItems sums duplicate tiers, keeping first-seen order. Every input
// quantity and every merged sum stays within MaxQuantityPerLine, so the sums
// cannot overflow.
func mergeItems(items []domain.ItemRequest, pricing config.CheckoutConfig) ([]domain.ItemRequest, error) {
	if len(items) == 0 {
		return nil, domain.ErrEmptyItems
	}
	maxQuantity := int64(pricing.MaxQuantityPerLine)
	merged := make([]domain.ItemRequest, 0, len(items))
	index := make(map[snowflake.ID]int, len(items))
	for _, item := range items {
		if item.TierID == 0 {
			return nil, inventorydomain.ErrTierNotFound
		}
		if item.Quantity <= 0 || item.Quantity > maxQuantity {
			return nil, domain.ErrInvalidQuantity
		}
		if i, ok := index[item.TierID]; ok {
			if merged[i].Quantity > maxQuantity-item.Quantity {
				return nil, domain.ErrInvalidQuantity
			}
			merged[i].Quantity += item.Quantity
			continue
		}
		index[item.TierID] = len(merged)
		merged = append(merged, item)
	}
	if len(merged) > pricing.MaxItemsPerOrder {
		return nil, domain.ErrTooManyItems
	}
	return merged, nil
}

func validateReturnURL(raw string) error {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || parsed.Host == "" {
		return domain.ErrInvalidReturnURL
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return domain.ErrInvalidReturnURL
	}
	return nil
}
