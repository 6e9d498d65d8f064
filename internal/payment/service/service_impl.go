package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/jhnmartin/hey-sub000/internal/clock"
	obsmetrics "github.com/jhnmartin/hey-sub000/internal/observability/metrics"
	orderdomain "github.com/jhnmartin/hey-sub000/internal/order/domain"
	paymentdomain "github.com/jhnmartin/hey-sub000/internal/payment/domain"
	ticketdomain "github.com/jhnmartin/hey-sub000/internal/ticket/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      paymentdomain.Repository
	OrderRepo orderdomain.Repository
	Issuer    ticketdomain.Issuer
	Metrics   *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      paymentdomain.Repository
	orderRepo orderdomain.Repository
	issuer    ticketdomain.Issuer
	metrics   *obsmetrics.Metrics
}

func NewService(p Params) paymentdomain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("payment.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		orderRepo: p.OrderRepo,
		issuer:    p.Issuer,
		metrics:   p.Metrics,
	}
}

// ProcessEvent records a verified notification and applies it to its order.
// A notification left unprocessed by an error is reapplied on redelivery;
// every transition is a compare-and-swap, so reapplying is safe.
func (s *Service) ProcessEvent(ctx context.Context, event *paymentdomain.PaymentEvent, payload []byte) (paymentdomain.Outcome, error) {
	if event == nil {
		return "", paymentdomain.ErrInvalidEvent
	}
	event.Provider = strings.ToLower(strings.TrimSpace(event.Provider))
	if event.Provider == "" {
		return "", paymentdomain.ErrInvalidProvider
	}
	if !json.Valid(payload) {
		return "", paymentdomain.ErrInvalidPayload
	}
	if err := validateEvent(event); err != nil {
		return "", err
	}

	now := s.clock.Now()
	received := paymentdomain.EventRecord{
		ID:               s.genID.Generate(),
		Provider:         event.Provider,
		ProviderEventID:  event.ProviderEventID,
		EventType:        event.Type,
		PaymentReference: event.SessionID,
		Payload:          datatypes.JSON(payload),
		ReceivedAt:       now,
	}

	inserted, err := s.repo.InsertEvent(ctx, s.db, &received)
	if err != nil {
		return "", err
	}
	stored := &received
	if !inserted {
		stored, err = s.repo.FindEvent(ctx, s.db, event.Provider, event.ProviderEventID)
		if err != nil {
			return "", err
		}
		if stored == nil {
			return "", paymentdomain.ErrInvalidEvent
		}
		if stored.ProcessedAt != nil {
			return paymentdomain.OutcomeDuplicate, paymentdomain.ErrEventAlreadyProcessed
		}
	}

	outcome, applyErr := s.apply(ctx, event)
	if applyErr != nil && !errors.Is(applyErr, paymentdomain.ErrDataIntegrity) {
		return "", applyErr
	}

	if err := s.repo.MarkProcessed(ctx, s.db, stored.ID, s.clock.Now()); err != nil {
		return "", err
	}
	if inserted {
		s.metrics.RecordPaymentEvent(ctx, event.Provider, event.Type)
	}
	if applyErr != nil {
		return paymentdomain.OutcomeIgnored, applyErr
	}
	return outcome, nil
}

func validateEvent(event *paymentdomain.PaymentEvent) error {
	event.ProviderEventID = strings.TrimSpace(event.ProviderEventID)
	if event.ProviderEventID == "" {
		return paymentdomain.ErrInvalidEvent
	}
	event.SessionID = strings.TrimSpace(event.SessionID)
	if event.SessionID == "" {
		return paymentdomain.ErrInvalidEvent
	}
	switch strings.TrimSpace(event.Type) {
	case paymentdomain.EventTypeSessionCompleted, paymentdomain.EventTypeSessionExpired:
	default:
		return paymentdomain.ErrInvalidEvent
	}
	return nil
}

func (s *Service) apply(ctx context.Context, event *paymentdomain.PaymentEvent) (paymentdomain.Outcome, error) {
	// Placeholders are never sent to the processor, so no notification may claim one.
	if orderdomain.IsPlaceholderReference(event.SessionID) {
		s.eventLogger(event).Error("payment notification names a placeholder reference")
		return "", paymentdomain.ErrDataIntegrity
	}
	switch event.Type {
	case paymentdomain.EventTypeSessionCompleted:
		return s.complete(ctx, event)
	case paymentdomain.EventTypeSessionExpired:
		return s.fail(ctx, event)
	default:
		return "", paymentdomain.ErrInvalidEvent
	}
}

// complete moves the order to completed and issues its tickets in one
// transaction. The status swap is the idempotency checkpoint: a redelivered
// success finds the order no longer pending and issues nothing.
func (s *Service) complete(ctx context.Context, event *paymentdomain.PaymentEvent) (paymentdomain.Outcome, error) {
	log := s.eventLogger(event)
	outcome := paymentdomain.OutcomeNoop
	var issued int

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.orderRepo.FindByPaymentReference(ctx, tx, event.SessionID)
		if err != nil {
			return err
		}
		if order == nil {
			return paymentdomain.ErrDataIntegrity
		}
		log = log.With(zap.String("order_id", order.ID.String()))
		if event.OrderID != 0 && event.OrderID != order.ID {
			log.Warn("session metadata names a different order", zap.String("metadata_order_id", event.OrderID.String()))
		}
		if order.Status == orderdomain.OrderStatusFailed {
			log.Warn("payment succeeded for a failed order; manual reconciliation required")
		}
		if order.Status.Terminal() {
			return nil
		}

		won, err := s.orderRepo.Transition(ctx, tx, order.ID, orderdomain.OrderStatusPending, orderdomain.OrderStatusCompleted, orderdomain.TransitionUpdate{
			At:            s.clock.Now(),
			PaymentIntent: event.PaymentIntent,
		})
		if err != nil {
			return err
		}
		if !won {
			return nil
		}

		if event.Amount != order.TotalAmount {
			log.Warn("paid amount differs from order total",
				zap.Int64("amount_paid", event.Amount),
				zap.Int64("order_total", order.TotalAmount),
			)
		}

		tickets, err := s.issuer.Issue(ctx, tx, order)
		if err != nil {
			return err
		}
		issued = len(tickets)
		outcome = paymentdomain.OutcomeCompleted
		return nil
	})
	if err != nil {
		if errors.Is(err, paymentdomain.ErrDataIntegrity) {
			log.Error("payment notification references no known order")
		}
		return "", err
	}

	if outcome == paymentdomain.OutcomeCompleted {
		s.metrics.RecordTicketsIssued(ctx, issued)
		log.Info("order completed", zap.Int("tickets", issued))
	}
	return outcome, nil
}

func (s *Service) fail(ctx context.Context, event *paymentdomain.PaymentEvent) (paymentdomain.Outcome, error) {
	log := s.eventLogger(event)
	order, err := s.orderRepo.FindByPaymentReference(ctx, s.db, event.SessionID)
	if err != nil {
		return "", err
	}
	if order == nil {
		log.Error("payment notification references no known order")
		return "", paymentdomain.ErrDataIntegrity
	}

	reason := event.Reason
	if reason == "" {
		reason = "expired"
	}
	won, err := s.orderRepo.Transition(ctx, s.db, order.ID, orderdomain.OrderStatusPending, orderdomain.OrderStatusFailed, orderdomain.TransitionUpdate{
		At:            s.clock.Now(),
		FailureReason: reason,
	})
	if err != nil {
		return "", err
	}
	if !won {
		return paymentdomain.OutcomeNoop, nil
	}
	log.Info("order failed", zap.String("order_id", order.ID.String()), zap.String("reason", reason))
	return paymentdomain.OutcomeFailed, nil
}

func (s *Service) eventLogger(event *paymentdomain.PaymentEvent) *zap.Logger {
	return s.log.With(
		zap.String("provider", event.Provider),
		zap.String("provider_event_id", event.ProviderEventID),
		zap.String("session_id", event.SessionID),
	)
}
