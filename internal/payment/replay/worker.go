package replay

import (
	"context"
	"errors"
	"time"

	"github.com/jhnmartin/hey-sub000/internal/clock"
	"github.com/jhnmartin/hey-sub000/internal/config"
	"github.com/jhnmartin/hey-sub000/internal/payment/adapters"
	paymentdomain "github.com/jhnmartin/hey-sub000/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const batchSize = 50

// Worker reapplies verified notifications whose first application failed,
// so a completed payment does not wait on the processor's retry schedule.
type Worker struct {
	db       *gorm.DB
	log      *zap.Logger
	clock    clock.Clock
	repo     paymentdomain.Repository
	adapters *adapters.Registry
	svc      paymentdomain.Service
	grace    time.Duration
}

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Clock      clock.Clock
	Cfg        config.Config
	Repo       paymentdomain.Repository
	Adapters   *adapters.Registry
	PaymentSvc paymentdomain.Service
}

func NewWorker(p Params) *Worker {
	grace := p.Cfg.Payment.ReplayGrace
	if grace < 0 {
		grace = 0
	}
	return &Worker{
		db:       p.DB,
		log:      p.Log.Named("payment.replay"),
		clock:    p.Clock,
		repo:     p.Repo,
		adapters: p.Adapters,
		svc:      p.PaymentSvc,
		grace:    grace,
	}
}

// ProcessPending replays one batch and returns how many notifications it applied.
func (w *Worker) ProcessPending(ctx context.Context) (int, error) {
	records, err := w.repo.ListUnprocessed(ctx, w.db, w.clock.Now().Add(-w.grace), batchSize)
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, record := range records {
		if err := ctx.Err(); err != nil {
			return applied, err
		}
		if w.replay(ctx, record) {
			applied++
		}
	}
	return applied, nil
}

func (w *Worker) replay(ctx context.Context, record paymentdomain.EventRecord) bool {
	log := w.log.With(
		zap.String("provider", record.Provider),
		zap.String("provider_event_id", record.ProviderEventID),
	)

	adapter, err := w.adapters.Adapter(record.Provider)
	if err != nil {
		log.Warn("replay skipped, provider not configured", zap.Error(err))
		return false
	}
	event, err := adapter.Parse(ctx, record.Payload)
	if err != nil {
		log.Warn("replay skipped, stored payload no longer parses", zap.Error(err))
		return false
	}
	event.Provider = record.Provider

	outcome, err := w.svc.ProcessEvent(ctx, event, record.Payload)
	switch {
	case err == nil:
		log.Info("notification replayed", zap.String("outcome", string(outcome)))
		return true
	case errors.Is(err, paymentdomain.ErrEventAlreadyProcessed):
		return false
	case errors.Is(err, paymentdomain.ErrDataIntegrity):
		log.Warn("replayed notification names no order", zap.String("payment_reference", record.PaymentReference))
		return true
	default:
		log.Warn("replay failed", zap.Error(err))
		return false
	}
}
