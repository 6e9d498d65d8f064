package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/jhnmartin/hey-sub000/internal/payment/adapters"
	paymentdomain "github.com/jhnmartin/hey-sub000/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log        *zap.Logger
	PaymentSvc paymentdomain.Service
	Adapters   *adapters.Registry
}

type Service struct {
	log        *zap.Logger
	paymentSvc paymentdomain.Service
	adapters   *adapters.Registry
}

func NewService(p Params) paymentdomain.WebhookService {
	return &Service{
		log:        p.Log.Named("payment.webhook"),
		paymentSvc: p.PaymentSvc,
		adapters:   p.Adapters,
	}
}

// IngestWebhook verifies a raw delivery and hands the parsed notification to
// the payment service. Redeliveries and notifications that carry nothing to
// act on resolve without error so the processor stops retrying them.
func (s *Service) IngestWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) (paymentdomain.Outcome, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		return "", paymentdomain.ErrInvalidProvider
	}
	adapter, err := s.adapters.Adapter(provider)
	if err != nil {
		return "", err
	}

	if err := adapter.Verify(ctx, payload, headers); err != nil {
		s.log.Warn("webhook verification failed", zap.String("provider", provider), zap.Error(err))
		return "", err
	}
	if !json.Valid(payload) {
		return "", paymentdomain.ErrInvalidPayload
	}

	event, err := adapter.Parse(ctx, payload)
	if err != nil {
		if errors.Is(err, paymentdomain.ErrEventIgnored) {
			s.log.Debug("webhook event ignored", zap.String("provider", provider))
			return paymentdomain.OutcomeIgnored, nil
		}
		return "", err
	}
	if s.paymentSvc == nil {
		return "", errors.New("payment_service_unavailable")
	}
	event.Provider = provider
	if event.RawPayload == nil {
		event.RawPayload = payload
	}

	outcome, err := s.paymentSvc.ProcessEvent(ctx, event, payload)
	switch {
	case errors.Is(err, paymentdomain.ErrEventAlreadyProcessed):
		return paymentdomain.OutcomeDuplicate, nil
	case errors.Is(err, paymentdomain.ErrDataIntegrity):
		return paymentdomain.OutcomeIgnored, nil
	case err != nil:
		return "", err
	}
	return outcome, nil
}
