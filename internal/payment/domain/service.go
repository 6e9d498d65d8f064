package domain

import (
	"context"
	"errors"
	"net/http"
)

// Service drives orders from processor notifications.
type Service interface {
	ProcessEvent(ctx context.Context, event *PaymentEvent, payload []byte) (Outcome, error)
}

// WebhookService verifies and routes raw webhook deliveries.
type WebhookService interface {
	IngestWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) (Outcome, error)
}

var (
	ErrInvalidProvider       = errors.New("invalid_provider")
	ErrProviderNotFound      = errors.New("provider_not_found")
	ErrInvalidConfig         = errors.New("invalid_config")
	ErrInvalidPayload        = errors.New("invalid_payload")
	ErrInvalidSignature      = errors.New("invalid_signature")
	ErrInvalidEvent          = errors.New("invalid_event")
	ErrEventIgnored          = errors.New("event_ignored")
	ErrEventAlreadyProcessed = errors.New("event_already_processed")
	// ErrDataIntegrity means a notification names a session no order owns.
	ErrDataIntegrity         = errors.New("unknown_payment_reference")
	ErrPaymentSession        = errors.New("payment_session_error")
	ErrPaymentSessionTimeout = errors.New("payment_session_timeout")
)
