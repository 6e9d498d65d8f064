package payment

import (
	"github.com/jhnmartin/hey-sub000/internal/clock"
	"github.com/jhnmartin/hey-sub000/internal/config"
	"github.com/jhnmartin/hey-sub000/internal/payment/adapters"
	"github.com/jhnmartin/hey-sub000/internal/payment/adapters/stripe"
	paymentdomain "github.com/jhnmartin/hey-sub000/internal/payment/domain"
	"github.com/jhnmartin/hey-sub000/internal/payment/repository"
	paymentservice "github.com/jhnmartin/hey-sub000/internal/payment/service"
	"github.com/jhnmartin/hey-sub000/internal/payment/webhook"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(NewRegistry),
	fx.Provide(func(cfg config.Config) paymentdomain.SessionCreator {
		return stripe.NewClient(cfg.Payment)
	}),
	fx.Provide(paymentservice.NewService),
	fx.Provide(webhook.NewService),
)

// NewRegistry builds the adapters for the configured processor.
func NewRegistry(cfg config.Config, clk clock.Clock) (*adapters.Registry, error) {
	configs := map[string]map[string]any{}
	if cfg.Payment.Provider != "" && cfg.Payment.WebhookSecret != "" {
		configs[cfg.Payment.Provider] = map[string]any{
			"webhook_secret":    cfg.Payment.WebhookSecret,
			"webhook_tolerance": cfg.Payment.WebhookTolerance,
		}
	}
	return adapters.NewRegistry(configs, stripe.NewFactory(clk))
}
