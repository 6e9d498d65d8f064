package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// CheckoutConfig is the pricing policy applied when an order is created.
type CheckoutConfig struct {
	FeeRate            string `mapstructure:"fee_rate"`
	Currency           string `mapstructure:"currency"`
	MaxItemsPerOrder   int    `mapstructure:"max_items_per_order"`
	MaxQuantityPerLine int    `mapstructure:"max_quantity_per_line"`

	feeRate decimal.Decimal
}

func DefaultCheckoutConfig() CheckoutConfig {
	return CheckoutConfig{
		FeeRate:            "0.05",
		Currency:           "usd",
		MaxItemsPerOrder:   10,
		MaxQuantityPerLine: 20,
	}
}

// Rate returns the parsed platform fee rate as a fraction of the order total.
func (c CheckoutConfig) Rate() decimal.Decimal {
	return c.feeRate
}

type CheckoutConfigHolder struct {
	current atomic.Value // holds CheckoutConfig
}

func NewCheckoutConfigHolder(log *zap.Logger) (*CheckoutConfigHolder, error) {
	log = log.Named("config.checkout")
	v := viper.New()

	v.SetConfigName("checkout")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/boxoffice")
	v.AddConfigPath(".")

	v.SetEnvPrefix("BOXOFFICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultCheckoutConfig()
	v.SetDefault("checkout.fee_rate", defaults.FeeRate)
	v.SetDefault("checkout.currency", defaults.Currency)
	v.SetDefault("checkout.max_items_per_order", defaults.MaxItemsPerOrder)
	v.SetDefault("checkout.max_quantity_per_line", defaults.MaxQuantityPerLine)

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		fileFound = false
	}

	cfg, err := decodeCheckoutConfig(v)
	if err != nil {
		return nil, err
	}

	holder := NewStaticCheckoutConfig(cfg)
	if !fileFound {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodeCheckoutConfig(v)
		if err != nil {
			log.Warn("checkout config reload ignored", zap.String("file", e.Name), zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("checkout config reloaded",
			zap.String("file", e.Name),
			zap.String("fee_rate", updated.FeeRate),
			zap.String("currency", updated.Currency),
		)
	})

	return holder, nil
}

// NewStaticCheckoutConfig returns a holder that never reloads.
func NewStaticCheckoutConfig(cfg CheckoutConfig) *CheckoutConfigHolder {
	if cfg.feeRate.IsZero() && cfg.FeeRate != "" {
		if rate, err := decimal.NewFromString(cfg.FeeRate); err == nil {
			cfg.feeRate = rate
		}
	}
	cfg.Currency = strings.ToLower(strings.TrimSpace(cfg.Currency))
	holder := &CheckoutConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *CheckoutConfigHolder) Get() CheckoutConfig {
	return h.current.Load().(CheckoutConfig)
}

func decodeCheckoutConfig(v *viper.Viper) (CheckoutConfig, error) {
	var cfg CheckoutConfig
	if err := v.UnmarshalKey("checkout", &cfg); err != nil {
		return CheckoutConfig{}, err
	}
	if err := validateCheckoutConfig(&cfg); err != nil {
		return CheckoutConfig{}, err
	}
	return cfg, nil
}

func validateCheckoutConfig(cfg *CheckoutConfig) error {
	rate, err := decimal.NewFromString(strings.TrimSpace(cfg.FeeRate))
	if err != nil {
		return fmt.Errorf("checkout.fee_rate: %w", err)
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return errors.New("checkout.fee_rate must be in [0, 1)")
	}
	cfg.feeRate = rate

	cfg.Currency = strings.ToLower(strings.TrimSpace(cfg.Currency))
	if len(cfg.Currency) != 3 {
		return errors.New("checkout.currency must be a 3-letter ISO code")
	}
	if cfg.MaxItemsPerOrder <= 0 {
		return errors.New("checkout.max_items_per_order must be positive")
	}
	if cfg.MaxQuantityPerLine <= 0 {
		return errors.New("checkout.max_quantity_per_line must be positive")
	}
	return nil
}
