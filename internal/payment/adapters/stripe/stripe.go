package stripe

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jhnmartin/hey-sub000/internal/clock"
	paymentdomain "github.com/jhnmartin/hey-sub000/internal/payment/domain"
)

const (
	ProviderName     = "stripe"
	DefaultTolerance = 5 * time.Minute
)

type Factory struct {
	clock clock.Clock
}

func NewFactory(clk clock.Clock) *Factory {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Factory{clock: clk}
}

func (f *Factory) Provider() string {
	return ProviderName
}

func (f *Factory) NewAdapter(cfg paymentdomain.AdapterConfig) (paymentdomain.PaymentAdapter, error) {
	secret, ok := readString(cfg.Config, "webhook_secret")
	if !ok {
		return nil, paymentdomain.ErrInvalidConfig
	}
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, paymentdomain.ErrInvalidConfig
	}

	tolerance := DefaultTolerance
	if value, ok := cfg.Config["webhook_tolerance"].(time.Duration); ok && value > 0 {
		tolerance = value
	}

	return &Adapter{
		webhookSecret: secret,
		tolerance:     tolerance,
		clock:         f.clock,
	}, nil
}

type Adapter struct {
	webhookSecret string
	tolerance     time.Duration
	clock         clock.Clock
}

// Verify checks the Stripe-Signature header: an HMAC-SHA256 of
// "<t>.<payload>" signed less than tolerance ago.
func (a *Adapter) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	sigHeader := strings.TrimSpace(headers.Get("Stripe-Signature"))
	if sigHeader == "" {
		return paymentdomain.ErrInvalidSignature
	}

	timestamp, signatures, err := parseStripeSignature(sigHeader)
	if err != nil {
		return paymentdomain.ErrInvalidSignature
	}
	signedAt, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return paymentdomain.ErrInvalidSignature
	}
	age := a.clock.Now().Sub(time.Unix(signedAt, 0))
	if age > a.tolerance || age < -a.tolerance {
		return paymentdomain.ErrInvalidSignature
	}

	signedPayload := fmt.Sprintf("%s.%s", timestamp, string(payload))
	mac := hmac.New(sha256.New, []byte(a.webhookSecret))
	_, _ = mac.Write([]byte(signedPayload))
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, signature := range signatures {
		if hmac.Equal([]byte(signature), []byte(expected)) {
			return nil
		}
	}

	return paymentdomain.ErrInvalidSignature
}

func (a *Adapter) Parse(ctx context.Context, payload []byte) (*paymentdomain.PaymentEvent, error) {
	var event stripeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	if strings.TrimSpace(event.ID) == "" {
		return nil, paymentdomain.ErrInvalidEvent
	}

	eventType := strings.TrimSpace(event.Type)
	switch eventType {
	case "checkout.session.completed":
		return a.parseSession(event, payload, func(session stripeCheckoutSession) (string, string, error) {
			switch session.PaymentStatus {
			case "paid", "no_payment_required":
				return paymentdomain.EventTypeSessionCompleted, "", nil
			default:
				// Delayed methods settle later through async_payment_* events.
				return "", "", paymentdomain.ErrEventIgnored
			}
		})
	case "checkout.session.async_payment_succeeded":
		return a.parseSession(event, payload, fixedType(paymentdomain.EventTypeSessionCompleted, ""))
	case "checkout.session.async_payment_failed":
		return a.parseSession(event, payload, fixedType(paymentdomain.EventTypeSessionExpired, "async_payment_failed"))
	case "checkout.session.expired":
		return a.parseSession(event, payload, fixedType(paymentdomain.EventTypeSessionExpired, "expired"))
	default:
		return nil, paymentdomain.ErrEventIgnored
	}
}

type stripeEvent struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Created int64           `json:"created"`
	Data    stripeEventData `json:"data"`
}

type stripeEventData struct {
	Object json.RawMessage `json:"object"`
}

type stripeCheckoutSession struct {
	ID                string          `json:"id"`
	PaymentStatus     string          `json:"payment_status"`
	PaymentIntent     json.RawMessage `json:"payment_intent"`
	AmountTotal       int64           `json:"amount_total"`
	Currency          string          `json:"currency"`
	Created           int64           `json:"created"`
	ClientReferenceID string          `json:"client_reference_id"`
	Metadata          map[string]any  `json:"metadata"`
}

type classifier func(stripeCheckoutSession) (eventType string, reason string, err error)

func fixedType(eventType, reason string) classifier {
	return func(stripeCheckoutSession) (string, string, error) {
		return eventType, reason, nil
	}
}

func (a *Adapter) parseSession(event stripeEvent, payload []byte, classify classifier) (*paymentdomain.PaymentEvent, error) {
	var session stripeCheckoutSession
	if err := json.Unmarshal(event.Data.Object, &session); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	if strings.TrimSpace(session.ID) == "" {
		return nil, paymentdomain.ErrInvalidEvent
	}

	eventType, reason, err := classify(session)
	if err != nil {
		return nil, err
	}

	orderRaw := readMetadataValue(session.Metadata, "order_id")
	if orderRaw == "" {
		orderRaw = strings.TrimSpace(session.ClientReferenceID)
	}
	var orderID snowflake.ID
	if orderRaw != "" {
		if parsed, err := snowflake.ParseString(orderRaw); err == nil {
			orderID = parsed
		}
	}

	return &paymentdomain.PaymentEvent{
		Provider:        ProviderName,
		ProviderEventID: event.ID,
		ProviderType:    strings.TrimSpace(event.Type),
		Type:            eventType,
		SessionID:       session.ID,
		PaymentIntent:   readPaymentIntent(session.PaymentIntent),
		OrderID:         orderID,
		Amount:          session.AmountTotal,
		Currency:        strings.ToLower(strings.TrimSpace(session.Currency)),
		Reason:          reason,
		OccurredAt:      timestamp(session.Created, event.Created),
		RawPayload:      payload,
	}, nil
}

// readPaymentIntent accepts the id string or the expanded object.
func readPaymentIntent(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		return strings.TrimSpace(id)
	}
	var expanded struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &expanded); err == nil {
		return strings.TrimSpace(expanded.ID)
	}
	return ""
}

func parseStripeSignature(header string) (string, []string, error) {
	parts := strings.Split(header, ",")
	var timestamp string
	signatures := []string{}
	for _, part := range parts {
		piece := strings.TrimSpace(part)
		if piece == "" {
			continue
		}
		keyValue := strings.SplitN(piece, "=", 2)
		if len(keyValue) != 2 {
			continue
		}
		key := strings.TrimSpace(keyValue[0])
		value := strings.TrimSpace(keyValue[1])
		if key == "t" {
			timestamp = value
		}
		if key == "v1" {
			signatures = append(signatures, value)
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return "", nil, errors.New("invalid_signature")
	}
	return timestamp, signatures, nil
}

func timestamp(primary int64, fallback int64) time.Time {
	value := primary
	if value == 0 {
		value = fallback
	}
	if value == 0 {
		return time.Now().UTC()
	}
	return time.Unix(value, 0).UTC()
}

func readMetadataValue(metadata map[string]any, key string) string {
	if metadata == nil {
		return ""
	}
	value, ok := metadata[key]
	if !ok {
		return ""
	}
	switch cast := value.(type) {
	case string:
		return strings.TrimSpace(cast)
	case json.Number:
		return cast.String()
	}
	return ""
}

func readString(config map[string]any, key string) (string, bool) {
	value, ok := config[key]
	if !ok {
		return "", false
	}
	cast, ok := value.(string)
	return cast, ok
}
