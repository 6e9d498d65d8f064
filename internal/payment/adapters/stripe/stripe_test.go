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
	"testing"
	"time"

	"github.com/jhnmartin/hey-sub000/internal/clock"
	paymentdomain "github.com/jhnmartin/hey-sub000/internal/payment/domain"
)

func newTestAdapter(t *testing.T, clk clock.Clock) paymentdomain.PaymentAdapter {
	t.Helper()
	adapter, err := NewFactory(clk).NewAdapter(paymentdomain.AdapterConfig{
		Provider: ProviderName,
		Config:   map[string]any{"webhook_secret": "whsec_test"},
	})
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}
	return adapter
}

func TestVerifySignature(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	adapter := newTestAdapter(t, clock.NewFakeClock(now))
	payload := []byte(`{"id":"evt_123","type":"checkout.session.completed","data":{"object":{}}}`)

	reqHeader := http.Header{}
	reqHeader.Set("Stripe-Signature", buildStripeSignatureHeader("whsec_test", payload, now.Unix()))
	if err := adapter.Verify(context.Background(), payload, reqHeader); err != nil {
		t.Fatalf("expected valid signature, got error: %v", err)
	}

	reqHeader.Set("Stripe-Signature", buildStripeSignatureHeader("wrong", payload, now.Unix()))
	if err := adapter.Verify(context.Background(), payload, reqHeader); !errors.Is(err, paymentdomain.ErrInvalidSignature) {
		t.Fatalf("expected invalid signature error, got %v", err)
	}

	tampered := []byte(`{"id":"evt_124","type":"checkout.session.completed","data":{"object":{}}}`)
	reqHeader.Set("Stripe-Signature", buildStripeSignatureHeader("whsec_test", payload, now.Unix()))
	if err := adapter.Verify(context.Background(), tampered, reqHeader); !errors.Is(err, paymentdomain.ErrInvalidSignature) {
		t.Fatalf("expected invalid signature for tampered payload, got %v", err)
	}

	reqHeader.Del("Stripe-Signature")
	if err := adapter.Verify(context.Background(), payload, reqHeader); !errors.Is(err, paymentdomain.ErrInvalidSignature) {
		t.Fatalf("expected invalid signature for missing header, got %v", err)
	}
}

func TestVerifyRejectsStaleSignature(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	adapter := newTestAdapter(t, clock.NewFakeClock(now))
	payload := []byte(`{"id":"evt_123"}`)

	reqHeader := http.Header{}
	reqHeader.Set("Stripe-Signature", buildStripeSignatureHeader("whsec_test", payload, now.Add(-6*time.Minute).Unix()))
	if err := adapter.Verify(context.Background(), payload, reqHeader); !errors.Is(err, paymentdomain.ErrInvalidSignature) {
		t.Fatalf("expected stale signature to be rejected, got %v", err)
	}

	reqHeader.Set("Stripe-Signature", buildStripeSignatureHeader("whsec_test", payload, now.Add(-4*time.Minute).Unix()))
	if err := adapter.Verify(context.Background(), payload, reqHeader); err != nil {
		t.Fatalf("expected signature inside tolerance to pass, got %v", err)
	}
}

func TestNewAdapterRequiresSecret(t *testing.T) {
	_, err := NewFactory(nil).NewAdapter(paymentdomain.AdapterConfig{Config: map[string]any{}})
	if !errors.Is(err, paymentdomain.ErrInvalidConfig) {
		t.Fatalf("expected invalid config, got %v", err)
	}
}

func TestParseCheckoutSessionEvents(t *testing.T) {
	created := time.Now().UTC().Unix()
	session := func(paymentStatus string, intent any) map[string]any {
		return map[string]any{
			"id":                  "cs_test_1",
			"payment_status":      paymentStatus,
			"payment_intent":      intent,
			"amount_total":        5000,
			"currency":            "USD",
			"created":             created,
			"client_reference_id": "1788399536046927872",
			"metadata":            map[string]any{"order_id": "1788399536046927872"},
		}
	}

	tests := []struct {
		name       string
		eventType  string
		object     map[string]any
		wantType   string
		wantReason string
		wantIntent string
		wantErr    error
	}{
		{name: "completed paid", eventType: "checkout.session.completed", object: session("paid", "pi_1"),
			wantType: paymentdomain.EventTypeSessionCompleted, wantIntent: "pi_1"},
		{name: "completed free", eventType: "checkout.session.completed", object: session("no_payment_required", nil),
			wantType: paymentdomain.EventTypeSessionCompleted},
		{name: "completed unpaid", eventType: "checkout.session.completed", object: session("unpaid", nil),
			wantErr: paymentdomain.ErrEventIgnored},
		{name: "async succeeded", eventType: "checkout.session.async_payment_succeeded",
			object: session("paid", map[string]any{"id": "pi_2"}), wantType: paymentdomain.EventTypeSessionCompleted, wantIntent: "pi_2"},
		{name: "async failed", eventType: "checkout.session.async_payment_failed", object: session("unpaid", nil),
			wantType: paymentdomain.EventTypeSessionExpired, wantReason: "async_payment_failed"},
		{name: "expired", eventType: "checkout.session.expired", object: session("unpaid", nil),
			wantType: paymentdomain.EventTypeSessionExpired, wantReason: "expired"},
		{name: "other", eventType: "payment_intent.created", object: session("paid", nil),
			wantErr: paymentdomain.ErrEventIgnored},
	}

	adapter := newTestAdapter(t, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := json.Marshal(map[string]any{
				"id":      "evt_" + tt.name,
				"type":    tt.eventType,
				"created": created,
				"data":    map[string]any{"object": tt.object},
			})
			if err != nil {
				t.Fatalf("marshal payload: %v", err)
			}
			event, err := adapter.Parse(context.Background(), payload)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parse event: %v", err)
			}
			if event.Type != tt.wantType {
				t.Fatalf("expected type %s, got %s", tt.wantType, event.Type)
			}
			if event.Reason != tt.wantReason {
				t.Fatalf("expected reason %q, got %q", tt.wantReason, event.Reason)
			}
			if event.PaymentIntent != tt.wantIntent {
				t.Fatalf("expected intent %q, got %q", tt.wantIntent, event.PaymentIntent)
			}
			if event.SessionID != "cs_test_1" || event.Amount != 5000 || event.Currency != "usd" {
				t.Fatalf("unexpected session fields: %+v", event)
			}
			if event.OrderID.String() != "1788399536046927872" {
				t.Fatalf("expected order id from metadata, got %s", event.OrderID)
			}
		})
	}
}

func TestParseRejectsMalformedPayload(t *testing.T) {
	adapter := newTestAdapter(t, nil)
	if _, err := adapter.Parse(context.Background(), []byte(`not json`)); !errors.Is(err, paymentdomain.ErrInvalidPayload) {
		t.Fatalf("expected invalid payload, got %v", err)
	}
	if _, err := adapter.Parse(context.Background(), []byte(`{"type":"checkout.session.completed"}`)); !errors.Is(err, paymentdomain.ErrInvalidEvent) {
		t.Fatalf("expected invalid event, got %v", err)
	}
}

func buildStripeSignatureHeader(secret string, payload []byte, timestamp int64) string {
	signedPayload := fmt.Sprintf("%d.%s", timestamp, string(payload))
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(signedPayload))
	signature := hex.EncodeToString(mac.Sum(nil))
	return fmt.Sprintf("t=%d,v1=%s", timestamp, signature)
}
