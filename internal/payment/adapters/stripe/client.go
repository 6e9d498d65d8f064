package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/jhnmartin/hey-sub000/internal/config"
	paymentdomain "github.com/jhnmartin/hey-sub000/internal/payment/domain"
)

const DefaultAPIBase = "https://api.stripe.com"

type stripeSessionResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type stripeErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Client opens Stripe Checkout sessions.
type Client struct {
	apiKey  string
	apiBase string
	client  *http.Client
}

// NewClient leaves request deadlines to the caller's context.
func NewClient(cfg config.PaymentConfig) *Client {
	return NewClientWithHTTP(cfg, &http.Client{})
}

func NewClientWithHTTP(cfg config.PaymentConfig, httpClient *http.Client) *Client {
	base := strings.TrimRight(strings.TrimSpace(cfg.APIBase), "/")
	if base == "" {
		base = DefaultAPIBase
	}
	return &Client{
		apiKey:  strings.TrimSpace(cfg.SecretKey),
		apiBase: base,
		client:  httpClient,
	}
}

func (c *Client) CreateSession(ctx context.Context, req paymentdomain.SessionRequest) (*paymentdomain.Session, error) {
	if c.apiKey == "" {
		return nil, paymentdomain.ErrInvalidConfig
	}

	values := url.Values{}
	values.Set("mode", "payment")
	values.Set("success_url", req.SuccessURL)
	values.Set("cancel_url", req.CancelURL)
	values.Set("client_reference_id", req.OrderID.String())
	values.Set("metadata[order_id]", req.OrderID.String())
	for i, item := range req.LineItems {
		prefix := fmt.Sprintf("line_items[%d]", i)
		values.Set(prefix+"[price_data][currency]", strings.ToLower(req.Currency))
		values.Set(prefix+"[price_data][product_data][name]", item.Name)
		values.Set(prefix+"[price_data][unit_amount]", strconv.FormatInt(item.UnitAmount, 10))
		values.Set(prefix+"[quantity]", strconv.FormatInt(item.Quantity, 10))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+"/v1/checkout/sessions", strings.NewReader(values.Encode()))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if req.IdempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", req.IdempotencyKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var stripeErr stripeErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&stripeErr); err != nil {
			return nil, fmt.Errorf("stripe_request_failed: status %d", resp.StatusCode)
		}
		message := strings.TrimSpace(stripeErr.Error.Message)
		if message == "" {
			message = "stripe_request_failed"
		}
		return nil, errors.New(message)
	}

	var session stripeSessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, err
	}
	if session.ID == "" || session.URL == "" {
		return nil, errors.New("stripe_response_invalid")
	}
	return &paymentdomain.Session{ID: session.ID, URL: session.URL}, nil
}
