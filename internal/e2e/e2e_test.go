package e2e

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/jhnmartin/hey-sub000/internal/clock"
	"github.com/jhnmartin/hey-sub000/internal/config"
	"github.com/jhnmartin/hey-sub000/internal/migration"
	"github.com/jhnmartin/hey-sub000/internal/observability"
	"github.com/jhnmartin/hey-sub000/internal/server"
	"github.com/jhnmartin/hey-sub000/internal/storetest"
	"go.uber.org/fx"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const webhookSecret = "whsec_e2e"

var dbSeq atomic.Int64

// fakeStripe answers checkout session creation like the processor does.
type fakeStripe struct {
	mu       sync.Mutex
	srv      *httptest.Server
	seq      int
	sessions map[string]string // session id -> order id
}

func newFakeStripe(t *testing.T) *fakeStripe {
	t.Helper()
	f := &fakeStripe{sessions: map[string]string{}}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/checkout/sessions" {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseForm(); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.seq++
		id := fmt.Sprintf("cs_test_%d", f.seq)
		f.sessions[id] = r.PostForm.Get("metadata[order_id]")
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"id":  id,
			"url": "https://checkout.stripe.test/" + id,
		})
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeStripe) sessionFor(orderID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, owner := range f.sessions {
		if owner == orderID {
			return id
		}
	}
	return ""
}

type testEnv struct {
	t       *testing.T
	db      *gorm.DB
	baseURL string
	stripe  *fakeStripe
	seed    *storetest.Seed
	token   string
	eventID snowflake.ID
}

func startEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	stripe := newFakeStripe(t)
	t.Setenv("ENVIRONMENT", "test")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("OTEL_ENABLED", "false")
	t.Setenv("DATABASE_TYPE", "sqlite")
	t.Setenv("RATE_LIMIT_ENABLED", "false")
	t.Setenv("PAYMENT_PROVIDER", "stripe")
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_e2e")
	t.Setenv("STRIPE_WEBHOOK_SECRET", webhookSecret)
	t.Setenv("STRIPE_API_BASE", stripe.srv.URL)

	var (
		srv    *server.Server
		dbConn *gorm.DB
	)
	app := fx.New(
		fx.NopLogger,
		config.Module,
		observability.Module,
		fx.Provide(openDB),
		clock.Module,
		migration.Module,
		server.Domains,
		fx.Provide(func() *snowflake.Node {
			node, err := snowflake.NewNode(1)
			if err != nil {
				panic(err)
			}
			return node
		}),
		fx.Provide(server.NewEngine),
		fx.Provide(server.NewServer),
		fx.Populate(&srv, &dbConn),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := app.Start(ctx); err != nil {
		t.Fatalf("start app: %v", err)
	}
	t.Cleanup(func() { _ = app.Stop(context.Background()) })

	httpSrv := httptest.NewServer(srv.Engine())
	t.Cleanup(httpSrv.Close)

	seed := storetest.NewSeed(t, dbConn)
	buyerID := seed.Buyer("Ada Lovelace", "ada@example.com")
	return &testEnv{
		t:       t,
		db:      dbConn,
		baseURL: httpSrv.URL,
		stripe:  stripe,
		seed:    seed,
		token:   seed.Session(buyerID, time.Hour),
		eventID: seed.Event("Spring Gala", "platform"),
	}
}

func openDB(lc fx.Lifecycle) (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:e2e_%d?mode=memory&cache=shared", dbSeq.Add(1))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc:        func() time.Time { return time.Now().UTC() },
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	lc.Append(fx.Hook{OnStop: func(context.Context) error { return sqlDB.Close() }})
	return conn, nil
}

func (e *testEnv) do(method, path string, payload any, headers map[string]string) (*http.Response, []byte) {
	e.t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			e.t.Fatalf("encode json: %v", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, e.baseURL+path, body)
	if err != nil {
		e.t.Fatalf("build request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		e.t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		e.t.Fatalf("read response: %v", err)
	}
	return resp, data
}

func (e *testEnv) auth() map[string]string {
	return map[string]string{"Authorization": "Bearer " + e.token}
}

func (e *testEnv) checkout(tierID snowflake.ID, quantity int) string {
	e.t.Helper()
	resp, body := e.do(http.MethodPost, "/api/checkout", map[string]any{
		"event_id":    e.eventID.String(),
		"items":       []map[string]any{{"tier_id": tierID.String(), "quantity": quantity}},
		"success_url": "https://tickets.example.com/ok",
		"cancel_url":  "https://tickets.example.com/cancel",
	}, e.auth())
	if resp.StatusCode != http.StatusCreated {
		e.t.Fatalf("checkout: expected 201, got %d: %s", resp.StatusCode, string(body))
	}
	var result struct {
		OrderID     string `json:"order_id"`
		RedirectURL string `json:"redirect_url"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		e.t.Fatalf("decode checkout: %v", err)
	}
	if result.RedirectURL == "" {
		e.t.Fatalf("checkout returned no redirect url")
	}
	return result.OrderID
}

// deliver posts a signed processor notification for the order's session.
func (e *testEnv) deliver(eventID, eventType, sessionID, orderID string) (int, string) {
	e.t.Helper()
	now := time.Now().Unix()
	payload := []byte(fmt.Sprintf(`{"id":"%s","type":"%s","created":%d,"data":{"object":{"id":"%s","payment_status":"paid","payment_intent":"pi_%s","amount_total":0,"currency":"usd","created":%d,"metadata":{"order_id":"%s"}}}}`,
		eventID, eventType, now, sessionID, sessionID, now, orderID))

	mac := hmac.New(sha256.New, []byte(webhookSecret))
	_, _ = mac.Write([]byte(fmt.Sprintf("%d.%s", now, payload)))
	signature := fmt.Sprintf("t=%d,v1=%s", now, hex.EncodeToString(mac.Sum(nil)))

	req, err := http.NewRequest(http.MethodPost, e.baseURL+"/api/payments/webhooks/stripe", bytes.NewReader(payload))
	if err != nil {
		e.t.Fatalf("build webhook: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Stripe-Signature", signature)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		e.t.Fatalf("webhook request: %v", err)
	}
	defer resp.Body.Close()

	var ack struct {
		Status string `json:"status"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&ack)
	return resp.StatusCode, ack.Status
}

func (e *testEnv) orderStatus(orderID string) string {
	e.t.Helper()
	resp, body := e.do(http.MethodGet, "/api/orders/"+orderID, nil, e.auth())
	if resp.StatusCode != http.StatusOK {
		e.t.Fatalf("get order: expected 200, got %d: %s", resp.StatusCode, string(body))
	}
	var out struct {
		Data struct {
			Status        string  `json:"status"`
			FailureReason *string `json:"failure_reason"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		e.t.Fatalf("decode order: %v", err)
	}
	return out.Data.Status
}

type ticketRow struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	DisplayCode string `json:"display_code"`
	Status      string `json:"status"`
}

func (e *testEnv) orderTickets(orderID string) []ticketRow {
	e.t.Helper()
	resp, body := e.do(http.MethodGet, "/api/orders/"+orderID+"/tickets", nil, e.auth())
	if resp.StatusCode != http.StatusOK {
		e.t.Fatalf("list tickets: expected 200, got %d: %s", resp.StatusCode, string(body))
	}
	var out struct {
		Data []ticketRow `json:"data"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		e.t.Fatalf("decode tickets: %v", err)
	}
	return out.Data
}

func (e *testEnv) session(orderID string) string {
	e.t.Helper()
	sessionID := e.stripe.sessionFor(orderID)
	if sessionID == "" {
		e.t.Fatalf("no processor session recorded for order %s", orderID)
	}
	return sessionID
}

func TestE2E_HealthCheck(t *testing.T) {
	env := startEnv(t)

	resp, _ := env.do(http.MethodGet, "/health", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}
}

func TestE2E_PurchaseAndAdmission(t *testing.T) {
	env := startEnv(t)
	tierID := env.seed.Tier(env.eventID, "General", 2500, 100, 0)

	orderID := env.checkout(tierID, 2)
	if got := env.orderStatus(orderID); got != "pending" {
		t.Fatalf("expected pending order, got %s", got)
	}
	resp, _ := env.do(http.MethodGet, "/api/orders/"+orderID+"/tickets", nil, env.auth())
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 before payment, got %d", resp.StatusCode)
	}

	status, outcome := env.deliver("evt_paid_1", "checkout.session.completed", env.session(orderID), orderID)
	if status != http.StatusOK || outcome != "completed" {
		t.Fatalf("expected completed ack, got %d %s", status, outcome)
	}
	if got := env.orderStatus(orderID); got != "completed" {
		t.Fatalf("expected completed order, got %s", got)
	}
	if sold := storetest.Sold(t, env.db, tierID); sold != 2 {
		t.Fatalf("expected sold 2, got %d", sold)
	}

	tickets := env.orderTickets(orderID)
	if len(tickets) != 2 {
		t.Fatalf("expected 2 tickets, got %d", len(tickets))
	}

	resp, body := env.do(http.MethodPost, "/api/redemptions", map[string]string{"code": tickets[0].DisplayCode}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("first scan: expected 200, got %d: %s", resp.StatusCode, string(body))
	}
	var admitted struct {
		TicketID  string `json:"ticket_id"`
		EventName string `json:"event_name"`
		BuyerName string `json:"buyer_name"`
	}
	if err := json.Unmarshal(body, &admitted); err != nil {
		t.Fatalf("decode confirmation: %v", err)
	}
	if admitted.TicketID != tickets[0].ID || admitted.EventName != "Spring Gala" || admitted.BuyerName != "Ada Lovelace" {
		t.Fatalf("unexpected confirmation %+v", admitted)
	}

	resp, body = env.do(http.MethodPost, "/api/redemptions", map[string]string{"code": tickets[0].Code}, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("second scan: expected 409, got %d: %s", resp.StatusCode, string(body))
	}

	resp, _ = env.do(http.MethodGet, "/api/tickets/"+tickets[1].ID+"/pdf", nil, env.auth())
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "application/pdf" {
		t.Fatalf("expected pdf, got %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
}

func TestE2E_ExpiredSessionReleasesNothing(t *testing.T) {
	env := startEnv(t)
	tierID := env.seed.Tier(env.eventID, "General", 2500, 100, 0)

	orderID := env.checkout(tierID, 3)
	status, outcome := env.deliver("evt_expired_1", "checkout.session.expired", env.session(orderID), orderID)
	if status != http.StatusOK || outcome != "failed" {
		t.Fatalf("expected failed ack, got %d %s", status, outcome)
	}
	if got := env.orderStatus(orderID); got != "failed" {
		t.Fatalf("expected failed order, got %s", got)
	}
	if sold := storetest.Sold(t, env.db, tierID); sold != 0 {
		t.Fatalf("expected sold unchanged, got %d", sold)
	}
	if n := storetest.Count(t, env.db, "tickets", ""); n != 0 {
		t.Fatalf("expected no tickets, got %d", n)
	}
}

func TestE2E_DuplicateDeliveryIssuesOnce(t *testing.T) {
	env := startEnv(t)
	tierID := env.seed.Tier(env.eventID, "General", 2500, 100, 0)

	orderID := env.checkout(tierID, 2)
	sessionID := env.session(orderID)
	if _, outcome := env.deliver("evt_dup", "checkout.session.completed", sessionID, orderID); outcome != "completed" {
		t.Fatalf("expected completed, got %s", outcome)
	}
	status, outcome := env.deliver("evt_dup", "checkout.session.completed", sessionID, orderID)
	if status != http.StatusOK || outcome != "duplicate" {
		t.Fatalf("expected duplicate ack, got %d %s", status, outcome)
	}
	if _, outcome := env.deliver("evt_dup_retry", "checkout.session.completed", sessionID, orderID); outcome != "noop" {
		t.Fatalf("expected noop for a second notification, got %s", outcome)
	}

	if n := len(env.orderTickets(orderID)); n != 2 {
		t.Fatalf("expected 2 tickets, got %d", n)
	}
	if sold := storetest.Sold(t, env.db, tierID); sold != 2 {
		t.Fatalf("expected sold 2, got %d", sold)
	}
}

func TestE2E_BoundedOversell(t *testing.T) {
	env := startEnv(t)
	tierID := env.seed.Tier(env.eventID, "Last Seats", 4000, 1, 0)

	first := env.checkout(tierID, 1)
	second := env.checkout(tierID, 1)

	for i, orderID := range []string{first, second} {
		if _, outcome := env.deliver(fmt.Sprintf("evt_over_%d", i), "checkout.session.completed", env.session(orderID), orderID); outcome != "completed" {
			t.Fatalf("order %s: expected completed, got %s", orderID, outcome)
		}
	}

	if sold := storetest.Sold(t, env.db, tierID); sold != 2 {
		t.Fatalf("expected sold 2 past quantity 1, got %d", sold)
	}
	if n := storetest.Count(t, env.db, "tickets", "tier_id = ?", tierID); n != 2 {
		t.Fatalf("expected 2 tickets, got %d", n)
	}

	resp, _ := env.do(http.MethodPost, "/api/checkout", map[string]any{
		"event_id":    env.eventID.String(),
		"items":       []map[string]any{{"tier_id": tierID.String(), "quantity": 1}},
		"success_url": "https://tickets.example.com/ok",
		"cancel_url":  "https://tickets.example.com/cancel",
	}, env.auth())
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected sold-out tier to reject checkout, got %d", resp.StatusCode)
	}
}

func TestE2E_UnknownSessionIsAcknowledged(t *testing.T) {
	env := startEnv(t)

	status, outcome := env.deliver("evt_orphan", "checkout.session.completed", "cs_orphan", "")
	if status != http.StatusOK || outcome != "ignored" {
		t.Fatalf("expected ignored ack, got %d %s", status, outcome)
	}
}
