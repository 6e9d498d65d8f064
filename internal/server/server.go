package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jhnmartin/hey-sub000/internal/cache"
	"github.com/jhnmartin/hey-sub000/internal/checkout"
	checkoutdomain "github.com/jhnmartin/hey-sub000/internal/checkout/domain"
	"github.com/jhnmartin/hey-sub000/internal/config"
	"github.com/jhnmartin/hey-sub000/internal/event"
	eventdomain "github.com/jhnmartin/hey-sub000/internal/event/domain"
	"github.com/jhnmartin/hey-sub000/internal/identity"
	identitydomain "github.com/jhnmartin/hey-sub000/internal/identity/domain"
	"github.com/jhnmartin/hey-sub000/internal/inventory"
	inventorydomain "github.com/jhnmartin/hey-sub000/internal/inventory/domain"
	"github.com/jhnmartin/hey-sub000/internal/observability"
	obsmiddleware "github.com/jhnmartin/hey-sub000/internal/observability/logger"
	obsmetrics "github.com/jhnmartin/hey-sub000/internal/observability/metrics"
	obstracing "github.com/jhnmartin/hey-sub000/internal/observability/tracing"
	"github.com/jhnmartin/hey-sub000/internal/order"
	orderdomain "github.com/jhnmartin/hey-sub000/internal/order/domain"
	"github.com/jhnmartin/hey-sub000/internal/payment"
	paymentdomain "github.com/jhnmartin/hey-sub000/internal/payment/domain"
	"github.com/jhnmartin/hey-sub000/internal/providers"
	"github.com/jhnmartin/hey-sub000/internal/providers/pdf"
	"github.com/jhnmartin/hey-sub000/internal/ratelimit"
	"github.com/jhnmartin/hey-sub000/internal/redemption"
	redemptiondomain "github.com/jhnmartin/hey-sub000/internal/redemption/domain"
	"github.com/jhnmartin/hey-sub000/internal/ticket"
	ticketdomain "github.com/jhnmartin/hey-sub000/internal/ticket/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Domains wires every service the HTTP handlers depend on.
var Domains = fx.Options(
	identity.Module,
	event.Module,
	inventory.Module,
	order.Module,
	ticket.Module,
	payment.Module,
	checkout.Module,
	redemption.Module,
	providers.Module,
	ratelimit.Module,
)

var Module = fx.Module("http.server",
	Domains,
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, cfg config.Config, s *Server, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine        *gin.Engine
	cfg           config.Config
	db            *gorm.DB
	logger        *zap.Logger
	identitySvc   identitydomain.Service
	eventRepo     eventdomain.Repository
	inventorySvc  inventorydomain.Service
	orderSvc      orderdomain.Service
	ticketSvc     ticketdomain.Service
	checkoutSvc   checkoutdomain.Service
	redemptionSvc redemptiondomain.Service
	webhookSvc    paymentdomain.WebhookService
	pdfProvider   pdf.Provider
	limiter       *ratelimit.Limiter
	obsMetrics    *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Cfg           config.Config
	DB            *gorm.DB
	Log           *zap.Logger
	IdentitySvc   identitydomain.Service
	EventRepo     eventdomain.Repository
	InventorySvc  inventorydomain.Service
	OrderSvc      orderdomain.Service
	TicketSvc     ticketdomain.Service
	CheckoutSvc   checkoutdomain.Service
	RedemptionSvc redemptiondomain.Service
	WebhookSvc    paymentdomain.WebhookService
	PDFProvider   pdf.Provider
	Limiter       *ratelimit.Limiter  `optional:"true"`
	ObsMetrics    *obsmetrics.Metrics `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		db:            p.DB,
		logger:        p.Log.Named("http.server"),
		identitySvc:   p.IdentitySvc,
		eventRepo:     cache.NewEventLookup(p.EventRepo, 0),
		inventorySvc:  p.InventorySvc,
		orderSvc:      p.OrderSvc,
		ticketSvc:     p.TicketSvc,
		checkoutSvc:   p.CheckoutSvc,
		redemptionSvc: p.RedemptionSvc,
		webhookSvc:    p.WebhookSvc,
		pdfProvider:   p.PDFProvider,
		limiter:       p.Limiter,
		obsMetrics:    p.ObsMetrics,
	}

	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) log(ctx context.Context) *zap.Logger {
	return obsmiddleware.WithContext(ctx, s.logger)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	// -------- Inventory --------
	api.GET("/events/:id/tiers", s.ListEventTiers)

	// -------- Checkout --------
	api.POST("/checkout", s.BuyerAuthRequired(), s.CheckoutRateLimit(), s.InitiateCheckout)

	// -------- Orders --------
	api.GET("/orders/:id", s.BuyerAuthRequired(), s.GetOrder)
	api.GET("/orders/:id/tickets", s.BuyerAuthRequired(), s.ListOrderTickets)

	// -------- Tickets --------
	api.GET("/me/tickets", s.BuyerAuthRequired(), s.ListMyTickets)
	api.GET("/tickets/:id/pdf", s.BuyerAuthRequired(), s.GetTicketPDF)

	// -------- Door --------
	api.POST("/redemptions", s.RedeemRateLimit(), s.RedeemTicket)

	// -------- Payment Webhooks --------
	api.POST("/payments/webhooks/:provider", s.HandlePaymentWebhook)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
