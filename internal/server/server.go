package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/adjustment"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/auth"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/booking"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/config"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/logger"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/refund"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/subscription"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/wallet"
)

const maxBodyBytes = 1 << 20

// Handlers are the HTTP entry points of each component.
type Handlers struct {
	Wallet       *wallet.Handler
	Adjustment   *adjustment.Handler
	Refund       *refund.Handler
	Subscription *subscription.Handler
	Booking      *booking.Handler
}

type Server struct {
	router  *gin.Engine
	http    *http.Server
	limiter *RateLimiter
}

func New(cfg *config.Config, db Pinger, queue Queue, h Handlers) *Server {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLoggingMiddleware())
	router.Use(MetricsMiddleware())
	router.Use(corsMiddleware())
	router.Use(RequestBodyMiddleware(maxBodyBytes))

	router.GET("/health", Health(db, queue))
	router.GET("/metrics", Metrics())

	authMiddleware := auth.AuthMiddleware(cfg.JWTSecret)
	limiter := NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, 3*time.Minute)
	rateLimit := RateLimitMiddleware(limiter)

	rider := router.Group("/api")
	rider.Use(authMiddleware, rateLimit)
	{
		rider.GET("/wallet", h.Wallet.GetBalance)
		rider.GET("/wallet/transactions", h.Wallet.ListMyTransactions)
		rider.GET("/subscriptions", h.Subscription.ListMine)
		rider.POST("/subscriptions/:id/cancel", h.Subscription.Cancel)
		rider.GET("/bookings", h.Booking.ListMine)
		rider.POST("/bookings/:id/cancel", h.Booking.CancelBooking)
	}

	admin := router.Group("/api/admin")
	admin.Use(authMiddleware, auth.RequireRole(auth.RoleAdmin), rateLimit)
	{
		admin.GET("/wallets", h.Wallet.ListWallets)
		admin.GET("/wallets/:id/transactions", h.Wallet.ListWalletTransactions)
		admin.GET("/wallets/:id/reconcile", h.Wallet.Reconcile)
		admin.POST("/wallets/:id/adjust", h.Adjustment.Adjust)
		admin.POST("/wallets/:id/reset", h.Adjustment.Reset)

		admin.POST("/refunds/process", h.Refund.Process)
		admin.GET("/refunds/pending", h.Refund.Pending)
		admin.GET("/refunds/history", h.Refund.History)
		admin.GET("/refunds/stats", h.Refund.Stats)

		admin.POST("/trips/:id/cancel", h.Booking.CancelTrip)
		admin.POST("/trips/:id/missed", h.Booking.MarkTripMissed)

		admin.POST("/subscriptions/:id/cancel", h.Subscription.Cancel)
		admin.POST("/subscriptions/expire", h.Subscription.ExpireDue)
	}

	return &Server{
		router:  router,
		limiter: limiter,
		http: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start blocks until the server stops. A clean Shutdown returns nil.
func (s *Server) Start() error {
	logger.Info("http server listening", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	defer s.limiter.Stop()
	return s.http.Shutdown(ctx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
