// Package api exposes the insurance core as an HTTP API.
package api

import (
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/coverlane/coverlane/common/errors"
	"github.com/coverlane/coverlane/internal/alerts"
	"github.com/coverlane/coverlane/internal/capital"
	"github.com/coverlane/coverlane/internal/claims"
	"github.com/coverlane/coverlane/internal/ledger"
	"github.com/coverlane/coverlane/internal/policy"
	"github.com/coverlane/coverlane/internal/registry"
)

// Server is the HTTP API server.
type Server struct {
	router    *gin.Engine
	logger    *zap.Logger
	validator *validator.Validate
	jwtSecret []byte

	registry registry.RegistryService
	ledger   ledger.LedgerService
	capital  capital.CapitalService
	policies policy.PolicyService
	claims   claims.ClaimsService
	alerts   alerts.AlertService
	feed     *AlertFeed
}

// NewServer creates the API server with injected service interfaces.
func NewServer(
	logger *zap.Logger,
	jwtSecret string,
	registrySvc registry.RegistryService,
	ledgerSvc ledger.LedgerService,
	capitalSvc capital.CapitalService,
	policySvc policy.PolicyService,
	claimsSvc claims.ClaimsService,
	alertSvc alerts.AlertService,
	feed *AlertFeed,
) *Server {
	server := &Server{
		logger:    logger,
		validator: validator.New(),
		jwtSecret: []byte(jwtSecret),
		registry:  registrySvc,
		ledger:    ledgerSvc,
		capital:   capitalSvc,
		policies:  policySvc,
		claims:    claimsSvc,
		alerts:    alertSvc,
		feed:      feed,
	}

	router := gin.New()
	router.Use(ginzap.Ginzap(logger, time.RFC3339, true))
	router.Use(ginzap.RecoveryWithZap(logger, true))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	router.Use(errors.Handler())

	server.router = router
	server.registerRoutes()
	return server
}

// Start starts the API server.
func (s *Server) Start(addr string) error {
	s.logger.Info("Starting API server", zap.String("addr", addr))
	return s.router.Run(addr)
}

// Router returns the internal gin engine for testing purposes.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) registerRoutes() {
	public := s.router.Group("/api/v1")
	{
		public.GET("/metrics", gin.WrapH(promhttp.Handler()))
		public.GET("/health", s.healthCheck)

		public.GET("/state", s.getState)
		public.GET("/protocols", s.listProtocols)
		public.GET("/protocols/:id", s.getProtocol)
		public.GET("/protocols/:id/quote", s.quotePremium)
		public.GET("/protocols/:id/alerts", s.listAlerts)
		public.GET("/pools/:tier", s.getPool)
		public.GET("/policies/:id", s.getPolicy)
		public.GET("/claims/:id", s.getClaim)

		public.GET("/ws/alerts", func(c *gin.Context) {
			s.feed.ServeWS(c.Writer, c.Request)
		})
	}

	authed := s.router.Group("/api/v1")
	authed.Use(s.authMiddleware())
	{
		authed.POST("/bootstrap", s.bootstrap)
		authed.PUT("/state/fee", s.setProtocolFee)

		authed.POST("/protocols", s.registerProtocol)
		authed.PUT("/protocols/:id/risk", s.updateRisk)
		authed.PUT("/protocols/:id/active", s.setProtocolActive)
		authed.POST("/protocols/:id/alerts", s.createAlert)
		authed.POST("/alerts/:id/confirm", s.confirmAlert)

		authed.POST("/pools", s.initializePool)
		authed.POST("/pools/:tier/capital", s.provideCapital)
		authed.POST("/pools/:tier/withdraw", s.withdrawCapital)
		authed.GET("/pools/:tier/yield", s.accruedYield)

		authed.POST("/policies", s.createPolicy)
		authed.POST("/claims", s.submitClaim)
		authed.POST("/claims/:id/resolve", s.resolveClaim)

		authed.GET("/ledger/balance", s.getBalance)
		authed.POST("/ledger/deposit", s.deposit)
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(200, gin.H{"status": "ok"})
}
