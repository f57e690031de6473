package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/medisync/medledger/internal/audit"
	auditdomain "github.com/medisync/medledger/internal/audit/domain"
	"github.com/medisync/medledger/internal/authorization"
	"github.com/medisync/medledger/internal/catalog"
	catalogdomain "github.com/medisync/medledger/internal/catalog/domain"
	"github.com/medisync/medledger/internal/charge"
	chargedomain "github.com/medisync/medledger/internal/charge/domain"
	"github.com/medisync/medledger/internal/config"
	"github.com/medisync/medledger/internal/events"
	"github.com/medisync/medledger/internal/observability"
	obsmiddleware "github.com/medisync/medledger/internal/observability/logger"
	"github.com/medisync/medledger/internal/payment"
	paymentdomain "github.com/medisync/medledger/internal/payment/domain"
	"github.com/medisync/medledger/internal/pricing"
	pricingdomain "github.com/medisync/medledger/internal/pricing/domain"
	"github.com/medisync/medledger/internal/statement"
	statementdomain "github.com/medisync/medledger/internal/statement/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	observability.Module,
	fx.Provide(registerGin),
	authorization.Module,
	audit.Module,
	events.Module,
	catalog.Module,
	pricing.Module,
	charge.Module,
	payment.Module,
	statement.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug: obsCfg.Debug(),
	}))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config) *gin.Engine {
	return NewEngine(obsCfg)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
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
	engine       *gin.Engine
	cfg          config.Config
	db           *gorm.DB
	genID        *snowflake.Node
	authzSvc     authorization.Service
	auditSvc     auditdomain.Service
	catalogSvc   catalogdomain.Service
	pricingSvc   pricingdomain.Service
	chargeSvc    chargedomain.Service
	paymentSvc   paymentdomain.Service
	statementSvc statementdomain.Service
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	DB           *gorm.DB
	GenID        *snowflake.Node
	AuthzSvc     authorization.Service
	AuditSvc     auditdomain.Service
	CatalogSvc   catalogdomain.Service
	PricingSvc   pricingdomain.Service
	ChargeSvc    chargedomain.Service
	PaymentSvc   paymentdomain.Service
	StatementSvc statementdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		db:           p.DB,
		genID:        p.GenID,
		authzSvc:     p.AuthzSvc,
		auditSvc:     p.AuditSvc,
		catalogSvc:   p.CatalogSvc,
		pricingSvc:   p.PricingSvc,
		chargeSvc:    p.ChargeSvc,
		paymentSvc:   p.PaymentSvc,
		statementSvc: p.StatementSvc,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", s.ActorRequired())

	// -------- Catalog --------
	api.GET("/services", s.authorizeAction(authorization.ObjectCatalog, authorization.ActionCatalogView), s.ListServices)
	api.GET("/services/:code", s.authorizeAction(authorization.ObjectCatalog, authorization.ActionCatalogView), s.GetService)
	api.PUT("/services", s.authorizeAction(authorization.ObjectCatalog, authorization.ActionCatalogUpsert), s.UpsertService)
	api.POST("/services/:code/deactivate", s.authorizeAction(authorization.ObjectCatalog, authorization.ActionCatalogUpsert), s.DeactivateService)

	// -------- Pricing --------
	api.GET("/prices/resolve", s.authorizeAction(authorization.ObjectPrice, authorization.ActionPriceView), s.ResolvePrice)
	api.GET("/prices", s.authorizeAction(authorization.ObjectPrice, authorization.ActionPriceView), s.ListPrices)
	api.POST("/prices", s.authorizeAction(authorization.ObjectPrice, authorization.ActionPriceSet), s.SetPrice)
	api.POST("/payer-prices", s.authorizeAction(authorization.ObjectPrice, authorization.ActionPriceSet), s.SetPayerPrice)
	api.POST("/payers", s.authorizeAction(authorization.ObjectPrice, authorization.ActionPriceSet), s.RegisterPayer)
	api.POST("/payers/:id/affiliations", s.authorizeAction(authorization.ObjectPrice, authorization.ActionPriceSet), s.AffiliatePayer)

	// -------- Charges --------
	api.GET("/charges", s.authorizeAction(authorization.ObjectCharge, authorization.ActionChargeView), s.ListCharges)
	api.GET("/charges/:id", s.authorizeAction(authorization.ObjectCharge, authorization.ActionChargeView), s.GetCharge)
	api.POST("/charges", s.authorizeAction(authorization.ObjectCharge, authorization.ActionChargeCreate), s.CreateCharge)
	api.POST("/charges/:id/void", s.authorizeAction(authorization.ObjectCharge, authorization.ActionChargeVoid), s.VoidCharge)

	// -------- Payments --------
	api.GET("/payments", s.authorizeAction(authorization.ObjectPayment, authorization.ActionPaymentView), s.ListPayments)
	api.GET("/payments/:id", s.authorizeAction(authorization.ObjectPayment, authorization.ActionPaymentView), s.GetPayment)
	api.POST("/payments", s.authorizeAction(authorization.ObjectPayment, authorization.ActionPaymentPost), s.PostPayment)
	api.POST("/payments/:id/reverse", s.authorizeAction(authorization.ObjectPayment, authorization.ActionPaymentReverse), s.ReversePayment)

	// -------- Statements --------
	api.GET("/subjects/:id/statement", s.authorizeAction(authorization.ObjectStatement, authorization.ActionStatementView), s.GetStatement)
	api.GET("/subjects/:id/totals", s.authorizeAction(authorization.ObjectStatement, authorization.ActionStatementView), s.GetTotals)

	// -------- Audit --------
	api.GET("/audit-logs", s.authorizeAction(authorization.ObjectAuditLog, authorization.ActionAuditLogView), s.ListAuditLogs)
	api.POST("/roles", s.AssignRole)
}
