package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/taxlens/taxlens/internal/config"
	invoicedomain "github.com/taxlens/taxlens/internal/invoice/domain"
	"github.com/taxlens/taxlens/internal/logger"
	reconciledomain "github.com/taxlens/taxlens/internal/reconcile/domain"
	riskdomain "github.com/taxlens/taxlens/internal/risk/domain"
	taxpayerdomain "github.com/taxlens/taxlens/internal/taxpayer/domain"
	tradedomain "github.com/taxlens/taxlens/internal/trade/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(cfg config.Config, log *zap.Logger, registry *prometheus.Registry) *gin.Engine {
	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.GinMiddleware(log))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	return r
}

func registerGin(cfg config.Config, log *zap.Logger, registry *prometheus.Registry) *gin.Engine {
	return NewEngine(cfg, log, registry)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
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
	ingestSvc    invoicedomain.Service
	reconcileSvc reconciledomain.Service
	results      *reconciledomain.ResultCache
	riskSvc      riskdomain.Service
	tradeSvc     tradedomain.Detector
	taxpayers    taxpayerdomain.Repository
	invoices     invoicedomain.Repository
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	IngestSvc    invoicedomain.Service
	ReconcileSvc reconciledomain.Service
	Results      *reconciledomain.ResultCache
	RiskSvc      riskdomain.Service
	TradeSvc     tradedomain.Detector
	Taxpayers    taxpayerdomain.Repository
	Invoices     invoicedomain.Repository
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		ingestSvc:    p.IngestSvc,
		reconcileSvc: p.ReconcileSvc,
		results:      p.Results,
		riskSvc:      p.RiskSvc,
		tradeSvc:     p.TradeSvc,
		taxpayers:    p.Taxpayers,
		invoices:     p.Invoices,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	api.POST("/reconcile", s.runReconciliation)
	api.GET("/reconcile/status", s.reconciliationStatus)
	api.GET("/reconcile/results", s.listMismatches)
	api.GET("/reconcile/results/:id", s.getMismatch)

	api.GET("/risk/vendors", s.listVendorRisk)
	api.GET("/risk/vendors/:tin", s.getVendorRisk)

	api.GET("/trades/circular", s.listCircularTrades)

	api.POST("/ingest/invoices", s.ingestInvoices)
	api.POST("/ingest/taxpayers", s.ingestTaxpayers)
	api.POST("/ingest/summaries", s.ingestSummaries)

	api.GET("/stats/dashboard", s.dashboardStats)
}
