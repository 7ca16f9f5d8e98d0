package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	billingdomain "github.com/smallbiznis/costline/internal/billing/domain"
	commitmentdomain "github.com/smallbiznis/costline/internal/commitment/domain"
	"github.com/smallbiznis/costline/internal/config"
	costcodedomain "github.com/smallbiznis/costline/internal/costcode/domain"
	"github.com/smallbiznis/costline/internal/observability"
	obslogger "github.com/smallbiznis/costline/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/costline/internal/observability/metrics"
	obstracing "github.com/smallbiznis/costline/internal/observability/tracing"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(RunHTTP),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware(obstracing.MiddlewareConfig{
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(httpMetrics.Handler()))

	return r
}

func RunHTTP(lc fx.Lifecycle, s *Server, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
	billingSvc    billingdomain.Service
	commitmentSvc commitmentdomain.Service
	costCodeSvc   costcodedomain.Service
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	BillingSvc    billingdomain.Service
	CommitmentSvc commitmentdomain.Service
	CostCodeSvc   costcodedomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:        p.Gin,
		billingSvc:    p.BillingSvc,
		commitmentSvc: p.CommitmentSvc,
		costCodeSvc:   p.CostCodeSvc,
	}
	svc.registerAPIRoutes()
	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	documents := api.Group("/documents")
	documents.POST("", s.CreateDocument)
	documents.GET("/:id", s.GetDocument)
	documents.DELETE("/:id", s.DeleteDocument)
	documents.POST("/:id/lines", s.AddLine)
	documents.PATCH("/:id/lines/:line_id", s.EditLine)
	documents.DELETE("/:id/lines/:line_id", s.RemoveLine)
	documents.PUT("/:id/commitment", s.ResolveCommitment)
	documents.GET("/:id/totals", s.GetTotals)
	documents.GET("/:id/validation", s.ValidateDocument)
	documents.POST("/:id/submit", s.SubmitDocument)
	documents.POST("/:id/approve", s.TransitionDocument(billingdomain.DocumentStatusApproved))
	documents.POST("/:id/pay", s.TransitionDocument(billingdomain.DocumentStatusPaid))
	documents.POST("/:id/close", s.TransitionDocument(billingdomain.DocumentStatusClosed))
	documents.POST("/:id/cancel", s.TransitionDocument(billingdomain.DocumentStatusCancelled))

	projects := api.Group("/projects/:project_id")
	projects.GET("/commitment-lines/:line_id/billed-to-date", s.GetBilledToDate)
	projects.GET("/cost-codes", s.ListProjectCostCodes)

	commitments := api.Group("/commitments")
	commitments.POST("", s.CreateCommitment)
	commitments.GET("/:id", s.GetCommitment)
	commitments.GET("/:id/lines", s.ListCommitmentLines)
	commitments.POST("/:id/change-orders", s.CreateChangeOrder)

	changeOrders := api.Group("/change-orders")
	changeOrders.POST("/:id/approve", s.ApproveChangeOrder)
	changeOrders.POST("/:id/void", s.VoidChangeOrder)

	api.POST("/cost-codes", s.CreateCostCode)
	api.GET("/cost-types", s.ListCostTypes)
	api.POST("/cost-types", s.CreateCostType)
	api.POST("/budget-lines", s.CreateBudgetLine)
}
