// Package server exposes the billing engine over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	auditservice "github.com/telandes/recaudo/internal/audit/service"
	"github.com/telandes/recaudo/internal/auditcontext"
	billingdomain "github.com/telandes/recaudo/internal/billing/domain"
	"github.com/telandes/recaudo/internal/config"
	notificationdomain "github.com/telandes/recaudo/internal/notification/domain"
	"github.com/telandes/recaudo/internal/observability/logger"
	"github.com/telandes/recaudo/internal/observability/metrics"
	"github.com/telandes/recaudo/internal/observability/tracing"
	"github.com/telandes/recaudo/internal/settings"
	subscriberdomain "github.com/telandes/recaudo/internal/subscriber/domain"
)

var Module = fx.Module("server",
	fx.Provide(NewServer),
	fx.Invoke(runServer),
)

type Params struct {
	fx.In

	Config          config.Config
	Log             *zap.Logger
	DB              *gorm.DB
	SubscriberSvc   subscriberdomain.Service
	BillingSvc      billingdomain.Service
	NotificationSvc notificationdomain.Service
	SettingsSvc     settings.Service
	AuditSvc        auditservice.Service
	HTTPMetrics     *metrics.HTTPMetrics `optional:"true"`
}

type Server struct {
	cfg             config.Config
	log             *zap.Logger
	db              *gorm.DB
	subscriberSvc   subscriberdomain.Service
	billingSvc      billingdomain.Service
	notificationSvc notificationdomain.Service
	settingsSvc     settings.Service
	auditSvc        auditservice.Service
	httpMetrics     *metrics.HTTPMetrics
}

func NewServer(p Params) *Server {
	return &Server{
		cfg:             p.Config,
		log:             p.Log.Named("server"),
		db:              p.DB,
		subscriberSvc:   p.SubscriberSvc,
		billingSvc:      p.BillingSvc,
		notificationSvc: p.NotificationSvc,
		settingsSvc:     p.SettingsSvc,
		auditSvc:        p.AuditSvc,
		httpMetrics:     p.HTTPMetrics,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	if s.cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(tracing.GinMiddleware())
	r.Use(metrics.GinMiddleware(s.httpMetrics))
	r.Use(logger.GinMiddleware(logger.MiddlewareConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(auditContextMiddleware())

	r.GET("/healthz", s.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/v1")
	{
		v1.POST("/subscribers", s.CreateSubscriber)
		v1.GET("/subscribers", s.ListSubscribers)
		v1.GET("/subscribers/:id", s.GetSubscriber)
		v1.PATCH("/subscribers/:id", s.UpdateSubscriber)
		v1.DELETE("/subscribers/:id", s.DeactivateSubscriber)

		v1.GET("/subscribers/:id/debt", s.GetDebtSnapshot)
		v1.GET("/subscribers/:id/periods", s.ListBillingPeriods)
		v1.POST("/subscribers/:id/payments", s.AllocatePayment)
		v1.GET("/subscribers/:id/payments", s.ListPayments)

		v1.POST("/billing/sweep", s.RunDelinquencySweep)
		v1.GET("/billing/stats", s.GetAggregateStats)

		v1.POST("/notifications", s.CreateNotification)
		v1.POST("/notifications/bulk", s.SendBulkNotifications)
		v1.POST("/notifications/:id/send", s.SendPendingNotification)
		v1.POST("/notifications/dispatch", s.DispatchPendingNotifications)
		v1.GET("/notifications", s.ListNotifications)
		v1.GET("/notifications/stats", s.GetNotificationStats)

		v1.GET("/settings/billing", s.GetBillingSettings)
		v1.PUT("/settings/billing", s.UpdateBillingSettings)

		v1.GET("/audit-logs", s.ListAuditLogs)
	}
	return r
}

// auditContextMiddleware stamps the request context with actor and
// origin details so audit writes downstream can attribute the action.
func auditContextMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		ctx = auditcontext.WithRequestID(ctx, uuid.NewString())
		if operator := c.GetHeader("X-Operator-Id"); operator != "" {
			ctx = auditcontext.WithActor(ctx, "operator", operator)
		}
		ctx = auditcontext.WithIPAddress(ctx, c.ClientIP())
		ctx = auditcontext.WithUserAgent(ctx, c.Request.UserAgent())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func (s *Server) Healthz(c *gin.Context) {
	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func runServer(lc fx.Lifecycle, s *Server) {
	srv := &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				s.log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					s.log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
