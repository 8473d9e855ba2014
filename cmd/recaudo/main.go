package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/telandes/recaudo/internal/audit"
	"github.com/telandes/recaudo/internal/billing"
	"github.com/telandes/recaudo/internal/clock"
	"github.com/telandes/recaudo/internal/config"
	"github.com/telandes/recaudo/internal/migration"
	"github.com/telandes/recaudo/internal/notification"
	"github.com/telandes/recaudo/internal/notification/sweep"
	"github.com/telandes/recaudo/internal/observability/logger"
	"github.com/telandes/recaudo/internal/observability/metrics"
	"github.com/telandes/recaudo/internal/observability/tracing"
	"github.com/telandes/recaudo/internal/seed"
	"github.com/telandes/recaudo/internal/server"
	"github.com/telandes/recaudo/internal/settings"
	"github.com/telandes/recaudo/internal/subscriber"
	"github.com/telandes/recaudo/pkg/db"
)

// version is stamped at build time with -ldflags.
var version = "dev"

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		fx.Invoke(func(log *zap.Logger) {
			log.Info("starting recaudo", zap.String("version", version))
		}),
		clock.Module,
		tracing.Module,
		fx.Provide(func() (*metrics.HTTPMetrics, error) {
			return metrics.NewHTTPMetrics(metrics.Config{ServiceName: "recaudo"}, nil)
		}),
		fx.Provide(func() *snowflake.Node {
			node, err := snowflake.NewNode(1)
			if err != nil {
				panic(err)
			}
			return node
		}),
		db.Module,
		migration.Module,
		fx.Invoke(func(conn *gorm.DB) error {
			return seed.EnsureBillingSettings(conn)
		}),
		settings.Module,
		audit.Module,
		subscriber.Module,
		billing.Module,
		notification.Module,
		sweep.Module,
		server.Module,
	)
	app.Run()
}
