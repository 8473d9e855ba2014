package sweep

import (
	"context"

	"go.uber.org/fx"

	"github.com/telandes/recaudo/internal/config"
)

var Module = fx.Module("notification.sweep",
	fx.Provide(newConfig),
	fx.Provide(NewWorker),
	fx.Invoke(runWorker),
)

func newConfig(cfg config.Config) Config {
	return Config{
		Interval: cfg.SweepInterval,
		Enabled:  cfg.SweepEnabled,
	}
}

func runWorker(lc fx.Lifecycle, worker *Worker) {
	if !worker.cfg.Enabled {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go worker.RunForever(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}
