// Package sweep runs the periodic delinquency notification pass.
package sweep

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/telandes/recaudo/internal/notification/domain"
	"github.com/telandes/recaudo/internal/observability/metrics"
)

type Params struct {
	fx.In

	Log           *zap.Logger
	Notifications domain.Service
	Config        Config `optional:"true"`
}

type Worker struct {
	log           *zap.Logger
	notifications domain.Service
	cfg           Config
}

func NewWorker(p Params) *Worker {
	return &Worker{
		log:           p.Log.Named("notification.sweep"),
		notifications: p.Notifications,
		cfg:           p.Config.withDefaults(),
	}
}

func (w *Worker) RunForever(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		if err := w.RunOnce(ctx); err != nil {
			w.log.Warn("delinquency sweep run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (w *Worker) RunOnce(ctx context.Context) error {
	runCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	result, err := w.notifications.RunDelinquencySweep(runCtx)
	if err != nil {
		return err
	}
	metrics.Sweep().RecordRun(result.CreatedUpcoming, result.CreatedOverdue, result.CreatedDisconnection)

	if summary, err := w.notifications.DispatchPending(runCtx); err != nil {
		w.log.Warn("pending dispatch pass failed", zap.Error(err))
	} else {
		metrics.Sweep().RecordDispatch(summary.Sent, summary.Failed)
	}

	w.log.Info("sweep tick",
		zap.Int("created_upcoming", result.CreatedUpcoming),
		zap.Int("created_overdue", result.CreatedOverdue),
		zap.Int("created_disconnection", result.CreatedDisconnection),
	)
	return nil
}
