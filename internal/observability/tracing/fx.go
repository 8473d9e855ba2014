package tracing

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/telandes/recaudo/internal/config"
)

var Module = fx.Module("tracing",
	fx.Invoke(setup),
)

func setup(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) error {
	_, err := NewProvider(lc, Config{
		Enabled:          cfg.TracingEnabled,
		ServiceName:      "recaudo",
		ServiceVersion:   cfg.ServiceVersion,
		Environment:      cfg.Environment,
		ExporterEndpoint: cfg.TracingEndpoint,
		ExporterProtocol: cfg.TracingProtocol,
		SamplingRatio:    cfg.TracingSamplingRatio,
	}, log)
	return err
}
