package billing

import (
	"go.uber.org/fx"

	"github.com/telandes/recaudo/internal/billing/service"
)

var Module = fx.Module("billing",
	fx.Provide(service.NewService),
)
