package notification

import (
	"go.uber.org/fx"

	"github.com/telandes/recaudo/internal/notification/dispatch"
	"github.com/telandes/recaudo/internal/notification/service"
)

var Module = fx.Module("notification",
	dispatch.Module,
	fx.Provide(service.NewService),
)
