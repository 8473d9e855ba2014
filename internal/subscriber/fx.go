package subscriber

import (
	"go.uber.org/fx"

	"github.com/telandes/recaudo/internal/subscriber/repository"
	"github.com/telandes/recaudo/internal/subscriber/service"
)

var Module = fx.Module("subscriber",
	fx.Provide(repository.New),
	fx.Provide(service.NewService),
)
