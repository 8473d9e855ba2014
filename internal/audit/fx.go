package audit

import (
	"go.uber.org/fx"

	"github.com/telandes/recaudo/internal/audit/repository"
	"github.com/telandes/recaudo/internal/audit/service"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
