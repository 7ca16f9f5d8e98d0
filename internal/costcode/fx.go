package costcode

import (
	"github.com/smallbiznis/costline/internal/costcode/repository"
	"github.com/smallbiznis/costline/internal/costcode/service"
	"go.uber.org/fx"
)

var Module = fx.Module("costcode.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
