package commitment

import (
	"github.com/smallbiznis/costline/internal/commitment/repository"
	"github.com/smallbiznis/costline/internal/commitment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("commitment.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
