package billing

import (
	billingdomain "github.com/smallbiznis/costline/internal/billing/domain"
	"github.com/smallbiznis/costline/internal/billing/repository"
	"github.com/smallbiznis/costline/internal/billing/service"
	commitmentdomain "github.com/smallbiznis/costline/internal/commitment/domain"
	costcodedomain "github.com/smallbiznis/costline/internal/costcode/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("billing.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(func(repo billingdomain.Repository) billingdomain.BillingHistory { return repo }),
	fx.Provide(func(svc commitmentdomain.Service) billingdomain.CommitmentCatalog { return svc }),
	fx.Provide(func(svc costcodedomain.Service) billingdomain.CostCatalog { return svc }),
	fx.Provide(service.NewAggregator),
	fx.Provide(service.NewResolver),
	fx.Provide(service.NewService),
)
