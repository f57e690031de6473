package pricing

import (
	"github.com/medisync/medledger/internal/pricing/repository"
	"github.com/medisync/medledger/internal/pricing/service"
	"go.uber.org/fx"
)

var Module = fx.Module("pricing.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
