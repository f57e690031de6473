package charge

import (
	"github.com/medisync/medledger/internal/charge/repository"
	"github.com/medisync/medledger/internal/charge/service"
	"go.uber.org/fx"
)

var Module = fx.Module("charge.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
