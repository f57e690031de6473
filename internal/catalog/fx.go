package catalog

import (
	"github.com/medisync/medledger/internal/catalog/repository"
	"github.com/medisync/medledger/internal/catalog/service"
	"go.uber.org/fx"
)

var Module = fx.Module("catalog.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
