package statement

import (
	"github.com/medisync/medledger/internal/statement/repository"
	"github.com/medisync/medledger/internal/statement/service"
	"go.uber.org/fx"
)

var Module = fx.Module("statement.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
