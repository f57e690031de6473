package audit

import (
	"github.com/medisync/medledger/internal/audit/repository"
	"github.com/medisync/medledger/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
