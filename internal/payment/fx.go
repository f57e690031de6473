package payment

import (
	"github.com/medisync/medledger/internal/payment/repository"
	"github.com/medisync/medledger/internal/payment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
