package observability

import (
	obsmetrics "github.com/medisync/medledger/internal/observability/metrics"
	"go.uber.org/fx"
)

var Module = fx.Module("observability",
	fx.Provide(LoadConfig),
	fx.Provide(func(cfg Config) (*obsmetrics.Metrics, error) {
		return obsmetrics.New(obsmetrics.Config{ServiceName: cfg.ServiceName})
	}),
)
