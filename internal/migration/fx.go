package migration

import (
	"github.com/medisync/medledger/internal/config"
	"github.com/medisync/medledger/internal/seed"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType != "postgres" {
			return nil
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}

		if err := RunMigrations(sqlDB); err != nil {
			return err
		}

		if cfg.SeedCatalog {
			return seed.EnsureDefaultCatalog(conn, cfg.DefaultCurrency)
		}
		return nil
	}),
)
