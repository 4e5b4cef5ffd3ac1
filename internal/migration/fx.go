package migration

import (
	"github.com/taxlens/taxlens/internal/config"
	invoicedomain "github.com/taxlens/taxlens/internal/invoice/domain"
	taxpayerdomain "github.com/taxlens/taxlens/internal/taxpayer/domain"
	tradedomain "github.com/taxlens/taxlens/internal/trade/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			return RunMigrations(sqlDB)
		}

		// mysql and sqlite are dev or embedded targets; gorm derives the schema
		// from the models directly.
		return conn.AutoMigrate(
			&taxpayerdomain.Taxpayer{},
			&taxpayerdomain.ReturnHeader{},
			&invoicedomain.Invoice{},
			&tradedomain.TradeEdge{},
		)
	}),
)
