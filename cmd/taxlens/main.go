package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/taxlens/taxlens/internal/config"
	"github.com/taxlens/taxlens/internal/invoice"
	"github.com/taxlens/taxlens/internal/logger"
	"github.com/taxlens/taxlens/internal/metrics"
	"github.com/taxlens/taxlens/internal/migration"
	"github.com/taxlens/taxlens/internal/reconcile"
	"github.com/taxlens/taxlens/internal/risk"
	"github.com/taxlens/taxlens/internal/server"
	"github.com/taxlens/taxlens/internal/taxpayer"
	"github.com/taxlens/taxlens/internal/trade"
	"github.com/taxlens/taxlens/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		fx.Provide(config.Load),
		fx.Provide(config.NewScoringConfigHolder),
		fx.Provide(RegisterSnowflake),
		logger.Module,
		metrics.Module,
		db.Module,
		migration.Module,

		// Functional domains
		taxpayer.Module,
		invoice.Module,
		trade.Module,
		reconcile.Module,
		risk.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
