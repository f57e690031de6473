package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/medisync/medledger/internal/clock"
	"github.com/medisync/medledger/internal/config"
	"github.com/medisync/medledger/internal/logger"
	"github.com/medisync/medledger/internal/migration"
	"github.com/medisync/medledger/internal/server"
	"github.com/medisync/medledger/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		migration.Module,
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
