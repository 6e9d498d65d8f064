package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/jhnmartin/hey-sub000/internal/clock"
	"github.com/jhnmartin/hey-sub000/internal/config"
	"github.com/jhnmartin/hey-sub000/internal/migration"
	"github.com/jhnmartin/hey-sub000/internal/observability"
	"github.com/jhnmartin/hey-sub000/internal/payment/replay"
	"github.com/jhnmartin/hey-sub000/internal/seed"
	"github.com/jhnmartin/hey-sub000/internal/server"
	"github.com/jhnmartin/hey-sub000/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		seed.Module,

		// HTTP API and the services behind it
		server.Module,

		// Background workers
		replay.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeID)
}
