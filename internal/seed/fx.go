package seed

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/jhnmartin/hey-sub000/internal/clock"
	"github.com/jhnmartin/hey-sub000/internal/config"
	inventorydomain "github.com/jhnmartin/hey-sub000/internal/inventory/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Module seeds demo data when SEED_DEMO is set. It must follow the
// migrations module and needs the inventory service in the graph.
var Module = fx.Module("seed",
	fx.Invoke(func(cfg config.Config, db *gorm.DB, node *snowflake.Node, inventory inventorydomain.Service, clk clock.Clock, log *zap.Logger) error {
		if !cfg.SeedDemo {
			return nil
		}
		if cfg.IsProduction() {
			log.Named("seed").Warn("demo seed ignored in production")
			return nil
		}
		demo, err := EnsureDemo(context.Background(), db, node, inventory, clk.Now(), cfg.SeedDemoToken)
		if err != nil {
			return err
		}
		log.Named("seed").Info("demo data ready",
			zap.String("buyer_id", demo.BuyerID.String()),
			zap.String("event_id", demo.EventID.String()),
			zap.Int("tiers", len(demo.TierIDs)),
		)
		return nil
	}),
)
