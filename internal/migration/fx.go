package migration

import (
	"context"

	"github.com/jhnmartin/hey-sub000/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}

		if cfg.DBType == "sqlite" {
			if err := ApplySQLite(context.Background(), sqlDB); err != nil {
				return err
			}
		} else if err := RunMigrations(sqlDB); err != nil {
			return err
		}
		log.Named("migrations").Info("schema up to date", zap.String("db_type", cfg.DBType))
		return nil
	}),
)
