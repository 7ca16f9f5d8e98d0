package migration

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/costline/internal/config"
	"github.com/smallbiznis/costline/internal/seed"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, node *snowflake.Node, log *zap.Logger) error {
		if !cfg.MigrateOnStart {
			return nil
		}

		if conn.Dialector.Name() == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			log.Info("applying schema from models", zap.String("dialect", conn.Dialector.Name()))
			if err := AutoMigrate(conn); err != nil {
				return err
			}
		}

		return seed.EnsureDefaultCostTypes(conn, node)
	}),
)
