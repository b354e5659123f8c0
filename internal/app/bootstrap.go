package app

import (
	"log"
	"os"

	"github.com/fisker/cloudlease-backend/pkg/config"
	"github.com/fisker/cloudlease-backend/pkg/database"
	"github.com/fisker/cloudlease-backend/pkg/logger"
	pkgredis "github.com/fisker/cloudlease-backend/pkg/redis"
)

// Bootstrap 初始化基础设施（logger, database, redis）
func Bootstrap(cfgPath string) (*config.Config, error) {
	// 支持通过环境变量指定配置文件路径
	if cfgPath == "" {
		cfgPath = os.Getenv("CLOUDLEASE_CONFIG")
		if cfgPath == "" {
			cfgPath = "config/config.yaml"
		}
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	// Initialize logger
	if err := logger.Init(&cfg.Logging); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	// Initialize database
	if err := database.Init(&cfg.Database); err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}

	// Initialize Redis (optional, for the cross-instance sweep lock)
	if err := pkgredis.Init(&cfg.Redis); err != nil {
		logger.Warnf("⚠️  Redis initialization failed: %v", err)
		logger.Info("   → Sweep overlap protection falls back to in-process mutex (single-server deployment)")
	} else if cfg.Redis.Enabled {
		logger.Infof("✅ Redis initialized successfully - cross-instance sweep lock enabled")
	} else {
		logger.Info("ℹ️  Redis is disabled in config - using in-process sweep mutex")
	}

	return cfg, nil
}
