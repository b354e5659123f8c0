package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fisker/cloudlease-backend/internal/api/router"
	"github.com/fisker/cloudlease-backend/pkg/config"
	"github.com/fisker/cloudlease-backend/pkg/database"
	"github.com/fisker/cloudlease-backend/pkg/logger"
	pkgredis "github.com/fisker/cloudlease-backend/pkg/redis"
	"github.com/gin-gonic/gin"
)

// StartServer 启动 HTTP 服务器和后台回收服务，阻塞直到收到退出信号
func StartServer(a *App) {
	cfg := a.Config
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}

	r := router.Setup(
		a.Handlers.Instance,
		a.Handlers.Cluster,
		a.Handlers.Mail,
		cfg.Auth.JWTSecret,
	)

	// Start lifecycle reconciler (延迟启动，确保数据库连接完全就绪)
	ctx := context.Background()
	go func() {
		time.Sleep(3 * time.Second)
		if err := a.BackgroundServices.ExpirySweeper.Start(ctx); err != nil {
			logger.Warnf("Failed to start expiry sweeper: %v", err)
		}
		if err := a.BackgroundServices.ProvisioningPoller.Start(ctx); err != nil {
			logger.Warnf("Failed to start provisioning poller: %v", err)
		}
	}()

	addr := fmt.Sprintf(":%d", cfg.Server.APIPort)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	printStartupBanner(cfg)

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Infof("\nShutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	logger.Infof("  → Stopping HTTP server...")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Infof("  Warning: HTTP server shutdown error: %v", err)
	} else {
		logger.Infof("  ✓ HTTP server stopped")
	}

	logger.Infof("  → Stopping lifecycle reconciler...")
	a.BackgroundServices.ExpirySweeper.Stop()
	a.BackgroundServices.ProvisioningPoller.Stop()
	logger.Infof("  ✓ Lifecycle reconciler stopped")

	logger.Infof("  → Closing database...")
	database.Close()
	logger.Infof("  ✓ Database closed")

	if cfg.Redis.Enabled {
		logger.Infof("  → Closing Redis...")
		pkgredis.Close()
		logger.Infof("  ✓ Redis closed")
	}

	logger.Infof("")
	logger.Infof("Shutdown complete")
}

// printStartupBanner 打印启动横幅
func printStartupBanner(cfg *config.Config) {
	logger.Infof("")
	logger.Infof("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	logger.Infof("CloudLease API Server - Leased Cloud Resource Control Plane")
	logger.Infof("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	logger.Infof("")
	logger.Infof("Features:")
	logger.Infof("   • Droplet & K8s cluster provisioning with lease expiration")
	logger.Infof("   • Expiry sweep every %ds (warnings within %ds of expiry)", cfg.Lifecycle.SweepInterval, cfg.Lifecycle.WarningWindow)
	logger.Infof("   • Provisioning fast-poll every %ds", cfg.Lifecycle.PollInterval)
	logger.Infof("   • Safety snapshots before reclaim")
	logger.Infof("   • Telegram lifecycle notifications")
	logger.Infof("   • Mailbox management over SSH")
	logger.Infof("")
	logger.Infof("Listening on :%d", cfg.Server.APIPort)
	logger.Infof("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	logger.Infof("")
}
