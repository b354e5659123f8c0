package app

import (
	"strconv"
	"time"

	"github.com/fisker/cloudlease-backend/internal/notification"
	"github.com/fisker/cloudlease-backend/internal/provider"
	"github.com/fisker/cloudlease-backend/internal/service"
	"github.com/fisker/cloudlease-backend/internal/service/reconciler"
	"github.com/fisker/cloudlease-backend/pkg/config"
	"github.com/fisker/cloudlease-backend/pkg/logger"
	"github.com/fisker/cloudlease-backend/pkg/sshclient"
)

// Services 前端边界服务
type Services struct {
	Instance *service.InstanceService
	Cluster  *service.ClusterService
	Mail     *service.MailService

	Provider *provider.Client
	Notifier *notification.Dispatcher
}

// BackgroundServices 后台回收服务
type BackgroundServices struct {
	ExpirySweeper      *reconciler.ExpirySweeper
	ProvisioningPoller *reconciler.ProvisioningPoller
}

// InitializeServices 创建服务实例
func InitializeServices(repos *Repositories, cfg *config.Config) *Services {
	providerClient := provider.NewClient(&cfg.Provider)

	broadcastChatID := int64(0)
	if cfg.Telegram.BroadcastChatID != "" {
		id, err := strconv.ParseInt(cfg.Telegram.BroadcastChatID, 10, 64)
		if err != nil {
			logger.Warnf("[App] Invalid broadcast_chat_id %q, broadcasts disabled: %v", cfg.Telegram.BroadcastChatID, err)
		} else {
			broadcastChatID = id
		}
	}
	var messenger notification.Messenger
	if cfg.Telegram.BotToken != "" {
		messenger = notification.NewTelegramMessenger(cfg.Telegram.BotToken)
	} else {
		logger.Warnf("[App] Telegram bot token not configured, notifications disabled")
	}
	notifier := notification.NewDispatcher(messenger, broadcastChatID)

	if cfg.Mail.SSHHost != "" {
		// 邮件宿主机连通性检查放后台，不阻塞启动
		go func(mailCfg config.MailConfig) {
			err := sshclient.TestConnection(sshclient.SSHConfig{
				Host:     mailCfg.SSHHost,
				Port:     mailCfg.SSHPort,
				Username: mailCfg.SSHUser,
				KeyPath:  mailCfg.SSHKeyPath,
				Timeout:  10 * time.Second,
			})
			if err != nil {
				logger.Warnf("[App] ⚠️ Mail host %s unreachable, mailbox operations will fail: %v", mailCfg.SSHHost, err)
				return
			}
			logger.Infof("[App] Mail host %s connection verified", mailCfg.SSHHost)
		}(cfg.Mail)
	}

	return &Services{
		Instance: service.NewInstanceService(repos.Instance, repos.SSHKeyUsage, providerClient, notifier),
		Cluster:  service.NewClusterService(repos.Cluster, providerClient, notifier),
		Mail:     service.NewMailService(&cfg.Mail),
		Provider: providerClient,
		Notifier: notifier,
	}
}

// InitializeBackgroundServices 创建生命周期回收服务
func InitializeBackgroundServices(repos *Repositories, services *Services, cfg *config.Config) *BackgroundServices {
	return &BackgroundServices{
		ExpirySweeper: reconciler.NewExpirySweeper(
			repos.Instance,
			repos.Cluster,
			services.Provider,
			services.Notifier,
			&cfg.Lifecycle,
		),
		ProvisioningPoller: reconciler.NewProvisioningPoller(
			repos.Cluster,
			services.Provider,
			services.Notifier,
			&cfg.Lifecycle,
		),
	}
}
