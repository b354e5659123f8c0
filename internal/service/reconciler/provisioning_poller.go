package reconciler

import (
	"context"
	"fmt"
	"time"

	"github.com/fisker/cloudlease-backend/internal/model"
	"github.com/fisker/cloudlease-backend/internal/notification"
	"github.com/fisker/cloudlease-backend/internal/provider"
	"github.com/fisker/cloudlease-backend/internal/repository"
	"github.com/fisker/cloudlease-backend/pkg/config"
	"github.com/fisker/cloudlease-backend/pkg/logger"
)

// PollProvider 就绪轮询需要的云服务商操作
type PollProvider interface {
	GetCluster(ctx context.Context, id string) (*provider.Cluster, error)
	GetKubeconfig(ctx context.Context, id string) ([]byte, error)
}

// ProvisioningPoller 集群创建状态的快速轮询
// 每个短周期检查所有 provisioning 状态的集群；就绪后落库并通知，
// 失败转入 errored 终态（不再轮询、不自动重试）
type ProvisioningPoller struct {
	clusters   *repository.K8sClusterRepository
	prov       PollProvider
	dispatcher *notification.Dispatcher

	stopChan     chan struct{}
	isRunning    bool
	pollInterval time.Duration
}

// NewProvisioningPoller 创建快速轮询服务
func NewProvisioningPoller(
	clusters *repository.K8sClusterRepository,
	prov PollProvider,
	dispatcher *notification.Dispatcher,
	cfg *config.LifecycleConfig,
) *ProvisioningPoller {
	return &ProvisioningPoller{
		clusters:     clusters,
		prov:         prov,
		dispatcher:   dispatcher,
		stopChan:     make(chan struct{}),
		pollInterval: time.Duration(cfg.PollInterval) * time.Second,
	}
}

// Start 启动轮询
func (p *ProvisioningPoller) Start(ctx context.Context) error {
	if p.isRunning {
		return fmt.Errorf("provisioning poller is already running")
	}

	p.isRunning = true
	logger.Infof("[ProvisioningPoller] Started, poll interval: %v", p.pollInterval)

	go p.runPeriodicPoll(ctx)
	return nil
}

// Stop 停止轮询
func (p *ProvisioningPoller) Stop() {
	if !p.isRunning {
		return
	}
	close(p.stopChan)
	p.isRunning = false
	logger.Infof("[ProvisioningPoller] Stopped")
}

func (p *ProvisioningPoller) runPeriodicPoll(ctx context.Context) {
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.Poll(ctx)
		case <-p.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Poll 执行一轮就绪检查
func (p *ProvisioningPoller) Poll(ctx context.Context) {
	provisioning, err := p.clusters.FindByStatus(model.ClusterStatusProvisioning)
	if err != nil {
		logger.Errorf("[ProvisioningPoller] Failed to query provisioning clusters: %v", err)
		return
	}
	if len(provisioning) == 0 {
		return
	}

	logger.Debugf("[ProvisioningPoller] Checking %d provisioning clusters", len(provisioning))
	for i := range provisioning {
		// 逐项隔离：查询失败只记录并跳到下一个，
		// 不把"没查到"当成"创建失败"
		p.pollCluster(ctx, &provisioning[i])
	}
}

// pollCluster 检查单个集群的实时状态
func (p *ProvisioningPoller) pollCluster(ctx context.Context, cluster *model.K8sCluster) {
	live, err := p.prov.GetCluster(ctx, cluster.ID)
	if err != nil {
		logger.Warnf("[ProvisioningPoller] Failed to query cluster %s, will retry next poll: %v", cluster.ID, err)
		return
	}

	switch live.State {
	case provider.ClusterStateRunning, provider.ClusterStateDegraded:
		// degraded落库折叠为running，只在用户消息中提示
		p.markReady(ctx, cluster, live, live.State == provider.ClusterStateDegraded)

	case provider.ClusterStateError:
		if !cluster.Status.CanTransition(model.ClusterStatusErrored) {
			logger.Warnf("[ProvisioningPoller] Cluster %s: invalid transition %s -> errored, skipping", cluster.ID, cluster.Status)
			return
		}
		found, err := p.clusters.UpdateStatus(cluster.ID, model.ClusterStatusErrored, "")
		if err != nil {
			logger.Errorf("[ProvisioningPoller] Failed to mark cluster %s errored: %v", cluster.ID, err)
			return
		}
		if !found {
			// 已被其他路径删除
			return
		}
		cluster.Status = model.ClusterStatusErrored
		logger.Errorf("[ProvisioningPoller] Cluster %s (%s) provisioning failed (terminal)", cluster.Name, cluster.ID)
		p.dispatcher.ClusterErrored(cluster)

	default:
		// 仍在创建中，留给下一轮
	}
}

// markReady 集群就绪：落库running+endpoint，直发创建者并送凭据文件，再广播
func (p *ProvisioningPoller) markReady(ctx context.Context, cluster *model.K8sCluster, live *provider.Cluster, degraded bool) {
	if !cluster.Status.CanTransition(model.ClusterStatusRunning) {
		logger.Warnf("[ProvisioningPoller] Cluster %s: invalid transition %s -> running, skipping", cluster.ID, cluster.Status)
		return
	}

	found, err := p.clusters.UpdateStatus(cluster.ID, model.ClusterStatusRunning, live.Endpoint)
	if err != nil {
		logger.Errorf("[ProvisioningPoller] Failed to mark cluster %s running: %v", cluster.ID, err)
		return
	}
	if !found {
		return
	}

	cluster.Status = model.ClusterStatusRunning
	cluster.Endpoint = live.Endpoint
	logger.Infof("[ProvisioningPoller] Cluster %s (%s) is ready, endpoint: %s", cluster.Name, cluster.ID, live.Endpoint)

	p.dispatcher.ClusterReady(cluster, degraded)

	// 凭据投递失败不影响就绪迁移
	kubeconfig, err := p.prov.GetKubeconfig(ctx, cluster.ID)
	if err != nil {
		logger.Errorf("[ProvisioningPoller] Failed to fetch kubeconfig for cluster %s: %v", cluster.ID, err)
		return
	}
	p.dispatcher.SendKubeconfig(cluster, kubeconfig)
}
