package reconciler

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/fisker/cloudlease-backend/internal/model"
	"github.com/fisker/cloudlease-backend/internal/notification"
	"github.com/fisker/cloudlease-backend/internal/provider"
	"github.com/fisker/cloudlease-backend/internal/repository"
	"github.com/fisker/cloudlease-backend/pkg/config"
	"github.com/fisker/cloudlease-backend/pkg/distributed"
	"github.com/fisker/cloudlease-backend/pkg/logger"
	"github.com/fisker/cloudlease-backend/pkg/metrics"
	"github.com/fisker/cloudlease-backend/pkg/redis"
)

// SweepProvider 到期回收需要的云服务商操作
type SweepProvider interface {
	CreateSnapshot(ctx context.Context, dropletID int64, name string) (int64, error)
	WaitForAction(ctx context.Context, actionID int64, timeout, interval time.Duration) (provider.ActionOutcome, error)
	DeleteDroplet(ctx context.Context, id int64) error
	DeleteDNSRecord(ctx context.Context, zone string, recordID int64) error
	DeleteCluster(ctx context.Context, id string) error
}

// ExpirySweeper 到期巡检服务
// 每个周期从存储重新推导到期集合（自身不跨周期持有状态），
// 窗口内的资源发警告，已过期的资源回收
type ExpirySweeper struct {
	instances  *repository.InstanceRepository
	clusters   *repository.K8sClusterRepository
	prov       SweepProvider
	dispatcher *notification.Dispatcher

	stopChan  chan struct{}
	isRunning bool

	sweepInterval        time.Duration
	warningWindow        time.Duration
	snapshotTimeout      time.Duration
	snapshotPollInterval time.Duration

	// sweeping 进程内防重入：上一轮未结束时跳过本轮
	sweeping atomic.Bool

	// now 可注入，测试中用假时钟
	now func() time.Time
}

// NewExpirySweeper 创建到期巡检服务
func NewExpirySweeper(
	instances *repository.InstanceRepository,
	clusters *repository.K8sClusterRepository,
	prov SweepProvider,
	dispatcher *notification.Dispatcher,
	cfg *config.LifecycleConfig,
) *ExpirySweeper {
	return &ExpirySweeper{
		instances:            instances,
		clusters:             clusters,
		prov:                 prov,
		dispatcher:           dispatcher,
		stopChan:             make(chan struct{}),
		sweepInterval:        time.Duration(cfg.SweepInterval) * time.Second,
		warningWindow:        time.Duration(cfg.WarningWindow) * time.Second,
		snapshotTimeout:      time.Duration(cfg.SnapshotTimeout) * time.Second,
		snapshotPollInterval: time.Duration(cfg.SnapshotPollInterval) * time.Second,
		now:                  time.Now,
	}
}

// Start 启动巡检
func (s *ExpirySweeper) Start(ctx context.Context) error {
	if s.isRunning {
		return fmt.Errorf("expiry sweeper is already running")
	}

	s.isRunning = true
	logger.Infof("[ExpirySweeper] Started, sweep interval: %v, warning window: %v", s.sweepInterval, s.warningWindow)

	go s.runPeriodicSweep(ctx)
	return nil
}

// Stop 停止巡检
func (s *ExpirySweeper) Stop() {
	if !s.isRunning {
		return
	}
	close(s.stopChan)
	s.isRunning = false
	logger.Infof("[ExpirySweeper] Stopped")
}

// runPeriodicSweep 定时循环
func (s *ExpirySweeper) runPeriodicSweep(ctx context.Context) {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	// 启动后先跑一轮
	s.Sweep(ctx)

	for {
		select {
		case <-ticker.C:
			s.Sweep(ctx)
		case <-s.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Sweep 执行一轮到期巡检
// 上一轮还在进行时跳过本轮（进程内标记+跨实例Redis锁），
// 防止慢周期导致的重叠执行
func (s *ExpirySweeper) Sweep(ctx context.Context) {
	if !s.sweeping.CompareAndSwap(false, true) {
		logger.Warnf("[ExpirySweeper] Previous sweep still running, skipping this tick")
		metrics.SweepRunsTotal.WithLabelValues("skipped").Inc()
		return
	}
	defer s.sweeping.Store(false)

	lock := distributed.NewRedisLock(redis.Client, "cloudlease:lifecycle:sweep", 10*time.Minute)
	acquired, err := lock.TryLock()
	if err != nil {
		logger.Errorf("[ExpirySweeper] Failed to acquire sweep lock: %v", err)
		metrics.SweepRunsTotal.WithLabelValues("lock_error").Inc()
		return
	}
	if !acquired {
		logger.Infof("[ExpirySweeper] Sweep lock held by another instance, skipping this tick")
		metrics.SweepRunsTotal.WithLabelValues("skipped").Inc()
		return
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warnf("[ExpirySweeper] Failed to release sweep lock: %v", err)
		}
	}()

	started := time.Now()
	logger.Infof("[ExpirySweeper] Starting expiry sweep...")
	s.performSweep(ctx)
	metrics.SweepDuration.Observe(time.Since(started).Seconds())
	metrics.SweepRunsTotal.WithLabelValues("completed").Inc()
	logger.Infof("[ExpirySweeper] Expiry sweep completed in %v", time.Since(started))
}

// performSweep 到期集合快照在巡检开始时取一次，之后创建的资源留给下一轮
func (s *ExpirySweeper) performSweep(ctx context.Context) {
	now := s.now()

	instances, err := s.instances.FindDueForExpiry(now, s.warningWindow)
	if err != nil {
		logger.Errorf("[ExpirySweeper] Failed to query due instances: %v", err)
	} else {
		logger.Infof("[ExpirySweeper] Found %d instances in expiry window", len(instances))
		for i := range instances {
			// 逐项隔离：一台主机失败不中断其余主机的处理
			s.reconcileInstance(ctx, &instances[i], now)
		}
	}

	clusters, err := s.clusters.FindDueForExpiry(now, s.warningWindow)
	if err != nil {
		logger.Errorf("[ExpirySweeper] Failed to query due clusters: %v", err)
		return
	}
	logger.Infof("[ExpirySweeper] Found %d clusters in expiry window", len(clusters))
	for i := range clusters {
		s.reconcileCluster(ctx, &clusters[i], now)
	}

	s.refreshGauges()
}

// refreshGauges 巡检结束后刷新纳管资源数量指标
func (s *ExpirySweeper) refreshGauges() {
	if count, err := s.instances.Count(); err == nil {
		metrics.ManagedInstances.Set(float64(count))
	}
	for _, status := range []model.ClusterStatus{
		model.ClusterStatusProvisioning,
		model.ClusterStatusRunning,
		model.ClusterStatusErrored,
	} {
		if count, err := s.clusters.CountByStatus(status); err == nil {
			metrics.ManagedClusters.WithLabelValues(string(status)).Set(float64(count))
		}
	}
}

// reconcileInstance 对单台主机应用到期策略
func (s *ExpirySweeper) reconcileInstance(ctx context.Context, inst *model.Instance, now time.Time) {
	exp, err := model.ParseExpiration(inst.ExpirationDate)
	if err != nil {
		// 数据问题只跳过该项，下一轮重试
		logger.Errorf("[ExpirySweeper] Droplet %d (%s) has unparsable expiration %q, skipping: %v",
			inst.DropletID, inst.Name, inst.ExpirationDate, err)
		return
	}

	left := exp.Sub(now)
	switch {
	case left > 0 && left <= s.warningWindow:
		// 警告每轮重发，直到续期或过期（不跟踪"已警告"状态）
		logger.Infof("[ExpirySweeper] Droplet %s expires in %v, warning creator %d", inst.Name, left, inst.CreatorID)
		s.dispatcher.InstanceExpiryWarning(inst, left)

	case left <= 0:
		s.reclaimInstance(ctx, inst, now)
	}
}

// reclaimInstance 回收一台已过期主机：尽力快照 → DNS解绑 → 删除
func (s *ExpirySweeper) reclaimInstance(ctx context.Context, inst *model.Instance, now time.Time) {
	logger.Infof("[ExpirySweeper] Droplet %s (%d) expired, reclaiming", inst.Name, inst.DropletID)

	// 快照是尽力而为：任何失败都不能阻塞清理
	snapshotName := provider.ExpiredSnapshotName(inst.Name, now)
	if actionID, err := s.prov.CreateSnapshot(ctx, inst.DropletID, snapshotName); err != nil {
		logger.Warnf("[ExpirySweeper] Snapshot of droplet %d failed, proceeding to delete: %v", inst.DropletID, err)
	} else {
		outcome, err := s.prov.WaitForAction(ctx, actionID, s.snapshotTimeout, s.snapshotPollInterval)
		switch {
		case err != nil:
			logger.Warnf("[ExpirySweeper] Snapshot wait for droplet %d failed, proceeding to delete: %v", inst.DropletID, err)
		case outcome == provider.ActionCompleted:
			logger.Infof("[ExpirySweeper] Snapshot %s created for droplet %d", snapshotName, inst.DropletID)
			s.dispatcher.SnapshotCreated(inst, snapshotName)
		default:
			logger.Warnf("[ExpirySweeper] Snapshot of droplet %d ended as %s, proceeding to delete", inst.DropletID, outcome)
		}
	}

	// DNS解绑失败同样不阻塞删除
	if inst.HasDNS() {
		if err := s.prov.DeleteDNSRecord(ctx, *inst.DNSZone, *inst.DNSRecordID); err != nil {
			logger.Warnf("[ExpirySweeper] DNS detach for droplet %d failed, proceeding: %v", inst.DropletID, err)
		}
	}

	if err := s.prov.DeleteDroplet(ctx, inst.DropletID); err != nil {
		// 行保留，下一轮重试
		logger.Errorf("[ExpirySweeper] Failed to delete droplet %d, will retry next sweep: %v", inst.DropletID, err)
		return
	}

	if _, err := s.instances.Delete(inst.DropletID); err != nil {
		logger.Errorf("[ExpirySweeper] Failed to remove droplet %d row: %v", inst.DropletID, err)
		return
	}

	metrics.InstancesReclaimed.Inc()
	s.dispatcher.InstanceAutoDeleted(inst)
}

// reconcileCluster 对单个集群应用到期策略（集群不支持快照，直接删除）
func (s *ExpirySweeper) reconcileCluster(ctx context.Context, cluster *model.K8sCluster, now time.Time) {
	exp, err := model.ParseExpiration(cluster.ExpirationDate)
	if err != nil {
		logger.Errorf("[ExpirySweeper] Cluster %s (%s) has unparsable expiration %q, skipping: %v",
			cluster.ID, cluster.Name, cluster.ExpirationDate, err)
		return
	}

	left := exp.Sub(now)
	switch {
	case left > 0 && left <= s.warningWindow:
		logger.Infof("[ExpirySweeper] Cluster %s expires in %v, warning creator %d", cluster.Name, left, cluster.CreatorID)
		s.dispatcher.ClusterExpiryWarning(cluster, left)

	case left <= 0:
		logger.Infof("[ExpirySweeper] Cluster %s (%s) expired, reclaiming", cluster.Name, cluster.ID)
		if err := s.prov.DeleteCluster(ctx, cluster.ID); err != nil {
			logger.Errorf("[ExpirySweeper] Failed to delete cluster %s, will retry next sweep: %v", cluster.ID, err)
			return
		}
		if _, err := s.clusters.Delete(cluster.ID); err != nil {
			logger.Errorf("[ExpirySweeper] Failed to remove cluster %s row: %v", cluster.ID, err)
			return
		}
		s.dispatcher.ClusterAutoDeleted(cluster)
	}
}
