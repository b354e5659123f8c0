package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fisker/cloudlease-backend/internal/model"
	"github.com/fisker/cloudlease-backend/internal/notification"
	"github.com/fisker/cloudlease-backend/internal/provider"
	"github.com/fisker/cloudlease-backend/internal/repository"
	"github.com/fisker/cloudlease-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

// ErrClusterExists 同一创建者下集群名重复
var ErrClusterExists = errors.New("cluster name already in use")

// ClusterProvider 集群服务依赖的云API子集
type ClusterProvider interface {
	CreateCluster(ctx context.Context, params provider.CreateClusterParams) (*provider.Cluster, error)
	DeleteCluster(ctx context.Context, id string) error
	GetKubeconfig(ctx context.Context, id string) ([]byte, error)
	GetKubernetesOptions(ctx context.Context) (*provider.KubernetesOptions, error)
	SizePriceHourly(ctx context.Context, slug string) (*decimal.Decimal, error)
}

// ClusterService 托管K8s集群租约的前端边界操作
type ClusterService struct {
	repo     *repository.K8sClusterRepository
	provider ClusterProvider
	notifier *notification.Dispatcher
	now      func() time.Time
}

func NewClusterService(repo *repository.K8sClusterRepository, p ClusterProvider, notifier *notification.Dispatcher) *ClusterService {
	return &ClusterService{
		repo:     repo,
		provider: p,
		notifier: notifier,
		now:      time.Now,
	}
}

// ProvisionClusterParams 创建集群的请求参数
type ProvisionClusterParams struct {
	Name            string
	Region          string
	Version         string
	NodeSize        string
	NodeCount       int
	HA              bool
	Days            int
	CreatorID       int64
	CreatorUsername string
}

// Provision 创建集群：先按名称+创建者查重，命中时不发起任何云端调用
func (s *ClusterService) Provision(ctx context.Context, params ProvisionClusterParams) (*model.K8sCluster, error) {
	existing, err := s.repo.FindByNameAndCreator(params.Name, params.CreatorID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s (existing cluster id %s)", ErrClusterExists, params.Name, existing.ID)
	}

	created, err := s.provider.CreateCluster(ctx, provider.CreateClusterParams{
		Name:      params.Name,
		Region:    params.Region,
		Version:   params.Version,
		NodeSize:  params.NodeSize,
		NodeCount: params.NodeCount,
		HA:        params.HA,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create cluster: %w", err)
	}

	var price *decimal.Decimal
	if nodePrice, priceErr := s.provider.SizePriceHourly(ctx, params.NodeSize); priceErr != nil {
		logger.Warnf("[ClusterService] Failed to resolve hourly price for node size %s: %v", params.NodeSize, priceErr)
	} else if nodePrice != nil {
		total := nodePrice.Mul(decimal.NewFromInt(int64(params.NodeCount)))
		price = &total
	}

	cluster := &model.K8sCluster{
		ID:             created.ID,
		Name:           created.Name,
		Region:         params.Region,
		Version:        params.Version,
		NodeSize:       params.NodeSize,
		NodeCount:      params.NodeCount,
		Status:         model.ClusterStatusProvisioning,
		CreatorID:      params.CreatorID,
		ExpirationDate: model.FormatExpiration(s.now().AddDate(0, 0, params.Days)),
		PriceHourly:    price,
		HA:             params.HA,
	}
	if params.CreatorUsername != "" {
		cluster.CreatorUsername = &params.CreatorUsername
	}
	if err := s.repo.Create(cluster); err != nil {
		return nil, fmt.Errorf("cluster %s created but failed to persist: %w", created.ID, err)
	}

	logger.Infof("[ClusterService] ✅ Cluster %s (id=%s) provisioning for creator %d, expires %s",
		cluster.Name, cluster.ID, cluster.CreatorID, cluster.ExpirationDate)
	s.notifier.ClusterCreated(cluster)
	return cluster, nil
}

// Extend 续期指定天数，返回新到期时间；记录不存在或不属于该创建者时 found 为 false
func (s *ClusterService) Extend(id string, days int, creatorID int64) (time.Time, bool, error) {
	cluster, err := s.repo.FindByID(id)
	if err != nil {
		return time.Time{}, false, err
	}
	if cluster == nil {
		return time.Time{}, false, nil
	}
	if cluster.CreatorID != creatorID {
		logger.Warnf("[ClusterService] ⚠️ Creator %d attempted to extend cluster %s owned by creator %d",
			creatorID, id, cluster.CreatorID)
		return time.Time{}, false, nil
	}

	newExp, found, err := s.repo.ExtendExpiration(id, days)
	if err != nil || !found {
		return newExp, found, err
	}
	if cluster, err := s.repo.FindByID(id); err == nil && cluster != nil {
		s.notifier.ClusterExtended(cluster, newExp)
	}
	logger.Infof("[ClusterService] Cluster %s extended by %d days, new expiration %s",
		id, days, model.FormatExpiration(newExp))
	return newExp, true, nil
}

// Delete 删除集群：云端删除容忍404，随后移除记录
// 记录不属于该创建者时按不存在处理
func (s *ClusterService) Delete(ctx context.Context, id string, creatorID int64) (bool, error) {
	cluster, err := s.repo.FindByID(id)
	if err != nil {
		return false, err
	}
	if cluster == nil {
		return false, nil
	}
	if cluster.CreatorID != creatorID {
		logger.Warnf("[ClusterService] ⚠️ Creator %d attempted to delete cluster %s owned by creator %d",
			creatorID, id, cluster.CreatorID)
		return false, nil
	}

	if err := s.provider.DeleteCluster(ctx, id); err != nil && !provider.IsNotFound(err) {
		return true, fmt.Errorf("failed to delete cluster %s: %w", id, err)
	}

	if _, err := s.repo.Delete(id); err != nil {
		return true, err
	}

	logger.Infof("[ClusterService] Cluster %s (id=%s) deleted by creator request", cluster.Name, id)
	s.notifier.ClusterDeleted(cluster)
	return true, nil
}

// List 查询指定创建者的全部集群
func (s *ClusterService) List(creatorID int64) ([]model.K8sCluster, error) {
	return s.repo.FindByCreator(creatorID)
}

// Options 可选的K8s版本和节点规格（缓存1小时）
func (s *ClusterService) Options(ctx context.Context) (*provider.KubernetesOptions, error) {
	return s.provider.GetKubernetesOptions(ctx)
}

// Kubeconfig 获取集群凭据，返回建议的文件名
// 凭据只发给集群创建者，其他创建者按不存在处理
func (s *ClusterService) Kubeconfig(ctx context.Context, id string, creatorID int64) (string, []byte, bool, error) {
	cluster, err := s.repo.FindByID(id)
	if err != nil {
		return "", nil, false, err
	}
	if cluster == nil {
		return "", nil, false, nil
	}
	if cluster.CreatorID != creatorID {
		logger.Warnf("[ClusterService] ⚠️ Creator %d attempted to fetch kubeconfig of cluster %s owned by creator %d",
			creatorID, id, cluster.CreatorID)
		return "", nil, false, nil
	}
	if cluster.Status != model.ClusterStatusRunning {
		return "", nil, true, fmt.Errorf("cluster %s is %s, kubeconfig not available yet", id, cluster.Status)
	}
	data, err := s.provider.GetKubeconfig(ctx, id)
	if err != nil {
		return "", nil, true, err
	}
	return fmt.Sprintf("%s-kubeconfig.yaml", cluster.Name), data, true, nil
}
