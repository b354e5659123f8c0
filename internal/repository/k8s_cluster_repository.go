package repository

import (
	"errors"
	"time"

	"github.com/fisker/cloudlease-backend/internal/model"
	"gorm.io/gorm"
)

type K8sClusterRepository struct {
	db *gorm.DB
}

func NewK8sClusterRepository(db *gorm.DB) *K8sClusterRepository {
	return &K8sClusterRepository{db: db}
}

// Create 创建集群记录
func (r *K8sClusterRepository) Create(cluster *model.K8sCluster) error {
	return r.db.Create(cluster).Error
}

// FindByID 根据ID查找集群
func (r *K8sClusterRepository) FindByID(id string) (*model.K8sCluster, error) {
	var cluster model.K8sCluster
	err := r.db.Where("id = ?", id).First(&cluster).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cluster, nil
}

// FindByNameAndCreator 幂等性检查：同一创建者下是否已有同名集群
func (r *K8sClusterRepository) FindByNameAndCreator(name string, creatorID int64) (*model.K8sCluster, error) {
	var cluster model.K8sCluster
	err := r.db.Where("name = ? AND creator_id = ?", name, creatorID).First(&cluster).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cluster, nil
}

// FindByCreator 查找创建者的所有集群
func (r *K8sClusterRepository) FindByCreator(creatorID int64) ([]model.K8sCluster, error) {
	var clusters []model.K8sCluster
	err := r.db.Where("creator_id = ?", creatorID).Order("created_at DESC").Find(&clusters).Error
	return clusters, err
}

// FindByStatus 根据状态查找集群（快速轮询用 provisioning）
func (r *K8sClusterRepository) FindByStatus(status model.ClusterStatus) ([]model.K8sCluster, error) {
	var clusters []model.K8sCluster
	err := r.db.Where("status = ?", status).Order("created_at ASC").Find(&clusters).Error
	return clusters, err
}

// FindDueForExpiry 查找到期窗口内的集群（含已过期）
// 与实例相同：混用的历史格式在内存中归一化，无法解析的行也返回
func (r *K8sClusterRepository) FindDueForExpiry(now time.Time, window time.Duration) ([]model.K8sCluster, error) {
	var clusters []model.K8sCluster
	if err := r.db.Find(&clusters).Error; err != nil {
		return nil, err
	}

	cutoff := now.Add(window)
	due := make([]model.K8sCluster, 0)
	for _, cluster := range clusters {
		exp, err := model.ParseExpiration(cluster.ExpirationDate)
		if err != nil {
			due = append(due, cluster)
			continue
		}
		if !exp.After(cutoff) {
			due = append(due, cluster)
		}
	}
	return due, nil
}

// ExtendExpiration 将到期时间向后推days天
func (r *K8sClusterRepository) ExtendExpiration(id string, days int) (time.Time, bool, error) {
	cluster, err := r.FindByID(id)
	if err != nil {
		return time.Time{}, false, err
	}
	if cluster == nil {
		return time.Time{}, false, nil
	}

	exp, err := model.ParseExpiration(cluster.ExpirationDate)
	if err != nil {
		return time.Time{}, false, err
	}

	newExp := exp.AddDate(0, 0, days)
	result := r.db.Model(&model.K8sCluster{}).
		Where("id = ?", id).
		Update("expiration_date", model.FormatExpiration(newExp))
	if result.Error != nil {
		return time.Time{}, false, result.Error
	}
	if result.RowsAffected == 0 {
		return time.Time{}, false, nil
	}
	return newExp, true, nil
}

// UpdateStatus 更新集群状态和endpoint，返回记录是否存在
func (r *K8sClusterRepository) UpdateStatus(id string, status model.ClusterStatus, endpoint string) (bool, error) {
	updates := map[string]interface{}{"status": status}
	if endpoint != "" {
		updates["endpoint"] = endpoint
	}
	result := r.db.Model(&model.K8sCluster{}).Where("id = ?", id).Updates(updates)
	return result.RowsAffected > 0, result.Error
}

// Delete 删除集群记录，返回记录此前是否存在
func (r *K8sClusterRepository) Delete(id string) (bool, error) {
	result := r.db.Delete(&model.K8sCluster{}, "id = ?", id)
	return result.RowsAffected > 0, result.Error
}

// CountByStatus 按状态统计集群数
func (r *K8sClusterRepository) CountByStatus(status model.ClusterStatus) (int64, error) {
	var count int64
	err := r.db.Model(&model.K8sCluster{}).Where("status = ?", status).Count(&count).Error
	return count, err
}
