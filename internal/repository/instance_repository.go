package repository

import (
	"errors"
	"time"

	"github.com/fisker/cloudlease-backend/internal/model"
	"gorm.io/gorm"
)

type InstanceRepository struct {
	db *gorm.DB
}

func NewInstanceRepository(db *gorm.DB) *InstanceRepository {
	return &InstanceRepository{db: db}
}

// Create 创建实例记录
func (r *InstanceRepository) Create(instance *model.Instance) error {
	return r.db.Create(instance).Error
}

// FindByID 根据droplet ID查找实例
func (r *InstanceRepository) FindByID(dropletID int64) (*model.Instance, error) {
	var instance model.Instance
	err := r.db.Where("droplet_id = ?", dropletID).First(&instance).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &instance, nil
}

// FindByCreator 查找创建者的所有实例
func (r *InstanceRepository) FindByCreator(creatorID int64) ([]model.Instance, error) {
	var instances []model.Instance
	err := r.db.Where("creator_id = ?", creatorID).Order("created_at DESC").Find(&instances).Error
	return instances, err
}

// FindDueForExpiry 查找到期窗口内的实例（含已过期）
// 到期时间存在历史格式混用，在内存中归一化后过滤；
// 无法解析的行也返回，由调用方记录并跳过
func (r *InstanceRepository) FindDueForExpiry(now time.Time, window time.Duration) ([]model.Instance, error) {
	var instances []model.Instance
	if err := r.db.Find(&instances).Error; err != nil {
		return nil, err
	}

	cutoff := now.Add(window)
	due := make([]model.Instance, 0)
	for _, inst := range instances {
		exp, err := model.ParseExpiration(inst.ExpirationDate)
		if err != nil {
			due = append(due, inst)
			continue
		}
		if !exp.After(cutoff) {
			due = append(due, inst)
		}
	}
	return due, nil
}

// ExtendExpiration 将到期时间向后推days天
// 返回新的到期时间；记录不存在时 found=false
func (r *InstanceRepository) ExtendExpiration(dropletID int64, days int) (time.Time, bool, error) {
	instance, err := r.FindByID(dropletID)
	if err != nil {
		return time.Time{}, false, err
	}
	if instance == nil {
		return time.Time{}, false, nil
	}

	exp, err := model.ParseExpiration(instance.ExpirationDate)
	if err != nil {
		return time.Time{}, false, err
	}

	newExp := exp.AddDate(0, 0, days)
	result := r.db.Model(&model.Instance{}).
		Where("droplet_id = ?", dropletID).
		Update("expiration_date", model.FormatExpiration(newExp))
	if result.Error != nil {
		return time.Time{}, false, result.Error
	}
	if result.RowsAffected == 0 {
		// 并发删除的竞态：按不存在处理
		return time.Time{}, false, nil
	}
	return newExp, true, nil
}

// AttachDNS 绑定DNS记录（三元组整体写入）
func (r *InstanceRepository) AttachDNS(dropletID int64, domain string, recordID int64, zone string) (bool, error) {
	result := r.db.Model(&model.Instance{}).
		Where("droplet_id = ?", dropletID).
		Updates(map[string]interface{}{
			"domain_name":   domain,
			"dns_record_id": recordID,
			"dns_zone":      zone,
		})
	return result.RowsAffected > 0, result.Error
}

// ClearDNS 解绑DNS记录（三元组整体置空）
func (r *InstanceRepository) ClearDNS(dropletID int64) (bool, error) {
	result := r.db.Model(&model.Instance{}).
		Where("droplet_id = ?", dropletID).
		Updates(map[string]interface{}{
			"domain_name":   nil,
			"dns_record_id": nil,
			"dns_zone":      nil,
		})
	return result.RowsAffected > 0, result.Error
}

// Delete 删除实例记录，返回记录此前是否存在
func (r *InstanceRepository) Delete(dropletID int64) (bool, error) {
	result := r.db.Delete(&model.Instance{}, "droplet_id = ?", dropletID)
	return result.RowsAffected > 0, result.Error
}

// Count 实例总数
func (r *InstanceRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&model.Instance{}).Count(&count).Error
	return count, err
}
