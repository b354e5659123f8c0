package repository

import (
	"time"

	"github.com/fisker/cloudlease-backend/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SSHKeyUsageRepository struct {
	db *gorm.DB
}

func NewSSHKeyUsageRepository(db *gorm.DB) *SSHKeyUsageRepository {
	return &SSHKeyUsageRepository{db: db}
}

// RecordUsage 记录一次密钥使用（不存在则插入，存在则计数+1并刷新时间）
func (r *SSHKeyUsageRepository) RecordUsage(creatorID, sshKeyID int64) error {
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "creator_id"}, {Name: "ssh_key_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"use_count": gorm.Expr("use_count + 1"),
			"last_used": time.Now(),
		}),
	}).Create(&model.SSHKeyUsage{
		CreatorID: creatorID,
		SSHKeyID:  sshKeyID,
		UseCount:  1,
	}).Error
}

// FindPreferredKeys 按使用频率返回创建者的密钥ID列表
// 前端据此排序密钥选择列表
func (r *SSHKeyUsageRepository) FindPreferredKeys(creatorID int64) ([]int64, error) {
	var usages []model.SSHKeyUsage
	err := r.db.Where("creator_id = ?", creatorID).
		Order("use_count DESC, last_used DESC").
		Find(&usages).Error
	if err != nil {
		return nil, err
	}

	keys := make([]int64, 0, len(usages))
	for _, u := range usages {
		keys = append(keys, u.SSHKeyID)
	}
	return keys, nil
}
