package model

import "time"

// SSHKeyUsage SSH密钥使用记录
// 创建主机时记录一次，用于前端按常用程度排序密钥列表
type SSHKeyUsage struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	CreatorID int64     `json:"creatorId" gorm:"uniqueIndex:idx_creator_key;not null"`
	SSHKeyID  int64     `json:"sshKeyId" gorm:"column:ssh_key_id;uniqueIndex:idx_creator_key;not null"`
	UseCount  int       `json:"useCount" gorm:"default:0"`
	LastUsed  time.Time `json:"lastUsed" gorm:"autoUpdateTime"`
}

func (SSHKeyUsage) TableName() string {
	return "ssh_key_usages"
}
