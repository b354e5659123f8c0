package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Instance 租用的云主机实例（droplet）
// 到期时间是生命周期的唯一驱动字段
type Instance struct {
	// DropletID 云服务商分配的数字ID（主键，不可变）
	DropletID int64  `json:"dropletId" gorm:"column:droplet_id;primaryKey;autoIncrement:false"`
	Name      string `json:"name" gorm:"type:varchar(100);not null"`

	// IPAddress IP地址（轮询超时时为占位符 "unavailable"）
	IPAddress   string `json:"ipAddress" gorm:"type:varchar(45)"`
	DropletType string `json:"dropletType" gorm:"type:varchar(50)"` // 规格slug，如 s-1vcpu-1gb

	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`

	// ExpirationDate 到期时间
	// 历史写入路径既有 "2006-01-02 15:04:05" 字符串也有unix整数秒，
	// 统一存为字符串列，由回收器在读取时归一化
	ExpirationDate string `json:"expirationDate" gorm:"type:varchar(64);not null;index"`

	// PriceHourly 每小时价格（可空）
	PriceHourly *decimal.Decimal `json:"priceHourly,omitempty" gorm:"type:decimal(12,6)"`

	CreatorID       int64   `json:"creatorId" gorm:"index;not null"`
	CreatorUsername *string `json:"creatorUsername,omitempty" gorm:"type:varchar(100)"`

	// SSHKeyID 创建时注入的SSH密钥ID
	SSHKeyID int64 `json:"sshKeyId" gorm:"column:ssh_key_id"`

	// DNS绑定（三元组：要么全空，要么全有）
	DomainName  *string `json:"domainName,omitempty" gorm:"type:varchar(255)"`
	DNSRecordID *int64  `json:"dnsRecordId,omitempty" gorm:"column:dns_record_id"`
	DNSZone     *string `json:"dnsZone,omitempty" gorm:"column:dns_zone;type:varchar(255)"`
}

func (Instance) TableName() string {
	return "instances"
}

// HasDNS 是否绑定了DNS记录
func (i *Instance) HasDNS() bool {
	return i.DomainName != nil && i.DNSRecordID != nil && i.DNSZone != nil
}

// DisplayName 创建者展示名（无用户名时回退到ID）
func (i *Instance) DisplayName() string {
	if i.CreatorUsername != nil && *i.CreatorUsername != "" {
		return *i.CreatorUsername
	}
	return formatCreatorID(i.CreatorID)
}
