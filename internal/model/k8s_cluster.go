package model

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// K8sCluster 租用的托管K8s集群
// "deleted" 状态用行删除表示，不持久化
type K8sCluster struct {
	// ID 云服务商分配的字符串ID（主键）
	ID   string `json:"id" gorm:"primaryKey;type:varchar(64)"`
	Name string `json:"name" gorm:"type:varchar(100);not null;index:idx_cluster_name_creator"`

	Region    string `json:"region" gorm:"type:varchar(20)"`
	Version   string `json:"version" gorm:"type:varchar(50)"`  // Kubernetes版本slug
	NodeSize  string `json:"nodeSize" gorm:"type:varchar(50)"` // 节点规格slug
	NodeCount int    `json:"nodeCount"`

	// Status 集群状态（provisioning/running/errored），见 ClusterStatus
	Status ClusterStatus `json:"status" gorm:"type:varchar(20);default:'provisioning';index"`

	// Endpoint API Server地址（就绪前为空）
	Endpoint string `json:"endpoint" gorm:"type:varchar(255)"`

	CreatorID       int64   `json:"creatorId" gorm:"index:idx_cluster_name_creator;not null"`
	CreatorUsername *string `json:"creatorUsername,omitempty" gorm:"type:varchar(100)"`

	// ExpirationDate 到期时间（与 Instance 相同的历史格式约定）
	ExpirationDate string    `json:"expirationDate" gorm:"type:varchar(64);not null;index"`
	CreatedAt      time.Time `json:"createdAt" gorm:"autoCreateTime"`

	// PriceHourly 每小时价格（可空）
	PriceHourly *decimal.Decimal `json:"priceHourly,omitempty" gorm:"type:decimal(12,6)"`

	// HA 高可用控制面
	HA bool `json:"ha" gorm:"column:ha"`
}

func (K8sCluster) TableName() string {
	return "k8s_clusters"
}

// DisplayName 创建者展示名（无用户名时回退到ID）
func (c *K8sCluster) DisplayName() string {
	if c.CreatorUsername != nil && *c.CreatorUsername != "" {
		return *c.CreatorUsername
	}
	return formatCreatorID(c.CreatorID)
}

func formatCreatorID(id int64) string {
	return strconv.FormatInt(id, 10)
}
