package app

import (
	"github.com/fisker/cloudlease-backend/internal/repository"
	"github.com/fisker/cloudlease-backend/pkg/database"
)

// Repositories 全部数据访问层
type Repositories struct {
	Instance    *repository.InstanceRepository
	Cluster     *repository.K8sClusterRepository
	SSHKeyUsage *repository.SSHKeyUsageRepository
}

// InitializeRepositories 创建仓库实例
func InitializeRepositories() *Repositories {
	return &Repositories{
		Instance:    repository.NewInstanceRepository(database.DB),
		Cluster:     repository.NewK8sClusterRepository(database.DB),
		SSHKeyUsage: repository.NewSSHKeyUsageRepository(database.DB),
	}
}
