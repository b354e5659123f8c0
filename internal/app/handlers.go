package app

import (
	"github.com/fisker/cloudlease-backend/internal/api/handler"
)

// Handlers 全部HTTP处理器
type Handlers struct {
	Instance *handler.InstanceHandler
	Cluster  *handler.ClusterHandler
	Mail     *handler.MailHandler
}

// InitializeHandlers 创建处理器实例
func InitializeHandlers(services *Services) *Handlers {
	return &Handlers{
		Instance: handler.NewInstanceHandler(services.Instance),
		Cluster:  handler.NewClusterHandler(services.Cluster),
		Mail:     handler.NewMailHandler(services.Mail),
	}
}
