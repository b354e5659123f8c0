package router

import (
	"net/http"

	"github.com/fisker/cloudlease-backend/internal/api/handler"
	"github.com/fisker/cloudlease-backend/internal/api/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Setup 注册全部路由
func Setup(
	instanceHandler *handler.InstanceHandler,
	clusterHandler *handler.ClusterHandler,
	mailHandler *handler.MailHandler,
	jwtSecret string,
) *gin.Engine {
	r := gin.New()

	// 使用自定义的 recovery 中间件（打印详细错误信息）
	r.Use(middleware.RecoveryMiddleware())
	r.Use(gin.Logger())
	r.Use(middleware.CORS())
	r.Use(middleware.MetricsMiddleware())

	// 需要认证的API
	api := r.Group("/api")
	api.Use(middleware.AuthMiddleware(jwtSecret))
	{
		instances := api.Group("/instances")
		{
			instances.GET("", instanceHandler.List)
			instances.POST("", instanceHandler.Create)
			instances.GET("/options", instanceHandler.Options)
			instances.POST("/:id/extend", instanceHandler.Extend)
			instances.DELETE("/:id", instanceHandler.Delete)
		}

		clusters := api.Group("/clusters")
		{
			clusters.GET("", clusterHandler.List)
			clusters.POST("", clusterHandler.Create)
			clusters.GET("/options", clusterHandler.Options)
			clusters.POST("/:id/extend", clusterHandler.Extend)
			clusters.GET("/:id/kubeconfig", clusterHandler.Kubeconfig)
			clusters.DELETE("/:id", clusterHandler.Delete)
		}

		mailboxes := api.Group("/mailboxes")
		{
			mailboxes.POST("", mailHandler.Create)
			mailboxes.POST("/reset-password", mailHandler.ResetPassword)
		}
	}

	// Prometheus Metrics
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health check (支持 GET 和 HEAD 方法)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"type":   "api-server",
		})
	})
	r.HEAD("/health", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	return r
}
