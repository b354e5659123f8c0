package middleware

import (
	"strconv"
	"time"

	"github.com/fisker/cloudlease-backend/pkg/metrics"
	"github.com/gin-gonic/gin"
)

// MetricsMiddleware 记录请求量和耗时
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			// 未匹配路由（404）不按原始URL打标签，避免基数爆炸
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		metrics.APIRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		metrics.APIRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
