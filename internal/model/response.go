package model

import (
	"fmt"

	"github.com/fisker/cloudlease-backend/pkg/logger"
	"github.com/gin-gonic/gin"
)

type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func Success(data interface{}) Response {
	return Response{
		Code:    0,
		Message: "success",
		Data:    data,
	}
}

func Error(code int, message string) Response {
	return Response{
		Code:    code,
		Message: message,
	}
}

// HandleError 统一错误处理函数，记录详细日志并返回错误响应
func HandleError(c *gin.Context, code int, err error, context ...string) {
	requestMethod := c.Request.Method
	requestPath := c.Request.URL.Path
	clientIP := c.ClientIP()

	// 获取创建者信息（如果有）
	creatorID := ""
	if cid, exists := c.Get("creator_id"); exists {
		creatorID = fmt.Sprintf("%v", cid)
	}

	errorMsg := err.Error()
	if len(context) > 0 {
		errorMsg = fmt.Sprintf("%s: %v", context[0], err)
	}

	logger.Errorf("Request error [%d]: %v (request: %s %s, client: %s, creator: %s)",
		code, errorMsg, requestMethod, requestPath, clientIP, creatorID)

	c.JSON(code, Error(code, errorMsg))
}
