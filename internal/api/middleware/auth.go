package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fisker/cloudlease-backend/internal/model"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Claims 前端边界传入的创建者身份
type Claims struct {
	CreatorID int64  `json:"creatorId"`
	Username  string `json:"username"`
	jwt.RegisteredClaims
}

// ParseToken 校验并解析身份令牌
func ParseToken(secret, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// GenerateToken 为指定创建者签发令牌（前端/运维工具使用）
func GenerateToken(secret string, creatorID int64, username string, ttl time.Duration) (string, error) {
	claims := &Claims{
		CreatorID: creatorID,
		Username:  username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// AuthMiddleware JWT认证中间件，把创建者身份写入请求上下文
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, model.Error(401, "missing Authorization header"))
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			c.JSON(http.StatusUnauthorized, model.Error(401, "Authorization header must use the Bearer scheme"))
			c.Abort()
			return
		}

		claims, err := ParseToken(jwtSecret, tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, model.Error(401, "invalid or expired token: "+err.Error()))
			c.Abort()
			return
		}

		c.Set("creator_id", claims.CreatorID)
		c.Set("username", claims.Username)
		c.Next()
	}
}

// CreatorID 从请求上下文取出已认证的创建者ID
func CreatorID(c *gin.Context) int64 {
	if v, exists := c.Get("creator_id"); exists {
		if id, ok := v.(int64); ok {
			return id
		}
	}
	return 0
}

// Username 从请求上下文取出创建者显示名，可能为空
func Username(c *gin.Context) string {
	if v, exists := c.Get("username"); exists {
		if name, ok := v.(string); ok {
			return name
		}
	}
	return ""
}
