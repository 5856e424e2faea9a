package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	auth "shortlink-platform/pkg/jwt"
)

// RequireIdentity JWT 认证中间件，缺少或无效的令牌直接拒绝
func RequireIdentity(jwtManager *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := parseBearer(c, jwtManager)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "缺少或无效的认证令牌"})
			c.Abort()
			return
		}

		c.Set("owner_id", claims.UserID)
		c.Set("username", claims.Username)
		c.Next()
	}
}

// OptionalIdentity 可选认证中间件
// 带了有效令牌就把 owner_id 挂到上下文，没带视为匿名请求放行；
// 创建和停用短链接走这条路径（匿名也允许创建）
func OptionalIdentity(jwtManager *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, ok := parseBearer(c, jwtManager); ok {
			c.Set("owner_id", claims.UserID)
			c.Set("username", claims.Username)
		}
		c.Next()
	}
}

// OwnerID 从上下文取出请求方的所有者标识，匿名请求返回 nil
func OwnerID(c *gin.Context) *uint {
	v, exists := c.Get("owner_id")
	if !exists {
		return nil
	}
	id, ok := v.(uint)
	if !ok {
		return nil
	}
	return &id
}

func parseBearer(c *gin.Context, jwtManager *auth.TokenManager) (*auth.Claims, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return nil, false
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, false
	}

	claims, err := jwtManager.ValidateToken(parts[1])
	if err != nil {
		return nil, false
	}
	return claims, true
}
