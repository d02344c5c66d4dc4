package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"roadmap_ai_backend/internal/config"
	"roadmap_ai_backend/internal/util"
)

func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ""
		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			tokenString = strings.TrimPrefix(authHeader, "Bearer ")
		}

		// SSE 场景 EventSource 带不了请求头，退化到 query 传 token
		if tokenString == "" {
			tokenString = c.Query("token")
		}

		if tokenString == "" {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		claims, err := util.ParseJWT(tokenString, cfg.JWT.Secret)
		if err != nil {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		c.Set("user", claims)
		c.Next()
	}
}

// ServiceKeyMiddleware 服务间调用凭证，用 X-API-Key 而不是用户态 JWT
func ServiceKeyMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.JWT.ServiceKey == "" || c.GetHeader("X-API-Key") != cfg.JWT.ServiceKey {
			util.Forbidden(c)
			c.Abort()
			return
		}
		c.Next()
	}
}
