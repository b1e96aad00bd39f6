// Package middleware 提供 gin 中间件：日志、追踪、指标、CORS、限流、响应缓存与依赖注入.
package middleware

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yeisme/file2crashes/pkg/configs"
)

// CORSMiddleware CORS中间件，只读 API 允许任意来源.
func CORSMiddleware(cfg configs.ServerConfig) gin.HandlerFunc {
	config := cors.DefaultConfig()
	config.AllowOrigins = []string{"*"}
	config.AllowMethods = []string{"GET", "HEAD", "POST", "OPTIONS"}
	config.AllowHeaders = append(config.AllowHeaders, "If-None-Match", "X-Cache-Bypass")
	config.ExposeHeaders = []string{"ETag", "X-Cache", "Age"}

	if cfg.Debug {
		config.AllowAllOrigins = true
		config.AllowOrigins = nil
	}

	return cors.New(config)
}
