// Package api 组装 HTTP 接口的路由组.
package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/file2crashes/pkg/configs"
	"github.com/yeisme/file2crashes/pkg/internal/handle"
	"github.com/yeisme/file2crashes/pkg/internal/router"
	"github.com/yeisme/file2crashes/pkg/internal/storage/kv"
	"github.com/yeisme/file2crashes/pkg/middleware"
)

// Prefix 接口路由前缀.
const Prefix = "/api/v1"

// Options 路由组依赖.
type Options struct {
	// Cache 只读接口的响应缓存存储，nil 时不缓存.
	Cache    kv.KVStore
	CacheTTL time.Duration
	KV       configs.KVConfig
	// Analysis 为 nil 时使用全局配置构建分析服务.
	Analysis handle.AnalysisFactory
}

// RegisterGroup 在 /api/v1 下注册证据查询、分析触发、健康检查与调度器路由.
func RegisterGroup(e *gin.Engine, opts Options) *gin.RouterGroup {
	g := e.Group(Prefix)

	var readCache []gin.HandlerFunc
	if opts.Cache != nil && opts.CacheTTL > 0 {
		readCache = append(readCache, middleware.CacheMiddleware(middleware.CacheConfig{
			Store:  opts.Cache,
			Prefix: opts.KV.Prefix,
			TTL:    opts.CacheTTL,
		}))
	}

	router.RegisterCrashesRoutes(g, opts.Analysis, readCache...)
	router.RegisterHealthCheckRoute(g)
	router.RegisterSchedulerRoutes(g)

	return g
}
