// Package router 管理路由配置，将 handle 中的处理器绑定到 gin 路由组.
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/file2crashes/pkg/internal/handle"
)

// RegisterCrashesRoutes 注册证据查询与分析触发路由.
// 只读路由可以挂载响应缓存，写路由不经过缓存.
//
//	GET  /crashes        -> GetCrashes
//	GET  /list           -> ListDirs
//	POST /analysis/run   -> RunAnalysis
func RegisterCrashesRoutes(g *gin.RouterGroup, factory handle.AnalysisFactory, readCache ...gin.HandlerFunc) {
	read := g.Group("", readCache...)
	{
		read.GET("/crashes", handle.GetCrashes)
		read.GET("/list", handle.ListDirs)
	}

	g.POST("/analysis/run", handle.RunAnalysis(factory))
}
