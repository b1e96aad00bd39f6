package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/file2crashes/pkg/internal/handle"
)

// RegisterSchedulerRoutes 注册调度器相关路由.
func RegisterSchedulerRoutes(g *gin.RouterGroup) {
	s := g.Group("/scheduler")
	{
		s.GET("/jobs", handle.SchedulerJobs)
		s.GET("/jobs/:name", handle.SchedulerJob)
		s.POST("/jobs/:name/run", handle.SchedulerRunJob)
		s.POST("/jobs/stop", handle.SchedulerStopJobs)
		s.DELETE("/jobs/id/:id", handle.SchedulerRemoveJob)
		s.GET("/queue/waiting", handle.SchedulerQueueWaiting)
	}
}
