package handle

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yeisme/file2crashes/pkg/middleware"
	"github.com/yeisme/file2crashes/pkg/scheduler"
)

// withScheduler 取出注入的调度器，未启用时返回 503.
func withScheduler(fn func(c *gin.Context, sched *scheduler.Scheduler)) gin.HandlerFunc {
	return func(c *gin.Context) {
		sched := middleware.GetScheduler(c)
		if sched == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "scheduler not running"})
			return
		}

		fn(c, sched)
	}
}

func schedulerError(c *gin.Context, err error) {
	if errors.Is(err, scheduler.ErrJobNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

// SchedulerJobs 返回所有调度器任务信息.
var SchedulerJobs = withScheduler(func(c *gin.Context, sched *scheduler.Scheduler) {
	c.JSON(http.StatusOK, gin.H{"jobs": sched.GetJobInfos()})
})

// SchedulerJob 按名称返回单个任务.
var SchedulerJob = withScheduler(func(c *gin.Context, sched *scheduler.Scheduler) {
	info, err := sched.GetJobInfoByName(c.Param("name"))
	if err != nil {
		schedulerError(c, err)
		return
	}

	c.JSON(http.StatusOK, info)
})

// SchedulerRunJob 立即执行一次任务，例如 crashes.update.daily.
var SchedulerRunJob = withScheduler(func(c *gin.Context, sched *scheduler.Scheduler) {
	if err := sched.RunNow(c.Param("name")); err != nil {
		schedulerError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message": "job triggered", "job": c.Param("name")})
})

// SchedulerStopJobs 停止所有任务.
var SchedulerStopJobs = withScheduler(func(c *gin.Context, sched *scheduler.Scheduler) {
	if err := sched.StopJobs(); err != nil {
		schedulerError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "jobs stopped"})
})

// SchedulerRemoveJob 根据 id 删除任务.
var SchedulerRemoveJob = withScheduler(func(c *gin.Context, sched *scheduler.Scheduler) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job id"})
		return
	}

	if err := sched.RemoveJob(id); err != nil {
		schedulerError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "job removed"})
})

// SchedulerQueueWaiting 返回队列中等待的任务数.
var SchedulerQueueWaiting = withScheduler(func(c *gin.Context, sched *scheduler.Scheduler) {
	c.JSON(http.StatusOK, gin.H{"waiting": sched.JobsWaitingInQueue()})
})
