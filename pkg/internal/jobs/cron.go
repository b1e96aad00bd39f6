// Package jobs 负责注册与实现业务定时任务（基于 scheduler）.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/yeisme/file2crashes/pkg/configs"
	ctxPkg "github.com/yeisme/file2crashes/pkg/context"
	"github.com/yeisme/file2crashes/pkg/internal/service"
	"github.com/yeisme/file2crashes/pkg/internal/storage"
	"github.com/yeisme/file2crashes/pkg/scheduler"
)

// RegisterCronJobs 配置业务定时任务：
//   - 按 analysis.cron 分析参考日期为当天的窗口并写库
//
// analysis.enabled 为 false 时不注册任何任务.
func RegisterCronJobs(sched *scheduler.Scheduler, mgr *storage.Manager, cfg *configs.AppConfig) error {
	if sched == nil {
		return fmt.Errorf("scheduler is nil")
	}

	if mgr == nil {
		return fmt.Errorf("storage manager is nil")
	}

	if !cfg.Analysis.Enabled {
		return nil
	}

	// 将 storage manager 注入到 context，便于 service 使用
	baseCtx := ctxPkg.WithStorageManager(context.Background(), mgr)

	return sched.AddCron(JobCrashesUpdateDaily, cfg.Analysis.Cron, func(ctx context.Context) error {
		return runDailyUpdate(ctx, cfg)
	}, baseCtx)
}

// runDailyUpdate 以今天为参考日期执行一次分析.
func runDailyUpdate(ctx context.Context, cfg *configs.AppConfig) error {
	svc := service.NewAnalysisService(ctx, cfg)

	_, err := svc.Update(ctx, svc.Params(ReferenceDate(time.Now()), service.TriggerCron))

	return err
}

// ReferenceDate 返回 now 所在的 UTC 日期，与接口和命令行的参考日期一致.
func ReferenceDate(now time.Time) time.Time {
	return service.NormalizeDate("today", now.UTC())
}
