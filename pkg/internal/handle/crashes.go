package handle

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/file2crashes/pkg/configs"
	ctxPkg "github.com/yeisme/file2crashes/pkg/context"
	"github.com/yeisme/file2crashes/pkg/internal/service"
	"github.com/yeisme/file2crashes/pkg/internal/types"
	"github.com/yeisme/file2crashes/pkg/log"
	"github.com/yeisme/file2crashes/pkg/middleware"
)

// GetCrashes 返回目录下每个文件的崩溃证据 {file: [[url, count, signature], ...]}.
//
//	GET /api/v1/crashes?product=Firefox&channel=nightly&dir=dom/base&date=2024-03-05
func GetCrashes(c *gin.Context) {
	var q types.CrashesQuery
	if !bindQuery(c, &q) {
		return
	}

	ctx := c.Request.Context()
	date := service.NormalizeDate(q.Date, time.Now().UTC())

	res, err := service.NewCrashesService(ctx).Get(ctx,
		service.NormalizeProduct(q.Product), service.NormalizeChannel(q.Channel), q.Dir, date)
	if err != nil {
		fail(c, err, "get crashes failed")
		return
	}

	c.JSON(http.StatusOK, types.NewFileEvidence(res))
}

// ListDirs 返回某天有证据的目录，升序.
//
//	GET /api/v1/list?product=Firefox&channel=nightly&date=today
func ListDirs(c *gin.Context) {
	var q types.ListQuery
	if !bindQuery(c, &q) {
		return
	}

	ctx := c.Request.Context()
	date := service.NormalizeDate(q.Date, time.Now().UTC())

	dirs, err := service.NewCrashesService(ctx).ListDirs(ctx,
		service.NormalizeProduct(q.Product), service.NormalizeChannel(q.Channel), date)
	if err != nil {
		fail(c, err, "list directories failed")
		return
	}

	c.JSON(http.StatusOK, dirs)
}

// AnalysisFactory 按请求上下文构建分析服务.
type AnalysisFactory func(ctx context.Context) *service.AnalysisService

// DefaultAnalysisFactory 使用全局配置.
func DefaultAnalysisFactory(ctx context.Context) *service.AnalysisService {
	return service.NewAnalysisService(ctx, configs.GetConfig())
}

// RunAnalysis 同步执行一次分析；写库成功后清除响应缓存.
//
//	POST /api/v1/analysis/run?date=2024-03-05&channel=nightly&product=Firefox&dry_run=true
func RunAnalysis(factory AnalysisFactory) gin.HandlerFunc {
	if factory == nil {
		factory = DefaultAnalysisFactory
	}

	return func(c *gin.Context) {
		var q types.AnalysisRunQuery
		if !bindQuery(c, &q) {
			return
		}

		ctx := c.Request.Context()
		svc := factory(ctx)

		p := svc.Params(service.NormalizeDate(q.Date, time.Now().UTC()), service.TriggerAPI)
		q.Apply(&p)

		report, err := svc.Update(ctx, p)
		if err != nil {
			fail(c, err, "analysis run failed")
			return
		}

		purged := 0

		if report.Saved {
			if kvc := ctxPkg.GetKVClient(ctx); kvc != nil {
				n, perr := middleware.PurgeResponseCache(context.WithoutCancel(ctx), kvc, configs.GetConfig().KV.Prefix)
				if perr != nil {
					log.Logger().Warn().Err(perr).Msg("purge response cache failed")
				}

				purged = n
			}
		}

		c.JSON(http.StatusOK, types.AnalysisRunResponse{
			RunID:      report.RunID,
			Date:       report.Date,
			DryRun:     report.DryRun,
			Pairs:      report.Pairs,
			Evidence:   report.Evidence,
			Saved:      report.Saved,
			ArchiveKey: report.ArchiveKey,
			DurationMS: report.Duration.Milliseconds(),
			Purged:     purged,
		})
	}
}
