package service

import (
	"context"
	crand "crypto/rand"
	"fmt"
	"path"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid"
	"github.com/rs/zerolog"

	"github.com/yeisme/file2crashes/pkg/configs"
	ctxPkg "github.com/yeisme/file2crashes/pkg/context"
	"github.com/yeisme/file2crashes/pkg/internal/analyze"
	"github.com/yeisme/file2crashes/pkg/internal/socorro"
	"github.com/yeisme/file2crashes/pkg/internal/storage/mq"
	"github.com/yeisme/file2crashes/pkg/internal/storage/s3"
	"github.com/yeisme/file2crashes/pkg/log"
	"github.com/yeisme/file2crashes/pkg/metrics"
	"github.com/yeisme/file2crashes/pkg/queue"
	"github.com/yeisme/file2crashes/pkg/tracing"
)

// 触发来源.
const (
	TriggerCron      = "cron"
	TriggerCLI       = "cli"
	TriggerAPI       = "api"
	TriggerBootstrap = "bootstrap"
)

var (
	ulidMu      sync.Mutex
	ulidEntropy = ulid.Monotonic(crand.Reader, 0)
)

func newRunID(t time.Time) string {
	ulidMu.Lock()
	defer ulidMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(t), ulidEntropy).String()
}

// UpdateParams 一次分析运行的参数.
type UpdateParams struct {
	Date      time.Time
	Channels  []string
	Products  []string
	MaxDays   int
	Limit     int
	Threshold int
	DryRun    bool // 只分析不写库、不归档
	Trigger   string
}

// RunReport 一次分析运行的结果.
type RunReport struct {
	RunID      string              `json:"run_id"`
	Date       string              `json:"date"`
	Trigger    string              `json:"trigger,omitempty"`
	DryRun     bool                `json:"dry_run,omitempty"`
	Pairs      []queue.PairSummary `json:"pairs"`
	Evidence   int                 `json:"evidence"`
	Saved      bool                `json:"saved"`
	ArchiveKey string              `json:"archive_key,omitempty"`
	StartedAt  time.Time           `json:"started_at"`
	Duration   time.Duration       `json:"duration"`
	Result     analyze.Result      `json:"result,omitempty"`
}

// AnalysisService 执行分析并持久化、归档、发布事件.
type AnalysisService struct {
	crashes  *CrashesService
	analyzer *analyze.Analyzer
	mqClient *mq.Client
	s3Client *s3.Client
	cfg      configs.AnalysisConfig
	events   configs.EventsConfig
	logger   zerolog.Logger
}

// NewAnalysisService 从上下文中的存储资源与配置构建服务.
// 启用缓存且存在 KV 客户端时，崩溃负载经 KV 缓存获取.
func NewAnalysisService(c context.Context, cfg *configs.AppConfig) *AnalysisService {
	client := socorro.New(cfg.Socorro, cfg.CircuitBreaker)

	var fetcher analyze.PayloadFetcher = client
	if kvc := ctxPkg.GetKVClient(c); cfg.Socorro.CacheEnabled && kvc != nil {
		fetcher = socorro.NewCachedFetcher(client, kvc, cfg.KV.Prefix, cfg.Socorro.GetCacheTTL())
	}

	logger := log.Logger().With().Str("component", "analysis").Logger()

	return &AnalysisService{
		crashes:  NewCrashesService(c),
		analyzer: analyze.New(client, fetcher, analyze.Options{Concurrency: cfg.Socorro.Concurrency, Logger: &logger}),
		mqClient: ctxPkg.GetMQClient(c),
		s3Client: ctxPkg.GetS3Client(c),
		cfg:      cfg.Analysis,
		events:   cfg.Events,
		logger:   logger,
	}
}

// WithAnalyzer 替换分析器.
func (s *AnalysisService) WithAnalyzer(a *analyze.Analyzer) *AnalysisService {
	s.analyzer = a
	return s
}

// Crashes 返回底层的证据存储服务.
func (s *AnalysisService) Crashes() *CrashesService { return s.crashes }

// Params 返回以配置为默认值的运行参数.
func (s *AnalysisService) Params(date time.Time, trigger string) UpdateParams {
	return UpdateParams{
		Date:      date,
		Channels:  s.cfg.Channels,
		Products:  s.cfg.Products,
		MaxDays:   s.cfg.MaxDays,
		Limit:     s.cfg.Limit,
		Threshold: s.cfg.Threshold,
		Trigger:   trigger,
	}
}

// Update 分析参考日期之前的窗口，写入证据并归档、发布事件.
// 远程服务的失败只会缩小结果；写库失败时返回错误并发布失败事件.
func (s *AnalysisService) Update(ctx context.Context, p UpdateParams) (*RunReport, error) {
	ctx, span := tracing.StartSpan(ctx, "service.analysis.Update")
	defer span.End()

	start := time.Now()
	report := &RunReport{
		RunID:     newRunID(start),
		Date:      p.Date.Format(time.DateOnly),
		Trigger:   p.Trigger,
		DryRun:    p.DryRun,
		StartedAt: start.UTC(),
	}

	logger := s.logger.With().Str("run_id", report.RunID).Str("date", report.Date).Logger()
	logger.Info().Strs("channels", p.Channels).Strs("products", p.Products).Str("trigger", p.Trigger).Msg("analysis started")

	res := s.analyzer.Run(ctx, analyze.RunParams{
		Channels:  p.Channels,
		Products:  p.Products,
		Date:      p.Date,
		MaxDays:   p.MaxDays,
		Limit:     p.Limit,
		Threshold: p.Threshold,
	})

	report.Result = res
	report.Evidence = res.Len()
	report.Pairs = summarize(res)

	if !p.DryRun {
		saved, err := s.crashes.PutResult(ctx, res, p.Date)
		if err != nil {
			err = fmt.Errorf("save analysis result: %w", err)
			report.Duration = time.Since(start)
			metrics.AnalysisRuns.WithLabelValues("failed").Inc()
			span.RecordError(err)
			s.publishFailed(logger, report, err)
			logger.Error().Err(err).Msg("analysis failed")

			return report, err
		}

		report.Saved = saved

		if s.s3Client != nil && saved {
			key, err := s.s3Client.PutJSON(ctx, path.Join(report.Date, report.RunID+".json"), report)
			if err != nil {
				logger.Warn().Err(err).Msg("archive analysis result failed")
			} else {
				report.ArchiveKey = key
			}
		}
	}

	report.Duration = time.Since(start)
	metrics.AnalysisRuns.WithLabelValues("ok").Inc()
	s.publishCompleted(logger, report)

	logger.Info().
		Int("evidence", report.Evidence).
		Bool("saved", report.Saved).
		Str("archive_key", report.ArchiveKey).
		Dur("duration", report.Duration).
		Msg("analysis finished")

	return report, nil
}

// Bootstrap 建表；表为新建或为空且允许引导时，立即分析一次.
func (s *AnalysisService) Bootstrap(ctx context.Context, now time.Time) (*RunReport, error) {
	created, err := s.crashes.Migrate(ctx)
	if err != nil {
		return nil, err
	}

	if !s.cfg.Bootstrap {
		return nil, nil
	}

	if !created {
		n, err := s.crashes.Count(ctx)
		if err != nil {
			return nil, err
		}

		if n > 0 {
			return nil, nil
		}
	}

	return s.Update(ctx, s.Params(NormalizeDate("today", now), TriggerBootstrap))
}

func (s *AnalysisService) publishCompleted(logger zerolog.Logger, r *RunReport) {
	if s.mqClient == nil || !s.events.Enabled || !s.events.AnalysisCompleted || r.DryRun {
		return
	}

	err := queue.PublishAnalysisCompleted(s.mqClient.Publisher(), queue.AnalysisCompletedPayload{
		RunID:      r.RunID,
		Date:       r.Date,
		Trigger:    r.Trigger,
		Pairs:      r.Pairs,
		Evidence:   r.Evidence,
		Saved:      r.Saved,
		ArchiveKey: r.ArchiveKey,
		DurationMS: r.Duration.Milliseconds(),
	}, queue.WithProducer(s.events.Producer))
	if err != nil {
		logger.Warn().Err(err).Msg("publish analysis completed event failed")
	}
}

func (s *AnalysisService) publishFailed(logger zerolog.Logger, r *RunReport, cause error) {
	if s.mqClient == nil || !s.events.Enabled || !s.events.AnalysisFailed {
		return
	}

	err := queue.PublishAnalysisFailed(s.mqClient.Publisher(), queue.AnalysisFailedPayload{
		RunID:   r.RunID,
		Date:    r.Date,
		Trigger: r.Trigger,
		Error:   cause.Error(),
	}, queue.WithProducer(s.events.Producer))
	if err != nil {
		logger.Warn().Err(err).Msg("publish analysis failed event failed")
	}
}

// summarize 按 channel、product 排序返回各组合的概况.
func summarize(res analyze.Result) []queue.PairSummary {
	out := make([]queue.PairSummary, 0)

	for channel, products := range res {
		for product, files := range products {
			n := 0
			for _, ev := range files {
				n += len(ev)
			}

			out = append(out, queue.PairSummary{Channel: channel, Product: product, Files: len(files), Evidence: n})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Channel != out[j].Channel {
			return out[i].Channel < out[j].Channel
		}

		return out[i].Product < out[j].Product
	})

	return out
}
