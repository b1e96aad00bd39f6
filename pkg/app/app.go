// Package app 提供应用程序的初始化和配置功能.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yeisme/file2crashes/pkg/api"
	"github.com/yeisme/file2crashes/pkg/configs"
	ctxPkg "github.com/yeisme/file2crashes/pkg/context"
	"github.com/yeisme/file2crashes/pkg/internal/jobs"
	"github.com/yeisme/file2crashes/pkg/internal/service"
	"github.com/yeisme/file2crashes/pkg/internal/storage"
	"github.com/yeisme/file2crashes/pkg/log"
	"github.com/yeisme/file2crashes/pkg/metrics"
	"github.com/yeisme/file2crashes/pkg/middleware"
	"github.com/yeisme/file2crashes/pkg/scheduler"
	"github.com/yeisme/file2crashes/pkg/tracing"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	Engine    *gin.Engine
	config    *configs.AppConfig
	storage   *storage.Manager
	scheduler *scheduler.Scheduler
	logger    *zerolog.Logger
}

// Init 加载并校验配置，初始化追踪与指标；serve 与 analyze 命令共用.
// debug 为 true 时覆盖 server.debug，需在首次取用 logger 之前调用.
func Init(configPath string, debug bool) (*configs.AppConfig, error) {
	if err := configs.InitConfig(configPath); err != nil {
		return nil, fmt.Errorf("init config: %w", err)
	}

	config := configs.GetConfig()
	if debug {
		config.Server.Debug = true
	}

	if err := configs.Validate(config); err != nil {
		return nil, err
	}

	if err := tracing.InitTracer(config.Tracing); err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	if err := metrics.InitMetrics(config.Metrics); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return config, nil
}

// NewApp 初始化存储、调度器与 HTTP 引擎.
func NewApp(ctx context.Context, configPath string, debug bool) (*App, error) {
	config, err := Init(configPath, debug)
	if err != nil {
		return nil, err
	}

	l := log.Logger()
	gin.DefaultWriter = log.NewGinWriter(l, zerolog.InfoLevel)
	gin.DefaultErrorWriter = log.NewGinWriter(l, zerolog.ErrorLevel)

	manager, err := storage.New(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	sched, err := scheduler.NewScheduler()
	if err != nil {
		_ = manager.Close()
		return nil, fmt.Errorf("init scheduler: %w", err)
	}

	if err := jobs.RegisterCronJobs(sched, manager, config); err != nil {
		_ = manager.Close()
		return nil, fmt.Errorf("register cron jobs: %w", err)
	}

	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		middleware.GinLoggerMiddleware(),
		middleware.CORSMiddleware(config.Server),
		middleware.RateLimitMiddleware(config.RateLimit),
		middleware.TracingMiddleware(),
		middleware.PrometheusMiddleware(),
		gzip.Gzip(gzip.DefaultCompression),
		middleware.StorageMiddleware(manager),
		middleware.SchedulerMiddleware(sched),
	)

	api.RegisterGroup(engine, api.Options{
		Cache:    manager.GetKVClient(),
		CacheTTL: config.Server.GetResponseCacheTTL(),
		KV:       config.KV,
	})

	if config.Metrics.Enabled {
		_ = metrics.StartMetricsServer(config.Metrics, engine)
	}

	return &App{
		Engine:    engine,
		config:    config,
		storage:   manager,
		scheduler: sched,
		logger:    l,
	}, nil
}

// bootstrap 建表，表为空时执行一次初始分析.
func (a *App) bootstrap(ctx context.Context) {
	ctx = ctxPkg.WithStorageManager(ctx, a.storage)

	report, err := service.NewAnalysisService(ctx, a.config).Bootstrap(ctx, time.Now())
	if err != nil {
		a.logger.Error().Err(err).Msg("bootstrap failed")
		return
	}

	if report != nil {
		a.logger.Info().Str("run_id", report.RunID).Int("evidence", report.Evidence).Msg("bootstrap analysis done")
	}
}

// Run 启动调度器与 HTTP 服务，ctx 取消后优雅退出.
func (a *App) Run(ctx context.Context) error {
	defer func() {
		if err := a.storage.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("close storage")
		}
	}()

	// 表在接收请求前建好，初始分析在后台执行
	if _, err := service.NewCrashesService(ctxPkg.WithStorageManager(ctx, a.storage)).Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	a.scheduler.Start()

	go a.bootstrap(ctx)

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.config.Server.Host, a.config.Server.Port),
		Handler:           a.Engine,
		ReadHeaderTimeout: a.config.Server.GetTimeoutDuration(),
	}

	errCh := make(chan error, 1)

	go func() {
		a.logger.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		errCh <- srv.ListenAndServe()
	}()

	var serveErr error

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = err
		}
	case <-ctx.Done():
		a.logger.Info().Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn().Err(err).Msg("http shutdown")
	}

	if err := a.scheduler.Stop(); err != nil {
		a.logger.Warn().Err(err).Msg("scheduler stop")
	}

	if err := tracing.ShutdownTracer(shutdownCtx); err != nil {
		a.logger.Warn().Err(err).Msg("tracer shutdown")
	}

	return serveErr
}
