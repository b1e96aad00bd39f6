// Package metrics 提供监控指标功能.
// 支持Prometheus标准，收集 HTTP、远程崩溃检索调用与分析任务指标.
//
// Example:
//
//	import "github.com/yeisme/file2crashes/pkg/metrics"
//
//	err := metrics.InitMetrics(config.Metrics)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	metrics.RequestCounter.WithLabelValues("GET", "/api/v1/crashes").Inc()
//	metrics.SocorroRequests.WithLabelValues("SuperSearch", "ok").Inc()
package metrics

import (
	"net/http"
	_ "net/http/pprof" // 自动注册pprof端点
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yeisme/file2crashes/pkg/configs"
)

// 全局指标变量.
var (
	// RequestCounter HTTP请求计数器.
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint"},
	)

	// RequestDuration HTTP请求持续时间.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// ActiveConnections 活跃连接数.
	ActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_connections",
			Help: "Number of active connections",
		},
	)

	// SocorroRequests 远程检索请求数，status 取 ok、error、status_xxx、open 等.
	SocorroRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "socorro_requests_total",
			Help: "Total number of requests sent to the crash-report service",
		},
		[]string{"endpoint", "status"},
	)

	// SocorroDuration 远程检索耗时.
	SocorroDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "socorro_request_duration_seconds",
			Help:    "Crash-report service request duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"endpoint"},
	)

	// AnalysisRuns 分析任务运行次数.
	AnalysisRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analysis_runs_total",
			Help: "Total number of analysis runs",
		},
		[]string{"status"},
	)

	// AnalysisNewSignatures 最近一次分析中判定为新的签名数.
	AnalysisNewSignatures = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "analysis_new_signatures",
			Help: "Number of new signatures found by the last analysis run",
		},
		[]string{"channel", "product"},
	)

	// AnalysisEvidence 最近一次分析产生的文件证据条数.
	AnalysisEvidence = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "analysis_evidence",
			Help: "Number of file evidence entries produced by the last analysis run",
		},
		[]string{"channel", "product"},
	)

	// registry Prometheus注册表.
	registry = prometheus.NewRegistry()

	registerOnce sync.Once
)

// InitMetrics 初始化Metrics，重复调用只注册一次.
func InitMetrics(config configs.MetricsConfig) error {
	if !config.Enabled {
		return nil
	}

	registerOnce.Do(func() {
		if config.RuntimeMetrics {
			registry.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
		}

		registry.MustRegister(
			RequestCounter, RequestDuration, ActiveConnections,
			SocorroRequests, SocorroDuration,
			AnalysisRuns, AnalysisNewSignatures, AnalysisEvidence,
		)
	})

	return nil
}

// StartMetricsServer 在给定引擎上注册 Metrics 端点.
func StartMetricsServer(config configs.MetricsConfig, engine *gin.Engine) error {
	if !config.Enabled {
		return nil
	}

	path := config.Path
	if path == "" {
		path = "/metrics"
	}

	engine.GET(path, gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	// 如果启用pprof，注册pprof端点
	if config.Pprof {
		engine.GET("/debug/pprof/*any", gin.WrapH(http.DefaultServeMux))
	}

	return nil
}

// GetRegistry 获取Prometheus注册表.
func GetRegistry() *prometheus.Registry {
	return registry
}
