// Package configs 管理应用程序配置，包括Metrics的配置信息.
//
// Example:
//
//	config := configs.GetConfig()
//	if config.Metrics.Enabled {
//		_ = metrics.InitMetrics(config.Metrics)
//	}
package configs

import (
	"github.com/spf13/viper"
)

// MetricsConfig Metrics相关配置.
type MetricsConfig struct {
	Enabled        bool   `mapstructure:"enabled"`         // 是否启用Metrics
	Path           string `mapstructure:"path"`            // 暴露路径
	RuntimeMetrics bool   `mapstructure:"runtime_metrics"` // 是否收集运行时指标
	Pprof          bool   `mapstructure:"pprof"`           // 是否注册 pprof 端点
	DBRefresh      uint32 `mapstructure:"db_refresh"`      // GORM 连接池指标刷新间隔（秒）
}

// setDefaults 设置Metrics配置的默认值.
func (c *MetricsConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.runtime_metrics", true)
	v.SetDefault("metrics.pprof", false)
	v.SetDefault("metrics.db_refresh", 15)
}
