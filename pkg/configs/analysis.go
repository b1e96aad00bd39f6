package configs

import (
	"github.com/spf13/viper"
)

const (
	DefaultAnalysisCron      = "30 6 * * *" // 每天 06:30 分析前一窗口
	DefaultAnalysisMaxDays   = 3            // 窗口天数 = max_days + 1
	DefaultAnalysisLimit     = 10000        // 直方图阶段的签名数量上限
	DefaultAnalysisThreshold = 0            // 最近一天的最小崩溃数
)

// AnalysisConfig 新签名分析任务配置.
type AnalysisConfig struct {
	Enabled   bool     `mapstructure:"enabled"`                       // 是否注册定时任务
	Cron      string   `mapstructure:"cron"      rule:"required"`
	Channels  []string `mapstructure:"channels"  rule:"min=1,dive,channel"`
	Products  []string `mapstructure:"products"  rule:"min=1,dive,required"`
	MaxDays   int      `mapstructure:"max_days"  rule:"min=0,max=60"`
	Limit     int      `mapstructure:"limit"     rule:"min=1"`
	Threshold int      `mapstructure:"threshold" rule:"min=0"`
	Bootstrap bool     `mapstructure:"bootstrap"` // 表为空时启动即执行一次
}

// setDefaults 设置分析配置的默认值.
func (c *AnalysisConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("analysis.enabled", true)
	v.SetDefault("analysis.cron", DefaultAnalysisCron)
	v.SetDefault("analysis.channels", []string{"nightly"})
	v.SetDefault("analysis.products", []string{"Firefox", "FennecAndroid"})
	v.SetDefault("analysis.max_days", DefaultAnalysisMaxDays)
	v.SetDefault("analysis.limit", DefaultAnalysisLimit)
	v.SetDefault("analysis.threshold", DefaultAnalysisThreshold)
	v.SetDefault("analysis.bootstrap", true)
}
