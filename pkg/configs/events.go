package configs

import "github.com/spf13/viper"

// EventsConfig 控制分析事件发布的开关（全局与分主题）。
type EventsConfig struct {
	Enabled           bool   `mapstructure:"enabled"`            // 总开关
	AnalysisCompleted bool   `mapstructure:"analysis_completed"` // 分析完成并落库
	AnalysisFailed    bool   `mapstructure:"analysis_failed"`    // 分析或落库失败
	Producer          string `mapstructure:"producer"`
}

func (c *EventsConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("events.enabled", true)
	v.SetDefault("events.analysis_completed", true)
	v.SetDefault("events.analysis_failed", true)
	v.SetDefault("events.producer", "file2crashes")
}
