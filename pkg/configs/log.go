package configs

import (
	"github.com/spf13/viper"
)

const (
	DefaultLogLevel      = "info"                  // 日志级别
	DefaultLogFormat     = "console"               // console 或 json
	DefaultLogEnableFile = false                   // 是否同时写入文件
	DefaultLogFilePath   = "logs/file2crashes.log" // 日志文件路径
	DefaultLogMaxSize    = 100                     // 单个文件最大尺寸（MB）
	DefaultLogMaxBackups = 7                       // 最大备份数量
	DefaultLogMaxAge     = 28                      // 最大保存天数
	DefaultLogCompress   = true                    // 轮转后压缩
)

// LogConfig 日志相关配置.
type LogConfig struct {
	Level      string `mapstructure:"level"        rule:"omitempty,oneof=trace debug info warn error fatal panic disabled"`
	Format     string `mapstructure:"format"       rule:"omitempty,oneof=console json"`
	EnableFile bool   `mapstructure:"enable_file"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

func (l *LogConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.format", DefaultLogFormat)
	v.SetDefault("log.enable_file", DefaultLogEnableFile)
	v.SetDefault("log.file_path", DefaultLogFilePath)
	v.SetDefault("log.max_size_mb", DefaultLogMaxSize)
	v.SetDefault("log.max_backups", DefaultLogMaxBackups)
	v.SetDefault("log.max_age_days", DefaultLogMaxAge)
	v.SetDefault("log.compress", DefaultLogCompress)
}
