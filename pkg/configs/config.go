// Package configs 管理应用程序配置，包括数据库、崩溃检索服务、分析任务和消息队列的配置信息.
// configs 包支持多种配置格式（YAML、JSON、TOML、dotenv）并启用热重载.
//
// Example:
//
//	import "path/to/configs"
//
//	err := configs.InitConfig("./")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	config := configs.GetConfig()
//	fmt.Println(config.Server.Port)
//
// Example accessing analysis config:
//
//	config := configs.GetConfig()
//	a := config.Analysis
//	fmt.Println("channels:", a.Channels, "max days:", a.MaxDays)
//
// Example accessing Socorro config:
//
//	config := configs.GetConfig()
//	fmt.Println("search endpoint:", config.Socorro.SearchURL())
package configs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// AppVersion 应用版本.
const AppVersion = "0.3.0"

// EnvPrefix 环境变量前缀，例如 FILE2CRASHES_SOCORRO_TOKEN.
const EnvPrefix = "FILE2CRASHES"

type (
	// AppConfig 全局应用程序配置.
	AppConfig struct {
		Server         ServerConfig         `mapstructure:"server"`          // ServerConfig 服务器配置
		Log            LogConfig            `mapstructure:"log"`             // LogConfig 日志相关配置
		DB             DBConfig             `mapstructure:"db"`              // DBConfig 数据库配置
		Socorro        SocorroConfig        `mapstructure:"socorro"`         // SocorroConfig 崩溃检索服务配置
		Analysis       AnalysisConfig       `mapstructure:"analysis"`        // AnalysisConfig 新签名分析配置
		CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"` // CircuitBreakerConfig 远程调用熔断
		RateLimit      RateLimitConfig      `mapstructure:"rate_limit"`      // RateLimitConfig API 限流
		Metrics        MetricsConfig        `mapstructure:"metrics"`         // MetricsConfig 监控指标
		Tracing        TracingConfig        `mapstructure:"tracing"`         // TracingConfig 链路追踪
		KV             KVConfig             `mapstructure:"kv"`              // KVConfig 崩溃数据缓存
		MQ             MQConfig             `mapstructure:"mq"`              // MQConfig 分析事件发布
		Events         EventsConfig         `mapstructure:"events"`          // EventsConfig 事件开关
		S3             S3Config             `mapstructure:"s3"`              // S3Config 分析结果归档
	}
)

var (
	// globalConfig 全局配置实例.
	globalConfig AppConfig
	// appViper 全局 Viper 实例.
	appViper *viper.Viper
)

// InitConfig 加载应用程序配置，支持多种格式(yaml、json、toml、dotenv)并启用热重载.
// 找不到配置文件时只使用默认值和环境变量.
func InitConfig(path string) error {
	appViper = viper.New()
	setAllDefaults(appViper)

	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		appViper.SetConfigFile(path)
	} else {
		appViper.SetConfigName("config")
		appViper.AddConfigPath(path)
		appViper.AddConfigPath(filepath.Join(path, "configs"))

		exts := []string{"yaml", "yml", "json", "toml", "env", "dotenv"}

		for _, ext := range exts {
			cfg := filepath.Join(path, "config."+ext)
			if _, err := os.Stat(cfg); err == nil {
				appViper.SetConfigFile(cfg)

				break
			}
		}
	}

	appViper.SetEnvPrefix(EnvPrefix)
	appViper.AutomaticEnv()

	if err := appViper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := appViper.Unmarshal(&globalConfig); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	reloadConfigs(appViper, globalConfig.Server.ReloadConfig)

	return nil
}

// setAllDefaults 设置所有配置的默认值.
func setAllDefaults(v *viper.Viper) {
	var (
		serverConfig    ServerConfig
		logConfig       LogConfig
		dbConfig        DBConfig
		socorroConfig   SocorroConfig
		analysisConfig  AnalysisConfig
		cbConfig        CircuitBreakerConfig
		rateLimitConfig RateLimitConfig
		metricsConfig   MetricsConfig
		tracingConfig   TracingConfig
		kvConfig        KVConfig
		mqConfig        MQConfig
		eventsConfig    EventsConfig
		s3Config        S3Config
	)

	serverConfig.setDefaults(v)
	logConfig.setDefaults(v)
	dbConfig.setDefaults(v)
	socorroConfig.setDefaults(v)
	analysisConfig.setDefaults(v)
	cbConfig.setDefaults(v)
	rateLimitConfig.setDefaults(v)
	metricsConfig.setDefaults(v)
	tracingConfig.setDefaults(v)
	kvConfig.setDefaults(v)
	mqConfig.setDefaults(v)
	eventsConfig.setDefaults(v)
	s3Config.setDefaults(v)
}

func reloadConfigs(v *viper.Viper, isHotReload bool) {
	if !isHotReload || v.ConfigFileUsed() == "" {
		return
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		fmt.Println("Config file changed:", e.Name)

		if err := v.Unmarshal(&globalConfig); err != nil {
			fmt.Printf("Error reloading config: %v\n", err)
		}
	})
	v.WatchConfig()
}

// GetConfig 返回全局配置实例.
func GetConfig() *AppConfig {
	return &globalConfig
}

// GetViper 返回全局 Viper 实例，未初始化时为 nil.
func GetViper() *viper.Viper {
	return appViper
}
