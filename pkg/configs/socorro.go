package configs

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultSocorroBaseURL     = "https://crash-stats.mozilla.org" // 默认崩溃检索服务地址
	DefaultSocorroTimeout     = 60                                // 单次请求超时（秒）
	DefaultSocorroRPS         = 10.0                              // 每秒请求数上限
	DefaultSocorroBurst       = 10                                // 突发请求数
	DefaultSocorroConcurrency = 8                                 // 并发请求数
	DefaultSocorroCacheTTL    = 7 * 24 * 3600                     // 崩溃详情缓存时长（秒）
	DefaultSocorroUserAgent   = "file2crashes/" + AppVersion
)

// SocorroConfig 崩溃检索服务（SuperSearch / ProcessedCrash）配置.
type SocorroConfig struct {
	BaseURL      string  `mapstructure:"base_url"      rule:"required,url"`
	Token        string  `mapstructure:"token"`                             // Auth-Token，可为空
	Timeout      int     `mapstructure:"timeout"       rule:"min=1,max=600"`
	RPS          float64 `mapstructure:"rps"           rule:"gte=0"`   // 0 表示不限速
	Burst        int     `mapstructure:"burst"         rule:"min=1"`   // 令牌桶容量
	Concurrency  int     `mapstructure:"concurrency"   rule:"min=1,max=64"`
	CacheEnabled bool    `mapstructure:"cache_enabled"`                 // 是否缓存 ProcessedCrash
	CacheTTL     int     `mapstructure:"cache_ttl"     rule:"min=0"`   // 缓存时长（秒）
	UserAgent    string  `mapstructure:"user_agent"`
}

// GetTimeoutDuration 返回请求超时时间.
func (c *SocorroConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// GetCacheTTL 返回缓存时长.
func (c *SocorroConfig) GetCacheTTL() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}

// SearchURL 返回 SuperSearch API 地址.
func (c *SocorroConfig) SearchURL() string {
	return strings.TrimRight(c.BaseURL, "/") + "/api/SuperSearch/"
}

// ProcessedCrashURL 返回 ProcessedCrash API 地址.
func (c *SocorroConfig) ProcessedCrashURL() string {
	return strings.TrimRight(c.BaseURL, "/") + "/api/ProcessedCrash/"
}

// SearchLinkURL 返回面向用户的检索页面地址，用于生成可回溯的链接.
func (c *SocorroConfig) SearchLinkURL() string {
	return strings.TrimRight(c.BaseURL, "/") + "/search/"
}

// setDefaults 设置崩溃检索服务配置的默认值.
func (c *SocorroConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("socorro.base_url", DefaultSocorroBaseURL)
	v.SetDefault("socorro.token", "")
	v.SetDefault("socorro.timeout", DefaultSocorroTimeout)
	v.SetDefault("socorro.rps", DefaultSocorroRPS)
	v.SetDefault("socorro.burst", DefaultSocorroBurst)
	v.SetDefault("socorro.concurrency", DefaultSocorroConcurrency)
	v.SetDefault("socorro.cache_enabled", true)
	v.SetDefault("socorro.cache_ttl", DefaultSocorroCacheTTL)
	v.SetDefault("socorro.user_agent", DefaultSocorroUserAgent)
}
