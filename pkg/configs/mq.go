package configs

import (
	"github.com/spf13/viper"
)

// MQType 消息队列类型.
type MQType string

const (
	MQTypeNATS      MQType = "nats"
	MQTypeGoChannel MQType = "gochannel" // 进程内，用于单机与测试

	DefaultMQURL         = "nats://localhost:4222"
	DefaultMaxReconnects = 5                  // 默认最大重连次数
	DefaultReconnectWait = 5                  // 默认重连等待时间（秒）
	DefaultPingInterval  = 20                 // 默认ping间隔（秒）
	DefaultBufferSize    = 32768              // 默认重连缓冲区大小 (32KB)
	DefaultMQClientID    = "file2crashes-app" // 默认客户端ID
)

// MQConfig 消息队列配置，分析完成后通过它发布事件.
type MQConfig struct {
	Enabled       bool         `mapstructure:"enabled"`
	Type          MQType       `mapstructure:"type"           rule:"oneof=nats gochannel"`
	URL           string       `mapstructure:"url"`
	User          string       `mapstructure:"user"`
	Password      string       `mapstructure:"password"`
	ClientID      string       `mapstructure:"client_id"`
	MaxReconnects int          `mapstructure:"max_reconnects" rule:"min=0,max=100"`
	ReconnectWait int          `mapstructure:"reconnect_wait" rule:"min=1,max=300"`
	PingInterval  int          `mapstructure:"ping_interval"  rule:"min=1,max=300"`
	BufferSize    int          `mapstructure:"buffer_size"    rule:"min=1024,max=1048576"`
	NATS          MQNATSConfig `mapstructure:"nats"`
}

// MQNATSConfig NATS MQ 配置.
type MQNATSConfig struct {
	JetStreamEnabled       bool     `mapstructure:"jetstream_enabled"`
	JetStreamAutoProvision bool     `mapstructure:"jetstream_auto_provision"`
	JetStreamTrackMsgID    bool     `mapstructure:"jetstream_track_msg_id"`
	JetStreamAckAsync      bool     `mapstructure:"jetstream_ack_async"`
	JetStreamDurablePrefix string   `mapstructure:"jetstream_durable_prefix"`
	JWT                    string   `mapstructure:"jwt"`
	NKey                   string   `mapstructure:"nkey"`
	ClusterURLs            []string `mapstructure:"cluster_urls"`
}

// GetMQType 返回当前配置的消息队列类型.
func (c *MQConfig) GetMQType() MQType {
	return c.Type
}

// setDefaults 设置MQ配置的默认值.
func (c *MQConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("mq.enabled", false)
	v.SetDefault("mq.type", MQTypeNATS)
	v.SetDefault("mq.url", DefaultMQURL)
	v.SetDefault("mq.user", "")
	v.SetDefault("mq.password", "")
	v.SetDefault("mq.client_id", DefaultMQClientID)
	v.SetDefault("mq.max_reconnects", DefaultMaxReconnects)
	v.SetDefault("mq.reconnect_wait", DefaultReconnectWait)
	v.SetDefault("mq.ping_interval", DefaultPingInterval)
	v.SetDefault("mq.buffer_size", DefaultBufferSize)

	v.SetDefault("mq.nats.jetstream_enabled", true)
	v.SetDefault("mq.nats.jetstream_auto_provision", true)
	v.SetDefault("mq.nats.jetstream_track_msg_id", true)
	v.SetDefault("mq.nats.jetstream_ack_async", false)
	v.SetDefault("mq.nats.jetstream_durable_prefix", "file2crashes")
	v.SetDefault("mq.nats.jwt", "")
	v.SetDefault("mq.nats.nkey", "")
	v.SetDefault("mq.nats.cluster_urls", []string{})
}
