package queue

import "time"

// EventHeader 定义所有事件的通用头部元数据.
type EventHeader struct {
	// Topic 冗余记录消息主题，便于离线处理或转储后定位来源主题.
	Topic string `json:"topic"`
	// TraceID 分布式追踪/关联 ID.
	TraceID string `json:"trace_id,omitempty"`
	// Producer 生产者服务名或节点标识.
	Producer string `json:"producer,omitempty"`
	// OccurredAt 事件发生时间（UTC，RFC3339）.
	OccurredAt time.Time `json:"occurred_at"`
	// Version 事件负载版本.
	Version string `json:"version,omitempty"`
}

// Message 是统一的消息封装，Header + Payload.
type Message[T any] struct {
	Header  EventHeader `json:"header"`
	Payload T           `json:"payload"`
}

// PairSummary 一个 (channel, product) 组合的分析结果概况.
type PairSummary struct {
	Channel  string `json:"channel"`
	Product  string `json:"product"`
	Files    int    `json:"files"`
	Evidence int    `json:"evidence"`
}

// AnalysisCompletedPayload 分析运行完成.
type AnalysisCompletedPayload struct {
	RunID      string        `json:"run_id"`
	Date       string        `json:"date"` // 参考日期 YYYY-MM-DD
	Trigger    string        `json:"trigger,omitempty"`
	Pairs      []PairSummary `json:"pairs"`
	Evidence   int           `json:"evidence"`
	Saved      bool          `json:"saved"`
	ArchiveKey string        `json:"archive_key,omitempty"` // 结果在对象存储中的键
	DurationMS int64         `json:"duration_ms"`
}

// AnalysisFailedPayload 分析运行失败.
type AnalysisFailedPayload struct {
	RunID   string `json:"run_id"`
	Date    string `json:"date"`
	Trigger string `json:"trigger,omitempty"`
	Error   string `json:"error"`
}
