// Package queue 定义分析事件的主题、负载与消息封装.
//
// 消息信封 JSON 结构
//
//	{
//	  "header": {
//	    "topic": "f2c.analysis.completed",
//	    "trace_id": "optional-trace-id",
//	    "producer": "file2crashes",
//	    "occurred_at": "2025-01-02T03:04:05.123456Z",
//	    "version": "v1"
//	  },
//	  "payload": { ... 取决于具体主题 ... }
//	}
//
// 发布/订阅示例
//
//	msg, _ := queue.NewWatermillMessage(
//	  queue.TopicAnalysisCompleted, payload,
//	  queue.WithProducer("file2crashes"),
//	  queue.WithDedupKey(payload.RunID),
//	)
//	_ = client.Publish(ctx, queue.TopicAnalysisCompleted, msg)
//
//	ch, _ := client.Subscribe(ctx, queue.TopicAnalysisCompleted)
//	for m := range ch {
//	    env, _ := queue.ParseAnalysisCompleted(m)
//	    // 使用 env.Header / env.Payload ...
//	    m.Ack()
//	}
//
// 设置 WithDedupKey 时消息 ID 由 topic 与该键的 xxhash 确定，消费者可据此去重.
package queue

import (
	"strconv"
	"time"

	watermill "github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/bytedance/sonic"
	"github.com/cespare/xxhash/v2"
)

const (
	PayloadVersionV1 string = "v1"
)

// options 构造消息时的可选项.
type options struct {
	header   EventHeader
	dedupKey string
}

// Option 消息可选项.
type Option func(*options)

// WithTraceID 设置 TraceID.
func WithTraceID(id string) Option { return func(o *options) { o.header.TraceID = id } }

// WithProducer 设置 Producer.
func WithProducer(p string) Option { return func(o *options) { o.header.Producer = p } }

// WithDedupKey 使用确定性消息 ID.
func WithDedupKey(key string) Option { return func(o *options) { o.dedupKey = key } }

// NewEventHeader 便捷创建事件头.
func NewEventHeader(topic string, opts ...Option) EventHeader {
	return buildOptions(topic, opts).header
}

func buildOptions(topic string, opts []Option) options {
	o := options{header: EventHeader{
		Topic:      topic,
		OccurredAt: time.Now().UTC(),
		Version:    PayloadVersionV1,
	}}
	for _, opt := range opts {
		opt(&o)
	}

	return o
}

// MessageID 返回 topic 与 key 对应的确定性消息 ID.
func MessageID(topic, key string) string {
	d := xxhash.New()
	_, _ = d.WriteString(topic)
	_, _ = d.WriteString("|")
	_, _ = d.WriteString(key)

	return strconv.FormatUint(d.Sum64(), 16)
}

// Encode 将消息封装为 JSON 字节切片.
func Encode[T any](msg Message[T]) ([]byte, error) { return sonic.Marshal(msg) }

// Decode 从 JSON 字节解码为消息.
func Decode[T any](b []byte) (Message[T], error) {
	var m Message[T]

	err := sonic.Unmarshal(b, &m)

	return m, err
}

// NewWatermillMessage 构造一个 watermill 消息，设置 ID 与元数据.
func NewWatermillMessage[T any](topic string, payload T, opts ...Option) (*message.Message, error) {
	o := buildOptions(topic, opts)
	header := o.header
	env := Message[T]{Header: header, Payload: payload}

	data, err := Encode(env)
	if err != nil {
		return nil, err
	}

	id := watermill.NewUUID()
	if o.dedupKey != "" {
		id = MessageID(topic, o.dedupKey)
	}

	msg := message.NewMessage(id, data)
	msg.Metadata.Set("topic", topic)

	if header.TraceID != "" {
		msg.Metadata.Set("trace_id", header.TraceID)
	}

	if header.Producer != "" {
		msg.Metadata.Set("producer", header.Producer)
	}

	msg.Metadata.Set("occurred_at", header.OccurredAt.Format(time.RFC3339Nano))

	if header.Version != "" {
		msg.Metadata.Set("version", header.Version)
	}

	return msg, nil
}

// ParseWatermillMessage 解出泛型负载.
func ParseWatermillMessage[T any](msg *message.Message) (Message[T], error) {
	return Decode[T](msg.Payload)
}
