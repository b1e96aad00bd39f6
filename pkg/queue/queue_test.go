package queue_test

import (
	"context"
	"testing"
	"time"

	"github.com/yeisme/file2crashes/pkg/configs"
	"github.com/yeisme/file2crashes/pkg/internal/storage/mq"
	"github.com/yeisme/file2crashes/pkg/queue"
)

// TestMessageID 测试确定性消息 ID.
func TestMessageID(t *testing.T) {
	a := queue.MessageID(queue.TopicAnalysisCompleted, "run-1")
	b := queue.MessageID(queue.TopicAnalysisCompleted, "run-1")
	c := queue.MessageID(queue.TopicAnalysisFailed, "run-1")

	if a != b {
		t.Fatalf("same input gave %s and %s", a, b)
	}

	if a == c {
		t.Fatalf("different topics share id %s", a)
	}
}

// TestNewWatermillMessage 测试信封与元数据.
func TestNewWatermillMessage(t *testing.T) {
	payload := queue.AnalysisFailedPayload{RunID: "run-2", Date: "2024-03-05", Error: "db down"}

	msg, err := queue.NewWatermillMessage(queue.TopicAnalysisFailed, payload,
		queue.WithProducer("file2crashes"), queue.WithTraceID("trace-1"))
	if err != nil {
		t.Fatalf("new message: %v", err)
	}

	if msg.Metadata.Get("topic") != queue.TopicAnalysisFailed || msg.Metadata.Get("trace_id") != "trace-1" {
		t.Fatalf("metadata = %v", msg.Metadata)
	}

	env, err := queue.ParseAnalysisFailed(msg)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if env.Payload != payload || env.Header.Producer != "file2crashes" || env.Header.Version != queue.PayloadVersionV1 {
		t.Fatalf("envelope = %+v", env)
	}
}

// TestPublishAnalysisCompleted 测试通过进程内 MQ 发布与订阅.
func TestPublishAnalysisCompleted(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := mq.New(ctx, configs.MQConfig{Type: configs.MQTypeGoChannel, BufferSize: 4}, mq.Options{})
	if err != nil {
		t.Fatalf("mq: %v", err)
	}
	defer c.Close()

	ch, err := c.Subscribe(ctx, queue.TopicAnalysisCompleted)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	payload := queue.AnalysisCompletedPayload{
		RunID:    "run-3",
		Date:     "2024-03-05",
		Pairs:    []queue.PairSummary{{Channel: "nightly", Product: "Firefox", Files: 2, Evidence: 3}},
		Evidence: 3,
		Saved:    true,
	}

	if err := queue.PublishAnalysisCompleted(c.Publisher(), payload); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case m := <-ch:
		defer m.Ack()

		if m.UUID != queue.MessageID(queue.TopicAnalysisCompleted, "run-3") {
			t.Errorf("message id = %s", m.UUID)
		}

		env, err := queue.ParseAnalysisCompleted(m)
		if err != nil {
			t.Fatalf("parse: %v", err)
		}

		if env.Payload.RunID != "run-3" || len(env.Payload.Pairs) != 1 || env.Payload.Pairs[0].Evidence != 3 {
			t.Errorf("payload = %+v", env.Payload)
		}
	case <-ctx.Done():
		t.Fatal("event not received")
	}
}
