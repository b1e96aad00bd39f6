package queue

import "github.com/ThreeDotsLabs/watermill/message"

// PublishAnalysisCompleted 发布 f2c.analysis.completed 事件，消息 ID 由 RunID 确定.
func PublishAnalysisCompleted(pub message.Publisher, payload AnalysisCompletedPayload, opts ...Option) error {
	opts = append(opts, WithDedupKey(payload.RunID))

	msg, err := NewWatermillMessage(TopicAnalysisCompleted, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicAnalysisCompleted, msg)
}

// ParseAnalysisCompleted 将 Watermill 消息解析为强类型 Envelope.
func ParseAnalysisCompleted(msg *message.Message) (Message[AnalysisCompletedPayload], error) {
	return ParseWatermillMessage[AnalysisCompletedPayload](msg)
}

// PublishAnalysisFailed 发布 f2c.analysis.failed 事件.
func PublishAnalysisFailed(pub message.Publisher, payload AnalysisFailedPayload, opts ...Option) error {
	opts = append(opts, WithDedupKey(payload.RunID))

	msg, err := NewWatermillMessage(TopicAnalysisFailed, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicAnalysisFailed, msg)
}

// ParseAnalysisFailed 将 Watermill 消息解析为强类型 Envelope.
func ParseAnalysisFailed(msg *message.Message) (Message[AnalysisFailedPayload], error) {
	return ParseWatermillMessage[AnalysisFailedPayload](msg)
}
