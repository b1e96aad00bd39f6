package queue

// 主题命名规范：f2c.<域>.<状态>，尽量稳定且向后兼容.

const (
	// 新签名分析领域.
	TopicAnalysisCompleted = "f2c.analysis.completed" // 一次分析运行完成（结果已写库，可能已归档）
	TopicAnalysisFailed    = "f2c.analysis.failed"    // 分析运行失败（写库或归档出错）

	// 通配订阅模式.
	TopicAnalysisAll = "f2c.analysis.>"
)

// AllTopics 返回全部已定义的主题.
func AllTopics() []string {
	return []string{TopicAnalysisCompleted, TopicAnalysisFailed}
}
