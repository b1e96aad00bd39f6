// Package types 定义 HTTP 接口的请求与响应结构.
package types

import (
	"github.com/bytedance/sonic"

	"github.com/yeisme/file2crashes/pkg/internal/analyze"
	"github.com/yeisme/file2crashes/pkg/internal/service"
	"github.com/yeisme/file2crashes/pkg/queue"
	"github.com/yeisme/file2crashes/pkg/rule"
)

// CrashesQuery GET /crashes 查询参数；未知的产品、渠道与无法解析的日期回退为默认值.
type CrashesQuery struct {
	Product string `form:"product" json:"product"`
	Channel string `form:"channel" json:"channel"`
	Dir     string `form:"dir"     json:"dir"     rule:"max=256"`
	Date    string `form:"date"    json:"date"    rule:"max=32"`
}

// ListQuery GET /list 查询参数.
type ListQuery struct {
	Product string `form:"product" json:"product"`
	Channel string `form:"channel" json:"channel"`
	Date    string `form:"date"    json:"date"    rule:"max=32"`
}

// AnalysisRunQuery POST /analysis/run 查询参数，未给出的字段取配置值.
type AnalysisRunQuery struct {
	Date      string   `form:"date"      json:"date"      rule:"omitempty,ymd|oneof=today yesterday"`
	Channels  []string `form:"channel"   json:"channel"   rule:"omitempty,dive,channel"`
	Products  []string `form:"product"   json:"product"   rule:"omitempty,dive,oneof=Firefox FennecAndroid"`
	MaxDays   *int     `form:"max_days"  json:"max_days"  rule:"omitempty,min=0,max=60"`
	Limit     *int     `form:"limit"     json:"limit"     rule:"omitempty,min=1"`
	Threshold *int     `form:"threshold" json:"threshold" rule:"omitempty,min=0"`
	DryRun    bool     `form:"dry_run"   json:"dry_run"`
}

// Validate 按 rule 标签校验参数.
func (q *AnalysisRunQuery) Validate() error {
	return rule.ValidateStruct(q)
}

// Apply 用已给出的字段覆盖运行参数，渠道名统一为小写.
func (q *AnalysisRunQuery) Apply(p *service.UpdateParams) {
	p.DryRun = q.DryRun

	if len(q.Channels) > 0 {
		p.Channels = make([]string, len(q.Channels))
		for i, ch := range q.Channels {
			p.Channels[i] = service.NormalizeChannel(ch)
		}
	}

	if len(q.Products) > 0 {
		p.Products = q.Products
	}

	if q.MaxDays != nil {
		p.MaxDays = *q.MaxDays
	}

	if q.Limit != nil {
		p.Limit = *q.Limit
	}

	if q.Threshold != nil {
		p.Threshold = *q.Threshold
	}
}

// EvidenceRow 以 [url, count, signature] 数组形式输出一条证据.
type EvidenceRow analyze.Evidence

// MarshalJSON 输出三元组.
func (r EvidenceRow) MarshalJSON() ([]byte, error) {
	return sonic.Marshal([]any{r.URL, r.Count, r.Signature})
}

// FileEvidence 文件名 -> 证据行，按崩溃数升序.
type FileEvidence map[string][]EvidenceRow

// NewFileEvidence 转换存储层的查询结果.
func NewFileEvidence(in map[string][]analyze.Evidence) FileEvidence {
	out := make(FileEvidence, len(in))

	for file, evs := range in {
		rows := make([]EvidenceRow, len(evs))
		for i, ev := range evs {
			rows[i] = EvidenceRow(ev)
		}

		out[file] = rows
	}

	return out
}

// AnalysisRunResponse POST /analysis/run 响应，省略完整结果以控制体积.
type AnalysisRunResponse struct {
	RunID      string              `json:"run_id"`
	Date       string              `json:"date"`
	DryRun     bool                `json:"dry_run"`
	Pairs      []queue.PairSummary `json:"pairs"`
	Evidence   int                 `json:"evidence"`
	Saved      bool                `json:"saved"`
	ArchiveKey string              `json:"archive_key,omitempty"`
	DurationMS int64               `json:"duration_ms"`
	Purged     int                 `json:"purged_responses"`
}
