package socorro

import (
	"net/url"
	"sort"
	"strconv"
)

// SearchDate SuperSearch 的日期条件，例如 [">=2024-03-01", "<2024-03-05"].
type SearchDate []string

// SearchQuery SuperSearch 查询参数，零值字段不会出现在请求中.
type SearchQuery struct {
	Product        string
	Channel        string
	Date           SearchDate
	Signatures     []string            // 原样传递，精确匹配需带 "=" 前缀
	ProtoSignature string              // 原样传递
	Histogram      string              // _histogram.date 的分组字段
	Aggs           map[string][]string // _aggs.<field> -> 子聚合字段
	FacetsSize     int
	ResultsNumber  int // 仅 Search 使用，默认 0 只取聚合
}

// Values 返回查询对应的 URL 参数，不含 _results_number.
func (q SearchQuery) Values() url.Values {
	v := url.Values{}

	if q.Product != "" {
		v.Set("product", q.Product)
	}

	if q.Channel != "" {
		v.Set("release_channel", q.Channel)
	}

	for _, d := range q.Date {
		v.Add("date", d)
	}

	for _, s := range q.Signatures {
		v.Add("signature", s)
	}

	if q.ProtoSignature != "" {
		v.Set("proto_signature", q.ProtoSignature)
	}

	if q.Histogram != "" {
		v.Set("_histogram.date", q.Histogram)
	}

	fields := make([]string, 0, len(q.Aggs))
	for f := range q.Aggs {
		fields = append(fields, f)
	}

	sort.Strings(fields)

	for _, f := range fields {
		for _, sub := range q.Aggs[f] {
			v.Add("_aggs."+f, sub)
		}
	}

	if q.FacetsSize > 0 {
		v.Set("_facets_size", strconv.Itoa(q.FacetsSize))
	}

	return v
}

// SearchResult SuperSearch 响应中用到的部分.
type SearchResult struct {
	// Errors 非空表示服务端认为查询失败，元素格式不固定
	Errors []any              `json:"errors"`
	Facets map[string][]Facet `json:"facets"`
	Total  int                `json:"total"`
}

// Facet 聚合桶，可嵌套.
type Facet struct {
	Term   string             `json:"term"`
	Count  int                `json:"count"`
	Facets map[string][]Facet `json:"facets,omitempty"`
}

// First 返回子聚合 field 的第一个桶.
func (f Facet) First(field string) (Facet, bool) {
	sub := f.Facets[field]
	if len(sub) == 0 {
		return Facet{}, false
	}

	return sub[0], true
}

// ProcessedCrash ProcessedCrash 响应中用到的部分，可选字段用指针表示是否存在.
type ProcessedCrash struct {
	UUID          string    `json:"uuid"`
	CrashedThread *int      `json:"crashedThread"`
	JSONDump      *JSONDump `json:"json_dump"`
}

// JSONDump minidump 解析结果.
type JSONDump struct {
	Threads []Thread `json:"threads"`
}

// Thread 线程栈，Frames 为 nil 表示负载中没有帧列表.
type Thread struct {
	Frames []Frame `json:"frames"`
}

// Frame 栈帧，File 为 nil 表示没有源文件信息.
type Frame struct {
	Frame    int     `json:"frame"`
	Function string  `json:"function,omitempty"`
	File     *string `json:"file,omitempty"`
}

// CrashingFrames 返回崩溃线程的帧；缺少线程索引、线程列表或帧列表时 ok 为 false.
func (p *ProcessedCrash) CrashingFrames() ([]Frame, bool) {
	if p == nil || p.CrashedThread == nil || p.JSONDump == nil || p.JSONDump.Threads == nil {
		return nil, false
	}

	idx := *p.CrashedThread
	if idx < 0 || idx >= len(p.JSONDump.Threads) {
		return nil, false
	}

	frames := p.JSONDump.Threads[idx].Frames
	if frames == nil {
		return nil, false
	}

	return frames, true
}
