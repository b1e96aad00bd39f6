// Package analyze 找出最近一个窗口内首次出现的崩溃签名，并把它们的崩溃栈归到源文件上.
//
// 流程：Harvest 查询逐日直方图并筛出新签名，再为每个崩溃桶取一个代表性崩溃；
// ExtractFiles 获取代表性崩溃的负载并解析崩溃线程的源文件；
// Run 按 (channel, product) 组合汇总为 Result.
package analyze

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/yeisme/file2crashes/pkg/internal/socorro"
	"github.com/yeisme/file2crashes/pkg/log"
	"github.com/yeisme/file2crashes/pkg/metrics"
	"github.com/yeisme/file2crashes/pkg/tracing"
)

// DefaultConcurrency 未指定时的远程请求并发数.
const DefaultConcurrency = 8

// Searcher 聚合检索服务.
type Searcher interface {
	Search(ctx context.Context, q socorro.SearchQuery) (*socorro.SearchResult, error)
	SearchLink(q socorro.SearchQuery) string
}

// PayloadFetcher 崩溃负载获取服务.
type PayloadFetcher interface {
	ProcessedCrash(ctx context.Context, crashID string) (*socorro.ProcessedCrash, error)
}

// Evidence 一条文件证据.
type Evidence struct {
	URL       string `json:"url"`
	Count     int    `json:"count"`
	Signature string `json:"signature"`
}

// Result channel -> product -> 文件 -> 按计数升序的证据列表.
type Result map[string]map[string]map[string][]Evidence

// Len 返回证据总条数.
func (r Result) Len() int {
	n := 0

	for _, products := range r {
		for _, files := range products {
			for _, ev := range files {
				n += len(ev)
			}
		}
	}

	return n
}

// RunParams 一次分析的参数.
type RunParams struct {
	Channels  []string
	Products  []string
	Date      time.Time
	MaxDays   int
	Limit     int
	Threshold int
}

// Options Analyzer 选项.
type Options struct {
	Concurrency int
	Logger      *zerolog.Logger
}

// Analyzer 组合检索与负载获取服务执行分析，不持有跨调用的状态.
type Analyzer struct {
	searcher    Searcher
	fetcher     PayloadFetcher
	concurrency int
	logger      zerolog.Logger
}

// New 创建 Analyzer.
func New(s Searcher, f PayloadFetcher, opts Options) *Analyzer {
	a := &Analyzer{
		searcher:    s,
		fetcher:     f,
		concurrency: opts.Concurrency,
	}

	if a.concurrency <= 0 {
		a.concurrency = DefaultConcurrency
	}

	if opts.Logger != nil {
		a.logger = *opts.Logger
	} else {
		a.logger = *log.Logger()
	}

	a.logger = a.logger.With().Str("component", "analyze").Logger()

	return a
}

// Run 对每个 (channel, product) 组合执行采集与文件提取，汇总文件证据.
// 没有证据的组合不出现在结果中.
func (a *Analyzer) Run(ctx context.Context, p RunParams) Result {
	ctx, span := tracing.StartSpan(ctx, "analyze.Run")
	defer span.End()

	result := make(Result)

	for _, channel := range p.Channels {
		for _, product := range p.Products {
			hp := HarvestParams{
				Channel:   channel,
				Product:   product,
				Date:      p.Date,
				MaxDays:   p.MaxDays,
				Limit:     p.Limit,
				Threshold: p.Threshold,
			}

			files := a.runPair(ctx, hp)

			n := 0
			for _, ev := range files {
				n += len(ev)
			}

			metrics.AnalysisEvidence.WithLabelValues(channel, product).Set(float64(n))

			if len(files) == 0 {
				continue
			}

			products, ok := result[channel]
			if !ok {
				products = make(map[string]map[string][]Evidence)
				result[channel] = products
			}

			products[product] = files
		}
	}

	return result
}

func (a *Analyzer) runPair(ctx context.Context, p HarvestParams) map[string][]Evidence {
	h := a.Harvest(ctx, p)
	metrics.AnalysisNewSignatures.WithLabelValues(p.Channel, p.Product).Set(float64(len(h.NewSignatures)))

	files := make(map[string][]Evidence)
	if len(h.Occurrences) == 0 {
		return files
	}

	for bucket, set := range a.ExtractFiles(ctx, h.Occurrences) {
		occ := h.Occurrences[bucket]
		url := a.searcher.SearchLink(EvidenceQuery(p, h.SearchDate, bucket))

		for file := range set {
			if file == "" {
				continue
			}

			files[file] = append(files[file], Evidence{URL: url, Count: occ.Count, Signature: occ.Signature})
		}
	}

	for _, ev := range files {
		SortEvidence(ev)
	}

	a.logger.Info().
		Str("channel", p.Channel).
		Str("product", p.Product).
		Int("new_signatures", len(h.NewSignatures)).
		Int("buckets", len(h.Occurrences)).
		Int("files", len(files)).
		Msg("analysis pair done")

	return files
}

// EvidenceQuery 返回证据链接对应的检索条件，与代表性崩溃查询使用相同的范围.
func EvidenceQuery(p HarvestParams, date socorro.SearchDate, bucket string) socorro.SearchQuery {
	return socorro.SearchQuery{
		Product:        p.Product,
		Channel:        p.Channel,
		Date:           date,
		ProtoSignature: "=" + bucket,
	}
}

// SortEvidence 按计数升序排序，计数相同时按签名与链接排序.
func SortEvidence(ev []Evidence) {
	sort.Slice(ev, func(i, j int) bool {
		if ev[i].Count != ev[j].Count {
			return ev[i].Count < ev[j].Count
		}

		if ev[i].Signature != ev[j].Signature {
			return ev[i].Signature < ev[j].Signature
		}

		return ev[i].URL < ev[j].URL
	})
}
