package analyze

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/yeisme/file2crashes/pkg/internal/socorro"
)

const (
	// BatchSize 代表性崩溃查询每次携带的签名数.
	BatchSize = 5
	// RepresentativeFacetsSize 每个分块查询返回的桶数量上限.
	RepresentativeFacetsSize = 1000

	histogramFacet = "histogram_date"
	bucketFacet    = "proto_signature"
)

// HarvestParams 单个 (channel, product) 的采集参数.
type HarvestParams struct {
	Channel   string
	Product   string
	Date      time.Time // 参考日期，不包含在查询区间内
	MaxDays   int
	Limit     int
	Threshold int
}

// Occurrence 一个崩溃桶的代表性崩溃.
type Occurrence struct {
	Bucket    string `json:"bucket"`
	UUID      string `json:"uuid"`
	Count     int    `json:"count"`
	Signature string `json:"signature"`
}

// Harvest 采集结果.
type Harvest struct {
	Occurrences   map[string]Occurrence // 桶标识 -> 代表性崩溃
	SearchDate    socorro.SearchDate    // 直方图查询使用的日期条件，用于生成证据链接
	NewSignatures []string
}

// Harvest 查询窗口直方图，筛出新签名并为每个崩溃桶找到代表性崩溃.
// 远程查询失败只会缩小结果，不返回错误.
func (a *Analyzer) Harvest(ctx context.Context, p HarvestParams) Harvest {
	w := NewWindow(p.Date, p.MaxDays)
	out := Harvest{
		Occurrences: make(map[string]Occurrence),
		SearchDate:  w.SearchDate(),
	}

	logger := a.logger.With().Str("channel", p.Channel).Str("product", p.Product).Logger()

	h := a.histogram(ctx, logger, p, w)
	out.NewSignatures = NewSignatures(h, p.Threshold)

	logger.Debug().Int("signatures", len(h)).Int("new", len(out.NewSignatures)).Msg("histogram stage done")

	if len(out.NewSignatures) == 0 {
		return out
	}

	batches := chunks(out.NewSignatures, BatchSize)
	results := make([]map[string]Occurrence, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)

	for i, batch := range batches {
		g.Go(func() error {
			results[i] = a.representatives(gctx, logger.With().Int("chunk", i).Logger(), p, out.SearchDate, batch)
			return nil
		})
	}

	_ = g.Wait()

	for _, r := range results {
		for bucket, occ := range r {
			out.Occurrences[bucket] = occ
		}
	}

	return out
}

func (a *Analyzer) histogram(ctx context.Context, logger zerolog.Logger, p HarvestParams, w Window) Histogram {
	res, err := a.searcher.Search(ctx, socorro.SearchQuery{
		Product:    p.Product,
		Channel:    p.Channel,
		Date:       w.SearchDate(),
		Histogram:  "signature",
		FacetsSize: p.Limit,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("histogram query failed")
		return Histogram{}
	}

	b := newHistogramBuilder(w)

	for _, day := range res.Facets[histogramFacet] {
		d, ok := parseDay(day.Term)
		if !ok {
			logger.Debug().Str("term", day.Term).Msg("skip unparsable histogram day")
			continue
		}

		for _, sig := range day.Facets["signature"] {
			b.add(d, sig.Term, sig.Count)
		}
	}

	return b.h
}

// representativeQuery 返回一个签名分块的代表性崩溃查询.
func representativeQuery(p HarvestParams, date socorro.SearchDate, sigs []string) socorro.SearchQuery {
	exact := make([]string, len(sigs))
	for i, s := range sigs {
		exact[i] = "=" + s
	}

	return socorro.SearchQuery{
		Product:    p.Product,
		Channel:    p.Channel,
		Date:       date,
		Signatures: exact,
		Aggs:       map[string][]string{bucketFacet: {"uuid", "signature"}},
		FacetsSize: RepresentativeFacetsSize,
	}
}

func (a *Analyzer) representatives(ctx context.Context, logger zerolog.Logger, p HarvestParams, date socorro.SearchDate, sigs []string) map[string]Occurrence {
	res, err := a.searcher.Search(ctx, representativeQuery(p, date, sigs))
	if err != nil {
		logger.Warn().Err(err).Strs("signatures", sigs).Msg("representative query failed")
		return nil
	}

	out := make(map[string]Occurrence)

	for _, bucket := range res.Facets[bucketFacet] {
		uuid, ok := bucket.First("uuid")
		if !ok {
			continue
		}

		sig, ok := bucket.First("signature")
		if !ok {
			continue
		}

		out[bucket.Term] = Occurrence{
			Bucket:    bucket.Term,
			UUID:      uuid.Term,
			Count:     bucket.Count,
			Signature: sig.Term,
		}
	}

	return out
}

func chunks(s []string, size int) [][]string {
	out := make([][]string, 0, (len(s)+size-1)/size)

	for size < len(s) {
		out = append(out, s[:size:size])
		s = s[size:]
	}

	if len(s) > 0 {
		out = append(out, s)
	}

	return out
}
