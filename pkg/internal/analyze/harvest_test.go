package analyze_test

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"testing"
	"time"

	"github.com/yeisme/file2crashes/pkg/internal/analyze"
	"github.com/yeisme/file2crashes/pkg/internal/socorro"
)

var refDate = time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

func harvestParams() analyze.HarvestParams {
	return analyze.HarvestParams{
		Channel: "nightly",
		Product: "Firefox",
		Date:    refDate,
		MaxDays: 2,
		Limit:   10000,
	}
}

// TestHarvestChunks 测试 12 个新签名分成 5、5、2 三个分块查询.
func TestHarvestChunks(t *testing.T) {
	counts := map[string]int{}
	buckets := map[string][]bucket{}

	for i := range 12 {
		sig := fmt.Sprintf("Sig%02d", i)
		counts[sig] = i + 1
		buckets[sig] = []bucket{{id: "proto-" + sig, uuid: "uuid-" + sig, count: i + 1}}
	}

	s := &fakeSearcher{
		histogram: []socorro.Facet{day("2024-03-04", counts)},
		buckets:   buckets,
	}

	h := newAnalyzer(s, &fakeFetcher{}).Harvest(context.Background(), harvestParams())

	if len(h.NewSignatures) != 12 {
		t.Fatalf("new signatures = %v", h.NewSignatures)
	}

	chunks := s.chunkQueries()

	sizes := make([]int, 0, len(chunks))
	var all []string

	for _, c := range chunks {
		sizes = append(sizes, len(c))
		all = append(all, c...)
	}

	sort.Ints(sizes)

	if want := []int{2, 5, 5}; !slices.Equal(sizes, want) {
		t.Fatalf("chunk sizes = %v, want %v", sizes, want)
	}

	sort.Strings(all)

	for i, sig := range all {
		if want := fmt.Sprintf("=Sig%02d", i); sig != want {
			t.Fatalf("chunk signature %d = %s, want %s", i, sig, want)
		}
	}

	if len(h.Occurrences) != 12 {
		t.Fatalf("occurrences = %d", len(h.Occurrences))
	}

	occ := h.Occurrences["proto-Sig03"]
	if occ.UUID != "uuid-Sig03" || occ.Count != 4 || occ.Signature != "Sig03" || occ.Bucket != "proto-Sig03" {
		t.Fatalf("unexpected occurrence %+v", occ)
	}
}

// TestHarvestQueries 测试两个阶段的查询参数.
func TestHarvestQueries(t *testing.T) {
	s := &fakeSearcher{
		histogram: []socorro.Facet{day("2024-03-04", map[string]int{"SigA": 2})},
		buckets:   map[string][]bucket{"SigA": {{id: "p1", uuid: "u1", count: 2}}},
	}

	p := harvestParams()
	p.Limit = 50

	h := newAnalyzer(s, &fakeFetcher{}).Harvest(context.Background(), p)

	wantDate := []string{">=2024-03-02", "<2024-03-05"}
	if !slices.Equal(h.SearchDate, wantDate) {
		t.Fatalf("search date = %v", h.SearchDate)
	}

	if len(s.queries) != 2 {
		t.Fatalf("queries = %d", len(s.queries))
	}

	hist := s.queries[0]
	if hist.Histogram != "signature" || hist.FacetsSize != 50 || hist.Channel != "nightly" || hist.Product != "Firefox" {
		t.Fatalf("unexpected histogram query %+v", hist)
	}

	rep := s.queries[1]
	if rep.FacetsSize != analyze.RepresentativeFacetsSize || !slices.Equal(rep.Date, wantDate) {
		t.Fatalf("unexpected representative query %+v", rep)
	}

	if !slices.Equal(rep.Aggs["proto_signature"], []string{"uuid", "signature"}) {
		t.Fatalf("aggs = %v", rep.Aggs)
	}

	if !slices.Equal(rep.Signatures, []string{"=SigA"}) {
		t.Fatalf("signatures = %v", rep.Signatures)
	}
}

// TestHarvestTrendFilter 测试窗口内有历史的签名与窗口外的日期.
func TestHarvestTrendFilter(t *testing.T) {
	s := &fakeSearcher{
		histogram: []socorro.Facet{
			day("2024-03-01", map[string]int{"SigOld": 3, "SigNew": 7}),
			day("2024-03-02", map[string]int{"SigB": 1}),
			day("2024-03-04", map[string]int{"SigB": 5, "SigNew": 4, "SigLow": 1}),
			{Term: "not-a-date", Count: 1},
		},
		buckets: map[string][]bucket{"SigNew": {{id: "p1", uuid: "u1", count: 4}}},
	}

	p := harvestParams()
	p.Threshold = 2

	h := newAnalyzer(s, &fakeFetcher{}).Harvest(context.Background(), p)

	if want := []string{"SigNew"}; !slices.Equal(h.NewSignatures, want) {
		t.Fatalf("new signatures = %v, want %v", h.NewSignatures, want)
	}
}

// TestHarvestHistogramError 测试直方图查询失败时整体返回空.
func TestHarvestHistogramError(t *testing.T) {
	s := &fakeSearcher{histErr: socorro.ErrSearchFailed}

	h := newAnalyzer(s, &fakeFetcher{}).Harvest(context.Background(), harvestParams())

	if len(h.NewSignatures) != 0 || len(h.Occurrences) != 0 {
		t.Fatalf("expected empty harvest, got %+v", h)
	}

	if len(s.chunkQueries()) != 0 {
		t.Fatalf("representative stage ran after histogram failure")
	}
}

// TestHarvestNoNewSignatures 测试没有新签名时不发分块查询.
func TestHarvestNoNewSignatures(t *testing.T) {
	s := &fakeSearcher{
		histogram: []socorro.Facet{
			day("2024-03-02", map[string]int{"SigB": 1}),
			day("2024-03-04", map[string]int{"SigB": 5}),
		},
	}

	h := newAnalyzer(s, &fakeFetcher{}).Harvest(context.Background(), harvestParams())

	if len(h.Occurrences) != 0 || len(s.chunkQueries()) != 0 {
		t.Fatalf("unexpected harvest %+v", h)
	}
}

// TestHarvestChunkError 测试单个分块失败只丢弃该分块的桶.
func TestHarvestChunkError(t *testing.T) {
	counts := map[string]int{}
	buckets := map[string][]bucket{}

	for i := range 7 {
		sig := fmt.Sprintf("Sig%d", i)
		counts[sig] = 1
		buckets[sig] = []bucket{{id: "proto-" + sig, uuid: "uuid-" + sig, count: 1}}
	}

	s := &fakeSearcher{
		histogram: []socorro.Facet{day("2024-03-04", counts)},
		buckets:   buckets,
		failSig:   "Sig2",
	}

	h := newAnalyzer(s, &fakeFetcher{}).Harvest(context.Background(), harvestParams())

	got := make([]string, 0, len(h.Occurrences))
	for b := range h.Occurrences {
		got = append(got, b)
	}

	sort.Strings(got)

	if want := []string{"proto-Sig5", "proto-Sig6"}; !slices.Equal(got, want) {
		t.Fatalf("occurrences = %v, want %v", got, want)
	}
}

// TestHarvestSkipsIncompleteBuckets 测试缺少 uuid 或签名子聚合的桶被跳过.
func TestHarvestSkipsIncompleteBuckets(t *testing.T) {
	s := &incompleteSearcher{}

	h := newAnalyzer(s, &fakeFetcher{}).Harvest(context.Background(), harvestParams())

	if len(h.Occurrences) != 1 {
		t.Fatalf("occurrences = %+v", h.Occurrences)
	}

	if _, ok := h.Occurrences["complete"]; !ok {
		t.Fatalf("complete bucket missing: %+v", h.Occurrences)
	}
}

type incompleteSearcher struct{ fakeSearcher }

func (s *incompleteSearcher) Search(_ context.Context, q socorro.SearchQuery) (*socorro.SearchResult, error) {
	if q.Histogram != "" {
		return &socorro.SearchResult{Facets: map[string][]socorro.Facet{
			"histogram_date": {day("2024-03-04", map[string]int{"SigA": 3})},
		}}, nil
	}

	return &socorro.SearchResult{Facets: map[string][]socorro.Facet{
		"proto_signature": {
			{Term: "no-uuid", Count: 1, Facets: map[string][]socorro.Facet{"signature": {{Term: "SigA"}}}},
			{Term: "no-signature", Count: 1, Facets: map[string][]socorro.Facet{"uuid": {{Term: "u2"}}}},
			{Term: "complete", Count: 3, Facets: map[string][]socorro.Facet{
				"uuid":      {{Term: "u3"}},
				"signature": {{Term: "SigA"}},
			}},
		},
	}}, nil
}
