package analyze_test

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/yeisme/file2crashes/pkg/internal/analyze"
	"github.com/yeisme/file2crashes/pkg/internal/socorro"
)

var errRemote = errors.New("remote failed")

// bucket 一个假的崩溃桶.
type bucket struct {
	id    string
	uuid  string
	count int
}

// fakeSearcher 按查询类型返回预置的聚合结果，并记录收到的查询.
type fakeSearcher struct {
	mu      sync.Mutex
	queries []socorro.SearchQuery

	histogram []socorro.Facet
	histErr   error
	buckets   map[string][]bucket // 签名 -> 桶
	failSig   string              // 包含该签名的分块查询失败
}

func day(date string, counts map[string]int) socorro.Facet {
	f := socorro.Facet{Term: date + "T00:00:00+00:00", Facets: map[string][]socorro.Facet{}}

	for sig, c := range counts {
		f.Count += c
		f.Facets["signature"] = append(f.Facets["signature"], socorro.Facet{Term: sig, Count: c})
	}

	return f
}

func (s *fakeSearcher) Search(_ context.Context, q socorro.SearchQuery) (*socorro.SearchResult, error) {
	s.mu.Lock()
	s.queries = append(s.queries, q)
	s.mu.Unlock()

	if q.Histogram != "" {
		if s.histErr != nil {
			return nil, s.histErr
		}

		return &socorro.SearchResult{Facets: map[string][]socorro.Facet{"histogram_date": s.histogram}}, nil
	}

	res := &socorro.SearchResult{Facets: map[string][]socorro.Facet{}}

	for _, exact := range q.Signatures {
		sig := strings.TrimPrefix(exact, "=")
		if s.failSig != "" && sig == s.failSig {
			return nil, errRemote
		}

		for _, b := range s.buckets[sig] {
			res.Facets["proto_signature"] = append(res.Facets["proto_signature"], socorro.Facet{
				Term:  b.id,
				Count: b.count,
				Facets: map[string][]socorro.Facet{
					"uuid":      {{Term: b.uuid, Count: 1}},
					"signature": {{Term: sig, Count: b.count}},
				},
			})
		}
	}

	return res, nil
}

func (s *fakeSearcher) SearchLink(q socorro.SearchQuery) string {
	return socorro.SearchLink("https://crash-stats.example/search/", q)
}

// chunkQueries 返回分块查询的签名列表.
func (s *fakeSearcher) chunkQueries() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out [][]string

	for _, q := range s.queries {
		if q.Histogram == "" {
			out = append(out, slices.Clone(q.Signatures))
		}
	}

	return out
}

// fakeFetcher 按崩溃 ID 返回预置的负载.
type fakeFetcher struct {
	mu       sync.Mutex
	calls    int
	payloads map[string]*socorro.ProcessedCrash
}

func (f *fakeFetcher) ProcessedCrash(_ context.Context, id string) (*socorro.ProcessedCrash, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	pc, ok := f.payloads[id]
	if !ok {
		return nil, errRemote
	}

	return pc, nil
}

// payload 构造崩溃线程为 0 的负载，files 中的空串表示该帧没有文件.
func payload(files ...string) *socorro.ProcessedCrash {
	frames := make([]socorro.Frame, 0, len(files))

	for i, f := range files {
		fr := socorro.Frame{Frame: i}
		if f != "" {
			fr.File = &f
		}

		frames = append(frames, fr)
	}

	thread := 0

	return &socorro.ProcessedCrash{
		CrashedThread: &thread,
		JSONDump:      &socorro.JSONDump{Threads: []socorro.Thread{{Frames: frames}}},
	}
}

func hg(path string) string {
	return "hg:hg.mozilla.org/mozilla-central:" + path + ":abc123"
}

func newAnalyzer(s analyze.Searcher, f analyze.PayloadFetcher) *analyze.Analyzer {
	nop := zerolog.Nop()

	return analyze.New(s, f, analyze.Options{Concurrency: 4, Logger: &nop})
}
