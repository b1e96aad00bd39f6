package analyze_test

import (
	"context"
	"slices"
	"testing"

	"github.com/yeisme/file2crashes/pkg/internal/analyze"
	"github.com/yeisme/file2crashes/pkg/internal/socorro"
)

func runParams() analyze.RunParams {
	return analyze.RunParams{
		Channels: []string{"nightly"},
		Products: []string{"Firefox"},
		Date:     refDate,
		MaxDays:  2,
		Limit:    10000,
	}
}

// TestRun 测试证据汇总、排序与链接.
func TestRun(t *testing.T) {
	s := &fakeSearcher{
		histogram: []socorro.Facet{day("2024-03-04", map[string]int{"SigA": 9, "SigB": 3})},
		buckets: map[string][]bucket{
			"SigA": {{id: "pa1", uuid: "ua1", count: 7}, {id: "pa2", uuid: "ua2", count: 2}},
			"SigB": {{id: "pb1", uuid: "ub1", count: 3}},
		},
	}

	f := &fakeFetcher{payloads: map[string]*socorro.ProcessedCrash{
		"ua1": payload(hg("dom/Foo.cpp"), hg("dom/Bar.cpp")),
		"ua2": payload(hg("dom/Foo.cpp"), hg("obj-firefox/x.cpp")),
		"ub1": payload(hg("dom/Foo.cpp"), ""),
	}}

	res := newAnalyzer(s, f).Run(context.Background(), runParams())

	files := res["nightly"]["Firefox"]
	if len(files) != 2 {
		t.Fatalf("files = %v", files)
	}

	if _, ok := files["obj-firefox/x.cpp"]; ok {
		t.Fatalf("denied file became evidence")
	}

	if _, ok := files[""]; ok {
		t.Fatalf("empty path became evidence")
	}

	foo := files["dom/Foo.cpp"]

	counts := make([]int, 0, len(foo))
	for _, ev := range foo {
		counts = append(counts, ev.Count)
	}

	if want := []int{2, 3, 7}; !slices.Equal(counts, want) {
		t.Fatalf("dom/Foo.cpp counts = %v, want %v", counts, want)
	}

	want := "https://crash-stats.example/search/?date=%3E%3D2024-03-02&date=%3C2024-03-05" +
		"&product=Firefox&proto_signature=%3Dpa2&release_channel=nightly"
	if foo[0].URL != want || foo[0].Signature != "SigA" {
		t.Fatalf("evidence = %+v\nwant url %s", foo[0], want)
	}

	if bar := files["dom/Bar.cpp"]; len(bar) != 1 || bar[0].Count != 7 {
		t.Fatalf("dom/Bar.cpp = %+v", bar)
	}

	if res.Len() != 4 {
		t.Fatalf("Len = %d", res.Len())
	}
}

// TestRunOmitsEmptyPairs 测试没有证据的组合不出现在结果中.
func TestRunOmitsEmptyPairs(t *testing.T) {
	s := &fakeSearcher{histErr: socorro.ErrSearchFailed}

	p := runParams()
	p.Channels = []string{"nightly", "beta"}
	p.Products = []string{"Firefox", "FennecAndroid"}

	res := newAnalyzer(s, &fakeFetcher{}).Run(context.Background(), p)
	if len(res) != 0 {
		t.Fatalf("expected empty result, got %v", res)
	}

	if len(s.queries) != 4 {
		t.Fatalf("histogram queries = %d, want 4", len(s.queries))
	}
}

// TestRunIdempotent 测试相同输入两次运行结果一致.
func TestRunIdempotent(t *testing.T) {
	newSearcher := func() *fakeSearcher {
		return &fakeSearcher{
			histogram: []socorro.Facet{day("2024-03-04", map[string]int{"SigA": 4})},
			buckets:   map[string][]bucket{"SigA": {{id: "p1", uuid: "u1", count: 4}, {id: "p2", uuid: "u2", count: 4}}},
		}
	}

	f := &fakeFetcher{payloads: map[string]*socorro.ProcessedCrash{
		"u1": payload(hg("a/x.cpp")),
		"u2": payload(hg("a/x.cpp")),
	}}

	first := newAnalyzer(newSearcher(), f).Run(context.Background(), runParams())
	second := newAnalyzer(newSearcher(), f).Run(context.Background(), runParams())

	a, b := first["nightly"]["Firefox"]["a/x.cpp"], second["nightly"]["Firefox"]["a/x.cpp"]
	if len(a) != 2 || !slices.Equal(a, b) {
		t.Fatalf("runs differ: %+v vs %+v", a, b)
	}
}

// TestSortEvidence 测试计数相同时的次序.
func TestSortEvidence(t *testing.T) {
	ev := []analyze.Evidence{
		{URL: "u3", Count: 5, Signature: "B"},
		{URL: "u2", Count: 5, Signature: "A"},
		{URL: "u1", Count: 5, Signature: "A"},
		{URL: "u0", Count: 1, Signature: "Z"},
	}

	analyze.SortEvidence(ev)

	got := make([]string, 0, len(ev))
	for _, e := range ev {
		got = append(got, e.URL)
	}

	if want := []string{"u0", "u1", "u2", "u3"}; !slices.Equal(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
}
