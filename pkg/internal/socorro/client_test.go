package socorro_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/yeisme/file2crashes/pkg/configs"
	"github.com/yeisme/file2crashes/pkg/internal/socorro"
)

func newTestClient(t *testing.T, h http.HandlerFunc, cb configs.CircuitBreakerConfig) *socorro.Client {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	return socorro.New(configs.SocorroConfig{
		BaseURL:   srv.URL,
		Token:     "secret",
		Timeout:   5,
		Burst:     1,
		UserAgent: "file2crashes-test",
	}, cb)
}

// TestSearchQueryValues 测试查询参数的编码.
func TestSearchQueryValues(t *testing.T) {
	q := socorro.SearchQuery{
		Product:    "Firefox",
		Channel:    "nightly",
		Date:       socorro.SearchDate{">=2024-03-01", "<2024-03-05"},
		Signatures: []string{"=SigA", "=SigB"},
		Aggs:       map[string][]string{"proto_signature": {"uuid", "signature"}},
		FacetsSize: 1000,
	}

	v := q.Values()

	cases := []struct {
		key  string
		want []string
	}{
		{"product", []string{"Firefox"}},
		{"release_channel", []string{"nightly"}},
		{"date", []string{">=2024-03-01", "<2024-03-05"}},
		{"signature", []string{"=SigA", "=SigB"}},
		{"_aggs.proto_signature", []string{"uuid", "signature"}},
		{"_facets_size", []string{"1000"}},
	}

	for _, tc := range cases {
		got := v[tc.key]
		if strings.Join(got, "|") != strings.Join(tc.want, "|") {
			t.Errorf("%s = %v, want %v", tc.key, got, tc.want)
		}
	}

	for _, absent := range []string{"proto_signature", "_histogram.date", "_results_number"} {
		if v.Has(absent) {
			t.Errorf("unexpected parameter %s", absent)
		}
	}
}

// TestSearch 测试 SuperSearch 请求与响应解析.
func TestSearch(t *testing.T) {
	var gotQuery url.Values

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/SuperSearch/" {
			t.Errorf("path = %s", r.URL.Path)
		}

		if r.Header.Get("Auth-Token") != "secret" {
			t.Errorf("missing auth token header")
		}

		if r.Header.Get("User-Agent") != "file2crashes-test" {
			t.Errorf("user agent = %q", r.Header.Get("User-Agent"))
		}

		gotQuery = r.URL.Query()

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"total": 7, "errors": [], "facets": {"histogram_date": [
			{"term": "2024-03-04T00:00:00+00:00", "count": 7, "facets": {"signature": [{"term": "SigA", "count": 7}]}}
		]}}`))
	}, configs.CircuitBreakerConfig{})

	res, err := c.Search(context.Background(), socorro.SearchQuery{
		Product:   "Firefox",
		Histogram: "signature",
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	if gotQuery.Get("_results_number") != "0" {
		t.Errorf("_results_number = %q", gotQuery.Get("_results_number"))
	}

	if gotQuery.Get("_histogram.date") != "signature" {
		t.Errorf("_histogram.date = %q", gotQuery.Get("_histogram.date"))
	}

	days := res.Facets["histogram_date"]
	if len(days) != 1 || res.Total != 7 {
		t.Fatalf("unexpected result %+v", res)
	}

	sig, ok := days[0].First("signature")
	if !ok || sig.Term != "SigA" || sig.Count != 7 {
		t.Fatalf("unexpected nested facet %+v", sig)
	}
}

// TestSearchErrors 测试服务端报告错误与非 2xx 状态.
func TestSearchErrors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"reported errors", http.StatusOK, `{"errors": [{"type": "ValidationError"}], "facets": {}}`, socorro.ErrSearchFailed},
		{"bad request", http.StatusBadRequest, `{}`, socorro.ErrUnexpectedStatus},
		{"server error", http.StatusBadGateway, `oops`, socorro.ErrUnexpectedStatus},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}, configs.CircuitBreakerConfig{})

			_, err := c.Search(context.Background(), socorro.SearchQuery{Product: "Firefox"})
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

// TestBreakerOpens 测试连续 5xx 后熔断器打开，不再请求远程.
func TestBreakerOpens(t *testing.T) {
	var hits atomic.Int32

	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}, configs.CircuitBreakerConfig{
		Enabled:           true,
		FailureRate:       0.5,
		MinRequests:       2,
		TimeoutSeconds:    60,
		MaxRequestsInHalf: 1,
	})

	for range 4 {
		_, _ = c.ProcessedCrash(context.Background(), "abc")
	}

	if got := hits.Load(); got != 2 {
		t.Fatalf("remote hits = %d, want 2", got)
	}
}

// TestProcessedCrash 测试负载解析与崩溃线程帧提取.
func TestProcessedCrash(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/ProcessedCrash/" || r.URL.Query().Get("crash_id") != "c1" {
			t.Errorf("unexpected request %s", r.URL.String())
		}

		_, _ = w.Write([]byte(`{"uuid": "c1", "crashedThread": 1, "json_dump": {"threads": [
			{"frames": []},
			{"frames": [{"frame": 0, "file": "hg:hg.mozilla.org/mozilla-central:dom/Foo.cpp:abc123"}, {"frame": 1}]}
		]}}`))
	}, configs.CircuitBreakerConfig{})

	pc, err := c.ProcessedCrash(context.Background(), "c1")
	if err != nil {
		t.Fatalf("processed crash: %v", err)
	}

	frames, ok := pc.CrashingFrames()
	if !ok || len(frames) != 2 {
		t.Fatalf("frames = %v, ok = %v", frames, ok)
	}

	if frames[0].File == nil || *frames[0].File != "hg:hg.mozilla.org/mozilla-central:dom/Foo.cpp:abc123" {
		t.Errorf("unexpected file %v", frames[0].File)
	}

	if frames[1].File != nil {
		t.Errorf("frame without file decoded as %q", *frames[1].File)
	}
}

// TestCrashingFramesMissing 测试缺少线程信息时不返回帧.
func TestCrashingFramesMissing(t *testing.T) {
	idx := func(i int) *int { return &i }

	cases := []struct {
		name string
		pc   *socorro.ProcessedCrash
	}{
		{"nil payload", nil},
		{"no crashed thread", &socorro.ProcessedCrash{JSONDump: &socorro.JSONDump{Threads: []socorro.Thread{{Frames: []socorro.Frame{}}}}}},
		{"no json dump", &socorro.ProcessedCrash{CrashedThread: idx(0)}},
		{"index out of range", &socorro.ProcessedCrash{CrashedThread: idx(3), JSONDump: &socorro.JSONDump{Threads: []socorro.Thread{{}}}}},
		{"negative index", &socorro.ProcessedCrash{CrashedThread: idx(-1), JSONDump: &socorro.JSONDump{Threads: []socorro.Thread{{}}}}},
		{"no frames", &socorro.ProcessedCrash{CrashedThread: idx(0), JSONDump: &socorro.JSONDump{Threads: []socorro.Thread{{}}}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if frames, ok := tc.pc.CrashingFrames(); ok {
				t.Fatalf("expected no frames, got %v", frames)
			}
		})
	}
}

// TestSearchLink 测试检索页面链接.
func TestSearchLink(t *testing.T) {
	link := socorro.SearchLink("https://crash-stats.mozilla.org/search/", socorro.SearchQuery{
		Product:        "Firefox",
		Channel:        "nightly",
		Date:           socorro.SearchDate{">=2024-03-01", "<2024-03-05"},
		ProtoSignature: "=proto",
	})

	want := "https://crash-stats.mozilla.org/search/?date=%3E%3D2024-03-01&date=%3C2024-03-05" +
		"&product=Firefox&proto_signature=%3Dproto&release_channel=nightly"
	if link != want {
		t.Fatalf("link = %s\nwant %s", link, want)
	}
}
