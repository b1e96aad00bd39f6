package service_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/yeisme/file2crashes/pkg/configs"
	ctxPkg "github.com/yeisme/file2crashes/pkg/context"
	"github.com/yeisme/file2crashes/pkg/internal/analyze"
	"github.com/yeisme/file2crashes/pkg/internal/service"
	"github.com/yeisme/file2crashes/pkg/internal/socorro"
	"github.com/yeisme/file2crashes/pkg/internal/storage/mq"
	"github.com/yeisme/file2crashes/pkg/queue"
)

// stubRemote 一个新签名 SigA，两个崩溃桶都落在 dom/Foo.cpp.
type stubRemote struct{}

func (stubRemote) Search(_ context.Context, q socorro.SearchQuery) (*socorro.SearchResult, error) {
	if q.Histogram != "" {
		return &socorro.SearchResult{Facets: map[string][]socorro.Facet{
			"histogram_date": {{
				Term:   "2024-03-04T00:00:00+00:00",
				Count:  5,
				Facets: map[string][]socorro.Facet{"signature": {{Term: "SigA", Count: 5}}},
			}},
		}}, nil
	}

	bucket := func(id, uuid string, count int) socorro.Facet {
		return socorro.Facet{Term: id, Count: count, Facets: map[string][]socorro.Facet{
			"uuid":      {{Term: uuid}},
			"signature": {{Term: "SigA"}},
		}}
	}

	return &socorro.SearchResult{Facets: map[string][]socorro.Facet{
		"proto_signature": {bucket("p1", "u1", 3), bucket("p2", "u2", 2)},
	}}, nil
}

func (stubRemote) SearchLink(q socorro.SearchQuery) string {
	return socorro.SearchLink("https://crash-stats.example/search/", q)
}

func (stubRemote) ProcessedCrash(_ context.Context, id string) (*socorro.ProcessedCrash, error) {
	file := "hg:hg.mozilla.org/mozilla-central:dom/Foo.cpp:abc123"
	thread := 0

	return &socorro.ProcessedCrash{
		UUID:          id,
		CrashedThread: &thread,
		JSONDump:      &socorro.JSONDump{Threads: []socorro.Thread{{Frames: []socorro.Frame{{File: &file}}}}},
	}, nil
}

func testConfig() *configs.AppConfig {
	return &configs.AppConfig{
		Socorro: configs.SocorroConfig{BaseURL: "http://127.0.0.1:1", Timeout: 1, Burst: 1, Concurrency: 2},
		Analysis: configs.AnalysisConfig{
			Channels:  []string{"nightly"},
			Products:  []string{"Firefox"},
			MaxDays:   2,
			Limit:     100,
			Bootstrap: true,
		},
		Events: configs.EventsConfig{Enabled: true, AnalysisCompleted: true, AnalysisFailed: true, Producer: "file2crashes"},
	}
}

func newAnalysisService(ctx context.Context) *service.AnalysisService {
	nop := zerolog.Nop()
	a := analyze.New(stubRemote{}, stubRemote{}, analyze.Options{Concurrency: 2, Logger: &nop})

	return service.NewAnalysisService(ctx, testConfig()).WithAnalyzer(a)
}

// TestUpdate 测试分析结果写库并发布完成事件.
func TestUpdate(t *testing.T) {
	ctx := newTestContext(t)

	mqc, err := mq.New(ctx, configs.MQConfig{Type: configs.MQTypeGoChannel, BufferSize: 4}, mq.Options{})
	if err != nil {
		t.Fatalf("mq: %v", err)
	}
	defer mqc.Close()

	ctxPkg.GetManager(ctx).MQ = mqc

	subCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	events, err := mqc.Subscribe(subCtx, queue.TopicAnalysisCompleted)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	s := newAnalysisService(ctx)

	report, err := s.Update(ctx, s.Params(day, service.TriggerCLI))
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	if !report.Saved || report.Evidence != 2 || len(report.Pairs) != 1 || report.RunID == "" {
		t.Fatalf("report = %+v", report)
	}

	got, err := s.Crashes().Get(ctx, "Firefox", "nightly", "dom", day)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	ev := got["Foo.cpp"]
	if len(ev) != 2 || ev[0].Count != 2 || ev[1].Count != 3 {
		t.Fatalf("evidence = %+v", ev)
	}

	if !strings.Contains(ev[0].URL, "proto_signature=%3Dp2") {
		t.Fatalf("url = %s", ev[0].URL)
	}

	select {
	case m := <-events:
		m.Ack()

		env, err := queue.ParseAnalysisCompleted(m)
		if err != nil {
			t.Fatalf("parse event: %v", err)
		}

		if env.Payload.RunID != report.RunID || env.Payload.Evidence != 2 || env.Header.Producer != "file2crashes" {
			t.Fatalf("event = %+v", env)
		}
	case <-subCtx.Done():
		t.Fatal("completed event not published")
	}

	// 再次运行不产生重复记录
	if _, err := s.Update(ctx, s.Params(day, service.TriggerCLI)); err != nil {
		t.Fatalf("second update: %v", err)
	}

	if n, _ := s.Crashes().Count(ctx); n != 2 {
		t.Fatalf("count after rerun = %d", n)
	}
}

// TestUpdateDryRun 测试只分析不写库.
func TestUpdateDryRun(t *testing.T) {
	ctx := newTestContext(t)
	s := newAnalysisService(ctx)

	p := s.Params(day, service.TriggerCLI)
	p.DryRun = true

	report, err := s.Update(ctx, p)
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	if report.Saved || report.Evidence != 2 {
		t.Fatalf("report = %+v", report)
	}

	if n, _ := s.Crashes().Count(ctx); n != 0 {
		t.Fatalf("dry run wrote %d rows", n)
	}
}

// TestBootstrap 测试空表时引导分析一次，已有数据时跳过.
func TestBootstrap(t *testing.T) {
	ctx := newTestContext(t)
	s := newAnalysisService(ctx)

	now := time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC)

	report, err := s.Bootstrap(ctx, now)
	if err != nil || report == nil || !report.Saved || report.Trigger != service.TriggerBootstrap {
		t.Fatalf("bootstrap = %+v, %v", report, err)
	}

	again, err := s.Bootstrap(ctx, now)
	if err != nil || again != nil {
		t.Fatalf("second bootstrap = %+v, %v", again, err)
	}
}
