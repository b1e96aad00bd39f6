package analyze_test

import (
	"context"
	"slices"
	"testing"

	"github.com/yeisme/file2crashes/pkg/internal/analyze"
	"github.com/yeisme/file2crashes/pkg/internal/socorro"
)

// TestExtractFilesEmpty 测试空输入不发起远程请求.
func TestExtractFilesEmpty(t *testing.T) {
	f := &fakeFetcher{}

	got := newAnalyzer(&fakeSearcher{}, f).ExtractFiles(context.Background(), nil)
	if len(got) != 0 || f.calls != 0 {
		t.Fatalf("got %v with %d calls", got, f.calls)
	}
}

// TestExtractFiles 测试文件去重与缺失负载的处理.
func TestExtractFiles(t *testing.T) {
	thread := 2

	f := &fakeFetcher{payloads: map[string]*socorro.ProcessedCrash{
		"u1": payload(hg("dom/Foo.cpp"), "", hg("dom/Foo.cpp"), hg("obj-firefox/gen.cpp"), "bogus"),
		"u2": {UUID: "u2"},
		"u3": {CrashedThread: &thread, JSONDump: &socorro.JSONDump{Threads: []socorro.Thread{{}}}},
		"u5": payload(""),
	}}

	occ := map[string]analyze.Occurrence{
		"b1": {Bucket: "b1", UUID: "u1"},
		"b2": {Bucket: "b2", UUID: "u2"},
		"b3": {Bucket: "b3", UUID: "u3"},
		"b4": {Bucket: "b4", UUID: "missing"},
		"b5": {Bucket: "b5", UUID: "u5"},
	}

	got := newAnalyzer(&fakeSearcher{}, f).ExtractFiles(context.Background(), occ)

	if f.calls != len(occ) {
		t.Fatalf("fetch calls = %d, want %d", f.calls, len(occ))
	}

	if len(got) != 2 {
		t.Fatalf("buckets = %v", got)
	}

	if files := got["b1"].Sorted(); !slices.Equal(files, []string{"", "dom/Foo.cpp"}) {
		t.Fatalf("b1 files = %q", files)
	}

	if files, ok := got["b5"]; !ok || len(files) != 0 {
		t.Fatalf("b5 files = %v, ok = %v", files, ok)
	}
}
