package analyze_test

import (
	"testing"

	"github.com/yeisme/file2crashes/pkg/internal/analyze"
)

// TestResolveFile 测试定位串解析.
func TestResolveFile(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"central", "hg:hg.mozilla.org/mozilla-central:dom/Foo.cpp:abc123", "dom/Foo.cpp"},
		{"release repo", "hg:hg.mozilla.org/releases/mozilla-beta:js/src/vm/Interpreter.cpp:0f1e2d3c", "js/src/vm/Interpreter.cpp"},
		{"trailing text", "hg:hg.mozilla.org/mozilla-central:gfx/layers/A.cpp:abc123:extra", "gfx/layers/A.cpp"},
		{"denied dir", "hg:hg.mozilla.org/mozilla-central:obj-firefox/x.cpp:abc123", ""},
		{"denied prefix", "hg:hg.mozilla.org/mozilla-central:obj-firefox-asan/x.cpp:abc123", ""},
		{"empty", "", ""},
		{"no colon", "dom/Foo.cpp", ""},
		{"windows path", `c:\builds\moz2_slave\m-cen\dom\Foo.cpp`, ""},
		{"other host", "hg:hg.example.org/repo:dom/Foo.cpp:abc123", ""},
		{"git locator", "git:github.com/rust-lang/rust:library/core/src/panicking.rs:90b35a6", ""},
		{"uppercase revision", "hg:hg.mozilla.org/mozilla-central:dom/Foo.cpp:ABC", ""},
		{"missing revision", "hg:hg.mozilla.org/mozilla-central:dom/Foo.cpp", ""},
		{"only prefix", "hg:", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := analyze.ResolveFile(tc.in); got != tc.want {
				t.Fatalf("ResolveFile(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

// TestResolveFileRoundTrip 测试嵌入定位串的路径能原样取回.
func TestResolveFileRoundTrip(t *testing.T) {
	paths := []string{
		"dom/base/nsDocument.cpp",
		"toolkit/xre/nsAppRunner.cpp",
		"Makefile",
		"a/b/c/d/e.h",
		"obj/firefox.cpp",
	}

	for _, p := range paths {
		if got := analyze.ResolveFile(hg(p)); got != p {
			t.Errorf("round trip %q = %q", p, got)
		}
	}

	for _, p := range []string{"obj-firefox/dist/include/x.h", "obj-firefox"} {
		if got := analyze.ResolveFile(hg(p)); got != "" {
			t.Errorf("denied %q resolved to %q", p, got)
		}
	}
}

// FuzzResolveFile 测试任意输入都不会 panic，且结果不落在被拒绝的目录.
func FuzzResolveFile(f *testing.F) {
	for _, s := range []string{"", ":", "hg:", hg("dom/Foo.cpp"), hg("obj-firefox/x.cpp"), "hg:hg.mozilla.org::0"} {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, s string) {
		got := analyze.ResolveFile(s)
		if len(got) >= len("obj-firefox") && got[:len("obj-firefox")] == "obj-firefox" {
			t.Fatalf("denied path returned for %q", s)
		}
	})
}
