package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yeisme/file2crashes/pkg/cache"
	"github.com/yeisme/file2crashes/pkg/internal/socorro"
	"github.com/yeisme/file2crashes/pkg/internal/storage/kv"
)

// countingKVStore 记录写入次数的 KV 存储.
type countingKVStore struct {
	data map[string][]byte
	sets int
}

func newCountingKVStore() *countingKVStore {
	return &countingKVStore{data: make(map[string][]byte)}
}

func (m *countingKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}

	return nil, kv.ErrNotFound
}

func (m *countingKVStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.sets++
	m.data[key] = value

	return nil
}

func (m *countingKVStore) Delete(ctx context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func (m *countingKVStore) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := m.data[key]
	return ok, nil
}

func (m *countingKVStore) Keys(ctx context.Context, pattern string) ([]string, error) {
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}

	return keys, nil
}

func (m *countingKVStore) Close() error { return nil }

func ptr[T any](v T) *T { return &v }

// TestProcessedCrashRoundTrip 测试负载经缓存往返后可选字段的有无保持不变.
func TestProcessedCrashRoundTrip(t *testing.T) {
	cases := []struct {
		name    string
		payload socorro.ProcessedCrash
	}{
		{
			name:    "no crashing thread",
			payload: socorro.ProcessedCrash{UUID: "a"},
		},
		{
			name: "frames with and without file",
			payload: socorro.ProcessedCrash{
				UUID:          "b",
				CrashedThread: ptr(1),
				JSONDump: &socorro.JSONDump{Threads: []socorro.Thread{
					{Frames: []socorro.Frame{{Frame: 0}}},
					{Frames: []socorro.Frame{
						{Frame: 0, Function: "f", File: ptr("hg:hg.mozilla.org/mozilla-central:dom/Foo.cpp:abc123")},
						{Frame: 1},
						{Frame: 2, File: ptr("")},
					}},
				}},
			},
		},
		{
			name: "thread without frames",
			payload: socorro.ProcessedCrash{
				UUID:          "c",
				CrashedThread: ptr(0),
				JSONDump:      &socorro.JSONDump{Threads: []socorro.Thread{{}}},
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			c := cache.NewCache(newCountingKVStore())

			if err := cache.Set(ctx, c, "f2c.processed."+tc.payload.UUID, tc.payload, time.Hour); err != nil {
				t.Fatalf("set: %v", err)
			}

			got, err := cache.Get[socorro.ProcessedCrash](ctx, c, "f2c.processed."+tc.payload.UUID)
			if err != nil {
				t.Fatalf("get: %v", err)
			}

			wantFrames, wantOK := tc.payload.CrashingFrames()
			gotFrames, gotOK := got.CrashingFrames()

			if wantOK != gotOK || len(wantFrames) != len(gotFrames) {
				t.Fatalf("frames = %v, %v, want %v, %v", gotFrames, gotOK, wantFrames, wantOK)
			}

			for i := range wantFrames {
				w, g := wantFrames[i].File, gotFrames[i].File
				if (w == nil) != (g == nil) {
					t.Fatalf("frame %d file = %v, want %v", i, g, w)
				}

				if w != nil && *w != *g {
					t.Fatalf("frame %d file = %q, want %q", i, *g, *w)
				}
			}
		})
	}
}

// TestGetOrSetGetterError 测试获取失败时不写缓存，下次重新获取.
func TestGetOrSetGetterError(t *testing.T) {
	ctx := context.Background()
	store := newCountingKVStore()
	c := cache.NewCache(store)
	calls := 0

	fail := func() (socorro.ProcessedCrash, error) {
		calls++
		return socorro.ProcessedCrash{}, errors.New("upstream 503")
	}

	if _, err := cache.GetOrSet(ctx, c, "f2c.processed.x", fail, time.Hour); err == nil {
		t.Fatal("expected getter error")
	}

	if store.sets != 0 {
		t.Fatalf("sets = %d after getter error", store.sets)
	}

	ok := func() (socorro.ProcessedCrash, error) {
		calls++
		return socorro.ProcessedCrash{UUID: "x", CrashedThread: ptr(0)}, nil
	}

	for range 2 {
		got, err := cache.GetOrSet(ctx, c, "f2c.processed.x", ok, time.Hour)
		if err != nil || got.UUID != "x" || got.CrashedThread == nil {
			t.Fatalf("got = %+v, %v", got, err)
		}
	}

	if calls != 2 || store.sets != 1 {
		t.Fatalf("calls = %d, sets = %d, want 2, 1", calls, store.sets)
	}
}

// TestGetMiss 测试未命中与损坏的缓存值.
func TestGetMiss(t *testing.T) {
	ctx := context.Background()
	store := newCountingKVStore()
	c := cache.NewCache(store)

	if _, err := cache.Get[socorro.ProcessedCrash](ctx, c, "missing"); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("miss err = %v", err)
	}

	store.data["bad"] = []byte("{not json")

	if _, err := cache.Get[socorro.ProcessedCrash](ctx, c, "bad"); err == nil {
		t.Fatal("expected unmarshal error")
	}

	// 损坏的值按未命中处理并被覆盖
	got, err := cache.GetOrSet(ctx, c, "bad", func() (socorro.ProcessedCrash, error) {
		return socorro.ProcessedCrash{UUID: "fresh"}, nil
	}, time.Hour)
	if err != nil || got.UUID != "fresh" {
		t.Fatalf("got = %+v, %v", got, err)
	}

	if again, err := cache.Get[socorro.ProcessedCrash](ctx, c, "bad"); err != nil || again.UUID != "fresh" {
		t.Fatalf("again = %+v, %v", again, err)
	}
}
