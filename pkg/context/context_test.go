package context_test

import (
	"context"
	"testing"

	ctxPkg "github.com/yeisme/file2crashes/pkg/context"
	"github.com/yeisme/file2crashes/pkg/internal/storage"
	kvc "github.com/yeisme/file2crashes/pkg/internal/storage/kv"
)

// TestStorageManagerRoundTrip 测试 Manager 注入与读取.
func TestStorageManagerRoundTrip(t *testing.T) {
	ctx := context.Background()

	if ctxPkg.GetManager(ctx) != nil {
		t.Fatal("expected nil manager on empty context")
	}

	if ctxPkg.GetKVClient(ctx) != nil {
		t.Fatal("expected nil kv client on empty context")
	}

	kv := &kvc.Client{KVStore: &kvc.MemoryKV{}}
	mgr := &storage.Manager{KV: kv}

	ctx = ctxPkg.WithStorageManager(ctx, mgr)

	if ctxPkg.GetManager(ctx) != mgr {
		t.Error("manager not found in context")
	}

	if ctxPkg.GetKVClient(ctx) != kv {
		t.Error("kv client not found in context")
	}

	if ctxPkg.GetMQClient(ctx) != nil || ctxPkg.GetS3Client(ctx) != nil {
		t.Error("disabled clients should be nil")
	}
}
