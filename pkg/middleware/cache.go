package middleware

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/gin-gonic/gin"

	appcache "github.com/yeisme/file2crashes/pkg/cache"
	"github.com/yeisme/file2crashes/pkg/internal/storage/kv"
)

const (
	DefaultMaxBodyBytes   = 1 << 20 // 1MB
	defaultKeyBuilderGrow = 64

	// BypassHeader 请求带该头（任意值）时跳过缓存.
	BypassHeader = "X-Cache-Bypass"

	responseKeyPart = "resp."
)

// CacheConfig 响应缓存配置.
type CacheConfig struct {
	Store        kv.KVStore
	Prefix       string // 键前缀，与 kv.prefix 一致
	TTL          time.Duration
	MaxBodyBytes int // 缓存响应体最大字节 (0=不限制)
}

// responseCacheEntry 序列化存储结构.
type responseCacheEntry struct {
	Status      int    `json:"s"`
	ContentType string `json:"c,omitempty"`
	Body        []byte `json:"b,omitempty"`
	ETag        string `json:"e"`
	StoredAt    int64  `json:"t"` // unix nano, 用于 Age
}

// CacheMiddleware 缓存 GET/HEAD 的 200 响应，支持 ETag / If-None-Match 与 X-Cache 命中标记.
// 缓存读写失败不影响请求；TTL 为 0 或没有 Store 时直接放行.
func CacheMiddleware(cfg CacheConfig) gin.HandlerFunc {
	if cfg.Store == nil || cfg.TTL <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	if cfg.MaxBodyBytes == 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}

	cache := appcache.NewCache(cfg.Store)

	return func(c *gin.Context) {
		if (c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead) || c.GetHeader(BypassHeader) != "" {
			c.Next()
			return
		}

		key := cfg.Prefix + responseKeyPart + requestKey(c)

		if entry, err := appcache.Get[responseCacheEntry](c.Request.Context(), cache, key); err == nil {
			serveEntry(c, entry)
			return
		}

		bw := &bodyCaptureWriter{ResponseWriter: c.Writer, max: cfg.MaxBodyBytes}
		c.Writer = bw
		c.Next()

		if c.Writer.Status() != http.StatusOK || bw.truncated || bw.buf.Len() == 0 {
			return
		}

		body := bytes.Clone(bw.buf.Bytes())
		entry := responseCacheEntry{
			Status:      http.StatusOK,
			ContentType: c.Writer.Header().Get("Content-Type"),
			Body:        body,
			ETag:        fmt.Sprintf("\"%x\"", xxhash.Sum64(body)),
			StoredAt:    time.Now().UnixNano(),
		}

		_ = appcache.Set(context.WithoutCancel(c.Request.Context()), cache, key, entry, cfg.TTL)
	}
}

// PurgeResponseCache 删除全部缓存的响应，返回删除的数量.
func PurgeResponseCache(ctx context.Context, store kv.KVStore, prefix string) (int, error) {
	keys, err := store.Keys(ctx, prefix+responseKeyPart+"*")
	if err != nil {
		return 0, err
	}

	n := 0

	for _, k := range keys {
		if err := store.Delete(ctx, k); err != nil {
			return n, err
		}

		n++
	}

	return n, nil
}

// requestKey 方法 + 路由 + 排序后的 query 的 xxhash.
func requestKey(c *gin.Context) string {
	var b strings.Builder
	b.Grow(defaultKeyBuilderGrow)

	b.WriteString(c.Request.Method)
	b.WriteByte(' ')

	full := c.FullPath()
	if full == "" {
		full = c.Request.URL.Path
	}

	b.WriteString(full)

	if q := c.Request.URL.Query(); len(q) > 0 {
		keys := make([]string, 0, len(q))
		for k := range q {
			keys = append(keys, k)
		}

		sort.Strings(keys)
		b.WriteByte('?')

		for i, k := range keys {
			if i > 0 {
				b.WriteByte('&')
			}

			b.WriteString(k)
			b.WriteByte('=')
			b.WriteString(strings.Join(q[k], ","))
		}
	}

	return fmt.Sprintf("%x", xxhash.Sum64String(b.String()))
}

func serveEntry(c *gin.Context, entry responseCacheEntry) {
	h := c.Writer.Header()
	h.Set("ETag", entry.ETag)
	h.Set("Age", fmt.Sprintf("%.0f", time.Since(time.Unix(0, entry.StoredAt)).Seconds()))
	h.Set("X-Cache", "HIT")

	if c.GetHeader("If-None-Match") == entry.ETag {
		c.AbortWithStatus(http.StatusNotModified)
		return
	}

	if entry.ContentType != "" {
		h.Set("Content-Type", entry.ContentType)
	}

	c.Status(entry.Status)

	if c.Request.Method != http.MethodHead {
		_, _ = c.Writer.Write(entry.Body)
	}

	c.Abort()
}

// bodyCaptureWriter 包装响应写入用于捕获 body，并在首次写入前补充缓存相关头.
type bodyCaptureWriter struct {
	gin.ResponseWriter

	buf       bytes.Buffer
	max       int
	truncated bool
}

// WriteHeader 未命中时标记 X-Cache.
func (w *bodyCaptureWriter) WriteHeader(code int) {
	w.Header().Set("X-Cache", "MISS")
	w.ResponseWriter.WriteHeader(code)
}

// Write 捕获响应体, 并限制最大字节数.
func (w *bodyCaptureWriter) Write(b []byte) (int, error) {
	w.Header().Set("X-Cache", "MISS")

	if !w.truncated {
		remain := w.max - w.buf.Len()
		if len(b) > remain {
			w.truncated = true
		} else {
			w.buf.Write(b)
		}
	}

	return w.ResponseWriter.Write(b)
}

// WriteString gin 的 JSON 渲染可能走该路径.
func (w *bodyCaptureWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}
