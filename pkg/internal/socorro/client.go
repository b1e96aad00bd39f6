// Package socorro 实现崩溃检索服务的两个只读接口：SuperSearch 聚合查询与 ProcessedCrash 负载获取.
package socorro

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"

	"github.com/yeisme/file2crashes/pkg/configs"
	"github.com/yeisme/file2crashes/pkg/metrics"
	"github.com/yeisme/file2crashes/pkg/tracing"
)

const (
	endpointSearch    = "SuperSearch"
	endpointProcessed = "ProcessedCrash"

	maxResponseBytes = 64 << 20
)

var (
	// ErrSearchFailed 服务在响应中报告了错误.
	ErrSearchFailed = errors.New("socorro: search reported errors")
	// ErrUnexpectedStatus 非 2xx 响应.
	ErrUnexpectedStatus = errors.New("socorro: unexpected status")
)

// Client 崩溃检索服务客户端，带限速与熔断.
type Client struct {
	cfg     configs.SocorroConfig
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// New 创建客户端，cb.Enabled 为 false 时不启用熔断.
func New(cfg configs.SocorroConfig, cb configs.CircuitBreakerConfig) *Client {
	limit := rate.Inf
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
	}

	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	c := &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.GetTimeoutDuration()},
		limiter: rate.NewLimiter(limit, burst),
	}

	if cb.Enabled {
		c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "socorro",
			MaxRequests: cb.MaxRequestsInHalf,
			Interval:    cb.Interval(),
			Timeout:     cb.Timeout(),
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				if counts.Requests < cb.MinRequests {
					return false
				}

				return float64(counts.TotalFailures)/float64(counts.Requests) >= cb.FailureRate
			},
		})
	}

	return c
}

// Search 执行一次 SuperSearch 查询.
func (c *Client) Search(ctx context.Context, q SearchQuery) (*SearchResult, error) {
	params := q.Values()
	params.Set("_results_number", strconv.Itoa(q.ResultsNumber))

	var res SearchResult
	if err := c.get(ctx, endpointSearch, c.cfg.SearchURL(), params, &res); err != nil {
		return nil, err
	}

	if len(res.Errors) > 0 {
		return &res, fmt.Errorf("%w: %v", ErrSearchFailed, res.Errors)
	}

	return &res, nil
}

// ProcessedCrash 获取一个崩溃报告的处理后负载.
func (c *Client) ProcessedCrash(ctx context.Context, crashID string) (*ProcessedCrash, error) {
	params := url.Values{}
	params.Set("crash_id", crashID)

	var pc ProcessedCrash
	if err := c.get(ctx, endpointProcessed, c.cfg.ProcessedCrashURL(), params, &pc); err != nil {
		return nil, err
	}

	return &pc, nil
}

// SearchLink 返回与查询等价的检索页面链接，不发起请求.
func (c *Client) SearchLink(q SearchQuery) string {
	return SearchLink(c.cfg.SearchLinkURL(), q)
}

// SearchLink 拼接检索页面链接，参数按键排序.
func SearchLink(base string, q SearchQuery) string {
	return base + "?" + q.Values().Encode()
}

type response struct {
	code int
	body []byte
}

func (c *Client) get(ctx context.Context, endpoint, base string, params url.Values, out any) (err error) {
	ctx, span := tracing.StartSpan(ctx, "socorro."+endpoint)
	defer span.End()

	status := "ok"
	start := time.Now()

	defer func() {
		metrics.SocorroRequests.WithLabelValues(endpoint, status).Inc()
		metrics.SocorroDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	if err = c.limiter.Wait(ctx); err != nil {
		status = "canceled"
		return err
	}

	resp, err := c.execute(func() (*response, error) { return c.do(ctx, base+"?"+params.Encode()) })
	if err != nil {
		switch {
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			status = "open"
		case errors.Is(err, ErrUnexpectedStatus):
			status = "status_5xx"
		default:
			status = "error"
		}

		return fmt.Errorf("%s: %w", endpoint, err)
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.code))

	if resp.code < http.StatusOK || resp.code >= http.StatusMultipleChoices {
		status = "status_" + strconv.Itoa(resp.code)
		return fmt.Errorf("%s: %w %d", endpoint, ErrUnexpectedStatus, resp.code)
	}

	if err = sonic.Unmarshal(resp.body, out); err != nil {
		status = "decode"
		return fmt.Errorf("%s: decode response: %w", endpoint, err)
	}

	return nil
}

// execute 经过熔断器执行请求，5xx 与传输错误计为失败，4xx 不计.
func (c *Client) execute(fn func() (*response, error)) (*response, error) {
	if c.breaker == nil {
		return fn()
	}

	v, err := c.breaker.Execute(func() (any, error) { return fn() })
	if err != nil {
		return nil, err
	}

	resp, _ := v.(*response)

	return resp, nil
}

func (c *Client) do(ctx context.Context, rawURL string) (*response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/json")

	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	if c.cfg.Token != "" {
		req.Header.Set("Auth-Token", c.cfg.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("%w %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	return &response{code: resp.StatusCode, body: body}, nil
}
