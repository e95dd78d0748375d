package main

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/propagation"
	"golang.org/x/sync/errgroup"

	"github.com/Solosh94/a1tools-sub006/pkg/observability/xlog"
	"github.com/Solosh94/a1tools-sub006/pkg/observability/xmetrics"
	"github.com/Solosh94/a1tools-sub006/pkg/resilience/xbreaker"
	"github.com/Solosh94/a1tools-sub006/pkg/resilience/xretry"
)

// maxDrain 关闭响应前最多读取的字节数，用于复用连接。
const maxDrain = 64 << 10

// requestIDHeader 每次尝试使用新的请求 ID。
const requestIDHeader = "X-Request-Id"

type proberOptions struct {
	method      string
	timeout     time.Duration
	concurrency int
	policy      string
	retry       xretry.Config
	logger      xlog.Logger
}

type probeResult struct {
	url      string
	status   int
	attempts int
	elapsed  time.Duration
	err      error
}

// prober 按同一策略探测多个端点；配置了熔断时同一 host 共享一个熔断器。
type prober struct {
	client      *http.Client
	opts        proberOptions
	observer    xmetrics.Observer
	breakerOpts []xbreaker.BreakerOption

	mu       sync.Mutex
	breakers map[string]*xbreaker.Breaker
}

func newProber(client *http.Client, opts proberOptions) (*prober, error) {
	observer, err := xmetrics.NewOTelObserver(xmetrics.WithInstrumentationName("xretryctl"))
	if err != nil {
		return nil, err
	}
	if opts.logger == nil {
		opts.logger = xlog.Discard()
	}
	return &prober{
		client:   client,
		opts:     opts,
		observer: observer,
		breakers: make(map[string]*xbreaker.Breaker),
	}, nil
}

// probeAll 并发探测，结果顺序与 urls 一致。单个端点失败不会中断其他探测。
func (p *prober) probeAll(ctx context.Context, urls []string) ([]probeResult, error) {
	results := make([]probeResult, len(urls))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.concurrency)
	for i, u := range urls {
		g.Go(func() error {
			results[i] = p.probe(ctx, u)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (p *prober) probe(ctx context.Context, rawURL string) probeResult {
	start := time.Now()
	logger := p.opts.logger.With(xlog.URL(redact(rawURL)))
	opts := []xretry.Option{
		xretry.WithName("probe"),
		xretry.WithSpanKind(xmetrics.KindClient),
		xretry.WithLogger(logger),
		xretry.WithObserver(p.observer),
	}

	op := func(ctx context.Context) (int, error) {
		return p.attempt(ctx, rawURL)
	}

	var res xretry.Result[int]
	if b := p.breaker(rawURL); b != nil {
		res = xbreaker.RetryThrough(ctx, b, op, p.opts.retry, opts...)
	} else {
		res = xretry.Retry(ctx, op, p.opts.retry, opts...)
	}

	r := probeResult{url: rawURL, attempts: res.Attempts(), elapsed: time.Since(start)}
	if res.OK() {
		r.status = res.Value()
		logger.Info(ctx, "probe succeeded", xlog.StatusCode(r.status), xlog.Policy(p.opts.policy))
	} else {
		r.err = res.Err()
	}
	return r
}

func (p *prober) attempt(ctx context.Context, rawURL string) (int, error) {
	if p.opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, p.opts.method, rawURL, nil)
	if err != nil {
		return 0, xretry.NewPermanentError(err)
	}
	// 被探测端可以用 traceparent 关联同一轮重试的多次请求。
	propagation.TraceContext{}.Inject(ctx, propagation.HeaderCarrier(req.Header))
	req.Header.Set(requestIDHeader, uuid.NewString())
	resp, err := p.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrain))
		_ = resp.Body.Close()
	}()

	if err := xretry.CheckResponse(resp); err != nil {
		return resp.StatusCode, err
	}
	return resp.StatusCode, nil
}

// breaker 按 host 返回共享熔断器，未配置熔断时返回 nil。
func (p *prober) breaker(rawURL string) *xbreaker.Breaker {
	if p.breakerOpts == nil {
		return nil
	}
	host := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		host = u.Host
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	b, ok := p.breakers[host]
	if !ok {
		opts := append([]xbreaker.BreakerOption{xbreaker.WithLogger(p.opts.logger)}, p.breakerOpts...)
		b = xbreaker.NewBreaker(host, opts...)
		p.breakers[host] = b
	}
	return b
}

// redact 去掉 URL 中的用户信息，解析失败时原样返回。
func redact(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Redacted()
}
