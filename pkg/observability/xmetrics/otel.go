package xmetrics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultInstrumentationName = "github.com/Solosh94/a1tools-sub006/pkg/observability/xmetrics"
	unknownComponent           = "unknown"
	unknownOperation           = "unknown"
	unknownErrorKind           = "unknown"

	metricOperationTotal    = "xretry.operation.total"
	metricOperationDuration = "xretry.operation.duration"
	metricOperationAttempts = "xretry.operation.attempts"
	metricRetryTotal        = "xretry.retry.total"

	eventRetry = "retry"
)

type otelConfig struct {
	instrumentationName string
	tracerProvider      trace.TracerProvider
	meterProvider       metric.MeterProvider
}

// Option 定义 OTel Observer 的配置选项。
type Option func(*otelConfig)

// WithInstrumentationName 设置 OTel instrumentation 名称。
func WithInstrumentationName(name string) Option {
	return func(cfg *otelConfig) {
		if name != "" {
			cfg.instrumentationName = name
		}
	}
}

// WithTracerProvider 设置 TracerProvider，默认使用全局 provider。
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(cfg *otelConfig) {
		if provider != nil {
			cfg.tracerProvider = provider
		}
	}
}

// WithMeterProvider 设置 MeterProvider，默认使用全局 provider。
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(cfg *otelConfig) {
		if provider != nil {
			cfg.meterProvider = provider
		}
	}
}

// NewOTelObserver 创建基于 OpenTelemetry 的 Observer。
func NewOTelObserver(opts ...Option) (Observer, error) {
	cfg := &otelConfig{
		instrumentationName: defaultInstrumentationName,
		tracerProvider:      otel.GetTracerProvider(),
		meterProvider:       otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}

	meter := cfg.meterProvider.Meter(cfg.instrumentationName)
	o := &otelObserver{tracer: cfg.tracerProvider.Tracer(cfg.instrumentationName)}
	var err error
	if o.total, err = meter.Int64Counter(metricOperationTotal,
		metric.WithDescription("retry sequences"), metric.WithUnit("1")); err != nil {
		return nil, instrumentErr(metricOperationTotal, err)
	}
	if o.retries, err = meter.Int64Counter(metricRetryTotal,
		metric.WithDescription("retries scheduled after a failed attempt"), metric.WithUnit("1")); err != nil {
		return nil, instrumentErr(metricRetryTotal, err)
	}
	if o.duration, err = meter.Float64Histogram(metricOperationDuration,
		metric.WithDescription("retry sequence duration including backoff"), metric.WithUnit("s")); err != nil {
		return nil, instrumentErr(metricOperationDuration, err)
	}
	if o.attempts, err = meter.Int64Histogram(metricOperationAttempts,
		metric.WithDescription("attempts per retry sequence"), metric.WithUnit("1"),
		metric.WithExplicitBucketBoundaries(1, 2, 3, 5, 8, 13)); err != nil {
		return nil, instrumentErr(metricOperationAttempts, err)
	}
	return o, nil
}

func instrumentErr(name string, err error) error {
	return fmt.Errorf("%w %s: %w", ErrInstrument, name, err)
}

type otelObserver struct {
	tracer   trace.Tracer
	total    metric.Int64Counter
	retries  metric.Int64Counter
	duration metric.Float64Histogram
	attempts metric.Int64Histogram
}

// Start 开始一次观测跨度。
func (o *otelObserver) Start(ctx context.Context, opts SpanOptions) (context.Context, Span) {
	if ctx == nil {
		ctx = context.Background()
	}

	component := opts.Component
	if component == "" {
		component = unknownComponent
	}
	operation := opts.Operation
	if operation == "" {
		operation = unknownOperation
	}

	attrs := make([]attribute.KeyValue, 0, 2+len(opts.Attrs))
	attrs = append(attrs,
		attribute.String("component", component),
		attribute.String("operation", operation),
	)
	attrs = append(attrs, attrsToOTel(opts.Attrs)...)

	ctx, span := o.tracer.Start(
		ctx,
		operation,
		trace.WithSpanKind(mapSpanKind(opts.Kind)),
		trace.WithAttributes(attrs...),
	)

	return ctx, &otelSpan{
		span:      span,
		observer:  o,
		ctx:       ctx,
		component: component,
		operation: operation,
		start:     time.Now(),
	}
}

type otelSpan struct {
	span      trace.Span
	observer  *otelObserver
	ctx       context.Context
	component string
	operation string
	start     time.Time
	endOnce   sync.Once
}

// Retry 记录 span 事件并累加重试计数。
func (s *otelSpan) Retry(ev RetryEvent) {
	if s == nil {
		return
	}
	kind := ev.ErrorKind
	if kind == "" {
		kind = unknownErrorKind
	}
	s.span.AddEvent(eventRetry, trace.WithAttributes(
		attribute.Int("attempt", ev.Attempt),
		attribute.Int64("delay_ms", ev.Delay.Milliseconds()),
		attribute.String("error_kind", kind),
	))
	if s.observer == nil {
		return
	}
	s.observer.retries.Add(context.WithoutCancel(s.ctx), 1, metric.WithAttributes(
		attribute.String("component", s.component),
		attribute.String("operation", s.operation),
		attribute.String("error_kind", kind),
	))
}

// End 结束观测并记录结果。
//
// End 是幂等的，多次调用只记录一次指标。
func (s *otelSpan) End(result Result) {
	if s == nil {
		return
	}

	s.endOnce.Do(func() {
		status := resolveStatus(result)

		switch status {
		case StatusError:
			if result.Err != nil {
				s.span.RecordError(result.Err)
				s.span.SetStatus(codes.Error, result.Err.Error())
			} else {
				s.span.SetStatus(codes.Error, "operation failed")
			}
		default:
			if result.Err != nil {
				s.span.RecordError(result.Err)
			}
			s.span.SetStatus(codes.Ok, "")
		}

		if result.Attempts > 0 {
			s.span.SetAttributes(attribute.Int("attempts", result.Attempts))
		}
		if len(result.Attrs) > 0 {
			s.span.SetAttributes(attrsToOTel(result.Attrs)...)
		}
		s.span.End()

		if s.observer == nil {
			return
		}

		// 请求 ctx 可能已取消，指标仍需记录
		metricsCtx := context.WithoutCancel(s.ctx)
		attrs := metric.WithAttributes(metricAttrs(s.component, s.operation, status)...)
		s.observer.total.Add(metricsCtx, 1, attrs)
		s.observer.duration.Record(metricsCtx, time.Since(s.start).Seconds(), attrs)
		if result.Attempts > 0 {
			s.observer.attempts.Record(metricsCtx, int64(result.Attempts), attrs)
		}
	})
}

func resolveStatus(result Result) Status {
	if result.Status != "" {
		return result.Status
	}
	if result.Err != nil {
		return StatusError
	}
	return StatusOK
}

func mapSpanKind(kind Kind) trace.SpanKind {
	if kind == KindClient {
		return trace.SpanKindClient
	}
	return trace.SpanKindInternal
}

func metricAttrs(component, operation string, status Status) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("component", component),
		attribute.String("operation", operation),
		attribute.String("status", string(status)),
	}
}

func attrsToOTel(attrs []Attr) []attribute.KeyValue {
	if len(attrs) == 0 {
		return nil
	}
	converted := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if attr.Key == "" || attr.Value == nil {
			continue
		}
		converted = append(converted, toKeyValue(attr))
	}
	return converted
}

func toKeyValue(attr Attr) attribute.KeyValue {
	switch v := attr.Value.(type) {
	case string:
		return attribute.String(attr.Key, v)
	case bool:
		return attribute.Bool(attr.Key, v)
	case int:
		return attribute.Int(attr.Key, v)
	case int64:
		return attribute.Int64(attr.Key, v)
	case float64:
		return attribute.Float64(attr.Key, v)
	case time.Duration:
		return attribute.Int64(attr.Key, v.Milliseconds())
	default:
		return attribute.String(attr.Key, fmt.Sprint(v))
	}
}
