package xmetrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindString(t *testing.T) {
	assert.Equal(t, "Internal", KindInternal.String())
	assert.Equal(t, "Client", KindClient.String())
	assert.Equal(t, "Kind(9)", Kind(9).String())
}

func TestNoopObserver_Start(t *testing.T) {
	ctx, span := NoopObserver{}.Start(context.Background(), SpanOptions{})
	require.NotNil(t, ctx)
	require.NotNil(t, span)
	span.Retry(RetryEvent{Attempt: 1})
	span.End(Result{})

	//nolint:staticcheck // SA1012: 验证 nil ctx 兜底
	ctx, _ = NoopObserver{}.Start(nil, SpanOptions{})
	assert.NotNil(t, ctx)
}

func TestStart_NilObserver(t *testing.T) {
	ctx, span := Start(context.Background(), nil, SpanOptions{})
	assert.NotNil(t, ctx)
	assert.IsType(t, NoopSpan{}, span)
}

func TestStart_NilContext(t *testing.T) {
	//nolint:staticcheck // SA1012: 验证 nil ctx 兜底
	ctx, span := Start(nil, NoopObserver{}, SpanOptions{})
	assert.NotNil(t, ctx)
	assert.NotNil(t, span)
}

type nilObserver struct{}

type ctxKey struct{}

func (nilObserver) Start(context.Context, SpanOptions) (context.Context, Span) {
	return nil, nil
}

func TestStart_ObserverReturnsNil(t *testing.T) {
	base := context.WithValue(context.Background(), ctxKey{}, "v")
	ctx, span := Start(base, nilObserver{}, SpanOptions{})
	assert.Equal(t, base, ctx)
	assert.IsType(t, NoopSpan{}, span)
}

func TestAttrConstructors(t *testing.T) {
	assert.Equal(t, Attr{Key: "k", Value: "v"}, String("k", "v"))
	assert.Equal(t, Attr{Key: "k", Value: true}, Bool("k", true))
	assert.Equal(t, Attr{Key: "k", Value: 3}, Int("k", 3))
	assert.Equal(t, Attr{Key: "k", Value: int64(250)}, Millis("k", 250*time.Millisecond))
}

func TestResolveStatus(t *testing.T) {
	assert.Equal(t, StatusOK, resolveStatus(Result{}))
	assert.Equal(t, StatusError, resolveStatus(Result{Err: assert.AnError}))
	assert.Equal(t, StatusOK, resolveStatus(Result{Status: StatusOK, Err: assert.AnError}))
	assert.Equal(t, StatusError, resolveStatus(Result{Status: StatusError}))
}
