package xretry

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/Solosh94/a1tools-sub006/pkg/observability/xlog"
	"github.com/Solosh94/a1tools-sub006/pkg/observability/xmetrics"
)

// recordingTimer 立即触发并记录每次等待的时长。
type recordingTimer struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (t *recordingTimer) After(d time.Duration) <-chan time.Time {
	t.mu.Lock()
	t.delays = append(t.delays, d)
	t.mu.Unlock()
	ch := make(chan time.Time, 1)
	ch <- time.Now()
	return ch
}

func (t *recordingTimer) Delays() []time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]time.Duration(nil), t.delays...)
}

// blockingTimer 永不触发，用于测试等待期间的取消。
type blockingTimer struct{}

func (blockingTimer) After(time.Duration) <-chan time.Time {
	return make(chan time.Time)
}

var (
	errServer  = &StatusError{Code: 503}
	errClient  = &StatusError{Code: 404}
	errTimeout = context.DeadlineExceeded
)

// failing 返回前 n 次失败、之后成功的操作，并统计调用次数。
func failing(n int, err error, value string) (func(context.Context) (string, error), *int) {
	calls := 0
	return func(context.Context) (string, error) {
		calls++
		if calls <= n {
			return "", err
		}
		return value, nil
	}, &calls
}

func noJitter(cfg Config) Config {
	cfg.UseJitter = false
	return cfg
}

func TestRetry_SuccessFirstAttempt(t *testing.T) {
	timer := &recordingTimer{}
	op, calls := failing(0, nil, "ok")
	var retried bool

	res := Retry(context.Background(), op, Standard(),
		WithTimer(timer),
		WithOnRetry(func(int, *ClassifiedError) { retried = true }),
	)

	require.True(t, res.OK())
	assert.Equal(t, "ok", res.Value())
	assert.Equal(t, 1, res.Attempts())
	assert.Nil(t, res.Err())
	assert.Equal(t, 1, *calls)
	assert.False(t, retried)
	assert.Empty(t, timer.Delays())
}

func TestRetry_AttemptBound(t *testing.T) {
	for _, n := range []int{1, 2, 3, 5, 8} {
		timer := &recordingTimer{}
		op, calls := failing(1000, errServer, "")
		var seen []int

		cfg := Config{MaxAttempts: n, InitialDelay: time.Millisecond, BackoffMultiplier: 2, MaxDelay: time.Second}
		res := Retry(context.Background(), op, cfg,
			WithTimer(timer),
			WithOnRetry(func(attempt int, _ *ClassifiedError) { seen = append(seen, attempt) }),
		)

		require.False(t, res.OK())
		assert.Equal(t, n, *calls, "n=%d", n)
		assert.Equal(t, n, res.Attempts(), "n=%d", n)
		assert.Len(t, timer.Delays(), n-1, "n=%d", n)
		want := make([]int, 0, n-1)
		for i := 1; i < n; i++ {
			want = append(want, i)
		}
		assert.Equal(t, want, append([]int{}, seen...), "n=%d", n)
		assert.Equal(t, KindServer, res.Err().Kind)
		assert.True(t, res.Err().Retryable)
	}
}

func TestRetry_EarlySuccess(t *testing.T) {
	timer := &recordingTimer{}
	op, calls := failing(2, errServer, "done")

	res := Retry(context.Background(), op, Aggressive(), WithTimer(timer))

	require.True(t, res.OK())
	assert.Equal(t, 3, *calls)
	assert.Equal(t, 3, res.Attempts())
	// 成功之后不再等待
	assert.Len(t, timer.Delays(), 2)
}

func TestRetry_BackoffGrowthExact(t *testing.T) {
	cfg := Config{MaxAttempts: 6, InitialDelay: 100 * time.Millisecond, BackoffMultiplier: 3, MaxDelay: 2 * time.Second}
	timer := &recordingTimer{}
	op, _ := failing(1000, errTimeout, "")

	res := Retry(context.Background(), op, cfg, WithTimer(timer))

	require.False(t, res.OK())
	assert.Equal(t, []time.Duration{
		100 * time.Millisecond,
		300 * time.Millisecond,
		900 * time.Millisecond,
		2 * time.Second,
		2 * time.Second,
	}, timer.Delays())
	assert.Equal(t, Schedule(cfg), timer.Delays())
}

func TestRetry_JitterBound(t *testing.T) {
	cfg := Config{MaxAttempts: 6, InitialDelay: time.Second, BackoffMultiplier: 2, MaxDelay: 10 * time.Second, UseJitter: true}
	base := Schedule(cfg)

	for range 20 {
		timer := &recordingTimer{}
		op, _ := failing(1000, errServer, "")
		Retry(context.Background(), op, cfg, WithTimer(timer))

		delays := timer.Delays()
		require.Len(t, delays, len(base))
		for i, d := range delays {
			assert.GreaterOrEqual(t, d, time.Duration(0))
			assert.GreaterOrEqual(t, float64(d), float64(base[i])*(1-JitterFraction))
			assert.LessOrEqual(t, float64(d), float64(base[i])*(1+JitterFraction))
		}
	}
}

func TestRetry_InjectedRandom(t *testing.T) {
	timer := &recordingTimer{}
	op, _ := failing(1000, errServer, "")

	Retry(context.Background(), op, Standard(), WithTimer(timer), WithRandom(func() float64 { return 0 }))

	assert.Equal(t, []time.Duration{750 * time.Millisecond, 1500 * time.Millisecond}, timer.Delays())
}

func TestRetry_NonRetryableShortCircuit(t *testing.T) {
	t.Run("DefaultClassifier", func(t *testing.T) {
		timer := &recordingTimer{}
		op, calls := failing(1000, errClient, "")

		res := Retry(context.Background(), op, Standard(), WithTimer(timer))

		require.False(t, res.OK())
		assert.Equal(t, 1, *calls)
		assert.Equal(t, 1, res.Attempts())
		assert.Equal(t, KindClient, res.Err().Kind)
		assert.False(t, res.Err().Retryable)
		assert.Empty(t, timer.Delays())
	})

	t.Run("ShouldRetryFalse", func(t *testing.T) {
		timer := &recordingTimer{}
		op, calls := failing(1000, errServer, "")

		res := Retry(context.Background(), op, Standard(),
			WithTimer(timer),
			WithShouldRetry(func(error) bool { return false }),
		)

		assert.Equal(t, 1, *calls)
		assert.Equal(t, 1, res.Attempts())
		// 类型仍由分类器决定
		assert.Equal(t, KindServer, res.Err().Kind)
		assert.False(t, res.Err().Retryable)
	})

	t.Run("ShouldRetryTrue", func(t *testing.T) {
		timer := &recordingTimer{}
		op, calls := failing(1000, errClient, "")

		res := Retry(context.Background(), op, Standard(),
			WithTimer(timer),
			WithShouldRetry(func(error) bool { return true }),
		)

		assert.Equal(t, 3, *calls)
		assert.Equal(t, KindClient, res.Err().Kind)
		assert.True(t, res.Err().Retryable)
	})
}

func TestRetry_ExplicitFlagPrecedence(t *testing.T) {
	t.Run("FalseOverridesRetryableLooking", func(t *testing.T) {
		op, calls := failing(1000, NewPermanentError(errors.New("connection reset")), "")
		res := Retry(context.Background(), op, Standard(), WithTimer(&recordingTimer{}))
		assert.Equal(t, 1, *calls)
		assert.Equal(t, KindNetwork, res.Err().Kind)
	})

	t.Run("TrueOverridesNonRetryableLooking", func(t *testing.T) {
		op, calls := failing(1000, NewTemporaryError(errors.New("validation failed")), "")
		res := Retry(context.Background(), op, Standard(), WithTimer(&recordingTimer{}))
		assert.Equal(t, 3, *calls)
		assert.Equal(t, KindUnknown, res.Err().Kind)
		assert.True(t, res.Err().Retryable)
	})
}

func TestRetry_ResultExclusivity(t *testing.T) {
	ok := Retry(context.Background(), func(context.Context) (int, error) { return 7, nil }, Quick())
	assert.True(t, ok.OK())
	assert.Nil(t, ok.Err())

	bad := Retry(context.Background(), func(context.Context) (int, error) { return 7, errClient }, Quick())
	assert.False(t, bad.OK())
	assert.Zero(t, bad.Value())
	assert.NotNil(t, bad.Err())
}

func TestRetry_PreservesOriginalError(t *testing.T) {
	cause := &StatusError{Code: 500}
	op, _ := failing(1000, cause, "")

	res := Retry(context.Background(), op, Quick(), WithTimer(&recordingTimer{}))

	var se *StatusError
	require.ErrorAs(t, res.Err(), &se)
	assert.Same(t, cause, se)
	assert.Same(t, cause, res.Err().Err)
}

func TestRetry_Panic(t *testing.T) {
	calls := 0
	res := Retry(context.Background(), func(context.Context) (string, error) {
		calls++
		panic("boom")
	}, Standard(), WithTimer(&recordingTimer{}), WithShouldRetry(func(error) bool { return true }))

	require.False(t, res.OK())
	assert.Equal(t, 1, calls)
	var pe *PanicError
	require.ErrorAs(t, res.Err(), &pe)
	assert.Equal(t, "boom", pe.Value)
	assert.False(t, res.Err().Retryable)
}

func TestRetry_NilOperation(t *testing.T) {
	res := Retry[string](context.Background(), nil, Standard())
	require.False(t, res.OK())
	assert.Equal(t, 0, res.Attempts())
	assert.ErrorIs(t, res.Err(), ErrNilFunc)
}

func TestRetry_NilContext(t *testing.T) {
	//nolint:staticcheck // SA1012: 验证 nil ctx 被替换为 Background
	res := Retry(nil, func(ctx context.Context) (int, error) {
		if ctx == nil {
			return 0, errors.New("nil ctx")
		}
		return 1, nil
	}, Quick())
	assert.True(t, res.OK())
}

func TestRetry_InvalidConfigNormalized(t *testing.T) {
	op, calls := failing(1000, errServer, "")
	res := Retry(context.Background(), op, Config{MaxAttempts: 0, InitialDelay: -time.Second, BackoffMultiplier: 0},
		WithTimer(&recordingTimer{}))
	assert.Equal(t, 1, *calls)
	assert.Equal(t, 1, res.Attempts())
}

func TestRetry_ContextCanceledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	op, calls := failing(0, nil, "ok")

	res := Retry(ctx, op, Standard())

	require.False(t, res.OK())
	assert.Equal(t, 0, *calls)
	assert.Equal(t, KindCanceled, res.Err().Kind)
	assert.ErrorIs(t, res.Err(), context.Canceled)
}

func TestRetry_ContextCanceledDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	op, calls := failing(1000, errServer, "")

	res := Retry(ctx, op, Aggressive(),
		WithTimer(blockingTimer{}),
		WithOnRetry(func(int, *ClassifiedError) { cancel() }),
	)

	require.False(t, res.OK())
	assert.Equal(t, 1, *calls)
	assert.Equal(t, 1, res.Attempts())
	assert.Equal(t, KindCanceled, res.Err().Kind)
	assert.False(t, res.Err().Retryable)
	assert.ErrorIs(t, res.Err(), context.Canceled)
	assert.ErrorIs(t, res.Err(), errServer)
}

func TestRetry_OperationReturnsCanceled(t *testing.T) {
	op, calls := failing(1000, context.Canceled, "")
	res := Retry(context.Background(), op, Aggressive(), WithTimer(&recordingTimer{}))
	assert.Equal(t, 1, *calls)
	assert.Equal(t, KindCanceled, res.Err().Kind)
}

func TestRetry_CustomClassifier(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	cause := errors.New("quota exceeded")
	mockClassifier := NewMockClassifier(ctrl)
	mockClassifier.EXPECT().
		Classify(cause).
		Return(&ClassifiedError{Kind: KindServer, Retryable: true, Err: cause}).
		Times(2)

	op, calls := failing(2, cause, "ok")
	res := Retry(context.Background(), op, Standard(),
		WithTimer(&recordingTimer{}),
		WithClassifier(mockClassifier),
	)

	require.True(t, res.OK())
	assert.Equal(t, 3, *calls)
}

func TestRetry_ClassifierReturnsNil(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockClassifier := NewMockClassifier(ctrl)
	mockClassifier.EXPECT().Classify(gomock.Any()).Return(nil).AnyTimes()

	op, calls := failing(1000, errClient, "")
	res := Retry(context.Background(), op, Standard(), WithClassifier(mockClassifier))

	// 回退到默认分类
	assert.Equal(t, 1, *calls)
	assert.Equal(t, KindClient, res.Err().Kind)
}

func TestRetry_OnRetryReceivesClassifiedError(t *testing.T) {
	op, _ := failing(1, errTimeout, "ok")
	var got *ClassifiedError

	res := Retry(context.Background(), op, Standard(),
		WithTimer(&recordingTimer{}),
		WithOnRetry(func(attempt int, err *ClassifiedError) {
			assert.Equal(t, 1, attempt)
			got = err
		}),
	)

	require.True(t, res.OK())
	require.NotNil(t, got)
	assert.Equal(t, KindTimeout, got.Kind)
	assert.ErrorIs(t, got, context.DeadlineExceeded)
}

func TestRetry_IndependentCalls(t *testing.T) {
	var wg sync.WaitGroup
	results := make([]Result[int], 16)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			calls := 0
			results[i] = Retry(context.Background(), func(context.Context) (int, error) {
				calls++
				if calls < 2 {
					return 0, errServer
				}
				return i, nil
			}, Standard(), WithTimer(&recordingTimer{}))
		}()
	}
	wg.Wait()

	for i, res := range results {
		require.True(t, res.OK())
		assert.Equal(t, i, res.Value())
		assert.Equal(t, 2, res.Attempts())
	}
}

func TestRetry_Logging(t *testing.T) {
	var buf bytes.Buffer
	logger, cleanup, err := xlog.New().
		SetOutput(&buf).
		SetLevel(xlog.LevelDebug).
		SetFormat("json").
		Build()
	require.NoError(t, err)
	defer func() { _ = cleanup() }()

	op, _ := failing(1000, errServer, "")
	Retry(context.Background(), op, Quick(),
		WithTimer(&recordingTimer{}),
		WithName("fetch-inspections"),
		WithLogger(logger),
	)

	out := buf.String()
	assert.Contains(t, out, `"msg":"retrying"`)
	assert.Contains(t, out, `"msg":"retry failed"`)
	assert.Contains(t, out, `"operation":"fetch-inspections"`)
	assert.Contains(t, out, `"error_kind":"server"`)
}

func TestRetry_NoLoggingByDefault(t *testing.T) {
	op, _ := failing(1, errServer, "ok")
	res := Retry(context.Background(), op, Quick(), WithTimer(&recordingTimer{}), WithLogger(nil))
	assert.True(t, res.OK())
}

// recordingObserver 记录 span 事件，用于验证 xmetrics 集成。
type recordingObserver struct {
	mu     sync.Mutex
	opts   []xmetrics.SpanOptions
	events []xmetrics.RetryEvent
	ends   []xmetrics.Result
}

func (o *recordingObserver) Start(ctx context.Context, opts xmetrics.SpanOptions) (context.Context, xmetrics.Span) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.opts = append(o.opts, opts)
	return ctx, &recordingSpan{o: o}
}

type recordingSpan struct{ o *recordingObserver }

func (s *recordingSpan) Retry(ev xmetrics.RetryEvent) {
	s.o.mu.Lock()
	defer s.o.mu.Unlock()
	s.o.events = append(s.o.events, ev)
}

func (s *recordingSpan) End(r xmetrics.Result) {
	s.o.mu.Lock()
	defer s.o.mu.Unlock()
	s.o.ends = append(s.o.ends, r)
}

func TestRetry_Observer(t *testing.T) {
	obs := &recordingObserver{}
	op, _ := failing(2, errServer, "ok")

	res := Retry(context.Background(), op, noJitter(Standard()),
		WithTimer(&recordingTimer{}),
		WithName("sync"),
		WithObserver(obs),
	)
	require.True(t, res.OK())

	require.Len(t, obs.opts, 1)
	assert.Equal(t, "xretry", obs.opts[0].Component)
	assert.Equal(t, "sync", obs.opts[0].Operation)
	assert.Equal(t, xmetrics.KindInternal, obs.opts[0].Kind)

	require.Len(t, obs.events, 2)
	assert.Equal(t, xmetrics.RetryEvent{Attempt: 1, Delay: time.Second, ErrorKind: "server"}, obs.events[0])
	assert.Equal(t, xmetrics.RetryEvent{Attempt: 2, Delay: 2 * time.Second, ErrorKind: "server"}, obs.events[1])

	require.Len(t, obs.ends, 1)
	assert.NoError(t, obs.ends[0].Err)
	assert.Equal(t, 3, obs.ends[0].Attempts)
}

func TestRetry_SpanKind(t *testing.T) {
	obs := &recordingObserver{}
	res := Retry(context.Background(), func(context.Context) (int, error) { return 1, nil }, Quick(),
		WithObserver(obs), WithSpanKind(xmetrics.KindClient))
	require.True(t, res.OK())
	require.Len(t, obs.opts, 1)
	assert.Equal(t, xmetrics.KindClient, obs.opts[0].Kind)
}

func TestDo(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		v, err := Do(context.Background(), func(context.Context) (int, error) { return 42, nil }, Quick())
		require.NoError(t, err)
		assert.Equal(t, 42, v)
	})

	t.Run("FailureMatchesRetry", func(t *testing.T) {
		cause := errors.New("server said status 502")
		op := func(context.Context) (int, error) { return 0, cause }

		res := Retry(context.Background(), op, Quick(), WithTimer(&recordingTimer{}))
		_, err := Do(context.Background(), op, Quick(), WithTimer(&recordingTimer{}))

		var ce *ClassifiedError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, res.Err(), ce)
		assert.Same(t, cause, ce.Err)
	})
}

func TestExec(t *testing.T) {
	calls := 0
	err := Exec(context.Background(), func(context.Context) error {
		calls++
		if calls == 1 {
			return errTimeout
		}
		return nil
	}, Quick(), WithTimer(&recordingTimer{}))
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	err = Exec(context.Background(), nil, Quick())
	assert.ErrorIs(t, err, ErrNilFunc)
}

func TestWrap(t *testing.T) {
	op, calls := failing(1, errServer, "v")
	wrapped := Wrap(op, Quick(), WithTimer(&recordingTimer{}))

	v, err := wrapped(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "v", v)
	assert.Equal(t, 2, *calls)

	// 每次调用都是新的序列
	v, err = wrapped(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "v", v)
	assert.Equal(t, 3, *calls)
}

// 以下覆盖示例场景。

func TestScenario_StandardServerErrorsThenSuccess(t *testing.T) {
	timer := &recordingTimer{}
	op, _ := failing(2, &StatusError{Code: 500}, "payload")

	res := Retry(context.Background(), op, Standard(), WithTimer(timer))

	require.True(t, res.OK())
	assert.Equal(t, "payload", res.Value())
	assert.Equal(t, 3, res.Attempts())
	delays := timer.Delays()
	require.Len(t, delays, 2)
	assert.InDelta(t, float64(time.Second), float64(delays[0]), float64(250*time.Millisecond))
	assert.InDelta(t, float64(2*time.Second), float64(delays[1]), float64(500*time.Millisecond))
	for _, d := range delays {
		assert.LessOrEqual(t, d, 10*time.Second)
	}
}

func TestScenario_ClientErrorStopsImmediately(t *testing.T) {
	op, calls := failing(1000, &StatusError{Code: 400}, "")
	res := Retry(context.Background(), op, Config{MaxAttempts: 3, InitialDelay: time.Second, BackoffMultiplier: 2, MaxDelay: 30 * time.Second})
	require.False(t, res.OK())
	assert.Equal(t, 1, res.Attempts())
	assert.Equal(t, 1, *calls)
}

func TestScenario_TimeoutExhaustsQuickPolicy(t *testing.T) {
	timer := &recordingTimer{}
	op, _ := failing(1000, errTimeout, "")
	cfg := Config{MaxAttempts: 2, InitialDelay: 500 * time.Millisecond, BackoffMultiplier: 1.5, MaxDelay: 2 * time.Second, UseJitter: true}

	res := Retry(context.Background(), op, cfg, WithTimer(timer))

	require.False(t, res.OK())
	assert.Equal(t, 2, res.Attempts())
	assert.Equal(t, KindTimeout, res.Err().Kind)
	delays := timer.Delays()
	require.Len(t, delays, 1)
	assert.InDelta(t, float64(500*time.Millisecond), float64(delays[0]), float64(125*time.Millisecond))
}

func TestScenario_DoSurfacesSameError(t *testing.T) {
	cause := errors.New("connection refused")
	op := func(context.Context) (string, error) { return "", cause }

	res := Retry(context.Background(), op, DefaultConfig(), WithTimer(&recordingTimer{}))
	_, err := Do(context.Background(), op, DefaultConfig(), WithTimer(&recordingTimer{}))

	require.Error(t, err)
	assert.Equal(t, res.Err().Error(), err.Error())
	assert.Equal(t, res.Err().Kind, err.(*ClassifiedError).Kind)
	assert.Equal(t, 3, res.Attempts())
}
