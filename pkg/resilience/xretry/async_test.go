package xretry

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("RetryAsync did not finish")
	}
}

func TestRetryAsync_Success(t *testing.T) {
	var successes, failures atomic.Int32
	var progress []int
	var got string

	op, _ := failing(2, errServer, "value")
	done := RetryAsync(context.Background(), op, Standard(), Handlers[string]{
		OnSuccess: func(v string) {
			successes.Add(1)
			got = v
		},
		OnError:    func(*ClassifiedError) { failures.Add(1) },
		OnRetrying: func(attempt int) { progress = append(progress, attempt) },
	}, WithTimer(&recordingTimer{}))
	waitDone(t, done)

	assert.Equal(t, int32(1), successes.Load())
	assert.Equal(t, int32(0), failures.Load())
	assert.Equal(t, "value", got)
	assert.Equal(t, []int{1, 2}, progress)
}

func TestRetryAsync_Error(t *testing.T) {
	var successes, failures atomic.Int32
	var got *ClassifiedError

	op, _ := failing(1000, errClient, "")
	done := RetryAsync(context.Background(), op, Standard(), Handlers[string]{
		OnSuccess: func(string) { successes.Add(1) },
		OnError: func(err *ClassifiedError) {
			failures.Add(1)
			got = err
		},
	})
	waitDone(t, done)

	assert.Equal(t, int32(0), successes.Load())
	assert.Equal(t, int32(1), failures.Load())
	require.NotNil(t, got)
	assert.Equal(t, KindClient, got.Kind)
}

func TestRetryAsync_NilHandlers(t *testing.T) {
	op, _ := failing(1000, errClient, "")
	waitDone(t, RetryAsync(context.Background(), op, Quick(), Handlers[string]{}))

	op, _ = failing(0, nil, "ok")
	waitDone(t, RetryAsync(context.Background(), op, Quick(), Handlers[string]{}))
}

func TestRetryAsync_DoesNotMutateCallerOptions(t *testing.T) {
	opts := make([]Option, 1, 4)
	opts[0] = WithTimer(&recordingTimer{})

	op, _ := failing(1, errServer, "ok")
	waitDone(t, RetryAsync(context.Background(), op, Quick(), Handlers[string]{
		OnRetrying: func(int) {},
	}, opts...))

	assert.Len(t, opts, 1)
	assert.Len(t, opts[:cap(opts)][1:2], 1)
	assert.Nil(t, opts[:cap(opts)][1])
}
