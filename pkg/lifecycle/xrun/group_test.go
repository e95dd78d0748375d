package xrun

import (
	"bytes"
	"context"
	"errors"
	"os"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Solosh94/a1tools-sub006/pkg/observability/xlog"
)

var errBoom = errors.New("boom")

func TestGroup_FirstErrorCancelsOthers(t *testing.T) {
	g, ctx := NewGroup(context.Background())
	g.Go("waiter", WaitForDone())
	g.Go("failer", func(context.Context) error { return errBoom })

	err := g.Wait()
	assert.ErrorIs(t, err, errBoom)
	assert.Error(t, ctx.Err())
}

func TestGroup_AllSucceed(t *testing.T) {
	g, _ := NewGroup(context.Background())
	var n atomic.Int32
	for range 3 {
		g.Go("inc", func(context.Context) error {
			n.Add(1)
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, int32(3), n.Load())
}

func TestGroup_Cancel(t *testing.T) {
	t.Run("with cause", func(t *testing.T) {
		g, _ := NewGroup(context.Background())
		g.Go("waiter", WaitForDone())
		g.Cancel(errBoom)
		assert.ErrorIs(t, g.Wait(), errBoom)
	})

	t.Run("without cause", func(t *testing.T) {
		g, _ := NewGroup(context.Background())
		g.Go("waiter", WaitForDone())
		g.Cancel(nil)
		assert.NoError(t, g.Wait())
	})

	t.Run("cause survives nil returns", func(t *testing.T) {
		g, _ := NewGroup(context.Background())
		g.Go("quiet", func(ctx context.Context) error {
			<-ctx.Done()
			return nil
		})
		g.Cancel(errBoom)
		assert.ErrorIs(t, g.Wait(), errBoom)
	})
}

func TestGroup_TaskCanceledIsReturned(t *testing.T) {
	g, _ := NewGroup(context.Background())
	g.Go("inner", func(context.Context) error { return context.Canceled })
	assert.ErrorIs(t, g.Wait(), context.Canceled)
}

func TestGroup_NilInputs(t *testing.T) {
	//nolint:staticcheck // nil ctx 被归一化
	g, ctx := NewGroup(nil, nil, WithName(""), WithLogger(nil))
	require.NotNil(t, ctx)
	assert.Equal(t, "xrun", g.opts.name)
	g.Go("nil", nil)
	assert.ErrorIs(t, g.Wait(), ErrNilFunc)
}

func TestGroup_ParentCanceled(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	g, _ := NewGroup(parent)
	g.Go("waiter", WaitForDone())
	cancel()
	assert.NoError(t, g.Wait())
}

func TestGroup_Logging(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := xlog.New().SetOutput(&buf).SetFormat("json").SetLevelString("debug").Build()
	require.NoError(t, err)

	g, _ := NewGroup(context.Background(), WithName("probe-loop"), WithLogger(logger))
	g.Go("worker", func(context.Context) error { return errBoom })
	require.ErrorIs(t, g.Wait(), errBoom)

	out := buf.String()
	assert.Contains(t, out, `"group":"probe-loop"`)
	assert.Contains(t, out, `"operation":"worker"`)
	assert.Contains(t, out, "task exited with error")
	assert.Contains(t, out, "boom")
}

func TestRun_Signal(t *testing.T) {
	sigs := make(chan os.Signal, 1)
	ctx := withTestSigChan(context.Background(), sigs)

	started := make(chan struct{})
	errCh := make(chan error, 1)
	go func() {
		errCh <- Run(ctx, func(g *Group) {
			g.Go("waiter", func(ctx context.Context) error {
				close(started)
				<-ctx.Done()
				return ctx.Err()
			})
		})
	}()

	<-started
	sigs <- syscall.SIGTERM

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, ErrSignal)
		var sigErr *SignalError
		require.ErrorAs(t, err, &sigErr)
		assert.Equal(t, syscall.SIGTERM, sigErr.Signal)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after signal")
	}
}

func TestRun_WithoutSignalHandler(t *testing.T) {
	err := Run(context.Background(), func(g *Group) {
		g.Go("once", func(context.Context) error { return nil })
	}, WithoutSignalHandler())
	assert.NoError(t, err)
}

func TestRun_TaskErrorStopsSignalWatcher(t *testing.T) {
	err := Run(context.Background(), func(g *Group) {
		g.Go("failer", func(context.Context) error { return errBoom })
	}, WithSignals(syscall.SIGUSR1))
	assert.ErrorIs(t, err, errBoom)
}

func TestRun_NilSetup(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, Run(ctx, nil))
}

func TestSignalError(t *testing.T) {
	assert.Equal(t, "received signal <nil>", (&SignalError{}).Error())
	assert.Equal(t, "received signal interrupt", (&SignalError{Signal: os.Interrupt}).Error())
	assert.ErrorIs(t, &SignalError{Signal: os.Interrupt}, ErrSignal)
}

func TestDefaultSignals_ReturnsCopy(t *testing.T) {
	a := DefaultSignals()
	a[0] = nil
	assert.NotNil(t, DefaultSignals()[0])
}
