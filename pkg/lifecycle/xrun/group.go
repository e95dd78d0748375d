package xrun

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"

	"golang.org/x/sync/errgroup"

	"github.com/Solosh94/a1tools-sub006/pkg/observability/xlog"
)

// Group 并发运行一组任务，任一任务失败时取消其余任务。
//
// Go 和 Cancel 可并发调用，Wait 只应调用一次。
type Group struct {
	eg       *errgroup.Group
	ctx      context.Context
	causeCtx context.Context
	cancel   context.CancelCauseFunc
	opts     *groupOptions
}

// NewGroup 创建 Group，返回的 context 在任一任务失败或 Cancel 后被取消。
// nil ctx 视为 context.Background()。
func NewGroup(ctx context.Context, opts ...Option) (*Group, context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	options := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(options)
		}
	}

	causeCtx, cancel := context.WithCancelCause(ctx)
	eg, egCtx := errgroup.WithContext(causeCtx)
	return &Group{
		eg:       eg,
		ctx:      egCtx,
		causeCtx: causeCtx,
		cancel:   cancel,
		opts:     options,
	}, egCtx
}

// Go 在新 goroutine 中运行 fn，name 用于日志。
// fn 应在 ctx 取消后尽快返回；返回 context.Canceled 视为正常停止。
func (g *Group) Go(name string, fn func(ctx context.Context) error) {
	g.eg.Go(func() error {
		if fn == nil {
			return ErrNilFunc
		}
		logger := g.opts.logger.With(slog.String("group", g.opts.name), xlog.Operation(name))
		logger.Debug(g.ctx, "task starting")
		err := fn(g.ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn(g.ctx, "task exited with error", xlog.Err(err))
		} else {
			logger.Debug(g.ctx, "task stopped")
		}
		return err
	})
}

// Wait 等待全部任务结束，返回第一个错误。
//
// 由 Cancel(cause) 或信号触发的退出返回 cause（例如 *SignalError）；
// 没有 cause 的取消返回 nil。任务自己返回的 context.Canceled 原样返回。
func (g *Group) Wait() error {
	defer g.cancel(nil)

	err := g.eg.Wait()
	cause := g.cause()
	if errors.Is(err, context.Canceled) {
		if g.causeCtx.Err() == nil {
			return err
		}
		return cause
	}
	if err == nil {
		return cause
	}
	return err
}

// cause 返回显式的取消原因，普通取消返回 nil。
func (g *Group) cause() error {
	if g.causeCtx.Err() == nil {
		return nil
	}
	if c := context.Cause(g.causeCtx); c != nil && !errors.Is(c, context.Canceled) {
		return c
	}
	return nil
}

// Cancel 取消所有任务。cause 不应包装 context.Canceled，否则 Wait 会把它当成普通取消。
func (g *Group) Cancel(cause error) {
	g.cancel(cause)
}

// Context 返回任务使用的 context。
func (g *Group) Context() context.Context {
	return g.ctx
}

// Run 创建 Group，由 setup 注册任务，然后等待结束。
// 默认监听 DefaultSignals，收到信号后以 *SignalError 取消所有任务。
func Run(ctx context.Context, setup func(g *Group), opts ...Option) error {
	g, _ := NewGroup(ctx, opts...)

	if !g.opts.noSignalHandler {
		signals := g.opts.signals
		if len(signals) == 0 {
			signals = DefaultSignals()
		}
		g.eg.Go(func() error {
			return g.waitSignal(signals)
		})
	}

	if setup != nil {
		setup(g)
	}
	return g.Wait()
}

func (g *Group) waitSignal(signals []os.Signal) error {
	ctx := g.ctx
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, signals...)
	defer signal.Stop(sigCh)

	var sig os.Signal
	select {
	case sig = <-testSigChan(ctx):
	case sig = <-sigCh:
	case <-ctx.Done():
		return ctx.Err()
	}

	g.opts.logger.Info(ctx, "received signal",
		slog.String("group", g.opts.name), slog.String("signal", sig.String()))
	g.cancel(&SignalError{Signal: sig})
	return nil
}

// testSigChanKey 测试通过 context 注入信号，避免向进程发送真实信号。
type testSigChanKey struct{}

func testSigChan(ctx context.Context) <-chan os.Signal {
	c, _ := ctx.Value(testSigChanKey{}).(<-chan os.Signal)
	return c
}

func withTestSigChan(ctx context.Context, c <-chan os.Signal) context.Context {
	return context.WithValue(ctx, testSigChanKey{}, c)
}
