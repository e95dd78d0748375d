// Package xrun 管理命令行进程中的长期运行任务：信号退出、周期任务、失败后按重试策略重启。
//
// Group 基于 [errgroup] 和 context 协调多个任务。任一任务返回错误，
// 或者调用 Cancel、收到系统信号时，所有任务的 ctx 都会被取消。
//
//	err := xrun.Run(ctx, func(g *xrun.Group) {
//	    g.Go("reload", xrun.WaitForDone())
//	    g.Go("probe", xrun.Ticker(30*time.Second, true, probeOnce))
//	}, xrun.WithName("xretryctl"), xrun.WithLogger(logger))
//	if errors.Is(err, xrun.ErrSignal) {
//	    // 正常退出
//	}
//
// Supervise 把一次性任务包装成可重启的任务，重启间隔由 [xretry.Config] 决定：
//
//	g.Go("consumer", xrun.Supervise(xretry.Standard(), consume))
//
// [errgroup]: https://pkg.go.dev/golang.org/x/sync/errgroup
package xrun
