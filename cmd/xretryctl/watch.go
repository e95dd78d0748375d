package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/Solosh94/a1tools-sub006/pkg/config/xconf"
	"github.com/Solosh94/a1tools-sub006/pkg/lifecycle/xrun"
	"github.com/Solosh94/a1tools-sub006/pkg/observability/xlog"
)

func createWatchCommand(e *env) *cli.Command {
	flags := append(probeFlags(),
		&cli.DurationFlag{Name: "every", Value: 30 * time.Second, Usage: "探测周期"},
		&cli.IntFlag{Name: "rounds", Usage: "探测轮数后退出，0 表示直到收到信号"},
	)
	return &cli.Command{
		Name:      "watch",
		Usage:     "周期性探测 HTTP 端点，策略文件变更后自动生效",
		ArgsUsage: "<url>...",
		Flags:     flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			urls, err := validateProbeArgs(cmd)
			if err != nil {
				return err
			}
			if cmd.Duration("every") <= 0 {
				return &usageError{msg: "--every 必须为正数"}
			}
			if cmd.Int("rounds") < 0 {
				return &usageError{msg: "--rounds 不能为负数"}
			}

			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			logger, cleanup, err := e.buildLogger(cmd, store.Catalog())
			if err != nil {
				return &usageError{msg: err.Error()}
			}
			defer func() { _ = cleanup() }()

			w := &watchLoop{env: e, cmd: cmd, store: store, logger: logger, urls: urls, rounds: int(cmd.Int("rounds"))}
			// 先解析一次，策略名错误在启动时就报告。
			if err := w.refresh(); err != nil {
				return err
			}
			if cmd.String("config") != "" {
				watcher, err := store.Watch(logger, nil)
				if err != nil {
					return err
				}
				defer func() { _ = watcher.Stop() }()
			}

			err = xrun.Run(ctx, func(g *xrun.Group) {
				g.Go("probe", xrun.Ticker(cmd.Duration("every"), true, func(ctx context.Context) error {
					return w.round(ctx, g)
				}))
			}, xrun.WithName("xretryctl-watch"), xrun.WithLogger(logger))
			if err != nil && !errors.Is(err, xrun.ErrSignal) {
				return err
			}
			if w.lastFailed > 0 {
				return &exitError{code: 1}
			}
			return nil
		},
	}
}

// watchLoop 每轮探测前检查目录是否被重载，重载后重建 prober（熔断状态随之重置）。
type watchLoop struct {
	env    *env
	cmd    *cli.Command
	store  *xconf.Store
	logger xlog.Logger
	urls   []string
	rounds int

	cat        *xconf.Catalog
	prober     *prober
	completed  int
	lastFailed int
}

func (w *watchLoop) refresh() error {
	cat := w.store.Catalog()
	if cat == w.cat {
		return nil
	}
	p, err := w.env.newCatalogProber(w.cmd, cat, w.logger)
	if err != nil {
		return err
	}
	w.cat, w.prober = cat, p
	return nil
}

func (w *watchLoop) round(ctx context.Context, g *xrun.Group) error {
	if err := w.refresh(); err != nil {
		// 新目录中策略不可用时沿用旧 prober。
		w.logger.Warn(ctx, "policy unavailable after reload, keeping previous",
			xlog.Policy(w.cmd.String("policy")), xlog.Err(err))
	}

	results, err := w.prober.probeAll(ctx, w.urls)
	if err != nil {
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	w.completed++
	_, _ = fmt.Fprintf(w.env.out, "round %d %s\n", w.completed, time.Now().Format(time.RFC3339))
	w.lastFailed = printResults(w.env.out, results)
	w.logger.Debug(ctx, "watch round finished",
		slog.Int("round", w.completed), slog.Int("failed", w.lastFailed))

	if w.rounds > 0 && w.completed >= w.rounds {
		g.Cancel(nil)
		return context.Canceled
	}
	return nil
}
