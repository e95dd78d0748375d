// xretryctl 是重试策略的命令行工具：查看预设、打印退避时间表、按策略探测 HTTP 端点。
//
// 用法:
//
//	xretryctl [全局选项] <命令> [命令参数]
//
// 全局选项:
//
//	-c, --config      策略目录文件（YAML/JSON），也可通过 XRETRY_CONFIG 指定
//	    --log-level   日志级别 (默认: warn)
//	    --log-format  日志格式 text/json (默认: text)
//
// 环境变量 XRETRY_<段>_<字段> 覆盖策略文件，如 XRETRY_DEFAULT=quick、XRETRY_LOG_LEVEL=debug。
//
// 命令:
//
//	presets             列出内置预设和策略目录中的策略
//	schedule [policy]   打印策略的退避时间表
//	probe <url>...      按策略并发探测 HTTP 端点
//	watch <url>...      周期性探测，策略文件变更后自动生效
//
// 退出码:
//
//	0: 成功
//	1: 执行失败（probe: 任一端点最终失败；watch: 最后一轮有端点失败）
//	2: 参数错误
//
// 示例:
//
//	xretryctl presets
//	xretryctl schedule aggressive
//	xretryctl schedule --initial 200ms --multiplier 3 --attempts 6
//	xretryctl -c policies.yaml probe --policy sync https://example.com/healthz
//	xretryctl -c policies.yaml watch --every 1m https://example.com/healthz
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/Solosh94/a1tools-sub006/pkg/observability/xlog"
)

// 版本信息，通过 -ldflags 注入:
//
//	go build -ldflags "-X main.Version=1.0.0 -X main.GitCommit=$(git rev-parse --short HEAD)"
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	os.Exit(run(context.Background(), os.Args, os.Stdout, os.Stderr))
}

func createApp(e *env) *cli.Command {
	return &cli.Command{
		Name:      "xretryctl",
		Usage:     "重试策略查看与 HTTP 探测工具",
		Version:   fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime),
		Writer:    e.out,
		ErrWriter: e.errOut,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "策略目录文件（YAML/JSON）",
				Sources: cli.EnvVars("XRETRY_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "日志级别 " + strings.Join(xlog.LevelNames(), "/"),
				Value: "warn",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "日志格式 text/json",
				Value: "text",
			},
		},
		Commands: []*cli.Command{
			createPresetsCommand(e),
			createScheduleCommand(e),
			createProbeCommand(e),
			createWatchCommand(e),
		},
		// 禁止 urfave/cli 直接 os.Exit，退出码统一由 run 映射。
		ExitErrHandler: func(_ context.Context, _ *cli.Command, err error) {
			var ec cli.ExitCoder
			if errors.As(err, &ec) {
				_, _ = fmt.Fprintln(e.errOut, err)
			}
		},
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	e := newEnv(stdout, stderr)
	if err := createApp(e).Run(ctx, args); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			return exitErr.code
		}
		var usageErr *usageError
		if errors.As(err, &usageErr) {
			_, _ = fmt.Fprintf(stderr, "参数错误: %v\n", usageErr)
			return 2
		}
		if isCLIUsageError(err) {
			_, _ = fmt.Fprintf(stderr, "参数错误: %v\n", err)
			return 2
		}
		_, _ = fmt.Fprintf(stderr, "错误: %v\n", err)
		return 1
	}
	return 0
}
