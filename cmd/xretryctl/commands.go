package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/Solosh94/a1tools-sub006/pkg/config/xconf"
	"github.com/Solosh94/a1tools-sub006/pkg/observability/xlog"
	"github.com/Solosh94/a1tools-sub006/pkg/resilience/xretry"
)

// exitError 命令已完成输出，只需设置退出码。
type exitError struct {
	code int
}

func (e *exitError) Error() string { return fmt.Sprintf("exit code %d", e.code) }

// usageError 参数错误，退出码 2。
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

// isCLIUsageError 识别 urfave/cli 的 flag 解析错误。
func isCLIUsageError(err error) bool {
	msg := err.Error()
	for _, s := range []string{"flag provided but not defined", "invalid value", "No help topic"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// env 命令共享的输出和 HTTP 客户端，测试时替换。
type env struct {
	out    io.Writer
	errOut io.Writer
	client *http.Client
}

func newEnv(out, errOut io.Writer) *env {
	return &env{out: out, errOut: errOut, client: &http.Client{}}
}

// envPrefix 环境变量覆盖策略文件，如 XRETRY_DEFAULT=quick、XRETRY_LOG_LEVEL=debug。
const envPrefix = "XRETRY_"

// openStore 打开 --config 指定的策略文件，未指定时使用空目录。两者都叠加环境变量。
func openStore(cmd *cli.Command) (*xconf.Store, error) {
	if path := cmd.String("config"); path != "" {
		return xconf.Open(path, xconf.WithEnvPrefix(envPrefix))
	}
	cfg, err := xconf.NewFromBytes(nil, xconf.FormatYAML, xconf.WithEnvPrefix(envPrefix))
	if err != nil {
		return nil, err
	}
	return xconf.NewStore(cfg)
}

// loadCatalog 返回一次性使用的策略目录。
func loadCatalog(cmd *cli.Command) (*xconf.Catalog, error) {
	store, err := openStore(cmd)
	if err != nil {
		return nil, err
	}
	return store.Catalog(), nil
}

// buildLogger 以目录 log 段为基础，命令行显式设置的 flag 覆盖之。
func (e *env) buildLogger(cmd *cli.Command, cat *xconf.Catalog) (xlog.LoggerWithLevel, func() error, error) {
	lc := cat.Log()
	b := lc.Builder()
	if lc.Rotation == nil {
		b.SetOutput(e.errOut)
	}
	if lc.Level == "" || cmd.IsSet("log-level") {
		b.SetLevelString(cmd.String("log-level"))
	}
	if lc.Format == "" || cmd.IsSet("log-format") {
		b.SetFormat(cmd.String("log-format"))
	}
	return b.Build()
}

func createPresetsCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:    "presets",
		Aliases: []string{"ls"},
		Usage:   "列出内置预设和策略目录中的策略",
		Action: func(_ context.Context, cmd *cli.Command) error {
			cat, err := loadCatalog(cmd)
			if err != nil {
				return err
			}
			return printPresets(e.out, cat)
		},
	}
}

func printPresets(w io.Writer, cat *xconf.Catalog) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "NAME\tSOURCE\tCONFIG")
	for _, name := range xretry.PresetNames() {
		cfg, _ := xretry.Preset(name)
		_, _ = fmt.Fprintf(tw, "%s\tbuiltin\t%s\n", name, cfg)
	}
	for _, name := range cat.Names() {
		cfg, err := cat.Policy(name)
		if err != nil {
			return err
		}
		source := "config"
		if name == cat.Default() {
			source = "config (default)"
		}
		if _, ok := cat.Breaker(name); ok {
			source += " +breaker"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", name, source, cfg)
	}
	return tw.Flush()
}

func createScheduleCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:      "schedule",
		Usage:     "打印策略的退避时间表",
		ArgsUsage: "[policy]",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "attempts", Usage: "覆盖最大尝试次数"},
			&cli.DurationFlag{Name: "initial", Usage: "覆盖初始延迟"},
			&cli.FloatFlag{Name: "multiplier", Usage: "覆盖退避倍数"},
			&cli.DurationFlag{Name: "max-delay", Usage: "覆盖最大延迟"},
			&cli.BoolFlag{Name: "no-jitter", Usage: "关闭抖动"},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			if cmd.NArg() > 1 {
				return &usageError{msg: "schedule 最多接受一个策略名"}
			}
			cat, err := loadCatalog(cmd)
			if err != nil {
				return err
			}
			name := cmd.Args().First()
			cfg, err := cat.Policy(name)
			if err != nil {
				return err
			}
			if cmd.IsSet("attempts") {
				cfg.MaxAttempts = int(cmd.Int("attempts"))
			}
			if cmd.IsSet("initial") {
				cfg.InitialDelay = cmd.Duration("initial")
			}
			if cmd.IsSet("multiplier") {
				cfg.BackoffMultiplier = cmd.Float("multiplier")
			}
			if cmd.IsSet("max-delay") {
				cfg.MaxDelay = cmd.Duration("max-delay")
			}
			if cmd.Bool("no-jitter") {
				cfg.UseJitter = false
			}
			if err := cfg.Validate(); err != nil {
				return &usageError{msg: err.Error()}
			}
			if name == "" {
				name = "default"
			}
			printSchedule(e.out, name, cfg)
			return nil
		},
	}
}

func printSchedule(w io.Writer, name string, cfg xretry.Config) {
	_, _ = fmt.Fprintf(w, "policy %s: %s\n", name, cfg)
	var total time.Duration
	for i, d := range xretry.Schedule(cfg) {
		total += d
		if cfg.UseJitter {
			lo := time.Duration(float64(d) * (1 - xretry.JitterFraction))
			hi := time.Duration(float64(d) * (1 + xretry.JitterFraction))
			_, _ = fmt.Fprintf(w, "  before attempt %d: %s (%s..%s)\n", i+2, d, lo, hi)
			continue
		}
		_, _ = fmt.Fprintf(w, "  before attempt %d: %s\n", i+2, d)
	}
	_, _ = fmt.Fprintf(w, "total wait: %s\n", total)
}

func createProbeCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:      "probe",
		Usage:     "按重试策略并发探测 HTTP 端点",
		ArgsUsage: "<url>...",
		Flags:     probeFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			urls, err := validateProbeArgs(cmd)
			if err != nil {
				return err
			}
			cat, err := loadCatalog(cmd)
			if err != nil {
				return err
			}
			logger, cleanup, err := e.buildLogger(cmd, cat)
			if err != nil {
				return &usageError{msg: err.Error()}
			}
			defer func() { _ = cleanup() }()

			p, err := e.newCatalogProber(cmd, cat, logger)
			if err != nil {
				return err
			}

			results, err := p.probeAll(ctx, urls)
			if err != nil {
				return err
			}
			if failed := printResults(e.out, results); failed > 0 {
				return &exitError{code: 1}
			}
			return nil
		},
	}
}

// probeFlags probe 和 watch 共用的探测参数。
func probeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "policy", Aliases: []string{"p"}, Usage: "策略名，默认使用目录的 default"},
		&cli.StringFlag{Name: "method", Value: http.MethodGet, Usage: "HTTP 方法"},
		&cli.IntFlag{Name: "concurrency", Value: 4, Usage: "并发探测数"},
		&cli.DurationFlag{Name: "timeout", Value: 5 * time.Second, Usage: "单次尝试超时"},
	}
}

// validateProbeArgs 检查 URL 列表和并发数。
func validateProbeArgs(cmd *cli.Command) ([]string, error) {
	urls := cmd.Args().Slice()
	if len(urls) == 0 {
		return nil, &usageError{msg: cmd.Name + " 需要至少一个 URL"}
	}
	if cmd.Int("concurrency") < 1 {
		return nil, &usageError{msg: "--concurrency 必须 >= 1"}
	}
	return urls, nil
}

// newCatalogProber 按 --policy 从目录解析重试策略和熔断配置。
// 策略不存在属于参数错误。
func (e *env) newCatalogProber(cmd *cli.Command, cat *xconf.Catalog, logger xlog.Logger) (*prober, error) {
	policy := cmd.String("policy")
	cfg, err := cat.Policy(policy)
	if err != nil {
		return nil, &usageError{msg: err.Error()}
	}
	p, err := newProber(e.client, proberOptions{
		method:      strings.ToUpper(cmd.String("method")),
		timeout:     cmd.Duration("timeout"),
		concurrency: int(cmd.Int("concurrency")),
		policy:      policy,
		retry:       cfg,
		logger:      logger,
	})
	if err != nil {
		return nil, err
	}
	if bc, ok := cat.Breaker(policy); ok {
		p.breakerOpts = bc.Options()
	}
	return p, nil
}

func printResults(w io.Writer, results []probeResult) int {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	failed := 0
	for _, r := range results {
		if r.err == nil {
			_, _ = fmt.Fprintf(tw, "OK\t%d\tattempts=%d\t%s\t%s\n", r.status, r.attempts, r.elapsed.Round(time.Millisecond), r.url)
			continue
		}
		failed++
		kind := "error"
		var ce *xretry.ClassifiedError
		if errors.As(r.err, &ce) {
			kind = ce.Kind.String()
		}
		_, _ = fmt.Fprintf(tw, "FAIL\t%s\tattempts=%d\t%s\t%s: %v\n", kind, r.attempts, r.elapsed.Round(time.Millisecond), r.url, r.err)
	}
	_ = tw.Flush()
	return failed
}
