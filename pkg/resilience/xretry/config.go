package xretry

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// Config 重试策略，按值传递，构造后不应修改。
type Config struct {
	// MaxAttempts 总尝试次数（包含首次尝试），最小为 1
	MaxAttempts int `koanf:"max_attempts" json:"max_attempts"`

	// InitialDelay 首次重试前的延迟
	InitialDelay time.Duration `koanf:"initial_delay" json:"initial_delay"`

	// BackoffMultiplier 每次失败后延迟的增长倍数（>= 1.0）
	BackoffMultiplier float64 `koanf:"backoff_multiplier" json:"backoff_multiplier"`

	// MaxDelay 延迟上限
	MaxDelay time.Duration `koanf:"max_delay" json:"max_delay"`

	// UseJitter 是否对延迟施加 ±25% 的随机抖动
	UseJitter bool `koanf:"use_jitter" json:"use_jitter"`
}

// 预置策略名称。
const (
	PresetQuick      = "quick"
	PresetStandard   = "standard"
	PresetAggressive = "aggressive"
)

// DefaultConfig 返回未指定策略时的默认值：3 次，1s 起，2 倍，上限 30s，启用抖动。
func DefaultConfig() Config {
	return Config{
		MaxAttempts:       3,
		InitialDelay:      time.Second,
		BackoffMultiplier: 2.0,
		MaxDelay:          30 * time.Second,
		UseJitter:         true,
	}
}

// Quick 快速失败策略，适用于交互场景。
func Quick() Config {
	return Config{
		MaxAttempts:       2,
		InitialDelay:      500 * time.Millisecond,
		BackoffMultiplier: 1.5,
		MaxDelay:          2 * time.Second,
		UseJitter:         true,
	}
}

// Standard 标准策略。
func Standard() Config {
	return Config{
		MaxAttempts:       3,
		InitialDelay:      time.Second,
		BackoffMultiplier: 2.0,
		MaxDelay:          10 * time.Second,
		UseJitter:         true,
	}
}

// Aggressive 激进策略，适用于后台同步等可以长时间等待的场景。
func Aggressive() Config {
	return Config{
		MaxAttempts:       5,
		InitialDelay:      2 * time.Second,
		BackoffMultiplier: 2.0,
		MaxDelay:          30 * time.Second,
		UseJitter:         true,
	}
}

var presets = map[string]func() Config{
	PresetQuick:      Quick,
	PresetStandard:   Standard,
	PresetAggressive: Aggressive,
}

// Preset 按名称（大小写不敏感）返回预置策略。
func Preset(name string) (Config, error) {
	fn, ok := presets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Config{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	return fn(), nil
}

// PresetNames 返回按字母序排列的预置策略名称。
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate 检查策略是否满足不变量，返回所有违反项。
func (c Config) Validate() error {
	var errs []error
	if c.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("%w: max_attempts must be >= 1, got %d", ErrInvalidConfig, c.MaxAttempts))
	}
	if c.InitialDelay < 0 {
		errs = append(errs, fmt.Errorf("%w: initial_delay must be >= 0, got %s", ErrInvalidConfig, c.InitialDelay))
	}
	if c.BackoffMultiplier < 1 || math.IsNaN(c.BackoffMultiplier) {
		errs = append(errs, fmt.Errorf("%w: backoff_multiplier must be >= 1.0, got %g", ErrInvalidConfig, c.BackoffMultiplier))
	}
	if c.MaxDelay < 0 {
		errs = append(errs, fmt.Errorf("%w: max_delay must be >= 0, got %s", ErrInvalidConfig, c.MaxDelay))
	}
	return errors.Join(errs...)
}

// normalize 把非法字段收敛到最近的合法值，执行器从不因为策略非法而失败。
func (c Config) normalize() Config {
	if c.MaxAttempts < 1 {
		c.MaxAttempts = 1
	}
	if c.InitialDelay < 0 {
		c.InitialDelay = 0
	}
	if c.BackoffMultiplier < 1 || math.IsNaN(c.BackoffMultiplier) {
		c.BackoffMultiplier = 1
	}
	if c.MaxDelay < 0 {
		c.MaxDelay = 0
	}
	return c
}

// Schedule 返回不含抖动的重试间隔序列，长度为 MaxAttempts-1。
// 第 i 个元素是第 i 次尝试失败后、第 i+1 次尝试前的等待时间。
func Schedule(cfg Config) []time.Duration {
	cfg = cfg.normalize()
	cfg.UseJitter = false
	b := NewExponentialBackoff(cfg)
	out := make([]time.Duration, 0, cfg.MaxAttempts-1)
	for attempt := 1; attempt < cfg.MaxAttempts; attempt++ {
		out = append(out, b.NextDelay(attempt))
	}
	return out
}

// String 返回策略的紧凑描述，用于日志。
func (c Config) String() string {
	return fmt.Sprintf("attempts=%d initial=%s multiplier=%g max=%s jitter=%t",
		c.MaxAttempts, c.InitialDelay, c.BackoffMultiplier, c.MaxDelay, c.UseJitter)
}
