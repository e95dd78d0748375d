package xbreaker

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Config 可从配置文件加载的熔断参数。
//
// ConsecutiveFailures 和 FailureRatio 任一满足即熔断；两者都为 0 时只统计不熔断。
type Config struct {
	// ConsecutiveFailures 连续失败次数阈值，0 表示不启用
	ConsecutiveFailures uint32 `koanf:"consecutive_failures" json:"consecutive_failures"`
	// FailureRatio 失败率阈值 (0, 1]，0 表示不启用
	FailureRatio float64 `koanf:"failure_ratio" json:"failure_ratio"`
	// MinRequests 计算失败率前要求的最小请求数
	MinRequests uint32 `koanf:"min_requests" json:"min_requests"`
	// Timeout Open 转 HalfOpen 的等待时间
	Timeout time.Duration `koanf:"timeout" json:"timeout"`
	// Interval 统计清零周期，0 表示持续累积
	Interval time.Duration `koanf:"interval" json:"interval"`
	// BucketPeriod 滑动窗口桶周期，需同时设置 Interval
	BucketPeriod time.Duration `koanf:"bucket_period" json:"bucket_period"`
	// MaxRequests HalfOpen 状态放行的请求数
	MaxRequests uint32 `koanf:"max_requests" json:"max_requests"`
}

// DefaultConfig 与 NewBreaker 的默认行为一致。
func DefaultConfig() Config {
	return Config{
		ConsecutiveFailures: 5,
		Timeout:             60 * time.Second,
		MaxRequests:         1,
	}
}

// Validate 检查配置，返回的错误包含所有违规项并包装 ErrInvalidConfig。
func (c Config) Validate() error {
	var errs []error
	if math.IsNaN(c.FailureRatio) || c.FailureRatio < 0 || c.FailureRatio > 1 {
		errs = append(errs, fmt.Errorf("failure_ratio must be within [0, 1], got %v", c.FailureRatio))
	}
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout must be >= 0, got %s", c.Timeout))
	}
	if c.Interval < 0 {
		errs = append(errs, fmt.Errorf("interval must be >= 0, got %s", c.Interval))
	}
	if c.BucketPeriod < 0 {
		errs = append(errs, fmt.Errorf("bucket_period must be >= 0, got %s", c.BucketPeriod))
	}
	if c.BucketPeriod > 0 && c.Interval == 0 {
		errs = append(errs, errors.New("bucket_period requires interval"))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

// TripPolicy 按阈值组合出熔断策略。
func (c Config) TripPolicy() TripPolicy {
	var policies AnyOf
	if c.ConsecutiveFailures > 0 {
		policies = append(policies, ConsecutiveFailures(c.ConsecutiveFailures))
	}
	if c.FailureRatio > 0 {
		policies = append(policies, FailureRatio{Ratio: c.FailureRatio, MinRequests: c.MinRequests})
	}
	switch len(policies) {
	case 0:
		return NeverTrip()
	case 1:
		return policies[0]
	default:
		return policies
	}
}

// Options 转为 NewBreaker 选项，零值字段沿用 NewBreaker 默认值。
func (c Config) Options() []BreakerOption {
	return []BreakerOption{
		WithTripPolicy(c.TripPolicy()),
		WithTimeout(c.Timeout),
		WithInterval(c.Interval),
		WithBucketPeriod(c.BucketPeriod),
		WithMaxRequests(c.MaxRequests),
	}
}
