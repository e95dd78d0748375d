package xretry

import (
	"crypto/rand"
	"encoding/binary"
	"math"
	"time"
)

// JitterFraction 抖动幅度：实际延迟落在计算值的 ±25% 范围内。
const JitterFraction = 0.25

// BackoffPolicy 定义退避策略接口
type BackoffPolicy interface {
	// NextDelay 返回下次重试前的延迟
	// attempt: 刚刚失败的尝试序号（从 1 开始）
	NextDelay(attempt int) time.Duration
}

// RandomFunc 返回 [0, 1) 区间的随机数，用于计算抖动。
type RandomFunc func() float64

// ExponentialBackoff 指数退避策略
// delay = min(initialDelay * multiplier^(attempt-1), maxDelay)
// 启用抖动时 delay *= 1 + (2r-1)*JitterFraction，结果不小于 0。
type ExponentialBackoff struct {
	initialDelay time.Duration
	maxDelay     time.Duration
	multiplier   float64
	jitter       bool
	random       RandomFunc
}

// ExponentialBackoffOption 指数退避配置选项
type ExponentialBackoffOption func(*ExponentialBackoff)

// WithJitterSource 设置抖动随机源，nil 会被忽略。
// 主要用于测试中获得确定性的延迟。
func WithJitterSource(fn RandomFunc) ExponentialBackoffOption {
	return func(b *ExponentialBackoff) {
		if fn != nil {
			b.random = fn
		}
	}
}

// NewExponentialBackoff 根据 Config 创建指数退避策略。
// 非法字段会先被收敛（见 Config.Validate）。
func NewExponentialBackoff(cfg Config, opts ...ExponentialBackoffOption) *ExponentialBackoff {
	cfg = cfg.normalize()
	b := &ExponentialBackoff{
		initialDelay: cfg.InitialDelay,
		maxDelay:     cfg.MaxDelay,
		multiplier:   cfg.BackoffMultiplier,
		jitter:       cfg.UseJitter,
		random:       randomFloat64,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NextDelay 实现 BackoffPolicy。
func (b *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	delay := float64(b.initialDelay) * math.Pow(b.multiplier, float64(attempt-1))
	// math.Pow 溢出为 +Inf 时视为已达上限
	if math.IsNaN(delay) || delay >= float64(b.maxDelay) {
		delay = float64(b.maxDelay)
	}

	if b.jitter {
		delay *= 1 + (b.random()*2-1)*JitterFraction
	}

	if math.IsNaN(delay) || delay < 0 {
		return 0
	}
	if delay >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(delay)
}

// Base 返回不含抖动的延迟，用于日志和测试断言。
func (b *ExponentialBackoff) Base(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := float64(b.initialDelay) * math.Pow(b.multiplier, float64(attempt-1))
	if math.IsNaN(delay) || delay >= float64(b.maxDelay) {
		return b.maxDelay
	}
	return time.Duration(delay)
}

var _ BackoffPolicy = (*ExponentialBackoff)(nil)

const (
	floatBits  = 53
	floatScale = 1.0 / (1 << floatBits)
)

// randomFloat64 使用 crypto/rand，无需全局种子，并发安全。
func randomFloat64() float64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// 读取失败时返回 0.5，抖动因子为 1（无抖动）
		return 0.5
	}
	return float64(binary.LittleEndian.Uint64(buf[:])>>11) * floatScale
}
