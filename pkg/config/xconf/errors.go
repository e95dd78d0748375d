package xconf

import "errors"

// 配置加载和解析错误
var (
	ErrEmptyPath         = errors.New("xconf: empty config path")
	ErrUnsupportedFormat = errors.New("xconf: unsupported config format")
	ErrLoadFailed        = errors.New("xconf: failed to load config")
	ErrParseFailed       = errors.New("xconf: failed to parse config")
	ErrUnmarshalFailed   = errors.New("xconf: failed to unmarshal config")
	ErrNotReloadable     = errors.New("xconf: config created from bytes cannot be reloaded or watched")
)

// 重试策略目录错误
var (
	// ErrUnknownPolicy 策略名既不在目录中也不是内置预设
	ErrUnknownPolicy = errors.New("xconf: unknown retry policy")

	// ErrInvalidPolicy 策略或熔断配置校验失败
	ErrInvalidPolicy = errors.New("xconf: invalid retry policy")
)
