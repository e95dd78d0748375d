package xretry

import (
	retry "github.com/avast/retry-go/v5"
)

// 调用方需要直接使用的 retry-go 类型。
type (
	// Timer 退避等待使用的计时器接口，实现 After(time.Duration) <-chan time.Time
	Timer = retry.Timer
)

var (
	// Unrecoverable 将错误标记为不可恢复，分类器会将其判定为不可重试
	Unrecoverable = retry.Unrecoverable

	// IsRecoverable 检查错误是否未被 Unrecoverable 标记
	IsRecoverable = retry.IsRecoverable
)
