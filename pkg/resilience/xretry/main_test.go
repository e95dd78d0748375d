package xretry

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain 在所有测试完成后检测 goroutine 泄漏（RetryAsync 会启动 goroutine）。
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
