package xlog

import (
	"fmt"
	"log/slog"
	"strings"
)

// Level 日志级别，数值与 slog.Level 相同。
type Level slog.Level

const (
	LevelDebug = Level(slog.LevelDebug)
	LevelInfo  = Level(slog.LevelInfo)
	LevelWarn  = Level(slog.LevelWarn)
	LevelError = Level(slog.LevelError)
)

// levelNames 可解析的级别名，顺序即 LevelNames 的输出顺序。
var levelNames = []struct {
	name  string
	level Level
}{
	{"debug", LevelDebug},
	{"info", LevelInfo},
	{"warn", LevelWarn},
	{"error", LevelError},
}

// LevelNames 返回可用于配置和命令行的级别名。
func LevelNames() []string {
	names := make([]string, len(levelNames))
	for i, n := range levelNames {
		names[i] = n.name
	}
	return names
}

// ParseLevel 解析级别名，大小写不敏感，忽略首尾空白。
// 空字符串为 info，"warning" 等同 "warn"。
func ParseLevel(s string) (Level, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	switch name {
	case "":
		return LevelInfo, nil
	case "warning":
		return LevelWarn, nil
	}
	for _, n := range levelNames {
		if n.name == name {
			return n.level, nil
		}
	}
	return LevelInfo, fmt.Errorf("%w: %q", ErrUnknownLevel, s)
}

// String 返回 DEBUG/INFO/WARN/ERROR，中间级别形如 INFO+2。
func (l Level) String() string {
	return slog.Level(l).String()
}

// MarshalText 输出小写级别名，非标准级别输出 String 的结果。
func (l Level) MarshalText() ([]byte, error) {
	for _, n := range levelNames {
		if n.level == l {
			return []byte(n.name), nil
		}
	}
	return []byte(l.String()), nil
}

// UnmarshalText 让配置文件可以直接写级别名。解析失败时 l 保持不变。
func (l *Level) UnmarshalText(data []byte) error {
	parsed, err := ParseLevel(string(data))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
