package xmetrics

import "time"

// String 字符串属性。
func String(key, value string) Attr { return Attr{Key: key, Value: value} }

// Bool 布尔属性。
func Bool(key string, value bool) Attr { return Attr{Key: key, Value: value} }

// Int 整数属性。
func Int(key string, value int) Attr { return Attr{Key: key, Value: value} }

// Millis 时长属性，以毫秒整数记录，与重试事件的 delay_ms 一致。
// key 建议带 _ms 后缀。
func Millis(key string, value time.Duration) Attr {
	return Attr{Key: key, Value: value.Milliseconds()}
}
