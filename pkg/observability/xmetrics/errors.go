package xmetrics

import "errors"

// ErrInstrument NewOTelObserver 创建指标仪表失败，错误信息包含仪表名。
var ErrInstrument = errors.New("xmetrics: create instrument failed")
