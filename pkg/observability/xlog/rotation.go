package xlog

import (
	"fmt"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// 轮转默认值
const (
	DefaultMaxSizeMB  = 100
	DefaultMaxBackups = 7
	DefaultMaxAgeDays = 30
)

// Rotation 基于文件大小的日志轮转配置，字段可直接从配置文件加载。
type Rotation struct {
	// Filename 日志文件路径，必填
	Filename string `koanf:"filename" json:"filename"`
	// MaxSizeMB 单个文件上限（MB），0 使用 DefaultMaxSizeMB
	MaxSizeMB int `koanf:"max_size_mb" json:"max_size_mb"`
	// MaxBackups 保留的备份数，0 使用 DefaultMaxBackups
	MaxBackups int `koanf:"max_backups" json:"max_backups"`
	// MaxAgeDays 备份保留天数，0 使用 DefaultMaxAgeDays
	MaxAgeDays int `koanf:"max_age_days" json:"max_age_days"`
	// Compress 是否 gzip 压缩备份
	Compress bool `koanf:"compress" json:"compress"`
	// LocalTime 备份文件名使用本地时间，默认 UTC
	LocalTime bool `koanf:"local_time" json:"local_time"`
}

func (r Rotation) validate() error {
	if strings.TrimSpace(r.Filename) == "" {
		return fmt.Errorf("%w: filename is required", ErrInvalidRotation)
	}
	if r.MaxSizeMB < 0 || r.MaxBackups < 0 || r.MaxAgeDays < 0 {
		return fmt.Errorf("%w: limits must be >= 0", ErrInvalidRotation)
	}
	return nil
}

// newLumberjack 按配置创建 lumberjack.Logger，零值字段使用默认值。
func newLumberjack(r Rotation) (*lumberjack.Logger, error) {
	if err := r.validate(); err != nil {
		return nil, err
	}
	lj := &lumberjack.Logger{
		Filename:   r.Filename,
		MaxSize:    r.MaxSizeMB,
		MaxBackups: r.MaxBackups,
		MaxAge:     r.MaxAgeDays,
		Compress:   r.Compress,
		LocalTime:  r.LocalTime,
	}
	if lj.MaxSize == 0 {
		lj.MaxSize = DefaultMaxSizeMB
	}
	if lj.MaxBackups == 0 {
		lj.MaxBackups = DefaultMaxBackups
	}
	if lj.MaxAge == 0 {
		lj.MaxAge = DefaultMaxAgeDays
	}
	return lj, nil
}
