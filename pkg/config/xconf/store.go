package xconf

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/Solosh94/a1tools-sub006/pkg/observability/xlog"
)

// Store 持有当前策略目录，配置变更后原子替换。
//
// 新配置校验失败时保留旧目录，调用方始终拿到一份完整可用的目录。
type Store struct {
	cfg Config
	cur atomic.Pointer[Catalog]
}

// Open 从文件加载策略目录。
func Open(path string, opts ...Option) (*Store, error) {
	cfg, err := New(path, opts...)
	if err != nil {
		return nil, err
	}
	return NewStore(cfg)
}

// NewStore 从已加载的配置源创建 Store。
func NewStore(cfg Config) (*Store, error) {
	cat, err := NewCatalog(cfg)
	if err != nil {
		return nil, err
	}
	s := &Store{cfg: cfg}
	s.cur.Store(cat)
	return s, nil
}

// Catalog 返回当前目录快照
func (s *Store) Catalog() *Catalog {
	return s.cur.Load()
}

// Config 返回底层配置源
func (s *Store) Config() Config {
	return s.cfg
}

// Reload 重新读取文件并重建目录，失败时保留旧目录。
func (s *Store) Reload() error {
	if err := s.cfg.Reload(); err != nil {
		return err
	}
	return s.rebuild()
}

func (s *Store) rebuild() error {
	cat, err := NewCatalog(s.cfg)
	if err != nil {
		return err
	}
	s.cur.Store(cat)
	return nil
}

// Watch 监视配置文件，变更后重建目录并调用 onChange（可为 nil）。
// 重载结果记录到 logger，nil 时不记录。返回的 Watcher 已启动。
func (s *Store) Watch(logger xlog.Logger, onChange func(*Catalog), opts ...WatchOption) (*Watcher, error) {
	if logger == nil {
		logger = xlog.Discard()
	}
	ctx := context.Background()
	w, err := Watch(s.cfg, func(_ Config, err error) {
		if err == nil {
			err = s.rebuild()
		}
		if err != nil {
			logger.Warn(ctx, "retry policy reload failed, keeping previous",
				xlog.Component("xconf"), slog.String("path", s.cfg.Path()), xlog.Err(err))
			return
		}
		cat := s.Catalog()
		logger.Info(ctx, "retry policies reloaded",
			xlog.Component("xconf"), slog.String("path", s.cfg.Path()), slog.Int("policies", len(cat.Names())))
		if onChange != nil {
			onChange(cat)
		}
	}, opts...)
	if err != nil {
		return nil, err
	}
	w.StartAsync()
	return w, nil
}
