package xconf

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/Solosh94/a1tools-sub006/pkg/observability/xlog"
	"github.com/Solosh94/a1tools-sub006/pkg/resilience/xbreaker"
	"github.com/Solosh94/a1tools-sub006/pkg/resilience/xretry"
)

// PolicySpec 配置文件中的一条重试策略。
//
// Preset 选择基础配置（quick/standard/aggressive，空为默认配置），
// 其余非空字段覆盖基础配置。
type PolicySpec struct {
	Preset            string         `koanf:"preset"`
	MaxAttempts       *int           `koanf:"max_attempts"`
	InitialDelay      *time.Duration `koanf:"initial_delay"`
	BackoffMultiplier *float64       `koanf:"backoff_multiplier"`
	MaxDelay          *time.Duration `koanf:"max_delay"`
	UseJitter         *bool          `koanf:"use_jitter"`
	// Breaker 引用 breakers 段中的熔断配置名，空表示不使用熔断
	Breaker string `koanf:"breaker"`
}

// LogConfig 日志配置段
type LogConfig struct {
	Level     string         `koanf:"level"`
	Format    string         `koanf:"format"`
	AddSource bool           `koanf:"add_source"`
	Rotation  *xlog.Rotation `koanf:"rotation"`
}

// Builder 按配置生成 xlog.Builder，非法值在 Build 时报错。
func (l LogConfig) Builder() *xlog.Builder {
	b := xlog.New().
		SetLevelString(l.Level).
		SetFormat(l.Format).
		SetAddSource(l.AddSource)
	if l.Rotation != nil {
		b.SetRotation(*l.Rotation)
	}
	return b
}

// catalogFile 配置文件的顶层结构：
//
//	default: sync
//	policies:
//	  sync:
//	    preset: standard
//	    max_attempts: 4
//	    breaker: upstream
//	breakers:
//	  upstream:
//	    consecutive_failures: 5
//	    timeout: 30s
//	log:
//	  level: info
type catalogFile struct {
	Default  string                     `koanf:"default"`
	Policies map[string]PolicySpec      `koanf:"policies"`
	Breakers map[string]xbreaker.Config `koanf:"breakers"`
	Log      LogConfig                  `koanf:"log"`
}

// Catalog 解析并校验后的重试策略目录，只读，可并发使用。
type Catalog struct {
	defaultName string
	policies    map[string]xretry.Config
	breakerRefs map[string]string
	breakers    map[string]xbreaker.Config
	log         LogConfig
}

// NewCatalog 从配置源构建策略目录，所有违规项一次性返回并包装 ErrInvalidPolicy。
func NewCatalog(cfg Config) (*Catalog, error) {
	var file catalogFile
	if err := cfg.Unmarshal("", &file); err != nil {
		return nil, err
	}

	c := &Catalog{
		defaultName: normalizeName(file.Default),
		policies:    make(map[string]xretry.Config, len(file.Policies)),
		breakerRefs: make(map[string]string),
		breakers:    make(map[string]xbreaker.Config, len(file.Breakers)),
		log:         file.Log,
	}

	var errs []error
	breakerNames := make(map[string]string, len(file.Breakers))
	for _, name := range slices.Sorted(maps.Keys(file.Breakers)) {
		if err := claimName(breakerNames, name); err != nil {
			errs = append(errs, fmt.Errorf("breaker %w", err))
			continue
		}
		bc := file.Breakers[name]
		if err := bc.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("breaker %q: %w", name, err))
			continue
		}
		c.breakers[normalizeName(name)] = bc
	}
	policyNames := make(map[string]string, len(file.Policies))
	for _, name := range slices.Sorted(maps.Keys(file.Policies)) {
		if err := claimName(policyNames, name); err != nil {
			errs = append(errs, fmt.Errorf("policy %w", err))
			continue
		}
		spec := file.Policies[name]
		key := normalizeName(name)
		rc, err := spec.resolve()
		if err != nil {
			errs = append(errs, fmt.Errorf("policy %q: %w", name, err))
			continue
		}
		c.policies[key] = rc
		if ref := normalizeName(spec.Breaker); ref != "" {
			if _, ok := c.breakers[ref]; !ok {
				errs = append(errs, fmt.Errorf("policy %q: unknown breaker %q", name, spec.Breaker))
				continue
			}
			c.breakerRefs[key] = ref
		}
	}
	if c.defaultName != "" {
		if _, err := c.lookup(c.defaultName); err != nil {
			errs = append(errs, fmt.Errorf("default: %w", err))
		}
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPolicy, errors.Join(errs...))
	}
	return c, nil
}

func (s PolicySpec) resolve() (xretry.Config, error) {
	base := xretry.DefaultConfig()
	if s.Preset != "" {
		p, err := xretry.Preset(s.Preset)
		if err != nil {
			return xretry.Config{}, err
		}
		base = p
	}
	if s.MaxAttempts != nil {
		base.MaxAttempts = *s.MaxAttempts
	}
	if s.InitialDelay != nil {
		base.InitialDelay = *s.InitialDelay
	}
	if s.BackoffMultiplier != nil {
		base.BackoffMultiplier = *s.BackoffMultiplier
	}
	if s.MaxDelay != nil {
		base.MaxDelay = *s.MaxDelay
	}
	if s.UseJitter != nil {
		base.UseJitter = *s.UseJitter
	}
	return base, base.Validate()
}

// claimName 登记规范化后的名称，忽略大小写和首尾空白后重名时返回错误。
func claimName(seen map[string]string, name string) error {
	key := normalizeName(name)
	if prev, ok := seen[key]; ok {
		return fmt.Errorf("%q duplicates %q", name, prev)
	}
	seen[key] = name
	return nil
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Policy 按名称返回重试配置。
//
// 空名称使用 default 指定的策略，未指定时为 xretry.DefaultConfig()。
// 目录中没有的名称回退到同名内置预设，仍找不到返回 ErrUnknownPolicy。
func (c *Catalog) Policy(name string) (xretry.Config, error) {
	key := normalizeName(name)
	if key == "" {
		if c.defaultName == "" {
			return xretry.DefaultConfig(), nil
		}
		key = c.defaultName
	}
	return c.lookup(key)
}

func (c *Catalog) lookup(key string) (xretry.Config, error) {
	if rc, ok := c.policies[key]; ok {
		return rc, nil
	}
	if rc, err := xretry.Preset(key); err == nil {
		return rc, nil
	}
	return xretry.Config{}, fmt.Errorf("%w: %q", ErrUnknownPolicy, key)
}

// Breaker 返回策略引用的熔断配置，未引用时 ok 为 false。
func (c *Catalog) Breaker(policy string) (cfg xbreaker.Config, ok bool) {
	key := normalizeName(policy)
	if key == "" {
		key = c.defaultName
	}
	ref, ok := c.breakerRefs[key]
	if !ok {
		return xbreaker.Config{}, false
	}
	cfg, ok = c.breakers[ref]
	return cfg, ok
}

// Names 返回目录中定义的策略名（已排序，不含内置预设）。
func (c *Catalog) Names() []string {
	return slices.Sorted(maps.Keys(c.policies))
}

// Default 返回默认策略名，可能为空。
func (c *Catalog) Default() string {
	return c.defaultName
}

// Log 返回日志配置段
func (c *Catalog) Log() LogConfig {
	return c.log
}
