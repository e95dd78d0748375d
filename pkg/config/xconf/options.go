package xconf

// Options 定义配置加载选项。
type Options struct {
	// Delim 配置键的分隔符，默认为 "."。
	Delim string

	// Tag 结构体标签名，用于 Unmarshal，默认为 "koanf"。
	Tag string

	// EnvPrefix 非空时，以该前缀开头的环境变量覆盖文件中的同名键。
	EnvPrefix string
}

// Option 定义配置选项函数类型。
type Option func(*Options)

func applyOptions(opts []Option) *Options {
	o := &Options{Delim: ".", Tag: "koanf"}
	for _, opt := range opts {
		opt(o)
	}
	if o.Delim == "" {
		o.Delim = "."
	}
	if o.Tag == "" {
		o.Tag = "koanf"
	}
	return o
}

// WithDelim 设置配置键分隔符，默认 "."，例如 "policies.sync.max_attempts"。
func WithDelim(delim string) Option {
	return func(o *Options) {
		o.Delim = delim
	}
}

// WithTag 设置 Unmarshal 使用的结构体标签名，默认 "koanf"。
func WithTag(tag string) Option {
	return func(o *Options) {
		o.Tag = tag
	}
}

// WithEnvPrefix 用环境变量覆盖配置，优先级高于文件，Reload 时重新读取。
//
// 去掉前缀后转小写，第一个下划线之前为配置段，之后为字段名：
//
//	XRETRY_DEFAULT        -> default
//	XRETRY_LOG_LEVEL      -> log.level
//	XRETRY_LOG_ADD_SOURCE -> log.add_source
//
// 更深的键用双下划线分隔每一级：
//
//	XRETRY_POLICIES__SYNC__MAX_ATTEMPTS -> policies.sync.max_attempts
func WithEnvPrefix(prefix string) Option {
	return func(o *Options) {
		o.EnvPrefix = prefix
	}
}
