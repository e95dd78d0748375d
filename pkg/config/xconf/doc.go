// Package xconf 基于 koanf 加载 YAML/JSON 配置，并将其解析为重试策略目录。
//
// # 配置源
//
// [New] 从文件加载（按扩展名识别格式），[NewFromBytes] 从字节加载（如 ConfigMap 内容）。
// Reload 串行执行，成功后原子替换 koanf 快照；Client() 返回的旧快照仍可读但已过期，
// 不要长期缓存。
//
// [WithEnvPrefix] 让带前缀的环境变量覆盖文件中的键，每次 Reload 重新读取。
//
// Unmarshal 使用 mapstructure，允许弱类型转换，time.Duration 字段可写 "500ms"。
//
// # 策略目录
//
//	default: sync
//	policies:
//	  sync:
//	    preset: standard
//	    max_attempts: 4
//	    breaker: upstream
//	  report:
//	    initial_delay: 200ms
//	    use_jitter: false
//	breakers:
//	  upstream:
//	    consecutive_failures: 5
//	    timeout: 30s
//	log:
//	  level: info
//	  format: json
//
// [Catalog.Policy] 按名称返回 xretry.Config：preset 作为基础，其余字段覆盖。
// 目录中没有的名称回退到内置预设（quick/standard/aggressive）。
//
// # 热重载
//
// [Store.Watch] 基于 fsnotify 监视配置所在目录，内置防抖，支持 rename 方式的原子替换。
// 新配置非法时保留旧目录并记录告警。
package xconf
