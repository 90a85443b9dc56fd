package logger

import "go.uber.org/zap/zapcore"

// Option 创建选项
type Option func(*BaseLogger)

// WithName 设置 logger 名称
func WithName(name string) Option {
	return func(l *BaseLogger) {
		l.name = name
	}
}

// WithGlobalFields 添加全局字段
func WithGlobalFields(keysAndValues ...interface{}) Option {
	return func(l *BaseLogger) {
		for i := 0; i+1 < len(keysAndValues); i += 2 {
			if key, ok := keysAndValues[i].(string); ok {
				l.fields[key] = keysAndValues[i+1]
			}
		}
	}
}

// WithHooks 添加钩子
func WithHooks(hooks ...Hook) Option {
	return func(l *BaseLogger) {
		l.hooks = append(l.hooks, hooks...)
	}
}

// WithContextExtractor 替换 context 字段提取器
func WithContextExtractor(fn ContextFieldExtractor) Option {
	return func(l *BaseLogger) {
		if fn != nil {
			l.extractor = fn
		}
	}
}

// WithWriter 追加输出目标，测试中常用于捕获日志
func WithWriter(ws zapcore.WriteSyncer) Option {
	return func(l *BaseLogger) {
		l.sink = ws
	}
}
