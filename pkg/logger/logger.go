// pkg/logger/logger.go
package logger

import (
	"context"
	"fmt"
	"os"

	"github.com/lk2023060901/gachadraw/pkg/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger 日志接口
// 业务模块只依赖此接口，不直接依赖 zap
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})

	DebugContext(ctx context.Context, msg string, keysAndValues ...interface{})
	InfoContext(ctx context.Context, msg string, keysAndValues ...interface{})
	WarnContext(ctx context.Context, msg string, keysAndValues ...interface{})
	ErrorContext(ctx context.Context, msg string, keysAndValues ...interface{})

	Named(name string) Logger
	WithFields(keysAndValues ...interface{}) Logger

	Sync() error
}

var _ Logger = (*BaseLogger)(nil)

// BaseLogger 基于 zap 的日志实现
type BaseLogger struct {
	zl        *zap.Logger
	config    *Config
	name      string
	fields    map[string]interface{}
	hooks     []Hook
	extractor ContextFieldExtractor
	sink      zapcore.WriteSyncer
}

// New 创建 BaseLogger，cfg 中未设置的字段使用默认值
func New(cfg *Config, opts ...Option) (*BaseLogger, error) {
	merged, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to merge config: %w", err)
	}
	if cfg != nil {
		// MergeConfig 不会用 false 覆盖默认值，输出开关以调用方为准
		merged.EnableFile = cfg.EnableFile
		merged.EnableConsole = cfg.EnableConsole
	}

	l := &BaseLogger{
		config:    merged,
		fields:    make(map[string]interface{}),
		extractor: DefaultContextExtractor,
	}
	for _, opt := range opts {
		opt(l)
	}

	if l.sink == nil {
		if err := l.config.Validate(); err != nil {
			return nil, err
		}
	} else if l.config.EnableFile && l.config.OutputPath == "" {
		return nil, ErrInvalidOutputPath
	}

	for k, v := range l.config.GlobalFields {
		l.fields[k] = v
	}

	zl, err := l.build()
	if err != nil {
		return nil, err
	}
	l.zl = zl
	return l, nil
}

func (l *BaseLogger) build() (*zap.Logger, error) {
	encCfg := l.encoderConfig()

	var encoder zapcore.Encoder
	if l.config.Format == ConsoleFormat {
		encoder = zapcore.NewConsoleEncoder(encCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encCfg)
	}

	writers := make([]zapcore.WriteSyncer, 0, 3)
	if l.config.EnableConsole {
		writers = append(writers, zapcore.AddSync(os.Stdout))
	}
	if l.config.EnableFile {
		w, err := NewRotationWriter(&l.config.Rotation, l.config.OutputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create rotation writer: %w", err)
		}
		writers = append(writers, zapcore.AddSync(w))
	}
	if l.sink != nil {
		writers = append(writers, l.sink)
	}

	core := zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(writers...), parseLevel(l.config.Level))
	if len(l.hooks) > 0 {
		core = NewHookedCore(core, l.hooks...)
	}
	if l.config.EnableSampling {
		core = zapcore.NewSamplerWithOptions(core, 1e9, l.config.SamplingInitial, l.config.SamplingThereafter)
	}

	options := []zap.Option{zap.AddCaller(), zap.AddCallerSkip(1)}
	if l.config.EnableStacktrace {
		options = append(options, zap.AddStacktrace(parseLevel(l.config.StacktraceLevel)))
	}
	if l.config.Development {
		options = append(options, zap.Development())
	}

	zl := zap.New(core, options...)
	if len(l.fields) > 0 {
		fs := make([]zap.Field, 0, len(l.fields))
		for k, v := range l.fields {
			fs = append(fs, zap.Any(k, v))
		}
		zl = zl.With(fs...)
	}
	if l.name != "" {
		zl = zl.Named(l.name)
	}
	return zl, nil
}

func (l *BaseLogger) encoderConfig() zapcore.EncoderConfig {
	ec := zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "level",
		TimeKey:        "time",
		NameKey:        "logger",
		CallerKey:      "caller",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
	}
	if l.config.TimeFormat != "" {
		ec.EncodeTime = zapcore.TimeEncoderOfLayout(l.config.TimeFormat)
	}
	if l.config.Development && l.config.Format == ConsoleFormat {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	return ec
}

func parseLevel(level Level) zapcore.Level {
	switch level {
	case DebugLevel:
		return zapcore.DebugLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	case PanicLevel:
		return zapcore.PanicLevel
	case FatalLevel:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// Zap 返回底层 zap.Logger，供需要原生 zap 的第三方组件使用
func (l *BaseLogger) Zap() *zap.Logger {
	return l.zl
}

func (l *BaseLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.zl.Debug(msg, toZapFields(keysAndValues)...)
}

func (l *BaseLogger) Info(msg string, keysAndValues ...interface{}) {
	l.zl.Info(msg, toZapFields(keysAndValues)...)
}

func (l *BaseLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.zl.Warn(msg, toZapFields(keysAndValues)...)
}

func (l *BaseLogger) Error(msg string, keysAndValues ...interface{}) {
	l.zl.Error(msg, toZapFields(keysAndValues)...)
}

func (l *BaseLogger) DebugContext(ctx context.Context, msg string, keysAndValues ...interface{}) {
	l.zl.Debug(msg, append(l.extractor(ctx), toZapFields(keysAndValues)...)...)
}

func (l *BaseLogger) InfoContext(ctx context.Context, msg string, keysAndValues ...interface{}) {
	l.zl.Info(msg, append(l.extractor(ctx), toZapFields(keysAndValues)...)...)
}

func (l *BaseLogger) WarnContext(ctx context.Context, msg string, keysAndValues ...interface{}) {
	l.zl.Warn(msg, append(l.extractor(ctx), toZapFields(keysAndValues)...)...)
}

func (l *BaseLogger) ErrorContext(ctx context.Context, msg string, keysAndValues ...interface{}) {
	l.zl.Error(msg, append(l.extractor(ctx), toZapFields(keysAndValues)...)...)
}

// Named 创建具名子 logger，名称以 "." 级联
func (l *BaseLogger) Named(name string) Logger {
	return l.derive(l.zl.Named(name), name)
}

// WithFields 创建附带固定字段的子 logger
func (l *BaseLogger) WithFields(keysAndValues ...interface{}) Logger {
	fs := toZapFields(keysAndValues)
	if len(fs) == 0 {
		return l
	}
	return l.derive(l.zl.With(fs...), l.name)
}

func (l *BaseLogger) derive(zl *zap.Logger, name string) *BaseLogger {
	return &BaseLogger{
		zl:        zl,
		config:    l.config,
		name:      name,
		fields:    l.fields,
		hooks:     l.hooks,
		extractor: l.extractor,
		sink:      l.sink,
	}
}

func (l *BaseLogger) Sync() error {
	return l.zl.Sync()
}

// toZapFields 支持 key-value 对或直接传入 zap.Field
func toZapFields(keysAndValues []interface{}) []zap.Field {
	if len(keysAndValues) == 0 {
		return nil
	}

	if _, ok := keysAndValues[0].(zap.Field); ok {
		fs := make([]zap.Field, 0, len(keysAndValues))
		for _, v := range keysAndValues {
			if f, ok := v.(zap.Field); ok {
				fs = append(fs, f)
			}
		}
		return fs
	}

	fs := make([]zap.Field, 0, len(keysAndValues)/2+1)
	for i := 0; i < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		if i+1 >= len(keysAndValues) {
			fs = append(fs, zap.Any(key, "(MISSING)"))
			break
		}
		if err, ok := keysAndValues[i+1].(error); ok {
			fs = append(fs, zap.NamedError(key, err))
			continue
		}
		fs = append(fs, zap.Any(key, keysAndValues[i+1]))
	}
	return fs
}
