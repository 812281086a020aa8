package logger

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Field is a structured log field.
type Field = zap.Field

// Logger is the logging surface every package depends on. Structured
// methods are for hot paths; the f-variants are for startup and debug lines.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Fatal(msg string, fields ...Field)

	Debugf(template string, args ...any)
	Infof(template string, args ...any)
	Warnf(template string, args ...any)
	Errorf(template string, args ...any)
	Fatalf(template string, args ...any)

	Sync() error
}

type zapLogger struct {
	*zap.Logger
	sugar *zap.SugaredLogger
}

func wrap(base *zap.Logger) *zapLogger {
	return &zapLogger{Logger: base, sugar: base.Sugar()}
}

// New builds a JSON production logger, or a colored console logger when
// pretty is set. Unknown levels fall back to info.
func New(level string, pretty bool) Logger {
	cfg := zap.NewProductionConfig()
	if pretty {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(level))
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	base, err := cfg.Build(zap.AddStacktrace(zapcore.FatalLevel))
	if err != nil {
		panic(err)
	}
	return wrap(base.With(zap.String("service", "encore")))
}

// Nop returns a logger that discards everything.
func Nop() Logger {
	return wrap(zap.NewNop())
}

// Named returns a child logger tagged with a component name.
func Named(l Logger, component string) Logger {
	z, ok := l.(*zapLogger)
	if !ok {
		return l
	}
	return wrap(z.Logger.With(zap.String("component", component)))
}

func parseLevel(lvl string) zapcore.Level {
	l, err := zapcore.ParseLevel(lvl)
	if err != nil || l > zapcore.ErrorLevel {
		return zapcore.InfoLevel
	}
	return l
}

func (l *zapLogger) Debugf(t string, args ...any) { l.sugar.Debugf(t, args...) }
func (l *zapLogger) Infof(t string, args ...any)  { l.sugar.Infof(t, args...) }
func (l *zapLogger) Warnf(t string, args ...any)  { l.sugar.Warnf(t, args...) }
func (l *zapLogger) Errorf(t string, args ...any) { l.sugar.Errorf(t, args...) }
func (l *zapLogger) Fatalf(t string, args ...any) { l.sugar.Fatalf(t, args...) }

// Field constructors, so callers never import zap.
func String(key, val string) Field                 { return zap.String(key, val) }
func Int(key string, val int) Field                { return zap.Int(key, val) }
func Int64(key string, val int64) Field            { return zap.Int64(key, val) }
func Bool(key string, val bool) Field              { return zap.Bool(key, val) }
func Duration(key string, val time.Duration) Field { return zap.Duration(key, val) }
func Strings(key string, val []string) Field       { return zap.Strings(key, val) }
func Any(key string, val any) Field                { return zap.Any(key, val) }
func Error(err error) Field                        { return zap.Error(err) }
