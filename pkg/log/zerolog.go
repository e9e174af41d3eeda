package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/YuminosukeSato/itwmm/pkg/errors"
)

// zerologLogger implements Logger on top of zerolog.
type zerologLogger struct {
	zl zerolog.Logger
}

// NewZerologLogger returns a Logger writing JSON lines to w.
func NewZerologLogger(w io.Writer, level Level) Logger {
	zl := zerolog.New(w).Level(toZerologLevel(level)).With().Timestamp().Logger()
	return &zerologLogger{zl: zl}
}

// NewConsoleLogger returns a Logger writing human readable lines to w.
func NewConsoleLogger(w io.Writer, level Level) Logger {
	cw := zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	zl := zerolog.New(cw).Level(toZerologLevel(level)).With().Timestamp().Logger()
	return &zerologLogger{zl: zl}
}

func (l *zerologLogger) Debug(msg string, fields ...any) {
	appendFields(l.zl.Debug(), fields).Msg(msg)
}

func (l *zerologLogger) Info(msg string, fields ...any) {
	appendFields(l.zl.Info(), fields).Msg(msg)
}

func (l *zerologLogger) Warn(msg string, fields ...any) {
	appendFields(l.zl.Warn(), fields).Msg(msg)
}

func (l *zerologLogger) Error(msg string, fields ...any) {
	appendFields(l.zl.Error(), fields).Msg(msg)
}

func (l *zerologLogger) With(fields ...any) Logger {
	ctx := l.zl.With()
	for i := 0; i < len(fields); i++ {
		if err, ok := fields[i].(error); ok && i%2 == 0 {
			ctx = ctx.AnErr(ErrAttrKey, err)
			continue
		}
		if i+1 >= len(fields) {
			break
		}
		ctx = ctx.Interface(fmt.Sprint(fields[i]), fields[i+1])
		i++
	}
	return &zerologLogger{zl: ctx.Logger()}
}

func (l *zerologLogger) Enabled(_ context.Context, level Level) bool {
	return toZerologLevel(level) >= l.zl.GetLevel()
}

// appendFields adds key/value pairs to e. A bare error in key position is
// logged under "error"; values implementing zerolog.LogObjectMarshaler are
// logged as nested objects.
func appendFields(e *zerolog.Event, fields []any) *zerolog.Event {
	if e == nil {
		return nil
	}
	for i := 0; i < len(fields); i++ {
		if err, ok := fields[i].(error); ok {
			e = e.Err(err)
			var om zerolog.LogObjectMarshaler
			if errors.As(err, &om) {
				e = e.Object("error_detail", om)
			}
			continue
		}
		if i+1 >= len(fields) {
			e = e.Interface("!BADKEY", fields[i])
			break
		}
		key := fmt.Sprint(fields[i])
		switch v := fields[i+1].(type) {
		case error:
			e = e.AnErr(key, v)
		case zerolog.LogObjectMarshaler:
			e = e.Object(key, v)
		default:
			e = e.Interface(key, v)
		}
		i++
	}
	return e
}

func toZerologLevel(level Level) zerolog.Level {
	switch {
	case level <= LevelDebug:
		return zerolog.DebugLevel
	case level <= LevelInfo:
		return zerolog.InfoLevel
	case level <= LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

// slogLogger adapts a *slog.Logger to Logger.
type slogLogger struct {
	sl *slog.Logger
}

// NewSlogLogger returns a Logger backed by the given slog handler.
func NewSlogLogger(h slog.Handler) Logger {
	return &slogLogger{sl: slog.New(h)}
}

func (l *slogLogger) Debug(msg string, fields ...any) { l.sl.Debug(msg, slogArgs(fields)...) }
func (l *slogLogger) Info(msg string, fields ...any)  { l.sl.Info(msg, slogArgs(fields)...) }
func (l *slogLogger) Warn(msg string, fields ...any)  { l.sl.Warn(msg, slogArgs(fields)...) }
func (l *slogLogger) Error(msg string, fields ...any) { l.sl.Error(msg, slogArgs(fields)...) }

func (l *slogLogger) With(fields ...any) Logger {
	return &slogLogger{sl: l.sl.With(slogArgs(fields)...)}
}

func (l *slogLogger) Enabled(ctx context.Context, level Level) bool {
	return l.sl.Enabled(ctx, slog.Level(level))
}

// slogArgs turns a leading bare error into an ErrAttr so ErrFmtHandler can
// attach its stack trace.
func slogArgs(fields []any) []any {
	out := make([]any, 0, len(fields))
	for i := 0; i < len(fields); i++ {
		if err, ok := fields[i].(error); ok && i%2 == 0 {
			out = append(out, ErrAttr(err))
			continue
		}
		out = append(out, fields[i])
	}
	return out
}

// ===========================================================================
// Default provider
// ===========================================================================

type provider struct {
	mu     sync.RWMutex
	out    io.Writer
	level  Level
	format string
	root   Logger
}

var defaultProvider = &provider{out: os.Stderr, level: LevelInfo, format: "json"}

func (p *provider) build() Logger {
	switch p.format {
	case "console":
		return NewConsoleLogger(p.out, p.level)
	case "slog":
		h := slog.NewJSONHandler(p.out, &slog.HandlerOptions{Level: slog.Level(p.level)})
		return NewSlogLogger(WrapByErrFmtHandler(h))
	default:
		return NewZerologLogger(p.out, p.level)
	}
}

func (p *provider) GetLogger() Logger {
	p.mu.RLock()
	root := p.root
	p.mu.RUnlock()
	if root != nil {
		return root
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.root == nil {
		p.root = p.build()
	}
	return p.root
}

func (p *provider) GetLoggerWithName(name string) Logger {
	return p.GetLogger().With(ComponentKey, name)
}

func (p *provider) SetLevel(level Level) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.level = level
	p.root = nil
}

// Setup configures the process-wide logger. format is "json" (zerolog),
// "console" (zerolog console writer) or "slog". Warnings raised through
// pkg/errors.Warn are routed to the new logger.
func Setup(w io.Writer, level Level, format string) {
	defaultProvider.mu.Lock()
	defaultProvider.out = w
	defaultProvider.level = level
	defaultProvider.format = format
	defaultProvider.root = nil
	defaultProvider.mu.Unlock()

	logger := GetLoggerWithName("warnings")
	errors.SetZerologWarnFunc(func(warning error) {
		logger.Warn(warning.Error(), ErrorTypeKey, fmt.Sprintf("%T", warning), "warning", warning)
	})
}

// GetLogger returns the process-wide logger.
func GetLogger() Logger { return defaultProvider.GetLogger() }

// GetLoggerWithName returns the process-wide logger tagged with a component name.
func GetLoggerWithName(name string) Logger { return defaultProvider.GetLoggerWithName(name) }

// SetLevel changes the minimum level of the process-wide logger.
func SetLevel(level Level) { defaultProvider.SetLevel(level) }

// DefaultProvider exposes the process-wide provider as a LoggerProvider.
func DefaultProvider() LoggerProvider { return defaultProvider }
