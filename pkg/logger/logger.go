// Package logger is the zerolog wrapper shared by the api process, the
// realtime gateway and the board client. Request and connection scoped
// fields travel in the context; a nil *Logger discards everything.
package logger

import (
	"context"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const FormatConsole = "console"

type Options struct {
	ServiceName string
	Level       zerolog.Level
	WarnStack   bool
	// Format is "json" (default) or "console".
	Format string
	Output io.Writer
}

type Logger struct {
	base      *zerolog.Logger
	component string
	warnStack bool
}

type ctxKey struct{}

var disabled = zerolog.Nop()

func New(opts Options) *Logger {
	if opts.Level == zerolog.NoLevel {
		opts.Level = zerolog.InfoLevel
	}
	output := opts.Output
	if output == nil {
		output = os.Stdout
	}
	if strings.EqualFold(strings.TrimSpace(opts.Format), FormatConsole) {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: "15:04:05"}
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	base := zerolog.New(output).
		Level(opts.Level).
		With().
		Timestamp().
		Str("service", opts.ServiceName).
		Logger()

	return &Logger{base: &base, warnStack: opts.WarnStack}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return New(Options{ServiceName: "test", Level: zerolog.Disabled, Output: io.Discard})
}

// ParseLevel falls back to info for empty or unknown values.
func ParseLevel(value string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(value)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// Named returns a logger that stamps every entry with component, including
// entries built from fields already carried in the context.
func (l *Logger) Named(component string) *Logger {
	if l == nil {
		return nil
	}
	named := *l
	named.component = strings.TrimSpace(component)
	return &named
}

func (l *Logger) entry(ctx context.Context) *zerolog.Logger {
	if l == nil {
		return &disabled
	}
	if ctx != nil {
		if scoped, ok := ctx.Value(ctxKey{}).(*zerolog.Logger); ok {
			return scoped
		}
	}
	return l.base
}

func (l *Logger) with(ctx context.Context, build func(zerolog.Context) zerolog.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if l == nil {
		return ctx
	}
	scoped := build(l.entry(ctx).With()).Logger()
	return context.WithValue(ctx, ctxKey{}, &scoped)
}

func (l *Logger) WithField(ctx context.Context, key string, value any) context.Context {
	return l.with(ctx, func(c zerolog.Context) zerolog.Context {
		return c.Interface(key, value)
	})
}

func (l *Logger) WithFields(ctx context.Context, fields map[string]any) context.Context {
	return l.with(ctx, func(c zerolog.Context) zerolog.Context {
		return c.Fields(fields)
	})
}

// WithError records err's message as a field for entries that are not
// themselves errors, such as warnings about skipped messages.
func (l *Logger) WithError(ctx context.Context, err error) context.Context {
	if err == nil {
		if ctx == nil {
			return context.Background()
		}
		return ctx
	}
	return l.WithField(ctx, "error", err.Error())
}

func (l *Logger) WithRequestID(ctx context.Context, requestID string) context.Context {
	return l.WithField(ctx, "request_id", requestID)
}

func (l *Logger) WithUserID(ctx context.Context, userID string) context.Context {
	return l.WithField(ctx, "user_id", userID)
}

func (l *Logger) WithOrganizationID(ctx context.Context, organizationID string) context.Context {
	return l.WithField(ctx, "organization_id", organizationID)
}

// WithConnectionID tags entries of one realtime connection.
func (l *Logger) WithConnectionID(ctx context.Context, connectionID string) context.Context {
	return l.WithField(ctx, "connection_id", connectionID)
}

func (l *Logger) Debug(ctx context.Context, msg string) {
	l.emit(l.entry(ctx).Debug(), msg)
}

func (l *Logger) Info(ctx context.Context, msg string) {
	l.emit(l.entry(ctx).Info(), msg)
}

func (l *Logger) Warn(ctx context.Context, msg string) {
	event := l.entry(ctx).Warn()
	if l != nil && l.warnStack {
		event = event.Str("stack", stackTrace())
	}
	l.emit(event, msg)
}

// Error always carries a stack trace.
func (l *Logger) Error(ctx context.Context, msg string, err error) {
	event := l.entry(ctx).Error()
	if err != nil {
		event = event.Err(err)
	}
	l.emit(event.Str("stack", stackTrace()), msg)
}

func (l *Logger) emit(event *zerolog.Event, msg string) {
	if l != nil && l.component != "" {
		event = event.Str("component", l.component)
	}
	event.Msg(msg)
}

func stackTrace() string {
	return strings.TrimSpace(string(debug.Stack()))
}
