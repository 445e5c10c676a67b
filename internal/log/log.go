package log

import (
	"context"
	"os"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type ctxKey string

const (
	ctxKeyRequestID ctxKey = "req_id"
	ctxKeyUserID    ctxKey = "user_id"
)

var current atomic.Pointer[zap.Logger]

func init() {
	current.Store(New(zapcore.InfoLevel, zapcore.AddSync(os.Stdout)))
}

// New builds a JSON logger whose entries carry ts/level/action like the access log.
func New(level zapcore.Level, sinks ...zapcore.WriteSyncer) *zap.Logger {
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "ts"
	enc.MessageKey = "action"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.NewMultiWriteSyncer(sinks...), level)
	return zap.New(core)
}

// Setup installs the process logger: stdout plus an optional append-only file.
// The returned func closes the file.
// If the file cannot be opened the stdout logger still runs at level.
func Setup(level, file string) (func(), error) {
	lvl, out := ParseLevel(level), zapcore.AddSync(os.Stdout)
	Set(New(lvl, out))
	closeFn := func() {}
	if file == "" {
		return closeFn, nil
	}
	f, err := os.OpenFile(file, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return closeFn, err
	}
	Set(New(lvl, out, zapcore.AddSync(f)))
	return func() { _ = f.Close() }, nil
}

func ParseLevel(s string) zapcore.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return zapcore.DebugLevel
	case "WARN":
		return zapcore.WarnLevel
	case "ERROR":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Set replaces the process logger (tests swap in an observer).
func Set(l *zap.Logger) { current.Store(l) }

func L() *zap.Logger { return current.Load() }

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, id)
}

func WithUserID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, ctxKeyUserID, id)
}

func write(ctx context.Context, level zapcore.Level, category, action string, err error, fields map[string]any) {
	l := L()
	if ce := l.Check(level, action); ce != nil {
		zf := make([]zap.Field, 0, len(fields)+4)
		if category != "" {
			zf = append(zf, zap.String("category", category))
		}
		if ctx != nil {
			if rid, ok := ctx.Value(ctxKeyRequestID).(string); ok && rid != "" {
				zf = append(zf, zap.String("req_id", rid))
			}
			if uid, ok := ctx.Value(ctxKeyUserID).(int64); ok && uid != 0 {
				zf = append(zf, zap.Int64("user_id", uid))
			}
		}
		if err != nil {
			zf = append(zf, zap.String("err", err.Error()))
		}
		if len(fields) > 0 {
			zf = append(zf, zap.Any("fields", fields))
		}
		ce.Write(zf...)
	}
}

func Debug(ctx context.Context, action string, fields map[string]any) {
	write(ctx, zapcore.DebugLevel, "", action, nil, fields)
}
func Info(ctx context.Context, action string, fields map[string]any) {
	write(ctx, zapcore.InfoLevel, "", action, nil, fields)
}
func Audit(ctx context.Context, action string, fields map[string]any) {
	write(ctx, zapcore.InfoLevel, "audit", action, nil, fields)
}
func Security(ctx context.Context, action string, fields map[string]any) {
	write(ctx, zapcore.WarnLevel, "security", action, nil, fields)
}
func Error(ctx context.Context, action string, err error, fields map[string]any) {
	write(ctx, zapcore.ErrorLevel, "", action, err, fields)
}
