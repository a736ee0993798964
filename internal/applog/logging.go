// Package applog provides the structured logging setup shared by every
// Vagabond component: a zap logger with a dynamically adjustable level, a
// child-logger flavor for relaying supervised-process output, and a
// throttled logger for noisy, repeated warnings.
package applog

import (
	"fmt"
	"runtime"
	"strconv"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	atomicLevel = zap.NewAtomicLevel()
	daemonName  string
	tloggers    = make(map[string]*ThrottledLogger)
)

func timeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("2006-01-02T15:04:05.000Z0700"))
}

func callerEncoder(caller zapcore.EntryCaller, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(fmt.Sprintf("%s:%s:%d", daemonName, caller.TrimmedPath(), caller.Line))
}

// New returns the daemon's main sugared logger. Every log line carries a
// timestamp, level, and source location; the level can be changed later via
// SetLevel without reconstructing the logger.
func New(name string, level string) (*zap.SugaredLogger, error) {
	daemonName = name

	if err := SetLevel(level); err != nil {
		return nil, err
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = atomicLevel
	cfg.Encoding = "console"
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.EncodeTime = timeEncoder
	cfg.EncoderConfig.EncodeCaller = callerEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}

// NewChild returns a logger variant used only to relay a supervised child
// process's stdout/stderr. It omits caller annotation since the interesting
// location is the child's own source, not ours; callers tag lines with the
// service name themselves (e.g. "[hostapd] ...").
func NewChild() (*zap.SugaredLogger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = atomicLevel
	cfg.Encoding = "console"
	cfg.DisableStacktrace = true
	cfg.DisableCaller = true
	cfg.EncoderConfig.EncodeTime = timeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}

// SetLevel adjusts the shared atomic level powering every logger returned by
// New/NewChild, trace/debug/info/warn/error as accepted by the CLI.
func SetLevel(level string) error {
	if level == "trace" {
		level = "debug"
	}
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	atomicLevel.SetLevel(l)
	return nil
}

// ThrottledLogger rate-limits a repeated warning/error so a flapping
// subsystem (a D-Bus reconnect loop, say) cannot flood the log.
type ThrottledLogger struct {
	slog      *zap.SugaredLogger
	next      time.Time
	baseDelay time.Duration
	maxDelay  time.Duration
	curDelay  time.Duration
}

// Throttled returns a logger that is persistent and unique to the call site.
// The first call from a given file:line allocates it; later calls from the
// same site reuse it.
func Throttled(slog *zap.SugaredLogger, base, max time.Duration) *ThrottledLogger {
	var key string
	if _, file, line, ok := runtime.Caller(1); ok {
		key = file + ":" + strconv.Itoa(line)
	} else {
		key = "unknown"
	}

	t, ok := tloggers[key]
	if !ok {
		t = &ThrottledLogger{
			slog:      slog.Desugar().WithOptions(zap.AddCallerSkip(1)).Sugar(),
			next:      time.Now(),
			baseDelay: base,
			curDelay:  base,
			maxDelay:  max,
		}
		tloggers[key] = t
	}
	return t
}

// Clear resets the backoff to its base delay, typically called once the
// underlying condition has recovered.
func (t *ThrottledLogger) Clear() {
	t.next = time.Now()
	t.curDelay = t.baseDelay
}

func (t *ThrottledLogger) ready() bool {
	now := time.Now()
	if now.Before(t.next) {
		return false
	}
	t.next = now.Add(t.curDelay)
	t.curDelay *= 2
	if t.curDelay > t.maxDelay {
		t.curDelay = t.maxDelay
	}
	return true
}

// Warnf emits a WARN message, subject to throttling.
func (t *ThrottledLogger) Warnf(format string, args ...interface{}) {
	if t.ready() {
		t.slog.Warnf(format, args...)
	}
}

// Errorf emits an ERROR message, subject to throttling.
func (t *ThrottledLogger) Errorf(format string, args ...interface{}) {
	if t.ready() {
		t.slog.Errorf(format, args...)
	}
}
