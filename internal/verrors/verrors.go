// Package verrors provides a structured error type that carries a message
// and key/value pairs through to a zap log line, the way zap's own sugared
// logging carries fields, while still unwrapping to an underlying cause.
package verrors

import (
	"fmt"

	"go.uber.org/zap/zapcore"
)

// Fields is a structured error carrying a message, an optional wrapped
// cause, and key/value pairs, loggable via zap's object-marshaling support
// (use zap.Object("err", f) to get the pairs; %v/Error() fold the cause in).
type Fields struct {
	msg   string
	cause error
	kv    []interface{}
}

// Errorf builds a Fields error with a formatted message and no structured
// pairs attached.
func Errorf(format string, args ...interface{}) Fields {
	return Fields{msg: fmt.Sprintf(format, args...)}
}

// Errorw builds a Fields error carrying alternating key/value pairs for
// structured logging, mirroring zap's own Sugared logging convention.
func Errorw(msg string, kv ...interface{}) Fields {
	return Fields{msg: msg, kv: kv}
}

// Wrap builds a Fields error around an underlying cause plus kv pairs
// describing the call that failed, e.g. a D-Bus object path and interface.
func Wrap(cause error, msg string, kv ...interface{}) Fields {
	return Fields{msg: msg, cause: cause, kv: kv}
}

func (f Fields) Error() string {
	if f.cause != nil {
		return f.msg + ": " + f.cause.Error()
	}
	return f.msg
}

// Unwrap exposes the wrapped cause to errors.Is/errors.As.
func (f Fields) Unwrap() error { return f.cause }

// MarshalLogObject implements zapcore.ObjectMarshaler so the key/value pairs
// are expanded into the surrounding log entry instead of being flattened
// into the message string.
func (f Fields) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("msg", f.msg)
	if f.cause != nil {
		enc.AddString("cause", f.cause.Error())
	}
	for i := 0; i+1 < len(f.kv); i += 2 {
		key, ok := f.kv[i].(string)
		if !ok {
			continue
		}
		_ = enc.AddReflected(key, f.kv[i+1])
	}
	return nil
}
