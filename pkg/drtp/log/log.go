// Package log is DRTP's leveled, colored logging façade.
//
// It keeps the level names and banner/success helpers of the teacher's
// hand-rolled ANSI logger but is backed by logrus, matching the
// logrus.Logger + custom formatter idiom telepresence wires up in
// cmd/traffic/logger.go.
package log

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var base = newBase()

func newBase() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05",
	})
	l.SetLevel(logrus.InfoLevel)
	return l
}

// SetLevel sets the minimum level the default logger emits, accepting the
// same names logrus.ParseLevel understands ("debug", "info", "warn", ...).
func SetLevel(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	base.SetLevel(lvl)
	return nil
}

// Banner prints a one-line startup banner at Info level, mirroring the
// teacher's logger.Banner used from core/main.go.
func Banner(title, version string) {
	base.Infof("=== %s (v%s) ===", title, version)
}

func Debug(format string, args ...interface{}) { base.Debugf(format, args...) }
func Info(format string, args ...interface{})  { base.Infof(format, args...) }
func Warn(format string, args ...interface{})  { base.Warnf(format, args...) }
func Error(format string, args ...interface{}) { base.Errorf(format, args...) }
func Fatal(format string, args ...interface{}) { base.Fatalf(format, args...) }

// Success is the teacher's green "ok" log line; logrus has no dedicated
// level for it so it rides on Info with a field that the formatter renders
// distinctly enough in practice (##, bold-cyan terminals aside).
func Success(format string, args ...interface{}) {
	base.WithField("status", "ok").Infof(format, args...)
}

// Conn returns a per-connection logging entry carrying a stable correlation
// ID, so interleaved log lines from concurrent connections can be told
// apart — the same correlation-id idiom used for telepresence sessions.
func Conn(role string) *logrus.Entry {
	return base.WithFields(logrus.Fields{
		"conn_id": uuid.NewString(),
		"role":    role,
	})
}

// WithFields exposes the underlying structured-logging API for callers that
// want to attach connection-specific context (peer address, strategy, …).
func WithFields(fields map[string]interface{}) *logrus.Entry {
	return base.WithFields(logrus.Fields(fields))
}

// Fields is a small convenience constructor to avoid importing logrus
// directly from call sites that only ever build field maps.
func Fields(kv ...interface{}) map[string]interface{} {
	f := make(map[string]interface{}, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kv[i])
		}
		f[key] = kv[i+1]
	}
	return f
}
