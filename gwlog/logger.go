// Package gwlog provides the gateway's structured logger. It keeps the
// teacher's Logger interface and ContextLogger shape (logger/logger.go) but
// backs every call with a github.com/sirupsen/logrus entry instead of
// stdlib log.Println, so production output is JSON and machine-parseable
// the way logger/observability.go configures its file logger.
package gwlog

import (
	"context"

	"github.com/sirupsen/logrus"

	"aigateway/internal"
)

// Level names the same four severities as logrus.Level, ordered from least
// to most severe (the reverse of logrus's numeric order), but stays a
// distinct type so callers depend on gwlog, not logrus, for filtering
// decisions.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

func (l Level) logrusLevel() logrus.Level {
	switch l {
	case DEBUG:
		return logrus.DebugLevel
	case INFO:
		return logrus.InfoLevel
	case WARN:
		return logrus.WarnLevel
	case ERROR:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// Component names used as the "component" field, matching the categories the
// teacher's logger/observability.go defines.
const (
	ComponentSchema    = "schema"
	ComponentTranslate = "translate"
	ComponentStream    = "stream"
	ComponentCatalog   = "catalog"
	ComponentUpstream  = "upstream"
	ComponentServer    = "server"
)

// Logger is the interface every gateway package logs through.
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
	WithField(key string, value interface{}) Logger
	WithModel(model string) Logger
	WithComponent(component string) Logger
}

// Config controls level and model-scoped filtering, mirroring the teacher's
// LoggerConfig interface.
type Config interface {
	ShouldLogForModel(model string) bool
	GetMinLogLevel() Level
	ShouldMaskAPIKeys() bool
}

// StaticConfig is the simplest Config: a fixed minimum level with no
// per-model filtering, suitable for main.go wiring and tests.
type StaticConfig struct {
	MinLevel  Level
	MaskKeys  bool
}

func (c StaticConfig) ShouldLogForModel(string) bool   { return true }
func (c StaticConfig) GetMinLogLevel() Level           { return c.MinLevel }
func (c StaticConfig) ShouldMaskAPIKeys() bool          { return c.MaskKeys }

type contextKey string

const loggerContextKey contextKey = "gwlog_logger"

// ContextLogger implements Logger over a shared *logrus.Logger, carrying an
// immutable set of fields/model/component the way the teacher's
// ContextLogger does (each With* call returns a copy, never mutates in
// place, so concurrent requests sharing a parent logger never race).
type ContextLogger struct {
	ctx       context.Context
	base      *logrus.Logger
	config    Config
	fields    map[string]interface{}
	model     string
	component string
}

// New builds a root ContextLogger backed by base, configured with a JSON
// formatter the way logger/observability.go configures its file logger.
func New(ctx context.Context, base *logrus.Logger, config Config) Logger {
	if base == nil {
		base = logrus.New()
		base.SetFormatter(&logrus.JSONFormatter{})
	}
	return &ContextLogger{ctx: ctx, base: base, config: config, fields: map[string]interface{}{}}
}

// FromContext returns the logger stashed in ctx, or a fresh root logger.
func FromContext(ctx context.Context, base *logrus.Logger, config Config) Logger {
	if l, ok := ctx.Value(loggerContextKey).(Logger); ok {
		return l
	}
	return New(ctx, base, config)
}

// WithContext stores l in ctx for later retrieval via FromContext.
func (l *ContextLogger) WithContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, loggerContextKey, l)
}

func (l *ContextLogger) clone() *ContextLogger {
	fields := make(map[string]interface{}, len(l.fields))
	for k, v := range l.fields {
		fields[k] = v
	}
	return &ContextLogger{ctx: l.ctx, base: l.base, config: l.config, fields: fields, model: l.model, component: l.component}
}

func (l *ContextLogger) WithField(key string, value interface{}) Logger {
	c := l.clone()
	c.fields[key] = value
	return c
}

func (l *ContextLogger) WithModel(model string) Logger {
	c := l.clone()
	c.model = model
	return c
}

func (l *ContextLogger) WithComponent(component string) Logger {
	c := l.clone()
	c.component = component
	return c
}

func (l *ContextLogger) shouldLog(level Level) bool {
	if level < l.config.GetMinLogLevel() {
		return false
	}
	if l.model != "" && !l.config.ShouldLogForModel(l.model) {
		return false
	}
	return true
}

func (l *ContextLogger) entry(level Level) *logrus.Entry {
	e := l.base.WithFields(logrus.Fields{})
	if requestID := internal.GetRequestID(l.ctx); requestID != "" && requestID != "unknown" {
		e = e.WithField("request_id", requestID)
	}
	if l.component != "" {
		e = e.WithField("component", l.component)
	}
	if l.model != "" {
		e = e.WithField("model", l.model)
	}
	for k, v := range l.fields {
		e = e.WithField(k, v)
	}
	return e
}

func (l *ContextLogger) log(level Level, format string, args ...interface{}) {
	if !l.shouldLog(level) {
		return
	}
	msg := format
	if len(args) > 0 {
		msg = sprintfMasked(l.config.ShouldMaskAPIKeys(), format, args...)
	} else if l.config.ShouldMaskAPIKeys() {
		msg = maskAPIKeys(format)
	}
	l.entry(level).Log(level.logrusLevel(), msg)
}

func (l *ContextLogger) Debug(format string, args ...interface{}) { l.log(DEBUG, format, args...) }
func (l *ContextLogger) Info(format string, args ...interface{})  { l.log(INFO, format, args...) }
func (l *ContextLogger) Warn(format string, args ...interface{})  { l.log(WARN, format, args...) }
func (l *ContextLogger) Error(format string, args ...interface{}) { l.log(ERROR, format, args...) }
