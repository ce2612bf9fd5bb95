// Package logx configures the process-wide logrus logger.
package logx

import (
	"os"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
)

// Setup switches logrus to JSON on stdout and installs the trace hook.
// Unknown levels fall back to info.
func Setup(level, service string) {
	log.SetFormatter(&log.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	log.SetOutput(os.Stdout)
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
	log.AddHook(&TraceHook{Service: service})
}

// TraceHook stamps entries logged WithContext with the active span ids.
type TraceHook struct {
	Service string
}

func (h *TraceHook) Levels() []log.Level { return log.AllLevels }

func (h *TraceHook) Fire(e *log.Entry) error {
	if h.Service != "" {
		e.Data["service"] = h.Service
	}
	if e.Context == nil {
		return nil
	}
	sc := trace.SpanContextFromContext(e.Context)
	if sc.HasTraceID() {
		e.Data["trace_id"] = sc.TraceID().String()
	}
	if sc.HasSpanID() {
		e.Data["span_id"] = sc.SpanID().String()
	}
	return nil
}
