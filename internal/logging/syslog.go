package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"log/syslog"
	"strings"
)

// DefaultSyslogTag is used when no tag is configured.
const DefaultSyslogTag = "hddfand"

// syslogWriter is the subset of *syslog.Writer the handler uses.
type syslogWriter interface {
	Debug(string) error
	Info(string) error
	Warning(string) error
	Err(string) error
}

var dialSyslog = func(tag string) (syslogWriter, error) {
	return syslog.New(syslog.LOG_LOCAL3|syslog.LOG_INFO, tag)
}

// syslogHandler forwards records to the local syslog daemon on facility local3.
// Timestamps are left to syslog.
type syslogHandler struct {
	pretty *prettyHandler
	writer syslogWriter
}

func newSyslogHandler(tag string, lvl *slog.LevelVar) (slog.Handler, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		tag = DefaultSyslogTag
	}
	writer, err := dialSyslog(tag)
	if err != nil {
		return nil, fmt.Errorf("connect syslog: %w", err)
	}
	return newSyslogHandlerWithWriter(writer, lvl), nil
}

func newSyslogHandlerWithWriter(writer syslogWriter, lvl *slog.LevelVar) *syslogHandler {
	pretty := newPrettyHandler(io.Discard, lvl)
	pretty.omitTime = true
	return &syslogHandler{pretty: pretty, writer: writer}
}

func (h *syslogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.pretty.Enabled(ctx, level)
}

func (h *syslogHandler) Handle(_ context.Context, record slog.Record) error {
	if record.Level < h.pretty.level.Level() {
		return nil
	}
	line := strings.TrimSuffix(string(h.pretty.render(record)), "\n")
	switch {
	case record.Level >= slog.LevelError:
		return h.writer.Err(line)
	case record.Level >= slog.LevelWarn:
		return h.writer.Warning(line)
	case record.Level >= slog.LevelInfo:
		return h.writer.Info(line)
	default:
		return h.writer.Debug(line)
	}
}

func (h *syslogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &syslogHandler{pretty: h.pretty.withAttrs(attrs), writer: h.writer}
}

func (h *syslogHandler) WithGroup(name string) slog.Handler {
	return &syslogHandler{pretty: h.pretty.withGroup(name), writer: h.writer}
}
