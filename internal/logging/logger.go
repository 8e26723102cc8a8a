package logging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"hddfand/internal/config"
)

// Options describes logger construction parameters.
//
// OutputPaths receive DEBUG and INFO records, ErrorOutputPaths receive WARN and
// ERROR records. A destination named in both lists receives every record once.
type Options struct {
	Level            string
	Format           string
	OutputPaths      []string
	ErrorOutputPaths []string
	RunID            string
	Syslog           bool
	SyslogTag        string
}

// New constructs a slog logger using the provided options.
func New(opts Options) (*slog.Logger, error) {
	level := parseLevel(opts.Level)
	levelVar := new(slog.LevelVar)
	levelVar.Set(level)

	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = "console"
	}
	if format != "console" && format != "json" {
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}

	destinations, err := openDestinations(
		defaultSlice(opts.OutputPaths, []string{"stdout"}),
		defaultSlice(opts.ErrorOutputPaths, []string{"stderr"}),
	)
	if err != nil {
		return nil, err
	}

	handlers := make([]slog.Handler, 0, len(destinations)+1)
	for _, dest := range destinations {
		var handler slog.Handler
		switch format {
		case "json":
			handler = newJSONHandler(dest.writer, levelVar)
		default:
			handler = newPrettyHandler(dest.writer, levelVar)
		}
		handlers = append(handlers, newRouteHandler(handler, dest.route))
	}

	if opts.Syslog {
		handler, err := newSyslogHandler(opts.SyslogTag, levelVar)
		if err != nil {
			return nil, err
		}
		handlers = append(handlers, handler)
	}

	return slog.New(newRunIDHandler(newFanoutHandler(handlers...), opts.RunID)), nil
}

// OptionsFromConfig derives logger options from the daemon configuration. The
// configured log file receives every record alongside the console streams.
func OptionsFromConfig(cfg *config.Config) Options {
	opts := Options{
		Level:            "info",
		Format:           "console",
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}
	if cfg == nil {
		return opts
	}
	opts.Level = cfg.Logging.Level
	opts.Format = cfg.Logging.Format
	opts.Syslog = cfg.Logging.Syslog
	opts.SyslogTag = cfg.Logging.SyslogTag
	if file := strings.TrimSpace(cfg.Logging.File); file != "" {
		opts.OutputPaths = append(opts.OutputPaths, file)
		opts.ErrorOutputPaths = append(opts.ErrorOutputPaths, file)
	}
	return opts
}

// NewFromConfig creates a logger using application config defaults.
func NewFromConfig(cfg *config.Config, runID string) (*slog.Logger, error) {
	opts := OptionsFromConfig(cfg)
	opts.RunID = runID
	return New(opts)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "info", "":
		return slog.LevelInfo
	default:
		return slog.LevelInfo
	}
}

func defaultSlice(value []string, fallback []string) []string {
	if len(value) == 0 {
		cp := make([]string, len(fallback))
		copy(cp, fallback)
		return cp
	}
	cp := make([]string, len(value))
	copy(cp, value)
	return cp
}

type destination struct {
	name   string
	writer io.Writer
	route  route
}

// openDestinations deduplicates the output lists and assigns each destination
// the severities it should receive.
func openDestinations(outputPaths []string, errorPaths []string) ([]destination, error) {
	index := map[string]int{}
	var dests []destination

	add := func(path string, r route) error {
		trimmed := strings.TrimSpace(path)
		if trimmed == "" {
			return nil
		}
		if idx, ok := index[trimmed]; ok {
			if dests[idx].route != r {
				dests[idx].route = routeAll
			}
			return nil
		}
		writer, err := openWriter(trimmed)
		if err != nil {
			return err
		}
		index[trimmed] = len(dests)
		dests = append(dests, destination{name: trimmed, writer: writer, route: r})
		return nil
	}

	for _, path := range outputPaths {
		if err := add(path, routeRegular); err != nil {
			return nil, err
		}
	}
	for _, path := range errorPaths {
		if err := add(path, routeErrors); err != nil {
			return nil, err
		}
	}
	return dests, nil
}

func openWriter(path string) (io.Writer, error) {
	switch path {
	case "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	}
	if err := ensureLogDir(path); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return file, nil
}

func ensureLogDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func newJSONHandler(w io.Writer, lvl *slog.LevelVar) slog.Handler {
	opts := slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.TimeKey:
				attr.Key = "ts"
				if attr.Value.Kind() == slog.KindTime {
					attr.Value = slog.StringValue(attr.Value.Time().UTC().Format(time.RFC3339))
				}
			case slog.LevelKey:
				attr.Value = slog.StringValue(strings.ToLower(attr.Value.String()))
			}
			return attr
		},
	}
	return slog.NewJSONHandler(w, &opts)
}

type prettyHandler struct {
	mu       *sync.Mutex
	writer   io.Writer
	level    *slog.LevelVar
	attrs    []kv
	groups   []string
	omitTime bool
}

func newPrettyHandler(w io.Writer, lvl *slog.LevelVar) *prettyHandler {
	return &prettyHandler{mu: &sync.Mutex{}, writer: w, level: lvl}
}

func (h *prettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *prettyHandler) Handle(_ context.Context, record slog.Record) error {
	if record.Level < h.level.Level() {
		return nil
	}
	line := h.render(record)

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.writer.Write(line)
	return err
}

// render formats one record as "<ts> <LEVEL> <component>: <msg> k=v ...\n".
func (h *prettyHandler) render(record slog.Record) []byte {
	kvs := make([]kv, 0, record.NumAttrs()+len(h.attrs))
	kvs = append(kvs, h.attrs...)
	record.Attrs(func(attr slog.Attr) bool {
		flattenAttr(&kvs, h.groups, attr)
		return true
	})

	var component string
	filtered := kvs[:0]
	for _, kv := range kvs {
		if kv.key == FieldComponent {
			component = attrString(kv.value)
			continue
		}
		filtered = append(filtered, kv)
	}
	kvs = filtered

	var buf bytes.Buffer
	buf.Grow(128 + len(kvs)*24)

	if !h.omitTime {
		timestamp := record.Time
		if timestamp.IsZero() {
			timestamp = time.Now()
		}
		buf.WriteString(timestamp.UTC().Format(time.RFC3339))
		buf.WriteByte(' ')
	}
	buf.WriteString(levelLabel(record.Level))
	buf.WriteByte(' ')

	if component != "" {
		buf.WriteString(component)
		buf.WriteString(": ")
	}

	if msg := strings.TrimSpace(record.Message); msg != "" {
		buf.WriteString(msg)
	} else {
		buf.WriteString("(no message)")
	}

	for _, kv := range kvs {
		if kv.key == "" {
			continue
		}
		buf.WriteByte(' ')
		buf.WriteString(kv.key)
		buf.WriteByte('=')
		buf.WriteString(formatValue(kv.value))
	}

	buf.WriteByte('\n')
	return buf.Bytes()
}

func (h *prettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.withAttrs(attrs)
}

func (h *prettyHandler) WithGroup(name string) slog.Handler {
	return h.withGroup(name)
}

func (h *prettyHandler) withAttrs(attrs []slog.Attr) *prettyHandler {
	clone := h.clone()
	flattenAttrs(&clone.attrs, clone.groups, attrs)
	return clone
}

func (h *prettyHandler) withGroup(name string) *prettyHandler {
	clone := h.clone()
	clone.groups = append(clone.groups, name)
	return clone
}

func (h *prettyHandler) clone() *prettyHandler {
	clone := &prettyHandler{
		mu:       h.mu,
		writer:   h.writer,
		level:    h.level,
		omitTime: h.omitTime,
	}
	if len(h.attrs) > 0 {
		clone.attrs = make([]kv, len(h.attrs))
		copy(clone.attrs, h.attrs)
	}
	if len(h.groups) > 0 {
		clone.groups = make([]string, len(h.groups))
		copy(clone.groups, h.groups)
	}
	return clone
}

type kv struct {
	key   string
	value slog.Value
}

func flattenAttrs(dst *[]kv, prefix []string, attrs []slog.Attr) {
	for _, attr := range attrs {
		flattenAttr(dst, prefix, attr)
	}
}

func flattenAttr(dst *[]kv, prefix []string, attr slog.Attr) {
	if attr.Equal(slog.Attr{}) {
		return
	}
	attr.Value = attr.Value.Resolve()
	if attr.Value.Kind() == slog.KindGroup {
		nextPrefix := prefix
		if attr.Key != "" {
			nextPrefix = appendPrefix(prefix, attr.Key)
		}
		flattenAttrs(dst, nextPrefix, attr.Value.Group())
		return
	}
	key := attr.Key
	if len(prefix) > 0 {
		if key != "" {
			key = strings.Join(append(prefix, key), ".")
		} else {
			key = strings.Join(prefix, ".")
		}
	}
	*dst = append(*dst, kv{key: key, value: attr.Value})
}

func appendPrefix(prefix []string, value string) []string {
	out := make([]string, len(prefix)+1)
	copy(out, prefix)
	out[len(prefix)] = value
	return out
}

func attrString(v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return fmt.Sprint(v.Any())
	default:
		return formatValue(v)
	}
}

func formatValue(v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindBool:
		return strconv.FormatBool(v.Bool())
	case slog.KindInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case slog.KindUint64:
		return strconv.FormatUint(v.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().UTC().Format(time.RFC3339)
	case slog.KindAny:
		var s string
		if err, ok := v.Any().(error); ok {
			s = err.Error()
		} else {
			s = fmt.Sprint(v.Any())
		}
		return quoteIfNeeded(s)
	default:
		return quoteIfNeeded(v.String())
	}
}

func quoteIfNeeded(s string) string {
	if needsQuotes(s) {
		return strconv.Quote(s)
	}
	return s
}

func needsQuotes(s string) bool {
	if s == "" {
		return true
	}
	for _, r := range s {
		if r <= ' ' || r == '=' || r == '"' {
			return true
		}
	}
	return false
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}
