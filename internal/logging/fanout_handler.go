package logging

import (
	"context"
	"log/slog"
)

type fanoutHandler struct {
	handlers []slog.Handler
}

func newFanoutHandler(handlers ...slog.Handler) slog.Handler {
	filtered := make([]slog.Handler, 0, len(handlers))
	for _, h := range handlers {
		if h != nil {
			filtered = append(filtered, h)
		}
	}
	if len(filtered) == 0 {
		return NoopHandler{}
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &fanoutHandler{handlers: filtered}
}

func (h *fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *fanoutHandler) Handle(ctx context.Context, record slog.Record) error {
	var firstErr error
	for idx, handler := range h.handlers {
		if !handler.Enabled(ctx, record.Level) {
			continue
		}
		rec := record
		if idx < len(h.handlers)-1 {
			rec = record.Clone()
		}
		if err := handler.Handle(ctx, rec); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (h *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		next[i] = handler.WithAttrs(attrs)
	}
	return &fanoutHandler{handlers: next}
}

func (h *fanoutHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		next[i] = handler.WithGroup(name)
	}
	return &fanoutHandler{handlers: next}
}

// route selects which severities an output receives.
type route int

const (
	routeAll route = iota
	// routeRegular carries DEBUG and INFO.
	routeRegular
	// routeErrors carries WARN and ERROR.
	routeErrors
)

// routeHandler restricts a handler to the severities of its route so regular
// and error outputs never duplicate a record.
type routeHandler struct {
	base  slog.Handler
	route route
}

func newRouteHandler(base slog.Handler, r route) slog.Handler {
	if base == nil {
		return nil
	}
	if r == routeAll {
		return base
	}
	return &routeHandler{base: base, route: r}
}

func (h *routeHandler) accepts(level slog.Level) bool {
	switch h.route {
	case routeRegular:
		return level < slog.LevelWarn
	case routeErrors:
		return level >= slog.LevelWarn
	default:
		return true
	}
}

func (h *routeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.accepts(level) && h.base.Enabled(ctx, level)
}

func (h *routeHandler) Handle(ctx context.Context, record slog.Record) error {
	if !h.accepts(record.Level) {
		return nil
	}
	return h.base.Handle(ctx, record)
}

func (h *routeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &routeHandler{base: h.base.WithAttrs(attrs), route: h.route}
}

func (h *routeHandler) WithGroup(name string) slog.Handler {
	return &routeHandler{base: h.base.WithGroup(name), route: h.route}
}
