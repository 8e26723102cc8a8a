package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestRunIDHandler(t *testing.T) {
	var buf bytes.Buffer
	base := slog.NewJSONHandler(&buf, nil)
	handler := newRunIDHandler(base, "run-123")

	logger := slog.New(handler)
	logger.Info("test message")

	output := buf.String()
	if !strings.Contains(output, `"run_id":"run-123"`) {
		t.Errorf("expected run_id in output, got: %s", output)
	}
}

func TestRunIDHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	base := slog.NewJSONHandler(&buf, nil)
	handler := newRunIDHandler(base, "run-abc")

	logger := slog.New(handler).With("extra", "value")
	logger.Info("test message")

	output := buf.String()
	if !strings.Contains(output, `"run_id":"run-abc"`) {
		t.Errorf("expected run_id in output, got: %s", output)
	}
	if !strings.Contains(output, `"extra":"value"`) {
		t.Errorf("expected extra attr in output, got: %s", output)
	}
}

func TestRunIDHandler_NilBase(t *testing.T) {
	handler := newRunIDHandler(nil, "run-123")
	if _, ok := handler.(NoopHandler); !ok {
		t.Errorf("expected NoopHandler when base is nil, got: %T", handler)
	}
}

func TestRunIDHandler_EmptyIDReturnsBase(t *testing.T) {
	base := slog.NewJSONHandler(&bytes.Buffer{}, nil)
	if handler := newRunIDHandler(base, ""); handler != base {
		t.Errorf("expected base handler for empty run id, got %T", handler)
	}
}
