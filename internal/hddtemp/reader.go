package hddtemp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"hddfand/internal/faults"
	"hddfand/internal/logging"
)

// DefaultBinary is the executable looked up on PATH when none is configured.
const DefaultBinary = "hddtemp"

// Executor abstracts command execution for testability.
type Executor interface {
	Output(ctx context.Context, binary string, args []string) ([]byte, error)
}

// Option configures the reader.
type Option func(*Reader)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(r *Reader) {
		if exec != nil {
			r.exec = exec
		}
	}
}

// WithLogger attaches a logger for per-sample diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reader) {
		r.logger = logging.NewComponentLogger(logger, "hddtemp")
	}
}

// Reader wraps hddtemp CLI interactions.
type Reader struct {
	binary  string
	timeout time.Duration
	exec    Executor
	logger  *slog.Logger
}

// New resolves the hddtemp binary and constructs a reader. A binary that cannot
// be found is reported as faults.ErrSensorUnavailable.
func New(binary string, timeout time.Duration, opts ...Option) (*Reader, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = DefaultBinary
	}
	resolved, err := exec.LookPath(binary)
	if err != nil {
		return nil, faults.Wrap(faults.ErrSensorUnavailable, "hddtemp", "lookup",
			fmt.Sprintf("%q not found, make sure hddtemp is installed", binary), err)
	}
	reader := &Reader{
		binary:  resolved,
		timeout: timeout,
		exec:    commandExecutor{},
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(reader)
	}
	return reader, nil
}

// Binary returns the resolved executable path.
func (r *Reader) Binary() string {
	return r.binary
}

// Temperatures runs hddtemp against drives and returns the parsed values in
// output order.
func (r *Reader) Temperatures(ctx context.Context, drives []string) ([]int, error) {
	if len(drives) == 0 {
		return nil, faults.Wrap(faults.ErrSensorRead, "hddtemp", "", "no drives configured", nil)
	}

	runCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	out, err := r.exec.Output(runCtx, r.binary, drives)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return nil, faults.Wrap(faults.ErrSensorRead, "hddtemp", "run",
				fmt.Sprintf("timed out after %s", r.timeout), err)
		}
		return nil, faults.Wrap(faults.ErrSensorRead, "hddtemp", "run", "", err)
	}

	temps := Parse(string(out))
	if len(temps) == 0 {
		return nil, faults.Wrap(faults.ErrSensorRead, "hddtemp", "parse",
			fmt.Sprintf("no temperatures in output %q", strings.TrimSpace(string(out))), nil)
	}
	if len(temps) < len(drives) {
		r.logger.Debug("some drives reported no temperature",
			logging.Int("drives", len(drives)),
			logging.Int("parsed", len(temps)),
		)
	}
	return temps, nil
}

// Sample returns the hottest drive temperature.
func (r *Reader) Sample(ctx context.Context, drives []string) (int, error) {
	temps, err := r.Temperatures(ctx, drives)
	if err != nil {
		return 0, err
	}
	hottest, _ := Max(temps)
	r.logger.Debug("drive temperatures sampled",
		logging.Any("temperatures", temps),
		logging.Int("max", hottest),
	)
	return hottest, nil
}

type commandExecutor struct{}

func (commandExecutor) Output(ctx context.Context, binary string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return out, fmt.Errorf("%w: %s", err, msg)
		}
		return out, err
	}
	return out, nil
}
