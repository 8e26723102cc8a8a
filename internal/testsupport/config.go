package testsupport

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"hddfand/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a valid config whose lock artifact, journal, log file and
// PWM control file all live in a per-test temp directory.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Sensor.Disks = []string{"/dev/sda", "/dev/sdb"}
	cfgVal.Control.Interval = 50 * time.Millisecond
	cfgVal.Control.MinTemp = 35
	cfgVal.Control.MaxTemp = 45
	cfgVal.Fan.MinStop = 0
	cfgVal.Fan.MaxPWM = 255
	cfgVal.Fan.Address = WritePWMFile(t, filepath.Join(base, "sys", "pwm1"))
	cfgVal.Daemon.PIDFile = filepath.Join(base, "run", "hddfand.lock")
	cfgVal.Daemon.Journal = filepath.Join(base, "state", "journal.db")
	cfgVal.Daemon.WatchDevices = false
	cfgVal.Logging.File = filepath.Join(base, "logs", "hddfand.log")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithPolicy overrides the decision policy.
func WithPolicy(policy string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Control.Policy = policy
	}
}

// WithoutJournal disables the actuation journal.
func WithoutJournal() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Daemon.Journal = ""
	}
}

// WithStubbedHDDTemp installs an hddtemp stub that prints output and exits
// with code, and points the config at it.
func WithStubbedHDDTemp(output string, code int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Sensor.Binary = WriteStub(b.t, filepath.Join(b.baseDir, "bin"), "hddtemp", output, code)
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(filepath.Dir(cfg.Daemon.PIDFile))
}

// ConfigFile renders cfg as a "key = value" file in dir and returns its path.
func ConfigFile(t testing.TB, dir string, values map[string]string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	var content []byte
	for key, value := range values {
		content = append(content, []byte(key+" = "+value+"\n")...)
	}
	path := filepath.Join(dir, "hddfand.conf")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
