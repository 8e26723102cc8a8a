package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"hddfand/internal/faults"
)

//go:embed sample_config.conf
var sampleConfig string

// Sensor describes how drive temperatures are obtained.
type Sensor struct {
	Disks   []string
	Binary  string
	Timeout time.Duration
}

// Fan describes the PWM actuator.
type Fan struct {
	Address string
	MinStop int
	MaxPWM  int
}

// Control contains the control loop timing and decision thresholds.
type Control struct {
	Interval time.Duration
	MinTemp  int
	MaxTemp  int
	Policy   string
	FailSafe bool
}

// Daemon contains lifecycle settings.
type Daemon struct {
	PIDFile      string
	StopTimeout  time.Duration
	Journal      string
	WatchDevices bool
}

// Logging contains configuration for log output.
type Logging struct {
	Level     string
	Format    string
	File      string
	Syslog    bool
	SyslogTag string
}

// Config encapsulates all configuration values for hddfand.
type Config struct {
	Sensor  Sensor
	Fan     Fan
	Control Control
	Daemon  Daemon
	Logging Logging
}

// DefaultConfigPath returns the system-wide configuration file location.
func DefaultConfigPath() string {
	return defaultConfigPath
}

// Load locates, reads and validates a configuration file. It returns the
// typed config, the resolved path and whether that file existed. A missing
// file is not an error by itself; required keys may still come from the
// environment. Relative paths inside the file resolve against the file's
// directory so every process loading the same file agrees on them.
func Load(path string) (*Config, string, bool, error) {
	values, resolvedPath, exists, err := LoadValues(path)
	if err != nil {
		return nil, resolvedPath, exists, err
	}
	cfg, err := FromMapIn(values, filepath.Dir(resolvedPath))
	if err != nil {
		return nil, resolvedPath, exists, err
	}
	return cfg, resolvedPath, exists, nil
}

// LoadValues reads the raw key/value map (file plus environment overrides)
// without converting it.
func LoadValues(path string) (map[string]string, string, bool, error) {
	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	values := map[string]string{}
	if exists {
		values, err = ReadFile(resolvedPath)
		if err != nil {
			return nil, resolvedPath, exists, err
		}
	}
	ApplyEnv(values)
	return values, resolvedPath, exists, nil
}

// ApplyEnv overlays HDDFAND_<KEY> environment variables onto values.
func ApplyEnv(values map[string]string) {
	for _, key := range knownKeys() {
		if v, ok := os.LookupEnv(EnvPrefix + strings.ToUpper(key)); ok {
			values[key] = v
		}
	}
}

// UnknownKeys lists keys in values that hddfand does not recognise.
func UnknownKeys(values map[string]string) []string {
	known := map[string]struct{}{}
	for _, key := range knownKeys() {
		known[key] = struct{}{}
	}
	var unknown []string
	for key := range values {
		if _, ok := known[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	return unknown
}

func knownKeys() []string {
	keys := make([]string, 0, len(requiredKeys)+len(optionalKeys))
	keys = append(keys, requiredKeys...)
	return append(keys, optionalKeys...)
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, faults.Wrap(faults.ErrConfiguration, "config", "stat", expanded, err)
		}
		return expanded, true, nil
	}

	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultConfigPath); err == nil && !info.IsDir() {
		return defaultConfigPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultConfigPath, false, nil
}

func expandPath(pathValue string) (string, error) {
	return resolvePath(pathValue, "")
}

// resolvePath expands "~" and makes pathValue absolute, joining relative
// values onto baseDir when one is given.
func resolvePath(pathValue, baseDir string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && pathValue[1] == '/' {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	if baseDir != "" && !filepath.IsAbs(pathValue) {
		pathValue = filepath.Join(baseDir, pathValue)
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
