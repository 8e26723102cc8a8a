package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"hddfand/internal/faults"
)

// FromMap converts raw key/value pairs into a validated Config. A missing
// required key, an unparsable value or a violated invariant returns an error
// tagged with faults.ErrConfiguration. Relative paths resolve against the
// working directory.
func FromMap(values map[string]string) (*Config, error) {
	return FromMapIn(values, "")
}

// FromMapIn is FromMap with relative pidfile, journal and log_file values
// resolved against baseDir, normally the directory holding the config file.
func FromMapIn(values map[string]string, baseDir string) (*Config, error) {
	p := parser{values: values}

	for _, key := range requiredKeys {
		if strings.TrimSpace(values[key]) == "" {
			return nil, configError(fmt.Sprintf("missing required key %q", key))
		}
	}

	cfg := Default()
	cfg.Sensor.Disks = splitList(values[KeyDisks])
	cfg.Control.Interval = p.duration(KeyInterval, 0)
	cfg.Control.MinTemp = p.integer(KeyMinTemp, 0)
	cfg.Control.MaxTemp = p.integer(KeyMaxTemp, 0)
	cfg.Fan.MinStop = p.integer(KeyMinStop, 0)
	cfg.Fan.MaxPWM = p.integer(KeyMaxPWM, 0)
	cfg.Fan.Address = strings.TrimSpace(values[KeyFanAddress])

	cfg.Control.Policy = strings.ToLower(p.str(KeyPolicy, cfg.Control.Policy))
	cfg.Control.FailSafe = p.boolean(KeyFailSafe, cfg.Control.FailSafe)
	cfg.Sensor.Binary = p.str(KeyHDDTemp, cfg.Sensor.Binary)
	cfg.Sensor.Timeout = p.duration(KeySensorTimeout, cfg.Sensor.Timeout)
	cfg.Daemon.PIDFile = p.str(KeyPIDFile, cfg.Daemon.PIDFile)
	cfg.Daemon.StopTimeout = p.duration(KeyStopTimeout, cfg.Daemon.StopTimeout)
	cfg.Daemon.WatchDevices = p.boolean(KeyWatchDevices, cfg.Daemon.WatchDevices)
	if journal, ok := values[KeyJournal]; ok {
		cfg.Daemon.Journal = strings.TrimSpace(journal)
	}
	cfg.Logging.Level = strings.ToLower(p.str(KeyLogLevel, cfg.Logging.Level))
	cfg.Logging.Format = strings.ToLower(p.str(KeyLogFormat, cfg.Logging.Format))
	cfg.Logging.File = p.str(KeyLogFile, "")
	cfg.Logging.Syslog = p.boolean(KeySyslog, cfg.Logging.Syslog)
	cfg.Logging.SyslogTag = p.str(KeySyslogTag, cfg.Logging.SyslogTag)

	if p.err != nil {
		return nil, p.err
	}
	if err := cfg.normalizePaths(baseDir); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	switch {
	case len(c.Sensor.Disks) == 0:
		return configError("disks must name at least one drive")
	case c.Control.Interval <= 0:
		return configError("interval must be positive")
	case c.Sensor.Timeout <= 0:
		return configError("sensor_timeout must be positive")
	case c.Daemon.StopTimeout <= 0:
		return configError("stop_timeout must be positive")
	case c.Control.MinTemp > c.Control.MaxTemp:
		return configError(fmt.Sprintf("mintemp (%d) must not exceed maxtemp (%d)", c.Control.MinTemp, c.Control.MaxTemp))
	case c.Fan.MinStop < 0 || c.Fan.MaxPWM > 255:
		return configError("minstop and maxpwm must be within 0..255")
	case c.Fan.MinStop > c.Fan.MaxPWM:
		return configError(fmt.Sprintf("minstop (%d) must not exceed maxpwm (%d)", c.Fan.MinStop, c.Fan.MaxPWM))
	case c.Fan.Address == "":
		return configError("fan_address must be set")
	case strings.TrimSpace(c.Daemon.PIDFile) == "":
		return configError("pidfile must be set")
	}
	switch c.Control.Policy {
	case PolicyHysteresis, PolicyThreshold:
	default:
		return configError(fmt.Sprintf("policy must be %q or %q, got %q", PolicyHysteresis, PolicyThreshold, c.Control.Policy))
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return configError(fmt.Sprintf("log_format must be console or json, got %q", c.Logging.Format))
	}
	return nil
}

func (c *Config) normalizePaths(baseDir string) error {
	var err error
	if c.Daemon.PIDFile, err = resolvePath(c.Daemon.PIDFile, baseDir); err != nil {
		return configError(err.Error())
	}
	if c.Daemon.Journal, err = resolvePath(c.Daemon.Journal, baseDir); err != nil {
		return configError(err.Error())
	}
	if c.Logging.File, err = resolvePath(c.Logging.File, baseDir); err != nil {
		return configError(err.Error())
	}
	return nil
}

func configError(message string) error {
	return faults.Wrap(faults.ErrConfiguration, "config", "validate", message, nil)
}

// parser records the first conversion failure and keeps defaults afterwards.
type parser struct {
	values map[string]string
	err    error
}

func (p *parser) raw(key string) (string, bool) {
	v, ok := p.values[key]
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (p *parser) fail(key, value string, err error) {
	if p.err == nil {
		p.err = faults.Wrap(faults.ErrConfiguration, "config", "parse", fmt.Sprintf("key %q value %q", key, value), err)
	}
}

func (p *parser) str(key, fallback string) string {
	if v, ok := p.raw(key); ok {
		return v
	}
	return fallback
}

func (p *parser) integer(key string, fallback int) int {
	v, ok := p.raw(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		// Thresholds are sometimes written as "45.0".
		f, ferr := strconv.ParseFloat(v, 64)
		if ferr != nil || f != float64(int(f)) {
			p.fail(key, v, err)
			return fallback
		}
		n = int(f)
	}
	return n
}

func (p *parser) boolean(key string, fallback bool) bool {
	v, ok := p.raw(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(v) {
	case "yes", "on":
		return true
	case "no", "off":
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, v, err)
		return fallback
	}
	return b
}

// duration accepts plain seconds ("30", "2.5") or Go duration strings ("30s").
func (p *parser) duration(key string, fallback time.Duration) time.Duration {
	v, ok := p.raw(key)
	if !ok {
		return fallback
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, v, err)
		return fallback
	}
	return d
}

func splitList(value string) []string {
	return strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
}
