package config

import "time"

// Configuration keys as they appear in the file.
const (
	KeyDisks         = "disks"
	KeyInterval      = "interval"
	KeyMinTemp       = "mintemp"
	KeyMaxTemp       = "maxtemp"
	KeyMinStop       = "minstop"
	KeyMaxPWM        = "maxpwm"
	KeyFanAddress    = "fan_address"
	KeyPolicy        = "policy"
	KeyHDDTemp       = "hddtemp"
	KeySensorTimeout = "sensor_timeout"
	KeyPIDFile       = "pidfile"
	KeyStopTimeout   = "stop_timeout"
	KeyFailSafe      = "failsafe"
	KeyJournal       = "journal"
	KeyWatchDevices  = "watch_devices"
	KeyLogLevel      = "log_level"
	KeyLogFormat     = "log_format"
	KeyLogFile       = "log_file"
	KeySyslog        = "syslog"
	KeySyslogTag     = "syslog_tag"

	// keyMinStart is accepted for compatibility with older files but unused.
	keyMinStart = "minstart"
)

// EnvPrefix prefixes environment overrides, e.g. HDDFAND_INTERVAL.
const EnvPrefix = "HDDFAND_"

// Policy names.
const (
	PolicyHysteresis = "hysteresis"
	PolicyThreshold  = "threshold"
)

const (
	defaultPolicy        = PolicyHysteresis
	defaultHDDTemp       = "hddtemp"
	defaultSensorTimeout = 10 * time.Second
	defaultPIDFile       = "/run/lock/hddfand.lock"
	defaultStopTimeout   = 10 * time.Second
	defaultFailSafe      = true
	defaultJournal       = "/var/lib/hddfand/journal.db"
	defaultWatchDevices  = true
	defaultLogLevel      = "info"
	defaultLogFormat     = "console"
	defaultSyslogTag     = "hddfand"

	defaultConfigPath = "/etc/hddfand/hddfand.conf"
	projectConfigName = "hddfand.conf"
)

var requiredKeys = []string{
	KeyDisks,
	KeyInterval,
	KeyMinTemp,
	KeyMaxTemp,
	KeyMinStop,
	KeyMaxPWM,
	KeyFanAddress,
}

var optionalKeys = []string{
	KeyPolicy,
	KeyHDDTemp,
	KeySensorTimeout,
	KeyPIDFile,
	KeyStopTimeout,
	KeyFailSafe,
	KeyJournal,
	KeyWatchDevices,
	KeyLogLevel,
	KeyLogFormat,
	KeyLogFile,
	KeySyslog,
	KeySyslogTag,
	keyMinStart,
}

// Default returns a Config populated with the optional-key defaults. Required
// keys are left zero.
func Default() Config {
	return Config{
		Sensor: Sensor{
			Binary:  defaultHDDTemp,
			Timeout: defaultSensorTimeout,
		},
		Control: Control{
			Policy:   defaultPolicy,
			FailSafe: defaultFailSafe,
		},
		Daemon: Daemon{
			PIDFile:      defaultPIDFile,
			StopTimeout:  defaultStopTimeout,
			Journal:      defaultJournal,
			WatchDevices: defaultWatchDevices,
		},
		Logging: Logging{
			Level:     defaultLogLevel,
			Format:    defaultLogFormat,
			SyslogTag: defaultSyslogTag,
		},
	}
}
