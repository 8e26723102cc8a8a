package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"hddfand/internal/config"
	"hddfand/internal/faults"
	"hddfand/internal/journal"
	"hddfand/internal/pidfile"
	"hddfand/internal/testsupport"
)

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, cfg *config.Config) string {
	t.Helper()
	return testsupport.ConfigFile(t, testsupport.BaseDir(cfg), testConfigValues(cfg))
}

func testConfigValues(cfg *config.Config) map[string]string {
	values := map[string]string{
		config.KeyDisks:        strings.Join(cfg.Sensor.Disks, " "),
		config.KeyInterval:     cfg.Control.Interval.String(),
		config.KeyMinTemp:      strconv.Itoa(cfg.Control.MinTemp),
		config.KeyMaxTemp:      strconv.Itoa(cfg.Control.MaxTemp),
		config.KeyMinStop:      strconv.Itoa(cfg.Fan.MinStop),
		config.KeyMaxPWM:       strconv.Itoa(cfg.Fan.MaxPWM),
		config.KeyFanAddress:   cfg.Fan.Address,
		config.KeyPolicy:       cfg.Control.Policy,
		config.KeyPIDFile:      cfg.Daemon.PIDFile,
		config.KeyJournal:      cfg.Daemon.Journal,
		config.KeyWatchDevices: strconv.FormatBool(cfg.Daemon.WatchDevices),
		config.KeyLogFile:      cfg.Logging.File,
	}
	if cfg.Sensor.Binary != "" {
		values[config.KeyHDDTemp] = cfg.Sensor.Binary
	}
	return values
}

func writeLock(t *testing.T, cfg *config.Config, pid int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(cfg.Daemon.PIDFile), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(cfg.Daemon.PIDFile, []byte(strconv.Itoa(pid)+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestStopWithoutInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	configPath := writeTestConfig(t, cfg)

	out, _, err := runCLI(t, []string{"stop"}, configPath)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if !strings.Contains(out, "hddfand is not running") {
		t.Fatalf("unexpected output %q", out)
	}
	if _, err := os.Stat(cfg.Daemon.PIDFile); !os.IsNotExist(err) {
		t.Fatal("stop created a lock artifact")
	}
}

func TestStopRemovesStaleArtifact(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	configPath := writeTestConfig(t, cfg)
	dead := testsupport.DeadPID(t)
	writeLock(t, cfg, dead)

	out, _, err := runCLI(t, []string{"stop"}, configPath)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if !strings.Contains(out, "Removed stale lock artifact") {
		t.Fatalf("unexpected output %q", out)
	}
	if _, present, _ := pidfile.Read(cfg.Daemon.PIDFile); present {
		t.Fatal("stale artifact not removed")
	}
}

func TestStopTerminatesRecordedInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	configPath := writeTestConfig(t, cfg)
	sleeper := testsupport.StartSleeper(t)
	writeLock(t, cfg, sleeper.PID)

	out, _, err := runCLI(t, []string{"stop"}, configPath)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if !strings.Contains(out, "hddfand stopped (pid "+strconv.Itoa(sleeper.PID)+")") {
		t.Fatalf("unexpected output %q", out)
	}
	if !sleeper.Exited(time.Second) {
		t.Fatal("instance still running")
	}
	if _, present, _ := pidfile.Read(cfg.Daemon.PIDFile); present {
		t.Fatal("artifact not removed")
	}
}

func TestRelativeLockPathFollowsConfigDir(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	base := testsupport.BaseDir(cfg)
	values := testConfigValues(cfg)
	values[config.KeyPIDFile] = filepath.Join("run", "hddfand.lock")
	configPath := testsupport.ConfigFile(t, base, values)
	sleeper := testsupport.StartSleeper(t)
	writeLock(t, cfg, sleeper.PID)

	// Detached stages run from "/", the user's shell from anywhere else.
	chdir(t, "/")
	out, _, err := runCLI(t, []string{"status"}, configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, "Running (pid "+strconv.Itoa(sleeper.PID)+")") {
		t.Fatalf("status from / did not find the instance:\n%s", out)
	}

	chdir(t, t.TempDir())
	out, _, err = runCLI(t, []string{"stop"}, configPath)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if !strings.Contains(out, "hddfand stopped (pid "+strconv.Itoa(sleeper.PID)+")") {
		t.Fatalf("unexpected output %q", out)
	}
	if !sleeper.Exited(time.Second) {
		t.Fatal("instance still running")
	}
	if _, present, _ := pidfile.Read(cfg.Daemon.PIDFile); present {
		t.Fatal("artifact not removed")
	}
}

func TestStartRefusesLiveInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedHDDTemp("/dev/sda: WDC: 40°C", 0))
	configPath := writeTestConfig(t, cfg)
	sleeper := testsupport.StartSleeper(t)
	writeLock(t, cfg, sleeper.PID)

	_, _, err := runCLI(t, []string{"start"}, configPath)
	if !errors.Is(err, faults.ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
	if pid, _, _ := pidfile.Read(cfg.Daemon.PIDFile); pid != sleeper.PID {
		t.Fatalf("artifact changed to %d", pid)
	}
}

func TestStartFailsBeforeDetachmentWithoutSensor(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Sensor.Binary = filepath.Join(testsupport.BaseDir(cfg), "bin", "hddtemp")
	configPath := writeTestConfig(t, cfg)

	_, _, err := runCLI(t, []string{"start"}, configPath)
	if !errors.Is(err, faults.ErrSensorUnavailable) {
		t.Fatalf("expected ErrSensorUnavailable, got %v", err)
	}
	if _, err := os.Stat(cfg.Daemon.PIDFile); !os.IsNotExist(err) {
		t.Fatal("lock artifact created by failed start")
	}
}

func TestCommandsReportConfigurationErrors(t *testing.T) {
	dir := t.TempDir()
	configPath := testsupport.ConfigFile(t, dir, map[string]string{"disks": "/dev/sda"})

	_, _, err := runCLI(t, []string{"stop"}, configPath)
	if !errors.Is(err, faults.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
	if !strings.Contains(err.Error(), configPath) {
		t.Fatalf("error should name the config file: %v", err)
	}
}

func TestRunForegroundStopsOnSensorFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedHDDTemp("", 2))
	configPath := writeTestConfig(t, cfg)

	_, _, err := runCLI(t, []string{"run"}, configPath)
	if !errors.Is(err, faults.ErrSensorRead) {
		t.Fatalf("expected ErrSensorRead, got %v", err)
	}
	if level := testsupport.ReadLevel(t, cfg.Fan.Address); level != "255" {
		t.Fatalf("fail-safe level = %s", level)
	}
	if _, present, _ := pidfile.Read(cfg.Daemon.PIDFile); present {
		t.Fatal("lock artifact left behind")
	}
	data, err := os.ReadFile(cfg.Logging.File)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "sensor read failed") {
		t.Fatalf("log file missing sensor failure: %s", data)
	}
}

func TestDaemonStageRejectsUnknownStage(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	configPath := writeTestConfig(t, cfg)

	_, _, err := runCLI(t, []string{"daemon", "--stage", "bogus"}, configPath)
	if err == nil || !strings.Contains(err.Error(), "unknown daemon stage") {
		t.Fatalf("expected unknown stage error, got %v", err)
	}
}

func TestStatusNotRunning(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	configPath := writeTestConfig(t, cfg)

	out, _, err := runCLI(t, []string{"status"}, configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	for _, want := range []string{"== Daemon ==", "Not running", "== Checks ==", "Fan control:", "No entries yet"} {
		if !strings.Contains(out, want) {
			t.Fatalf("status output missing %q:\n%s", want, out)
		}
	}
}

func TestStatusShowsRunningInstanceAndJournal(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	configPath := writeTestConfig(t, cfg)
	sleeper := testsupport.StartSleeper(t)
	writeLock(t, cfg, sleeper.PID)

	ctx := context.Background()
	store, err := journal.Open(ctx, cfg.Daemon.Journal)
	if err != nil {
		t.Fatalf("journal.Open: %v", err)
	}
	if err := store.Record(ctx, journal.Entry{RunID: "0f6c1f4e-aaaa", PID: sleeper.PID, Level: 255, Decision: "engage"}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	store.Close()

	out, _, err := runCLI(t, []string{"status", "--recent", "5"}, configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	for _, want := range []string{"Running (pid " + strconv.Itoa(sleeper.PID) + ")", "engage", "0f6c1f4e", "255"} {
		if !strings.Contains(out, want) {
			t.Fatalf("status output missing %q:\n%s", want, out)
		}
	}
}

func TestConfigInitWritesLoadableSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "etc", "hddfand.conf")

	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, target) {
		t.Fatalf("unexpected output %q", out)
	}
	if _, _, _, err := config.Load(target); err != nil {
		t.Fatalf("sample does not load: %v", err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected refusal to overwrite")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedHDDTemp("/dev/sda: WDC: 40°C", 0))
	node := filepath.Join(testsupport.BaseDir(cfg), "sda")
	if err := os.WriteFile(node, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	cfg.Sensor.Disks = []string{node}
	configPath := writeTestConfig(t, cfg)

	out, _, err := runCLI(t, []string{"config", "validate"}, configPath)
	if err != nil {
		t.Fatalf("config validate: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Configuration valid") || !strings.Contains(out, "Sensor:") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestConfigValidateReportsUnknownKeysAndFailedChecks(t *testing.T) {
	dir := t.TempDir()
	configPath := testsupport.ConfigFile(t, dir, map[string]string{
		"disks":       "/dev/sda",
		"interval":    "30",
		"mintemp":     "35",
		"maxtemp":     "45",
		"minstop":     "0",
		"maxpwm":      "255",
		"fan_address": filepath.Join(dir, "missing-pwm"),
		"hddtemp":     filepath.Join(dir, "missing-hddtemp"),
		"colour":      "blue",
	})

	out, _, err := runCLI(t, []string{"config", "validate", "--skip-checks"}, configPath)
	if err != nil {
		t.Fatalf("config validate --skip-checks: %v", err)
	}
	if !strings.Contains(out, `unknown key "colour"`) {
		t.Fatalf("expected unknown key warning, got %q", out)
	}

	_, _, err = runCLI(t, []string{"config", "validate"}, configPath)
	if err == nil || !strings.Contains(err.Error(), "readiness check") {
		t.Fatalf("expected failed readiness checks, got %v", err)
	}
}

func TestConfigValidateRejectsInvalidValues(t *testing.T) {
	dir := t.TempDir()
	configPath := testsupport.ConfigFile(t, dir, map[string]string{
		"disks":       "/dev/sda",
		"interval":    "soon",
		"mintemp":     "35",
		"maxtemp":     "45",
		"minstop":     "0",
		"maxpwm":      "255",
		"fan_address": "hwmon/hwmon2/pwm1",
	})

	_, _, err := runCLI(t, []string{"config", "validate"}, configPath)
	if !errors.Is(err, faults.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

// chdir changes the working directory for the duration of the test,
// restoring the previous one on cleanup (equivalent to testing.T.Chdir).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir %s: %v", dir, err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatalf("restore cwd %s: %v", old, err)
		}
	})
}
