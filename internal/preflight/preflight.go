package preflight

import (
	"strings"

	"hddfand/internal/config"
	"hddfand/internal/deps"
	"hddfand/internal/pwm"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every check applicable to cfg. Optional features are only
// checked when enabled.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	results = append(results, CheckSensor(cfg.Sensor.Binary))
	for _, disk := range cfg.Sensor.Disks {
		results = append(results, CheckDevice(disk))
	}
	results = append(results, CheckFanControl(cfg.Fan.Address))
	results = append(results, CheckWritableParent("Lock directory", cfg.Daemon.PIDFile))

	if strings.TrimSpace(cfg.Daemon.Journal) != "" {
		results = append(results, CheckWritableParent("Journal directory", cfg.Daemon.Journal))
	}
	if strings.TrimSpace(cfg.Logging.File) != "" {
		results = append(results, CheckWritableParent("Log directory", cfg.Logging.File))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

// CheckSensor verifies the hddtemp binary can be resolved.
func CheckSensor(command string) Result {
	status := deps.CheckBinaries([]deps.Requirement{deps.SensorRequirement(command)})[0]
	if !status.Available {
		return Result{Name: "Sensor", Detail: status.Detail}
	}
	return Result{Name: "Sensor", Passed: true, Detail: status.Path}
}

// CheckFanControl verifies the PWM control file exists.
func CheckFanControl(address string) Result {
	writer := pwm.NewWriter(address)
	if err := writer.Check(); err != nil {
		return Result{Name: "Fan control", Detail: err.Error()}
	}
	return Result{Name: "Fan control", Passed: true, Detail: writer.Path()}
}
