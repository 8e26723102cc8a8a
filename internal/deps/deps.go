// Package deps reports on the external programs hddfand shells out to.
package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// DefaultSensorCommand is the sensor program looked up on PATH when none is
// configured.
const DefaultSensorCommand = "hddtemp"

// Requirement defines an external program hddfand relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a requirement.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	// Path is the resolved executable when Available is set.
	Path   string
	Detail string
}

// SensorRequirement describes the temperature reader for the configured
// command.
func SensorRequirement(command string) Requirement {
	command = strings.TrimSpace(command)
	if command == "" {
		command = DefaultSensorCommand
	}
	return Requirement{
		Name:        "hddtemp",
		Command:     command,
		Description: "Required to sample drive temperatures",
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		resolved, err := exec.LookPath(cmd)
		if err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		status.Path = resolved
		results = append(results, status)
	}
	return results
}

// MissingRequired returns the unavailable, non-optional entries of statuses.
func MissingRequired(statuses []Status) []Status {
	var missing []Status
	for _, status := range statuses {
		if !status.Available && !status.Optional {
			missing = append(missing, status)
		}
	}
	return missing
}
