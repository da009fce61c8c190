package preflight

import (
	"fmt"
	"os/exec"
	"strings"

	"manifestboard/internal/config"
)

// Requirement defines an external binary an instance relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// BinaryStatus reports the availability of a binary.
type BinaryStatus struct {
	Requirement
	Available bool
	Detail    string
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []BinaryStatus {
	results := make([]BinaryStatus, 0, len(requirements))
	for _, req := range requirements {
		req.Command = strings.TrimSpace(req.Command)
		req.Description = strings.TrimSpace(req.Description)
		status := BinaryStatus{Requirement: req}
		switch {
		case req.Command == "":
			status.Detail = "command not configured"
		default:
			path, err := exec.LookPath(req.Command)
			if err != nil {
				status.Detail = fmt.Sprintf("binary %q not found", req.Command)
				break
			}
			status.Available = true
			status.Detail = path
		}
		results = append(results, status)
	}
	return results
}

// CheckSpeech verifies the configured text-to-speech command resolves.
func CheckSpeech(cfg *config.Config) Result {
	const name = "Speech command"
	statuses := CheckBinaries([]Requirement{{
		Name:        name,
		Command:     cfg.Announcements.SpeechCommand,
		Description: "Speaks announcements aloud",
	}})
	status := statuses[0]
	if !status.Available {
		return Result{Name: name, Detail: status.Detail + " (announcements are shown but not spoken)"}
	}
	return Result{Name: name, Passed: true, Detail: status.Detail}
}
