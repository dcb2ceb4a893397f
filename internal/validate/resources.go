package validate

import (
	"fmt"
	"os"

	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
)

// Creating a venv on a nearly-full host fails halfway through in confusing
// ways, so anything above this usage is reported before we start.
const usageThresholdPercent = 95.0

// Probe exposes host resource usage for the preflight check.
type Probe interface {
	VirtualMemoryUsedPercent() (float64, error)
	SwapUsedPercent() (float64, error)
	DiskUsedPercent(path string) (float64, error)
}

// HostProbe is the production Probe backed by gopsutil.
type HostProbe struct{}

func (HostProbe) VirtualMemoryUsedPercent() (float64, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, err
	}
	return vm.UsedPercent, nil
}

func (HostProbe) SwapUsedPercent() (float64, error) {
	sm, err := mem.SwapMemory()
	if err != nil {
		return 0, err
	}
	if sm.Total == 0 {
		return 0, nil
	}
	return sm.UsedPercent, nil
}

func (HostProbe) DiskUsedPercent(path string) (float64, error) {
	du, err := disk.Usage(path)
	if err != nil {
		return 0, err
	}
	return du.UsedPercent, nil
}

// resourceIssues checks memory, swap and the home partition. Probe errors are
// ignored: an unreadable stat must not block project creation.
func resourceIssues(p Probe) []Issue {
	var issues []Issue

	if used, err := p.VirtualMemoryUsedPercent(); err == nil && used > usageThresholdPercent {
		issues = append(issues, Issue{
			Code:    "E_RESOURCE_PRESSURE",
			Message: fmt.Sprintf("memory usage is at %.0f%%", used),
			Hint:    "free some memory (for example by terminating running kernels) before continuing",
		})
	}
	if used, err := p.SwapUsedPercent(); err == nil && used > usageThresholdPercent {
		issues = append(issues, Issue{
			Code:    "E_RESOURCE_PRESSURE",
			Message: fmt.Sprintf("swap usage is at %.0f%%", used),
			Hint:    "free some memory before continuing",
		})
	}
	if home, err := os.UserHomeDir(); err == nil {
		if used, err := p.DiskUsedPercent(home); err == nil && used > usageThresholdPercent {
			issues = append(issues, Issue{
				Code:    "E_RESOURCE_PRESSURE",
				Message: fmt.Sprintf("disk usage for %s is at %.0f%%", home, used),
				Hint:    "free some disk space before creating a new project",
			})
		}
	}
	return issues
}
