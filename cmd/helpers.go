package cmd

import (
	"fmt"
	"time"

	"github.com/maxkimambo/taskman/internal/taskmanager"
	"github.com/spf13/cobra"
)

// RunConfig describes the synthetic workload of the run command.
type RunConfig struct {
	Tasks       int
	Steps       int
	StepDelay   time.Duration
	FailEvery   int
	CancelAfter time.Duration
	CPU         int
	Inline      bool
	ReportEvery time.Duration
}

func createRunConfig(cmd *cobra.Command) (*RunConfig, error) {
	tasks, _ := cmd.Flags().GetInt("tasks")
	steps, _ := cmd.Flags().GetInt("steps")
	stepDelay, _ := cmd.Flags().GetDuration("step-delay")
	failEvery, _ := cmd.Flags().GetInt("fail-every")
	cancelAfter, _ := cmd.Flags().GetDuration("cancel-after")
	cpu, _ := cmd.Flags().GetInt("cpu")
	inline, _ := cmd.Flags().GetBool("inline")
	reportEvery, _ := cmd.Flags().GetDuration("report-every")

	rc := &RunConfig{
		Tasks:       tasks,
		Steps:       steps,
		StepDelay:   stepDelay,
		FailEvery:   failEvery,
		CancelAfter: cancelAfter,
		CPU:         cpu,
		Inline:      inline,
		ReportEvery: reportEvery,
	}
	if err := rc.validate(); err != nil {
		return nil, err
	}
	return rc, nil
}

func (rc *RunConfig) validate() error {
	if rc.Tasks < 1 {
		return fmt.Errorf("--tasks must be at least 1, got %d", rc.Tasks)
	}
	if rc.Steps < 1 {
		return fmt.Errorf("--steps must be at least 1, got %d", rc.Steps)
	}
	if rc.StepDelay < 0 {
		return fmt.Errorf("--step-delay must not be negative, got %s", rc.StepDelay)
	}
	if rc.FailEvery < 0 {
		return fmt.Errorf("--fail-every must not be negative, got %d", rc.FailEvery)
	}
	if rc.CancelAfter < 0 {
		return fmt.Errorf("--cancel-after must not be negative, got %s", rc.CancelAfter)
	}
	if rc.CPU < taskmanager.NoCPU {
		return fmt.Errorf("--cpu must be %d (no pinning) or a CPU index, got %d", taskmanager.NoCPU, rc.CPU)
	}
	if rc.Inline && rc.CPU != taskmanager.NoCPU {
		return fmt.Errorf("--cpu cannot be combined with --inline")
	}
	return nil
}

// shouldFail reports whether the i-th task (1-based) is one of the failing ones.
func (rc *RunConfig) shouldFail(i int) bool {
	return rc.FailEvery > 0 && i%rc.FailEvery == 0
}
