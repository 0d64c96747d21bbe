package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	taskerrors "github.com/maxkimambo/taskman/internal/errors"
	"github.com/maxkimambo/taskman/internal/logger"
	"github.com/maxkimambo/taskman/internal/progress"
	"github.com/maxkimambo/taskman/internal/taskmanager"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a synthetic workload through the task manager",
	Long: `Starts a number of synthetic tasks that advance step by step, reporting progress
as they go. Tasks can be made to fail, pinned to a CPU or cancelled after a delay.
Interrupting the command (Ctrl-C) cancels every running task.

Example:
taskman run --tasks 20 --steps 50 --step-delay 20ms
taskman run --tasks 8 --fail-every 3 --cancel-after 2s --cpu 0
taskman run --tasks 3 --inline
`,
	RunE: runWorkload,
}

func init() {
	runCmd.Flags().Int("tasks", 10, "Number of tasks to start")
	runCmd.Flags().Int("steps", 20, "Steps each task performs")
	runCmd.Flags().Duration("step-delay", 50*time.Millisecond, "Time each step takes")
	runCmd.Flags().Int("fail-every", 0, "Make every n-th task fail halfway (0 disables)")
	runCmd.Flags().Duration("cancel-after", 0, "Cancel all tasks after this long (0 disables)")
	runCmd.Flags().Int("cpu", taskmanager.NoCPU, "Pin tasks to this CPU index (-1 disables pinning)")
	runCmd.Flags().Bool("inline", false, "Run tasks one by one on the calling goroutine")
	runCmd.Flags().Duration("report-every", 2*time.Second, "Interval between progress reports")
}

func runWorkload(cmd *cobra.Command, args []string) error {
	rc, err := createRunConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return executeRun(ctx, rc)
}

func executeRun(ctx context.Context, rc *RunConfig) error {
	// Every task is submitted up front, so the queue must hold all of them.
	poolCfg := cfg.WorkerPool()
	if poolCfg.QueueSize < rc.Tasks {
		poolCfg.QueueSize = rc.Tasks
	}
	m := taskmanager.NewManager(append(cfg.ManagerOptions(), taskmanager.WithPoolConfig(poolCfg))...)
	defer func() {
		if err := m.Close(); err != nil {
			logger.Op.WithFields(map[string]interface{}{"error": err.Error()}).Warn("Worker pool did not drain")
		}
	}()

	reporter := progress.NewReporter(rc.Tasks, rc.ReportEvery)
	m.Subscribe(reporter)
	terminals := taskmanager.Only(taskmanager.NewObserver(announce), taskmanager.EventFinished, taskmanager.EventFailed, taskmanager.EventCancelled)
	m.Subscribe(terminals)
	defer m.Unsubscribe(terminals)

	logger.User.Startedf("Running %d tasks (%d steps, %s per step)", rc.Tasks, rc.Steps, rc.StepDelay)

	if rc.CancelAfter > 0 {
		timer := time.AfterFunc(rc.CancelAfter, func() {
			logger.User.Warnf("Cancelling %d tasks after %s", m.Count(), rc.CancelAfter)
			m.CancelAll()
		})
		defer timer.Stop()
	}

	done := make(chan struct{})
	go watch(ctx, m, reporter, done)

	for i := 1; i <= rc.Tasks; i++ {
		if ctx.Err() != nil {
			break
		}
		task := taskmanager.NewTaskFunc(fmt.Sprintf("task-%03d", i), syntheticBody(rc, rc.shouldFail(i)))
		var err error
		if rc.Inline {
			err = m.StartInline(task)
		} else {
			err = m.Start(task, rc.CPU)
		}
		if err != nil {
			close(done)
			m.CancelAll()
			m.JoinAllTasks()
			return err
		}
	}

	m.JoinAllTasks()
	close(done)

	summary := reporter.Summary()
	logger.User.Info(progress.TaskTable(summary).String())
	logger.User.Info(progress.SummaryBox(summary))
	return summarize(reporter)
}

// watch prints periodic reports and cancels everything when ctx ends.
func watch(ctx context.Context, m *taskmanager.Manager, reporter *progress.Reporter, done <-chan struct{}) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			logger.User.Warnf("Interrupted, cancelling %d tasks", m.Count())
			m.CancelAll()
			return
		case <-ticker.C:
			if reporter.ShouldReport() {
				logger.User.Info(reporter.Report())
			}
		}
	}
}

func announce(e taskmanager.Event) {
	switch e.Kind {
	case taskmanager.EventFinished:
		logger.User.Successf("%s finished", e.TaskName)
	case taskmanager.EventFailed:
		logger.User.Errorf("%s failed: %v", e.TaskName, e.Err)
	case taskmanager.EventCancelled:
		logger.User.Cancelledf("%s cancelled", e.TaskName)
	}
}

// syntheticBody advances through rc.Steps steps. A failing body stops halfway.
func syntheticBody(rc *RunConfig, fail bool) func(t *taskmanager.Task) error {
	failAt := rc.Steps/2 + 1
	return func(t *taskmanager.Task) error {
		for step := 1; step <= rc.Steps; step++ {
			if t.Sleep(rc.StepDelay) {
				return taskmanager.ErrCancelled
			}
			if fail && step == failAt {
				return fmt.Errorf("synthetic failure at step %d of %d", step, rc.Steps)
			}
			t.SetProgress(float64(step) / float64(rc.Steps))
		}
		return nil
	}
}

func summarize(reporter *progress.Reporter) error {
	s := reporter.Summary()
	logger.Op.WithFields(map[string]interface{}{
		"completed": s.CompletedTasks,
		"failed":    s.FailedTasks,
		"cancelled": s.CancelledTasks,
		"progress":  s.Events[taskmanager.EventProgress],
		"elapsed":   s.ElapsedTime.Round(time.Millisecond).String(),
	}).Info("Run finished")

	failures := reporter.Failures()
	if len(failures) == 0 {
		return nil
	}
	return taskerrors.NewTaskError(taskerrors.ErrorCategoryTaskFailure, "run",
		fmt.Sprintf("%d of %d tasks failed", len(failures), s.TotalTasks)).
		ForTask(failures[0].ID, failures[0].Name).
		WithCause(failures[0].Err)
}
