//go:build linux

package workerpool

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"
)

// pinToCPU locks the calling goroutine to its OS thread and restricts that thread
// to cpu. restore puts back the previous mask and unlocks the thread.
func pinToCPU(cpu int) (restore func(), err error) {
	if cpu >= runtime.NumCPU() {
		return nil, fmt.Errorf("cpu %d out of range (have %d)", cpu, runtime.NumCPU())
	}

	runtime.LockOSThread()

	var prev unix.CPUSet
	if err := unix.SchedGetaffinity(0, &prev); err != nil {
		runtime.UnlockOSThread()
		return nil, fmt.Errorf("reading affinity: %w", err)
	}

	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		runtime.UnlockOSThread()
		return nil, fmt.Errorf("setting affinity to cpu %d: %w", cpu, err)
	}

	return func() {
		// If the old mask cannot be restored the thread must not go back to the scheduler.
		if err := unix.SchedSetaffinity(0, &prev); err != nil {
			return
		}
		runtime.UnlockOSThread()
	}, nil
}
