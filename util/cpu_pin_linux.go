//go:build linux

package util

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// PinTo restricts the calling thread to cpus. Callers pinning the reactor
// goroutine must lock it to its thread first with runtime.LockOSThread.
func PinTo(cpus ...int) error {
	if len(cpus) == 0 {
		return fmt.Errorf("no cpu to pin to")
	}

	set := &unix.CPUSet{}
	for _, cpu := range cpus {
		set.Set(cpu)
	}

	if err := unix.SchedSetaffinity(0, set); err != nil {
		return err
	}

	verify := &unix.CPUSet{}
	if err := unix.SchedGetaffinity(0, verify); err != nil {
		return err
	}

	if verify.Count() != set.Count() {
		return fmt.Errorf("could not pin to CPUs %v", cpus)
	}
	for _, cpu := range cpus {
		if !verify.IsSet(cpu) {
			return fmt.Errorf("could not pin to CPUs %v", cpus)
		}
	}

	return nil
}

// AllowedCPUs returns the cpus the calling thread may run on.
func AllowedCPUs() ([]int, error) {
	set := &unix.CPUSet{}
	if err := unix.SchedGetaffinity(0, set); err != nil {
		return nil, err
	}

	var cpus []int
	for cpu := 0; cpu < len(set)*64; cpu++ {
		if set.IsSet(cpu) {
			cpus = append(cpus, cpu)
		}
	}
	return cpus, nil
}
