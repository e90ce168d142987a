//go:build !linux

package util

import "errors"

var errNoAffinity = errors.New("cpu affinity is not supported on this platform")

func PinTo(cpus ...int) error {
	return errNoAffinity
}

func AllowedCPUs() ([]int, error) {
	return nil, errNoAffinity
}
