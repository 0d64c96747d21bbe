//go:build !linux

package workerpool

import "errors"

var errAffinityUnsupported = errors.New("thread affinity not supported on this platform")

func pinToCPU(int) (func(), error) {
	return nil, errAffinityUnsupported
}
