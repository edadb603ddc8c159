//go:build !windows

package debug

import (
	"errors"

	"github.com/shirou/gopsutil/v3/process"
)

func residentSet(proc *process.Process) (uint64, error) {
	if proc == nil {
		return 0, errors.New("no process handle")
	}
	mi, err := proc.MemoryInfo()
	if err != nil {
		return 0, err
	}
	return mi.RSS, nil
}
