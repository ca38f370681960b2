//go:build !linux && !freebsd && !darwin && !windows

package memory_map

import (
	"fmt"
	"runtime"
)

type unsupportedMemoryMap struct{}

func newPlatformMemoryMap() MemoryMap {
	return unsupportedMemoryMap{}
}

func (unsupportedMemoryMap) ReadMemoryMap(pid Pid) ([]MemoryMapItem, error) {
	return nil, newMapsError("read", pid, ErrUnsupported, fmt.Errorf("no memory map backend for %s", runtime.GOOS))
}
