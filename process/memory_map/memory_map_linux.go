//go:build linux

package memory_map

import (
	"fmt"
)

// LinuxMemoryMap implements MemoryMap for Linux and Android
type LinuxMemoryMap struct {
	// ProcRoot is the procfs mount point, "/proc" unless overridden.
	ProcRoot string
}

// NewLinuxMemoryMap creates a new LinuxMemoryMap instance
func NewLinuxMemoryMap() *LinuxMemoryMap {
	return &LinuxMemoryMap{ProcRoot: "/proc"}
}

func newPlatformMemoryMap() MemoryMap {
	return NewLinuxMemoryMap()
}

// ReadMemoryMap reads and parses the memory map for a process from /proc/[pid]/maps
func (l *LinuxMemoryMap) ReadMemoryMap(pid Pid) ([]MemoryMapItem, error) {
	return readProcfsMaps(pid, fmt.Sprintf("%s/%d/maps", l.ProcRoot, pid), DialectLinux)
}
