//go:build freebsd

package memory_map

import (
	"fmt"
	"os"
)

// FreeBSDMemoryMap implements MemoryMap for FreeBSD using procfs, which must be
// mounted (mount -t procfs proc /proc).
type FreeBSDMemoryMap struct {
	ProcRoot string
}

// NewFreeBSDMemoryMap creates a new FreeBSDMemoryMap instance
func NewFreeBSDMemoryMap() *FreeBSDMemoryMap {
	return &FreeBSDMemoryMap{ProcRoot: "/proc"}
}

func newPlatformMemoryMap() MemoryMap {
	return NewFreeBSDMemoryMap()
}

// ReadMemoryMap reads and parses the memory map for a process from /proc/[pid]/map
func (f *FreeBSDMemoryMap) ReadMemoryMap(pid Pid) ([]MemoryMapItem, error) {
	// Without procfs every pid would look like it does not exist
	if _, err := os.Stat(f.ProcRoot + "/curproc"); err != nil {
		return nil, newMapsError("stat "+f.ProcRoot, pid, ErrUnsupported, fmt.Errorf("procfs not mounted: %w", err))
	}

	return readProcfsMaps(pid, fmt.Sprintf("%s/%d/map", f.ProcRoot, pid), DialectFreeBSD)
}
