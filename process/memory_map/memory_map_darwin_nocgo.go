//go:build darwin && !cgo

package memory_map

import (
	"errors"
)

// DarwinMemoryMap needs cgo for the mach and libproc calls; without it every
// read fails with ErrUnsupported.
type DarwinMemoryMap struct{}

// NewDarwinMemoryMap creates a new DarwinMemoryMap instance
func NewDarwinMemoryMap() *DarwinMemoryMap {
	return &DarwinMemoryMap{}
}

func newPlatformMemoryMap() MemoryMap {
	return NewDarwinMemoryMap()
}

func (d *DarwinMemoryMap) ReadMemoryMap(pid Pid) ([]MemoryMapItem, error) {
	return nil, newMapsError("mach_vm_region_recurse", pid, ErrUnsupported, errors.New("built without cgo"))
}
