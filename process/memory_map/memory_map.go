package memory_map

import (
	"fmt"
	"sort"

	"github.com/dustin/go-humanize"
)

// Pid identifies the target process. Backends convert it to the platform width
// (pid_t, DWORD) at the syscall boundary.
type Pid int

// MemoryMapItem represents a memory region in a process's address space
type MemoryMapItem struct {
	Address  uint64      `json:"address"`  // The starting address of the memory region
	Size     uint64      `json:"size"`     // The size of the memory region in bytes
	Perms    Permissions `json:"perms"`    // Read/write/execute and shared/private
	Offset   uint64      `json:"offset"`   // Offset into the backing file, 0 for anonymous memory
	Device   Device      `json:"device"`   // Backing device, zero when unavailable
	Inode    uint64      `json:"inode"`    // Backing inode, 0 when anonymous or unavailable
	Filename string      `json:"filename"` // Path or pseudo-name such as [heap], empty when absent
}

// String returns a string representation of the memory map item
func (mmItem MemoryMapItem) String() string {
	s := fmt.Sprintf("%016x-%016x %s %08x %s %d", mmItem.Address, mmItem.End(), mmItem.Perms, mmItem.Offset, mmItem.Device, mmItem.Inode)
	if mmItem.HasFilename() {
		s += " " + mmItem.Filename
	}
	return s
}

// End is the first address past the region.
func (mmItem MemoryMapItem) End() uint64 {
	return mmItem.Address + mmItem.Size
}

func (mmItem MemoryMapItem) Contains(addr uint64) bool {
	return addr >= mmItem.Address && addr < mmItem.End()
}

func (mmItem MemoryMapItem) HasFilename() bool {
	return mmItem.Filename != ""
}

// HumanSize formats Size in IEC units, e.g. "132 KiB".
func (mmItem MemoryMapItem) HumanSize() string {
	return humanize.IBytes(mmItem.Size)
}

func (mmItem MemoryMapItem) IsReadable() bool {
	return mmItem.Perms.Read
}

func (mmItem MemoryMapItem) IsWritable() bool {
	return mmItem.Perms.Write
}

func (mmItem MemoryMapItem) IsExecutable() bool {
	return mmItem.Perms.Execute
}

func (mmItem MemoryMapItem) IsShared() bool {
	return mmItem.Perms.Shared
}

// MemoryMap is implemented once per operating system; the build selects which.
type MemoryMap interface {
	// ReadMemoryMap takes a point-in-time snapshot of the memory map of pid
	ReadMemoryMap(pid Pid) ([]MemoryMapItem, error)
}

// NewMemoryMap returns the MemoryMap compiled in for the current platform
func NewMemoryMap() MemoryMap {
	return newPlatformMemoryMap()
}

// ReadMemoryMap reads the memory map of pid using the platform backend.
// The result is sorted by address, non-overlapping, and never partial: on error
// the returned slice is nil.
func ReadMemoryMap(pid Pid) ([]MemoryMapItem, error) {
	return newPlatformMemoryMap().ReadMemoryMap(pid)
}

// Helper functions for working with memory maps

// IsValidAddress reports whether any region in memoryMap contains addr.
// memoryMap need not be sorted.
func IsValidAddress(addr uint64, memoryMap []MemoryMapItem) bool {
	for _, item := range memoryMap {
		if item.Contains(addr) {
			return true
		}
	}
	return false
}

// FindSorted is IsValidAddress for a sorted memory map, returning a copy of the
// containing region
func FindSorted(addr uint64, memoryMap []MemoryMapItem) *MemoryMapItem {
	i := sort.Search(len(memoryMap), func(i int) bool {
		return memoryMap[i].End() > addr
	})
	if i < len(memoryMap) && memoryMap[i].Address <= addr {
		item := memoryMap[i]
		return &item
	}

	return nil
}

// GetMemoryRegionForAddress returns the memory region containing an address
func GetMemoryRegionForAddress(addr uint64, memoryMap []MemoryMapItem) *MemoryMapItem {
	for _, item := range memoryMap {
		if item.Contains(addr) {
			return &item
		}
	}
	return nil
}

// Validate checks the ordering invariants every backend result must satisfy:
// ascending start, no overlap, non-zero size.
func Validate(memoryMap []MemoryMapItem) error {
	for i, item := range memoryMap {
		if item.Size == 0 {
			return fmt.Errorf("%w: region %d at 0x%x has zero size", ErrMalformedData, i, item.Address)
		}
		if item.End() < item.Address {
			return fmt.Errorf("%w: region %d at 0x%x wraps the address space", ErrMalformedData, i, item.Address)
		}
		if i > 0 && memoryMap[i-1].End() > item.Address {
			return fmt.Errorf("%w: region %d at 0x%x overlaps 0x%x-0x%x", ErrMalformedData, i, item.Address, memoryMap[i-1].Address, memoryMap[i-1].End())
		}
	}
	return nil
}

func sortMemoryMap(memoryMap []MemoryMapItem) {
	sort.SliceStable(memoryMap, func(i, j int) bool {
		return memoryMap[i].Address < memoryMap[j].Address
	})
}
