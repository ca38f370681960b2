//go:build windows

package memory_map

import (
	"errors"
	"unsafe"

	"golang.org/x/sys/windows"
)

const maxModulePath = 32 * 1024

// WindowsMemoryMap implements MemoryMap for Windows using VirtualQueryEx
type WindowsMemoryMap struct{}

// NewWindowsMemoryMap creates a new WindowsMemoryMap instance
func NewWindowsMemoryMap() *WindowsMemoryMap {
	return &WindowsMemoryMap{}
}

func newPlatformMemoryMap() MemoryMap {
	return NewWindowsMemoryMap()
}

// ReadMemoryMap queries every region from address 0 until VirtualQueryEx runs off
// the end of the address space. Free regions are skipped.
func (w *WindowsMemoryMap) ReadMemoryMap(pid Pid) ([]MemoryMapItem, error) {
	if pid < 0 || uint64(pid) > 0xFFFFFFFF {
		return nil, newMapsError("OpenProcess", pid, ErrNotFound, windows.ERROR_INVALID_PARAMETER)
	}

	handle, err := windows.OpenProcess(windows.PROCESS_QUERY_INFORMATION|windows.PROCESS_VM_READ, false, uint32(pid))
	if err != nil {
		return nil, newMapsError("OpenProcess", pid, classifyWindowsError(err), err)
	}
	defer windows.CloseHandle(handle)

	memoryMap := []MemoryMapItem{}
	var info windows.MemoryBasicInformation
	for addr := uintptr(0); ; {
		err := windows.VirtualQueryEx(handle, addr, &info, unsafe.Sizeof(info))
		if errors.Is(err, windows.ERROR_INVALID_PARAMETER) {
			// past the highest user mode address
			break
		}
		if err != nil {
			return nil, newMapsError("VirtualQueryEx", pid, ErrIO, err)
		}

		if info.State != MEM_FREE {
			item := MemoryMapItem{
				Address: uint64(info.BaseAddress),
				Size:    uint64(info.RegionSize),
				Perms:   windowsPermissions(info.Protect, info.Type),
			}
			if info.Type == MEM_IMAGE {
				item.Filename = moduleFilename(handle, info.AllocationBase)
			}
			memoryMap = append(memoryMap, item)
		}

		next := info.BaseAddress + info.RegionSize
		if next <= addr {
			break
		}
		addr = next
	}

	if err := Validate(memoryMap); err != nil {
		return nil, newMapsError("VirtualQueryEx", pid, ErrMalformedData, err)
	}

	log.Debugln("read", len(memoryMap), "regions from process", pid)

	return memoryMap, nil
}

// moduleFilename resolves the on-disk path of the module loaded at base. Failure
// leaves the region without a filename.
func moduleFilename(handle windows.Handle, base uintptr) string {
	buf := make([]uint16, maxModulePath)
	if err := windows.GetModuleFileNameEx(handle, windows.Handle(base), &buf[0], uint32(len(buf))); err != nil {
		log.Debugln("GetModuleFileNameEx failed for module at", base, ":", err)
		return ""
	}
	return windows.UTF16ToString(buf)
}

func classifyWindowsError(err error) error {
	switch {
	case errors.Is(err, windows.ERROR_ACCESS_DENIED):
		return ErrAccessDenied
	case errors.Is(err, windows.ERROR_INVALID_PARAMETER):
		// OpenProcess reports an unknown pid as an invalid parameter
		return ErrNotFound
	}
	return ErrIO
}
