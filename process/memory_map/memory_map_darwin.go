//go:build darwin && cgo

package memory_map

/*
#include <stdint.h>
#include <mach/mach.h>
#include <mach/mach_error.h>
#include <mach/mach_traps.h>
#include <mach/mach_vm.h>
#include <libproc.h>

typedef struct {
	mach_vm_address_t address;
	mach_vm_size_t size;
	uint64_t offset;
	int protection;
	int share_mode;
	int is_submap;
	natural_t depth;
} region_t;

static kern_return_t open_task(int pid, mach_port_t *task) {
	return task_for_pid(mach_task_self(), pid, task);
}

static void close_task(mach_port_t task) {
	mach_port_deallocate(mach_task_self(), task);
}

// next_region fills r with the region at or after r->address, at most r->depth
// submaps deep. r->depth is updated to the depth actually returned.
static kern_return_t next_region(mach_port_t task, region_t *r) {
	vm_region_submap_info_data_64_t info;
	mach_msg_type_number_t count = VM_REGION_SUBMAP_INFO_COUNT_64;
	mach_vm_address_t address = r->address;
	mach_vm_size_t size = 0;
	natural_t depth = r->depth;

	kern_return_t kr = mach_vm_region_recurse(task, &address, &size, &depth,
		(vm_region_recurse_info_t)&info, &count);
	if (kr != KERN_SUCCESS) {
		return kr;
	}

	r->address = address;
	r->size = size;
	r->depth = depth;
	r->offset = info.offset;
	r->protection = info.protection;
	r->share_mode = info.share_mode;
	r->is_submap = info.is_submap;
	return KERN_SUCCESS;
}

static const char *kern_return_string(kern_return_t kr) {
	return mach_error_string(kr);
}

static int region_filename(int pid, uint64_t address, char *buf, uint32_t size) {
	return proc_regionfilename(pid, address, buf, size);
}
*/
import "C"

import (
	"errors"
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// DarwinMemoryMap implements MemoryMap for macOS using task_for_pid and
// mach_vm_region_recurse. Inspecting any process other than our own requires root,
// and SIP protected processes (anything in /usr/bin for example) stay off limits.
type DarwinMemoryMap struct{}

// NewDarwinMemoryMap creates a new DarwinMemoryMap instance
func NewDarwinMemoryMap() *DarwinMemoryMap {
	return &DarwinMemoryMap{}
}

func newPlatformMemoryMap() MemoryMap {
	return NewDarwinMemoryMap()
}

// ReadMemoryMap walks the address space of pid one region at a time
func (d *DarwinMemoryMap) ReadMemoryMap(pid Pid) ([]MemoryMapItem, error) {
	if err := processExists(pid); err != nil {
		return nil, err
	}

	var task C.mach_port_t
	if kr := C.open_task(C.int(pid), &task); kr != C.KERN_SUCCESS {
		// the process may have exited since we checked
		if err := processExists(pid); err != nil {
			return nil, err
		}
		return nil, newMapsError("task_for_pid", pid, ErrAccessDenied, kernError(kr))
	}
	defer C.close_task(task)

	memoryMap := []MemoryMapItem{}
	region := C.region_t{}
	for {
		kr := C.next_region(task, &region)
		if kr == C.KERN_INVALID_ADDRESS {
			break
		}
		if kr != C.KERN_SUCCESS {
			return nil, newMapsError("mach_vm_region_recurse", pid, ErrIO, kernError(kr))
		}

		if region.is_submap != 0 {
			region.depth++
			continue
		}

		start := uint64(region.address)
		size := uint64(region.size)
		memoryMap = append(memoryMap, MemoryMapItem{
			Address:  start,
			Size:     size,
			Perms:    darwinPermissions(int(region.protection), int(region.share_mode)),
			Offset:   uint64(region.offset),
			Filename: regionFilename(pid, start),
		})

		next := start + size
		if next <= start {
			break
		}
		region.address = C.mach_vm_address_t(next)
	}

	if err := Validate(memoryMap); err != nil {
		return nil, newMapsError("mach_vm_region_recurse", pid, ErrMalformedData, err)
	}

	log.Debugln("read", len(memoryMap), "regions from task of pid", pid)

	return memoryMap, nil
}

// regionFilename is best effort: anonymous memory, or a lookup the kernel refuses,
// simply has no filename.
func regionFilename(pid Pid, address uint64) string {
	buf := make([]byte, procPidPathInfoMaxSize)
	n := C.region_filename(C.int(pid), C.uint64_t(address), (*C.char)(unsafe.Pointer(&buf[0])), C.uint32_t(len(buf)))
	if n <= 0 {
		return ""
	}
	return string(buf[:n])
}

func processExists(pid Pid) error {
	// kill(2) treats 0 and negative pids as process groups
	if pid <= 0 {
		return newMapsError("kill", pid, ErrNotFound, nil)
	}

	err := unix.Kill(int(pid), 0)
	switch {
	case errors.Is(err, unix.ESRCH):
		return newMapsError("kill", pid, ErrNotFound, err)
	case err != nil && !errors.Is(err, unix.EPERM):
		return newMapsError("kill", pid, ErrIO, err)
	}
	return nil
}

func kernError(kr C.kern_return_t) error {
	return fmt.Errorf("%s (kern_return_t %d)", C.GoString(C.kern_return_string(kr)), int(kr))
}

const procPidPathInfoMaxSize = 4 * 1024 // PROC_PIDPATHINFO_MAXSIZE
