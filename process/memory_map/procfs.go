//go:build linux || freebsd

package memory_map

import (
	"errors"
	"io/fs"
	"os"

	"golang.org/x/sys/unix"
)

// readProcfsMaps reads a whole procfs listing in one go and parses it. A process
// that exits between open and read yields an empty listing, not an error.
func readProcfsMaps(pid Pid, path string, dialect Dialect) ([]MemoryMapItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, newMapsError("read "+path, pid, classifyProcfsError(err), err)
	}

	memoryMap, err := ParseMaps(data, dialect)
	if err != nil {
		return nil, newMapsError("parse "+path, pid, ErrMalformedData, err)
	}

	log.Debugln("read", len(memoryMap), "regions from", path)

	return memoryMap, nil
}

func classifyProcfsError(err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, unix.ESRCH):
		return ErrNotFound
	case errors.Is(err, fs.ErrPermission):
		return ErrAccessDenied
	}
	return ErrIO
}
