package process

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"

	"procmaps/process/memory_map"
)

// Snapshot is the memory map of a process at one point in time, together with
// what could be learned about the process itself.
type Snapshot struct {
	Info      ProcessInfo                `json:"info"`
	MemoryMap []memory_map.MemoryMapItem `json:"memory_map"`
	TakenAt   time.Time                  `json:"taken_at"`
}

// TakeSnapshot reads the memory map of pid. Errors from the memory map backend
// are returned unchanged so callers can classify them with errors.Is.
func TakeSnapshot(pid ProcessID) (*Snapshot, error) {
	return takeSnapshot(pid, memory_map.NewMemoryMap(), NewProcessFinder())
}

func takeSnapshot(pid ProcessID, mm memory_map.MemoryMap, finder ProcessFinder) (*Snapshot, error) {
	log := logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, fmt.Sprintf("process-%d", pid)))

	memoryMap, err := mm.ReadMemoryMap(pid)
	if err != nil {
		return nil, err
	}

	s := &Snapshot{
		Info:      ProcessInfo{PID: pid},
		MemoryMap: memoryMap,
		TakenAt:   time.Now(),
	}

	// The map is authoritative; process details are best effort
	if info, err := finder.FindProcessByPID(pid); err != nil {
		log.Debugln("process details unavailable:", err)
	} else {
		s.Info = *info
	}

	log.Infoln("Snapshot taken,", len(memoryMap), "regions,", s.TotalSize().ToString(), "mapped")
	return s, nil
}

// RegionFor returns a copy of the region containing addr, or nil
func (s *Snapshot) RegionFor(addr ProcessMemoryAddress) *memory_map.MemoryMapItem {
	return memory_map.FindSorted(uint64(addr), s.MemoryMap)
}

// Contains reports whether addr lies in any mapped region
func (s *Snapshot) Contains(addr ProcessMemoryAddress) bool {
	return memory_map.IsValidAddress(uint64(addr), s.MemoryMap)
}

// TotalSize sums the sizes of all regions
func (s *Snapshot) TotalSize() ProcessMemorySize {
	var total ProcessMemorySize
	for _, item := range s.MemoryMap {
		total += ProcessMemorySize(item.Size)
	}
	return total
}

// Executable returns the regions backed by the process executable.
// It is empty when the executable path is unknown.
func (s *Snapshot) Executable() []memory_map.MemoryMapItem {
	if s.Info.Exe == "" {
		return nil
	}

	exe := s.Info.Exe
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}

	var regions []memory_map.MemoryMapItem
	for _, item := range s.MemoryMap {
		if item.Filename == s.Info.Exe || item.Filename == exe {
			regions = append(regions, item)
		}
	}
	return regions
}
