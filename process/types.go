package process

import (
	"procmaps/process/memory_map"
)

// ProcessID represents a unique identifier for a process
type ProcessID = memory_map.Pid

// ProcessInfo contains basic information about a process
type ProcessInfo struct {
	PID     ProcessID    `json:"pid"`     // Process ID
	PPID    ProcessID    `json:"ppid"`    // Parent Process ID
	Name    string       `json:"name"`    // Process name
	Exe     string       `json:"exe"`     // Path to the executable, empty when it cannot be read
	Cmdline []string     `json:"cmdline"` // Command line arguments
	State   ProcessState `json:"state"`   // Process state (R, S, D, Z, etc.), empty when unknown
	User    string       `json:"user"`    // User running the process
	Threads int          `json:"threads"` // Number of threads
	Memory  uint64       `json:"memory"`  // Resident Set Size (memory usage in bytes)
}

// ProcessTreeNode represents a node in a process tree
type ProcessTreeNode struct {
	Process  ProcessInfo        `json:"process"`
	Children []*ProcessTreeNode `json:"children,omitempty"`
}
