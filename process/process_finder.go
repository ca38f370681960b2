package process

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"slices"
	"sort"
	"strings"

	gops "github.com/shirou/gopsutil/v4/process"

	"procmaps/process/memory_map"
)

// ProcessFinder defines operations for discovering processes and their relationships
type ProcessFinder interface {
	// FindProcessByPID finds a process by its PID
	FindProcessByPID(pid ProcessID) (*ProcessInfo, error)

	// FindProcessByName finds processes whose name or executable basename equals name
	FindProcessByName(name string) ([]ProcessInfo, error)

	// FindProcessByNamePattern finds processes whose name matches a regular expression
	FindProcessByNamePattern(pattern string) ([]ProcessInfo, error)

	// FindAllProcesses returns information about all running processes
	FindAllProcesses() ([]ProcessInfo, error)

	// FindProcessByCommandLine finds processes that have a specific argument in their command line
	FindProcessByCommandLine(arg string) ([]ProcessInfo, error)

	// FindProcessByCommandLinePattern finds processes whose space joined command line matches a pattern
	FindProcessByCommandLinePattern(pattern string) ([]ProcessInfo, error)

	// Process hierarchy operations
	ProcessHierarchy
}

// ProcessHierarchy defines operations for working with process relationships
type ProcessHierarchy interface {
	// FindChildProcesses finds all child processes of a given PID
	FindChildProcesses(parentPID ProcessID) ([]ProcessInfo, error)

	// FindDescendantProcesses finds all descendant processes (children, grandchildren, etc.) of a given PID
	FindDescendantProcesses(rootPID ProcessID) ([]ProcessInfo, error)

	// GetProcessTree returns a tree-like representation of processes starting from a root PID
	GetProcessTree(rootPID ProcessID) (*ProcessTreeNode, error)
}

type processFinder struct{}

// NewProcessFinder returns a ProcessFinder that works on every platform gopsutil supports
func NewProcessFinder() ProcessFinder {
	return &processFinder{}
}

// FindProcess finds a process by name and returns the lowest matching PID
func FindProcess(name string) (ProcessID, error) {
	processes, err := NewProcessFinder().FindProcessByName(name)
	if err != nil {
		return 0, err
	}

	if len(processes) == 0 {
		return 0, fmt.Errorf("%w: name '%s'", ErrNoMatch, name)
	}

	return processes[0].PID, nil
}

func (f *processFinder) FindProcessByPID(pid ProcessID) (*ProcessInfo, error) {
	p, err := gops.NewProcess(int32(pid))
	if err != nil {
		if errors.Is(err, gops.ErrorProcessNotRunning) {
			return nil, fmt.Errorf("process with PID %d: %w", pid, memory_map.ErrNotFound)
		}
		return nil, fmt.Errorf("process with PID %d: %w", pid, err)
	}

	return getProcessInfo(p)
}

func (f *processFinder) FindProcessByName(name string) ([]ProcessInfo, error) {
	return findProcesses(func(info *ProcessInfo) bool {
		return info.Name == name || (info.Exe != "" && filepath.Base(info.Exe) == name)
	})
}

func (f *processFinder) FindProcessByNamePattern(pattern string) ([]ProcessInfo, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern: %w", err)
	}

	return findProcesses(func(info *ProcessInfo) bool {
		return re.MatchString(info.Name)
	})
}

func (f *processFinder) FindAllProcesses() ([]ProcessInfo, error) {
	return findProcesses(func(*ProcessInfo) bool { return true })
}

func (f *processFinder) FindProcessByCommandLine(arg string) ([]ProcessInfo, error) {
	return findProcesses(func(info *ProcessInfo) bool {
		return slices.Contains(info.Cmdline, arg)
	})
}

func (f *processFinder) FindProcessByCommandLinePattern(pattern string) ([]ProcessInfo, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern: %w", err)
	}

	return findProcesses(func(info *ProcessInfo) bool {
		return len(info.Cmdline) > 0 && re.MatchString(strings.Join(info.Cmdline, " "))
	})
}

func (f *processFinder) FindChildProcesses(parentPID ProcessID) ([]ProcessInfo, error) {
	children, err := childrenIndex()
	if err != nil {
		return nil, err
	}
	return children[parentPID], nil
}

func (f *processFinder) FindDescendantProcesses(rootPID ProcessID) ([]ProcessInfo, error) {
	children, err := childrenIndex()
	if err != nil {
		return nil, err
	}

	var results []ProcessInfo
	seen := map[ProcessID]bool{rootPID: true}
	queue := []ProcessID{rootPID}
	for len(queue) > 0 {
		pid := queue[0]
		queue = queue[1:]

		for _, child := range children[pid] {
			if seen[child.PID] {
				continue
			}
			seen[child.PID] = true
			results = append(results, child)
			queue = append(queue, child.PID)
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].PID < results[j].PID
	})

	return results, nil
}

func (f *processFinder) GetProcessTree(rootPID ProcessID) (*ProcessTreeNode, error) {
	root, err := f.FindProcessByPID(rootPID)
	if err != nil {
		return nil, err
	}

	children, err := childrenIndex()
	if err != nil {
		return nil, err
	}

	seen := map[ProcessID]bool{}
	var build func(info ProcessInfo) *ProcessTreeNode
	build = func(info ProcessInfo) *ProcessTreeNode {
		seen[info.PID] = true
		node := &ProcessTreeNode{Process: info}
		for _, child := range children[info.PID] {
			// a recycled pid can make the parent links loop
			if seen[child.PID] {
				continue
			}
			node.Children = append(node.Children, build(child))
		}
		return node
	}

	return build(*root), nil
}

// childrenIndex lists all processes once and groups them by parent, each group ordered by PID
func childrenIndex() (map[ProcessID][]ProcessInfo, error) {
	all, err := findProcesses(func(*ProcessInfo) bool { return true })
	if err != nil {
		return nil, err
	}

	children := make(map[ProcessID][]ProcessInfo)
	for _, info := range all {
		if info.PPID == info.PID {
			continue
		}
		children[info.PPID] = append(children[info.PPID], info)
	}
	return children, nil
}

// findProcesses returns the processes accepted by match, ordered by PID
func findProcesses(match func(*ProcessInfo) bool) ([]ProcessInfo, error) {
	procs, err := gops.Processes()
	if err != nil {
		return nil, fmt.Errorf("failed to list processes: %w", err)
	}

	var results []ProcessInfo
	for _, p := range procs {
		info, err := getProcessInfo(p)
		if err != nil {
			// Process may have terminated while we were reading
			continue
		}

		if match(info) {
			results = append(results, *info)
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].PID < results[j].PID
	})

	return results, nil
}

// getProcessInfo collects what it can; only the name is required
func getProcessInfo(p *gops.Process) (*ProcessInfo, error) {
	name, err := p.Name()
	if err != nil {
		return nil, fmt.Errorf("failed to read process name: %w", err)
	}

	info := &ProcessInfo{
		PID:  ProcessID(p.Pid),
		Name: name,
	}

	// Some processes don't have a readable exe (kernel threads, other users)
	if exe, err := p.Exe(); err == nil {
		info.Exe = exe
	}
	if ppid, err := p.Ppid(); err == nil {
		info.PPID = ProcessID(ppid)
	}
	if cmdline, err := p.CmdlineSlice(); err == nil {
		info.Cmdline = cmdline
	}
	if user, err := p.Username(); err == nil {
		info.User = user
	}
	if status, err := p.Status(); err == nil && len(status) > 0 {
		info.State = stateFromStatus(status[0])
	}
	if threads, err := p.NumThreads(); err == nil {
		info.Threads = int(threads)
	}
	if mem, err := p.MemoryInfo(); err == nil && mem != nil {
		info.Memory = mem.RSS
	}

	return info, nil
}
