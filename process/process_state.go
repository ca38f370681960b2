package process

// ProcessState represents the state of a process
type ProcessState string

const (
	ProcessRunning  ProcessState = "R" // Running
	ProcessSleeping ProcessState = "S" // Sleeping in an interruptible wait
	ProcessWaiting  ProcessState = "D" // Waiting in uninterruptible disk sleep
	ProcessZombie   ProcessState = "Z" // Zombie
	ProcessStopped  ProcessState = "T" // Stopped (on a signal)
	ProcessPaging   ProcessState = "W" // Paging
	ProcessIdle     ProcessState = "I" // Idle kernel thread
	ProcessLocked   ProcessState = "L" // Waiting to acquire a lock
)

// stateFromStatus maps a gopsutil status name onto a ProcessState
func stateFromStatus(status string) ProcessState {
	switch status {
	case "running":
		return ProcessRunning
	case "sleep":
		return ProcessSleeping
	case "blocked":
		return ProcessWaiting
	case "zombie":
		return ProcessZombie
	case "stop":
		return ProcessStopped
	case "wait":
		return ProcessPaging
	case "idle":
		return ProcessIdle
	case "lock":
		return ProcessLocked
	}
	return ""
}
