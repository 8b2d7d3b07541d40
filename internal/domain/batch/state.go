package batch

// State is the lifecycle state of the batch controller for one job.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StatePaused    State = "paused"
	StateStopping  State = "stopping"
	StateStopped   State = "stopped"
	StateCompleted State = "completed"
)

var transitions = map[State][]State{
	StateIdle:      {StateRunning},
	StateRunning:   {StatePaused, StateStopping, StateStopped, StateCompleted},
	StatePaused:    {StateRunning, StateStopping},
	StateStopping:  {StateStopped},
	StateStopped:   {StateRunning},
	StateCompleted: {StateRunning},
}

// CanTransition reports whether the state machine allows moving from s to next.
// Terminal states only lead back to running, which starts a new job.
func (s State) CanTransition(next State) bool {
	for _, candidate := range transitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further work happens for the current job.
func (s State) IsTerminal() bool {
	return s == StateStopped || s == StateCompleted
}

// IsActive reports whether a job is in flight (including paused).
func (s State) IsActive() bool {
	return s == StateRunning || s == StatePaused || s == StateStopping
}

// FileState tracks one file's progress through the batch.
type FileState string

const (
	FilePending   FileState = "pending"
	FileRunning   FileState = "running"
	FileCompleted FileState = "completed"
	FileSkipped   FileState = "skipped"
)

// IsFinal reports whether the file has reached completed or skipped.
func (s FileState) IsFinal() bool {
	return s == FileCompleted || s == FileSkipped
}
