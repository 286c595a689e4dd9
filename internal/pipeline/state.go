package pipeline

// State is the orchestrator's position in the four-phase run. Any phase
// failure moves to the terminal StateFailed; there is no automatic
// rollback of artifacts already written.
type State int

const (
	StateInit State = iota
	StateSnapshot
	StateModes
	StateTrain
	StateAssemble
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateSnapshot:
		return "snapshot"
	case StateModes:
		return "modes"
	case StateTrain:
		return "train"
	case StateAssemble:
		return "assemble"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}
