package scheduler

// Phase is the state of a run.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseResolving
	PhaseGrouping
	PhaseAcquiring
	PhaseRunning
	PhaseReleasing
	PhaseDone
	PhaseFailed
)

var phaseNames = [...]string{
	PhaseIdle:      "idle",
	PhaseResolving: "resolving",
	PhaseGrouping:  "grouping",
	PhaseAcquiring: "acquiring",
	PhaseRunning:   "running",
	PhaseReleasing: "releasing",
	PhaseDone:      "done",
	PhaseFailed:    "failed",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}
