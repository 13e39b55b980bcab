package operations

// State is a stage of an analysis run
type State string

const (
	StateIdle             State = "idle"
	StateScanning         State = "scanning"
	StateIngesting        State = "ingesting"
	StateCleaning         State = "cleaning"
	StateComputingReturns State = "computing_returns"
	StateNarrating        State = "narrating"
	StateComposing        State = "composing"
	StateDone             State = "done"
	StateFailed           State = "failed"
	StateCancelled        State = "cancelled"
)

var statePercent = map[State]int{
	StateIdle:             0,
	StateScanning:         10,
	StateIngesting:        30,
	StateCleaning:         50,
	StateComputingReturns: 70,
	StateNarrating:        80,
	StateComposing:        90,
	StateDone:             100,
}

// Percent is the progress reported on entering s. Terminal failure states
// have no percentage of their own and report -1.
func (s State) Percent() int {
	if p, ok := statePercent[s]; ok {
		return p
	}
	return -1
}

// IsTerminal reports whether no further transition can follow s
func (s State) IsTerminal() bool {
	return s == StateDone || s == StateFailed || s == StateCancelled
}

// String implements fmt.Stringer
func (s State) String() string {
	return string(s)
}
