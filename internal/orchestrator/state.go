package orchestrator

import "fmt"

// State is the session lifecycle stage.
type State int

const (
	Idle State = iota
	Recording
	Stopping
	Draining
	Summarizing
	Done
	SummarizeFailed
	Interrupted
)

var stateNames = [...]string{
	Idle:            "IDLE",
	Recording:       "RECORDING",
	Stopping:        "STOPPING",
	Draining:        "DRAINING",
	Summarizing:     "SUMMARIZING",
	Done:            "DONE",
	SummarizeFailed: "SUMMARIZE_FAILED",
	Interrupted:     "INTERRUPTED",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "UNKNOWN"
	}
	return stateNames[s]
}

// Terminal reports whether no further transitions follow.
func (s State) Terminal() bool {
	return s == Done || s == SummarizeFailed || s == Interrupted
}

// MarshalText renders the state name in JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name as rendered by MarshalText.
func (s *State) UnmarshalText(b []byte) error {
	for i, name := range stateNames {
		if name == string(b) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown session state %q", b)
}
