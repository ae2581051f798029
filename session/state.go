package session

import "fmt"

// State is the lifecycle state of a Session.
type State int

const (
	Idle State = iota
	Connecting
	Open
	Closing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case Closing:
		return "closing"
	}
	return fmt.Sprintf("State(%d)", int(s))
}
