package session

import "fmt"

// State is the session's position in the FIX 4.4 connection lifecycle.
type State uint

const (
	Disconnected State = iota
	Connecting
	LogonSent
	LoggedIn
	Resending
	LogoutSent
	Errored
)

// String returns a name.
func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case LogonSent:
		return "logon-sent"
	case LoggedIn:
		return "logged-in"
	case Resending:
		return "resending"
	case LogoutSent:
		return "logout-sent"
	case Errored:
		return "errored"
	default:
		return fmt.Sprintf("state%+d", uint(s))
	}
}
