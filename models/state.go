package models

// SessionState is the derived, in-memory state of a session controller.
type SessionState int

const (
	StateLoading SessionState = iota
	StateAuthenticated
	StateUnauthenticated
)

func (s SessionState) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// Snapshot is a point-in-time copy of a controller's state.
// Err holds a recoverable error; it never implies logout on its own.
type Snapshot struct {
	State    SessionState
	Identity *Identity
	Err      error
}
