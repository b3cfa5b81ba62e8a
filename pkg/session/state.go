package session

// State is the session lifecycle state. Exactly one session runs per
// device; Recording is reachable only from Streaming, and Idle only after
// the capture loop has been joined.
type State int

const (
	StateIdle State = iota
	StateStreaming
	StateRecording
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	case StateRecording:
		return "recording"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}
