package session

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is the base error for state machine misuse. All
// transition errors wrap it, so callers can match the whole family with
// errors.Is.
var ErrInvalidTransition = errors.New("invalid session transition")

var (
	// ErrAlreadyActive is returned by Start outside Idle.
	ErrAlreadyActive = fmt.Errorf("%w: session already active", ErrInvalidTransition)

	// ErrNotStreaming is returned by StartRecording outside Streaming.
	ErrNotStreaming = fmt.Errorf("%w: not streaming", ErrInvalidTransition)

	// ErrNotRecording is returned by StopRecording outside Recording.
	ErrNotRecording = fmt.Errorf("%w: not recording", ErrInvalidTransition)

	// ErrNotActive is returned by Stop when the session is already Idle.
	ErrNotActive = fmt.Errorf("%w: session not active", ErrInvalidTransition)
)

// ErrDeviceFailure reports a fatal camera failure: the bounded retry count
// was exhausted and the session aborted to Idle.
var ErrDeviceFailure = errors.New("camera device failure")
