package session

import (
	"github.com/posekit/posecam/pkg/export"
)

// RecordingStatus describes the active recording, if any.
type RecordingStatus struct {
	Path        string `json:"path"`
	Frames      int    `json:"frames"`
	WriteFailed bool   `json:"write_failed"`
}

// Status is a non-mutating snapshot of the session for the status
// endpoint. Failures are never swallowed: the last fatal session error and
// the last export outcome are always present here.
type Status struct {
	State             string            `json:"state"`
	CaptureFPS        float64           `json:"capture_fps"`
	LastSeq           uint64            `json:"last_seq"`
	FramesDropped     uint64            `json:"frames_dropped"`
	InferenceFailures uint64            `json:"inference_failures"`
	Annotator         string            `json:"annotator,omitempty"`
	Recording         *RecordingStatus  `json:"recording,omitempty"`
	ExportInFlight    bool              `json:"export_in_flight"`
	LastExport        *export.JobStatus `json:"last_export,omitempty"`
	LastError         string            `json:"last_error,omitempty"`
}

// Status returns the current session snapshot. Safe to call from any
// goroutine in any state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	st := Status{
		State:             c.state.String(),
		LastSeq:           c.lastSeq.Load(),
		FramesDropped:     c.dropped.Load(),
		InferenceFailures: c.inferFailures.Load(),
	}
	if c.annotator != nil {
		st.Annotator = c.annotator.Name()
	}
	if c.lastErr != nil {
		st.LastError = c.lastErr.Error()
	}
	c.mu.Unlock()

	c.statsMu.Lock()
	st.CaptureFPS = c.fps
	c.statsMu.Unlock()

	if job := c.recorder.Job(); job != nil {
		st.Recording = &RecordingStatus{
			Path:        job.Path,
			Frames:      job.Frames(),
			WriteFailed: job.WriteFailed(),
		}
	}

	st.ExportInFlight = c.exporter.InFlight()
	st.LastExport = c.exporter.LastStatus()
	return st
}
