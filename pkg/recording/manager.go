package recording

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/posekit/posecam/internal/log"
	"github.com/posekit/posecam/internal/metrics"
	"github.com/posekit/posecam/pkg/frame"
)

// ErrActive is returned by Begin while a recording is already open.
var ErrActive = errors.New("recording already active")

// ErrNotActive is returned by Finalize with no open recording.
var ErrNotActive = errors.New("no active recording")

// FrameWriter appends JPEG frames to a video container.
type FrameWriter interface {
	// Write appends one frame. Frames arrive in strict capture order.
	Write(jpeg []byte) error

	// Close flushes and finalizes the container.
	Close() error
}

// WriterFactory opens a FrameWriter once the first frame fixes the
// dimensions of the recording.
type WriterFactory func(path string, fps float64, width, height int) (FrameWriter, error)

// Manager owns the video file handle for the duration of a recording and
// appends frames in strict capture order. The capture loop calls Append on
// every tick; Append is a no-op when no recording is open, so starting a
// recording takes effect on the very next tick with no frames lost.
//
// A write failure flips the job's error flag and writing continues
// best-effort; streaming is never aborted by recording problems.
type Manager struct {
	openWriter WriterFactory

	// mu serializes Begin/Finalize (HTTP goroutines) against Append
	// (capture loop). The file handle never leaves this struct.
	mu      sync.Mutex
	writer  FrameWriter
	sidecar *os.File
	job     *Job
	lastSeq uint64
}

// NewManager returns a Manager that opens writers with openWriter.
func NewManager(openWriter WriterFactory) *Manager {
	return &Manager{openWriter: openWriter}
}

// Begin opens a new recording job bound to path. The video writer itself is
// opened lazily on the first frame, when dimensions are known.
func (m *Manager) Begin(path string, targetFPS float64) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.job != nil {
		return nil, ErrActive
	}

	sidecar, err := os.Create(path + ".index.jsonl")
	if err != nil {
		return nil, fmt.Errorf("create timestamp index: %w", err)
	}

	m.job = newJob(path, targetFPS)
	m.sidecar = sidecar
	m.lastSeq = 0
	log.Info("recording started", "path", path, "job_id", m.job.ID.String(), "target_fps", targetFPS)
	return m.job, nil
}

// Active reports whether a recording is open.
func (m *Manager) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.job != nil
}

// Job returns the open job, or nil.
func (m *Manager) Job() *Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.job
}

// indexLine is one sidecar entry tagging a frame with its capture
// timestamp, for later frame-rate analysis.
type indexLine struct {
	Seq       uint64 `json:"seq"`
	Timestamp int64  `json:"ts_unix_nano"`
}

// Append writes one captured frame. No-op when no recording is open.
// Frames with a sequence number at or below the last written one are
// rejected: the file order must be exactly the capture order, with no
// duplicates and no reordering.
func (m *Manager) Append(f *frame.Frame) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.job == nil {
		return
	}
	if m.lastSeq != 0 && f.Seq <= m.lastSeq {
		return
	}

	if m.writer == nil {
		w, err := m.openWriter(m.job.Path, m.job.TargetFPS, f.Width, f.Height)
		if err != nil {
			m.failWrite(fmt.Errorf("open video writer: %w", err))
			return
		}
		m.writer = w
	}

	if err := m.writer.Write(f.Data); err != nil {
		m.failWrite(fmt.Errorf("write frame %d: %w", f.Seq, err))
		return
	}

	m.lastSeq = f.Seq
	m.job.recordWrite(f.Seq)

	line, err := json.Marshal(indexLine{Seq: f.Seq, Timestamp: f.Timestamp.UnixNano()})
	if err == nil {
		_, err = m.sidecar.Write(append(line, '\n'))
	}
	if err != nil {
		m.failWrite(fmt.Errorf("write timestamp index for frame %d: %w", f.Seq, err))
	}
}

func (m *Manager) failWrite(err error) {
	m.job.recordError(err)
	metrics.RecordingWriteFailures.Inc()
	log.Warn("recording write failed, continuing best-effort", "error", err)
}

// Finalize flushes and closes the recording and returns the finished job.
// The job's write-error flag, if set, travels with it.
func (m *Manager) Finalize() (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.job == nil {
		return nil, ErrNotActive
	}

	job := m.job
	if m.writer != nil {
		if err := m.writer.Close(); err != nil {
			job.recordError(fmt.Errorf("close video writer: %w", err))
		}
	}
	m.sidecar.Close()
	job.finish()

	m.job = nil
	m.writer = nil
	m.sidecar = nil
	m.lastSeq = 0

	first, last := job.SeqRange()
	log.Info("recording finalized",
		"path", job.Path,
		"job_id", job.ID.String(),
		"frames", job.Frames(),
		"seq_first", first,
		"seq_last", last,
		"write_failed", job.WriteFailed(),
	)
	return job, nil
}
