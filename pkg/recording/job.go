// Package recording persists captured frames to disk while streaming
// continues.
package recording

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Job is the on-disk video artifact and its metadata for one recording
// interval. Created by Begin, finalized by Finalize; ownership passes to
// the export stage once finalized.
type Job struct {
	ID        uuid.UUID
	Path      string
	StartedAt time.Time
	TargetFPS float64

	mu         sync.Mutex
	frames     int
	firstSeq   uint64
	lastSeq    uint64
	finishedAt time.Time
	writeErr   error
}

func newJob(path string, targetFPS float64) *Job {
	return &Job{
		ID:        uuid.New(),
		Path:      path,
		StartedAt: time.Now(),
		TargetFPS: targetFPS,
	}
}

// Frames returns the number of frames written so far.
func (j *Job) Frames() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.frames
}

// SeqRange returns the first and last capture sequence numbers written.
func (j *Job) SeqRange() (first, last uint64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.firstSeq, j.lastSeq
}

// WriteFailed reports whether any frame write failed during the recording.
func (j *Job) WriteFailed() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.writeErr != nil
}

// WriteErr returns the first write error, or nil.
func (j *Job) WriteErr() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.writeErr
}

// ActualFPS estimates the achieved capture rate over the recording window.
// Zero until finalized or when the window is too short to measure.
func (j *Job) ActualFPS() float64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.finishedAt.IsZero() || j.frames < 2 {
		return 0
	}
	secs := j.finishedAt.Sub(j.StartedAt).Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(j.frames) / secs
}

func (j *Job) recordWrite(seq uint64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.frames == 0 {
		j.firstSeq = seq
	}
	j.lastSeq = seq
	j.frames++
}

func (j *Job) recordError(err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.writeErr == nil {
		j.writeErr = err
	}
}

func (j *Job) finish() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.finishedAt = time.Now()
}
