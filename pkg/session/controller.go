// Package session coordinates the capture pipeline: one state machine
// drives the camera, inference, delivery, recording, and export stages.
package session

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/posekit/posecam/internal/log"
	"github.com/posekit/posecam/internal/metrics"
	"github.com/posekit/posecam/pkg/camera"
	"github.com/posekit/posecam/pkg/delivery"
	"github.com/posekit/posecam/pkg/export"
	"github.com/posekit/posecam/pkg/frame"
	"github.com/posekit/posecam/pkg/inference"
	"github.com/posekit/posecam/pkg/recording"
)

// Config holds pipeline timing parameters.
type Config struct {
	// CaptureFPS is the capture tick rate. Bounded by the hardware; the
	// ticker only sets the upper bound.
	CaptureFPS float64

	// RecordTargetFPS is stamped on recording jobs for the export stage.
	RecordTargetFPS float64

	// MaxConsecutiveFailures bounds camera read retries before the
	// session aborts.
	MaxConsecutiveFailures int
}

// DefaultConfig returns production defaults (~30 fps nominal).
func DefaultConfig() Config {
	return Config{
		CaptureFPS:             30,
		RecordTargetFPS:        30,
		MaxConsecutiveFailures: 3,
	}
}

// Controller is the session state machine. All transitions are serialized
// by a single mutex; a transition attempted from an invalid state fails
// without side effects.
type Controller struct {
	cam      camera.Source
	base     inference.Annotator
	delivery *delivery.Buffer
	recorder *recording.Manager
	exporter *export.Stage
	cfg      Config

	mu        sync.Mutex
	state     State
	stopCh    chan struct{}
	wg        *sync.WaitGroup
	annotator inference.Annotator
	lastErr   error

	// Per-session counters, reset on Start.
	lastSeq       atomic.Uint64
	dropped       atomic.Uint64
	inferFailures atomic.Uint64

	statsMu  sync.Mutex
	fps      float64
	lastTick time.Time
}

// NewController wires the pipeline stages together. The controller starts
// in Idle; nothing runs until Start.
func NewController(cam camera.Source, base inference.Annotator,
	recorder *recording.Manager, exporter *export.Stage, cfg Config) *Controller {

	if cfg.CaptureFPS <= 0 {
		cfg.CaptureFPS = DefaultConfig().CaptureFPS
	}
	if cfg.RecordTargetFPS <= 0 {
		cfg.RecordTargetFPS = cfg.CaptureFPS
	}
	if cfg.MaxConsecutiveFailures <= 0 {
		cfg.MaxConsecutiveFailures = DefaultConfig().MaxConsecutiveFailures
	}

	return &Controller{
		cam:      cam,
		base:     base,
		delivery: delivery.New(),
		recorder: recorder,
		exporter: exporter,
		cfg:      cfg,
	}
}

// State returns the current session state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start transitions Idle -> Streaming and launches the capture loop.
// annotatorName selects the inference capability for this session; an
// unknown name falls back to the base annotator.
func (c *Controller) Start(annotatorName string) error {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return ErrAlreadyActive
	}
	// Each session gets its own WaitGroup; a racing Start waits only on
	// the previous session's group, never on one a winner is about to
	// Add to.
	prev := c.wg
	c.mu.Unlock()

	// Join goroutines from a session that aborted on device failure.
	if prev != nil {
		prev.Wait()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateIdle {
		return ErrAlreadyActive
	}

	ann, err := inference.Select(annotatorName, c.base)
	if err != nil {
		log.Warn("annotator selection failed, using fallback", "error", err)
	}
	c.annotator = ann

	c.delivery.Reset()
	c.lastSeq.Store(0)
	c.dropped.Store(0)
	c.inferFailures.Store(0)
	c.lastErr = nil
	c.statsMu.Lock()
	c.fps = 0
	c.lastTick = time.Time{}
	c.statsMu.Unlock()

	c.stopCh = make(chan struct{})
	inferCh := make(chan *frame.Frame, 1)

	wg := &sync.WaitGroup{}
	wg.Add(2)
	c.wg = wg
	go c.captureLoop(c.stopCh, inferCh, wg)
	go c.inferenceWorker(inferCh, ann, wg)

	c.state = StateStreaming
	log.Info("session started", "annotator", ann.Name(), "capture_fps", c.cfg.CaptureFPS)
	return nil
}

// Stop transitions Streaming/Recording -> Stopping -> Idle. An active
// recording is stopped first. The capture loop is signaled to exit at the
// next tick boundary and joined before the state becomes Idle.
func (c *Controller) Stop() error {
	c.mu.Lock()
	switch c.state {
	case StateStreaming, StateRecording:
	default:
		c.mu.Unlock()
		return ErrNotActive
	}
	if c.state == StateRecording {
		c.finalizeRecordingLocked()
	}
	c.state = StateStopping
	close(c.stopCh)
	wg := c.wg
	c.mu.Unlock()

	wg.Wait()

	c.mu.Lock()
	c.state = StateIdle
	c.mu.Unlock()
	log.Info("session stopped")
	return nil
}

// StartRecording transitions Streaming -> Recording. The capture loop taps
// the recorder on every tick, so recording takes effect on the next frame
// with none lost in between.
func (c *Controller) StartRecording(path string) (*recording.Job, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateStreaming {
		return nil, ErrNotStreaming
	}

	job, err := c.recorder.Begin(path, c.cfg.RecordTargetFPS)
	if err != nil {
		return nil, err
	}
	c.state = StateRecording
	return job, nil
}

// StopRecording transitions Recording -> Streaming, finalizes the job and
// dispatches it to the export stage. Returns immediately; conversion and
// upload run detached.
func (c *Controller) StopRecording() (*recording.Job, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateRecording {
		return nil, ErrNotRecording
	}

	job := c.finalizeRecordingLocked()
	c.state = StateStreaming
	return job, nil
}

// finalizeRecordingLocked closes the open job and hands it to the export
// stage. Caller holds c.mu.
func (c *Controller) finalizeRecordingLocked() *recording.Job {
	job, err := c.recorder.Finalize()
	if err != nil {
		log.Error("finalize recording", "error", err)
		return nil
	}
	c.exporter.Dispatch(job)
	return job
}

// ExportRecording re-triggers conversion+upload for an existing recording
// file, for jobs whose automatic export failed.
func (c *Controller) ExportRecording(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("recording not found: %w", err)
	}
	go c.exporter.Export(context.Background(), path)
	return nil
}

// LatestFrame returns the most recent annotated frame for the polling
// endpoint, or false before the first frame arrives.
func (c *Controller) LatestFrame() (*frame.Annotated, bool) {
	return c.delivery.Latest()
}

// captureLoop pulls frames at the tick rate, taps the recorder on every
// tick, and offers each frame to the inference worker. When inference is
// still busy with a previous frame the queued one is replaced, never
// queued behind: staleness beats unbounded buffering.
func (c *Controller) captureLoop(stopCh <-chan struct{}, inferCh chan *frame.Frame, wg *sync.WaitGroup) {
	defer wg.Done()
	defer close(inferCh)

	interval := time.Duration(float64(time.Second) / c.cfg.CaptureFPS)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var seq uint64
	failures := 0

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
		}

		data, w, h, err := c.cam.ReadFrame()
		if err != nil {
			failures++
			metrics.DeviceFailures.Inc()
			log.Warn("camera read failed", "consecutive", failures, "error", err)
			if failures >= c.cfg.MaxConsecutiveFailures {
				c.abort(fmt.Errorf("%w: %d consecutive read failures: %v",
					ErrDeviceFailure, failures, err))
				return
			}
			continue
		}
		failures = 0

		seq++
		f := &frame.Frame{
			Seq:       seq,
			Timestamp: time.Now(),
			Data:      data,
			Width:     w,
			Height:    h,
		}
		c.lastSeq.Store(seq)
		metrics.FramesCaptured.Inc()

		// Recording taps the raw capture tick, independent of inference
		// latency: the file order is exactly the capture order even when
		// delivery drops frames.
		c.recorder.Append(f)

		// Most-recent-wins hand-off to the inference worker.
		select {
		case inferCh <- f:
		default:
			select {
			case <-inferCh:
				c.dropped.Add(1)
				metrics.FramesDropped.Inc()
			default:
			}
			select {
			case inferCh <- f:
			default:
			}
		}

		c.observeTick()
	}
}

// inferenceWorker consumes the single-slot hand-off, runs inference and
// publishes results. An inference failure degrades that frame to a raw
// pass-through so delivery always advances.
func (c *Controller) inferenceWorker(inferCh <-chan *frame.Frame, ann inference.Annotator, wg *sync.WaitGroup) {
	defer wg.Done()

	for f := range inferCh {
		res, err := ann.Annotate(f)
		if err != nil {
			c.inferFailures.Add(1)
			metrics.InferenceFailures.Inc()
			log.Debug("inference degraded, forwarding raw frame", "seq", f.Seq, "error", err)
			c.delivery.Publish(frame.NewDegraded(f))
			continue
		}

		c.delivery.Publish(&frame.Annotated{
			Seq:       f.Seq,
			Timestamp: f.Timestamp,
			Data:      res.Overlay,
			Width:     f.Width,
			Height:    f.Height,
			Keypoints: res.Keypoints,
			Feedback:  res.Feedback,
		})
	}
}

// abort ends the session from inside the capture loop after repeated
// device failures. An open recording is finalized and exported so footage
// is not lost.
func (c *Controller) abort(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.recorder.Active() {
		c.finalizeRecordingLocked()
	}
	c.lastErr = err
	c.state = StateIdle
	log.Error("session aborted", "error", err)
}

// observeTick updates the capture FPS estimate (exponential moving
// average over inter-tick intervals).
func (c *Controller) observeTick() {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()

	now := time.Now()
	if !c.lastTick.IsZero() {
		if dt := now.Sub(c.lastTick).Seconds(); dt > 0 {
			inst := 1 / dt
			if c.fps == 0 {
				c.fps = inst
			} else {
				c.fps = 0.9*c.fps + 0.1*inst
			}
			metrics.CaptureFPS.Set(c.fps)
		}
	}
	c.lastTick = now
}
