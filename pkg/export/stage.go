package export

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/posekit/posecam/internal/log"
	"github.com/posekit/posecam/internal/metrics"
	"github.com/posekit/posecam/pkg/recording"
	"github.com/posekit/posecam/pkg/storage"
)

// JobStatus is the queryable outcome of one export, kept for the most
// recently dispatched job so status reports always reflect the latest
// failure kind and message.
type JobStatus struct {
	JobID       string            `json:"job_id"`
	InputPath   string            `json:"input_path"`
	Running     bool              `json:"running"`
	Result      *ConversionResult `json:"result,omitempty"`
	ArtifactKey string            `json:"artifact_key,omitempty"`
	ArtifactURL string            `json:"artifact_url,omitempty"`
	FailureKind string            `json:"failure_kind,omitempty"`
	FailureMsg  string            `json:"failure_message,omitempty"`
	StartedAt   time.Time         `json:"started_at"`
	FinishedAt  time.Time         `json:"finished_at,omitempty"`
}

// Stage converts finalized recordings and hands them to the artifact store.
// Each dispatched job runs on its own detached goroutine so stopping a
// recording never blocks on conversion.
type Stage struct {
	store storage.ArtifactStore
	opts  Options

	inFlight atomic.Int32

	mu   sync.Mutex
	last *JobStatus
}

// NewStage creates an export stage uploading to store.
func NewStage(store storage.ArtifactStore, opts Options) *Stage {
	if opts.FFmpegPath == "" {
		opts.FFmpegPath = "ffmpeg"
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultOptions().Timeout
	}
	if opts.TargetFPS == 0 {
		opts.TargetFPS = DefaultOptions().TargetFPS
	}
	return &Stage{store: store, opts: opts}
}

// Dispatch starts the conversion+upload for job in the background and
// returns immediately.
func (s *Stage) Dispatch(job *recording.Job) {
	status := &JobStatus{
		JobID:     job.ID.String(),
		InputPath: job.Path,
		Running:   true,
		StartedAt: time.Now(),
	}
	s.mu.Lock()
	s.last = status
	s.mu.Unlock()

	s.inFlight.Add(1)
	go func() {
		defer s.inFlight.Add(-1)
		s.run(context.Background(), job, status)
	}()
}

// Export runs the conversion+upload synchronously. Used by the re-export
// operation; Dispatch wraps it for the detached post-recording path.
func (s *Stage) Export(ctx context.Context, path string) *JobStatus {
	status := &JobStatus{
		JobID:     uuid.New().String(),
		InputPath: path,
		Running:   true,
		StartedAt: time.Now(),
	}
	s.mu.Lock()
	s.last = status
	s.mu.Unlock()

	s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	s.runPath(ctx, path, status)
	return status
}

func (s *Stage) run(ctx context.Context, job *recording.Job, status *JobStatus) {
	if job.WriteFailed() {
		// Export regardless: partial footage is still worth keeping, but
		// the flag travels in the log for the operator.
		log.Warn("exporting recording with write failures", "job_id", job.ID.String())
	}
	s.runPath(ctx, job.Path, status)
}

func (s *Stage) runPath(ctx context.Context, path string, status *JobStatus) {
	start := time.Now()
	outPath := normalizedPath(path)

	res, err := s.convert(ctx, path, outPath)
	if err != nil {
		s.fail(status, classifyConvertErr(err), err)
		metrics.ExportsTotal.WithLabelValues("failed").Inc()
		return
	}

	// Fresh key per attempt: the store is not guaranteed idempotent, so a
	// re-export never reuses an identifier.
	key := fmt.Sprintf("recordings/%s/%s", time.Now().UTC().Format("2006-01-02"),
		uuid.New().String()+filepath.Ext(outPath))

	if err := s.store.Store(ctx, outPath, key); err != nil {
		s.mu.Lock()
		status.Result = res
		s.mu.Unlock()
		s.fail(status, FailureUpload, err)
		metrics.ExportsTotal.WithLabelValues("upload_failed").Inc()
		return
	}

	url, err := s.store.FetchURL(ctx, key)
	if err != nil {
		// Artifact is stored; a missing URL is reported but not fatal.
		log.Warn("fetch URL failed", "key", key, "error", err)
	}

	s.mu.Lock()
	status.Running = false
	status.Result = res
	status.ArtifactKey = key
	status.ArtifactURL = url
	status.FinishedAt = time.Now()
	s.mu.Unlock()

	metrics.ExportsTotal.WithLabelValues("succeeded").Inc()
	metrics.ExportDuration.Observe(time.Since(start).Seconds())
	log.Info("export complete", "key", key, "output", outPath)
}

func (s *Stage) fail(status *JobStatus, kind string, err error) {
	s.mu.Lock()
	status.Running = false
	status.FailureKind = kind
	status.FailureMsg = err.Error()
	status.FinishedAt = time.Now()
	s.mu.Unlock()
	log.Error("export failed", "kind", kind, "input", status.InputPath, "error", err)
}

func classifyConvertErr(err error) string {
	switch {
	case errors.Is(err, ErrToolMissing):
		return FailureToolMiss
	case errors.Is(err, ErrConversionTimeout):
		return FailureTimeout
	default:
		return FailureConversion
	}
}

// InFlight reports whether any export is currently running.
func (s *Stage) InFlight() bool {
	return s.inFlight.Load() > 0
}

// LastStatus returns a copy of the most recent job's status, or nil when
// nothing has been dispatched yet.
func (s *Stage) LastStatus() *JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return nil
	}
	cp := *s.last
	return &cp
}

// normalizedPath derives the conversion output path from the input path.
func normalizedPath(in string) string {
	ext := filepath.Ext(in)
	return strings.TrimSuffix(in, ext) + ".normalized" + ext
}
