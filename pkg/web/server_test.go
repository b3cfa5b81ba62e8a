package web

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/posekit/posecam/pkg/camera"
	"github.com/posekit/posecam/pkg/export"
	"github.com/posekit/posecam/pkg/frame"
	"github.com/posekit/posecam/pkg/inference"
	"github.com/posekit/posecam/pkg/recording"
	"github.com/posekit/posecam/pkg/session"
	"github.com/posekit/posecam/pkg/storage"
)

type passAnnotator struct{}

func (passAnnotator) Annotate(f *frame.Frame) (*inference.Result, error) {
	return &inference.Result{Overlay: f.Data}, nil
}
func (passAnnotator) Name() string { return "pass" }
func (passAnnotator) Close() error { return nil }

type nullWriter struct{}

func (nullWriter) Write([]byte) error { return nil }
func (nullWriter) Close() error       { return nil }

func newTestServer(t *testing.T) (*Server, *session.Controller) {
	t.Helper()

	rec := recording.NewManager(func(string, float64, int, int) (recording.FrameWriter, error) {
		return nullWriter{}, nil
	})
	exp := export.NewStage(storage.NewMockStore(), export.Options{
		FFmpegPath: "/nonexistent/ffmpeg",
		Timeout:    time.Second,
	})
	ctrl := session.NewController(camera.NewSynthetic(32, 32), passAnnotator{}, rec, exp,
		session.Config{CaptureFPS: 250})

	srv := NewServer("0", ctrl)
	t.Cleanup(func() {
		if st := ctrl.State(); st == session.StateStreaming || st == session.StateRecording {
			ctrl.Stop()
		}
	})
	return srv, ctrl
}

func doJSON(t *testing.T, srv *Server, method, target string, body any) *http.Response {
	t.Helper()

	var rd io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := srv.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, target, err)
	}
	return resp
}

func TestStatusEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, srv, "GET", "/api/status", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status code: %d", resp.StatusCode)
	}

	var st session.Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.State != "idle" {
		t.Errorf("state: %s", st.State)
	}
}

func TestFrameBeforeFirstFrame(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, srv, "GET", "/api/frame", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("expected 204 before first frame, got %d", resp.StatusCode)
	}
}

func TestStartThenFrame(t *testing.T) {
	srv, ctrl := newTestServer(t)

	resp := doJSON(t, srv, "POST", "/api/session/start", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("start: %d", resp.StatusCode)
	}

	// Poll until the pipeline publishes a frame.
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp = doJSON(t, srv, "GET", "/api/frame", nil)
		if resp.StatusCode == http.StatusOK {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("no frame served before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if ct := resp.Header.Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("content type: %s", ct)
	}
	if resp.Header.Get("X-Frame-Seq") == "" {
		t.Error("missing X-Frame-Seq header")
	}
	data, _ := io.ReadAll(resp.Body)
	if len(data) == 0 {
		t.Error("empty frame body")
	}

	ctrl.Stop()
}

func TestInvalidTransitionIsConflict(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, srv, "POST", "/api/session/stop", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("stop while idle: got %d, want 409", resp.StatusCode)
	}

	resp = doJSON(t, srv, "POST", "/api/recording/start",
		StartRecordingRequest{Path: "/tmp/x.mp4"})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("recording/start while idle: got %d, want 409", resp.StatusCode)
	}
}

func TestRecordingRoundTrip(t *testing.T) {
	srv, ctrl := newTestServer(t)
	path := filepath.Join(t.TempDir(), "rec.mp4")

	doJSON(t, srv, "POST", "/api/session/start", nil)

	resp := doJSON(t, srv, "POST", "/api/recording/start", StartRecordingRequest{Path: path})
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("recording/start: %d %s", resp.StatusCode, body)
	}

	var started struct {
		JobID string `json:"job_id"`
	}
	json.NewDecoder(resp.Body).Decode(&started)
	if started.JobID == "" {
		t.Error("expected a job id")
	}

	// Let a few frames land so the achieved rate is measurable.
	deadline := time.Now().Add(5 * time.Second)
	for {
		st := ctrl.Status()
		if st.Recording != nil && st.Recording.Frames >= 3 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("no recorded frames before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}

	resp = doJSON(t, srv, "POST", "/api/recording/stop", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("recording/stop: %d", resp.StatusCode)
	}

	var stopped struct {
		Frames      int     `json:"frames"`
		ActualFPS   float64 `json:"actual_fps"`
		WriteFailed bool    `json:"write_failed"`
	}
	json.NewDecoder(resp.Body).Decode(&stopped)
	if stopped.Frames < 3 {
		t.Errorf("frames = %d, want >= 3", stopped.Frames)
	}
	if stopped.ActualFPS <= 0 {
		t.Errorf("actual_fps = %v, want > 0 for a finalized recording", stopped.ActualFPS)
	}
	if stopped.WriteFailed {
		t.Error("unexpected write failure")
	}

	doJSON(t, srv, "POST", "/api/session/stop", nil)
}

func TestRecordingStartRequiresPath(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, srv, "POST", "/api/recording/start", StartRecordingRequest{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 without path, got %d", resp.StatusCode)
	}
}

func TestExportMissingFile(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, srv, "POST", "/api/export", ExportRequest{Path: "/no/such.mp4"})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for missing file, got %d", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, srv, "GET", "/metrics", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("metrics: %d", resp.StatusCode)
	}
}
