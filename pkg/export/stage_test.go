package export

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/posekit/posecam/pkg/storage"
)

// fakeEncoder writes a shell script that mimics ffmpeg's CLI shape: it
// ignores flags and copies the -i argument to the final argument.
func fakeEncoder(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake encoder scripts require a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "fake-ffmpeg")
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

// copyEncoder copies the input (arg after -i) to the last argument.
func copyEncoder(t *testing.T) string {
	return fakeEncoder(t, `
in=""
prev=""
for a in "$@"; do
  if [ "$prev" = "-i" ]; then in="$a"; fi
  prev="$a"
  out="$a"
done
cp "$in" "$out"
`)
}

func inputVideo(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rec.mp4")
	// Needs to clear the minimum-output-size check after the copy.
	if err := os.WriteFile(path, make([]byte, 64*1024), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExportSuccess(t *testing.T) {
	store := storage.NewMockStore()
	stage := NewStage(store, Options{
		FFmpegPath: copyEncoder(t),
		TargetFPS:  30,
		Method:     MethodBlend,
		Timeout:    30 * time.Second,
	})

	status := stage.Export(context.Background(), inputVideo(t))

	if status.FailureKind != "" {
		t.Fatalf("unexpected failure: %s %s", status.FailureKind, status.FailureMsg)
	}
	if status.Result == nil || !status.Result.Success {
		t.Fatal("expected successful conversion result")
	}
	if status.Result.CompressionRatio == 0 {
		t.Error("expected compression ratio computed")
	}

	calls := store.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected exactly one upload, got %d", len(calls))
	}
	if !strings.Contains(calls[0].LocalPath, ".normalized") {
		t.Errorf("upload should receive the converted path, got %s", calls[0].LocalPath)
	}
	if calls[0].Key == "" {
		t.Error("expected a generated artifact key")
	}
}

func TestExportFreshKeyPerAttempt(t *testing.T) {
	store := storage.NewMockStore()
	stage := NewStage(store, Options{FFmpegPath: copyEncoder(t), Timeout: 30 * time.Second})

	in := inputVideo(t)
	stage.Export(context.Background(), in)
	stage.Export(context.Background(), in)

	calls := store.Calls()
	if len(calls) != 2 {
		t.Fatalf("expected two uploads, got %d", len(calls))
	}
	if calls[0].Key == calls[1].Key {
		t.Error("re-export must mint a fresh artifact key")
	}
}

func TestToolMissing(t *testing.T) {
	stage := NewStage(storage.NewMockStore(), Options{
		FFmpegPath: "/nonexistent/encoder-binary",
		Timeout:    time.Second,
	})

	status := stage.Export(context.Background(), inputVideo(t))

	if status.FailureKind != FailureToolMiss {
		t.Errorf("expected %s, got %s (%s)", FailureToolMiss, status.FailureKind, status.FailureMsg)
	}
}

func TestConversionTimeout(t *testing.T) {
	hang := fakeEncoder(t, "sleep 60")
	stage := NewStage(storage.NewMockStore(), Options{
		FFmpegPath: hang,
		Timeout:    200 * time.Millisecond,
	})

	done := make(chan *JobStatus, 1)
	start := time.Now()
	go func() { done <- stage.Export(context.Background(), inputVideo(t)) }()

	select {
	case status := <-done:
		if status.FailureKind != FailureTimeout {
			t.Errorf("expected %s, got %s (%s)", FailureTimeout, status.FailureKind, status.FailureMsg)
		}
		if time.Since(start) > 10*time.Second {
			t.Error("timeout took far longer than the configured bound")
		}
	case <-time.After(15 * time.Second):
		t.Fatal("export did not observe its timeout")
	}

	// The stage stays queryable throughout and afterwards.
	if last := stage.LastStatus(); last == nil {
		t.Error("LastStatus should be set after a failed export")
	}
}

func TestConversionFailurePreservesOutput(t *testing.T) {
	// Encoder writes a partial file then exits non-zero.
	partial := fakeEncoder(t, `
for a in "$@"; do out="$a"; done
printf 'partial' > "$out"
exit 1
`)
	stage := NewStage(storage.NewMockStore(), Options{FFmpegPath: partial, Timeout: 30 * time.Second})

	in := inputVideo(t)
	status := stage.Export(context.Background(), in)

	if status.FailureKind != FailureConversion {
		t.Fatalf("expected %s, got %s", FailureConversion, status.FailureKind)
	}
	// Partial output is preserved for inspection.
	if _, err := os.Stat(normalizedPath(in)); err != nil {
		t.Errorf("partial output should not be auto-deleted: %v", err)
	}
}

func TestTrivialOutputRejected(t *testing.T) {
	tiny := fakeEncoder(t, `
for a in "$@"; do out="$a"; done
printf 'x' > "$out"
`)
	stage := NewStage(storage.NewMockStore(), Options{FFmpegPath: tiny, Timeout: 30 * time.Second})

	status := stage.Export(context.Background(), inputVideo(t))
	if status.FailureKind != FailureConversion {
		t.Errorf("undersized output must be a conversion failure, got %s", status.FailureKind)
	}
}

func TestUploadFailureReported(t *testing.T) {
	store := storage.NewMockStore()
	store.FailWith(context.DeadlineExceeded)
	stage := NewStage(store, Options{FFmpegPath: copyEncoder(t), Timeout: 30 * time.Second})

	status := stage.Export(context.Background(), inputVideo(t))

	if status.FailureKind != FailureUpload {
		t.Errorf("expected %s, got %s", FailureUpload, status.FailureKind)
	}
	if status.Result == nil || !status.Result.Success {
		t.Error("conversion result should survive an upload failure")
	}
}
