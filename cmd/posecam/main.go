// Posecam daemon - single-camera capture/inference/delivery/recording
// pipeline for edge devices.
//
// Streams the latest pose-annotated frame over HTTP polling, records raw
// footage on demand, and exports finished recordings to the artifact store.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/posekit/posecam/internal/config"
	"github.com/posekit/posecam/internal/log"
	"github.com/posekit/posecam/pkg/camera"
	"github.com/posekit/posecam/pkg/export"
	"github.com/posekit/posecam/pkg/inference"
	"github.com/posekit/posecam/pkg/recording"
	"github.com/posekit/posecam/pkg/session"
	"github.com/posekit/posecam/pkg/storage"
	"github.com/posekit/posecam/pkg/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Error("load config", "error", err)
		os.Exit(1)
	}
	log.Init(cfg.LogLevel)

	cam, err := openCamera(cfg)
	if err != nil {
		log.Error("open camera", "error", err)
		os.Exit(1)
	}
	defer cam.Close()

	annotator := openAnnotator(cfg)
	defer annotator.Close()

	store, err := storage.NewMinIOStore(storage.MinIOConfig{
		Endpoint:  cfg.MinIOEndpoint,
		AccessKey: cfg.MinIOAccessKey,
		SecretKey: cfg.MinIOSecretKey,
		UseSSL:    cfg.MinIOUseSSL,
		Bucket:    cfg.MinIOBucket,
	})
	if err != nil {
		log.Error("artifact store", "error", err)
		os.Exit(1)
	}
	ensureCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := store.EnsureBucket(ensureCtx); err != nil {
		// Uploads will fail and be reported through status; the capture
		// pipeline itself does not depend on the store being reachable.
		log.Warn("artifact bucket not ready", "error", err)
	}
	cancel()

	if err := os.MkdirAll(cfg.RecordingDir, 0o755); err != nil {
		log.Error("create recording dir", "error", err)
		os.Exit(1)
	}

	recorder := recording.NewManager(recording.OpenVideoWriter)
	exporter := export.NewStage(store, export.Options{
		FFmpegPath:   cfg.FFmpegPath,
		TargetFPS:    cfg.ExportFPS,
		Method:       export.Method(cfg.ExportMethod),
		Timeout:      cfg.ExportTimeout,
		TimeoutPerMB: 2 * time.Second,
	})

	ctrl := session.NewController(cam, annotator, recorder, exporter, session.Config{
		CaptureFPS:             cfg.CaptureFPS,
		RecordTargetFPS:        cfg.RecordTargetFPS,
		MaxConsecutiveFailures: 3,
	})

	srv := web.NewServer(cfg.Port, ctrl)
	srv.StartAsync()

	log.Info("posecam ready",
		"port", cfg.Port,
		"camera", cfg.CameraSource,
		"annotator", annotator.Name(),
		"recording_dir", cfg.RecordingDir,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")
	if st := ctrl.State(); st == session.StateStreaming || st == session.StateRecording {
		if err := ctrl.Stop(); err != nil {
			log.Warn("stop session", "error", err)
		}
	}
	if err := srv.Shutdown(); err != nil {
		log.Warn("shutdown http", "error", err)
	}
}

// openCamera picks the configured frame source. The synthetic source keeps
// the whole pipeline runnable on machines without a camera.
func openCamera(cfg *config.Config) (camera.Source, error) {
	if cfg.CameraSource == "synthetic" {
		return camera.NewSynthetic(cfg.FrameWidth, cfg.FrameHeight), nil
	}
	wc := camera.WebcamConfig{
		DeviceID:    cfg.CameraDevice,
		Width:       cfg.FrameWidth,
		Height:      cfg.FrameHeight,
		JPEGQuality: cfg.JPEGQuality,
	}
	if cfg.CameraPreset != "" {
		preset := camera.GetPreset(cfg.CameraPreset)
		if preset == nil {
			log.Warn("unknown camera preset, using explicit settings",
				"preset", cfg.CameraPreset, "known", camera.PresetNames())
		} else {
			wc = *preset
			wc.DeviceID = cfg.CameraDevice
		}
	}
	return camera.OpenWebcam(wc)
}

// openAnnotator loads the pose model, degrading to passthrough when it is
// not available so the stream still works without overlays.
func openAnnotator(cfg *config.Config) inference.Annotator {
	poseCfg := inference.DefaultPoseConfig()
	poseCfg.ModelPath = cfg.PoseModelPath

	pose, err := inference.NewPose(poseCfg)
	if err != nil {
		log.Warn("pose model unavailable, streaming without overlays", "error", err)
		return inference.Passthrough{}
	}
	return pose
}
