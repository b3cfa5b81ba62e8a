// Package metrics exposes Prometheus collectors for the capture pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FramesCaptured = promauto.NewCounter(prometheus.CounterOpts{
		Name: "posecam_frames_captured_total",
		Help: "Total frames read from the camera",
	})

	FramesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "posecam_frames_dropped_total",
		Help: "Frames dropped because inference had not finished the previous frame",
	})

	InferenceFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "posecam_inference_failures_total",
		Help: "Frames forwarded without overlay after an inference failure",
	})

	DeviceFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "posecam_device_failures_total",
		Help: "Camera read failures",
	})

	RecordingWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "posecam_recording_write_failures_total",
		Help: "Frame writes that failed during an active recording",
	})

	ExportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "posecam_exports_total",
		Help: "Conversion/upload outcomes, by status",
	}, []string{"status"})

	ExportDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "posecam_export_duration_seconds",
		Help:    "Duration of successful conversion+upload runs",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
	})

	CaptureFPS = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "posecam_capture_fps",
		Help: "Estimated capture rate of the active session",
	})
)
