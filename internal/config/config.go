// Package config provides environment-driven configuration for posecam.
package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the daemon configuration, loaded from the environment.
type Config struct {
	// HTTP
	Port     string `env:"POSECAM_PORT"      envDefault:"8080"`
	LogLevel string `env:"POSECAM_LOG_LEVEL" envDefault:"info"`

	// Camera
	CameraDevice int    `env:"POSECAM_CAMERA_DEVICE" envDefault:"0"`
	CameraSource string `env:"POSECAM_CAMERA_SOURCE" envDefault:"webcam"` // webcam | synthetic
	CameraPreset string `env:"POSECAM_CAMERA_PRESET" envDefault:""`       // default | 720p | 1080p | low
	FrameWidth   int    `env:"POSECAM_FRAME_WIDTH"   envDefault:"640"`
	FrameHeight  int    `env:"POSECAM_FRAME_HEIGHT"  envDefault:"480"`
	JPEGQuality  int    `env:"POSECAM_JPEG_QUALITY"  envDefault:"80"`
	CaptureFPS   float64 `env:"POSECAM_CAPTURE_FPS"  envDefault:"30"`

	// Inference
	PoseModelPath string `env:"POSECAM_POSE_MODEL" envDefault:"models/yolov8n-pose.onnx"`

	// Recording
	RecordingDir    string  `env:"POSECAM_RECORDING_DIR"     envDefault:"/var/lib/posecam/recordings"`
	RecordTargetFPS float64 `env:"POSECAM_RECORD_TARGET_FPS" envDefault:"30"`

	// Export
	FFmpegPath    string        `env:"POSECAM_FFMPEG_PATH"    envDefault:"ffmpeg"`
	ExportFPS     int           `env:"POSECAM_EXPORT_FPS"     envDefault:"30"`
	ExportMethod  string        `env:"POSECAM_EXPORT_METHOD"  envDefault:"duplicate"` // duplicate | blend
	ExportTimeout time.Duration `env:"POSECAM_EXPORT_TIMEOUT" envDefault:"300s"`

	// Artifact store
	MinIOEndpoint  string `env:"POSECAM_MINIO_ENDPOINT"   envDefault:"localhost:9000"`
	MinIOAccessKey string `env:"POSECAM_MINIO_ACCESS_KEY" envDefault:"minioadmin"`
	MinIOSecretKey string `env:"POSECAM_MINIO_SECRET_KEY" envDefault:"minioadmin"`
	MinIOUseSSL    bool   `env:"POSECAM_MINIO_USE_SSL"    envDefault:"false"`
	MinIOBucket    string `env:"POSECAM_MINIO_BUCKET"     envDefault:"posecam-recordings"`
}

// Load parses the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
