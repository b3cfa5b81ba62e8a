package camera

// Preset names for common capture configurations.
const (
	PresetDefault = "default"
	Preset720p    = "720p"
	Preset1080p   = "1080p"
	PresetLow     = "low"
)

// Presets returns all available capture presets.
func Presets() map[string]WebcamConfig {
	return map[string]WebcamConfig{
		PresetDefault: DefaultWebcamConfig(),
		Preset720p:    HD720Config(),
		Preset1080p:   HD1080Config(),
		PresetLow:     LowBandwidthConfig(),
	}
}

// PresetNames returns the list of available preset names.
func PresetNames() []string {
	return []string{PresetDefault, Preset720p, Preset1080p, PresetLow}
}

// GetPreset returns a preset config by name, or nil if not found.
func GetPreset(name string) *WebcamConfig {
	if cfg, ok := Presets()[name]; ok {
		return &cfg
	}
	return nil
}

// HD720Config returns 720p HD configuration.
// Good balance of overlay detail and inference latency.
func HD720Config() WebcamConfig {
	cfg := DefaultWebcamConfig()
	cfg.Width = 1280
	cfg.Height = 720
	return cfg
}

// HD1080Config returns 1080p Full HD configuration.
// Best keypoint accuracy, highest CPU usage.
func HD1080Config() WebcamConfig {
	cfg := DefaultWebcamConfig()
	cfg.Width = 1920
	cfg.Height = 1080
	return cfg
}

// LowBandwidthConfig returns a reduced-quality configuration for
// constrained links. Smaller JPEGs, same resolution as default.
func LowBandwidthConfig() WebcamConfig {
	cfg := DefaultWebcamConfig()
	cfg.JPEGQuality = 55
	return cfg
}
