// Package config holds the runtime configuration and its defaults.
package config

import (
	"fmt"
	"time"

	"github.com/ayusman/handsphere/internal/calibration"
	"github.com/ayusman/handsphere/internal/debounce"
	"github.com/ayusman/handsphere/internal/engine"
	"github.com/ayusman/handsphere/internal/logging"
	"github.com/ayusman/handsphere/internal/smoothing"
)

type Config struct {
	LogLevel string `koanf:"log_level"`

	Addr string `koanf:"addr"`

	// DataDir holds the SQLite database. Empty means ~/.handsphere.
	DataDir string `koanf:"data_dir"`

	StaticDir string `koanf:"static_dir"`

	PluginDir     string        `koanf:"plugin_dir"`
	PluginTimeout time.Duration `koanf:"plugin_timeout"`

	// RenderFPS is the tick rate of the scene broadcast loop.
	RenderFPS int `koanf:"render_fps"`

	Tray bool `koanf:"tray"`

	Camera   CameraConfig   `koanf:"camera"`
	Detector DetectorConfig `koanf:"detector"`
	Engine   EngineConfig   `koanf:"engine"`
}

type CameraConfig struct {
	Enabled  bool `koanf:"enabled"`
	DeviceID int  `koanf:"device_id"`
	FPS      int  `koanf:"fps"`
	Width    int  `koanf:"width"`
	Height   int  `koanf:"height"`
}

type DetectorConfig struct {
	MaxHands              int     `koanf:"max_hands"`
	MinConfidence         float64 `koanf:"min_confidence"`
	MinTrackingConfidence float64 `koanf:"min_tracking_confidence"`
	Script                string  `koanf:"script"`
	Python                string  `koanf:"python"`
}

type EngineConfig struct {
	PinchMin       float64       `koanf:"pinch_min"`
	PinchMax       float64       `koanf:"pinch_max"`
	SizeMin        float64       `koanf:"size_min"`
	SizeMax        float64       `koanf:"size_max"`
	SmoothingAlpha float64       `koanf:"smoothing_alpha"`
	ColorCooldown  time.Duration `koanf:"color_cooldown"`
	BaseRadius     float64       `koanf:"base_radius"`
}

func New() *Config {
	return &Config{
		LogLevel:      "info",
		Addr:          ":8080",
		PluginDir:     "plugins",
		PluginTimeout: 5 * time.Second,
		RenderFPS:     60,
		Camera: CameraConfig{
			Enabled:  false,
			DeviceID: 0,
			FPS:      15,
			Width:    640,
			Height:   480,
		},
		Detector: DetectorConfig{
			MaxHands:              2,
			MinConfidence:         0.5,
			MinTrackingConfidence: 0.5,
		},
		Engine: EngineConfig{
			PinchMin:       calibration.DefaultPinchMin,
			PinchMax:       calibration.DefaultPinchMax,
			SizeMin:        calibration.DefaultSizeMin,
			SizeMax:        calibration.DefaultSizeMax,
			SmoothingAlpha: smoothing.DefaultAlpha,
			ColorCooldown:  debounce.DefaultCooldown,
			BaseRadius:     engine.DefaultBaseRadius,
		},
	}
}

// Mapper returns the calibration described by the engine section.
func (e EngineConfig) Mapper() calibration.Mapper {
	return calibration.Mapper{
		PinchMin: e.PinchMin,
		PinchMax: e.PinchMax,
		SizeMin:  e.SizeMin,
		SizeMax:  e.SizeMax,
	}
}

// Validate reports the first setting that the rest of the program cannot
// work with.
func (c *Config) Validate() error {
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.RenderFPS <= 0 || c.RenderFPS > 240 {
		return fmt.Errorf("%w: render_fps %d out of range 1-240", ErrInvalidConfig, c.RenderFPS)
	}
	if c.PluginTimeout <= 0 {
		return fmt.Errorf("%w: plugin_timeout must be positive", ErrInvalidConfig)
	}
	if c.Camera.Enabled && c.Camera.FPS <= 0 {
		return fmt.Errorf("%w: camera.fps must be positive", ErrInvalidConfig)
	}
	if c.Detector.MaxHands < 1 || c.Detector.MaxHands > 2 {
		return fmt.Errorf("%w: detector.max_hands %d out of range 1-2", ErrInvalidConfig, c.Detector.MaxHands)
	}
	for name, v := range map[string]float64{
		"detector.min_confidence":          c.Detector.MinConfidence,
		"detector.min_tracking_confidence": c.Detector.MinTrackingConfidence,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%w: %s %g out of range 0-1", ErrInvalidConfig, name, v)
		}
	}
	if err := c.Engine.Mapper().Validate(); err != nil {
		return fmt.Errorf("%w: engine: %v", ErrInvalidConfig, err)
	}
	if c.Engine.SmoothingAlpha <= 0 || c.Engine.SmoothingAlpha > 1 {
		return fmt.Errorf("%w: engine.smoothing_alpha %g out of range (0,1]", ErrInvalidConfig, c.Engine.SmoothingAlpha)
	}
	if c.Engine.ColorCooldown < 0 {
		return fmt.Errorf("%w: engine.color_cooldown must not be negative", ErrInvalidConfig)
	}
	if c.Engine.BaseRadius <= 0 {
		return fmt.Errorf("%w: engine.base_radius must be positive", ErrInvalidConfig)
	}
	return nil
}
