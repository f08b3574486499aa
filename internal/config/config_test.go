package config_test

import (
	"errors"
	"testing"
	"time"

	"github.com/ayusman/handsphere/internal/config"
	"github.com/ayusman/handsphere/internal/engine"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then the engine constants match the reference calibration", func() {
			convey.So(cfg.Engine.PinchMin, convey.ShouldEqual, 0.05)
			convey.So(cfg.Engine.PinchMax, convey.ShouldEqual, 0.25)
			convey.So(cfg.Engine.SizeMin, convey.ShouldEqual, 0.2)
			convey.So(cfg.Engine.SizeMax, convey.ShouldEqual, 2.0)
			convey.So(cfg.Engine.SmoothingAlpha, convey.ShouldEqual, 0.15)
			convey.So(cfg.Engine.ColorCooldown, convey.ShouldEqual, 500*time.Millisecond)
			convey.So(cfg.Engine.BaseRadius, convey.ShouldEqual, 2.0)
		})

		convey.Convey("Then the engine section agrees with the engine defaults", func() {
			def := engine.DefaultConfig()
			convey.So(cfg.Engine.SmoothingAlpha, convey.ShouldEqual, def.Alpha)
			convey.So(cfg.Engine.ColorCooldown, convey.ShouldEqual, def.Cooldown)
			convey.So(cfg.Engine.BaseRadius, convey.ShouldEqual, def.BaseRadius)
			convey.So(cfg.Engine.Mapper(), convey.ShouldResemble, def.Mapper)
		})

		convey.Convey("Then the service defaults are sensible", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
			convey.So(cfg.RenderFPS, convey.ShouldEqual, 60)
			convey.So(cfg.Detector.MaxHands, convey.ShouldEqual, 2)
			convey.So(cfg.Camera.Enabled, convey.ShouldBeFalse)
		})

		convey.Convey("Then it validates", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a default config", t, func() {
		cfg := config.New()

		cases := map[string]func(*config.Config){
			"empty addr":           func(c *config.Config) { c.Addr = "" },
			"bad log level":        func(c *config.Config) { c.LogLevel = "loud" },
			"zero render fps":      func(c *config.Config) { c.RenderFPS = 0 },
			"three hands":          func(c *config.Config) { c.Detector.MaxHands = 3 },
			"confidence above one": func(c *config.Config) { c.Detector.MinConfidence = 1.5 },
			"reversed pinch range": func(c *config.Config) { c.Engine.PinchMin, c.Engine.PinchMax = 0.3, 0.1 },
			"zero alpha":           func(c *config.Config) { c.Engine.SmoothingAlpha = 0 },
			"negative cooldown":    func(c *config.Config) { c.Engine.ColorCooldown = -time.Second },
			"zero radius":          func(c *config.Config) { c.Engine.BaseRadius = 0 },
			"camera without fps": func(c *config.Config) {
				c.Camera.Enabled = true
				c.Camera.FPS = 0
			},
		}

		for name, mutate := range cases {
			convey.Convey("When "+name, func() {
				mutate(cfg)

				convey.Convey("Then validation fails with ErrInvalidConfig", func() {
					err := cfg.Validate()
					convey.So(err, convey.ShouldNotBeNil)
					convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				})
			})
		}
	})
}

func TestConfig_Mapper(t *testing.T) {
	convey.Convey("Given an engine section", t, func() {
		e := config.New().Engine
		e.PinchMax = 0.3

		convey.Convey("Then Mapper carries its thresholds", func() {
			m := e.Mapper()
			convey.So(m.PinchMin, convey.ShouldEqual, 0.05)
			convey.So(m.PinchMax, convey.ShouldEqual, 0.3)
			convey.So(m.SizeMax, convey.ShouldEqual, 2.0)
		})
	})
}
