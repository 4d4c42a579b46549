package config_test

import (
	"errors"
	"runtime"
	"testing"

	"github.com/okian/coach/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with defaults", t, func() {
		cfg := config.New()

		convey.Convey("Then the tracker defaults match the documented tuning", func() {
			convey.So(cfg.DecayFactor, convey.ShouldEqual, 0.98)
			convey.So(cfg.ReinforcementMultiplier, convey.ShouldEqual, 2.0)
			convey.So(cfg.AccuracyWindow, convey.ShouldEqual, 20)
			convey.So(cfg.AdvanceThreshold, convey.ShouldEqual, 0.80)
			convey.So(cfg.RegressThreshold, convey.ShouldEqual, 0.40)
			convey.So(cfg.FocusTopN, convey.ShouldEqual, 3)
		})

		convey.Convey("Then the service defaults are usable", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU()*2)
			convey.So(cfg.StoreDriver, convey.ShouldEqual, config.DriverMemory)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("Then the provider list is split in priority order", func() {
			convey.So(cfg.Providers(), convey.ShouldResemble, []string{"anthropic", "openai", "google", "openrouter", "xai", "ollama"})
			cfg.LLMProviders = " OpenAI, ,ollama "
			convey.So(cfg.Providers(), convey.ShouldResemble, []string{"openai", "ollama"})
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given settings that cannot work", t, func() {
		cases := map[string]func(*config.Config){
			"empty addr":          func(c *config.Config) { c.Addr = " " },
			"zero workers":        func(c *config.Config) { c.WorkerCount = 0 },
			"decay above one":     func(c *config.Config) { c.DecayFactor = 1.5 },
			"inverted thresholds": func(c *config.Config) { c.AdvanceThreshold, c.RegressThreshold = 0.3, 0.6 },
			"unknown skill":       func(c *config.Config) { c.DefaultSkillLevel = "pro" },
			"unknown driver":      func(c *config.Config) { c.StoreDriver = "mongo" },
			"postgres sans dsn":   func(c *config.Config) { c.StoreDriver = config.DriverPostgres },
			"relative mcp path":   func(c *config.Config) { c.MCPPath = "mcp" },
		}
		for name, mutate := range cases {
			cfg := config.New()
			mutate(cfg)
			err := cfg.Validate()
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			_ = name
		}
	})

	convey.Convey("Given a sqlite driver with a path", t, func() {
		cfg := config.New()
		cfg.StoreDriver = config.DriverSQLite
		convey.So(cfg.Validate(), convey.ShouldBeNil)
	})
}
