package engine

import (
	"fmt"

	"github.com/newthinker/pulse/internal/classifier"
	"github.com/newthinker/pulse/internal/core"
	"github.com/newthinker/pulse/internal/indicator"
	"github.com/newthinker/pulse/internal/series"
)

// Config is the engine's full configuration surface.
type Config struct {
	Indicator      indicator.Config
	Thresholds     classifier.Thresholds
	SeriesCapacity int
}

// DefaultConfig returns EMA 9/21, RSI 14 with 30/70 bands, zero funding
// threshold, 0.4 alert threshold and 100-sample windows.
func DefaultConfig() Config {
	return Config{
		Indicator:      indicator.DefaultConfig(),
		Thresholds:     classifier.DefaultThresholds(),
		SeriesCapacity: series.DefaultCapacity,
	}
}

// Validate reports the first invalid setting as core.ErrConfigInvalid.
func (c Config) Validate() error {
	if err := c.Indicator.Validate(); err != nil {
		return err
	}
	if err := c.Thresholds.Validate(); err != nil {
		return err
	}
	if c.SeriesCapacity <= 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("series capacity must be > 1, got %d", c.SeriesCapacity))
	}
	return nil
}
