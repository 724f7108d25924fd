package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/rollstate/internal/motion"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
const DefaultConfigPath = "config/tuning.defaults.json"

// Window defaults used when the tuning file omits them.
const (
	DefaultCapacity     = 10
	DefaultMaxAgeMillis = 10000
)

// TuningConfig represents the classifier window and threshold parameters.
// Every field is optional; the Get* methods fall back to defaults so partial
// files are safe.
type TuningConfig struct {
	// Window params
	Capacity     *int   `json:"capacity,omitempty" yaml:"capacity,omitempty"`
	MaxAgeMillis *int64 `json:"max_age_millis,omitempty" yaml:"max_age_millis,omitempty"`
	MaxBacktrack *int   `json:"max_backtrack,omitempty" yaml:"max_backtrack,omitempty"` // 0 or unset: same as capacity

	// Jerk params
	JerkCheckEnabled *bool    `json:"jerk_check_enabled,omitempty" yaml:"jerk_check_enabled,omitempty"`
	JerkAxis         *float64 `json:"jerk_axis,omitempty" yaml:"jerk_axis,omitempty"`
	JerkSum          *float64 `json:"jerk_sum,omitempty" yaml:"jerk_sum,omitempty"`

	// Stillness params
	StillnessMax       *float64 `json:"stillness_max,omitempty" yaml:"stillness_max,omitempty"`
	StillnessBacktrack *int     `json:"stillness_backtrack,omitempty" yaml:"stillness_backtrack,omitempty"`

	// Gravity band params
	GravityBandLow  *float64 `json:"gravity_band_low,omitempty" yaml:"gravity_band_low,omitempty"`
	GravityBandHigh *float64 `json:"gravity_band_high,omitempty" yaml:"gravity_band_high,omitempty"`

	// Diff cascade params
	HandlingDiffMax *float64 `json:"handling_diff_max,omitempty" yaml:"handling_diff_max,omitempty"`
	RollingDiffMin  *float64 `json:"rolling_diff_min,omitempty" yaml:"rolling_diff_min,omitempty"`
	AvgRollingMin   *float64 `json:"avg_rolling_min,omitempty" yaml:"avg_rolling_min,omitempty"`
	AvgHandlingMax  *float64 `json:"avg_handling_max,omitempty" yaml:"avg_handling_max,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrInt(v int) *int             { return &v }
func ptrInt64(v int64) *int64       { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field set to its default.
func DefaultTuningConfig() *TuningConfig {
	return &TuningConfig{
		Capacity:           ptrInt(DefaultCapacity),
		MaxAgeMillis:       ptrInt64(DefaultMaxAgeMillis),
		MaxBacktrack:       ptrInt(0),
		JerkCheckEnabled:   ptrBool(true),
		JerkAxis:           ptrFloat64(motion.DefaultJerkAxis),
		JerkSum:            ptrFloat64(motion.DefaultJerkSum),
		StillnessMax:       ptrFloat64(motion.DefaultStillnessMax),
		StillnessBacktrack: ptrInt(motion.DefaultStillnessBacktrack),
		GravityBandLow:     ptrFloat64(motion.DefaultGravityBandLow),
		GravityBandHigh:    ptrFloat64(motion.DefaultGravityBandHigh),
		HandlingDiffMax:    ptrFloat64(motion.DefaultHandlingDiffMax),
		RollingDiffMin:     ptrFloat64(motion.DefaultRollingDiffMin),
		AvgRollingMin:      ptrFloat64(motion.DefaultAvgRollingMin),
		AvgHandlingMax:     ptrFloat64(motion.DefaultAvgHandlingMax),
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON or YAML file.
// The file must have a .json, .yaml or .yml extension and be under 1MB.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := filepath.Ext(cleanPath)
	switch ext {
	case ".json", ".yaml", ".yml":
	default:
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if ext == ".json" {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.Capacity != nil && *c.Capacity < 1 {
		return fmt.Errorf("capacity must be at least 1, got %d", *c.Capacity)
	}
	if c.MaxAgeMillis != nil && *c.MaxAgeMillis < 0 {
		return fmt.Errorf("max_age_millis must be non-negative, got %d", *c.MaxAgeMillis)
	}
	if c.MaxBacktrack != nil && *c.MaxBacktrack < 0 {
		return fmt.Errorf("max_backtrack must be non-negative, got %d", *c.MaxBacktrack)
	}
	if c.StillnessBacktrack != nil && *c.StillnessBacktrack < 1 {
		return fmt.Errorf("stillness_backtrack must be at least 1, got %d", *c.StillnessBacktrack)
	}

	for name, v := range map[string]*float64{
		"jerk_axis":         c.JerkAxis,
		"jerk_sum":          c.JerkSum,
		"stillness_max":     c.StillnessMax,
		"gravity_band_low":  c.GravityBandLow,
		"gravity_band_high": c.GravityBandHigh,
		"handling_diff_max": c.HandlingDiffMax,
		"rolling_diff_min":  c.RollingDiffMin,
		"avg_rolling_min":   c.AvgRollingMin,
		"avg_handling_max":  c.AvgHandlingMax,
	} {
		if v != nil && *v < 0 {
			return fmt.Errorf("%s must be non-negative, got %f", name, *v)
		}
	}

	if low, high := c.GetGravityBandLow(), c.GetGravityBandHigh(); low >= high {
		return fmt.Errorf("gravity_band_low (%f) must be below gravity_band_high (%f)", low, high)
	}
	if hmax, rmin := c.GetAvgHandlingMax(), c.GetAvgRollingMin(); hmax > rmin {
		return fmt.Errorf("avg_handling_max (%f) must not exceed avg_rolling_min (%f)", hmax, rmin)
	}

	return nil
}

// ToThresholds converts the tuning values into classifier thresholds.
func (c *TuningConfig) ToThresholds() motion.Thresholds {
	return motion.Thresholds{
		JerkCheckEnabled:   c.GetJerkCheckEnabled(),
		JerkAxis:           c.GetJerkAxis(),
		JerkSum:            c.GetJerkSum(),
		StillnessMax:       c.GetStillnessMax(),
		StillnessBacktrack: c.GetStillnessBacktrack(),
		GravityBandLow:     c.GetGravityBandLow(),
		GravityBandHigh:    c.GetGravityBandHigh(),
		HandlingDiffMax:    c.GetHandlingDiffMax(),
		RollingDiffMin:     c.GetRollingDiffMin(),
		AvgRollingMin:      c.GetAvgRollingMin(),
		AvgHandlingMax:     c.GetAvgHandlingMax(),
	}
}

// NewDetector builds and initializes a detector from the tuning values.
func (c *TuningConfig) NewDetector() (*motion.Detector, error) {
	d := motion.NewDetector(c.ToThresholds())
	if err := d.Initialize(c.GetCapacity(), c.GetMaxAgeMillis()); err != nil {
		return nil, err
	}
	d.SetMaxBacktrack(c.GetMaxBacktrack())
	return d, nil
}

// GetCapacity returns the capacity value or the default.
func (c *TuningConfig) GetCapacity() int {
	if c.Capacity == nil {
		return DefaultCapacity
	}
	return *c.Capacity
}

// GetMaxAgeMillis returns the max_age_millis value or the default.
func (c *TuningConfig) GetMaxAgeMillis() int64 {
	if c.MaxAgeMillis == nil {
		return DefaultMaxAgeMillis
	}
	return *c.MaxAgeMillis
}

// GetMaxBacktrack returns the max_backtrack value, 0 meaning "use capacity".
func (c *TuningConfig) GetMaxBacktrack() int {
	if c.MaxBacktrack == nil {
		return 0
	}
	return *c.MaxBacktrack
}

// GetJerkCheckEnabled returns the jerk_check_enabled value or the default.
func (c *TuningConfig) GetJerkCheckEnabled() bool {
	if c.JerkCheckEnabled == nil {
		return true // default
	}
	return *c.JerkCheckEnabled
}

// GetJerkAxis returns the jerk_axis value or the default.
func (c *TuningConfig) GetJerkAxis() float64 {
	if c.JerkAxis == nil {
		return motion.DefaultJerkAxis
	}
	return *c.JerkAxis
}

// GetJerkSum returns the jerk_sum value or the default.
func (c *TuningConfig) GetJerkSum() float64 {
	if c.JerkSum == nil {
		return motion.DefaultJerkSum
	}
	return *c.JerkSum
}

// GetStillnessMax returns the stillness_max value or the default.
func (c *TuningConfig) GetStillnessMax() float64 {
	if c.StillnessMax == nil {
		return motion.DefaultStillnessMax
	}
	return *c.StillnessMax
}

// GetStillnessBacktrack returns the stillness_backtrack value or the default.
func (c *TuningConfig) GetStillnessBacktrack() int {
	if c.StillnessBacktrack == nil {
		return motion.DefaultStillnessBacktrack
	}
	return *c.StillnessBacktrack
}

// GetGravityBandLow returns the gravity_band_low value or the default.
func (c *TuningConfig) GetGravityBandLow() float64 {
	if c.GravityBandLow == nil {
		return motion.DefaultGravityBandLow
	}
	return *c.GravityBandLow
}

// GetGravityBandHigh returns the gravity_band_high value or the default.
func (c *TuningConfig) GetGravityBandHigh() float64 {
	if c.GravityBandHigh == nil {
		return motion.DefaultGravityBandHigh
	}
	return *c.GravityBandHigh
}

// GetHandlingDiffMax returns the handling_diff_max value or the default.
func (c *TuningConfig) GetHandlingDiffMax() float64 {
	if c.HandlingDiffMax == nil {
		return motion.DefaultHandlingDiffMax
	}
	return *c.HandlingDiffMax
}

// GetRollingDiffMin returns the rolling_diff_min value or the default.
func (c *TuningConfig) GetRollingDiffMin() float64 {
	if c.RollingDiffMin == nil {
		return motion.DefaultRollingDiffMin
	}
	return *c.RollingDiffMin
}

// GetAvgRollingMin returns the avg_rolling_min value or the default.
func (c *TuningConfig) GetAvgRollingMin() float64 {
	if c.AvgRollingMin == nil {
		return motion.DefaultAvgRollingMin
	}
	return *c.AvgRollingMin
}

// GetAvgHandlingMax returns the avg_handling_max value or the default.
func (c *TuningConfig) GetAvgHandlingMax() float64 {
	if c.AvgHandlingMax == nil {
		return motion.DefaultAvgHandlingMax
	}
	return *c.AvgHandlingMax
}
