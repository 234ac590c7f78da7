// Package config holds the tuning configuration for a DarkTrack run.
//
// Required optical parameters describe the acquisition geometry and have no
// defaults: a missing field is a ConfigurationError before any processing
// starts. Advanced parameters all carry defaults supplied by the Get*
// accessors, so partial config files are safe.
package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
const DefaultConfigPath = "config/tuning.defaults.json"

// ConfigurationError is a fatal setup error: missing or inconsistent
// required parameters, or a supplied background whose dimensions do not
// match the hologram stack. Processing must not start after one of these.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// NewConfigurationError builds a ConfigurationError for the given field.
func NewConfigurationError(field, format string, v ...interface{}) *ConfigurationError {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, v...)}
}

// Acceleration modes for the numeric backend.
const (
	AccelOff  = "off"
	AccelOn   = "on"
	AccelAuto = "auto"
)

// Background removal modes.
const (
	BackgroundAuto     = "auto"     // mean when >= MeanBackgroundMinFrames frames, smoothed otherwise
	BackgroundMean     = "mean"     // element-wise mean of the whole stack
	BackgroundSmoothed = "smoothed" // per-frame large-kernel low-pass
	BackgroundExplicit = "explicit" // caller supplies the background array
)

// MeanBackgroundMinFrames is the stack length at which the mean background
// becomes reliable enough to be the automatic choice.
const MeanBackgroundMinFrames = 10

// TuningConfig represents the root configuration for a reconstruction and
// tracking run. All lengths are micrometres. Pointer fields distinguish
// "absent from JSON" from zero values; required fields have no fallback.
type TuningConfig struct {
	// Required optical geometry
	BaseDistanceUm  *float64 `json:"base_distance_um,omitempty"`
	RangeLowerUm    *float64 `json:"range_lower_um,omitempty"`
	RangeUpperUm    *float64 `json:"range_upper_um,omitempty"`
	RangeStepUm     *float64 `json:"range_step_um,omitempty"`
	WavelengthUm    *float64 `json:"wavelength_um,omitempty"`
	PixelSizeUm     *float64 `json:"pixel_size_um,omitempty"`
	Magnification   *float64 `json:"magnification,omitempty"`
	RefractiveIndex *float64 `json:"refractive_index,omitempty"` // optional, default 1

	// Reconstruction params
	PadBorderPx            *int    `json:"pad_border_px,omitempty"`
	BackgroundMode         *string `json:"background_mode,omitempty"`
	BackgroundSmoothRadius *int    `json:"background_smooth_radius_px,omitempty"`
	Acceleration           *string `json:"acceleration,omitempty"`

	// Segmentation params
	MinObjectPixels    *int `json:"min_object_pixels,omitempty"`
	ScoreSmoothRadius  *int `json:"score_smooth_radius_px,omitempty"`
	LocalWindowRadius  *int `json:"local_window_radius_px,omitempty"`

	// Localization params
	SharpPixelQuantile *float64 `json:"sharp_pixel_quantile,omitempty"`

	// Tracker params
	LookbackFrames   *int     `json:"lookback_frames,omitempty"`
	VelocityWindow   *int     `json:"velocity_window,omitempty"`
	GatingMultiplier *float64 `json:"gating_multiplier,omitempty"`

	// Run params
	MaxFrames *int `json:"max_frames,omitempty"`
	Verbosity *int `json:"verbosity,omitempty"`
	Workers   *int `json:"workers,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields unset.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. The file must have
// a .json extension and stay under the max file size. Fields omitted from
// the JSON retain their defaults, so partial configs are safe, except the
// required optical fields, which Validate rejects when absent.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
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
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from
// DefaultConfigPath, searching upward from the current directory. Panics if
// the file cannot be loaded; intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/<pkg>/
		"../../../" + DefaultConfigPath,    // from internal/storage/sqlite/
		"../../../../" + DefaultConfigPath, // from cmd/tools/<tool>/
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks required fields and cross-field consistency. A violation
// is returned as a *ConfigurationError.
func (c *TuningConfig) Validate() error {
	type req struct {
		name string
		val  *float64
	}
	for _, r := range []req{
		{"base_distance_um", c.BaseDistanceUm},
		{"range_lower_um", c.RangeLowerUm},
		{"range_upper_um", c.RangeUpperUm},
		{"range_step_um", c.RangeStepUm},
		{"wavelength_um", c.WavelengthUm},
		{"pixel_size_um", c.PixelSizeUm},
		{"magnification", c.Magnification},
	} {
		if r.val == nil {
			return NewConfigurationError(r.name, "required field missing")
		}
	}

	if *c.WavelengthUm <= 0 {
		return NewConfigurationError("wavelength_um", "must be positive, got %g", *c.WavelengthUm)
	}
	if *c.PixelSizeUm <= 0 {
		return NewConfigurationError("pixel_size_um", "must be positive, got %g", *c.PixelSizeUm)
	}
	if *c.Magnification <= 0 {
		return NewConfigurationError("magnification", "must be positive, got %g", *c.Magnification)
	}
	if *c.RangeStepUm <= 0 {
		return NewConfigurationError("range_step_um", "must be positive, got %g", *c.RangeStepUm)
	}
	if *c.RangeUpperUm < *c.RangeLowerUm {
		return NewConfigurationError("range_upper_um",
			"range [%g, %g] yields no depth samples", *c.RangeLowerUm, *c.RangeUpperUm)
	}
	if c.RefractiveIndex != nil && *c.RefractiveIndex <= 0 {
		return NewConfigurationError("refractive_index", "must be positive, got %g", *c.RefractiveIndex)
	}

	if c.BackgroundMode != nil {
		switch *c.BackgroundMode {
		case BackgroundAuto, BackgroundMean, BackgroundSmoothed, BackgroundExplicit:
		default:
			return NewConfigurationError("background_mode", "unknown mode %q", *c.BackgroundMode)
		}
	}
	if c.Acceleration != nil {
		switch *c.Acceleration {
		case AccelOff, AccelOn, AccelAuto:
		default:
			return NewConfigurationError("acceleration", "unknown mode %q", *c.Acceleration)
		}
	}
	if c.SharpPixelQuantile != nil && (*c.SharpPixelQuantile <= 0 || *c.SharpPixelQuantile >= 1) {
		return NewConfigurationError("sharp_pixel_quantile",
			"must be inside (0, 1), got %g", *c.SharpPixelQuantile)
	}
	if c.MinObjectPixels != nil && *c.MinObjectPixels < 1 {
		return NewConfigurationError("min_object_pixels", "must be >= 1, got %d", *c.MinObjectPixels)
	}
	if c.Verbosity != nil && (*c.Verbosity < 0 || *c.Verbosity > 3) {
		return NewConfigurationError("verbosity", "must be 0-3, got %d", *c.Verbosity)
	}

	return nil
}

// GetBaseDistanceUm returns the base propagation distance. Validate must
// have accepted the config before any required-field getter is used.
func (c *TuningConfig) GetBaseDistanceUm() float64 { return *c.BaseDistanceUm }

// GetRangeLowerUm returns the lower propagation-range bound.
func (c *TuningConfig) GetRangeLowerUm() float64 { return *c.RangeLowerUm }

// GetRangeUpperUm returns the upper propagation-range bound.
func (c *TuningConfig) GetRangeUpperUm() float64 { return *c.RangeUpperUm }

// GetRangeStepUm returns the propagation step.
func (c *TuningConfig) GetRangeStepUm() float64 { return *c.RangeStepUm }

// GetWavelengthUm returns the illumination wavelength.
func (c *TuningConfig) GetWavelengthUm() float64 { return *c.WavelengthUm }

// GetPixelSizeUm returns the sensor pixel pitch.
func (c *TuningConfig) GetPixelSizeUm() float64 { return *c.PixelSizeUm }

// GetMagnification returns the optical magnification.
func (c *TuningConfig) GetMagnification() float64 { return *c.Magnification }

// GetRefractiveIndex returns the refractive_index value or the default.
func (c *TuningConfig) GetRefractiveIndex() float64 {
	if c.RefractiveIndex == nil {
		return 1.0
	}
	return *c.RefractiveIndex
}

// DepthSamples returns the number of sampled propagation distances implied
// by the range bounds and step. Always >= 1 for a validated config.
func (c *TuningConfig) DepthSamples() int {
	return int(math.Floor((*c.RangeUpperUm-*c.RangeLowerUm)/(*c.RangeStepUm))) + 1
}

// GetPadBorderPx returns the pad_border_px value or the default.
func (c *TuningConfig) GetPadBorderPx() int {
	if c.PadBorderPx == nil {
		return 64
	}
	return *c.PadBorderPx
}

// GetBackgroundMode returns the background_mode value or the default.
func (c *TuningConfig) GetBackgroundMode() string {
	if c.BackgroundMode == nil {
		return BackgroundAuto
	}
	return *c.BackgroundMode
}

// GetBackgroundSmoothRadius returns the background_smooth_radius_px value or the default.
func (c *TuningConfig) GetBackgroundSmoothRadius() int {
	if c.BackgroundSmoothRadius == nil {
		return 32
	}
	return *c.BackgroundSmoothRadius
}

// GetAcceleration returns the acceleration value or the default.
func (c *TuningConfig) GetAcceleration() string {
	if c.Acceleration == nil {
		return AccelAuto
	}
	return *c.Acceleration
}

// GetMinObjectPixels returns the min_object_pixels value or the default.
func (c *TuningConfig) GetMinObjectPixels() int {
	if c.MinObjectPixels == nil {
		return 10
	}
	return *c.MinObjectPixels
}

// GetScoreSmoothRadius returns the score_smooth_radius_px value or the default.
func (c *TuningConfig) GetScoreSmoothRadius() int {
	if c.ScoreSmoothRadius == nil {
		return 2
	}
	return *c.ScoreSmoothRadius
}

// GetLocalWindowRadius returns the local_window_radius_px value or the default.
func (c *TuningConfig) GetLocalWindowRadius() int {
	if c.LocalWindowRadius == nil {
		return 16
	}
	return *c.LocalWindowRadius
}

// GetSharpPixelQuantile returns the sharp_pixel_quantile value or the default.
func (c *TuningConfig) GetSharpPixelQuantile() float64 {
	if c.SharpPixelQuantile == nil {
		return 0.8
	}
	return *c.SharpPixelQuantile
}

// GetLookbackFrames returns the lookback_frames value or the default.
func (c *TuningConfig) GetLookbackFrames() int {
	if c.LookbackFrames == nil {
		return 20
	}
	return *c.LookbackFrames
}

// GetVelocityWindow returns the velocity_window value or the default.
func (c *TuningConfig) GetVelocityWindow() int {
	if c.VelocityWindow == nil {
		return 5
	}
	return *c.VelocityWindow
}

// GetGatingMultiplier returns the gating_multiplier value or the default.
func (c *TuningConfig) GetGatingMultiplier() float64 {
	if c.GatingMultiplier == nil {
		return 10.0
	}
	return *c.GatingMultiplier
}

// GetMaxFrames returns the max_frames value or the default (0 = all frames).
func (c *TuningConfig) GetMaxFrames() int {
	if c.MaxFrames == nil {
		return 0
	}
	return *c.MaxFrames
}

// GetVerbosity returns the verbosity value or the default.
func (c *TuningConfig) GetVerbosity() int {
	if c.Verbosity == nil {
		return 0
	}
	return *c.Verbosity
}

// GetWorkers returns the workers value or the default (0 = GOMAXPROCS).
func (c *TuningConfig) GetWorkers() int {
	if c.Workers == nil {
		return 0
	}
	return *c.Workers
}
