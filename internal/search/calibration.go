package search

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
)

// CalibrationConfig represents the JSON structure of the weight calibration
// file.
type CalibrationConfig struct {
	Version string  `json:"version"` // Config version for future compatibility
	Weights Weights `json:"weights"` // Weight overrides
}

// LoadCalibration loads ranking weights from a JSON calibration file.
// Partial configurations are merged with defaults, so a file may override a
// subset of weights, but the merged table must still sum to 1.0.
// On any error the defaults are returned alongside the error so callers can
// degrade gracefully.
func LoadCalibration(filePath string) (*Weights, error) {
	if filePath == "" {
		return DefaultWeights(), nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		slog.Warn("failed to read calibration file, using defaults",
			"path", filePath,
			"error", err)
		return DefaultWeights(), fmt.Errorf("failed to read calibration file: %w", err)
	}

	var config CalibrationConfig
	if err := json.Unmarshal(data, &config); err != nil {
		slog.Warn("failed to parse calibration file, using defaults",
			"path", filePath,
			"error", err)
		return DefaultWeights(), fmt.Errorf("failed to parse calibration file: %w", err)
	}

	defaults := DefaultWeights()
	merged := MergeCalibration(defaults, &config.Weights)
	if err := merged.Validate(); err != nil {
		slog.Warn("calibration produced an invalid weight table, using defaults",
			"path", filePath,
			"error", err)
		return DefaultWeights(), fmt.Errorf("invalid calibration: %w", err)
	}
	logCalibrationOverrides(defaults, merged)

	return merged, nil
}

// MergeCalibration merges override weights with base weights. Only non-zero
// override values are applied, which allows partial calibration files.
func MergeCalibration(base *Weights, override *Weights) *Weights {
	if base == nil {
		return DefaultWeights()
	}
	if override == nil {
		result := *base
		return &result
	}

	result := *base

	if override.Rating != 0 {
		result.Rating = override.Rating
	}
	if override.Verification != 0 {
		result.Verification = override.Verification
	}
	if override.TripCount != 0 {
		result.TripCount = override.TripCount
	}
	if override.ResponseRate != 0 {
		result.ResponseRate = override.ResponseRate
	}
	if override.Price != 0 {
		result.Price = override.Price
	}

	return &result
}

// logCalibrationOverrides logs which weights were overridden from defaults.
func logCalibrationOverrides(defaults *Weights, loaded *Weights) {
	var overrides []string

	if loaded.Rating != defaults.Rating {
		overrides = append(overrides, fmt.Sprintf("rating: %.2f -> %.2f",
			defaults.Rating, loaded.Rating))
	}
	if loaded.Verification != defaults.Verification {
		overrides = append(overrides, fmt.Sprintf("verification: %.2f -> %.2f",
			defaults.Verification, loaded.Verification))
	}
	if loaded.TripCount != defaults.TripCount {
		overrides = append(overrides, fmt.Sprintf("trip_count: %.2f -> %.2f",
			defaults.TripCount, loaded.TripCount))
	}
	if loaded.ResponseRate != defaults.ResponseRate {
		overrides = append(overrides, fmt.Sprintf("response_rate: %.2f -> %.2f",
			defaults.ResponseRate, loaded.ResponseRate))
	}
	if loaded.Price != defaults.Price {
		overrides = append(overrides, fmt.Sprintf("price: %.2f -> %.2f",
			defaults.Price, loaded.Price))
	}

	if len(overrides) > 0 {
		slog.Info("loaded ranking calibration with overrides",
			"overrides", overrides)
	} else {
		slog.Info("loaded ranking calibration (using all defaults)")
	}
}
