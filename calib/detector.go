package calib

import (
	"errors"
	"fmt"
)

// Corner refinement methods understood by the detector.
const (
	CornerRefineNone = iota
	CornerRefineSubpix
	CornerRefineContour
	CornerRefineAprilTag
)

// DetectorConfig holds the marker detector thresholds. Field names follow the
// keys of the detector parameter file.
type DetectorConfig struct {
	AdaptiveThreshWinSizeMin              int     `yaml:"adaptiveThreshWinSizeMin"`
	AdaptiveThreshWinSizeMax              int     `yaml:"adaptiveThreshWinSizeMax"`
	AdaptiveThreshWinSizeStep             int     `yaml:"adaptiveThreshWinSizeStep"`
	AdaptiveThreshConstant                float64 `yaml:"adaptiveThreshConstant"`
	MinMarkerPerimeterRate                float64 `yaml:"minMarkerPerimeterRate"`
	MaxMarkerPerimeterRate                float64 `yaml:"maxMarkerPerimeterRate"`
	PolygonalApproxAccuracyRate           float64 `yaml:"polygonalApproxAccuracyRate"`
	MinCornerDistanceRate                 float64 `yaml:"minCornerDistanceRate"`
	MinDistanceToBorder                   int     `yaml:"minDistanceToBorder"`
	MinMarkerDistanceRate                 float64 `yaml:"minMarkerDistanceRate"`
	CornerRefinementMethod                int     `yaml:"cornerRefinementMethod"`
	CornerRefinementWinSize               int     `yaml:"cornerRefinementWinSize"`
	CornerRefinementMaxIterations         int     `yaml:"cornerRefinementMaxIterations"`
	CornerRefinementMinAccuracy           float64 `yaml:"cornerRefinementMinAccuracy"`
	MarkerBorderBits                      int     `yaml:"markerBorderBits"`
	PerspectiveRemovePixelPerCell         int     `yaml:"perspectiveRemovePixelPerCell"`
	PerspectiveRemoveIgnoredMarginPerCell float64 `yaml:"perspectiveRemoveIgnoredMarginPerCell"`
	MaxErroneousBitsInBorderRate          float64 `yaml:"maxErroneousBitsInBorderRate"`
	MinOtsuStdDev                         float64 `yaml:"minOtsuStdDev"`
	ErrorCorrectionRate                   float64 `yaml:"errorCorrectionRate"`
}

// DefaultDetectorConfig returns the detector library's default thresholds.
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		AdaptiveThreshWinSizeMin:              3,
		AdaptiveThreshWinSizeMax:              23,
		AdaptiveThreshWinSizeStep:             10,
		AdaptiveThreshConstant:                7,
		MinMarkerPerimeterRate:                0.03,
		MaxMarkerPerimeterRate:                4,
		PolygonalApproxAccuracyRate:           0.03,
		MinCornerDistanceRate:                 0.05,
		MinDistanceToBorder:                   3,
		MinMarkerDistanceRate:                 0.05,
		CornerRefinementMethod:                CornerRefineNone,
		CornerRefinementWinSize:               5,
		CornerRefinementMaxIterations:         30,
		CornerRefinementMinAccuracy:           0.1,
		MarkerBorderBits:                      1,
		PerspectiveRemovePixelPerCell:         4,
		PerspectiveRemoveIgnoredMarginPerCell: 0.13,
		MaxErroneousBitsInBorderRate:          0.35,
		MinOtsuStdDev:                         5,
		ErrorCorrectionRate:                   0.6,
	}
}

// LoadDetector reads a detector parameter file on top of the defaults; keys
// missing from the file keep their default value.
func LoadDetector(path string) (DetectorConfig, error) {
	cfg := DefaultDetectorConfig()
	if err := readDocument(path, &cfg); err != nil {
		return DetectorConfig{}, err
	}
	if err := cfg.Validate(); err != nil {
		return DetectorConfig{}, fmt.Errorf("invalid detector parameters %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the thresholds the detector would otherwise reject at runtime.
func (c DetectorConfig) Validate() error {
	var errs []error
	if c.AdaptiveThreshWinSizeMin < 3 {
		errs = append(errs, fmt.Errorf("adaptiveThreshWinSizeMin must be >= 3, got %d", c.AdaptiveThreshWinSizeMin))
	}
	if c.AdaptiveThreshWinSizeMax < c.AdaptiveThreshWinSizeMin {
		errs = append(errs, fmt.Errorf("adaptiveThreshWinSizeMax %d is below min %d", c.AdaptiveThreshWinSizeMax, c.AdaptiveThreshWinSizeMin))
	}
	if c.AdaptiveThreshWinSizeStep <= 0 {
		errs = append(errs, fmt.Errorf("adaptiveThreshWinSizeStep must be > 0, got %d", c.AdaptiveThreshWinSizeStep))
	}
	if c.MinMarkerPerimeterRate <= 0 || c.MaxMarkerPerimeterRate < c.MinMarkerPerimeterRate {
		errs = append(errs, fmt.Errorf("marker perimeter rates out of order: min %g max %g", c.MinMarkerPerimeterRate, c.MaxMarkerPerimeterRate))
	}
	if c.CornerRefinementMethod < CornerRefineNone || c.CornerRefinementMethod > CornerRefineAprilTag {
		errs = append(errs, fmt.Errorf("unknown cornerRefinementMethod %d", c.CornerRefinementMethod))
	}
	if c.CornerRefinementWinSize < 1 || c.CornerRefinementMaxIterations < 1 {
		errs = append(errs, errors.New("corner refinement window and iterations must be positive"))
	}
	if c.MarkerBorderBits < 1 {
		errs = append(errs, fmt.Errorf("markerBorderBits must be >= 1, got %d", c.MarkerBorderBits))
	}
	if c.PerspectiveRemovePixelPerCell < 1 {
		errs = append(errs, fmt.Errorf("perspectiveRemovePixelPerCell must be >= 1, got %d", c.PerspectiveRemovePixelPerCell))
	}
	if c.ErrorCorrectionRate < 0 || c.ErrorCorrectionRate > 1 {
		errs = append(errs, fmt.Errorf("errorCorrectionRate must be within [0,1], got %g", c.ErrorCorrectionRate))
	}
	return errors.Join(errs...)
}
