// Package config holds the threshold and simulation constants shared across
// the NEXUS pipeline. Thresholds are plain structs passed explicitly into the
// components that use them, so tests can override per-instance.
package config

import (
	"os"
	"strconv"
)

// #region alert-thresholds

// AlertThresholds drives the deviation detector's alert banding.
// All comparisons are strict greater-than, evaluated highest-first.
type AlertThresholds struct {
	Critical float64 // > Critical  → CRITICAL
	Warning  float64 // > Warning   → WARNING
	Watch    float64 // > Watch     → WATCH
	Trigger  float64 // > Trigger   → recalibration fires
}

// DefaultAlertThresholds returns the standard sensor alert bands.
// Env overrides: NEXUS_DEVIATION_CRITICAL, NEXUS_DEVIATION_MODERATE,
// NEXUS_DEVIATION_MINOR (percent values).
func DefaultAlertThresholds() AlertThresholds {
	t := AlertThresholds{
		Critical: 20.0,
		Warning:  10.0,
		Watch:    5.0,
		Trigger:  5.0,
	}
	if v, ok := envFloat("NEXUS_DEVIATION_CRITICAL"); ok {
		t.Critical = v
	}
	if v, ok := envFloat("NEXUS_DEVIATION_MODERATE"); ok {
		t.Warning = v
	}
	if v, ok := envFloat("NEXUS_DEVIATION_MINOR"); ok {
		t.Watch = v
		t.Trigger = v
	}
	return t
}

// #endregion alert-thresholds

// #region severity-thresholds

// SeverityThresholds drives the recalibration policy's tier selection.
// Distinct from AlertThresholds: the detector classifies, the policy acts.
type SeverityThresholds struct {
	Critical float64 // > Critical → CRITICAL tier
	Moderate float64 // > Moderate → MODERATE tier, else MINOR
}

// DefaultSeverityThresholds returns the standard policy tier boundaries.
func DefaultSeverityThresholds() SeverityThresholds {
	t := SeverityThresholds{Critical: 20.0, Moderate: 10.0}
	if v, ok := envFloat("NEXUS_DEVIATION_CRITICAL"); ok {
		t.Critical = v
	}
	if v, ok := envFloat("NEXUS_DEVIATION_MODERATE"); ok {
		t.Moderate = v
	}
	return t
}

// #endregion severity-thresholds

// #region sensor-defaults

// Sensor stream simulation defaults.
const (
	SensorTotalReadings  = 20
	SensorDeviationStart = 12 // reading index at which soil degrades
	SensorDefaultSBC     = 180.0
)

// #endregion sensor-defaults

// #region monte-carlo

// Monte Carlo simulation defaults.
const (
	MCIterations   = 1000
	SBCDefaultMean = 180.0 // kN/m²
	SBCDefaultStd  = 25.0
)

// #endregion monte-carlo

// #region is-codes

// ISCodes maps design concerns to the Indian Standard references cited in
// patches and prompts.
var ISCodes = map[string]string{
	"foundation": "IS 1080, IS 6403",
	"seismic":    "IS 1893 (Part 1)",
	"concrete":   "IS 456:2000",
	"loading":    "IS 875 (Parts 1-5)",
}

// #endregion is-codes

// #region helpers

func envFloat(key string) (float64, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// #endregion helpers
