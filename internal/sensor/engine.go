// Package sensor simulates an MQTT-style sensor feed for soil bearing
// capacity monitoring and detects deviation from the design assumption.
// In production the simulated stream is replaced by a real consumer feeding
// IngestReadings; the detection contract is identical.
package sensor

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/MrMan003/Nexus/internal/config"
)

// #region constants

// recentWindow is the number of trailing readings averaged for deviation.
const recentWindow = 5

// minIngestSamples guards the raw path against window averages over
// sequences too short to be meaningful.
const minIngestSamples = 3

// Degraded-regime parameters: capacity drops to 78% of design with a wider
// spread once the soil starts giving way.
const (
	degradedMeanFactor = 0.78
	normalStd          = 5.0
	degradedStd        = 10.0
)

// #endregion constants

// #region engine

// Engine produces reading streams and classifies their deviation.
type Engine struct {
	thresholds config.AlertThresholds
}

// NewEngine creates an engine with the given alert thresholds.
func NewEngine(thresholds config.AlertThresholds) *Engine {
	return &Engine{thresholds: thresholds}
}

// #endregion engine

// #region simulate-config

// SimulateConfig parameterizes a simulated stream run.
type SimulateConfig struct {
	DesignSBC      float64 // design baseline, kN/m²
	Total          int     // number of readings to generate
	DeviationStart int     // 1-based index at which the soil degrades
	Seed           *int64  // non-nil for a reproducible sequence
}

// DefaultSimulateConfig returns the standard demo stream parameters.
func DefaultSimulateConfig() SimulateConfig {
	return SimulateConfig{
		DesignSBC:      config.SensorDefaultSBC,
		Total:          config.SensorTotalReadings,
		DeviationStart: config.SensorDeviationStart,
	}
}

// #endregion simulate-config

// #region simulate

// SimulateStream generates cfg.Total readings around the design baseline,
// switching to the degraded distribution at cfg.DeviationStart, and returns
// the analyzed result. The sequence is deterministic iff cfg.Seed is set.
func (e *Engine) SimulateStream(cfg SimulateConfig) (StreamResult, error) {
	if cfg.DesignSBC <= 0 {
		return StreamResult{}, fmt.Errorf("design SBC must be positive, got %g", cfg.DesignSBC)
	}
	if cfg.Total <= 0 {
		return StreamResult{}, fmt.Errorf("total readings must be positive, got %d", cfg.Total)
	}
	if cfg.DeviationStart < 1 || cfg.DeviationStart > cfg.Total {
		return StreamResult{}, fmt.Errorf("deviation start %d outside [1, %d]", cfg.DeviationStart, cfg.Total)
	}

	seed := time.Now().UnixNano()
	if cfg.Seed != nil {
		seed = *cfg.Seed
	}
	rng := rand.New(rand.NewSource(seed))

	readings := make([]Reading, 0, cfg.Total)
	deviationDetected := false
	for i := 1; i <= cfg.Total; i++ {
		isAnomaly := i >= cfg.DeviationStart
		var sbc float64
		if isAnomaly {
			sbc = rng.NormFloat64()*degradedStd + cfg.DesignSBC*degradedMeanFactor
			deviationDetected = true
		} else {
			sbc = rng.NormFloat64()*normalStd + cfg.DesignSBC
		}
		readings = append(readings, Reading{
			Index:     i,
			SBC:       round1(sbc),
			IsAnomaly: isAnomaly,
		})
	}

	// Simulated path: deviation exists iff the degraded regime was entered.
	deviationPercent := 0.0
	if deviationDetected {
		deviationPercent = deviation(readings, cfg.DesignSBC)
	}

	return StreamResult{
		Readings:          readings,
		DeviationDetected: deviationDetected,
		DeviationPercent:  deviationPercent,
		AlertLevel:        e.classify(deviationPercent),
		TriggerRecal:      deviationPercent > e.thresholds.Trigger,
	}, nil
}

// #endregion simulate

// #region ingest

// IngestReadings wraps externally supplied raw values and analyzes them
// against the design baseline. Sequences shorter than three samples yield a
// no-deviation result rather than a noisy window average.
//
// Unlike the simulated path there is no ground-truth anomaly flag, so
// detection here is purely threshold-based: any positive deviation counts.
func (e *Engine) IngestReadings(values []float64, designSBC float64) (StreamResult, error) {
	if designSBC <= 0 {
		return StreamResult{}, fmt.Errorf("design SBC must be positive, got %g", designSBC)
	}

	readings := make([]Reading, 0, len(values))
	for i, v := range values {
		readings = append(readings, Reading{Index: i + 1, SBC: v})
	}

	if len(values) < minIngestSamples {
		return StreamResult{
			Readings:   readings,
			AlertLevel: AlertNone,
		}, nil
	}

	deviationPercent := deviation(readings, designSBC)

	return StreamResult{
		Readings:          readings,
		DeviationDetected: deviationPercent > 0,
		DeviationPercent:  deviationPercent,
		AlertLevel:        e.classify(deviationPercent),
		TriggerRecal:      deviationPercent > e.thresholds.Trigger,
	}, nil
}

// #endregion ingest

// #region classify

// classify maps a deviation percentage to an alert level. Strict
// greater-than comparisons, highest band first; boundary values fall into
// the lower band.
func (e *Engine) classify(deviationPercent float64) AlertLevel {
	switch {
	case deviationPercent > e.thresholds.Critical:
		return AlertCritical
	case deviationPercent > e.thresholds.Warning:
		return AlertWarning
	case deviationPercent > e.thresholds.Watch:
		return AlertWatch
	default:
		return AlertNone
	}
}

// #endregion classify

// #region deviation

// deviation computes the recent-window shortfall as a percentage of the
// baseline, rounded to two decimals. Positive means capacity dropped below
// the design value.
func deviation(readings []Reading, designSBC float64) float64 {
	start := len(readings) - recentWindow
	if start < 0 {
		start = 0
	}
	sum := 0.0
	for _, r := range readings[start:] {
		sum += r.SBC
	}
	recentAvg := sum / float64(len(readings)-start)
	return round2((designSBC - recentAvg) / designSBC * 100)
}

// #endregion deviation

// #region rounding

func round1(x float64) float64 { return math.Round(x*10) / 10 }
func round2(x float64) float64 { return math.Round(x*100) / 100 }

// #endregion rounding
