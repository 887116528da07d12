package sensor

// #region reading

// Reading is one bearing-capacity sample from the stream.
// Immutable once created.
type Reading struct {
	Index     int     // 1-based position in the stream
	SBC       float64 // soil bearing capacity, kN/m²
	IsAnomaly bool    // set by the generator when drawn from the degraded regime
}

// #endregion reading

// #region alert-level

// AlertLevel classifies deviation severity on the detector side.
type AlertLevel string

const (
	AlertNone     AlertLevel = "NONE"
	AlertWatch    AlertLevel = "WATCH"
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
)

// #endregion alert-level

// #region stream-result

// StreamResult aggregates one full reading sequence and its deviation
// analysis. Constructed once by the engine; never mutated afterwards.
type StreamResult struct {
	Readings          []Reading
	DeviationDetected bool
	DeviationPercent  float64 // baseline minus recent average, % of baseline
	AlertLevel        AlertLevel
	TriggerRecal      bool
}

// Recent returns up to the last n readings in stream order.
func (r StreamResult) Recent(n int) []Reading {
	if n >= len(r.Readings) {
		return r.Readings
	}
	return r.Readings[len(r.Readings)-n:]
}

// #endregion stream-result
