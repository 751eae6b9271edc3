package pacing

import "math"

// Utilization thresholds that switch the recommended dial rate up or down.
const (
	lowUtilization  = 0.5
	highUtilization = 0.9

	rampUpFactor   = 1.5
	rampDownFactor = 0.7
)

// DialingRateMetrics is derived on every evaluation and never persisted.
type DialingRateMetrics struct {
	CurrentConcurrency int `json:"current_concurrency"`
	MaxConcurrency     int `json:"max_concurrency"`
	UtilizationRate    int `json:"utilization_rate"`
	RecommendedRate    int `json:"recommended_rate"`
	AvailableSlots     int `json:"available_slots"`
}

// ComputeDialingRate derives the recommended dial rate from how full the
// concurrency slots are. It is pure and never fails.
func ComputeDialingRate(current int, s ConcurrencySettings) DialingRateMetrics {
	if current < 0 {
		current = 0
	}

	utilization := Utilization(current, s.MaxConcurrentCalls)

	rate := float64(s.CallsPerMinute)
	switch {
	case utilization < lowUtilization:
		rate = math.Min(rate*rampUpFactor, CeilingDialRate)
	case utilization > highUtilization:
		rate = math.Max(rate*rampDownFactor, FloorDialRate)
	}

	return DialingRateMetrics{
		CurrentConcurrency: current,
		MaxConcurrency:     s.MaxConcurrentCalls,
		UtilizationRate:    Percent(utilization),
		RecommendedRate:    clampInt(int(math.Round(rate)), FloorDialRate, CeilingDialRate),
		AvailableSlots:     max(0, s.MaxConcurrentCalls-current),
	}
}

// ComputeDialingRateWithin is ComputeDialingRate with the owner's configured
// bounds applied on top of the safety clamp.
func ComputeDialingRateWithin(current int, s ConcurrencySettings, b RateBounds) DialingRateMetrics {
	m := ComputeDialingRate(current, s)
	m.RecommendedRate = b.Clamp(m.RecommendedRate)
	return m
}

// Clamp limits rate to the bounds, which are themselves kept inside
// [FloorDialRate, CeilingDialRate]. Zero bounds mean "unset".
func (b RateBounds) Clamp(rate int) int {
	lo, hi := FloorDialRate, CeilingDialRate
	if b.Min > 0 {
		lo = clampInt(b.Min, FloorDialRate, CeilingDialRate)
	}
	if b.Max > 0 {
		hi = clampInt(b.Max, FloorDialRate, CeilingDialRate)
	}
	if hi < lo {
		hi = lo
	}
	return clampInt(rate, lo, hi)
}

// Utilization returns active/capacity in [0,1]; a non-positive capacity
// yields 0.
func Utilization(active, capacity int) float64 {
	if capacity <= 0 || active <= 0 {
		return 0
	}
	return math.Min(float64(active)/float64(capacity), 1)
}

// Percent formats a [0,1] fraction as a rounded integer percentage.
func Percent(fraction float64) int {
	return int(math.Round(100 * clampFloat(fraction, 0, 1)))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
