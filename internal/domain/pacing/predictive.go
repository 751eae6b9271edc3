package pacing

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// HistoryCapacity is how many historical samples the dialer remembers.
const HistoryCapacity = 20

// Tuning holds the empirical constants of the predictive formula. None of
// them has a documented derivation, so they stay overridable.
type Tuning struct {
	TargetAgentUtilization float64 `json:"target_agent_utilization" koanf:"target_agent_utilization" validate:"gt=0,lte=1"`
	UtilizationBoost       float64 `json:"utilization_boost" koanf:"utilization_boost" validate:"gte=0"`
	HealthyRatioMin        float64 `json:"healthy_ratio_min" koanf:"healthy_ratio_min" validate:"gte=1"`
	HealthyRatioMax        float64 `json:"healthy_ratio_max" koanf:"healthy_ratio_max" validate:"gtefield=HealthyRatioMin"`
	MinRatio               float64 `json:"min_ratio" koanf:"min_ratio" validate:"gte=1"`
	MaxRatio               float64 `json:"max_ratio" koanf:"max_ratio" validate:"gtefield=MinRatio,lte=3.5"`
}

func DefaultTuning() Tuning {
	return Tuning{
		TargetAgentUtilization: 0.85,
		UtilizationBoost:       0.2,
		HealthyRatioMin:        1.5,
		HealthyRatioMax:        2.5,
		MinRatio:               1.0,
		MaxRatio:               3.5,
	}
}

// Validate checks the tuning constants.
func (t Tuning) Validate() error {
	return validateStruct("predictive tuning", t)
}

// DialingAlgorithmParams are the call-center operating parameters the
// predictive formula works from. Durations are seconds, rates percentages.
type DialingAlgorithmParams struct {
	AvgCallDuration       float64 `json:"avg_call_duration" validate:"gte=1"`
	AvgAnswerRate         float64 `json:"avg_answer_rate" validate:"gt=0,lte=100"`
	AvgAgentWrapTime      float64 `json:"avg_agent_wrap_time" validate:"gte=0"`
	AvailableAgents       int     `json:"available_agents" validate:"gte=0"`
	TargetAbandonmentRate float64 `json:"target_abandonment_rate" validate:"gte=0,lte=10"`
}

type RecommendedAction string

const (
	ActionHalt       RecommendedAction = "halt"
	ActionDecrease   RecommendedAction = "decrease"
	ActionIncrease   RecommendedAction = "increase"
	ActionAggressive RecommendedAction = "aggressive"
	ActionMaintain   RecommendedAction = "maintain"
)

type ComplianceStatus string

const (
	StatusCompliant ComplianceStatus = "compliant"
	StatusWarning   ComplianceStatus = "warning"
	StatusViolation ComplianceStatus = "violation"
)

// PredictiveMetrics is the output of one predictive evaluation.
type PredictiveMetrics struct {
	DialingRatio             float64           `json:"dialing_ratio"`
	OptimalConcurrency       int               `json:"optimal_concurrency"`
	PredictedAnswers         float64           `json:"predicted_answers"`
	EstimatedAbandonmentRate float64           `json:"estimated_abandonment_rate"`
	Recommendation           string            `json:"recommendation"`
	RecommendedAction        RecommendedAction `json:"recommended_action"`
	ComplianceStatus         ComplianceStatus  `json:"compliance_status"`
	Efficiency               float64           `json:"efficiency"`
}

// HistoricalSample is one observed period fed back into the dialer.
type HistoricalSample struct {
	AnswerRate      float64   `json:"answer_rate"`
	AbandonmentRate float64   `json:"abandonment_rate"`
	RecordedAt      time.Time `json:"recorded_at"`
}

// HistoricalInsight summarizes the remembered samples.
type HistoricalInsight struct {
	SampleCount         int     `json:"sample_count"`
	AvgAnswerRate       float64 `json:"avg_answer_rate"`
	AvgAbandonmentRate  float64 `json:"avg_abandonment_rate"`
	SuggestedAnswerRate float64 `json:"suggested_answer_rate"`
}

// PredictiveDialer computes dialing ratios. Calculate is pure with respect to
// its arguments; the only state is the informational sample history.
type PredictiveDialer struct {
	tuning Tuning

	mu      sync.Mutex
	history []HistoricalSample
	next    int
}

func NewPredictiveDialer(tuning Tuning) *PredictiveDialer {
	return &PredictiveDialer{
		tuning:  tuning,
		history: make([]HistoricalSample, 0, HistoryCapacity),
	}
}

func (d *PredictiveDialer) Tuning() Tuning {
	return d.tuning
}

// Validate reports every parameter that is out of bounds.
func (d *PredictiveDialer) Validate(p DialingAlgorithmParams) error {
	return validateStruct("dialing params", p)
}

// FallbackMetrics is what callers get when the params are rejected: a
// non-aggressive ratio and a halt.
func FallbackMetrics(reason string) PredictiveMetrics {
	return PredictiveMetrics{
		DialingRatio:      1.0,
		Recommendation:    "Invalid dialing parameters, do not dial: " + reason,
		RecommendedAction: ActionHalt,
		ComplianceStatus:  StatusWarning,
	}
}

// Calculate runs the predictive formula. On invalid params it returns the
// fallback metrics together with the validation error.
func (d *PredictiveDialer) Calculate(p DialingAlgorithmParams) (PredictiveMetrics, error) {
	if err := d.Validate(p); err != nil {
		return FallbackMetrics(err.Error()), err
	}

	t := d.tuning
	ratio := t.MinRatio
	if p.AvailableAgents > 0 {
		base := (1 + p.TargetAbandonmentRate/100) / (p.AvgAnswerRate / 100)
		ratio = base * (1 + t.TargetAgentUtilization*t.UtilizationBoost)
	}
	ratio = clampFloat(ratio, t.MinRatio, t.MaxRatio)

	agents := float64(p.AvailableAgents)
	optimal := int(math.Ceil(agents * ratio))
	predicted := float64(optimal) * p.AvgAnswerRate / 100

	abandonment := 100.0
	if p.AvailableAgents > 0 {
		abandonment = 0
		if predicted > 0 {
			excess := math.Max(0, predicted-agents)
			abandonment = clampFloat(excess/predicted*100, 0, 100)
		}
	}

	m := PredictiveMetrics{
		DialingRatio:             round2(ratio),
		OptimalConcurrency:       optimal,
		PredictedAnswers:         round2(predicted),
		EstimatedAbandonmentRate: round2(abandonment),
		ComplianceStatus:         complianceStatus(abandonment, p.TargetAbandonmentRate),
		Efficiency:               round2(d.efficiency(p, ratio, predicted)),
	}
	m.RecommendedAction, m.Recommendation = d.recommend(p, ratio, abandonment)
	return m, nil
}

func complianceStatus(estimated, target float64) ComplianceStatus {
	switch {
	case estimated <= target:
		return StatusCompliant
	case estimated <= target*1.2:
		return StatusWarning
	default:
		return StatusViolation
	}
}

func (d *PredictiveDialer) recommend(p DialingAlgorithmParams, ratio, abandonment float64) (RecommendedAction, string) {
	target := p.TargetAbandonmentRate
	switch {
	case p.AvailableAgents == 0:
		return ActionHalt, "No agents available, halt dialing"
	case abandonment > target:
		return ActionDecrease, fmt.Sprintf("Estimated abandonment %.1f%% exceeds target %.1f%%, reduce ratio by 10%%", abandonment, target)
	case abandonment < target*0.5:
		return ActionIncrease, fmt.Sprintf("Estimated abandonment %.1f%% well under target, increase ratio by 10%%", abandonment)
	case ratio > d.tuning.HealthyRatioMax:
		return ActionAggressive, fmt.Sprintf("Aggressive mode: ratio %.2f above %.1f, monitor abandonment closely", ratio, d.tuning.HealthyRatioMax)
	default:
		return ActionMaintain, "Ratio is optimal, maintain current pacing"
	}
}

// efficiency blends how close agents run to the target utilization with
// whether the ratio sits inside the healthy band.
func (d *PredictiveDialer) efficiency(p DialingAlgorithmParams, ratio, predicted float64) float64 {
	if p.AvailableAgents == 0 {
		return 0
	}
	t := d.tuning

	busy := math.Min(1, predicted/float64(p.AvailableAgents))
	talkShare := p.AvgCallDuration / (p.AvgCallDuration + p.AvgAgentWrapTime)
	utilization := busy * talkShare

	utilScore := math.Max(0, 100-math.Abs(utilization-t.TargetAgentUtilization)/t.TargetAgentUtilization*100)

	bandScore := 50.0
	if ratio >= t.HealthyRatioMin && ratio <= t.HealthyRatioMax {
		bandScore = 100
	}
	return clampFloat(0.7*utilScore+0.3*bandScore, 0, 100)
}

// RecordSample remembers an observed period, evicting the oldest once
// HistoryCapacity samples are held.
func (d *PredictiveDialer) RecordSample(s HistoricalSample) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.history) < HistoryCapacity {
		d.history = append(d.history, s)
		return
	}
	d.history[d.next] = s
	d.next = (d.next + 1) % HistoryCapacity
}

// Insights averages the remembered samples. It never changes settings.
func (d *PredictiveDialer) Insights() HistoricalInsight {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := len(d.history)
	if n == 0 {
		return HistoricalInsight{}
	}

	var answer, abandon float64
	for _, s := range d.history {
		answer += s.AnswerRate
		abandon += s.AbandonmentRate
	}
	avgAnswer := answer / float64(n)
	avgAbandon := abandon / float64(n)

	return HistoricalInsight{
		SampleCount:         n,
		AvgAnswerRate:       round2(avgAnswer),
		AvgAbandonmentRate:  round2(avgAbandon),
		SuggestedAnswerRate: round2(clampFloat(avgAnswer, 1, 100)),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
