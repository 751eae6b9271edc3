package pacing

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// Adjustment is the direction the pacing loop moves the dial rate.
type Adjustment string

const (
	AdjustIncrease Adjustment = "increase"
	AdjustDecrease Adjustment = "decrease"
	AdjustMaintain Adjustment = "maintain"
)

// targetUtilization is the slot utilization the pacing score rewards.
const targetUtilization = 0.85

// Observation is what one pacing tick measured from recent outcomes.
type Observation struct {
	AnswerRate      float64 `json:"answer_rate"`
	AbandonmentRate float64 `json:"abandonment_rate"`
	CurrentDialRate float64 `json:"current_dial_rate"`
	AvgWaitTime     float64 `json:"avg_wait_time"`
	Utilization     float64 `json:"utilization"`
	SampleSize      int     `json:"sample_size"`
}

// Recommendation is the pacing verdict for a tick.
type Recommendation struct {
	Adjustment      Adjustment `json:"adjustment"`
	CurrentRate     int        `json:"current_rate"`
	RecommendedRate int        `json:"recommended_rate"`
	PacingScore     int        `json:"pacing_score"`
	IsOptimal       bool       `json:"is_optimal"`
	Reason          string     `json:"reason"`
}

// Snapshot is the latest pacing output persisted per campaign.
type Snapshot struct {
	CampaignID     uuid.UUID          `json:"campaign_id"`
	OwnerID        uuid.UUID          `json:"owner_id"`
	Observation    Observation        `json:"observation"`
	DialingRate    DialingRateMetrics `json:"dialing_rate"`
	Recommendation Recommendation     `json:"recommendation"`
	Applied        bool               `json:"applied"`
	EvaluatedAt    time.Time          `json:"evaluated_at"`
}

// Evaluate applies the pacing decision rule to an observation. baseRate is
// the dial rate currently configured, in calls per minute. An observation
// without samples never moves the rate.
func Evaluate(obs Observation, s PacingSettings, baseRate int) Recommendation {
	rec := Recommendation{
		Adjustment:  AdjustMaintain,
		CurrentRate: baseRate,
		PacingScore: Score(obs, s),
		IsOptimal:   obs.AbandonmentRate <= s.MaxAbandonmentRate && obs.AnswerRate >= 0.8*s.TargetAnswerRate,
	}

	rate := float64(baseRate)
	switch {
	case obs.SampleSize == 0:
		rec.IsOptimal = false
		rec.Reason = "no outcomes in window, maintain"
	case obs.AbandonmentRate > s.MaxAbandonmentRate:
		rec.Adjustment = AdjustDecrease
		rate = math.Max(rate*(1-s.LearningRate), float64(s.MinDialRate))
		rec.Reason = fmt.Sprintf("abandonment %.2f%% above limit %.2f%%", obs.AbandonmentRate, s.MaxAbandonmentRate)
	case obs.AnswerRate < s.TargetAnswerRate && obs.AbandonmentRate < s.MaxAbandonmentRate/2:
		rec.Adjustment = AdjustIncrease
		rate = math.Min(rate*(1+s.LearningRate), float64(s.MaxDialRate))
		rec.Reason = fmt.Sprintf("answer rate %.2f%% below target %.2f%% with abandonment headroom", obs.AnswerRate, s.TargetAnswerRate)
	default:
		rec.Reason = "metrics within target, maintain"
	}

	rec.RecommendedRate = s.Bounds().Clamp(int(math.Round(rate)))
	return rec
}

// Score blends abandonment avoidance (40%), answer-rate attainment (40%) and
// slot utilization (20%) into 0-100.
func Score(obs Observation, s PacingSettings) int {
	abandonTerm := 100.0
	switch {
	case s.MaxAbandonmentRate > 0:
		abandonTerm = clampFloat(100*(1-obs.AbandonmentRate/s.MaxAbandonmentRate), 0, 100)
	case obs.AbandonmentRate > 0:
		abandonTerm = 0
	}

	answerTerm := 100.0
	if s.TargetAnswerRate > 0 {
		answerTerm = clampFloat(obs.AnswerRate/s.TargetAnswerRate*100, 0, 100)
	}

	u := clampFloat(obs.Utilization, 0, 1)
	utilTerm := math.Max(0, 100-math.Abs(u-targetUtilization)/targetUtilization*100)

	return int(math.Round(clampFloat(0.4*abandonTerm+0.4*answerTerm+0.2*utilTerm, 0, 100)))
}
