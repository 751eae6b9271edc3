package pacing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluate(t *testing.T) {
	s := DefaultPacingSettings()

	tests := []struct {
		name     string
		obs      Observation
		base     int
		wantAdj  Adjustment
		wantRate int
	}{
		{"abandonment over limit decreases", Observation{SampleSize: 100, AnswerRate: 35, AbandonmentRate: 4}, 20, AdjustDecrease, 18},
		{"decrease is floored at the minimum", Observation{SampleSize: 100, AnswerRate: 35, AbandonmentRate: 4}, 10, AdjustDecrease, 10},
		{"low answers with headroom increases", Observation{SampleSize: 100, AnswerRate: 20, AbandonmentRate: 1}, 20, AdjustIncrease, 22},
		{"increase is capped at the maximum", Observation{SampleSize: 100, AnswerRate: 20, AbandonmentRate: 0}, 50, AdjustIncrease, 50},
		{"low answers without headroom maintains", Observation{SampleSize: 100, AnswerRate: 20, AbandonmentRate: 2}, 20, AdjustMaintain, 20},
		{"on target maintains", Observation{SampleSize: 100, AnswerRate: 30, AbandonmentRate: 1}, 20, AdjustMaintain, 20},
		{"abandonment exactly at limit is not a decrease", Observation{SampleSize: 100, AnswerRate: 40, AbandonmentRate: 3}, 20, AdjustMaintain, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := Evaluate(tt.obs, s, tt.base)
			assert.Equal(t, tt.wantAdj, rec.Adjustment)
			assert.Equal(t, tt.wantRate, rec.RecommendedRate)
			assert.Equal(t, tt.base, rec.CurrentRate)
			assert.NotEmpty(t, rec.Reason)
		})
	}
}

func TestEvaluate_EmptyWindowMaintains(t *testing.T) {
	s := DefaultPacingSettings()

	for _, base := range []int{10, 20, 50} {
		rec := Evaluate(Observation{}, s, base)
		assert.Equal(t, AdjustMaintain, rec.Adjustment)
		assert.Equal(t, base, rec.RecommendedRate)
		assert.False(t, rec.IsOptimal)
		assert.Contains(t, rec.Reason, "no outcomes")
	}
}

func TestEvaluate_CustomBounds(t *testing.T) {
	s := DefaultPacingSettings()
	s.MinDialRate = 15
	s.MaxDialRate = 21

	rec := Evaluate(Observation{SampleSize: 100, AnswerRate: 10}, s, 20)
	assert.Equal(t, AdjustIncrease, rec.Adjustment)
	assert.Equal(t, 21, rec.RecommendedRate)

	rec = Evaluate(Observation{SampleSize: 100, AbandonmentRate: 9}, s, 16)
	assert.Equal(t, AdjustDecrease, rec.Adjustment)
	assert.Equal(t, 15, rec.RecommendedRate)
}

func TestEvaluate_IsOptimal(t *testing.T) {
	s := DefaultPacingSettings()

	assert.True(t, Evaluate(Observation{SampleSize: 100, AnswerRate: 25, AbandonmentRate: 3}, s, 20).IsOptimal)
	assert.False(t, Evaluate(Observation{SampleSize: 100, AnswerRate: 23.9, AbandonmentRate: 1}, s, 20).IsOptimal)
	assert.False(t, Evaluate(Observation{SampleSize: 100, AnswerRate: 50, AbandonmentRate: 3.1}, s, 20).IsOptimal)
}

func TestScore(t *testing.T) {
	s := DefaultPacingSettings()

	assert.Equal(t, 100, Score(Observation{AnswerRate: 30, AbandonmentRate: 0, Utilization: 0.85}, s))
	assert.Equal(t, 0, Score(Observation{AnswerRate: 0, AbandonmentRate: 3, Utilization: 0}, s))
	// half the abandonment budget used, answer target met, idle slots
	assert.Equal(t, 60, Score(Observation{AnswerRate: 45, AbandonmentRate: 1.5, Utilization: 0}, s))

	zero := s
	zero.MaxAbandonmentRate = 0
	zero.TargetAnswerRate = 0
	assert.Equal(t, 80, Score(Observation{AnswerRate: 10, AbandonmentRate: 0}, zero))
	assert.Equal(t, 40, Score(Observation{AnswerRate: 10, AbandonmentRate: 1}, zero))
}
