package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidleathers/outbound-pacing-backend/internal/domain/pacing"
)

func execute(t *testing.T, args ...string) ([]byte, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.Bytes(), err
}

func TestRateCmd(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected pacing.DialingRateMetrics
	}{
		{
			name: "low utilization ramps up",
			args: []string{"rate", "--current", "2"},
			expected: pacing.DialingRateMetrics{
				CurrentConcurrency: 2, MaxConcurrency: 10, UtilizationRate: 20, RecommendedRate: 30, AvailableSlots: 8,
			},
		},
		{
			name: "saturated ramps down",
			args: []string{"rate", "--current", "10"},
			expected: pacing.DialingRateMetrics{
				CurrentConcurrency: 10, MaxConcurrency: 10, UtilizationRate: 100, RecommendedRate: 14, AvailableSlots: 0,
			},
		},
		{
			name: "overrides from flags",
			args: []string{"rate", "--current", "5", "--max-concurrent", "20", "--calls-per-minute", "40"},
			expected: pacing.DialingRateMetrics{
				CurrentConcurrency: 5, MaxConcurrency: 20, UtilizationRate: 25, RecommendedRate: 50, AvailableSlots: 15,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, tt.args...)
			require.NoError(t, err)

			var got pacing.DialingRateMetrics
			require.NoError(t, json.Unmarshal(out, &got))
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestRateCmd_InvalidOverride(t *testing.T) {
	_, err := execute(t, "rate", "--max-concurrent", "-1")
	assert.Error(t, err)
}

func TestPredictiveCmd(t *testing.T) {
	t.Run("valid statistics", func(t *testing.T) {
		out, err := execute(t, "predictive", "--agents", "5", "--answer-rate", "40")
		require.NoError(t, err)

		var m pacing.PredictiveMetrics
		require.NoError(t, json.Unmarshal(out, &m))
		assert.Greater(t, m.DialingRatio, 1.0)
		assert.Greater(t, m.OptimalConcurrency, 5)
	})

	t.Run("rejected statistics print the fallback", func(t *testing.T) {
		out, err := execute(t, "predictive", "--answer-rate", "0")
		require.Error(t, err)

		var m pacing.PredictiveMetrics
		require.NoError(t, json.Unmarshal(out, &m))
		assert.Equal(t, 1.0, m.DialingRatio)
		assert.Equal(t, pacing.ActionHalt, m.RecommendedAction)
	})
}

func TestEvaluateCmd(t *testing.T) {
	out, err := execute(t, "evaluate", "--answer-rate", "10", "--abandonment-rate", "0.5", "--rate", "20")
	require.NoError(t, err)

	var rec pacing.Recommendation
	require.NoError(t, json.Unmarshal(out, &rec))
	assert.Equal(t, pacing.AdjustIncrease, rec.Adjustment)
	assert.Equal(t, 22, rec.RecommendedRate)

	out, err = execute(t, "evaluate", "--answer-rate", "30", "--abandonment-rate", "5", "--rate", "20")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(out, &rec))
	assert.Equal(t, pacing.AdjustDecrease, rec.Adjustment)
	assert.Equal(t, 18, rec.RecommendedRate)

	out, err = execute(t, "evaluate", "--answer-rate", "10", "--samples", "0", "--rate", "20")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(out, &rec))
	assert.Equal(t, pacing.AdjustMaintain, rec.Adjustment)
	assert.Equal(t, 20, rec.RecommendedRate)
}
