package pacing

import (
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeDialingRate(t *testing.T) {
	base := DefaultConcurrencySettings()

	tests := []struct {
		name     string
		current  int
		settings ConcurrencySettings
		validate func(t *testing.T, m DialingRateMetrics)
	}{
		{
			name:     "utilization exactly 0.9 leaves the rate unchanged",
			current:  9,
			settings: base,
			validate: func(t *testing.T, m DialingRateMetrics) {
				assert.Equal(t, 90, m.UtilizationRate)
				assert.Equal(t, 20, m.RecommendedRate)
				assert.Equal(t, 1, m.AvailableSlots)
			},
		},
		{
			name:     "full utilization decreases to 70 percent",
			current:  10,
			settings: base,
			validate: func(t *testing.T, m DialingRateMetrics) {
				assert.Equal(t, 100, m.UtilizationRate)
				assert.Equal(t, 14, m.RecommendedRate)
				assert.Equal(t, 0, m.AvailableSlots)
			},
		},
		{
			name:     "low utilization ramps up",
			current:  2,
			settings: base,
			validate: func(t *testing.T, m DialingRateMetrics) {
				assert.Equal(t, 20, m.UtilizationRate)
				assert.Equal(t, 30, m.RecommendedRate)
			},
		},
		{
			name:    "ramp up is capped at the ceiling",
			current: 0,
			settings: ConcurrencySettings{
				MaxConcurrentCalls: 10,
				CallsPerMinute:     40,
			},
			validate: func(t *testing.T, m DialingRateMetrics) {
				assert.Equal(t, CeilingDialRate, m.RecommendedRate)
			},
		},
		{
			name:    "ramp down is floored",
			current: 10,
			settings: ConcurrencySettings{
				MaxConcurrentCalls: 10,
				CallsPerMinute:     12,
			},
			validate: func(t *testing.T, m DialingRateMetrics) {
				assert.Equal(t, FloorDialRate, m.RecommendedRate)
			},
		},
		{
			name:    "zero max concurrency is zero utilization",
			current: 3,
			settings: ConcurrencySettings{
				MaxConcurrentCalls: 0,
				CallsPerMinute:     20,
			},
			validate: func(t *testing.T, m DialingRateMetrics) {
				assert.Equal(t, 0, m.UtilizationRate)
				assert.Equal(t, 0, m.AvailableSlots)
				assert.Equal(t, 30, m.RecommendedRate)
			},
		},
		{
			name:     "over capacity clamps utilization to 100",
			current:  15,
			settings: base,
			validate: func(t *testing.T, m DialingRateMetrics) {
				assert.Equal(t, 100, m.UtilizationRate)
				assert.Equal(t, 0, m.AvailableSlots)
			},
		},
		{
			name:     "negative concurrency is treated as idle",
			current:  -4,
			settings: base,
			validate: func(t *testing.T, m DialingRateMetrics) {
				assert.Equal(t, 0, m.CurrentConcurrency)
				assert.Equal(t, 10, m.AvailableSlots)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.validate(t, ComputeDialingRate(tt.current, tt.settings))
		})
	}
}

func TestComputeDialingRateWithin(t *testing.T) {
	s := DefaultConcurrencySettings()

	m := ComputeDialingRateWithin(2, s, RateBounds{Min: 12, Max: 25})
	assert.Equal(t, 25, m.RecommendedRate)

	m = ComputeDialingRateWithin(10, s, RateBounds{Min: 16, Max: 25})
	assert.Equal(t, 16, m.RecommendedRate)

	// Bounds outside the safety clamp are pulled back in.
	m = ComputeDialingRateWithin(0, ConcurrencySettings{MaxConcurrentCalls: 10, CallsPerMinute: 40}, RateBounds{Min: 1, Max: 200})
	assert.Equal(t, CeilingDialRate, m.RecommendedRate)

	// Unset bounds only apply the safety clamp.
	assert.Equal(t, ComputeDialingRate(4, s), ComputeDialingRateWithin(4, s, RateBounds{}))
}

func TestComputeDialingRate_Properties(t *testing.T) {
	t.Run("slots and utilization follow the inputs", func(t *testing.T) {
		property := func(current uint8, limit uint8, cpm uint8) bool {
			s := ConcurrencySettings{MaxConcurrentCalls: int(limit), CallsPerMinute: int(cpm)}
			m := ComputeDialingRate(int(current), s)

			wantSlots := int(limit) - int(current)
			if wantSlots < 0 {
				wantSlots = 0
			}
			wantUtil := 0
			if limit > 0 {
				wantUtil = Percent(float64(current) / float64(limit))
			}
			return m.AvailableSlots == wantSlots && m.UtilizationRate == wantUtil
		}
		require.NoError(t, quick.Check(property, &quick.Config{MaxCount: 1000}))
	})

	t.Run("recommended rate stays inside the safety clamp", func(t *testing.T) {
		property := func(current uint8, limit uint8, cpm uint16) bool {
			m := ComputeDialingRate(int(current), ConcurrencySettings{MaxConcurrentCalls: int(limit), CallsPerMinute: int(cpm)})
			return m.RecommendedRate >= FloorDialRate && m.RecommendedRate <= CeilingDialRate
		}
		require.NoError(t, quick.Check(property, &quick.Config{MaxCount: 1000}))
	})

	t.Run("identical inputs give identical output", func(t *testing.T) {
		property := func(current uint8, limit uint8, cpm uint8) bool {
			s := ConcurrencySettings{MaxConcurrentCalls: int(limit), CallsPerMinute: int(cpm)}
			return ComputeDialingRate(int(current), s) == ComputeDialingRate(int(current), s)
		}
		require.NoError(t, quick.Check(property, nil))
	})
}

func TestComputePlatformCapacity(t *testing.T) {
	s := DefaultConcurrencySettings()
	s.RetellMaxConcurrent = 5

	transfers := []Transfer{
		{Platform: PlatformRetell},
		{Platform: PlatformRetell},
		{Platform: PlatformRetell},
		{Platform: "vapi"},
	}

	got := ComputePlatformCapacity(transfers, s)
	require.Len(t, got, 2)

	assert.Equal(t, PlatformCapacity{Active: 3, Max: 5, Available: 2, UtilizationRate: 60}, got[PlatformRetell])
	assert.Equal(t, PlatformCapacity{Active: 0, Max: 5, Available: 5, UtilizationRate: 0}, got[PlatformAssistable])
}

func TestComputePlatformCapacity_ZeroMax(t *testing.T) {
	s := ConcurrencySettings{}
	got := ComputePlatformCapacity([]Transfer{{Platform: PlatformAssistable}}, s)

	assert.Equal(t, PlatformCapacity{Active: 1, Max: 0, Available: 0, UtilizationRate: 0}, got[PlatformAssistable])
}

func TestSettingsValidate(t *testing.T) {
	assert.NoError(t, DefaultPacingSettings().Validate())
	assert.NoError(t, DefaultConcurrencySettings().Validate())

	bad := DefaultPacingSettings()
	bad.MaxDialRate = 5
	bad.LearningRate = 0
	err := bad.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MaxDialRate")
	assert.Contains(t, err.Error(), "LearningRate")

	c := DefaultConcurrencySettings()
	c.CallsPerMinute = -1
	assert.Error(t, c.Validate())
}
