package compliance_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidleathers/outbound-pacing-backend/internal/domain/call"
	"github.com/davidleathers/outbound-pacing-backend/internal/domain/campaign"
	"github.com/davidleathers/outbound-pacing-backend/internal/domain/compliance"
	"github.com/davidleathers/outbound-pacing-backend/internal/domain/errors"
)

// 12:00 in New York
var evalNow = time.Date(2025, 1, 15, 17, 0, 0, 0, time.UTC)

func answeredSamples(answered, abandoned int) []*call.OutcomeSample {
	out := make([]*call.OutcomeSample, 0, answered)
	for i := 0; i < answered; i++ {
		status := call.StatusCompleted
		if i < abandoned {
			status = call.StatusAbandoned
		}
		out = append(out, &call.OutcomeSample{ID: uuid.New(), Status: status, CreatedAt: evalNow.Add(-time.Hour)})
	}
	return out
}

func newCampaign() *campaign.Campaign {
	return &campaign.Campaign{
		ID:                uuid.New(),
		OwnerID:           uuid.New(),
		Status:            campaign.StatusActive,
		Timezone:          "America/New_York",
		CallingHoursStart: "09:00",
		CallingHoursEnd:   "20:00",
	}
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name     string
		samples  []*call.OutcomeSample
		mutate   func(c *campaign.Campaign)
		validate func(t *testing.T, m *compliance.Metrics)
	}{
		{
			name:    "four percent abandonment is a hard violation",
			samples: answeredSamples(25, 1),
			validate: func(t *testing.T, m *compliance.Metrics) {
				assert.Equal(t, 4.0, m.AbandonmentRate)
				require.True(t, m.HasHardViolation())
				require.Len(t, m.ComplianceViolations, 1)
				assert.Equal(t, compliance.ViolationAbandonment, m.ComplianceViolations[0].Type)
				assert.Equal(t, compliance.SeverityHard, m.ComplianceViolations[0].Severity)
				assert.Contains(t, m.PauseReason(), "abandonment rate 4.00%")
			},
		},
		{
			name:    "two percent abandonment is clean",
			samples: answeredSamples(50, 1),
			validate: func(t *testing.T, m *compliance.Metrics) {
				assert.Equal(t, 2.0, m.AbandonmentRate)
				assert.False(t, m.HasHardViolation())
				assert.Empty(t, m.Warnings)
				assert.True(t, m.IsWithinCallingHours)
			},
		},
		{
			name:    "between warning and hard limit only warns",
			samples: answeredSamples(38, 1),
			validate: func(t *testing.T, m *compliance.Metrics) {
				assert.False(t, m.HasHardViolation())
				require.Len(t, m.Warnings, 1)
				assert.Equal(t, compliance.SeverityWarning, m.Warnings[0].Severity)
			},
		},
		{
			name: "any dnc violation is hard",
			samples: append(answeredSamples(10, 0), &call.OutcomeSample{
				Status: call.StatusCompleted, DNCViolation: true, CreatedAt: evalNow,
			}),
			validate: func(t *testing.T, m *compliance.Metrics) {
				assert.Equal(t, 1, m.DNCViolations)
				require.Len(t, m.ComplianceViolations, 1)
				assert.Equal(t, compliance.ViolationDNC, m.ComplianceViolations[0].Type)
			},
		},
		{
			name:    "outside calling hours is hard",
			samples: nil,
			mutate: func(c *campaign.Campaign) {
				c.Timezone = "Asia/Tokyo"
			},
			validate: func(t *testing.T, m *compliance.Metrics) {
				// 02:00 in Tokyo
				assert.False(t, m.IsWithinCallingHours)
				require.Len(t, m.ComplianceViolations, 1)
				assert.Equal(t, compliance.ViolationCallingHours, m.ComplianceViolations[0].Type)
			},
		},
		{
			name:    "no samples means zero rates",
			samples: nil,
			validate: func(t *testing.T, m *compliance.Metrics) {
				assert.Equal(t, 0.0, m.AbandonmentRate)
				assert.Equal(t, 0, m.SampleSize)
				assert.NotNil(t, m.ComplianceViolations)
				assert.False(t, m.HasHardViolation())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newCampaign()
			if tt.mutate != nil {
				tt.mutate(c)
			}
			m, err := compliance.Evaluate(c, tt.samples, evalNow, compliance.DefaultThresholds())
			require.NoError(t, err)
			assert.Equal(t, c.ID, m.CampaignID)
			assert.Equal(t, evalNow, m.EvaluatedAt)
			for _, v := range m.ComplianceViolations {
				assert.Equal(t, c.ID, v.CampaignID)
			}
			tt.validate(t, m)
		})
	}
}

func TestEvaluate_MalformedCallingHours(t *testing.T) {
	c := newCampaign()
	c.CallingHoursEnd = "late"

	_, err := compliance.Evaluate(c, nil, evalNow, compliance.DefaultThresholds())
	assert.Error(t, err)
}

func TestMetrics_Err(t *testing.T) {
	clean, err := compliance.Evaluate(newCampaign(), answeredSamples(50, 1), evalNow, compliance.DefaultThresholds())
	require.NoError(t, err)
	assert.NoError(t, clean.Err())

	hard, err := compliance.Evaluate(newCampaign(), answeredSamples(25, 1), evalNow, compliance.DefaultThresholds())
	require.NoError(t, err)

	verr := hard.Err()
	require.Error(t, verr)
	assert.True(t, errors.IsType(verr, errors.ErrorTypeCompliance))
	assert.Equal(t, 403, errors.GetStatusCode(verr))
	assert.False(t, errors.IsRetryable(verr))
	assert.Equal(t, hard.PauseReason(), verr.Error())

	var appErr *errors.AppError
	require.ErrorAs(t, verr, &appErr)
	assert.Equal(t, string(compliance.ViolationAbandonment), appErr.Details["violation_type"])
}
