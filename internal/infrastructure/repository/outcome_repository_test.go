package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/davidleathers/outbound-pacing-backend/internal/domain/call"
	"github.com/davidleathers/outbound-pacing-backend/internal/domain/pacing"
	"github.com/davidleathers/outbound-pacing-backend/internal/testutil/mocks"
)

func TestOutcomeRepository_SkipsUnreadableRows(t *testing.T) {
	owner, campaignID := uuid.New(), uuid.New()
	created := time.Date(2025, 3, 3, 15, 0, 0, 0, time.UTC)
	badStatus, badDisposition := uuid.New(), uuid.New()

	db := &mocks.DB{Rows: [][]any{
		mocks.OutcomeRow(uuid.New(), owner, campaignID, "completed", "", created),
		mocks.OutcomeRow(uuid.New(), owner, campaignID, "abandoned", "", created),
		mocks.OutcomeRow(badStatus, owner, campaignID, "voicemail_detected", "", created),
		mocks.OutcomeRow(badDisposition, owner, campaignID, "completed", "hung_up_angry", created),
		mocks.OutcomeRow(uuid.New(), owner, campaignID, "completed", "interested", created),
	}}
	core, logs := observer.New(zapcore.WarnLevel)
	repo := NewOutcomeRepository(db, zap.New(core))

	got, err := repo.GetRecentCallOutcomes(context.Background(), call.OutcomeQuery{
		OwnerID: owner, CampaignID: &campaignID, Since: created.Add(-time.Hour),
	})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, call.StatusAbandoned, got[1].Status)
	assert.Equal(t, call.DispositionInterested, got[2].Disposition)

	skipped := logs.FilterMessage("skipping unreadable call outcome").All()
	require.Len(t, skipped, 2)
	assert.Equal(t, badStatus.String(), skipped[0].ContextMap()["outcome_id"])
	assert.Equal(t, badDisposition.String(), skipped[1].ContextMap()["outcome_id"])

	st := call.Summarize(got)
	assert.Equal(t, 3, st.Answered)
	assert.InDelta(t, 33.33, st.AbandonmentRate(), 0.01)
}

func TestSettingsRepository_SetDialRate(t *testing.T) {
	owner := uuid.New()
	defaults := pacing.DefaultConcurrencySettings()

	tests := []struct {
		name      string
		expected  int
		tags      []string
		wantOK    bool
		wantExecs int
	}{
		{"stored rate matches", 30, []string{"UPDATE 1"}, true, 1},
		{"stored rate moved on", 30, []string{"UPDATE 0"}, false, 1},
		{"no row yet, default rate expected", defaults.CallsPerMinute, []string{"UPDATE 0", "INSERT 0 1"}, true, 2},
		{"row created concurrently", defaults.CallsPerMinute, []string{"UPDATE 0", "INSERT 0 0"}, false, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := &mocks.DB{Tags: tt.tags}
			repo := NewSettingsRepository(db, pacing.DefaultPacingSettings(), defaults)

			ok, err := repo.SetDialRate(context.Background(), owner, tt.expected, tt.expected+2)
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			assert.Len(t, db.Execs, tt.wantExecs)
		})
	}
}
