package compliance

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/davidleathers/outbound-pacing-backend/internal/domain/call"
	"github.com/davidleathers/outbound-pacing-backend/internal/domain/campaign"
	"github.com/davidleathers/outbound-pacing-backend/internal/domain/compliance"
	"github.com/davidleathers/outbound-pacing-backend/internal/domain/errors"
	"github.com/davidleathers/outbound-pacing-backend/internal/infrastructure/repository"
	"github.com/davidleathers/outbound-pacing-backend/internal/service/scheduler"
	"github.com/davidleathers/outbound-pacing-backend/internal/testutil/fixtures"
	"github.com/davidleathers/outbound-pacing-backend/internal/testutil/mocks"
)

// 10:00 in America/Chicago.
var monitorNow = time.Date(2025, 3, 3, 16, 0, 0, 0, time.UTC)

type monitorHarness struct {
	campaign  *campaign.Campaign
	clock     *call.MockClock
	outcomes  *mocks.OutcomeReader
	campaigns *mocks.CampaignStore
	store     *mocks.SnapshotStore
	alerts    *mocks.AlertRecorder
	publisher *mocks.Publisher
	lifecycle *mocks.CampaignLifecycle
	monitor   *Monitor
}

func newMonitorHarness(t *testing.T, c *campaign.Campaign) *monitorHarness {
	t.Helper()
	h := &monitorHarness{
		campaign:  c,
		clock:     call.NewMockClock(monitorNow),
		outcomes:  &mocks.OutcomeReader{},
		campaigns: &mocks.CampaignStore{},
		store:     &mocks.SnapshotStore{},
		alerts:    &mocks.AlertRecorder{},
		publisher: &mocks.Publisher{},
		lifecycle: &mocks.CampaignLifecycle{},
	}
	h.monitor = NewMonitor(c.ID, Dependencies{
		Outcomes:  h.outcomes,
		Campaigns: h.campaigns,
		Metrics:   h.store,
		Alerts:    h.alerts,
		Publisher: h.publisher,
		Lifecycle: h.lifecycle,
		Clock:     h.clock,
		Logger:    zaptest.NewLogger(t),
	}, Config{Thresholds: compliance.DefaultThresholds()})
	return h
}

func (h *monitorHarness) today(samples []*call.OutcomeSample) {
	h.campaigns.On("GetCampaign", mock.Anything, h.campaign.ID).Return(h.campaign, nil)
	h.outcomes.On("GetRecentCallOutcomes", mock.Anything, mocks.QuerySince(h.campaign.StartOfDay(monitorNow))).
		Return(samples, nil)
}

func answered(t *testing.T, c *campaign.Campaign, n int) []*call.OutcomeSample {
	return fixtures.NewOutcomeBuilder(t, c.OwnerID, monitorNow.Add(-time.Hour)).ForCampaign(c.ID).Outcomes(n)
}

func TestMonitor_Check(t *testing.T) {
	t.Run("clean day is persisted without alerts", func(t *testing.T) {
		h := newMonitorHarness(t, fixtures.NewCampaignBuilder(t).Build())
		h.today(answered(t, h.campaign, 40))
		h.store.On("PutComplianceMetrics", mock.Anything, mock.AnythingOfType("*compliance.Metrics")).Return(nil).Once()
		h.publisher.On("Publish", mock.Anything, EventComplianceEvaluated, h.campaign.ID, mock.Anything).Once()

		res, err := h.monitor.Check(context.Background())
		require.NoError(t, err)
		require.NotNil(t, res)

		assert.True(t, res.IsWithinCallingHours)
		assert.Empty(t, res.ComplianceViolations)
		assert.Equal(t, 40, res.SampleSize)
		h.alerts.AssertNotCalled(t, "RecordViolation", mock.Anything, mock.Anything, mock.Anything)
		h.campaigns.AssertNotCalled(t, "SetCampaignStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		h.store.AssertExpectations(t)
	})

	t.Run("abandonment above limit pauses an active campaign", func(t *testing.T) {
		h := newMonitorHarness(t, fixtures.NewCampaignBuilder(t).Build())
		samples := answered(t, h.campaign, 24)
		samples = append(samples, fixtures.NewOutcomeBuilder(t, h.campaign.OwnerID, monitorNow.Add(-time.Hour)).
			ForCampaign(h.campaign.ID).Abandoned().Build())
		h.today(samples)

		h.store.On("PutComplianceMetrics", mock.Anything, mock.Anything).Return(nil).Once()
		h.alerts.On("RecordViolation", mock.Anything, h.campaign.ID, mock.MatchedBy(func(v compliance.Violation) bool {
			return v.Type == compliance.ViolationAbandonment && v.Severity == compliance.SeverityHard
		})).Return(nil).Once()
		h.campaigns.On("SetCampaignStatus", mock.Anything, h.campaign.ID, campaign.StatusPaused,
			mock.MatchedBy(func(reason string) bool { return strings.HasPrefix(reason, "compliance: ") })).Return(nil).Once()
		h.publisher.On("Publish", mock.Anything, EventCampaignPaused, h.campaign.ID, mock.Anything).Once()
		h.publisher.On("Publish", mock.Anything, EventComplianceEvaluated, h.campaign.ID, mock.Anything).Once()
		h.lifecycle.On("Retire", h.campaign.ID).Return(true).Once()

		res, err := h.monitor.Check(context.Background())
		require.NoError(t, err)
		assert.InDelta(t, 4.0, res.AbandonmentRate, 1e-9)
		assert.True(t, res.HasHardViolation())

		verr := res.Err()
		require.Error(t, verr)
		assert.Equal(t, 403, errors.GetStatusCode(verr))

		h.alerts.AssertExpectations(t)
		h.campaigns.AssertExpectations(t)
		h.publisher.AssertExpectations(t)
		h.lifecycle.AssertExpectations(t)
	})

	t.Run("paused campaign is not paused again", func(t *testing.T) {
		h := newMonitorHarness(t, fixtures.NewCampaignBuilder(t).WithStatus(campaign.StatusPaused).Build())
		dnc := fixtures.NewOutcomeBuilder(t, h.campaign.OwnerID, monitorNow.Add(-time.Hour)).
			ForCampaign(h.campaign.ID).DNC().Build()
		h.today(append(answered(t, h.campaign, 10), dnc))
		h.store.On("PutComplianceMetrics", mock.Anything, mock.Anything).Return(nil).Once()
		h.alerts.On("RecordViolation", mock.Anything, h.campaign.ID, mock.Anything).Return(nil).Once()
		h.publisher.On("Publish", mock.Anything, EventComplianceEvaluated, h.campaign.ID, mock.Anything).Once()

		res, err := h.monitor.Check(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, res.DNCViolations)
		h.campaigns.AssertNotCalled(t, "SetCampaignStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		h.lifecycle.AssertNotCalled(t, "Retire", mock.Anything)
	})

	t.Run("failed alert write does not stop the pause", func(t *testing.T) {
		c := fixtures.NewCampaignBuilder(t).WithCallingHours("12:00", "13:00").Build()
		h := newMonitorHarness(t, c)
		h.today(nil)
		h.store.On("PutComplianceMetrics", mock.Anything, mock.Anything).Return(nil).Once()
		h.alerts.On("RecordViolation", mock.Anything, c.ID, mock.Anything).Return(errors.NewInternalError("disk full")).Once()
		h.campaigns.On("SetCampaignStatus", mock.Anything, c.ID, campaign.StatusPaused, mock.Anything).Return(nil).Once()
		h.publisher.On("Publish", mock.Anything, mock.Anything, c.ID, mock.Anything)
		h.lifecycle.On("Retire", c.ID).Return(true).Once()

		res, err := h.monitor.Check(context.Background())
		require.NoError(t, err)
		assert.False(t, res.IsWithinCallingHours)
		h.campaigns.AssertExpectations(t)
	})

	t.Run("cancelled check writes nothing", func(t *testing.T) {
		h := newMonitorHarness(t, fixtures.NewCampaignBuilder(t).Build())
		h.today(answered(t, h.campaign, 5))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := h.monitor.Check(ctx)
		require.ErrorIs(t, err, context.Canceled)
		h.store.AssertNotCalled(t, "PutComplianceMetrics", mock.Anything, mock.Anything)
		h.campaigns.AssertNotCalled(t, "SetCampaignStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		h.lifecycle.AssertNotCalled(t, "Retire", mock.Anything)
	})

	t.Run("failed pause keeps the tasks running", func(t *testing.T) {
		h := newMonitorHarness(t, fixtures.NewCampaignBuilder(t).WithCallingHours("12:00", "13:00").Build())
		h.today(nil)
		h.store.On("PutComplianceMetrics", mock.Anything, mock.Anything).Return(nil).Once()
		h.alerts.On("RecordViolation", mock.Anything, h.campaign.ID, mock.Anything).Return(nil).Once()
		h.campaigns.On("SetCampaignStatus", mock.Anything, h.campaign.ID, campaign.StatusPaused, mock.Anything).
			Return(errors.NewTransientError("postgres", "connection reset")).Once()

		_, err := h.monitor.Check(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "pausing campaign")
		h.lifecycle.AssertNotCalled(t, "Retire", mock.Anything)
	})

	t.Run("unreadable outcome rows are skipped", func(t *testing.T) {
		h := newMonitorHarness(t, fixtures.NewCampaignBuilder(t).Build())
		c := h.campaign
		created := monitorNow.Add(-time.Hour)

		var rows [][]any
		for i := 0; i < 24; i++ {
			rows = append(rows, mocks.OutcomeRow(uuid.New(), c.OwnerID, c.ID, "completed", "", created))
		}
		rows = append(rows,
			mocks.OutcomeRow(uuid.New(), c.OwnerID, c.ID, "abandoned", "", created),
			mocks.OutcomeRow(uuid.New(), c.OwnerID, c.ID, "voicemail_detected", "", created),
			mocks.OutcomeRow(uuid.New(), c.OwnerID, c.ID, "completed", "hung_up_angry", created),
		)
		h.monitor.deps.Outcomes = repository.NewOutcomeRepository(&mocks.DB{Rows: rows}, zaptest.NewLogger(t))

		h.campaigns.On("GetCampaign", mock.Anything, c.ID).Return(c, nil)
		h.store.On("PutComplianceMetrics", mock.Anything, mock.Anything).Return(nil).Once()
		h.alerts.On("RecordViolation", mock.Anything, c.ID, mock.Anything).Return(nil).Once()
		h.campaigns.On("SetCampaignStatus", mock.Anything, c.ID, campaign.StatusPaused, mock.Anything).Return(nil).Once()
		h.publisher.On("Publish", mock.Anything, mock.Anything, c.ID, mock.Anything)
		h.lifecycle.On("Retire", c.ID).Return(true).Once()

		res, err := h.monitor.Check(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 25, res.SampleSize)
		assert.InDelta(t, 4.0, res.AbandonmentRate, 1e-9)
		assert.True(t, res.HasHardViolation())
		h.campaigns.AssertExpectations(t)
	})

	t.Run("non-transient read failure is returned without cooldown", func(t *testing.T) {
		h := newMonitorHarness(t, fixtures.NewCampaignBuilder(t).Build())
		h.campaigns.On("GetCampaign", mock.Anything, h.campaign.ID).Return(nil, errors.ErrCampaignNotFound)

		_, err := h.monitor.Check(context.Background())
		require.Error(t, err)
		assert.True(t, errors.IsNotFound(err))
		assert.False(t, h.monitor.InCooldown(monitorNow))
	})
}

func TestMonitor_TransientCooldown(t *testing.T) {
	h := newMonitorHarness(t, fixtures.NewCampaignBuilder(t).Build())
	h.campaigns.On("GetCampaign", mock.Anything, h.campaign.ID).
		Return(nil, errors.NewTransientError("postgres", "connection refused")).Once()

	err := h.monitor.Tick(context.Background())
	require.ErrorIs(t, err, scheduler.ErrNoData)
	assert.True(t, h.monitor.InCooldown(monitorNow))

	h.clock.Advance(30 * time.Second)
	require.ErrorIs(t, h.monitor.Tick(context.Background()), scheduler.ErrNoData)
	h.campaigns.AssertNumberOfCalls(t, "GetCampaign", 1)

	h.clock.Advance(31 * time.Second)
	h.today(answered(t, h.campaign, 3))
	h.store.On("PutComplianceMetrics", mock.Anything, mock.Anything).Return(nil).Once()
	h.publisher.On("Publish", mock.Anything, EventComplianceEvaluated, h.campaign.ID, mock.Anything).Once()

	require.NoError(t, h.monitor.Tick(context.Background()))
	h.campaigns.AssertNumberOfCalls(t, "GetCampaign", 2)
}
