package leadpriority

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/davidleathers/outbound-pacing-backend/internal/domain/call"
	"github.com/davidleathers/outbound-pacing-backend/internal/domain/campaign"
	"github.com/davidleathers/outbound-pacing-backend/internal/domain/errors"
	"github.com/davidleathers/outbound-pacing-backend/internal/domain/lead"
	"github.com/davidleathers/outbound-pacing-backend/internal/testutil/fixtures"
	"github.com/davidleathers/outbound-pacing-backend/internal/testutil/mocks"
)

// 10:00 in America/Chicago.
var prioritizeNow = time.Date(2025, 3, 3, 16, 0, 0, 0, time.UTC)

type prioritizeHarness struct {
	campaign  *campaign.Campaign
	leads     *mocks.LeadStore
	campaigns *mocks.CampaignStore
	outcomes  *mocks.OutcomeReader
	svc       Service
}

func newPrioritizeHarness(t *testing.T) *prioritizeHarness {
	t.Helper()
	h := &prioritizeHarness{
		campaign:  fixtures.NewCampaignBuilder(t).Build(),
		leads:     &mocks.LeadStore{},
		campaigns: &mocks.CampaignStore{},
		outcomes:  &mocks.OutcomeReader{},
	}
	h.campaigns.On("GetCampaign", mock.Anything, h.campaign.ID).Return(h.campaign, nil)
	h.svc = NewService(h.leads, h.campaigns, h.outcomes, DefaultConfig(),
		call.NewMockClock(prioritizeNow), zaptest.NewLogger(t), nil)
	return h
}

func TestPrioritize(t *testing.T) {
	t.Run("ranks leads and writes every priority back", func(t *testing.T) {
		h := newPrioritizeHarness(t)
		mid := fixtures.NewLeadBuilder(t, h.campaign.ID).WithPriority(3).Build()
		low := fixtures.NewLeadBuilder(t, h.campaign.ID).WithPriority(1).Build()
		top := fixtures.NewLeadBuilder(t, h.campaign.ID).WithPriority(5).WithPhone("+13125550100").Build()
		h.leads.On("GetCallableLeads", mock.Anything, h.campaign.ID).Return([]*lead.Lead{mid, low, top}, nil)

		for _, l := range []*lead.Lead{mid, low, top} {
			h.outcomes.On("GetRecentCallOutcomes", mock.Anything, mocks.QueryForLead(l.ID)).Return(nil, nil).Once()
		}
		h.outcomes.On("GetRecentCallOutcomes", mock.Anything, mocks.QueryForPrefix("+1555")).
			Return(nil, nil).Once()
		chicago := fixtures.NewOutcomeBuilder(t, h.campaign.OwnerID, prioritizeNow.Add(-24*time.Hour)).
			WithPhone("+13125559999").Outcomes(20)
		h.outcomes.On("GetRecentCallOutcomes", mock.Anything, mocks.QueryForPrefix("+1312")).
			Return(chicago, nil).Once()

		h.leads.On("SetLeadPriority", mock.Anything, top.ID, 5).Return(nil).Once()
		h.leads.On("SetLeadPriority", mock.Anything, mid.ID, 5).Return(nil).Once()
		h.leads.On("SetLeadPriority", mock.Anything, low.ID, 4).Return(nil).Once()

		res, err := h.svc.Prioritize(context.Background(), h.campaign.ID, 0)
		require.NoError(t, err)

		require.Len(t, res.Scores, 3)
		assert.Equal(t, top.ID, res.Scores[0].LeadID)
		assert.Equal(t, 100.0, res.Scores[0].Score)
		assert.Equal(t, mid.ID, res.Scores[1].LeadID)
		assert.Equal(t, 85.5, res.Scores[1].Score)
		assert.Equal(t, low.ID, res.Scores[2].LeadID)
		assert.Equal(t, 75.5, res.Scores[2].Score)
		assert.Empty(t, res.Failures)
		assert.Equal(t, 3, res.Scored)

		h.leads.AssertExpectations(t)
		h.outcomes.AssertExpectations(t)
	})

	t.Run("limit trims the result but not the write-back", func(t *testing.T) {
		h := newPrioritizeHarness(t)
		a := fixtures.NewLeadBuilder(t, h.campaign.ID).WithPriority(5).Build()
		b := fixtures.NewLeadBuilder(t, h.campaign.ID).WithPriority(1).Build()
		h.leads.On("GetCallableLeads", mock.Anything, h.campaign.ID).Return([]*lead.Lead{a, b}, nil)
		h.outcomes.On("GetRecentCallOutcomes", mock.Anything, mock.Anything).Return(nil, nil)
		h.leads.On("SetLeadPriority", mock.Anything, mock.Anything, mock.Anything).Return(nil)

		res, err := h.svc.Prioritize(context.Background(), h.campaign.ID, 1)
		require.NoError(t, err)
		require.Len(t, res.Scores, 1)
		assert.Equal(t, a.ID, res.Scores[0].LeadID)
		assert.Equal(t, 2, res.Scored)
		h.leads.AssertNumberOfCalls(t, "SetLeadPriority", 2)
	})

	t.Run("failed write does not stop the batch", func(t *testing.T) {
		h := newPrioritizeHarness(t)
		a := fixtures.NewLeadBuilder(t, h.campaign.ID).WithPriority(5).Build()
		b := fixtures.NewLeadBuilder(t, h.campaign.ID).WithPriority(3).Build()
		c := fixtures.NewLeadBuilder(t, h.campaign.ID).WithPriority(1).Build()
		h.leads.On("GetCallableLeads", mock.Anything, h.campaign.ID).Return([]*lead.Lead{a, b, c}, nil)
		h.outcomes.On("GetRecentCallOutcomes", mock.Anything, mock.Anything).Return(nil, nil)
		h.leads.On("SetLeadPriority", mock.Anything, b.ID, mock.Anything).Return(errors.NewInternalError("deadlock")).Once()
		h.leads.On("SetLeadPriority", mock.Anything, mock.Anything, mock.Anything).Return(nil)

		res, err := h.svc.Prioritize(context.Background(), h.campaign.ID, 0)
		require.NoError(t, err)
		require.Len(t, res.Failures, 1)
		assert.Equal(t, b.ID, res.Failures[0].LeadID)
		h.leads.AssertNumberOfCalls(t, "SetLeadPriority", 3)
	})

	t.Run("no callable leads", func(t *testing.T) {
		h := newPrioritizeHarness(t)
		h.leads.On("GetCallableLeads", mock.Anything, h.campaign.ID).Return([]*lead.Lead{}, nil)

		res, err := h.svc.Prioritize(context.Background(), h.campaign.ID, 10)
		require.NoError(t, err)
		assert.Empty(t, res.Scores)
		h.leads.AssertNotCalled(t, "SetLeadPriority", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("history read failure aborts before any write", func(t *testing.T) {
		h := newPrioritizeHarness(t)
		a := fixtures.NewLeadBuilder(t, h.campaign.ID).Build()
		h.leads.On("GetCallableLeads", mock.Anything, h.campaign.ID).Return([]*lead.Lead{a}, nil)
		h.outcomes.On("GetRecentCallOutcomes", mock.Anything, mock.Anything).
			Return(nil, errors.NewTransientError("postgres", "timeout"))

		_, err := h.svc.Prioritize(context.Background(), h.campaign.ID, 0)
		require.Error(t, err)
		assert.True(t, errors.IsTransient(err))
		h.leads.AssertNotCalled(t, "SetLeadPriority", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown campaign", func(t *testing.T) {
		h := newPrioritizeHarness(t)
		missing := uuid.New()
		h.campaigns.On("GetCampaign", mock.Anything, missing).Return(nil, errors.ErrCampaignNotFound)

		_, err := h.svc.Prioritize(context.Background(), missing, 0)
		require.Error(t, err)
		assert.True(t, errors.IsNotFound(err))
	})
}
