package rest

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/davidleathers/outbound-pacing-backend/internal/domain/campaign"
	"github.com/davidleathers/outbound-pacing-backend/internal/domain/pacing"
	"github.com/davidleathers/outbound-pacing-backend/internal/service/leadpriority"
)

type mockLifecycle struct {
	mock.Mock
}

func (m *mockLifecycle) Start(c *campaign.Campaign) bool {
	return m.Called(c).Bool(0)
}

func (m *mockLifecycle) Stop(campaignID uuid.UUID) bool {
	return m.Called(campaignID).Bool(0)
}

func (m *mockLifecycle) Running(campaignID uuid.UUID) bool {
	return m.Called(campaignID).Bool(0)
}

func (m *mockLifecycle) RefreshSettings(ownerID uuid.UUID, s pacing.PacingSettings) int {
	return m.Called(ownerID, s).Int(0)
}

func (m *mockLifecycle) RefreshConcurrency(ownerID uuid.UUID, s pacing.ConcurrencySettings) int {
	return m.Called(ownerID, s).Int(0)
}

type mockPrioritizer struct {
	mock.Mock
}

func (m *mockPrioritizer) Prioritize(ctx context.Context, campaignID uuid.UUID, limit int) (*leadpriority.Result, error) {
	args := m.Called(ctx, campaignID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*leadpriority.Result), args.Error(1)
}
