package mocks

import (
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// CampaignLifecycle mock
type CampaignLifecycle struct {
	mock.Mock
}

func (m *CampaignLifecycle) Retire(campaignID uuid.UUID) bool {
	args := m.Called(campaignID)
	return args.Bool(0)
}
