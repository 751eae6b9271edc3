package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/davidleathers/outbound-pacing-backend/internal/domain/call"
	"github.com/davidleathers/outbound-pacing-backend/internal/domain/campaign"
	"github.com/davidleathers/outbound-pacing-backend/internal/domain/compliance"
	"github.com/davidleathers/outbound-pacing-backend/internal/domain/lead"
	"github.com/davidleathers/outbound-pacing-backend/internal/domain/pacing"
)

// OutcomeReader mock
type OutcomeReader struct {
	mock.Mock
}

func (m *OutcomeReader) GetRecentCallOutcomes(ctx context.Context, q call.OutcomeQuery) ([]*call.OutcomeSample, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*call.OutcomeSample), args.Error(1)
}

// SettingsStore mock
type SettingsStore struct {
	mock.Mock
}

func (m *SettingsStore) GetPacingSettings(ctx context.Context, ownerID uuid.UUID) (pacing.PacingSettings, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).(pacing.PacingSettings), args.Error(1)
}

func (m *SettingsStore) PutPacingSettings(ctx context.Context, ownerID uuid.UUID, s pacing.PacingSettings) error {
	args := m.Called(ctx, ownerID, s)
	return args.Error(0)
}

func (m *SettingsStore) GetConcurrencySettings(ctx context.Context, ownerID uuid.UUID) (pacing.ConcurrencySettings, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).(pacing.ConcurrencySettings), args.Error(1)
}

func (m *SettingsStore) PutConcurrencySettings(ctx context.Context, ownerID uuid.UUID, s pacing.ConcurrencySettings) error {
	args := m.Called(ctx, ownerID, s)
	return args.Error(0)
}

func (m *SettingsStore) SetDialRate(ctx context.Context, ownerID uuid.UUID, expected, next int) (bool, error) {
	args := m.Called(ctx, ownerID, expected, next)
	return args.Bool(0), args.Error(1)
}

// CampaignStore mock
type CampaignStore struct {
	mock.Mock
}

func (m *CampaignStore) GetCampaign(ctx context.Context, id uuid.UUID) (*campaign.Campaign, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*campaign.Campaign), args.Error(1)
}

func (m *CampaignStore) SetCampaignStatus(ctx context.Context, id uuid.UUID, status campaign.Status, reason string) error {
	args := m.Called(ctx, id, status, reason)
	return args.Error(0)
}

// LeadStore mock
type LeadStore struct {
	mock.Mock
}

func (m *LeadStore) GetCallableLeads(ctx context.Context, campaignID uuid.UUID) ([]*lead.Lead, error) {
	args := m.Called(ctx, campaignID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*lead.Lead), args.Error(1)
}

func (m *LeadStore) SetLeadPriority(ctx context.Context, leadID uuid.UUID, priority int) error {
	args := m.Called(ctx, leadID, priority)
	return args.Error(0)
}

// TransferReader mock
type TransferReader struct {
	mock.Mock
}

func (m *TransferReader) GetActiveTransfers(ctx context.Context, ownerID uuid.UUID) ([]pacing.Transfer, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]pacing.Transfer), args.Error(1)
}

// SnapshotStore mock
type SnapshotStore struct {
	mock.Mock
}

func (m *SnapshotStore) PutPacingSnapshot(ctx context.Context, s *pacing.Snapshot) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *SnapshotStore) GetPacingSnapshot(ctx context.Context, campaignID uuid.UUID) (*pacing.Snapshot, error) {
	args := m.Called(ctx, campaignID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pacing.Snapshot), args.Error(1)
}

func (m *SnapshotStore) PutComplianceMetrics(ctx context.Context, cm *compliance.Metrics) error {
	args := m.Called(ctx, cm)
	return args.Error(0)
}

func (m *SnapshotStore) GetComplianceMetrics(ctx context.Context, campaignID uuid.UUID) (*compliance.Metrics, error) {
	args := m.Called(ctx, campaignID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*compliance.Metrics), args.Error(1)
}

// AlertRecorder mock
type AlertRecorder struct {
	mock.Mock
}

func (m *AlertRecorder) RecordViolation(ctx context.Context, campaignID uuid.UUID, v compliance.Violation) error {
	args := m.Called(ctx, campaignID, v)
	return args.Error(0)
}

// Publisher mock
type Publisher struct {
	mock.Mock
}

func (m *Publisher) Publish(ctx context.Context, eventType string, campaignID uuid.UUID, payload any) {
	m.Called(ctx, eventType, campaignID, payload)
}
