package compliance

import (
	"context"

	"github.com/google/uuid"

	"github.com/davidleathers/outbound-pacing-backend/internal/domain/call"
	"github.com/davidleathers/outbound-pacing-backend/internal/domain/campaign"
	"github.com/davidleathers/outbound-pacing-backend/internal/domain/compliance"
)

// Events published by the monitor.
const (
	EventComplianceEvaluated = "compliance.evaluated"
	EventCampaignPaused      = "campaign.paused"
)

// OutcomeReader reads historical call outcomes.
type OutcomeReader interface {
	GetRecentCallOutcomes(ctx context.Context, q call.OutcomeQuery) ([]*call.OutcomeSample, error)
}

// CampaignStore reads campaigns and moves them between statuses.
type CampaignStore interface {
	GetCampaign(ctx context.Context, id uuid.UUID) (*campaign.Campaign, error)
	SetCampaignStatus(ctx context.Context, id uuid.UUID, status campaign.Status, reason string) error
}

// CampaignLifecycle retires the periodic tasks of a paused campaign without
// waiting for them, so it is safe to call from inside a tick.
type CampaignLifecycle interface {
	Retire(campaignID uuid.UUID) bool
}

// MetricsStore persists compliance snapshots.
type MetricsStore interface {
	PutComplianceMetrics(ctx context.Context, m *compliance.Metrics) error
}

// AlertRecorder records hard violations.
type AlertRecorder interface {
	RecordViolation(ctx context.Context, campaignID uuid.UUID, v compliance.Violation) error
}

// Publisher pushes evaluation results to live subscribers.
type Publisher interface {
	Publish(ctx context.Context, eventType string, campaignID uuid.UUID, payload any)
}
