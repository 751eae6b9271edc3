package pacing

import (
	"context"

	"github.com/google/uuid"

	"github.com/davidleathers/outbound-pacing-backend/internal/domain/call"
	"github.com/davidleathers/outbound-pacing-backend/internal/domain/campaign"
	"github.com/davidleathers/outbound-pacing-backend/internal/domain/pacing"
)

// EventPacingEvaluated is published after every completed pacing tick.
const EventPacingEvaluated = "pacing.evaluated"

// OutcomeReader reads historical call outcomes.
type OutcomeReader interface {
	GetRecentCallOutcomes(ctx context.Context, q call.OutcomeQuery) ([]*call.OutcomeSample, error)
}

// SettingsStore reads owner settings and moves the active dial rate.
// Missing records come back as defaults. SetDialRate writes next only while
// the stored rate still equals expected and reports whether it did.
type SettingsStore interface {
	GetPacingSettings(ctx context.Context, ownerID uuid.UUID) (pacing.PacingSettings, error)
	GetConcurrencySettings(ctx context.Context, ownerID uuid.UUID) (pacing.ConcurrencySettings, error)
	SetDialRate(ctx context.Context, ownerID uuid.UUID, expected, next int) (bool, error)
}

// CampaignReader looks up the campaign a loop paces.
type CampaignReader interface {
	GetCampaign(ctx context.Context, id uuid.UUID) (*campaign.Campaign, error)
}

// SnapshotStore keeps the latest pacing output per campaign.
type SnapshotStore interface {
	PutPacingSnapshot(ctx context.Context, s *pacing.Snapshot) error
}

// Publisher pushes evaluation results to live subscribers.
type Publisher interface {
	Publish(ctx context.Context, eventType string, campaignID uuid.UUID, payload any)
}
