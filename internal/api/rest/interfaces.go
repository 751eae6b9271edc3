package rest

import (
	"context"

	"github.com/google/uuid"

	"github.com/davidleathers/outbound-pacing-backend/internal/domain/campaign"
	"github.com/davidleathers/outbound-pacing-backend/internal/domain/compliance"
	"github.com/davidleathers/outbound-pacing-backend/internal/domain/pacing"
)

// SettingsStore reads and writes per-owner settings.
type SettingsStore interface {
	GetPacingSettings(ctx context.Context, ownerID uuid.UUID) (pacing.PacingSettings, error)
	PutPacingSettings(ctx context.Context, ownerID uuid.UUID, s pacing.PacingSettings) error
	GetConcurrencySettings(ctx context.Context, ownerID uuid.UUID) (pacing.ConcurrencySettings, error)
	PutConcurrencySettings(ctx context.Context, ownerID uuid.UUID, s pacing.ConcurrencySettings) error
}

// CampaignStore resolves campaigns and changes their status.
type CampaignStore interface {
	GetCampaign(ctx context.Context, id uuid.UUID) (*campaign.Campaign, error)
	SetCampaignStatus(ctx context.Context, id uuid.UUID, status campaign.Status, reason string) error
}

// SnapshotReader reads the latest pacing and compliance output.
type SnapshotReader interface {
	GetPacingSnapshot(ctx context.Context, campaignID uuid.UUID) (*pacing.Snapshot, error)
	GetComplianceMetrics(ctx context.Context, campaignID uuid.UUID) (*compliance.Metrics, error)
}

// Lifecycle starts and stops campaign tasks and pushes settings changes into
// running pacing loops.
type Lifecycle interface {
	Start(c *campaign.Campaign) bool
	Stop(campaignID uuid.UUID) bool
	Running(campaignID uuid.UUID) bool
	RefreshSettings(ownerID uuid.UUID, s pacing.PacingSettings) int
	RefreshConcurrency(ownerID uuid.UUID, s pacing.ConcurrencySettings) int
}

// HealthChecker reports whether a backing dependency is reachable.
type HealthChecker func(ctx context.Context) error
