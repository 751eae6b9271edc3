package dialing

import (
	"context"

	"github.com/google/uuid"

	"github.com/davidleathers/outbound-pacing-backend/internal/domain/campaign"
	"github.com/davidleathers/outbound-pacing-backend/internal/domain/compliance"
	"github.com/davidleathers/outbound-pacing-backend/internal/domain/pacing"
)

// Service answers rate, capacity and dispatch questions for the dispatch
// trigger.
type Service interface {
	// RateFor computes the dialing-rate metrics of an owner at the given
	// number of active calls.
	RateFor(ctx context.Context, ownerID uuid.UUID, current int) (pacing.DialingRateMetrics, error)

	// RateWith computes the metrics for explicit settings without reading
	// the store.
	RateWith(current int, s pacing.ConcurrencySettings) pacing.DialingRateMetrics

	// Predict runs the predictive algorithm. Invalid params yield the
	// fallback metrics together with the validation error.
	Predict(ctx context.Context, p pacing.DialingAlgorithmParams) (pacing.PredictiveMetrics, error)

	// Insights summarizes the samples recorded by pacing loops.
	Insights() pacing.HistoricalInsight

	// PlatformCapacity reports per-platform slot usage from active transfers.
	PlatformCapacity(ctx context.Context, ownerID uuid.UUID) (map[pacing.Platform]pacing.PlatformCapacity, error)

	// Authorize decides how many of the requested calls may be placed now.
	Authorize(ctx context.Context, req AuthorizeRequest) (*Authorization, error)
}

// CampaignReader resolves campaigns.
type CampaignReader interface {
	GetCampaign(ctx context.Context, id uuid.UUID) (*campaign.Campaign, error)
}

// SettingsReader reads owner settings, returning defaults when none are
// stored.
type SettingsReader interface {
	GetPacingSettings(ctx context.Context, ownerID uuid.UUID) (pacing.PacingSettings, error)
	GetConcurrencySettings(ctx context.Context, ownerID uuid.UUID) (pacing.ConcurrencySettings, error)
}

// TransferReader lists transfers currently occupying platform slots.
type TransferReader interface {
	GetActiveTransfers(ctx context.Context, ownerID uuid.UUID) ([]pacing.Transfer, error)
}

// ComplianceReader reads the latest compliance snapshot.
type ComplianceReader interface {
	GetComplianceMetrics(ctx context.Context, campaignID uuid.UUID) (*compliance.Metrics, error)
}
