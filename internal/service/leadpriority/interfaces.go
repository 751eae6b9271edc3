package leadpriority

import (
	"context"

	"github.com/google/uuid"

	"github.com/davidleathers/outbound-pacing-backend/internal/domain/call"
	"github.com/davidleathers/outbound-pacing-backend/internal/domain/campaign"
	"github.com/davidleathers/outbound-pacing-backend/internal/domain/lead"
)

// Service scores a campaign's callable leads and writes their priorities back.
type Service interface {
	Prioritize(ctx context.Context, campaignID uuid.UUID, limit int) (*Result, error)
}

// LeadStore reads callable leads and updates their priority.
type LeadStore interface {
	GetCallableLeads(ctx context.Context, campaignID uuid.UUID) ([]*lead.Lead, error)
	SetLeadPriority(ctx context.Context, leadID uuid.UUID, priority int) error
}

// CampaignReader resolves the campaign owning the leads.
type CampaignReader interface {
	GetCampaign(ctx context.Context, id uuid.UUID) (*campaign.Campaign, error)
}

// OutcomeReader reads historical call outcomes.
type OutcomeReader interface {
	GetRecentCallOutcomes(ctx context.Context, q call.OutcomeQuery) ([]*call.OutcomeSample, error)
}
