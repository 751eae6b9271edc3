package fixtures

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/davidleathers/outbound-pacing-backend/internal/domain/campaign"
)

// CampaignBuilder builds test campaigns
type CampaignBuilder struct {
	t *testing.T
	c campaign.Campaign
}

// NewCampaignBuilder creates an active campaign dialing 09:00-21:00 in
// America/Chicago
func NewCampaignBuilder(t *testing.T) *CampaignBuilder {
	t.Helper()
	now := time.Now().UTC()
	return &CampaignBuilder{
		t: t,
		c: campaign.Campaign{
			ID:                uuid.New(),
			OwnerID:           uuid.New(),
			Name:              "Test Campaign",
			Status:            campaign.StatusActive,
			Timezone:          "America/Chicago",
			CallingHoursStart: "09:00",
			CallingHoursEnd:   "21:00",
			CreatedAt:         now,
			UpdatedAt:         now,
		},
	}
}

// WithID sets the campaign ID
func (b *CampaignBuilder) WithID(id uuid.UUID) *CampaignBuilder {
	b.c.ID = id
	return b
}

// WithOwner sets the owning account
func (b *CampaignBuilder) WithOwner(id uuid.UUID) *CampaignBuilder {
	b.c.OwnerID = id
	return b
}

// WithStatus sets the status
func (b *CampaignBuilder) WithStatus(s campaign.Status) *CampaignBuilder {
	b.c.Status = s
	return b
}

// WithTimezone sets the IANA timezone
func (b *CampaignBuilder) WithTimezone(tz string) *CampaignBuilder {
	b.c.Timezone = tz
	return b
}

// WithCallingHours sets the HH:MM calling window
func (b *CampaignBuilder) WithCallingHours(start, end string) *CampaignBuilder {
	b.c.CallingHoursStart = start
	b.c.CallingHoursEnd = end
	return b
}

// Build returns the campaign
func (b *CampaignBuilder) Build() *campaign.Campaign {
	c := b.c
	return &c
}
