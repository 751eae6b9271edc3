package fixtures

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/davidleathers/outbound-pacing-backend/internal/domain/lead"
)

// LeadBuilder builds test leads
type LeadBuilder struct {
	t *testing.T
	l lead.Lead
}

// NewLeadBuilder creates a new lead with priority 3
func NewLeadBuilder(t *testing.T, campaignID uuid.UUID) *LeadBuilder {
	t.Helper()
	now := time.Now().UTC()
	return &LeadBuilder{
		t: t,
		l: lead.Lead{
			ID:          uuid.New(),
			CampaignID:  campaignID,
			PhoneNumber: "+15551234567",
			Status:      lead.StatusNew,
			Priority:    3,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
	}
}

// WithID sets the lead ID
func (b *LeadBuilder) WithID(id uuid.UUID) *LeadBuilder {
	b.l.ID = id
	return b
}

// WithPhone sets the phone number
func (b *LeadBuilder) WithPhone(phone string) *LeadBuilder {
	b.l.PhoneNumber = phone
	return b
}

// WithStatus sets the status
func (b *LeadBuilder) WithStatus(s lead.Status) *LeadBuilder {
	b.l.Status = s
	return b
}

// WithPriority sets the manual priority
func (b *LeadBuilder) WithPriority(p int) *LeadBuilder {
	b.l.Priority = p
	return b
}

// WithTimezone sets the lead's timezone
func (b *LeadBuilder) WithTimezone(tz string) *LeadBuilder {
	b.l.Timezone = tz
	return b
}

// LastContacted sets the last contact time
func (b *LeadBuilder) LastContacted(at time.Time) *LeadBuilder {
	b.l.LastContactedAt = &at
	return b
}

// CallbackAt schedules a callback
func (b *LeadBuilder) CallbackAt(at time.Time) *LeadBuilder {
	b.l.CallbackAt = &at
	b.l.Status = lead.StatusCallback
	return b
}

// Build returns the lead
func (b *LeadBuilder) Build() *lead.Lead {
	l := b.l
	return &l
}
