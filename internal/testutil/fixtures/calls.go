package fixtures

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/davidleathers/outbound-pacing-backend/internal/domain/call"
)

// OutcomeBuilder builds test call outcome samples
type OutcomeBuilder struct {
	t      *testing.T
	sample call.OutcomeSample
}

// NewOutcomeBuilder creates a completed outcome created at the given time
func NewOutcomeBuilder(t *testing.T, ownerID uuid.UUID, createdAt time.Time) *OutcomeBuilder {
	t.Helper()
	return &OutcomeBuilder{
		t: t,
		sample: call.OutcomeSample{
			ID:          uuid.New(),
			OwnerID:     ownerID,
			PhoneNumber: "+15551234567",
			Status:      call.StatusCompleted,
			CreatedAt:   createdAt,
		},
	}
}

// ForCampaign sets the campaign
func (b *OutcomeBuilder) ForCampaign(id uuid.UUID) *OutcomeBuilder {
	b.sample.CampaignID = &id
	return b
}

// ForLead sets the lead
func (b *OutcomeBuilder) ForLead(id uuid.UUID) *OutcomeBuilder {
	b.sample.LeadID = &id
	return b
}

// WithPhone sets the dialed number
func (b *OutcomeBuilder) WithPhone(phone string) *OutcomeBuilder {
	b.sample.PhoneNumber = phone
	return b
}

// WithStatus sets the status
func (b *OutcomeBuilder) WithStatus(s call.OutcomeStatus) *OutcomeBuilder {
	b.sample.Status = s
	return b
}

// WithDisposition sets the disposition
func (b *OutcomeBuilder) WithDisposition(d call.Disposition) *OutcomeBuilder {
	b.sample.Disposition = d
	return b
}

// AnsweredAfter marks the call answered after wait
func (b *OutcomeBuilder) AnsweredAfter(wait time.Duration) *OutcomeBuilder {
	at := b.sample.CreatedAt.Add(wait)
	b.sample.AnsweredAt = &at
	return b
}

// Abandoned marks the call as answered then abandoned
func (b *OutcomeBuilder) Abandoned() *OutcomeBuilder {
	b.sample.Status = call.StatusAbandoned
	return b
}

// DNC flags a do-not-call violation
func (b *OutcomeBuilder) DNC() *OutcomeBuilder {
	b.sample.DNCViolation = true
	return b
}

// Build returns the sample
func (b *OutcomeBuilder) Build() *call.OutcomeSample {
	s := b.sample
	return &s
}

// Outcomes builds n copies of the sample, each with a fresh ID
func (b *OutcomeBuilder) Outcomes(n int) []*call.OutcomeSample {
	out := make([]*call.OutcomeSample, 0, n)
	for i := 0; i < n; i++ {
		s := b.sample
		s.ID = uuid.New()
		out = append(out, &s)
	}
	return out
}
