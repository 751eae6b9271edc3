package compliance

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/davidleathers/outbound-pacing-backend/internal/domain/call"
	"github.com/davidleathers/outbound-pacing-backend/internal/domain/campaign"
	"github.com/davidleathers/outbound-pacing-backend/internal/domain/errors"
)

type ViolationType string

const (
	ViolationAbandonment  ViolationType = "abandonment_rate"
	ViolationDNC          ViolationType = "dnc"
	ViolationCallingHours ViolationType = "calling_hours"
)

type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityHard    Severity = "hard"
)

// Violation is one breached limit found by an evaluation.
type Violation struct {
	ID          uuid.UUID     `json:"id"`
	CampaignID  uuid.UUID     `json:"campaign_id"`
	Type        ViolationType `json:"type"`
	Severity    Severity      `json:"severity"`
	Description string        `json:"description"`
	Value       float64       `json:"value"`
	Threshold   float64       `json:"threshold"`
	DetectedAt  time.Time     `json:"detected_at"`
}

// Thresholds are the regulatory and operational limits. Rates are
// percentages.
type Thresholds struct {
	MaxAbandonmentRate     float64 `json:"max_abandonment_rate" koanf:"max_abandonment_rate" validate:"gt=0,lte=100"`
	WarningAbandonmentRate float64 `json:"warning_abandonment_rate" koanf:"warning_abandonment_rate" validate:"gt=0,ltefield=MaxAbandonmentRate"`
	MaxDNCViolations       int     `json:"max_dnc_violations" koanf:"max_dnc_violations" validate:"gte=0"`
}

// DefaultThresholds uses the FCC 3% abandonment ceiling.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxAbandonmentRate:     3,
		WarningAbandonmentRate: 2.5,
		MaxDNCViolations:       0,
	}
}

// Metrics is the latest compliance snapshot of a campaign.
type Metrics struct {
	CampaignID           uuid.UUID   `json:"campaign_id"`
	AbandonmentRate      float64     `json:"abandonment_rate"`
	IsWithinCallingHours bool        `json:"is_within_calling_hours"`
	DNCViolations        int         `json:"dnc_violations"`
	ComplianceViolations []Violation `json:"compliance_violations"`
	Warnings             []Violation `json:"warnings"`
	SampleSize           int         `json:"sample_size"`
	EvaluatedAt          time.Time   `json:"evaluated_at"`
}

// HasHardViolation reports whether the campaign must stop dialing.
func (m *Metrics) HasHardViolation() bool {
	return len(m.ComplianceViolations) > 0
}

// PauseReason joins the hard violations into the status reason recorded on
// the campaign.
func (m *Metrics) PauseReason() string {
	parts := make([]string, 0, len(m.ComplianceViolations))
	for _, v := range m.ComplianceViolations {
		parts = append(parts, v.Description)
	}
	return "compliance: " + strings.Join(parts, "; ")
}

// Err reports the hard violations as a compliance AppError, or nil when the
// campaign may keep dialing.
func (m *Metrics) Err() error {
	if !m.HasHardViolation() {
		return nil
	}
	return errors.NewComplianceError(string(m.ComplianceViolations[0].Type), m.PauseReason())
}

// Evaluate checks today's outcome samples of a campaign against the
// thresholds. It only fails when the campaign's calling hours are malformed.
func Evaluate(c *campaign.Campaign, today []*call.OutcomeSample, now time.Time, th Thresholds) (*Metrics, error) {
	within, err := c.WithinCallingHours(now)
	if err != nil {
		return nil, err
	}

	st := call.Summarize(today)
	m := &Metrics{
		CampaignID:           c.ID,
		AbandonmentRate:      st.AbandonmentRate(),
		IsWithinCallingHours: within,
		DNCViolations:        st.DNCViolations,
		ComplianceViolations: []Violation{},
		Warnings:             []Violation{},
		SampleSize:           st.Total,
		EvaluatedAt:          now,
	}

	violation := func(t ViolationType, sev Severity, value, threshold float64, desc string) Violation {
		return Violation{
			ID:          uuid.New(),
			CampaignID:  c.ID,
			Type:        t,
			Severity:    sev,
			Description: desc,
			Value:       value,
			Threshold:   threshold,
			DetectedAt:  now,
		}
	}

	switch {
	case m.AbandonmentRate > th.MaxAbandonmentRate:
		m.ComplianceViolations = append(m.ComplianceViolations, violation(ViolationAbandonment, SeverityHard,
			m.AbandonmentRate, th.MaxAbandonmentRate,
			fmt.Sprintf("abandonment rate %.2f%% exceeds %.2f%%", m.AbandonmentRate, th.MaxAbandonmentRate)))
	case m.AbandonmentRate > th.WarningAbandonmentRate:
		m.Warnings = append(m.Warnings, violation(ViolationAbandonment, SeverityWarning,
			m.AbandonmentRate, th.WarningAbandonmentRate,
			fmt.Sprintf("abandonment rate %.2f%% approaching limit %.2f%%", m.AbandonmentRate, th.MaxAbandonmentRate)))
	}

	if m.DNCViolations > th.MaxDNCViolations {
		m.ComplianceViolations = append(m.ComplianceViolations, violation(ViolationDNC, SeverityHard,
			float64(m.DNCViolations), float64(th.MaxDNCViolations),
			fmt.Sprintf("%d do-not-call violations today", m.DNCViolations)))
	}

	if !within {
		start, end := c.CallingHours()
		m.ComplianceViolations = append(m.ComplianceViolations, violation(ViolationCallingHours, SeverityHard,
			0, 0,
			fmt.Sprintf("outside calling hours %s-%s %s", start, end, c.Location())))
	}

	return m, nil
}
