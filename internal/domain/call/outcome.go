package call

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/davidleathers/outbound-pacing-backend/internal/domain/errors"
)

// OutcomeSample is one immutable historical call record as produced by the
// telephony collaborator. The pacing core only ever reads these.
type OutcomeSample struct {
	ID              uuid.UUID     `json:"id"`
	OwnerID         uuid.UUID     `json:"owner_id"`
	CampaignID      *uuid.UUID    `json:"campaign_id,omitempty"`
	LeadID          *uuid.UUID    `json:"lead_id,omitempty"`
	PhoneNumber     string        `json:"phone_number"`
	Status          OutcomeStatus `json:"status"`
	Disposition     Disposition   `json:"disposition,omitempty"`
	DNCViolation    bool          `json:"dnc_violation"`
	CreatedAt       time.Time     `json:"created_at"`
	AnsweredAt      *time.Time    `json:"answered_at,omitempty"`
	EndedAt         *time.Time    `json:"ended_at,omitempty"`
	DurationSeconds *int          `json:"duration_seconds,omitempty"`
}

type OutcomeStatus int

const (
	StatusQueued OutcomeStatus = iota
	StatusRinging
	StatusInProgress
	StatusCompleted
	StatusFailed
	StatusAbandoned
	StatusNoAnswer
)

func (s OutcomeStatus) String() string {
	switch s {
	case StatusQueued:
		return "queued"
	case StatusRinging:
		return "ringing"
	case StatusInProgress:
		return "in_progress"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	case StatusAbandoned:
		return "abandoned"
	case StatusNoAnswer:
		return "no_answer"
	default:
		return "unknown"
	}
}

// ParseOutcomeStatus maps the collaborator's status column onto OutcomeStatus.
func ParseOutcomeStatus(s string) (OutcomeStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "queued":
		return StatusQueued, nil
	case "ringing":
		return StatusRinging, nil
	case "in_progress", "in-progress":
		return StatusInProgress, nil
	case "completed":
		return StatusCompleted, nil
	case "failed":
		return StatusFailed, nil
	case "abandoned":
		return StatusAbandoned, nil
	case "no_answer", "no-answer":
		return StatusNoAnswer, nil
	default:
		return 0, errors.NewValidationError("INVALID_OUTCOME_STATUS",
			fmt.Sprintf("unknown call status %q", s))
	}
}

// Disposition is the agent/AI outcome recorded after the call ended.
type Disposition string

const (
	DispositionNone          Disposition = ""
	DispositionInterested    Disposition = "interested"
	DispositionCallback      Disposition = "callback"
	DispositionNotInterested Disposition = "not_interested"
	DispositionDoNotCall     Disposition = "do_not_call"
	DispositionNoAnswer      Disposition = "no_answer"
	DispositionBusy          Disposition = "busy"
	DispositionVoicemail     Disposition = "voicemail"
	DispositionAbandoned     Disposition = "abandoned"
)

// ParseDisposition maps the collaborator's outcome column onto Disposition.
// An empty value is valid and means no disposition was captured.
func ParseDisposition(s string) (Disposition, error) {
	d := Disposition(strings.ToLower(strings.TrimSpace(s)))
	switch d {
	case DispositionNone, DispositionInterested, DispositionCallback,
		DispositionNotInterested, DispositionDoNotCall, DispositionNoAnswer,
		DispositionBusy, DispositionVoicemail, DispositionAbandoned:
		return d, nil
	default:
		return DispositionNone, errors.NewValidationError("INVALID_DISPOSITION",
			fmt.Sprintf("unknown call disposition %q", s))
	}
}

func (d Disposition) IsPositive() bool {
	return d == DispositionInterested || d == DispositionCallback
}

func (d Disposition) IsNegative() bool {
	return d == DispositionNotInterested || d == DispositionDoNotCall
}

// IsUnreached reports dispositions where nobody picked up.
func (d Disposition) IsUnreached() bool {
	return d == DispositionNoAnswer || d == DispositionBusy
}

// Validate checks the sample invariants enforced at the store boundary.
func (s *OutcomeSample) Validate() error {
	if s.CreatedAt.IsZero() {
		return errors.NewValidationError("INVALID_OUTCOME", "created_at is required")
	}
	if s.AnsweredAt != nil && s.AnsweredAt.Before(s.CreatedAt) {
		return errors.NewValidationError("INVALID_OUTCOME", "answered_at precedes created_at")
	}
	if s.DurationSeconds != nil && *s.DurationSeconds < 0 {
		return errors.NewValidationError("INVALID_OUTCOME", "duration cannot be negative")
	}
	return nil
}

// Answered reports whether a person picked up, including calls that were
// later abandoned because no agent or handler was free. Every abandoned
// sample is answered, so abandonment never exceeds 100% of answers.
func (s *OutcomeSample) Answered() bool {
	if s.AnsweredAt != nil || s.Disposition == DispositionAbandoned {
		return true
	}
	switch s.Status {
	case StatusInProgress, StatusCompleted, StatusAbandoned:
		return true
	}
	return false
}

// Abandoned reports whether the answered call reached no handler.
func (s *OutcomeSample) Abandoned() bool {
	return s.Status == StatusAbandoned || s.Disposition == DispositionAbandoned
}

// InFlight reports whether the call still occupies a concurrency slot.
func (s *OutcomeSample) InFlight() bool {
	switch s.Status {
	case StatusQueued, StatusRinging, StatusInProgress:
		return true
	}
	return false
}

// WaitSeconds returns the time between origination and answer.
func (s *OutcomeSample) WaitSeconds() (float64, bool) {
	if s.AnsweredAt == nil {
		return 0, false
	}
	return s.AnsweredAt.Sub(s.CreatedAt).Seconds(), true
}
