package lead

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/davidleathers/outbound-pacing-backend/internal/domain/errors"
)

// Lead is a dialable contact belonging to a campaign.
type Lead struct {
	ID              uuid.UUID  `json:"id"`
	CampaignID      uuid.UUID  `json:"campaign_id"`
	PhoneNumber     string     `json:"phone_number"`
	Status          Status     `json:"status"`
	Priority        int        `json:"priority"`
	Timezone        string     `json:"timezone,omitempty"`
	LastContactedAt *time.Time `json:"last_contacted_at,omitempty"`
	CallbackAt      *time.Time `json:"callback_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

type Status string

const (
	StatusNew       Status = "new"
	StatusContacted Status = "contacted"
	StatusCallback  Status = "callback"
	StatusConverted Status = "converted"
	StatusDoNotCall Status = "do_not_call"
	StatusInvalid   Status = "invalid"
)

// CallableStatuses are the statuses eligible for prioritization.
var CallableStatuses = []Status{StatusNew, StatusContacted, StatusCallback}

func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case StatusNew, StatusContacted, StatusCallback, StatusConverted, StatusDoNotCall, StatusInvalid:
		return st, nil
	}
	return "", errors.NewValidationError("INVALID_LEAD_STATUS", fmt.Sprintf("unknown lead status %q", s))
}

func (s Status) IsCallable() bool {
	for _, c := range CallableStatuses {
		if s == c {
			return true
		}
	}
	return false
}

// Priority bounds for the persisted priority field.
const (
	MinPriority = 1
	MaxPriority = 5
)

// CallbackDue reports whether a scheduled callback time has been reached.
func (l *Lead) CallbackDue(now time.Time) bool {
	return l.CallbackAt != nil && !l.CallbackAt.After(now)
}
