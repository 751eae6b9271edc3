package campaign

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/davidleathers/outbound-pacing-backend/internal/domain/errors"
	"github.com/davidleathers/outbound-pacing-backend/internal/domain/values"
)

// Campaign is the unit both periodic tasks are scoped to.
type Campaign struct {
	ID                uuid.UUID `json:"id"`
	OwnerID           uuid.UUID `json:"owner_id"`
	Name              string    `json:"name"`
	Status            Status    `json:"status"`
	StatusReason      string    `json:"status_reason,omitempty"`
	Timezone          string    `json:"timezone"`
	CallingHoursStart string    `json:"calling_hours_start"`
	CallingHoursEnd   string    `json:"calling_hours_end"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type Status string

const (
	StatusDraft     Status = "draft"
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
)

func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case StatusDraft, StatusActive, StatusPaused, StatusCompleted:
		return st, nil
	}
	return "", errors.NewValidationError("INVALID_CAMPAIGN_STATUS", fmt.Sprintf("unknown campaign status %q", s))
}

// Default calling window applied when a campaign has none configured.
const (
	DefaultCallingHoursStart = "09:00"
	DefaultCallingHoursEnd   = "21:00"
)

func (c *Campaign) IsActive() bool {
	return c.Status == StatusActive
}

// Location resolves the campaign timezone, falling back to the default zone.
func (c *Campaign) Location() *time.Location {
	return values.ResolveLocation(c.Timezone)
}

// CallingHours returns the configured window with defaults filled in.
func (c *Campaign) CallingHours() (start, end string) {
	start, end = c.CallingHoursStart, c.CallingHoursEnd
	if start == "" {
		start = DefaultCallingHoursStart
	}
	if end == "" {
		end = DefaultCallingHoursEnd
	}
	return start, end
}

// WithinCallingHours converts now into the campaign timezone and compares
// the wall clock against the [start, end] window. The end is the instant
// HH:MM:00, so 21:00:59 is outside a window ending at 21:00.
func (c *Campaign) WithinCallingHours(now time.Time) (bool, error) {
	start, end := c.CallingHours()

	from, err := ParseClock(start)
	if err != nil {
		return false, err
	}
	to, err := ParseClock(end)
	if err != nil {
		return false, err
	}

	local := now.In(c.Location())
	wall := time.Duration(local.Hour())*time.Hour +
		time.Duration(local.Minute())*time.Minute +
		time.Duration(local.Second())*time.Second
	opens, closes := time.Duration(from)*time.Minute, time.Duration(to)*time.Minute

	if from <= to {
		return wall >= opens && wall <= closes, nil
	}
	// window wraps midnight
	return wall >= opens || wall <= closes, nil
}

// StartOfDay is local midnight of now in the campaign timezone.
func (c *Campaign) StartOfDay(now time.Time) time.Time {
	local := now.In(c.Location())
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, local.Location())
}

// ParseClock parses "HH:MM" or "HH:MM:SS" into minutes after midnight.
// Seconds are accepted and ignored.
func ParseClock(s string) (int, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Hour()*60 + t.Minute(), nil
		}
	}
	return 0, errors.NewValidationError("INVALID_CALLING_HOURS", fmt.Sprintf("calling hours %q must be HH:MM", s))
}
