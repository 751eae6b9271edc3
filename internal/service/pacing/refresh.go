package pacing

import (
	"github.com/google/uuid"

	"github.com/davidleathers/outbound-pacing-backend/internal/domain/pacing"
	"github.com/davidleathers/outbound-pacing-backend/internal/service/scheduler"
)

// RefreshSettings pushes new pacing settings into every running loop of the
// owner and returns how many were updated.
func RefreshSettings(sup *scheduler.Supervisor, ownerID uuid.UUID, s pacing.PacingSettings) int {
	return refreshLoops(runningLoops(sup), ownerID, s)
}

// RefreshConcurrency is RefreshSettings for concurrency settings.
func RefreshConcurrency(sup *scheduler.Supervisor, ownerID uuid.UUID, s pacing.ConcurrencySettings) int {
	n := 0
	for _, l := range runningLoops(sup) {
		if l.OwnerID() == ownerID {
			l.UpdateConcurrency(s)
			n++
		}
	}
	return n
}

func runningLoops(sup *scheduler.Supervisor) []*Loop {
	var loops []*Loop
	sup.Each(func(_ uuid.UUID, u scheduler.Unit) {
		if l, ok := u.(*Loop); ok {
			loops = append(loops, l)
		}
	})
	return loops
}

func refreshLoops(loops []*Loop, ownerID uuid.UUID, s pacing.PacingSettings) int {
	n := 0
	for _, l := range loops {
		if l.OwnerID() == ownerID {
			l.UpdateSettings(s)
			n++
		}
	}
	return n
}

// Controller couples the supervisor's campaign lifecycle with live settings
// refresh for the API.
type Controller struct {
	*scheduler.Supervisor
}

func NewController(sup *scheduler.Supervisor) *Controller {
	return &Controller{Supervisor: sup}
}

func (c *Controller) RefreshSettings(ownerID uuid.UUID, s pacing.PacingSettings) int {
	return RefreshSettings(c.Supervisor, ownerID, s)
}

func (c *Controller) RefreshConcurrency(ownerID uuid.UUID, s pacing.ConcurrencySettings) int {
	return RefreshConcurrency(c.Supervisor, ownerID, s)
}
