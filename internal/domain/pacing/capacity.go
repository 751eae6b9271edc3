package pacing

import (
	"time"

	"github.com/google/uuid"
)

// Platform identifies a downstream voice-AI routing target.
type Platform string

const (
	PlatformRetell     Platform = "retell"
	PlatformAssistable Platform = "assistable"
)

// Platforms lists every platform with a configured ceiling.
var Platforms = []Platform{PlatformRetell, PlatformAssistable}

// Transfer is an in-flight call currently routed to a platform.
type Transfer struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"owner_id"`
	Platform  Platform  `json:"platform"`
	StartedAt time.Time `json:"started_at"`
}

// PlatformCapacity is the headroom of one platform.
type PlatformCapacity struct {
	Active          int `json:"active"`
	Max             int `json:"max"`
	Available       int `json:"available"`
	UtilizationRate int `json:"utilization_rate"`
}

// MaxFor returns the configured ceiling for p, or 0 for an unknown platform.
func (s ConcurrencySettings) MaxFor(p Platform) int {
	switch p {
	case PlatformRetell:
		return s.RetellMaxConcurrent
	case PlatformAssistable:
		return s.AssistableMaxConcurrent
	default:
		return 0
	}
}

// ComputePlatformCapacity counts transfers per platform. Every known platform
// is present in the result; transfers to unknown platforms are ignored.
func ComputePlatformCapacity(transfers []Transfer, s ConcurrencySettings) map[Platform]PlatformCapacity {
	active := make(map[Platform]int, len(Platforms))
	for _, t := range transfers {
		active[t.Platform]++
	}

	out := make(map[Platform]PlatformCapacity, len(Platforms))
	for _, p := range Platforms {
		limit := s.MaxFor(p)
		n := active[p]
		out[p] = PlatformCapacity{
			Active:          n,
			Max:             limit,
			Available:       max(0, limit-n),
			UtilizationRate: Percent(Utilization(n, limit)),
		}
	}
	return out
}
