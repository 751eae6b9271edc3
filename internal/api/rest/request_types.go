package rest

import (
	"time"

	"github.com/google/uuid"

	"github.com/davidleathers/outbound-pacing-backend/internal/domain/pacing"
)

// RateRequest asks for dialing-rate metrics. With Settings set it is a
// what-if evaluation; otherwise the owner's stored settings are used.
type RateRequest struct {
	OwnerID            uuid.UUID                   `json:"owner_id"`
	CurrentConcurrency int                         `json:"current_concurrency" validate:"gte=0"`
	Settings           *pacing.ConcurrencySettings `json:"settings,omitempty"`
}

// AuthorizeBody is the dispatch authorization request body.
type AuthorizeBody struct {
	Requested int `json:"requested" validate:"gte=0"`
	InFlight  int `json:"in_flight" validate:"gte=0"`
}

// PredictiveResponse carries the metrics even when the parameters were
// rejected.
type PredictiveResponse struct {
	Metrics pacing.PredictiveMetrics `json:"metrics"`
	Error   string                   `json:"error,omitempty"`
}

type SettingsResponse[T any] struct {
	OwnerID        uuid.UUID `json:"owner_id"`
	Settings       T         `json:"settings"`
	RefreshedLoops int       `json:"refreshed_loops"`
}

type CampaignStateResponse struct {
	CampaignID uuid.UUID `json:"campaign_id"`
	Running    bool      `json:"running"`
	Changed    bool      `json:"changed"`
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}
