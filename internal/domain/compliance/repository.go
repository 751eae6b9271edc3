package compliance

import (
	"context"

	"github.com/google/uuid"
)

// MetricsRepository keeps the latest compliance snapshot per campaign.
type MetricsRepository interface {
	// PutComplianceMetrics overwrites the campaign's snapshot
	PutComplianceMetrics(ctx context.Context, m *Metrics) error

	// GetComplianceMetrics returns the latest snapshot or a not-found error
	GetComplianceMetrics(ctx context.Context, campaignID uuid.UUID) (*Metrics, error)
}

// AlertRecorder logs hard violations separately from the snapshot.
type AlertRecorder interface {
	RecordViolation(ctx context.Context, campaignID uuid.UUID, v Violation) error
}
