package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/davidleathers/outbound-pacing-backend/internal/domain/compliance"
	"github.com/davidleathers/outbound-pacing-backend/internal/domain/pacing"
	"github.com/davidleathers/outbound-pacing-backend/internal/infrastructure/telemetry"
)

// SnapshotRepository keeps the latest pacing and compliance output per
// campaign as JSONB documents.
type SnapshotRepository struct {
	db DBTX
}

func NewSnapshotRepository(db DBTX) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

func (r *SnapshotRepository) PutPacingSnapshot(ctx context.Context, s *pacing.Snapshot) error {
	ctx, span := telemetry.StartDatabaseSpan(ctx, "UPSERT", "pacing_snapshots")
	defer span.End()

	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal pacing snapshot: %w", err)
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO pacing_snapshots (campaign_id, owner_id, payload, evaluated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (campaign_id) DO UPDATE SET
			owner_id = EXCLUDED.owner_id,
			payload = EXCLUDED.payload,
			evaluated_at = EXCLUDED.evaluated_at`,
		s.CampaignID, s.OwnerID, payload, s.EvaluatedAt)
	return classify(err, "put pacing snapshot", "pacing snapshot")
}

func (r *SnapshotRepository) GetPacingSnapshot(ctx context.Context, campaignID uuid.UUID) (*pacing.Snapshot, error) {
	ctx, span := telemetry.StartDatabaseSpan(ctx, "SELECT", "pacing_snapshots")
	defer span.End()

	var payload []byte
	if err := r.db.QueryRow(ctx, `SELECT payload FROM pacing_snapshots WHERE campaign_id = $1`, campaignID).
		Scan(&payload); err != nil {
		return nil, classify(err, "get pacing snapshot", "pacing snapshot")
	}
	var s pacing.Snapshot
	if err := json.Unmarshal(payload, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pacing snapshot: %w", err)
	}
	return &s, nil
}

func (r *SnapshotRepository) PutComplianceMetrics(ctx context.Context, m *compliance.Metrics) error {
	ctx, span := telemetry.StartDatabaseSpan(ctx, "UPSERT", "compliance_metrics")
	defer span.End()

	payload, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal compliance metrics: %w", err)
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO compliance_metrics (campaign_id, payload, evaluated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (campaign_id) DO UPDATE SET
			payload = EXCLUDED.payload,
			evaluated_at = EXCLUDED.evaluated_at`,
		m.CampaignID, payload, m.EvaluatedAt)
	return classify(err, "put compliance metrics", "compliance metrics")
}

func (r *SnapshotRepository) GetComplianceMetrics(ctx context.Context, campaignID uuid.UUID) (*compliance.Metrics, error) {
	ctx, span := telemetry.StartDatabaseSpan(ctx, "SELECT", "compliance_metrics")
	defer span.End()

	var payload []byte
	if err := r.db.QueryRow(ctx, `SELECT payload FROM compliance_metrics WHERE campaign_id = $1`, campaignID).
		Scan(&payload); err != nil {
		return nil, classify(err, "get compliance metrics", "compliance metrics")
	}
	var m compliance.Metrics
	if err := json.Unmarshal(payload, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal compliance metrics: %w", err)
	}
	return &m, nil
}
