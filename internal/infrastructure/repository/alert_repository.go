package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/davidleathers/outbound-pacing-backend/internal/domain/compliance"
	"github.com/davidleathers/outbound-pacing-backend/internal/infrastructure/telemetry"
)

// AlertRepository records hard compliance violations.
type AlertRepository struct {
	db DBTX
}

func NewAlertRepository(db DBTX) *AlertRepository {
	return &AlertRepository{db: db}
}

func (r *AlertRepository) RecordViolation(ctx context.Context, campaignID uuid.UUID, v compliance.Violation) error {
	ctx, span := telemetry.StartDatabaseSpan(ctx, "INSERT", "compliance_alerts")
	defer span.End()

	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO compliance_alerts (id, campaign_id, type, severity, description, value, threshold, detected_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		v.ID, campaignID, string(v.Type), string(v.Severity), v.Description, v.Value, v.Threshold, v.DetectedAt)
	return classify(err, "record violation", "compliance alert")
}

// ListViolations returns the campaign's recorded violations, newest first.
func (r *AlertRepository) ListViolations(ctx context.Context, campaignID uuid.UUID, limit int) ([]compliance.Violation, error) {
	ctx, span := telemetry.StartDatabaseSpan(ctx, "SELECT", "compliance_alerts")
	defer span.End()

	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, campaign_id, type, severity, description, value, threshold, detected_at
		FROM compliance_alerts WHERE campaign_id = $1
		ORDER BY detected_at DESC LIMIT $2`, campaignID, limit)
	if err != nil {
		return nil, classify(err, "list violations", "compliance alert")
	}
	defer rows.Close()

	var out []compliance.Violation
	for rows.Next() {
		var v compliance.Violation
		var typ, severity string
		if err := rows.Scan(&v.ID, &v.CampaignID, &typ, &severity, &v.Description, &v.Value, &v.Threshold, &v.DetectedAt); err != nil {
			return nil, classify(err, "scan violation", "compliance alert")
		}
		v.Type = compliance.ViolationType(typ)
		v.Severity = compliance.Severity(severity)
		out = append(out, v)
	}
	return out, classify(rows.Err(), "list violations", "compliance alert")
}
