package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/davidleathers/outbound-pacing-backend/internal/domain/lead"
	"github.com/davidleathers/outbound-pacing-backend/internal/infrastructure/telemetry"
)

// LeadRepository persists leads.
type LeadRepository struct {
	db DBTX
}

func NewLeadRepository(db DBTX) *LeadRepository {
	return &LeadRepository{db: db}
}

const leadColumns = `id, campaign_id, phone_number, status, priority, timezone,
	last_contacted_at, callback_at, created_at, updated_at`

// CreateLead inserts a lead.
func (r *LeadRepository) CreateLead(ctx context.Context, l *lead.Lead) error {
	ctx, span := telemetry.StartDatabaseSpan(ctx, "INSERT", "leads")
	defer span.End()

	now := time.Now().UTC()
	if l.CreatedAt.IsZero() {
		l.CreatedAt = now
	}
	l.UpdatedAt = now

	_, err := r.db.Exec(ctx, `
		INSERT INTO leads (`+leadColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		l.ID, l.CampaignID, l.PhoneNumber, string(l.Status), l.Priority, l.Timezone,
		l.LastContactedAt, l.CallbackAt, l.CreatedAt, l.UpdatedAt,
	)
	return classify(err, "create lead", "lead")
}

// GetCallableLeads returns the campaign's leads in a callable status.
func (r *LeadRepository) GetCallableLeads(ctx context.Context, campaignID uuid.UUID) ([]*lead.Lead, error) {
	ctx, span := telemetry.StartDatabaseSpan(ctx, "SELECT", "leads")
	defer span.End()

	statuses := make([]string, 0, len(lead.CallableStatuses))
	for _, s := range lead.CallableStatuses {
		statuses = append(statuses, string(s))
	}

	rows, err := r.db.Query(ctx, `
		SELECT `+leadColumns+` FROM leads
		WHERE campaign_id = $1 AND status = ANY($2)
		ORDER BY created_at`, campaignID, statuses)
	if err != nil {
		return nil, classify(err, "list callable leads", "lead")
	}
	defer rows.Close()

	var out []*lead.Lead
	for rows.Next() {
		var l lead.Lead
		var status string
		if err := rows.Scan(&l.ID, &l.CampaignID, &l.PhoneNumber, &status, &l.Priority, &l.Timezone,
			&l.LastContactedAt, &l.CallbackAt, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, classify(err, "scan lead", "lead")
		}
		l.Status = lead.Status(status)
		out = append(out, &l)
	}
	return out, classify(rows.Err(), "list callable leads", "lead")
}

// SetLeadPriority stores a lead's computed priority.
func (r *LeadRepository) SetLeadPriority(ctx context.Context, leadID uuid.UUID, priority int) error {
	ctx, span := telemetry.StartDatabaseSpan(ctx, "UPDATE", "leads")
	defer span.End()

	tag, err := r.db.Exec(ctx, `UPDATE leads SET priority = $2, updated_at = NOW() WHERE id = $1`, leadID, priority)
	if err != nil {
		return classify(err, "set lead priority", "lead")
	}
	if tag.RowsAffected() == 0 {
		return classify(pgx.ErrNoRows, "set lead priority", "lead")
	}
	return nil
}
