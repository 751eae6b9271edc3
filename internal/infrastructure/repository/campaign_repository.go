package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/davidleathers/outbound-pacing-backend/internal/domain/campaign"
	"github.com/davidleathers/outbound-pacing-backend/internal/infrastructure/telemetry"
)

// CampaignRepository persists campaigns.
type CampaignRepository struct {
	db              DBTX
	defaultTimezone string
}

// NewCampaignRepository creates a campaign repository. Campaigns stored
// without a timezone are read back with defaultTimezone.
func NewCampaignRepository(db DBTX, defaultTimezone string) *CampaignRepository {
	return &CampaignRepository{db: db, defaultTimezone: defaultTimezone}
}

const campaignColumns = `id, owner_id, name, status, status_reason, timezone,
	calling_hours_start, calling_hours_end, created_at, updated_at`

// CreateCampaign inserts a campaign.
func (r *CampaignRepository) CreateCampaign(ctx context.Context, c *campaign.Campaign) error {
	ctx, span := telemetry.StartDatabaseSpan(ctx, "INSERT", "campaigns")
	defer span.End()

	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	_, err := r.db.Exec(ctx, `
		INSERT INTO campaigns (`+campaignColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		c.ID, c.OwnerID, c.Name, string(c.Status), c.StatusReason, c.Timezone,
		c.CallingHoursStart, c.CallingHoursEnd, c.CreatedAt, c.UpdatedAt,
	)
	return classify(err, "create campaign", "campaign")
}

// GetCampaign retrieves a campaign by its ID.
func (r *CampaignRepository) GetCampaign(ctx context.Context, id uuid.UUID) (*campaign.Campaign, error) {
	ctx, span := telemetry.StartDatabaseSpan(ctx, "SELECT", "campaigns")
	defer span.End()

	row := r.db.QueryRow(ctx, `SELECT `+campaignColumns+` FROM campaigns WHERE id = $1`, id)
	c, err := r.scan(row)
	if err != nil {
		return nil, classify(err, "get campaign", "campaign")
	}
	return c, nil
}

// ListActiveCampaigns returns every campaign currently dialing.
func (r *CampaignRepository) ListActiveCampaigns(ctx context.Context) ([]*campaign.Campaign, error) {
	ctx, span := telemetry.StartDatabaseSpan(ctx, "SELECT", "campaigns")
	defer span.End()

	rows, err := r.db.Query(ctx, `SELECT `+campaignColumns+` FROM campaigns WHERE status = $1 ORDER BY created_at`,
		string(campaign.StatusActive))
	if err != nil {
		return nil, classify(err, "list campaigns", "campaign")
	}
	defer rows.Close()

	var out []*campaign.Campaign
	for rows.Next() {
		c, err := r.scan(rows)
		if err != nil {
			return nil, classify(err, "scan campaign", "campaign")
		}
		out = append(out, c)
	}
	return out, classify(rows.Err(), "list campaigns", "campaign")
}

// SetCampaignStatus moves a campaign to status, recording why.
func (r *CampaignRepository) SetCampaignStatus(ctx context.Context, id uuid.UUID, status campaign.Status, reason string) error {
	ctx, span := telemetry.StartDatabaseSpan(ctx, "UPDATE", "campaigns")
	defer span.End()

	tag, err := r.db.Exec(ctx, `
		UPDATE campaigns SET status = $2, status_reason = $3, updated_at = NOW()
		WHERE id = $1`, id, string(status), reason)
	if err != nil {
		return classify(err, "set campaign status", "campaign")
	}
	if tag.RowsAffected() == 0 {
		return classify(pgx.ErrNoRows, "set campaign status", "campaign")
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *CampaignRepository) scan(row rowScanner) (*campaign.Campaign, error) {
	var c campaign.Campaign
	var status string
	if err := row.Scan(&c.ID, &c.OwnerID, &c.Name, &status, &c.StatusReason, &c.Timezone,
		&c.CallingHoursStart, &c.CallingHoursEnd, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Status = campaign.Status(status)
	if c.Timezone == "" {
		c.Timezone = r.defaultTimezone
	}
	return &c, nil
}
