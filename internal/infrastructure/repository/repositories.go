package repository

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/davidleathers/outbound-pacing-backend/internal/domain/pacing"
)

// Repositories holds all repository instances
type Repositories struct {
	Campaigns *CampaignRepository
	Leads     *LeadRepository
	Outcomes  *OutcomeRepository
	Settings  *SettingsRepository
	Transfers *TransferRepository
	Snapshots *SnapshotRepository
	Alerts    *AlertRepository
}

// Defaults are returned for owners that never saved settings.
type Defaults struct {
	Pacing      pacing.PacingSettings
	Concurrency pacing.ConcurrencySettings
	Timezone    string
}

// NewRepositories creates a new repository collection
func NewRepositories(pool *pgxpool.Pool, d Defaults, logger *zap.Logger) *Repositories {
	return &Repositories{
		Campaigns: NewCampaignRepository(pool, d.Timezone),
		Leads:     NewLeadRepository(pool),
		Outcomes:  NewOutcomeRepository(pool, logger),
		Settings:  NewSettingsRepository(pool, d.Pacing, d.Concurrency),
		Transfers: NewTransferRepository(pool),
		Snapshots: NewSnapshotRepository(pool),
		Alerts:    NewAlertRepository(pool),
	}
}
