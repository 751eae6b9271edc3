package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/davidleathers/outbound-pacing-backend/internal/domain/pacing"
	"github.com/davidleathers/outbound-pacing-backend/internal/infrastructure/telemetry"
)

// TransferRepository tracks transfers holding a platform slot.
type TransferRepository struct {
	db DBTX
}

func NewTransferRepository(db DBTX) *TransferRepository {
	return &TransferRepository{db: db}
}

// StartTransfer records a transfer that now occupies a slot.
func (r *TransferRepository) StartTransfer(ctx context.Context, t pacing.Transfer) error {
	ctx, span := telemetry.StartDatabaseSpan(ctx, "INSERT", "transfers")
	defer span.End()

	if t.StartedAt.IsZero() {
		t.StartedAt = time.Now().UTC()
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO transfers (id, owner_id, platform, started_at) VALUES ($1, $2, $3, $4)`,
		t.ID, t.OwnerID, string(t.Platform), t.StartedAt)
	return classify(err, "start transfer", "transfer")
}

// EndTransfer releases the transfer's slot.
func (r *TransferRepository) EndTransfer(ctx context.Context, id uuid.UUID) error {
	ctx, span := telemetry.StartDatabaseSpan(ctx, "UPDATE", "transfers")
	defer span.End()

	tag, err := r.db.Exec(ctx, `UPDATE transfers SET ended_at = NOW() WHERE id = $1 AND ended_at IS NULL`, id)
	if err != nil {
		return classify(err, "end transfer", "transfer")
	}
	if tag.RowsAffected() == 0 {
		return classify(pgx.ErrNoRows, "end transfer", "transfer")
	}
	return nil
}

// GetActiveTransfers lists the owner's transfers that have not ended.
func (r *TransferRepository) GetActiveTransfers(ctx context.Context, ownerID uuid.UUID) ([]pacing.Transfer, error) {
	ctx, span := telemetry.StartDatabaseSpan(ctx, "SELECT", "transfers")
	defer span.End()

	rows, err := r.db.Query(ctx, `
		SELECT id, owner_id, platform, started_at FROM transfers
		WHERE owner_id = $1 AND ended_at IS NULL`, ownerID)
	if err != nil {
		return nil, classify(err, "list active transfers", "transfer")
	}
	defer rows.Close()

	var out []pacing.Transfer
	for rows.Next() {
		var t pacing.Transfer
		var platform string
		if err := rows.Scan(&t.ID, &t.OwnerID, &platform, &t.StartedAt); err != nil {
			return nil, classify(err, "scan transfer", "transfer")
		}
		t.Platform = pacing.Platform(platform)
		out = append(out, t)
	}
	return out, classify(rows.Err(), "list active transfers", "transfer")
}
