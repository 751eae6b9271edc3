package repository

import (
	"context"
	stderrors "errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/davidleathers/outbound-pacing-backend/internal/domain/pacing"
	"github.com/davidleathers/outbound-pacing-backend/internal/infrastructure/telemetry"
)

// SettingsRepository persists per-owner pacing and concurrency settings.
// Owners without a stored row get the configured defaults.
type SettingsRepository struct {
	db                 DBTX
	defaultPacing      pacing.PacingSettings
	defaultConcurrency pacing.ConcurrencySettings
}

func NewSettingsRepository(db DBTX, p pacing.PacingSettings, c pacing.ConcurrencySettings) *SettingsRepository {
	return &SettingsRepository{db: db, defaultPacing: p, defaultConcurrency: c}
}

func (r *SettingsRepository) GetPacingSettings(ctx context.Context, ownerID uuid.UUID) (pacing.PacingSettings, error) {
	ctx, span := telemetry.StartDatabaseSpan(ctx, "SELECT", "pacing_settings")
	defer span.End()

	var s pacing.PacingSettings
	err := r.db.QueryRow(ctx, `
		SELECT min_dial_rate, max_dial_rate, target_answer_rate, max_abandonment_rate,
			learning_rate, auto_adjust_enabled
		FROM pacing_settings WHERE owner_id = $1`, ownerID).Scan(
		&s.MinDialRate, &s.MaxDialRate, &s.TargetAnswerRate, &s.MaxAbandonmentRate,
		&s.LearningRate, &s.AutoAdjustEnabled,
	)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return r.defaultPacing, nil
	}
	if err != nil {
		return pacing.PacingSettings{}, classify(err, "get pacing settings", "pacing settings")
	}
	return s, nil
}

func (r *SettingsRepository) PutPacingSettings(ctx context.Context, ownerID uuid.UUID, s pacing.PacingSettings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	ctx, span := telemetry.StartDatabaseSpan(ctx, "UPSERT", "pacing_settings")
	defer span.End()

	_, err := r.db.Exec(ctx, `
		INSERT INTO pacing_settings (owner_id, min_dial_rate, max_dial_rate, target_answer_rate,
			max_abandonment_rate, learning_rate, auto_adjust_enabled, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (owner_id) DO UPDATE SET
			min_dial_rate = EXCLUDED.min_dial_rate,
			max_dial_rate = EXCLUDED.max_dial_rate,
			target_answer_rate = EXCLUDED.target_answer_rate,
			max_abandonment_rate = EXCLUDED.max_abandonment_rate,
			learning_rate = EXCLUDED.learning_rate,
			auto_adjust_enabled = EXCLUDED.auto_adjust_enabled,
			updated_at = NOW()`,
		ownerID, s.MinDialRate, s.MaxDialRate, s.TargetAnswerRate,
		s.MaxAbandonmentRate, s.LearningRate, s.AutoAdjustEnabled,
	)
	return classify(err, "put pacing settings", "pacing settings")
}

func (r *SettingsRepository) GetConcurrencySettings(ctx context.Context, ownerID uuid.UUID) (pacing.ConcurrencySettings, error) {
	ctx, span := telemetry.StartDatabaseSpan(ctx, "SELECT", "concurrency_settings")
	defer span.End()

	var s pacing.ConcurrencySettings
	err := r.db.QueryRow(ctx, `
		SELECT max_concurrent_calls, calls_per_minute, max_calls_per_agent,
			retell_max_concurrent, assistable_max_concurrent, transfer_queue_enabled
		FROM concurrency_settings WHERE owner_id = $1`, ownerID).Scan(
		&s.MaxConcurrentCalls, &s.CallsPerMinute, &s.MaxCallsPerAgent,
		&s.RetellMaxConcurrent, &s.AssistableMaxConcurrent, &s.TransferQueueEnabled,
	)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return r.defaultConcurrency, nil
	}
	if err != nil {
		return pacing.ConcurrencySettings{}, classify(err, "get concurrency settings", "concurrency settings")
	}
	return s, nil
}

// PutConcurrencySettings overwrites every concurrency field of the owner.
func (r *SettingsRepository) PutConcurrencySettings(ctx context.Context, ownerID uuid.UUID, s pacing.ConcurrencySettings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	ctx, span := telemetry.StartDatabaseSpan(ctx, "UPSERT", "concurrency_settings")
	defer span.End()

	_, err := r.db.Exec(ctx, `
		INSERT INTO concurrency_settings (owner_id, max_concurrent_calls, calls_per_minute,
			max_calls_per_agent, retell_max_concurrent, assistable_max_concurrent,
			transfer_queue_enabled, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (owner_id) DO UPDATE SET
			max_concurrent_calls = EXCLUDED.max_concurrent_calls,
			calls_per_minute = EXCLUDED.calls_per_minute,
			max_calls_per_agent = EXCLUDED.max_calls_per_agent,
			retell_max_concurrent = EXCLUDED.retell_max_concurrent,
			assistable_max_concurrent = EXCLUDED.assistable_max_concurrent,
			transfer_queue_enabled = EXCLUDED.transfer_queue_enabled,
			updated_at = NOW()`,
		ownerID, s.MaxConcurrentCalls, s.CallsPerMinute, s.MaxCallsPerAgent,
		s.RetellMaxConcurrent, s.AssistableMaxConcurrent, s.TransferQueueEnabled,
	)
	return classify(err, "put concurrency settings", "concurrency settings")
}

// SetDialRate moves the owner's calls_per_minute from expected to next and
// reports whether it did. The row is left alone when the stored rate is no
// longer expected. Owners without a row are on the default rate.
func (r *SettingsRepository) SetDialRate(ctx context.Context, ownerID uuid.UUID, expected, next int) (bool, error) {
	ctx, span := telemetry.StartDatabaseSpan(ctx, "UPDATE", "concurrency_settings")
	defer span.End()

	tag, err := r.db.Exec(ctx, `
		UPDATE concurrency_settings SET calls_per_minute = $3, updated_at = NOW()
		WHERE owner_id = $1 AND calls_per_minute = $2`,
		ownerID, expected, next,
	)
	if err != nil {
		return false, classify(err, "set dial rate", "concurrency settings")
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}
	if r.defaultConcurrency.CallsPerMinute != expected {
		return false, nil
	}

	d := r.defaultConcurrency
	tag, err = r.db.Exec(ctx, `
		INSERT INTO concurrency_settings (owner_id, max_concurrent_calls, calls_per_minute,
			max_calls_per_agent, retell_max_concurrent, assistable_max_concurrent,
			transfer_queue_enabled, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (owner_id) DO NOTHING`,
		ownerID, d.MaxConcurrentCalls, next, d.MaxCallsPerAgent,
		d.RetellMaxConcurrent, d.AssistableMaxConcurrent, d.TransferQueueEnabled,
	)
	if err != nil {
		return false, classify(err, "set dial rate", "concurrency settings")
	}
	return tag.RowsAffected() == 1, nil
}
