package repository

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/davidleathers/outbound-pacing-backend/internal/domain/call"
	"github.com/davidleathers/outbound-pacing-backend/internal/infrastructure/telemetry"
)

// OutcomeRepository reads the call outcomes written by the telephony
// collaborator.
type OutcomeRepository struct {
	db     DBTX
	logger *zap.Logger
}

func NewOutcomeRepository(db DBTX, logger *zap.Logger) *OutcomeRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OutcomeRepository{db: db, logger: logger.With(zap.String("repository", "call_outcomes"))}
}

const outcomeColumns = `id, owner_id, campaign_id, lead_id, phone_number, status, disposition,
	dnc_violation, created_at, answered_at, ended_at, duration_seconds`

// RecordCallOutcome inserts an outcome sample.
func (r *OutcomeRepository) RecordCallOutcome(ctx context.Context, s *call.OutcomeSample) error {
	if err := s.Validate(); err != nil {
		return err
	}
	ctx, span := telemetry.StartDatabaseSpan(ctx, "INSERT", "call_outcomes")
	defer span.End()

	_, err := r.db.Exec(ctx, `
		INSERT INTO call_outcomes (`+outcomeColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		s.ID, s.OwnerID, s.CampaignID, s.LeadID, s.PhoneNumber, s.Status.String(), string(s.Disposition),
		s.DNCViolation, s.CreatedAt, s.AnsweredAt, s.EndedAt, s.DurationSeconds,
	)
	return classify(err, "record call outcome", "call outcome")
}

// GetRecentCallOutcomes returns outcomes created at or after q.Since,
// newest first. Rows with a status or disposition the pacing core does not
// know are logged and skipped.
func (r *OutcomeRepository) GetRecentCallOutcomes(ctx context.Context, q call.OutcomeQuery) ([]*call.OutcomeSample, error) {
	ctx, span := telemetry.StartDatabaseSpan(ctx, "SELECT", "call_outcomes")
	defer span.End()

	query, args := buildOutcomeQuery(q)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, classify(err, "read call outcomes", "call outcome")
	}
	defer rows.Close()

	var out []*call.OutcomeSample
	for rows.Next() {
		var s call.OutcomeSample
		var status, disposition string
		if err := rows.Scan(&s.ID, &s.OwnerID, &s.CampaignID, &s.LeadID, &s.PhoneNumber, &status, &disposition,
			&s.DNCViolation, &s.CreatedAt, &s.AnsweredAt, &s.EndedAt, &s.DurationSeconds); err != nil {
			return nil, classify(err, "scan call outcome", "call outcome")
		}
		if s.Status, err = call.ParseOutcomeStatus(status); err != nil {
			r.skip(ctx, s, err)
			continue
		}
		if s.Disposition, err = call.ParseDisposition(disposition); err != nil {
			r.skip(ctx, s, err)
			continue
		}
		out = append(out, &s)
	}
	return out, classify(rows.Err(), "read call outcomes", "call outcome")
}

func (r *OutcomeRepository) skip(ctx context.Context, s call.OutcomeSample, err error) {
	telemetry.WithTrace(ctx, r.logger).Warn("skipping unreadable call outcome",
		zap.String("outcome_id", s.ID.String()),
		zap.String("owner_id", s.OwnerID.String()),
		zap.Error(err))
}

func buildOutcomeQuery(q call.OutcomeQuery) (string, []any) {
	where := []string{"owner_id = $1", "created_at >= $2"}
	args := []any{q.OwnerID, q.Since}

	if q.CampaignID != nil {
		args = append(args, *q.CampaignID)
		where = append(where, fmt.Sprintf("campaign_id = $%d", len(args)))
	}
	if q.LeadID != nil {
		args = append(args, *q.LeadID)
		where = append(where, fmt.Sprintf("lead_id = $%d", len(args)))
	}
	if q.PhonePrefix != "" {
		args = append(args, escapeLike(q.PhonePrefix)+"%")
		where = append(where, fmt.Sprintf("phone_number LIKE $%d", len(args)))
	}

	query := `SELECT ` + outcomeColumns + ` FROM call_outcomes WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY created_at DESC`
	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	return query, args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
