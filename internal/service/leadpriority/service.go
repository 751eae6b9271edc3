package leadpriority

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/davidleathers/outbound-pacing-backend/internal/domain/call"
	"github.com/davidleathers/outbound-pacing-backend/internal/domain/campaign"
	"github.com/davidleathers/outbound-pacing-backend/internal/domain/errors"
	"github.com/davidleathers/outbound-pacing-backend/internal/domain/lead"
	"github.com/davidleathers/outbound-pacing-backend/internal/domain/values"
	"github.com/davidleathers/outbound-pacing-backend/internal/infrastructure/telemetry"
	"github.com/davidleathers/outbound-pacing-backend/internal/metrics"
)

// Config tunes prioritization.
type Config struct {
	HistoryWindow      time.Duration
	AreaCodeSampleSize int
	MinAreaCodeSamples int
	Weights            lead.Weights
}

// DefaultConfig looks back 90 days and samples 100 calls per area code.
func DefaultConfig() Config {
	return Config{
		HistoryWindow:      90 * 24 * time.Hour,
		AreaCodeSampleSize: 100,
		MinAreaCodeSamples: lead.DefaultMinAreaCodeSamples,
		Weights:            lead.DefaultWeights(),
	}
}

// Result is the ranked output of one prioritization run.
type Result struct {
	CampaignID  uuid.UUID    `json:"campaign_id"`
	Scores      []lead.Score `json:"scores"`
	Scored      int          `json:"scored"`
	Failures    []Failure    `json:"failures,omitempty"`
	EvaluatedAt time.Time    `json:"evaluated_at"`
}

// Failure is a lead whose priority could not be written back.
type Failure struct {
	LeadID uuid.UUID `json:"lead_id"`
	Error  string    `json:"error"`
}

type service struct {
	leads     LeadStore
	campaigns CampaignReader
	outcomes  OutcomeReader
	scorer    *lead.Scorer
	cfg       Config
	clock     call.Clock
	logger    *zap.Logger
	metrics   *metrics.Registry
}

func NewService(leads LeadStore, campaigns CampaignReader, outcomes OutcomeReader, cfg Config, clock call.Clock, logger *zap.Logger, m *metrics.Registry) Service {
	if clock == nil {
		clock = call.RealClock{}
	}
	if cfg.AreaCodeSampleSize <= 0 {
		cfg.AreaCodeSampleSize = DefaultConfig().AreaCodeSampleSize
	}
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = DefaultConfig().HistoryWindow
	}
	return &service{
		leads:     leads,
		campaigns: campaigns,
		outcomes:  outcomes,
		scorer:    lead.NewScorer(cfg.Weights, cfg.MinAreaCodeSamples),
		cfg:       cfg,
		clock:     clock,
		logger:    logger.With(zap.String("component", "lead_prioritizer")),
		metrics:   m,
	}
}

// Prioritize scores every callable lead, ranks them and stores each lead's
// new priority. A failed write is reported in the result and does not abort
// the remaining writes. limit <= 0 returns every score.
func (s *service) Prioritize(ctx context.Context, campaignID uuid.UUID, limit int) (*Result, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "leadpriority", "prioritize", telemetry.CampaignAttr(campaignID))
	defer span.End()
	log := telemetry.WithTrace(ctx, s.logger).With(zap.String("campaign_id", campaignID.String()))

	c, err := s.campaigns.GetCampaign(ctx, campaignID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, errors.Wrap(err, "loading campaign")
	}

	leads, err := s.leads.GetCallableLeads(ctx, campaignID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, errors.Wrap(err, "loading callable leads")
	}

	now := s.clock.Now()
	areaCodes := make(map[string]lead.AreaCodeStat)
	scores := make([]lead.Score, 0, len(leads))

	for _, l := range leads {
		history, err := s.outcomes.GetRecentCallOutcomes(ctx, call.OutcomeQuery{
			OwnerID: c.OwnerID,
			LeadID:  &l.ID,
			Since:   now.Add(-s.cfg.HistoryWindow),
		})
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, errors.Wrap(err, "reading lead history")
		}

		stat, err := s.areaCodeStat(ctx, c, l.PhoneNumber, areaCodes)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}

		scores = append(scores, s.scorer.Score(l, lead.Input{
			Now:              now,
			History:          history,
			AreaCode:         stat,
			CampaignTimezone: c.Timezone,
		}))
	}

	ranked := lead.Rank(scores, 0)

	res := &Result{CampaignID: campaignID, Scored: len(ranked), EvaluatedAt: now}
	for _, sc := range ranked {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := s.leads.SetLeadPriority(ctx, sc.LeadID, sc.Priority); err != nil {
			log.Warn("failed to update lead priority",
				zap.String("lead_id", sc.LeadID.String()),
				zap.Int("priority", sc.Priority),
				zap.Error(err))
			res.Failures = append(res.Failures, Failure{LeadID: sc.LeadID, Error: err.Error()})
		}
	}

	res.Scores = ranked
	if limit > 0 && len(ranked) > limit {
		res.Scores = ranked[:limit]
	}
	s.metrics.RecordPrioritization(ctx, res.Scored, len(res.Failures))

	log.Info("leads prioritized",
		zap.Int("scored", res.Scored),
		zap.Int("returned", len(res.Scores)),
		zap.Int("write_failures", len(res.Failures)))

	return res, nil
}

// areaCodeStat returns the answer history of the lead's area code, memoized
// for the run. Numbers without a NANP area code get an empty stat.
func (s *service) areaCodeStat(ctx context.Context, c *campaign.Campaign, phone string, memo map[string]lead.AreaCodeStat) (lead.AreaCodeStat, error) {
	prefix := values.AreaCodePrefix(phone)
	if prefix == "" {
		return lead.AreaCodeStat{}, nil
	}
	if st, ok := memo[prefix]; ok {
		return st, nil
	}

	samples, err := s.outcomes.GetRecentCallOutcomes(ctx, call.OutcomeQuery{
		OwnerID:     c.OwnerID,
		PhonePrefix: prefix,
		Since:       s.clock.Now().Add(-s.cfg.HistoryWindow),
		Limit:       s.cfg.AreaCodeSampleSize,
	})
	if err != nil {
		return lead.AreaCodeStat{}, errors.Wrap(err, "reading area code history")
	}

	st := lead.SummarizeAreaCode(samples)
	memo[prefix] = st
	return st, nil
}
