package pacing

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/davidleathers/outbound-pacing-backend/internal/domain/call"
	"github.com/davidleathers/outbound-pacing-backend/internal/domain/campaign"
	"github.com/davidleathers/outbound-pacing-backend/internal/domain/errors"
	"github.com/davidleathers/outbound-pacing-backend/internal/domain/pacing"
	"github.com/davidleathers/outbound-pacing-backend/internal/infrastructure/telemetry"
	"github.com/davidleathers/outbound-pacing-backend/internal/metrics"
	"github.com/davidleathers/outbound-pacing-backend/internal/service/scheduler"
)

// Dependencies are shared by every Loop.
type Dependencies struct {
	Outcomes  OutcomeReader
	Settings  SettingsStore
	Snapshots SnapshotStore
	Publisher Publisher
	// Campaigns, when set, is checked every tick. A campaign that is no
	// longer active is left alone.
	Campaigns CampaignReader
	// Dialer, when set, receives every non-empty hour window as a
	// historical sample.
	Dialer  *pacing.PredictiveDialer
	Clock   call.Clock
	Logger  *zap.Logger
	Metrics *metrics.Registry
}

// Loop is the intelligent pacing feedback controller of one campaign.
// Settings are loaded on the first tick and afterwards change only through
// UpdateSettings and UpdateConcurrency.
type Loop struct {
	campaignID uuid.UUID
	ownerID    uuid.UUID
	deps       Dependencies
	logger     *zap.Logger

	mu          sync.RWMutex
	loaded      bool
	settings    pacing.PacingSettings
	concurrency pacing.ConcurrencySettings
}

func NewLoop(c *campaign.Campaign, deps Dependencies) *Loop {
	if deps.Clock == nil {
		deps.Clock = call.RealClock{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Loop{
		campaignID: c.ID,
		ownerID:    c.OwnerID,
		deps:       deps,
		logger: deps.Logger.With(
			zap.String("component", "pacing_loop"),
			zap.String("campaign_id", c.ID.String()),
		),
	}
}

func (l *Loop) Name() string { return metrics.TaskPacing }

func (l *Loop) OwnerID() uuid.UUID { return l.ownerID }

// UpdateSettings replaces the pacing settings used by subsequent ticks.
func (l *Loop) UpdateSettings(s pacing.PacingSettings) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.settings = s
}

// UpdateConcurrency replaces the concurrency settings used by subsequent
// ticks.
func (l *Loop) UpdateConcurrency(s pacing.ConcurrencySettings) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.concurrency = s
}

func (l *Loop) current() (pacing.PacingSettings, pacing.ConcurrencySettings) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.settings, l.concurrency
}

func (l *Loop) load(ctx context.Context) error {
	l.mu.RLock()
	loaded := l.loaded
	l.mu.RUnlock()
	if loaded {
		return nil
	}

	ps, err := l.deps.Settings.GetPacingSettings(ctx, l.ownerID)
	if err != nil {
		return errors.Wrap(err, "loading pacing settings")
	}
	cs, err := l.deps.Settings.GetConcurrencySettings(ctx, l.ownerID)
	if err != nil {
		return errors.Wrap(err, "loading concurrency settings")
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.loaded {
		l.settings, l.concurrency, l.loaded = ps, cs, true
	}
	return nil
}

// Tick runs one evaluation.
func (l *Loop) Tick(ctx context.Context) error {
	_, err := l.Evaluate(ctx)
	return err
}

// Evaluate samples recent outcomes, recomputes the dial rate and persists
// the snapshot. With auto-adjust on, the recommended rate replaces the
// stored one unless another loop of the owner moved it first. A campaign
// that is not active yields scheduler.ErrNoData without writes, and nothing
// is written once ctx is cancelled.
func (l *Loop) Evaluate(ctx context.Context) (*pacing.Snapshot, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "pacing", "evaluate",
		telemetry.CampaignAttr(l.campaignID), telemetry.OwnerAttr(l.ownerID))
	defer span.End()
	log := telemetry.WithTrace(ctx, l.logger)

	if l.deps.Campaigns != nil {
		c, err := l.deps.Campaigns.GetCampaign(ctx, l.campaignID)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, errors.Wrap(err, "loading campaign")
		}
		if !c.IsActive() {
			log.Debug("campaign not active, skipping evaluation", zap.String("status", string(c.Status)))
			return nil, scheduler.ErrNoData
		}
	}

	if err := l.load(ctx); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	ps, cs := l.current()

	now := l.deps.Clock.Now()
	recent, err := l.read(ctx, call.Window15Min.Since(now))
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	hour, err := l.read(ctx, call.WindowHour.Since(now))
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	recentStats := call.Summarize(recent)
	hourStats := call.Summarize(hour)

	obs := pacing.Observation{
		AnswerRate:      hourStats.AnswerRate(),
		AbandonmentRate: hourStats.AbandonmentRate(),
		CurrentDialRate: float64(recentStats.Total) / 15,
		AvgWaitTime:     hourStats.AvgWaitSeconds(),
		Utilization:     pacing.Utilization(recentStats.InFlight, cs.MaxConcurrentCalls),
		SampleSize:      hourStats.Total,
	}

	snap := &pacing.Snapshot{
		CampaignID:     l.campaignID,
		OwnerID:        l.ownerID,
		Observation:    obs,
		DialingRate:    pacing.ComputeDialingRateWithin(recentStats.InFlight, cs, ps.Bounds()),
		Recommendation: pacing.Evaluate(obs, ps, cs.CallsPerMinute),
		EvaluatedAt:    now,
	}

	var applyErr error
	if ps.AutoAdjustEnabled && snap.Recommendation.RecommendedRate != cs.CallsPerMinute {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		applied, err := l.apply(ctx, cs.CallsPerMinute, snap.Recommendation)
		if err != nil {
			applyErr = errors.Wrap(err, "applying recommended dial rate")
			log.Warn("failed to apply recommended dial rate", zap.Error(err))
		}
		snap.Applied = applied
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := l.deps.Snapshots.PutPacingSnapshot(ctx, snap); err != nil {
		telemetry.RecordError(span, err)
		return nil, errors.Wrap(err, "writing pacing snapshot")
	}

	if l.deps.Dialer != nil && obs.SampleSize > 0 {
		l.deps.Dialer.RecordSample(pacing.HistoricalSample{
			AnswerRate:      obs.AnswerRate,
			AbandonmentRate: obs.AbandonmentRate,
			RecordedAt:      now,
		})
	}
	if l.deps.Publisher != nil {
		l.deps.Publisher.Publish(ctx, EventPacingEvaluated, l.campaignID, snap)
	}
	l.deps.Metrics.RecordPacingDecision(ctx, l.campaignID.String(),
		string(snap.Recommendation.Adjustment), snap.Recommendation.RecommendedRate, snap.Applied)

	log.Debug("pacing evaluated",
		zap.String("adjustment", string(snap.Recommendation.Adjustment)),
		zap.Int("current_rate", snap.Recommendation.CurrentRate),
		zap.Int("recommended_rate", snap.Recommendation.RecommendedRate),
		zap.Float64("answer_rate", obs.AnswerRate),
		zap.Float64("abandonment_rate", obs.AbandonmentRate),
		zap.Int("pacing_score", snap.Recommendation.PacingScore),
		zap.Bool("applied", snap.Applied),
	)

	return snap, applyErr
}

// apply moves the owner's stored rate from expected to the recommendation.
// When another loop got there first the loop adopts the stored settings,
// and only a decrease still below them is retried. Each interval therefore
// moves the owner's rate by at most one step upwards.
func (l *Loop) apply(ctx context.Context, expected int, rec pacing.Recommendation) (bool, error) {
	for {
		ok, err := l.deps.Settings.SetDialRate(ctx, l.ownerID, expected, rec.RecommendedRate)
		if err != nil {
			return false, err
		}
		if ok {
			l.mu.Lock()
			l.concurrency.CallsPerMinute = rec.RecommendedRate
			l.mu.Unlock()
			return true, nil
		}

		fresh, err := l.deps.Settings.GetConcurrencySettings(ctx, l.ownerID)
		if err != nil {
			return false, err
		}
		l.UpdateConcurrency(fresh)
		l.logger.Debug("dial rate moved by another loop",
			zap.Int("expected_rate", expected), zap.Int("stored_rate", fresh.CallsPerMinute))

		if rec.Adjustment != pacing.AdjustDecrease || rec.RecommendedRate >= fresh.CallsPerMinute {
			return false, nil
		}
		expected = fresh.CallsPerMinute
	}
}

func (l *Loop) read(ctx context.Context, since time.Time) ([]*call.OutcomeSample, error) {
	samples, err := l.deps.Outcomes.GetRecentCallOutcomes(ctx, call.OutcomeQuery{
		OwnerID:    l.ownerID,
		CampaignID: &l.campaignID,
		Since:      since,
	})
	if err != nil {
		return nil, errors.Wrap(err, "reading call outcomes")
	}
	return samples, nil
}
