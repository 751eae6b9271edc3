package compliance

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/davidleathers/outbound-pacing-backend/internal/domain/call"
	"github.com/davidleathers/outbound-pacing-backend/internal/domain/campaign"
	"github.com/davidleathers/outbound-pacing-backend/internal/domain/compliance"
	"github.com/davidleathers/outbound-pacing-backend/internal/domain/errors"
	"github.com/davidleathers/outbound-pacing-backend/internal/infrastructure/telemetry"
	"github.com/davidleathers/outbound-pacing-backend/internal/metrics"
	"github.com/davidleathers/outbound-pacing-backend/internal/service/scheduler"
)

// DefaultCooldown is how long the monitor backs off after a transient read
// failure.
const DefaultCooldown = 60 * time.Second

// Config tunes a Monitor.
type Config struct {
	Cooldown   time.Duration
	Thresholds compliance.Thresholds
}

// Dependencies are shared by every Monitor.
type Dependencies struct {
	Outcomes  OutcomeReader
	Campaigns CampaignStore
	Metrics   MetricsStore
	Alerts    AlertRecorder
	Publisher Publisher
	// Lifecycle, when set, retires the campaign's tasks after a pause.
	Lifecycle CampaignLifecycle
	Clock     call.Clock
	Logger    *zap.Logger
	Registry  *metrics.Registry
}

// Monitor evaluates a campaign's regulatory posture and pauses it on a hard
// violation. It never resumes a campaign.
type Monitor struct {
	campaignID uuid.UUID
	deps       Dependencies
	cfg        Config
	logger     *zap.Logger

	mu            sync.Mutex
	cooldownUntil time.Time
}

func NewMonitor(campaignID uuid.UUID, deps Dependencies, cfg Config) *Monitor {
	if deps.Clock == nil {
		deps.Clock = call.RealClock{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	return &Monitor{
		campaignID: campaignID,
		deps:       deps,
		cfg:        cfg,
		logger: deps.Logger.With(
			zap.String("component", "compliance_monitor"),
			zap.String("campaign_id", campaignID.String()),
		),
	}
}

func (m *Monitor) Name() string { return metrics.TaskCompliance }

// Tick runs one check. A check that produced no verdict reports
// scheduler.ErrNoData.
func (m *Monitor) Tick(ctx context.Context) error {
	res, err := m.Check(ctx)
	if err != nil {
		return err
	}
	if res == nil {
		return scheduler.ErrNoData
	}
	return nil
}

// InCooldown reports whether reads are suspended at now.
func (m *Monitor) InCooldown(now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return now.Before(m.cooldownUntil)
}

func (m *Monitor) startCooldown(ctx context.Context, now time.Time, err error) {
	m.mu.Lock()
	m.cooldownUntil = now.Add(m.cfg.Cooldown)
	m.mu.Unlock()

	m.deps.Registry.RecordCooldown(ctx)
	telemetry.WithTrace(ctx, m.logger).Warn("transient read failure, backing off",
		zap.Error(err), zap.Duration("cooldown", m.cfg.Cooldown))
}

// Check evaluates the campaign. It returns nil metrics and no error while in
// cooldown or right after a transient read failure.
func (m *Monitor) Check(ctx context.Context) (*compliance.Metrics, error) {
	now := m.deps.Clock.Now()
	if m.InCooldown(now) {
		return nil, nil
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "compliance", "check", telemetry.CampaignAttr(m.campaignID))
	defer span.End()
	log := telemetry.WithTrace(ctx, m.logger)

	c, err := m.deps.Campaigns.GetCampaign(ctx, m.campaignID)
	if err != nil {
		return m.readFailed(ctx, now, err, "loading campaign")
	}

	today, err := m.deps.Outcomes.GetRecentCallOutcomes(ctx, call.OutcomeQuery{
		OwnerID:    c.OwnerID,
		CampaignID: &c.ID,
		Since:      c.StartOfDay(now),
	})
	if err != nil {
		return m.readFailed(ctx, now, err, "reading today's outcomes")
	}

	res, err := compliance.Evaluate(c, today, now, m.cfg.Thresholds)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := m.deps.Metrics.PutComplianceMetrics(ctx, res); err != nil {
		telemetry.RecordError(span, err)
		return nil, errors.Wrap(err, "writing compliance metrics")
	}

	for _, v := range res.Warnings {
		m.deps.Registry.RecordViolation(ctx, string(v.Type), string(v.Severity))
		log.Warn("compliance warning", zap.String("type", string(v.Type)), zap.String("description", v.Description))
	}
	for _, v := range res.ComplianceViolations {
		m.deps.Registry.RecordViolation(ctx, string(v.Type), string(v.Severity))
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := m.deps.Alerts.RecordViolation(ctx, c.ID, v); err != nil {
			log.Error("failed to record compliance violation", zap.Error(err), zap.String("type", string(v.Type)))
		}
	}

	if verr := res.Err(); verr != nil {
		telemetry.RecordError(span, verr)
	}
	if res.HasHardViolation() && c.IsActive() {
		if err := m.pause(ctx, c, res); err != nil {
			telemetry.RecordError(span, err)
			return res, err
		}
	}

	if m.deps.Publisher != nil {
		m.deps.Publisher.Publish(ctx, EventComplianceEvaluated, c.ID, res)
	}

	log.Debug("compliance evaluated",
		zap.Float64("abandonment_rate", res.AbandonmentRate),
		zap.Bool("within_calling_hours", res.IsWithinCallingHours),
		zap.Int("dnc_violations", res.DNCViolations),
		zap.Int("hard_violations", len(res.ComplianceViolations)),
		zap.Int("sample_size", res.SampleSize),
	)
	return res, nil
}

func (m *Monitor) pause(ctx context.Context, c *campaign.Campaign, res *compliance.Metrics) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	reason := res.PauseReason()
	if err := m.deps.Campaigns.SetCampaignStatus(ctx, c.ID, campaign.StatusPaused, reason); err != nil {
		return errors.Wrap(err, "pausing campaign")
	}

	m.deps.Registry.RecordPause(ctx)
	telemetry.WithTrace(ctx, m.logger).Warn("campaign paused for compliance",
		zap.String("reason", reason), zap.Error(res.Err()))
	if m.deps.Publisher != nil {
		m.deps.Publisher.Publish(ctx, EventCampaignPaused, c.ID, map[string]string{
			"status": string(campaign.StatusPaused),
			"reason": reason,
		})
	}
	if m.deps.Lifecycle != nil {
		m.deps.Lifecycle.Retire(c.ID)
	}
	return nil
}

func (m *Monitor) readFailed(ctx context.Context, now time.Time, err error, what string) (*compliance.Metrics, error) {
	if errors.IsTransient(err) {
		m.startCooldown(ctx, now, err)
		return nil, nil
	}
	return nil, errors.Wrap(err, what)
}
