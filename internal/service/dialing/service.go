package dialing

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/davidleathers/outbound-pacing-backend/internal/domain/call"
	"github.com/davidleathers/outbound-pacing-backend/internal/domain/errors"
	"github.com/davidleathers/outbound-pacing-backend/internal/domain/pacing"
	"github.com/davidleathers/outbound-pacing-backend/internal/infrastructure/telemetry"
	"github.com/davidleathers/outbound-pacing-backend/internal/metrics"
)

// Reasons reported on an Authorization.
const (
	ReasonGranted          = "granted"
	ReasonPartial          = "partial"
	ReasonCampaignInactive = "campaign_not_active"
	ReasonComplianceHold   = "compliance_violation"
	ReasonOutsideHours     = "outside_calling_hours"
	ReasonNoCapacity       = "no_capacity"
	ReasonRateLimited      = "rate_limited"
	ReasonNothingRequested = "nothing_requested"
)

const defaultDispatchBurst = 5

// AuthorizeRequest asks to place up to Requested calls while InFlight calls
// are already active.
type AuthorizeRequest struct {
	CampaignID uuid.UUID `json:"campaign_id" validate:"required"`
	Requested  int       `json:"requested" validate:"gte=0"`
	InFlight   int       `json:"in_flight" validate:"gte=0"`
}

// Authorization is the gate's answer.
type Authorization struct {
	CampaignID      uuid.UUID `json:"campaign_id"`
	Allowed         bool      `json:"allowed"`
	Requested       int       `json:"requested"`
	Granted         int       `json:"granted"`
	Reason          string    `json:"reason"`
	RecommendedRate int       `json:"recommended_rate"`
	AvailableSlots  int       `json:"available_slots"`
}

type service struct {
	campaigns  CampaignReader
	settings   SettingsReader
	transfers  TransferReader
	compliance ComplianceReader
	dialer     *pacing.PredictiveDialer
	clock      call.Clock
	burst      int
	logger     *zap.Logger
	metrics    *metrics.Registry

	mu       sync.Mutex
	limiters map[uuid.UUID]*rate.Limiter
}

// Config tunes the gate.
type Config struct {
	Burst int
}

func NewService(
	campaigns CampaignReader,
	settings SettingsReader,
	transfers TransferReader,
	complianceReader ComplianceReader,
	dialer *pacing.PredictiveDialer,
	cfg Config,
	clock call.Clock,
	logger *zap.Logger,
	m *metrics.Registry,
) Service {
	if clock == nil {
		clock = call.RealClock{}
	}
	if cfg.Burst <= 0 {
		cfg.Burst = defaultDispatchBurst
	}
	if dialer == nil {
		dialer = pacing.NewPredictiveDialer(pacing.DefaultTuning())
	}
	return &service{
		campaigns:  campaigns,
		settings:   settings,
		transfers:  transfers,
		compliance: complianceReader,
		dialer:     dialer,
		clock:      clock,
		burst:      cfg.Burst,
		logger:     logger.With(zap.String("component", "dispatch_gate")),
		metrics:    m,
		limiters:   make(map[uuid.UUID]*rate.Limiter),
	}
}

func (s *service) RateFor(ctx context.Context, ownerID uuid.UUID, current int) (pacing.DialingRateMetrics, error) {
	cs, ps, err := s.loadSettings(ctx, ownerID)
	if err != nil {
		return pacing.DialingRateMetrics{}, err
	}
	return pacing.ComputeDialingRateWithin(current, cs, ps.Bounds()), nil
}

func (s *service) RateWith(current int, cs pacing.ConcurrencySettings) pacing.DialingRateMetrics {
	return pacing.ComputeDialingRate(current, cs)
}

func (s *service) Predict(ctx context.Context, p pacing.DialingAlgorithmParams) (pacing.PredictiveMetrics, error) {
	m, err := s.dialer.Calculate(p)
	s.metrics.RecordPredictive(ctx, string(m.RecommendedAction), err == nil)
	if err != nil {
		telemetry.WithTrace(ctx, s.logger).Debug("rejected predictive params", zap.Error(err))
	}
	return m, err
}

func (s *service) Insights() pacing.HistoricalInsight {
	return s.dialer.Insights()
}

func (s *service) PlatformCapacity(ctx context.Context, ownerID uuid.UUID) (map[pacing.Platform]pacing.PlatformCapacity, error) {
	cs, err := s.settings.GetConcurrencySettings(ctx, ownerID)
	if err != nil {
		return nil, errors.Wrap(err, "loading concurrency settings")
	}
	transfers, err := s.transfers.GetActiveTransfers(ctx, ownerID)
	if err != nil {
		return nil, errors.Wrap(err, "reading active transfers")
	}
	return pacing.ComputePlatformCapacity(transfers, cs), nil
}

// Authorize refuses inactive campaigns, campaigns under a hard compliance
// violation and campaigns outside their calling hours. Otherwise it grants
// the requested calls up to the free slots and the campaign's token bucket,
// which refills at the recommended rate per minute.
func (s *service) Authorize(ctx context.Context, req AuthorizeRequest) (*Authorization, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "dialing", "authorize", telemetry.CampaignAttr(req.CampaignID))
	defer span.End()

	auth := &Authorization{CampaignID: req.CampaignID, Requested: req.Requested}
	deny := func(reason string) (*Authorization, error) {
		auth.Reason = reason
		s.metrics.RecordDispatch(ctx, false, reason)
		return auth, nil
	}

	c, err := s.campaigns.GetCampaign(ctx, req.CampaignID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, errors.Wrap(err, "loading campaign")
	}
	if !c.IsActive() {
		return deny(ReasonCampaignInactive)
	}

	cm, err := s.compliance.GetComplianceMetrics(ctx, c.ID)
	switch {
	case errors.IsNotFound(err):
	case err != nil:
		telemetry.RecordError(span, err)
		return nil, errors.Wrap(err, "reading compliance metrics")
	case cm.HasHardViolation():
		return deny(ReasonComplianceHold)
	}

	now := s.clock.Now()
	within, err := c.WithinCallingHours(now)
	if err != nil {
		return nil, err
	}
	if !within {
		return deny(ReasonOutsideHours)
	}

	cs, ps, err := s.loadSettings(ctx, c.OwnerID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	rm := pacing.ComputeDialingRateWithin(req.InFlight, cs, ps.Bounds())
	auth.RecommendedRate = rm.RecommendedRate
	auth.AvailableSlots = rm.AvailableSlots

	if req.Requested <= 0 {
		return deny(ReasonNothingRequested)
	}
	if rm.AvailableSlots == 0 {
		return deny(ReasonNoCapacity)
	}

	want := min(req.Requested, rm.AvailableSlots)
	lim := s.limiter(c.ID, rm.RecommendedRate, now)
	granted := 0
	for granted < want && lim.AllowN(now, 1) {
		granted++
	}
	if granted == 0 {
		return deny(ReasonRateLimited)
	}

	auth.Allowed = true
	auth.Granted = granted
	auth.Reason = ReasonGranted
	if granted < req.Requested {
		auth.Reason = ReasonPartial
	}
	s.metrics.RecordDispatch(ctx, true, auth.Reason)

	telemetry.WithTrace(ctx, s.logger).Debug("dispatch authorized",
		zap.String("campaign_id", c.ID.String()),
		zap.Int("requested", req.Requested),
		zap.Int("granted", granted),
		zap.Int("recommended_rate", rm.RecommendedRate),
		zap.Int("available_slots", rm.AvailableSlots))

	return auth, nil
}

// limiter returns the campaign's token bucket, retuned to ratePerMinute.
func (s *service) limiter(campaignID uuid.UUID, ratePerMinute int, now time.Time) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	limit := rate.Limit(float64(ratePerMinute) / 60)
	lim, ok := s.limiters[campaignID]
	if !ok {
		lim = rate.NewLimiter(limit, s.burst)
		s.limiters[campaignID] = lim
		return lim
	}
	if lim.Limit() != limit {
		lim.SetLimitAt(now, limit)
	}
	return lim
}

func (s *service) loadSettings(ctx context.Context, ownerID uuid.UUID) (pacing.ConcurrencySettings, pacing.PacingSettings, error) {
	cs, err := s.settings.GetConcurrencySettings(ctx, ownerID)
	if err != nil {
		return pacing.ConcurrencySettings{}, pacing.PacingSettings{}, errors.Wrap(err, "loading concurrency settings")
	}
	ps, err := s.settings.GetPacingSettings(ctx, ownerID)
	if err != nil {
		return pacing.ConcurrencySettings{}, pacing.PacingSettings{}, errors.Wrap(err, "loading pacing settings")
	}
	return cs, ps, nil
}
