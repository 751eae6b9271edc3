package metrics

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Task names used as the "task" attribute.
const (
	TaskPacing     = "pacing"
	TaskCompliance = "compliance"
)

// Tick results used as the "result" attribute.
const (
	ResultOK      = "ok"
	ResultError   = "error"
	ResultSkipped = "skipped"
	ResultNoData  = "no_data"
)

// Registry holds the pacing domain metrics. A nil *Registry records nothing.
type Registry struct {
	meter metric.Meter

	// Scheduler
	TickDuration metric.Float64Histogram
	TickCounter  metric.Int64Counter
	RunningTasks metric.Int64ObservableGauge

	// Pacing
	RecommendedRate   metric.Int64Gauge
	PacingAdjustments metric.Int64Counter

	// Compliance
	ViolationCounter metric.Int64Counter
	CampaignPauses   metric.Int64Counter
	CooldownCounter  metric.Int64Counter

	// Lead prioritization
	LeadsScored           metric.Int64Counter
	PriorityWriteFailures metric.Int64Counter

	// Predictive and dispatch
	PredictiveEvaluations metric.Int64Counter
	DispatchDecisions     metric.Int64Counter

	mu           sync.RWMutex
	runningTasks int64
}

// NewRegistry creates the registry on the global meter provider.
func NewRegistry(meterName string) (*Registry, error) {
	return NewRegistryWithMeter(otel.Meter(meterName))
}

// NewRegistryWithMeter creates the registry on an explicit meter.
func NewRegistryWithMeter(meter metric.Meter) (*Registry, error) {
	r := &Registry{meter: meter}

	for _, init := range []func() error{
		r.initSchedulerMetrics,
		r.initPacingMetrics,
		r.initComplianceMetrics,
		r.initLeadMetrics,
		r.initDispatchMetrics,
	} {
		if err := init(); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) initSchedulerMetrics() error {
	var err error

	r.TickDuration, err = r.meter.Float64Histogram(
		"pacer.task.tick_duration",
		metric.WithDescription("Duration of one periodic task evaluation in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000),
	)
	if err != nil {
		return err
	}

	r.TickCounter, err = r.meter.Int64Counter(
		"pacer.task.ticks",
		metric.WithDescription("Periodic task ticks by result"),
	)
	if err != nil {
		return err
	}

	r.RunningTasks, err = r.meter.Int64ObservableGauge(
		"pacer.task.running",
		metric.WithDescription("Number of running periodic tasks"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			r.mu.RLock()
			defer r.mu.RUnlock()
			o.Observe(r.runningTasks)
			return nil
		}),
	)
	return err
}

func (r *Registry) initPacingMetrics() error {
	var err error

	r.RecommendedRate, err = r.meter.Int64Gauge(
		"pacer.pacing.recommended_rate",
		metric.WithDescription("Latest recommended dial rate per campaign"),
		metric.WithUnit("{call}/min"),
	)
	if err != nil {
		return err
	}

	r.PacingAdjustments, err = r.meter.Int64Counter(
		"pacer.pacing.adjustments",
		metric.WithDescription("Pacing decisions by direction and whether they were applied"),
	)
	return err
}

func (r *Registry) initComplianceMetrics() error {
	var err error

	r.ViolationCounter, err = r.meter.Int64Counter(
		"pacer.compliance.violations",
		metric.WithDescription("Compliance violations by type and severity"),
	)
	if err != nil {
		return err
	}

	r.CampaignPauses, err = r.meter.Int64Counter(
		"pacer.compliance.campaign_pauses",
		metric.WithDescription("Campaigns paused by the compliance monitor"),
	)
	if err != nil {
		return err
	}

	r.CooldownCounter, err = r.meter.Int64Counter(
		"pacer.compliance.cooldowns",
		metric.WithDescription("Cooldown windows entered after transient read failures"),
	)
	return err
}

func (r *Registry) initLeadMetrics() error {
	var err error

	r.LeadsScored, err = r.meter.Int64Counter(
		"pacer.leads.scored",
		metric.WithDescription("Leads scored by the prioritizer"),
	)
	if err != nil {
		return err
	}

	r.PriorityWriteFailures, err = r.meter.Int64Counter(
		"pacer.leads.priority_write_failures",
		metric.WithDescription("Failed lead priority write-backs"),
	)
	return err
}

func (r *Registry) initDispatchMetrics() error {
	var err error

	r.PredictiveEvaluations, err = r.meter.Int64Counter(
		"pacer.predictive.evaluations",
		metric.WithDescription("Predictive dialer evaluations by recommended action"),
	)
	if err != nil {
		return err
	}

	r.DispatchDecisions, err = r.meter.Int64Counter(
		"pacer.dispatch.decisions",
		metric.WithDescription("Dispatch gate decisions by outcome"),
	)
	return err
}

// AddRunningTasks adjusts the running task gauge.
func (r *Registry) AddRunningTasks(delta int64) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runningTasks += delta
}

// RunningTaskCount returns the current gauge value.
func (r *Registry) RunningTaskCount() int64 {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.runningTasks
}

// RecordTick records one periodic task evaluation.
func (r *Registry) RecordTick(ctx context.Context, task, result string, d time.Duration) {
	if r == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("task", task),
		attribute.String("result", result),
	)
	r.TickCounter.Add(ctx, 1, attrs)
	if result != ResultSkipped {
		r.TickDuration.Record(ctx, float64(d.Microseconds())/1000, attrs)
	}
}

// RecordPacingDecision records the outcome of a pacing tick.
func (r *Registry) RecordPacingDecision(ctx context.Context, campaignID string, adjustment string, rate int, applied bool) {
	if r == nil {
		return
	}
	r.RecommendedRate.Record(ctx, int64(rate), metric.WithAttributes(attribute.String("campaign_id", campaignID)))
	r.PacingAdjustments.Add(ctx, 1, metric.WithAttributes(
		attribute.String("adjustment", adjustment),
		attribute.Bool("applied", applied),
	))
}

// RecordViolation counts one compliance violation.
func (r *Registry) RecordViolation(ctx context.Context, violationType, severity string) {
	if r == nil {
		return
	}
	r.ViolationCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("type", violationType),
		attribute.String("severity", severity),
	))
}

// RecordPause counts one automatic campaign pause.
func (r *Registry) RecordPause(ctx context.Context) {
	if r == nil {
		return
	}
	r.CampaignPauses.Add(ctx, 1)
}

// RecordCooldown counts one cooldown window.
func (r *Registry) RecordCooldown(ctx context.Context) {
	if r == nil {
		return
	}
	r.CooldownCounter.Add(ctx, 1)
}

// RecordPrioritization records one prioritizer run.
func (r *Registry) RecordPrioritization(ctx context.Context, scored, failed int) {
	if r == nil {
		return
	}
	r.LeadsScored.Add(ctx, int64(scored))
	if failed > 0 {
		r.PriorityWriteFailures.Add(ctx, int64(failed))
	}
}

// RecordPredictive counts one predictive evaluation.
func (r *Registry) RecordPredictive(ctx context.Context, action string, valid bool) {
	if r == nil {
		return
	}
	r.PredictiveEvaluations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", action),
		attribute.Bool("valid", valid),
	))
}

// RecordDispatch counts one dispatch gate decision.
func (r *Registry) RecordDispatch(ctx context.Context, granted bool, reason string) {
	if r == nil {
		return
	}
	r.DispatchDecisions.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("granted", granted),
		attribute.String("reason", reason),
	))
}
