package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/davidleathers/outbound-pacing-backend/internal/metrics"
)

// Unit is one periodic evaluation scoped to a campaign.
type Unit interface {
	Name() string
	Tick(ctx context.Context) error
}

var ErrAlreadyRunning = errors.New("task already running")

// ErrNoData is returned by a unit whose tick completed without evaluating,
// for example while backing off after a transient read failure.
var ErrNoData = errors.New("tick produced no data")

// Task runs a Unit on a fixed interval. A tick never overlaps the previous
// one, and Stop cancels the context an in-flight tick checks before writing.
type Task struct {
	campaignID uuid.UUID
	unit       Unit
	interval   time.Duration
	logger     *zap.Logger
	metrics    *metrics.Registry

	inFlight atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewTask(campaignID uuid.UUID, unit Unit, interval time.Duration, logger *zap.Logger, m *metrics.Registry) *Task {
	return &Task{
		campaignID: campaignID,
		unit:       unit,
		interval:   interval,
		logger: logger.With(
			zap.String("task", unit.Name()),
			zap.String("campaign_id", campaignID.String()),
		),
		metrics: m,
	}
}

func (t *Task) Unit() Unit {
	return t.unit
}

func (t *Task) CampaignID() uuid.UUID {
	return t.campaignID
}

// Start launches the ticking goroutine. The first tick runs immediately.
func (t *Task) Start(parent context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cancel != nil {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(parent)
	t.cancel = cancel
	t.done = make(chan struct{})
	t.metrics.AddRunningTasks(1)

	go t.run(ctx, t.done)

	t.logger.Info("task started", zap.Duration("interval", t.interval))
	return nil
}

// Stop cancels the task and waits for its goroutine to exit. Stopping a
// stopped task is a no-op.
func (t *Task) Stop() {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.cancel, t.done = nil, nil
	t.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	t.metrics.AddRunningTasks(-1)
	t.logger.Info("task stopped")
}

func (t *Task) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancel != nil
}

func (t *Task) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	t.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single tick unless one is already in flight, in which
// case it returns false without doing anything.
func (t *Task) RunOnce(ctx context.Context) bool {
	if !t.inFlight.CompareAndSwap(false, true) {
		t.logger.Debug("tick skipped, previous tick still in flight")
		t.metrics.RecordTick(ctx, t.unit.Name(), metrics.ResultSkipped, 0)
		return false
	}
	defer t.inFlight.Store(false)

	start := time.Now()
	err := t.unit.Tick(ctx)
	elapsed := time.Since(start)

	switch {
	case err == nil:
		t.metrics.RecordTick(ctx, t.unit.Name(), metrics.ResultOK, elapsed)
	case errors.Is(err, ErrNoData):
		t.metrics.RecordTick(ctx, t.unit.Name(), metrics.ResultNoData, elapsed)
	case errors.Is(err, context.Canceled):
		t.logger.Debug("tick cancelled")
	default:
		t.metrics.RecordTick(ctx, t.unit.Name(), metrics.ResultError, elapsed)
		t.logger.Warn("tick failed", zap.Error(err), zap.Duration("elapsed", elapsed))
	}
	return true
}
