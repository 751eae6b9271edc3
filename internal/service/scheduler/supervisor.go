package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/davidleathers/outbound-pacing-backend/internal/domain/campaign"
	"github.com/davidleathers/outbound-pacing-backend/internal/metrics"
)

// UnitFactory builds the periodic units for a campaign together with their
// intervals.
type UnitFactory func(c *campaign.Campaign) []Scheduled

// Scheduled pairs a unit with the interval it runs on.
type Scheduled struct {
	Unit     Unit
	Interval time.Duration
}

// Supervisor owns the periodic tasks of every started campaign.
type Supervisor struct {
	base    context.Context
	factory UnitFactory
	logger  *zap.Logger
	metrics *metrics.Registry

	mu    sync.Mutex
	tasks map[uuid.UUID][]*Task
}

// NewSupervisor creates a supervisor whose tasks live as long as base.
func NewSupervisor(base context.Context, factory UnitFactory, logger *zap.Logger, m *metrics.Registry) *Supervisor {
	return &Supervisor{
		base:    base,
		factory: factory,
		logger:  logger,
		metrics: m,
		tasks:   make(map[uuid.UUID][]*Task),
	}
}

// Start launches the campaign's tasks. It returns false when they were
// already running.
func (s *Supervisor) Start(c *campaign.Campaign) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[c.ID]; ok {
		return false
	}

	var started []*Task
	for _, sc := range s.factory(c) {
		t := NewTask(c.ID, sc.Unit, sc.Interval, s.logger, s.metrics)
		if err := t.Start(s.base); err != nil {
			s.logger.Error("failed to start task", zap.String("campaign_id", c.ID.String()), zap.Error(err))
			continue
		}
		started = append(started, t)
	}
	s.tasks[c.ID] = started
	return true
}

// Stop cancels the campaign's tasks. It returns false when none were running.
func (s *Supervisor) Stop(campaignID uuid.UUID) bool {
	s.mu.Lock()
	tasks, ok := s.tasks[campaignID]
	delete(s.tasks, campaignID)
	s.mu.Unlock()

	for _, t := range tasks {
		t.Stop()
	}
	return ok
}

// Retire removes the campaign's tasks and stops them in the background. A
// unit may retire its own campaign from inside Tick, where Stop would wait
// on the tick that called it.
func (s *Supervisor) Retire(campaignID uuid.UUID) bool {
	s.mu.Lock()
	tasks, ok := s.tasks[campaignID]
	delete(s.tasks, campaignID)
	s.mu.Unlock()

	for _, t := range tasks {
		go t.Stop()
	}
	if ok {
		s.logger.Info("campaign tasks retired", zap.String("campaign_id", campaignID.String()))
	}
	return ok
}

// StopAll cancels every task, used on shutdown.
func (s *Supervisor) StopAll() {
	s.mu.Lock()
	all := s.tasks
	s.tasks = make(map[uuid.UUID][]*Task)
	s.mu.Unlock()

	var wg sync.WaitGroup
	for _, tasks := range all {
		for _, t := range tasks {
			wg.Add(1)
			go func(t *Task) {
				defer wg.Done()
				t.Stop()
			}(t)
		}
	}
	wg.Wait()
}

func (s *Supervisor) Running(campaignID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tasks[campaignID]
	return ok
}

// Campaigns lists the campaigns with running tasks.
func (s *Supervisor) Campaigns() []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]uuid.UUID, 0, len(s.tasks))
	for id := range s.tasks {
		ids = append(ids, id)
	}
	return ids
}

// Each calls fn for every running unit.
func (s *Supervisor) Each(fn func(campaignID uuid.UUID, u Unit)) {
	s.mu.Lock()
	snapshot := make(map[uuid.UUID][]*Task, len(s.tasks))
	for id, tasks := range s.tasks {
		snapshot[id] = tasks
	}
	s.mu.Unlock()

	for id, tasks := range snapshot {
		for _, t := range tasks {
			fn(id, t.Unit())
		}
	}
}
