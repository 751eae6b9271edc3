package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/davidleathers/outbound-pacing-backend/internal/domain/campaign"
)

type blockingUnit struct {
	ticks   atomic.Int32
	entered chan struct{}
	release chan struct{}
	sawDone atomic.Bool
}

func newBlockingUnit() *blockingUnit {
	return &blockingUnit{
		entered: make(chan struct{}, 16),
		release: make(chan struct{}),
	}
}

func (u *blockingUnit) Name() string { return "blocking" }

func (u *blockingUnit) Tick(ctx context.Context) error {
	u.ticks.Add(1)
	u.entered <- struct{}{}
	select {
	case <-u.release:
		return nil
	case <-ctx.Done():
		u.sawDone.Store(true)
		return ctx.Err()
	}
}

type countingUnit struct {
	ticks atomic.Int32
}

func (u *countingUnit) Name() string { return "counting" }

func (u *countingUnit) Tick(context.Context) error {
	u.ticks.Add(1)
	return nil
}

func TestTask_RunOnceSkipsWhileInFlight(t *testing.T) {
	unit := newBlockingUnit()
	task := NewTask(uuid.New(), unit, time.Hour, zaptest.NewLogger(t), nil)

	done := make(chan bool)
	go func() { done <- task.RunOnce(context.Background()) }()
	<-unit.entered

	assert.False(t, task.RunOnce(context.Background()))

	close(unit.release)
	assert.True(t, <-done)
	assert.Equal(t, int32(1), unit.ticks.Load())

	// guard is released after the tick completes
	go func() { done <- task.RunOnce(context.Background()) }()
	<-unit.entered
	assert.True(t, <-done)
}

func TestTask_StopCancelsInFlightTick(t *testing.T) {
	unit := newBlockingUnit()
	task := NewTask(uuid.New(), unit, time.Hour, zaptest.NewLogger(t), nil)

	require.NoError(t, task.Start(context.Background()))
	assert.ErrorIs(t, task.Start(context.Background()), ErrAlreadyRunning)

	<-unit.entered
	task.Stop()

	assert.True(t, unit.sawDone.Load())
	assert.False(t, task.Running())

	// stopping twice is harmless
	task.Stop()
}

func TestTask_TicksOnInterval(t *testing.T) {
	unit := &countingUnit{}
	task := NewTask(uuid.New(), unit, 5*time.Millisecond, zaptest.NewLogger(t), nil)

	require.NoError(t, task.Start(context.Background()))
	assert.Eventually(t, func() bool { return unit.ticks.Load() >= 3 }, time.Second, time.Millisecond)
	task.Stop()

	after := unit.ticks.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, unit.ticks.Load())
}

func TestSupervisor_Lifecycle(t *testing.T) {
	units := map[uuid.UUID]*countingUnit{}
	factory := func(c *campaign.Campaign) []Scheduled {
		u := &countingUnit{}
		units[c.ID] = u
		return []Scheduled{{Unit: u, Interval: time.Hour}}
	}

	sup := NewSupervisor(context.Background(), factory, zaptest.NewLogger(t), nil)
	c := &campaign.Campaign{ID: uuid.New(), Status: campaign.StatusActive}

	assert.True(t, sup.Start(c))
	assert.False(t, sup.Start(c))
	assert.True(t, sup.Running(c.ID))
	assert.Equal(t, []uuid.UUID{c.ID}, sup.Campaigns())

	assert.Eventually(t, func() bool { return units[c.ID].ticks.Load() == 1 }, time.Second, time.Millisecond)

	var seen int
	sup.Each(func(id uuid.UUID, u Unit) {
		assert.Equal(t, c.ID, id)
		assert.Equal(t, "counting", u.Name())
		seen++
	})
	assert.Equal(t, 1, seen)

	assert.True(t, sup.Stop(c.ID))
	assert.False(t, sup.Stop(c.ID))
	assert.False(t, sup.Running(c.ID))
}

func TestSupervisor_StopAll(t *testing.T) {
	blockers := []*blockingUnit{}
	factory := func(c *campaign.Campaign) []Scheduled {
		u := newBlockingUnit()
		blockers = append(blockers, u)
		return []Scheduled{{Unit: u, Interval: time.Hour}}
	}

	sup := NewSupervisor(context.Background(), factory, zaptest.NewLogger(t), nil)
	for i := 0; i < 3; i++ {
		sup.Start(&campaign.Campaign{ID: uuid.New()})
	}
	for _, b := range blockers {
		<-b.entered
	}

	sup.StopAll()

	assert.Empty(t, sup.Campaigns())
	for _, b := range blockers {
		assert.True(t, b.sawDone.Load())
	}
}

// retiringUnit retires its own campaign on the first tick.
type retiringUnit struct {
	sup   *Supervisor
	id    uuid.UUID
	ticks atomic.Int32
}

func (u *retiringUnit) Name() string { return "retiring" }

func (u *retiringUnit) Tick(context.Context) error {
	u.ticks.Add(1)
	u.sup.Retire(u.id)
	return nil
}

func TestSupervisor_RetireFromInsideTick(t *testing.T) {
	var unit *retiringUnit
	var sup *Supervisor
	factory := func(c *campaign.Campaign) []Scheduled {
		unit = &retiringUnit{sup: sup, id: c.ID}
		return []Scheduled{{Unit: unit, Interval: time.Hour}}
	}
	sup = NewSupervisor(context.Background(), factory, zaptest.NewLogger(t), nil)
	c := &campaign.Campaign{ID: uuid.New(), Status: campaign.StatusActive}

	require.True(t, sup.Start(c))
	assert.Eventually(t, func() bool { return !sup.Running(c.ID) }, time.Second, time.Millisecond)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), unit.ticks.Load())
	assert.False(t, sup.Retire(c.ID))
	assert.Empty(t, sup.Campaigns())
}
