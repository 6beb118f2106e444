package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"medreminder/internal/model"
)

// DefaultSpec fires at the top of every minute.
const DefaultSpec = "* * * * *"

// CycleRunner runs one dispatch cycle at the given instant.
type CycleRunner interface {
	RunCycle(ctx context.Context, now time.Time) (*model.CycleReport, error)
}

// Manager fires dispatch cycles on a cron schedule. Ticks are not serialized:
// a slow cycle does not delay or skip the next one.
type Manager struct {
	runner CycleRunner
	spec   string
	loc    *time.Location
	log    *zap.Logger
	now    func() time.Time

	mu     sync.Mutex
	c      *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
}

// ManagerConfig holds configuration for the cron manager.
type ManagerConfig struct {
	Spec     string         // five-field cron expression or descriptor
	Location *time.Location // zone the expression is evaluated in
}

func NewManager(runner CycleRunner, cfg ManagerConfig, log *zap.Logger) *Manager {
	if cfg.Spec == "" {
		cfg.Spec = DefaultSpec
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Manager{
		runner: runner,
		spec:   cfg.Spec,
		loc:    cfg.Location,
		log:    log.Named("cron"),
		now:    time.Now,
	}
}

// Start registers the cycle job and starts the scheduler. Call Stop to shut
// it down. Cycles keep ctx's values but not its cancellation: in-flight
// cycles are only cancelled when Stop's deadline expires.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.c != nil {
		return nil
	}

	m.ctx, m.cancel = context.WithCancel(context.WithoutCancel(ctx))
	c := cron.New(cron.WithLocation(m.loc))
	if _, err := c.AddFunc(m.spec, m.tick); err != nil {
		m.cancel()
		return fmt.Errorf("invalid cron spec %q: %w", m.spec, err)
	}

	m.c = c
	c.Start()
	m.log.Info("scheduler started", zap.String("spec", m.spec), zap.String("tz", m.loc.String()))
	return nil
}

// Stop halts the schedule and blocks until in-flight cycles finish or ctx is
// done, whichever comes first. Cycles still running after that are cancelled.
func (m *Manager) Stop(ctx context.Context) {
	m.mu.Lock()
	c := m.c
	m.c = nil
	m.mu.Unlock()
	if c == nil {
		return
	}

	m.log.Info("stopping scheduler")
	// done once every running job has returned
	jobs := c.Stop()
	select {
	case <-jobs.Done():
		m.log.Info("scheduler stopped")
	case <-ctx.Done():
		m.log.Warn("shutdown deadline reached, cancelling in-flight cycles")
		m.cancel()
		<-jobs.Done()
	}
	m.cancel()
}

// tick is the cron job body. It runs on the cron goroutine pool, so
// overlapping ticks each get their own cycle.
func (m *Manager) tick() {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("cycle panicked", zap.Any("panic", r))
		}
	}()

	// Errors are already logged and counted by the runner.
	_, _ = m.runner.RunCycle(m.ctx, m.now())
}
