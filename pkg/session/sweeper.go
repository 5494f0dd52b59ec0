package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"grindhub/pkg/logx"
)

// DefaultSweepSchedule runs the idle sweep once a minute.
const DefaultSweepSchedule = "@every 1m"

// Sweeper periodically removes idle sessions from a store.
type Sweeper struct {
	store    Store
	idle     time.Duration
	schedule string
	now      func() time.Time
	cron     *cron.Cron
	logger   *logx.Logger
	mu       sync.Mutex
	started  bool
}

// NewSweeper creates a sweeper. An empty schedule uses DefaultSweepSchedule.
func NewSweeper(store Store, idle time.Duration, schedule string) *Sweeper {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	return &Sweeper{
		store:    store,
		idle:     idle,
		schedule: schedule,
		now:      time.Now,
		cron:     cron.New(),
		logger:   logx.NewLogger("sweeper"),
	}
}

// Start schedules the sweep. It returns an error for an unparseable schedule.
func (s *Sweeper) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}
	if _, err := s.cron.AddFunc(s.schedule, func() { _, _ = s.SweepOnce(context.Background()) }); err != nil {
		return fmt.Errorf("sweep schedule %q: %w", s.schedule, err)
	}
	s.cron.Start()
	s.started = true
	s.logger.Info("idle sweep scheduled %s (idle timeout %s)", s.schedule, s.idle)
	return nil
}

// SweepOnce removes every session idle longer than the timeout.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	n, err := s.store.Sweep(ctx, s.now().Add(-s.idle))
	if err != nil {
		s.logger.Warn("idle sweep failed: %v", err)
		return 0, err
	}
	if n > 0 {
		s.logger.Info("reset %d idle session(s)", n)
	}
	return n, nil
}

// Stop halts scheduling and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	<-s.cron.Stop().Done()
	s.started = false
}
