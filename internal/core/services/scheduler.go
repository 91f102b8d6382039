package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/SanjayDoppalapudi/RAG/internal/core/ports/driving"
	"github.com/SanjayDoppalapudi/RAG/internal/logger"
)

// Ensure Scheduler implements the interface.
var _ driving.Scheduler = (*Scheduler)(nil)

var schedLog = logger.With("scheduler")

// reconcileTimeout bounds one scheduled consistency pass.
const reconcileTimeout = 5 * time.Minute

// Scheduler runs the reconcile pass on a cron schedule.
// An empty schedule disables scheduled runs; Start then only blocks.
type Scheduler struct {
	schedule string
	docs     driving.DocumentService
	cron     *cron.Cron

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	runs    int
}

// NewScheduler creates a scheduler. The schedule is a standard cron
// expression or descriptor such as "@every 10m".
func NewScheduler(schedule string, docs driving.DocumentService) (*Scheduler, error) {
	s := &Scheduler{
		schedule: schedule,
		docs:     docs,
		cron: cron.New(cron.WithChain(
			cron.Recover(cronLogger{}),
			cron.SkipIfStillRunning(cronLogger{}),
		)),
	}
	if schedule == "" {
		return s, nil
	}
	if _, err := s.cron.AddFunc(schedule, s.reconcile); err != nil {
		return nil, fmt.Errorf("invalid reconcile schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start runs one reconcile pass immediately, then follows the schedule.
// It blocks until ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh
	s.mu.Unlock()

	if s.schedule != "" {
		s.reconcile()
		s.cron.Start()
		schedLog.Info("reconcile scheduled %s", s.schedule)
	}

	select {
	case <-ctx.Done():
		s.halt()
		return ctx.Err()
	case <-stopCh:
		return nil
	}
}

// Stop stops scheduling and waits for a pass in progress to finish.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	close(s.stopCh)
	s.mu.Unlock()

	s.halt()
	return nil
}

// Runs returns the number of reconcile passes started.
func (s *Scheduler) Runs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs
}

func (s *Scheduler) halt() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	<-s.cron.Stop().Done()
}

func (s *Scheduler) reconcile() {
	s.mu.Lock()
	s.runs++
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), reconcileTimeout)
	defer cancel()

	report, err := s.docs.Reconcile(ctx)
	if err != nil {
		schedLog.Error("reconcile: %v", err)
	}
	if report != nil && (len(report.Fixed) > 0 || len(report.OrphansRemoved) > 0) {
		schedLog.Info("reconcile fixed %d documents and removed orphans of %d",
			len(report.Fixed), len(report.OrphansRemoved))
	}
}

// cronLogger routes cron's own messages to the scheduler logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	schedLog.Debug("%s %v", msg, keysAndValues)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	schedLog.Error("%s: %v %v", msg, err, keysAndValues)
}
