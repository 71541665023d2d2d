package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/tropicaldog17/replyqueue/internal/logger"
)

// Job represents a scheduled task
type Job func(ctx context.Context) error

// Scheduler runs named jobs on cron schedules. A job whose previous run is still
// in progress is skipped rather than overlapped.
type Scheduler struct {
	cron     *cron.Cron
	mu       sync.Mutex
	jobs     map[string]cron.EntryID
	timezone *time.Location
	baseCtx  context.Context
	cancel   context.CancelFunc
	logger   *zap.Logger
}

// New creates a new scheduler with the given timezone
func New(timezone string, log *zap.Logger) (*Scheduler, error) {
	if timezone == "" {
		timezone = "UTC"
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %s: %w", timezone, err)
	}

	log = logger.OrNop(log).Named("scheduler")
	cl := cronLogger{log}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:     c,
		jobs:     make(map[string]cron.EntryID),
		timezone: loc,
		baseCtx:  ctx,
		cancel:   cancel,
		logger:   log,
	}, nil
}

// AddJob adds a job with a cron schedule ("0 6 * * *", "@every 1m").
// Each run gets its own context bounded by timeout.
func (s *Scheduler) AddJob(name, schedule string, timeout time.Duration, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s already scheduled", name)
	}

	entryID, err := s.cron.AddFunc(schedule, func() {
		s.run(name, timeout, job)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", name, err)
	}

	s.jobs[name] = entryID
	s.logger.Info("job added", zap.String("job", name), zap.String("schedule", schedule))
	return nil
}

func (s *Scheduler) run(name string, timeout time.Duration, job Job) {
	ctx, cancel := context.WithTimeout(s.baseCtx, timeout)
	defer cancel()

	start := time.Now()
	s.logger.Debug("job starting", zap.String("job", name))
	if err := job(ctx); err != nil {
		s.logger.Error("job failed", zap.String("job", name), zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return
	}
	s.logger.Debug("job completed", zap.String("job", name), zap.Duration("elapsed", time.Since(start)))
}

// Start begins running scheduled jobs
func (s *Scheduler) Start() {
	s.logger.Info("starting scheduler", zap.String("timezone", s.timezone.String()))
	s.cron.Start()
	for _, j := range s.ListJobs() {
		s.logger.Info("job scheduled", zap.String("job", j.Name), zap.Time("next_run", j.NextRun))
	}
}

// Stop halts the scheduler, cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	done := s.cron.Stop()
	s.cancel()
	<-done.Done()
}

// Run starts the scheduler and blocks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	s.Start()
	<-ctx.Done()
	s.Stop()
	return nil
}

// RunNow immediately executes a job outside the schedule.
func (s *Scheduler) RunNow(ctx context.Context, name string, timeout time.Duration, job Job) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	s.logger.Info("running job now", zap.String("job", name))
	return job(ctx)
}

// JobInfo contains information about a scheduled job
type JobInfo struct {
	Name    string
	NextRun time.Time
	LastRun time.Time
}

// ListJobs returns info about scheduled jobs, sorted by name.
func (s *Scheduler) ListJobs() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.cron.Entries()
	infos := make([]JobInfo, 0, len(s.jobs))
	for name, entryID := range s.jobs {
		for _, entry := range entries {
			if entry.ID == entryID {
				infos = append(infos, JobInfo{Name: name, NextRun: entry.Next, LastRun: entry.Prev})
				break
			}
		}
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	l *zap.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Sugar().Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
