package marketdata

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron"

	"alert-notification-service/internal/logging"
)

// Intervals sets how often each source is refreshed.
type Intervals struct {
	Quotes time.Duration
	Rates  time.Duration
	Risk   time.Duration
}

// Scheduler runs the refresh jobs on cron "@every" schedules. A job still
// running when its next tick fires is skipped for that tick.
type Scheduler struct {
	cron   *cron.Cron
	logger *logging.Logger
	jobs   []*job
}

type job struct {
	name    string
	every   time.Duration
	run     func(ctx context.Context) error
	running atomic.Bool
}

func NewScheduler(service *Service, intervals Intervals, logger *logging.Logger) *Scheduler {
	s := &Scheduler{cron: cron.New(), logger: logger}
	s.jobs = []*job{
		{name: "quotes", every: intervals.Quotes, run: func(ctx context.Context) error {
			_, err := service.RefreshQuotes(ctx)
			return err
		}},
		{name: "dollar", every: intervals.Rates, run: service.RefreshDollarRates},
		{name: "risk", every: intervals.Risk, run: service.RefreshRiskIndex},
	}
	return s
}

// Start registers every job, runs each once immediately and starts the cron
// loop. The loop stops when ctx is cancelled; wg is released once it has.
func (s *Scheduler) Start(ctx context.Context, wg *sync.WaitGroup) error {
	for _, j := range s.jobs {
		if j.every <= 0 {
			s.logger.Warnf("Market job %s has no interval, not scheduled", j.name)
			continue
		}
		j := j
		if err := s.cron.AddFunc(fmt.Sprintf("@every %s", j.every), func() { s.runJob(ctx, j) }); err != nil {
			return fmt.Errorf("failed to schedule market job %s: %w", j.name, err)
		}
		go s.runJob(ctx, j)
	}
	s.cron.Start()
	s.logger.Infof("Market data scheduler started with %d job(s)", len(s.cron.Entries()))

	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		s.cron.Stop()
		s.logger.Info("Market data scheduler stopped")
	}()
	return nil
}

func (s *Scheduler) runJob(ctx context.Context, j *job) {
	if ctx.Err() != nil {
		return
	}
	if !j.running.CompareAndSwap(false, true) {
		s.logger.Warnf("Market job %s still running, skipping tick", j.name)
		return
	}
	defer j.running.Store(false)

	start := time.Now()
	if err := j.run(ctx); err != nil {
		s.logger.Errorf("Market job %s finished with errors in %s: %v", j.name, time.Since(start), err)
		return
	}
	s.logger.Debugf("Market job %s finished in %s", j.name, time.Since(start))
}
