package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/expanders360/vendor-match/internal/monitoring"
)

// Outcome classifies a completed job run.
type Outcome string

const (
	OutcomeSucceeded       Outcome = "succeeded"
	OutcomePartiallyFailed Outcome = "partially_failed"
	OutcomeFailed          Outcome = "failed"
)

// Report summarizes a single job run.
type Report struct {
	Outcome   Outcome
	Total     int
	Succeeded int
	Failed    int
	Err       error
}

// Job is a unit of scheduled work. Run must not panic; per-item failures
// are reported through the Report rather than aborting the run.
type Job interface {
	Name() string
	Run(ctx context.Context) Report
}

type entry struct {
	trigger Trigger
	job     Job
}

// Scheduler fires registered jobs at their trigger times. Each entry runs
// in its own goroutine so a slow job never delays the others.
type Scheduler struct {
	entries []entry
	metrics *monitoring.Metrics
	now     func() time.Time
}

func New(metrics *monitoring.Metrics) *Scheduler {
	return &Scheduler{
		metrics: metrics,
		now:     time.Now,
	}
}

func (s *Scheduler) Register(t Trigger, j Job) {
	s.entries = append(s.entries, entry{trigger: t, job: j})
}

// Run blocks until ctx is cancelled and every in-flight job has returned.
func (s *Scheduler) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, e := range s.entries {
		wg.Add(1)
		go func(e entry) {
			defer wg.Done()
			s.loop(ctx, e)
		}(e)
	}
	wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, e entry) {
	log := zap.L().With(zap.String("job", e.job.Name()))
	log.Info("job scheduled", zap.String("trigger", e.trigger.String()))

	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		next := e.trigger.Next(s.now())
		timer.Reset(next.Sub(s.now()))

		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		log.Info("job starting", zap.Time("fired_at", next))
		s.Execute(ctx, e.job)
	}
}

// Execute runs a job once, records metrics, and logs the outcome. Manual
// trigger endpoints share this path with the timer loops.
func (s *Scheduler) Execute(ctx context.Context, j Job) Report {
	log := zap.L().With(zap.String("job", j.Name()))

	start := s.now()
	report := j.Run(ctx)
	elapsed := time.Since(start)

	if s.metrics != nil {
		s.metrics.RecordJobRun(j.Name(), string(report.Outcome))
		s.metrics.RecordJobErrors(j.Name(), report.Failed)
	}

	fields := []zap.Field{
		zap.String("outcome", string(report.Outcome)),
		zap.Int("total", report.Total),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
		zap.Duration("elapsed", elapsed),
	}
	switch report.Outcome {
	case OutcomeFailed:
		log.Error("job failed", append(fields, zap.Error(report.Err))...)
	case OutcomePartiallyFailed:
		log.Warn("job partially failed", fields...)
	default:
		log.Info("job complete", fields...)
	}
	return report
}
