package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/expanders360/vendor-match/internal/monitoring"
)

type countingJob struct {
	name string
	runs atomic.Int32
}

func (j *countingJob) Name() string { return j.name }

func (j *countingJob) Run(_ context.Context) Report {
	j.runs.Add(1)
	return Report{Outcome: OutcomeSucceeded, Total: 1, Succeeded: 1}
}

// tickTrigger fires almost immediately, for loop tests.
type tickTrigger struct{}

func (tickTrigger) Next(after time.Time) time.Time { return after.Add(5 * time.Millisecond) }
func (tickTrigger) String() string                 { return "every 5ms" }

func TestScheduler_Execute(t *testing.T) {
	sched := New(monitoring.NewMetrics())
	job := &countingJob{name: "test-job"}

	report := sched.Execute(context.Background(), job)

	assert.Equal(t, OutcomeSucceeded, report.Outcome)
	assert.Equal(t, int32(1), job.runs.Load())
}

func TestScheduler_Execute_NilMetrics(t *testing.T) {
	sched := New(nil)
	report := sched.Execute(context.Background(), &countingJob{name: "test-job"})
	assert.Equal(t, OutcomeSucceeded, report.Outcome)
}

func TestScheduler_RunFiresAndStops(t *testing.T) {
	sched := New(nil)
	job := &countingJob{name: "ticking"}
	sched.Register(tickTrigger{}, job)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		sched.Run(ctx)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after context cancellation")
	}

	assert.Greater(t, job.runs.Load(), int32(0), "job fired at least once")
}

func TestScheduler_RunWithNoEntries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	New(nil).Run(ctx) // returns immediately
}
