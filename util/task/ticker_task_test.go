package task

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingRunner struct {
	runs int32
	ran  chan struct{}
}

func (r *countingRunner) Run() error {
	atomic.AddInt32(&r.runs, 1)
	select {
	case r.ran <- struct{}{}:
	default:
	}
	return nil
}

func TestStartRunsImmediatelyWithoutInterval(t *testing.T) {
	runner := &countingRunner{ran: make(chan struct{}, 1)}
	ticker := NewTickerTask(0, runner)
	ticker.Start()
	ticker.Stop()

	assert.Equal(t, int32(1), atomic.LoadInt32(&runner.runs))
}

func TestSkipInitialRun(t *testing.T) {
	runner := &countingRunner{ran: make(chan struct{}, 1)}
	ticker := NewTickerTaskWithOptions(Options{Runner: runner, SkipInitialRun: true})
	ticker.Start()
	ticker.Stop()

	assert.Equal(t, int32(0), atomic.LoadInt32(&runner.runs))
}

func TestRecurringRuns(t *testing.T) {
	runner := &countingRunner{ran: make(chan struct{}, 1)}
	ticker := NewTickerTaskWithOptions(Options{Interval: time.Millisecond, Runner: runner, SkipInitialRun: true})
	ticker.Start()
	defer ticker.Stop()

	select {
	case <-runner.ran:
	case <-time.After(time.Second):
		t.Fatal("the runner was never invoked by the ticker")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	calls := 0
	ticker := NewTickerTaskFromFunc(0, func() error {
		calls++
		return nil
	})
	ticker.Start()
	ticker.Stop()
	ticker.Stop()

	_, open := <-ticker.Done()
	assert.False(t, open)
	assert.Equal(t, 1, calls)
}
