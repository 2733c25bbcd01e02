package daemon

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/lakefeed/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testCycle implements Cycle, counting runs and optionally failing,
// panicking, or taking a fixed amount of time per run.
type testCycle struct {
	mu       sync.Mutex
	runs     int
	err      error
	panicMsg string
	delay    time.Duration
	stats    core.SweepStats
}

func (c *testCycle) Run(ctx context.Context) (core.SweepStats, error) {
	c.mu.Lock()
	c.runs++
	c.mu.Unlock()

	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	if c.panicMsg != "" {
		panic(c.panicMsg)
	}
	return c.stats, c.err
}

func (c *testCycle) runCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runs
}

// testRecorder implements Recorder, capturing every report.
type testRecorder struct {
	mu      sync.Mutex
	reports []*core.RunReport
	err     error
}

func (r *testRecorder) Record(ctx context.Context, report *core.RunReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, report)
	return r.err
}

func (r *testRecorder) recorded() []*core.RunReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*core.RunReport, len(r.reports))
	copy(out, r.reports)
	return out
}

// runDaemon runs d in the background and returns a wait function yielding
// Run's error.
func runDaemon(t *testing.T, d *Daemon, ctx context.Context) func() error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- d.Run(ctx)
	}()
	return func() error {
		select {
		case err := <-errCh:
			return err
		case <-time.After(5 * time.Second):
			t.Fatal("daemon did not stop in time")
			return nil
		}
	}
}

func TestNewRequiresCycle(t *testing.T) {
	_, err := New(nil, time.Second)
	assert.ErrorIs(t, err, ErrCycleRequired)
}

func TestDaemonRespectsMinLoop(t *testing.T) {
	cycle := &testCycle{}
	d, err := New(cycle, 50*time.Millisecond)
	require.NoError(t, err)

	wait := runDaemon(t, d, context.Background())

	// within ~120ms a 50ms floor allows at most 3 cycle starts
	time.Sleep(120 * time.Millisecond)
	d.Stop()
	require.NoError(t, wait())

	runs := cycle.runCount()
	assert.GreaterOrEqual(t, runs, 2)
	assert.LessOrEqual(t, runs, 3)
}

func TestDaemonOverrunStartsNextTickImmediately(t *testing.T) {
	cycle := &testCycle{delay: 20 * time.Millisecond}
	d, err := New(cycle, 5*time.Millisecond)
	require.NoError(t, err)

	wait := runDaemon(t, d, context.Background())

	time.Sleep(110 * time.Millisecond)
	d.Stop()
	require.NoError(t, wait())

	// with no sleep between ticks, ~5 cycles fit in 110ms
	assert.GreaterOrEqual(t, cycle.runCount(), 4)
}

func TestDaemonKeepsRunningAfterCycleFailure(t *testing.T) {
	cycle := &testCycle{err: errors.New("lake unavailable")}
	recorder := &testRecorder{}
	d, err := New(cycle, 10*time.Millisecond, WithRecorder(recorder))
	require.NoError(t, err)

	wait := runDaemon(t, d, context.Background())

	time.Sleep(55 * time.Millisecond)
	d.Stop()
	require.NoError(t, wait())

	assert.GreaterOrEqual(t, cycle.runCount(), 2, "failed cycles must not stop the loop")

	reports := recorder.recorded()
	require.NotEmpty(t, reports)
	for _, r := range reports {
		assert.True(t, r.Failed)
		assert.Contains(t, r.Err, "lake unavailable")
		assert.NotEmpty(t, r.RunId)
	}
}

func TestDaemonAbsorbsCyclePanic(t *testing.T) {
	cycle := &testCycle{panicMsg: "mapper exploded"}
	recorder := &testRecorder{}
	d, err := New(cycle, 10*time.Millisecond, WithRecorder(recorder))
	require.NoError(t, err)

	wait := runDaemon(t, d, context.Background())

	time.Sleep(35 * time.Millisecond)
	d.Stop()
	require.NoError(t, wait())

	assert.GreaterOrEqual(t, cycle.runCount(), 2)

	reports := recorder.recorded()
	require.NotEmpty(t, reports)
	assert.True(t, reports[0].Failed)
	assert.Contains(t, reports[0].Err, "mapper exploded")
}

func TestDaemonRecorderFailureDoesNotStopLoop(t *testing.T) {
	cycle := &testCycle{}
	recorder := &testRecorder{err: errors.New("ledger full")}
	d, err := New(cycle, 10*time.Millisecond, WithRecorder(recorder))
	require.NoError(t, err)

	wait := runDaemon(t, d, context.Background())

	time.Sleep(35 * time.Millisecond)
	d.Stop()
	require.NoError(t, wait())

	assert.GreaterOrEqual(t, cycle.runCount(), 2)
}

func TestDaemonStopInterruptsSleep(t *testing.T) {
	cycle := &testCycle{}
	d, err := New(cycle, time.Hour)
	require.NoError(t, err)

	wait := runDaemon(t, d, context.Background())

	// let the first cycle run, then stop mid-sleep
	time.Sleep(20 * time.Millisecond)
	start := time.Now()
	d.Stop()
	require.NoError(t, wait())

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 1, cycle.runCount())
}

func TestDaemonContextCancellation(t *testing.T) {
	cycle := &testCycle{}
	d, err := New(cycle, time.Hour)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	wait := runDaemon(t, d, ctx)

	time.Sleep(20 * time.Millisecond)
	cancel()

	assert.ErrorIs(t, wait(), context.Canceled)
}

func TestDaemonStopIsIdempotent(t *testing.T) {
	cycle := &testCycle{}
	d, err := New(cycle, time.Hour)
	require.NoError(t, err)

	wait := runDaemon(t, d, context.Background())
	time.Sleep(10 * time.Millisecond)

	d.Stop()
	d.Stop()
	require.NoError(t, wait())
}

func TestDaemonRecordsSuccessfulRuns(t *testing.T) {
	cycle := &testCycle{stats: core.SweepStats{Collections: 2, Units: 7, Flushes: 2}}
	recorder := &testRecorder{}
	d, err := New(cycle, time.Hour, WithRecorder(recorder))
	require.NoError(t, err)

	wait := runDaemon(t, d, context.Background())
	time.Sleep(20 * time.Millisecond)
	d.Stop()
	require.NoError(t, wait())

	reports := recorder.recorded()
	require.Len(t, reports, 1)
	assert.False(t, reports[0].Failed)
	assert.Empty(t, reports[0].Err)
	assert.Equal(t, 7, reports[0].Stats.Units)
	assert.False(t, reports[0].StartedAt.IsZero())
}
