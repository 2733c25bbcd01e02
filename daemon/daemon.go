// Copyright 2026 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/poiesic/lakefeed/core"
)

// DefaultMinLoop is the default floor on tick-to-tick spacing.
const DefaultMinLoop = 5 * time.Minute

// ErrCycleRequired is returned when a cycle is not provided.
var ErrCycleRequired = errors.New("cycle required")

// Cycle is one full scan-and-process iteration. Implementations may block
// for the duration of their I/O; the scheduler's cadence floor bounds
// frequency, not latency.
type Cycle interface {
	Run(ctx context.Context) (core.SweepStats, error)
}

// Recorder persists one report per tick. Recording is best-effort: a
// recorder failure is logged and never affects scheduling.
type Recorder interface {
	Record(ctx context.Context, report *core.RunReport) error
}

// Option configures a Daemon.
type Option func(*Daemon)

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(d *Daemon) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithRecorder attaches a run-report recorder.
func WithRecorder(recorder Recorder) Option {
	return func(d *Daemon) {
		d.recorder = recorder
	}
}

// Daemon drives repeated cycles on a fixed minimum cadence.
type Daemon struct {
	cycle    Cycle
	minLoop  time.Duration
	recorder Recorder
	logger   *slog.Logger

	stopCh   chan struct{}
	stopOnce sync.Once
}

// New creates a daemon around the given cycle. A non-positive minLoop falls
// back to DefaultMinLoop.
func New(cycle Cycle, minLoop time.Duration, opts ...Option) (*Daemon, error) {
	if cycle == nil {
		return nil, ErrCycleRequired
	}
	if minLoop <= 0 {
		minLoop = DefaultMinLoop
	}

	d := &Daemon{
		cycle:   cycle,
		minLoop: minLoop,
		logger:  slog.Default().With("component", "daemon"),
		stopCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Run blocks, executing one cycle per tick until Stop is called or the
// context is canceled. A failed cycle is logged and never terminates the
// loop; the next tick proceeds regardless. When a cycle finishes faster than
// the minimum loop duration the daemon sleeps the remainder; otherwise it
// logs an overrun and starts the next tick immediately.
func (d *Daemon) Run(ctx context.Context) error {
	d.logger.Info("daemon starting", "minLoop", d.minLoop)

	for {
		select {
		case <-d.stopCh:
			d.logger.Info("daemon shutting down")
			return nil
		case <-ctx.Done():
			d.logger.Info("daemon context canceled, shutting down")
			return ctx.Err()
		default:
		}

		start := time.Now()
		stats, err := d.runCycle(ctx)
		duration := time.Since(start)

		if err != nil {
			d.logger.Error("cycle failed", "err", err, "duration", duration)
		}
		d.record(ctx, start, duration, stats, err)

		if remaining := d.minLoop - duration; remaining > 0 {
			d.logger.Debug("cycle finished early, sleeping", "duration", duration, "sleep", remaining)
			if !d.sleep(ctx, remaining) {
				continue // stop or cancellation, handled at the top of the loop
			}
		} else {
			d.logger.Warn("loop overrun", "duration", duration, "minLoop", d.minLoop)
		}
	}
}

// Stop signals the daemon to stop scheduling. The in-flight tick is allowed
// to finish; Stop never interrupts it. Safe to call more than once.
func (d *Daemon) Stop() {
	d.stopOnce.Do(func() {
		d.logger.Info("stop signal received")
		close(d.stopCh)
	})
}

// runCycle executes one cycle, converting a panic into an error so a
// misbehaving cycle cannot take the scheduler down.
func (d *Daemon) runCycle(ctx context.Context) (stats core.SweepStats, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cycle panic: %v", r)
		}
	}()
	return d.cycle.Run(ctx)
}

// record persists the tick's report when a recorder is attached.
func (d *Daemon) record(ctx context.Context, start time.Time, duration time.Duration, stats core.SweepStats, cycleErr error) {
	if d.recorder == nil {
		return
	}

	report := &core.RunReport{
		RunId:     fmt.Sprintf("%d-%d", os.Getpid(), start.UnixMicro()),
		StartedAt: start.UTC(),
		Duration:  duration,
		Stats:     stats,
		Failed:    cycleErr != nil,
	}
	if cycleErr != nil {
		report.Err = cycleErr.Error()
	}

	if err := d.recorder.Record(ctx, report); err != nil {
		d.logger.Error("failed to record run report", "err", err)
	}
}

// sleep waits for the given duration, returning false if interrupted by a
// stop signal or context cancellation.
func (d *Daemon) sleep(ctx context.Context, duration time.Duration) bool {
	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-d.stopCh:
		return false
	case <-ctx.Done():
		return false
	}
}
