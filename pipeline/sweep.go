package pipeline

import (
	"context"
	"log/slog"

	"github.com/poiesic/lakefeed/core"
	"github.com/poiesic/lakefeed/datalake"
)

// Sweeper runs one full scan-and-process cycle: it opens one transactional
// scan session against the data lake, discovers every collection matching the
// configured prefix, and processes each one strictly in sequence. Any error
// propagates out of the session scope, aborting the transaction, and up to
// the scheduler.
type Sweeper struct {
	lake      datalake.Lake
	processor *Processor
	prefix    string
	logger    *slog.Logger
}

// NewSweeper creates a sweeper over the given lake and processor. The prefix
// selects which lake collections are in scope; empty means all of them.
func NewSweeper(lake datalake.Lake, processor *Processor, prefix string) (*Sweeper, error) {
	if lake == nil {
		return nil, ErrLakeRequired
	}
	if processor == nil {
		return nil, ErrProcessorRequired
	}

	return &Sweeper{
		lake:      lake,
		processor: processor,
		prefix:    prefix,
		logger:    slog.Default().With("component", "sweeper"),
	}, nil
}

// Run executes one cycle and reports its counters. The scan session commits
// only when every qualifying collection processed cleanly.
func (s *Sweeper) Run(ctx context.Context) (core.SweepStats, error) {
	var stats core.SweepStats

	err := s.lake.WithSession(ctx, func(ctx context.Context, sess datalake.Session) error {
		collections, err := sess.ListCollections(ctx, s.prefix)
		if err != nil {
			return err
		}
		s.logger.Info("found collections to process", "count", len(collections), "prefix", s.prefix)

		for _, name := range collections {
			s.logger.Debug("invoking processor", "collection", name)
			cur, err := sess.Find(ctx, name, nil)
			if err != nil {
				return err
			}

			units, skipped, err := s.processor.Process(ctx, name, cur)
			stats.Units += units
			stats.Skipped += skipped
			if err != nil {
				return err
			}
			stats.Collections++
			if units > 0 {
				stats.Flushes++
			}
		}
		return nil
	})

	return stats, err
}
