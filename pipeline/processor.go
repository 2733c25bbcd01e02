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


package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/lakefeed/ai"
	"github.com/poiesic/lakefeed/core"
	"github.com/poiesic/lakefeed/datalake"
	"github.com/poiesic/lakefeed/mapping"
	"github.com/poiesic/lakefeed/vectorstore"
)

// Processor consumes the records of one collection at a time: each record is
// mapped to a retrieval unit, accumulated in a batch, and the batch is
// flushed once at the end of the collection so the whole collection costs a
// single embedding call.
type Processor struct {
	embedder    ai.Embedder
	index       vectorstore.Index
	capacity    int
	batchNumber uint64
	logger      *slog.Logger
}

// NewProcessor creates a collection processor. A non-positive capacity falls
// back to DefaultCapacity.
func NewProcessor(embedder ai.Embedder, index vectorstore.Index, capacity int) (*Processor, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if index == nil {
		return nil, ErrIndexRequired
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	return &Processor{
		embedder: embedder,
		index:    index,
		capacity: capacity,
		logger:   slog.Default().With("component", "processor"),
	}, nil
}

// BatchNumber returns the number of Process invocations so far. The counter
// is monotonic for the processor's lifetime and exists for observability
// only; it is never reset.
func (p *Processor) BatchNumber() uint64 {
	return p.batchNumber
}

// Process consumes every record of the named collection from the cursor.
// Records that fail mapping are logged and skipped; partial success within a
// collection is the normal case. Any other failure (capacity, cursor,
// embedding, index) abandons the batch and propagates to the caller, which
// treats the collection's run as failed for this cycle. The cursor is closed
// on every exit path.
//
// Returns the number of units flushed and the number of records skipped.
func (p *Processor) Process(ctx context.Context, collection string, cur datalake.Cursor) (units, skipped int, err error) {
	p.batchNumber++
	logger := p.logger.With("collection", collection, "batch", p.batchNumber)

	defer func() {
		if closeErr := cur.Close(ctx); closeErr != nil {
			logger.Error("failed to close record cursor", "err", closeErr)
		}
	}()

	batch := NewBatch(p.capacity)
	logger.Info("processing collection", "run", batch.RunId())

	for cur.Next(ctx) {
		var record core.RawRecord
		if decodeErr := cur.Decode(&record); decodeErr != nil {
			return 0, skipped, fmt.Errorf("%w: decode record in %s: %w", datalake.ErrDatalake, collection, decodeErr)
		}

		unit, mapErr := mapping.BuildUnit(record, collection)
		if mapErr != nil {
			if errors.Is(mapErr, mapping.ErrMapping) {
				logger.Debug("skipping unmappable record", "err", mapErr)
				skipped++
				continue
			}
			return 0, skipped, mapErr
		}

		if addErr := batch.Add(unit); addErr != nil {
			return 0, skipped, addErr
		}
	}
	if curErr := cur.Err(); curErr != nil {
		return 0, skipped, curErr
	}

	units, err = batch.Flush(ctx, p.embedder, p.index)
	if err != nil {
		return 0, skipped, err
	}

	logger.Info("finished processing collection", "units", units, "skipped", skipped)
	return units, skipped, nil
}
