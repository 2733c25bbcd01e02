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
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/poiesic/lakefeed/ai"
	"github.com/poiesic/lakefeed/core"
	"github.com/poiesic/lakefeed/vectorstore"
)

// DefaultCapacity is the default ceiling on buffered retrieval units. It
// bounds memory and the blast radius of a single embedding call; it is not a
// streaming mechanism.
const DefaultCapacity = 300

// Batch is the bounded in-memory accumulator for one processing run. Units
// buffer here until a single flush embeds and upserts them all, or until the
// run is abandoned on error.
type Batch struct {
	runId     string
	createdAt time.Time
	units     []*core.RetrievalUnit
	capacity  int
	logger    *slog.Logger
}

// NewBatch creates an empty batch for one processing run. A non-positive
// capacity falls back to DefaultCapacity.
func NewBatch(capacity int) *Batch {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	now := time.Now().UTC()
	runId := fmt.Sprintf("%d-%d", os.Getpid(), now.UnixMicro())

	return &Batch{
		runId:     runId,
		createdAt: now,
		capacity:  capacity,
		logger:    slog.Default().With("component", "batch", "run", runId),
	}
}

// RunId returns the run tag for log correlation. It identifies the run, not
// the batch contents.
func (b *Batch) RunId() string {
	return b.runId
}

// Len returns the number of buffered units.
func (b *Batch) Len() int {
	return len(b.units)
}

// Add appends units to the batch, all-or-nothing: when the append would reach
// the capacity ceiling it fails with ErrCapacityExceeded and buffers none of
// the given units.
func (b *Batch) Add(units ...*core.RetrievalUnit) error {
	if len(b.units)+len(units) >= b.capacity {
		return fmt.Errorf("%w: %d buffered + %d new reaches capacity %d",
			ErrCapacityExceeded, len(b.units), len(units), b.capacity)
	}

	b.units = append(b.units, units...)
	return nil
}

// Flush embeds every buffered unit's content in one call and writes the
// resulting (id, vector, metadata) triples to the index in one call, then
// clears the batch. A unit is never partially written: either the whole
// batch lands or none of it does. Flushing an empty batch is a logged no-op,
// since empty collections are routine. Returns the number of units flushed.
func (b *Batch) Flush(ctx context.Context, embedder ai.Embedder, index vectorstore.Index) (int, error) {
	if len(b.units) == 0 {
		b.logger.Warn("flush requested on empty batch, nothing to do")
		return 0, nil
	}

	texts := make([]string, len(b.units))
	for i, unit := range b.units {
		texts[i] = unit.Content
	}

	b.logger.Debug("embedding batch contents", "units", len(texts))
	vectors, err := embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed batch %s: %w", b.runId, err)
	}
	if len(vectors) != len(b.units) {
		return 0, fmt.Errorf("embedding result mismatch: expected %d, received %d", len(b.units), len(vectors))
	}

	if err := index.Upsert(ctx, b.units, vectors); err != nil {
		return 0, fmt.Errorf("index batch %s: %w", b.runId, err)
	}

	flushed := len(b.units)
	b.units = nil
	b.logger.Debug("batch flushed", "units", flushed)
	return flushed, nil
}
