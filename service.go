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


package lakefeed

import (
	"context"
	"log/slog"
	"time"

	"github.com/poiesic/lakefeed/ai"
	"github.com/poiesic/lakefeed/ai/openai"
	"github.com/poiesic/lakefeed/core"
	"github.com/poiesic/lakefeed/daemon"
	"github.com/poiesic/lakefeed/datalake"
	mongolake "github.com/poiesic/lakefeed/datalake/mongo"
	"github.com/poiesic/lakefeed/ledger"
	"github.com/poiesic/lakefeed/pipeline"
	"github.com/poiesic/lakefeed/vectorstore"
	qdrantstore "github.com/poiesic/lakefeed/vectorstore/qdrant"
)

// Config gathers the settings for every backing system the service talks to.
type Config struct {
	Lake      mongolake.Config
	Index     qdrantstore.Config
	Embedding ai.Config

	// LedgerPath is the directory holding the local run ledger.
	LedgerPath string

	// CollectionPrefix limits sweeps to collections whose name starts with
	// this prefix. Empty means every collection.
	CollectionPrefix string

	// BatchCapacity bounds the number of units buffered per collection
	// before flushing. Zero selects pipeline.DefaultCapacity.
	BatchCapacity int
}

// Service wires the data lake, the embedder, the vector index and the run
// ledger into one ready-to-use pipeline.
type Service struct {
	lake      datalake.Lake
	embedder  ai.Embedder
	index     *qdrantstore.Store
	ledger    *ledger.Store
	processor *pipeline.Processor
	sweeper   *pipeline.Sweeper
	logger    *slog.Logger
}

// New connects to every configured system and fails fast when one is
// unreachable.
func New(ctx context.Context, cfg *Config) (*Service, error) {
	lake, err := mongolake.New(ctx, &cfg.Lake)
	if err != nil {
		return nil, err
	}

	index, err := qdrantstore.New(ctx, &cfg.Index)
	if err != nil {
		lake.Close(ctx)
		return nil, err
	}

	embedding := cfg.Embedding
	embedder, err := openai.NewEmbedder(&embedding)
	if err != nil {
		index.Close()
		lake.Close(ctx)
		return nil, err
	}

	store, err := ledger.Open(cfg.LedgerPath, false)
	if err != nil {
		index.Close()
		lake.Close(ctx)
		return nil, err
	}

	capacity := cfg.BatchCapacity
	if capacity <= 0 {
		capacity = pipeline.DefaultCapacity
	}

	processor, err := pipeline.NewProcessor(embedder, index, capacity)
	if err != nil {
		store.Close()
		index.Close()
		lake.Close(ctx)
		return nil, err
	}

	sweeper, err := pipeline.NewSweeper(lake, processor, cfg.CollectionPrefix)
	if err != nil {
		store.Close()
		index.Close()
		lake.Close(ctx)
		return nil, err
	}

	return &Service{
		lake:      lake,
		embedder:  embedder,
		index:     index,
		ledger:    store,
		processor: processor,
		sweeper:   sweeper,
		logger:    slog.Default().With("component", "service"),
	}, nil
}

// Sweep runs one full pass over the lake.
func (s *Service) Sweep(ctx context.Context) (core.SweepStats, error) {
	return s.sweeper.Run(ctx)
}

// ProcessCollection feeds a single collection through the pipeline inside
// its own lake transaction.
func (s *Service) ProcessCollection(ctx context.Context, collection string) (units, skipped int, err error) {
	err = s.lake.WithSession(ctx, func(ctx context.Context, sess datalake.Session) error {
		cur, findErr := sess.Find(ctx, collection, nil)
		if findErr != nil {
			return findErr
		}
		units, skipped, err = s.processor.Process(ctx, collection, cur)
		return err
	})
	return units, skipped, err
}

// Search embeds the query and returns the closest indexed units.
func (s *Service) Search(ctx context.Context, query string, topK int) ([]vectorstore.Hit, error) {
	vector, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, err
	}
	return s.index.Search(ctx, vector, topK)
}

// RecentRuns returns up to n recent run reports, newest first.
func (s *Service) RecentRuns(ctx context.Context, n int) ([]*core.RunReport, error) {
	return s.ledger.Recent(ctx, n)
}

// Daemon builds a scheduler that sweeps the lake on a fixed cadence and
// records each run in the ledger.
func (s *Service) Daemon(minLoop time.Duration) (*daemon.Daemon, error) {
	if minLoop <= 0 {
		minLoop = daemon.DefaultMinLoop
	}
	return daemon.New(s.sweeper, minLoop, daemon.WithRecorder(s.ledger))
}

func (s *Service) Close(ctx context.Context) error {
	if err := s.ledger.Close(); err != nil {
		s.logger.Error("error closing run ledger", "err", err)
	}
	if err := s.index.Close(); err != nil {
		s.logger.Error("error closing vector index", "err", err)
	}
	if err := s.lake.Close(ctx); err != nil {
		s.logger.Error("error closing data lake client", "err", err)
		return err
	}
	return nil
}
