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


package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	lakefeed "github.com/poiesic/lakefeed"
	"github.com/poiesic/lakefeed/ai"
	"github.com/poiesic/lakefeed/ledger"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "lakefeed",
		Usage: "Feeds data lake collections into a vector search index",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
				EnvVars: []string{"LAKEFEED_LOG_LEVEL"},
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "daemon",
				Usage:  "Sweep the data lake on a fixed cadence until interrupted",
				Action: daemonCommand,
				Flags: append(serviceFlags(),
					&cli.DurationFlag{
						Name:    "min-loop",
						Usage:   "Minimum time between sweep starts",
						Value:   5 * time.Minute,
						EnvVars: []string{"LAKEFEED_MIN_LOOP"},
					},
				),
			},
			{
				Name:   "sweep",
				Usage:  "Run a single sweep over the data lake and exit",
				Action: sweepCommand,
				Flags:  serviceFlags(),
			},
			{
				Name:   "process",
				Usage:  "Process a single collection and exit",
				Action: processCommand,
				Flags: append(serviceFlags(),
					&cli.StringFlag{
						Name:     "collection",
						Aliases:  []string{"c"},
						Usage:    "Name of the collection to process",
						Required: true,
					},
				),
			},
			{
				Name:   "search",
				Usage:  "Search the vector index for units close to a query",
				Action: searchCommand,
				Flags: append(serviceFlags(),
					&cli.StringFlag{
						Name:     "query",
						Aliases:  []string{"q"},
						Usage:    "Query text",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "top-k",
						Usage: "Number of results to return",
						Value: 5,
					},
				),
			},
			{
				Name:   "runs",
				Usage:  "Show recent sweep runs from the local ledger",
				Action: runsCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "ledger",
						Usage:   "Path to the local run ledger directory",
						Value:   "lakefeed-ledger",
						EnvVars: []string{"LAKEFEED_LEDGER"},
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of runs to show",
						Value: 10,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// serviceFlags returns the connection flags shared by every subcommand. A
// fresh slice per call keeps the append calls above from aliasing.
func serviceFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "lake-host",
			Usage:   "Data lake host",
			Value:   "localhost",
			EnvVars: []string{"LAKEFEED_LAKE_HOST"},
		},
		&cli.IntFlag{
			Name:    "lake-port",
			Usage:   "Data lake port",
			Value:   27017,
			EnvVars: []string{"LAKEFEED_LAKE_PORT"},
		},
		&cli.StringFlag{
			Name:    "lake-user",
			Usage:   "Data lake username",
			EnvVars: []string{"LAKEFEED_LAKE_USER"},
		},
		&cli.StringFlag{
			Name:    "lake-password",
			Usage:   "Data lake password",
			EnvVars: []string{"LAKEFEED_LAKE_PASSWORD"},
		},
		&cli.StringFlag{
			Name:     "lake-database",
			Usage:    "Data lake database name",
			Required: true,
			EnvVars:  []string{"LAKEFEED_LAKE_DATABASE"},
		},
		&cli.StringFlag{
			Name:    "collection-prefix",
			Usage:   "Only sweep collections whose name starts with this prefix",
			EnvVars: []string{"LAKEFEED_COLLECTION_PREFIX"},
		},
		&cli.StringFlag{
			Name:    "index-host",
			Usage:   "Vector index host",
			Value:   "localhost",
			EnvVars: []string{"LAKEFEED_INDEX_HOST"},
		},
		&cli.IntFlag{
			Name:    "index-port",
			Usage:   "Vector index gRPC port",
			Value:   6334,
			EnvVars: []string{"LAKEFEED_INDEX_PORT"},
		},
		&cli.StringFlag{
			Name:    "index-collection",
			Usage:   "Vector index collection name",
			Value:   "lakefeed",
			EnvVars: []string{"LAKEFEED_INDEX_COLLECTION"},
		},
		&cli.StringFlag{
			Name:    "index-api-key",
			Usage:   "Vector index API key",
			EnvVars: []string{"LAKEFEED_INDEX_API_KEY"},
		},
		&cli.StringFlag{
			Name:    "embedding-host",
			Usage:   "Embedding service host URL",
			Value:   "http://localhost:11434/v1",
			EnvVars: []string{"LAKEFEED_EMBEDDING_HOST"},
		},
		&cli.StringFlag{
			Name:    "embedding-model",
			Usage:   "Embedding model name",
			Value:   "embeddinggemma",
			EnvVars: []string{"LAKEFEED_EMBEDDING_MODEL"},
		},
		&cli.StringFlag{
			Name:    "ledger",
			Usage:   "Path to the local run ledger directory",
			Value:   "lakefeed-ledger",
			EnvVars: []string{"LAKEFEED_LEDGER"},
		},
		&cli.IntFlag{
			Name:    "batch-capacity",
			Usage:   "Maximum units buffered per collection before flushing",
			Value:   300,
			EnvVars: []string{"LAKEFEED_BATCH_CAPACITY"},
		},
	}
}

func serviceConfig(c *cli.Context) *lakefeed.Config {
	cfg := &lakefeed.Config{
		LedgerPath:       c.String("ledger"),
		CollectionPrefix: c.String("collection-prefix"),
		BatchCapacity:    c.Int("batch-capacity"),
	}
	cfg.Lake.Host = c.String("lake-host")
	cfg.Lake.Port = c.Int("lake-port")
	cfg.Lake.Username = c.String("lake-user")
	cfg.Lake.Password = c.String("lake-password")
	cfg.Lake.Database = c.String("lake-database")
	cfg.Index.Host = c.String("index-host")
	cfg.Index.Port = c.Int("index-port")
	cfg.Index.Collection = c.String("index-collection")
	cfg.Index.APIKey = c.String("index-api-key")
	cfg.Embedding = ai.Config{
		EmbeddingHost:  c.String("embedding-host"),
		EmbeddingModel: c.String("embedding-model"),
	}
	return cfg
}

func openService(ctx context.Context, c *cli.Context) (*lakefeed.Service, error) {
	cfg := serviceConfig(c)
	if err := cfg.Embedding.Validate(); err != nil {
		return nil, fmt.Errorf("invalid embedding configuration: %w", err)
	}
	svc, err := lakefeed.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to start service: %w", err)
	}
	return svc, nil
}

func daemonCommand(c *cli.Context) error {
	ctx := context.Background()

	svc, err := openService(ctx, c)
	if err != nil {
		return err
	}
	defer svc.Close(ctx)

	d, err := svc.Daemon(c.Duration("min-loop"))
	if err != nil {
		return err
	}

	// Stop cooperatively on SIGINT/SIGTERM; the current cycle finishes
	// before Run returns.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig.String())
		d.Stop()
	}()

	return d.Run(ctx)
}

func sweepCommand(c *cli.Context) error {
	ctx := context.Background()

	svc, err := openService(ctx, c)
	if err != nil {
		return err
	}
	defer svc.Close(ctx)

	start := time.Now()
	stats, err := svc.Sweep(ctx)
	if err != nil {
		return fmt.Errorf("sweep failed: %w", err)
	}

	fmt.Printf("swept %d collections in %s: %d units indexed, %d skipped, %d flushes\n",
		stats.Collections, time.Since(start).Round(time.Millisecond), stats.Units, stats.Skipped, stats.Flushes)
	return nil
}

func processCommand(c *cli.Context) error {
	ctx := context.Background()

	svc, err := openService(ctx, c)
	if err != nil {
		return err
	}
	defer svc.Close(ctx)

	collection := c.String("collection")
	units, skipped, err := svc.ProcessCollection(ctx, collection)
	if err != nil {
		return fmt.Errorf("failed to process %s: %w", collection, err)
	}

	fmt.Printf("%s: %d units indexed, %d skipped\n", collection, units, skipped)
	return nil
}

func searchCommand(c *cli.Context) error {
	ctx := context.Background()

	svc, err := openService(ctx, c)
	if err != nil {
		return err
	}
	defer svc.Close(ctx)

	hits, err := svc.Search(ctx, c.String("query"), c.Int("top-k"))
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	for i, hit := range hits {
		fmt.Printf("%d: '%s' (%s)[%0.3f]\n", i, hit.Content, hit.Id, hit.Score)
	}
	return nil
}

func runsCommand(c *cli.Context) error {
	ctx := context.Background()

	store, err := ledger.Open(c.String("ledger"), false)
	if err != nil {
		return fmt.Errorf("failed to open ledger: %w", err)
	}
	defer store.Close()

	reports, err := store.Recent(ctx, c.Int("limit"))
	if err != nil {
		return err
	}

	for _, r := range reports {
		status := "ok"
		if r.Failed {
			status = "failed: " + r.Err
		}
		fmt.Printf("#%d %s started=%s took=%s collections=%d units=%d skipped=%d flushes=%d %s\n",
			r.Seq, r.RunId, r.StartedAt.Format(time.RFC3339), r.Duration.Round(time.Millisecond),
			r.Stats.Collections, r.Stats.Units, r.Stats.Skipped, r.Stats.Flushes, status)
	}
	return nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
