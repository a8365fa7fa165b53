package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/poiesic/wikistream"
	"github.com/poiesic/wikistream/ai"
	"github.com/poiesic/wikistream/core"
	"github.com/poiesic/wikistream/dump"
	"github.com/poiesic/wikistream/ingestion"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

const exitInterrupted = 130

func ingestFlags() []cli.Flag {
	defaults := ingestion.DefaultConfig()
	aiDefaults := ai.DefaultConfig()

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:     "dump",
			Usage:    "Path or s3:// URI of the dump (.xml, .bz2, .gz or .zst)",
			Required: true,
			EnvVars:  env("DUMP"),
		},
		&cli.StringFlag{
			Name:    "index",
			Usage:   "Path or s3:// URI of the multistream index; enables block-parallel reading with --concurrency",
			EnvVars: env("INDEX"),
		},
		&cli.IntFlag{
			Name:    "concurrency",
			Aliases: []string{"c"},
			Usage:   "Number of blocks decoded in parallel (requires --index)",
			Value:   defaults.Concurrency,
			EnvVars: env("CONCURRENCY"),
		},
		&cli.StringFlag{
			Name:    "strategy",
			Usage:   "Name of the downstream strategy; checkpoints are kept per strategy",
			Value:   defaults.Strategy,
			EnvVars: env("STRATEGY"),
		},
		&cli.StringFlag{
			Name:    "dump-date",
			Usage:   "Dump snapshot date recorded in the checkpoint",
			EnvVars: env("DUMP_DATE"),
		},
		&cli.StringFlag{
			Name:    "checkpoint",
			Usage:   "Checkpoint file (default: checkpoints/<strategy>_checkpoint.json)",
			EnvVars: env("CHECKPOINT"),
		},
		&cli.IntFlag{
			Name:    "checkpoint-interval",
			Usage:   "Save the checkpoint every N articles",
			Value:   defaults.CheckpointInterval,
			EnvVars: env("CHECKPOINT_INTERVAL"),
		},
		&cli.IntFlag{
			Name:    "batch-size",
			Usage:   "Number of units handed to the sink at once",
			Value:   defaults.BatchSize,
			EnvVars: env("BATCH_SIZE"),
		},
		&cli.IntFlag{
			Name:    "progress-interval",
			Usage:   "Report progress every N articles",
			Value:   defaults.ProgressInterval,
			EnvVars: env("PROGRESS_INTERVAL"),
		},
		&cli.IntFlag{
			Name:    "min-paragraph-length",
			Usage:   "Drop paragraphs shorter than N characters",
			Value:   defaults.MinParagraphLength,
			EnvVars: env("MIN_PARAGRAPH_LENGTH"),
		},
		&cli.IntSliceFlag{
			Name:    "namespace",
			Usage:   "Page namespace to ingest (repeatable)",
			Value:   cli.NewIntSlice(defaults.Namespaces...),
			EnvVars: env("NAMESPACES"),
		},
		&cli.IntFlag{
			Name:    "max-page-bytes",
			Usage:   "Largest page the dump reader buffers before failing with a framing error",
			Value:   dump.DefaultMaxBuffer,
			EnvVars: env("MAX_PAGE_BYTES"),
		},
		&cli.IntFlag{
			Name:    "read-chunk-bytes",
			Usage:   "Bytes read from the decompressed dump per scan",
			Value:   dump.DefaultChunkSize,
			EnvVars: env("READ_CHUNK_BYTES"),
		},
		&cli.BoolFlag{
			Name:  "all-namespaces",
			Usage: "Ingest pages of every namespace",
		},
		&cli.StringFlag{
			Name:    "out",
			Aliases: []string{"o"},
			Usage:   "Write units as JSON Lines to this file (- for stdout) instead of embedding them",
			EnvVars: env("OUT"),
		},
		&cli.StringFlag{
			Name:    "db",
			Aliases: []string{"d"},
			Usage:   "Path to BadgerDB database directory for embedded units",
			EnvVars: env("DB"),
		},
		&cli.BoolFlag{
			Name:    "compress-store",
			Usage:   "Enable ZSTD compression of the database",
			EnvVars: env("COMPRESS_STORE"),
		},
		&cli.StringFlag{
			Name:    "collection",
			Usage:   "Collection the units are stored under",
			Value:   "wikipedia",
			EnvVars: env("COLLECTION"),
		},
		&cli.StringFlag{
			Name:    "embedding-host",
			Usage:   "Embedding service host URL",
			Value:   aiDefaults.EmbeddingHost,
			EnvVars: env("EMBEDDING_HOST"),
		},
		&cli.StringFlag{
			Name:    "embedding-model",
			Usage:   "Embedding model name",
			Value:   aiDefaults.EmbeddingModel,
			EnvVars: env("EMBEDDING_MODEL"),
		},
		&cli.StringFlag{
			Name:    "api-key",
			Usage:   "Embedding service API key",
			EnvVars: env("API_KEY"),
		},
		&cli.IntFlag{
			Name:    "embedding-batch-size",
			Usage:   "Number of texts per embedding request",
			Value:   aiDefaults.BatchSize,
			EnvVars: env("EMBEDDING_BATCH_SIZE"),
		},
		&cli.IntFlag{
			Name:    "max-retries",
			Usage:   "Maximum attempts per embedding request",
			Value:   3,
			EnvVars: env("MAX_RETRIES"),
		},
		&cli.DurationFlag{
			Name:    "retry-delay",
			Usage:   "Initial delay between retries (doubles each retry)",
			Value:   time.Second,
			EnvVars: env("RETRY_DELAY"),
		},
	}
	return append(flags, s3Flags()...)
}

func s3Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "s3-region",
			Usage:   "AWS region for s3:// locations",
			EnvVars: []string{envPrefix + "S3_REGION", "AWS_REGION"},
		},
		&cli.StringFlag{
			Name:    "s3-endpoint",
			Usage:   "Custom S3 endpoint (MinIO, localstack)",
			EnvVars: env("S3_ENDPOINT"),
		},
		&cli.StringFlag{
			Name:    "s3-access-key",
			Usage:   "S3 access key (default: AWS credential chain)",
			EnvVars: []string{envPrefix + "S3_ACCESS_KEY", "AWS_ACCESS_KEY_ID"},
		},
		&cli.StringFlag{
			Name:    "s3-secret-key",
			Usage:   "S3 secret key",
			EnvVars: []string{envPrefix + "S3_SECRET_KEY", "AWS_SECRET_ACCESS_KEY"},
		},
	}
}

func s3Options(c *cli.Context) []dump.S3Option {
	var opts []dump.S3Option
	if region := c.String("s3-region"); region != "" {
		opts = append(opts, dump.WithRegion(region))
	}
	if endpoint := c.String("s3-endpoint"); endpoint != "" {
		opts = append(opts, dump.WithEndpoint(endpoint))
	}
	if key := c.String("s3-access-key"); key != "" {
		opts = append(opts, dump.WithStaticCredentials(key, c.String("s3-secret-key")))
	}
	return opts
}

func ingestionConfig(c *cli.Context) ingestion.Config {
	cfg := ingestion.DefaultConfig()
	cfg.DumpDate = c.String("dump-date")
	cfg.Strategy = c.String("strategy")
	cfg.CollectionName = c.String("collection")
	cfg.CheckpointPath = c.String("checkpoint")
	cfg.CheckpointInterval = c.Int("checkpoint-interval")
	cfg.Concurrency = c.Int("concurrency")
	cfg.BatchSize = c.Int("batch-size")
	cfg.ProgressInterval = c.Int("progress-interval")
	cfg.MinParagraphLength = c.Int("min-paragraph-length")
	cfg.Namespaces = c.IntSlice("namespace")
	if c.Bool("all-namespaces") {
		cfg.Namespaces = nil
	}
	return cfg
}

func ingestCommand(c *cli.Context) error {
	if err := runIngest(c); err != nil {
		return cli.Exit(err.Error(), exitCode(err))
	}
	return nil
}

func runIngest(c *cli.Context) error {
	ctx := c.Context
	logger := slog.Default()

	if c.String("out") == "" && c.String("db") == "" {
		return errors.New("one of --db or --out is required")
	}

	src, err := dump.Open(ctx, c.String("dump"), s3Options(c)...)
	if err != nil {
		return fmt.Errorf("failed to open dump: %w", err)
	}

	opts := []ingestion.Option{
		ingestion.WithLogger(logger),
		ingestion.WithProgressWriter(c.App.ErrWriter),
		ingestion.WithStreamerOptions(
			dump.WithMaxBuffer(c.Int("max-page-bytes")),
			dump.WithChunkSize(c.Int("read-chunk-bytes")),
		),
	}
	if location := c.String("index"); location != "" {
		index, err := dump.Open(ctx, location, s3Options(c)...)
		if err != nil {
			return fmt.Errorf("failed to open index: %w", err)
		}
		opts = append(opts, ingestion.WithIndex(index))
	}

	cfg := ingestionConfig(c)

	var pipeline *ingestion.Pipeline
	if out := c.String("out"); out != "" {
		w, closeOut, err := openOutput(c, out)
		if err != nil {
			return err
		}
		defer closeOut()

		pipeline, err = ingestion.NewPipeline(cfg, src, ingestion.NewJSONLSink(w), opts...)
		if err != nil {
			return fmt.Errorf("failed to create pipeline: %w", err)
		}
	} else {
		aiConfig := ai.NewConfig(
			ai.WithEmbeddingHost(c.String("embedding-host")),
			ai.WithEmbeddingModel(c.String("embedding-model")),
			ai.WithAPIKey(c.String("api-key")),
			ai.WithBatchSize(c.Int("embedding-batch-size")),
		)
		if err := aiConfig.Validate(); err != nil {
			return fmt.Errorf("invalid AI configuration: %w", err)
		}

		db, err := wikistream.NewDatabase(c.String("db"),
			wikistream.WithAIConfig(aiConfig),
			wikistream.WithStoreCompression(c.Bool("compress-store")),
			wikistream.WithEmbeddingRetry(c.Int("max-retries"), c.Duration("retry-delay")),
			wikistream.WithDatabaseLogger(logger),
		)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		pipeline, _, err = db.NewIngestionPipeline(cfg, src, opts...)
		if err != nil {
			return fmt.Errorf("failed to create pipeline: %w", err)
		}
	}

	logger.Info("starting ingestion",
		"run_id", pipeline.RunID(),
		"dump", src.Name(),
		"checkpoint", pipeline.CheckpointPath())

	signals := make(chan os.Signal, 2)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)

	return runPipeline(ctx, pipeline, signals, func() { os.Exit(1) }, logger)
}

// runPipeline runs p until it finishes, fails or is stopped by the first
// signal. A second signal calls force.
func runPipeline(ctx context.Context, p *ingestion.Pipeline, signals <-chan os.Signal, force func(), logger *slog.Logger) error {
	interrupter, err := ingestion.NewInterrupter(p, force, logger)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	watchCtx, stopWatching := context.WithCancel(gctx)
	g.Go(func() error {
		defer stopWatching()
		return p.Run(gctx)
	})
	g.Go(func() error {
		return interrupter.Watch(watchCtx, signals)
	})
	return g.Wait()
}

func openOutput(c *cli.Context, out string) (io.Writer, func(), error) {
	if out == "-" {
		return c.App.Writer, func() {}, nil
	}
	// Append so a resumed run extends the previous output.
	f, err := os.OpenFile(out, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open output: %w", err)
	}
	return f, func() { f.Close() }, nil
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, core.ErrInterrupted):
		return exitInterrupted
	default:
		return 1
	}
}
