// Copyright 2025 Poiesic Systems
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


package wikistream

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/wikistream/ai"
	"github.com/poiesic/wikistream/ai/openai"
	"github.com/poiesic/wikistream/dump"
	"github.com/poiesic/wikistream/embedstore"
	"github.com/poiesic/wikistream/ingestion"
	"github.com/poiesic/wikistream/storage"
	"github.com/poiesic/wikistream/storage/badger"
)

// Database wires the local unit store and the embedder into ingestion pipelines.
type Database struct {
	backend  *badger.Backend
	unitRepo storage.UnitRepository
	embedder ai.Embedder
	retry    embedstore.Config
	logger   *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	aiConfig    *ai.Config
	embedder    ai.Embedder
	compression bool
	inMemory    bool
	retry       embedstore.Config
	logger      *slog.Logger
}

// WithAIConfig sets the embedding service configuration.
func WithAIConfig(cfg *ai.Config) DatabaseOption {
	return func(o *databaseOptions) {
		o.aiConfig = cfg
	}
}

// WithEmbedder uses an already constructed embedder instead of building one from the AI config.
func WithEmbedder(e ai.Embedder) DatabaseOption {
	return func(o *databaseOptions) {
		o.embedder = e
	}
}

// WithStoreCompression enables ZSTD compression of the unit store.
func WithStoreCompression(enabled bool) DatabaseOption {
	return func(o *databaseOptions) {
		o.compression = enabled
	}
}

// WithInMemoryStore keeps the unit store in memory. The path is ignored.
func WithInMemoryStore() DatabaseOption {
	return func(o *databaseOptions) {
		o.inMemory = true
	}
}

// WithEmbeddingRetry sets the retry policy for embedding requests.
func WithEmbeddingRetry(maxRetries int, baseDelay time.Duration) DatabaseOption {
	return func(o *databaseOptions) {
		o.retry.MaxRetries = maxRetries
		o.retry.RetryDelay = baseDelay
	}
}

// WithDatabaseLogger sets the logger.
func WithDatabaseLogger(logger *slog.Logger) DatabaseOption {
	return func(o *databaseOptions) {
		o.logger = logger
	}
}

// NewDatabase opens (or creates) the unit store at filePath.
func NewDatabase(filePath string, opts ...DatabaseOption) (*Database, error) {
	options := &databaseOptions{
		aiConfig: ai.DefaultConfig(),
		retry:    *embedstore.DefaultConfig(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	embedder := options.embedder
	if embedder == nil {
		var err error
		embedder, err = openai.NewEmbedder(options.aiConfig)
		if err != nil {
			return nil, err
		}
	}

	backend, err := badger.OpenBackend(filePath, options.inMemory,
		badger.WithBackendLogger(options.logger),
		badger.WithCompression(options.compression))
	if err != nil {
		return nil, err
	}

	unitRepo, err := badger.NewUnitRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	return &Database{
		backend:  backend,
		unitRepo: unitRepo,
		embedder: embedder,
		retry:    options.retry,
		logger:   options.logger,
	}, nil
}

func (db *Database) Close() error {
	if err := db.unitRepo.Close(); err != nil {
		db.logger.Error("error closing unit repository", "err", err)
		return err
	}
	if err := db.backend.Close(); err != nil {
		db.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

func (db *Database) UnitRepository() storage.UnitRepository {
	return db.unitRepo
}

func (db *Database) Embedder() ai.Embedder {
	return db.embedder
}

// NewSink creates an embed-and-store sink writing into collection.
func (db *Database) NewSink(collection string) (*embedstore.Sink, error) {
	cfg := db.retry
	cfg.Collection = collection
	return embedstore.NewSink(db.unitRepo, db.embedder, &cfg, embedstore.WithLogger(db.logger))
}

// NewIngestionPipeline creates a pipeline that embeds every unit of src and
// stores it in cfg.CollectionName. An empty EmbeddingModel is taken from the embedder.
func (db *Database) NewIngestionPipeline(cfg ingestion.Config, src dump.Source, opts ...ingestion.Option) (*ingestion.Pipeline, *embedstore.Sink, error) {
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = db.embedder.Model()
	}
	sink, err := db.NewSink(cfg.CollectionName)
	if err != nil {
		return nil, nil, fmt.Errorf("create sink: %w", err)
	}
	opts = append([]ingestion.Option{ingestion.WithLogger(db.logger)}, opts...)
	pipeline, err := ingestion.NewPipeline(cfg, src, sink, opts...)
	if err != nil {
		return nil, nil, err
	}
	return pipeline, sink, nil
}
