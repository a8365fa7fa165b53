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


package embedstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/poiesic/wikistream/ai"
	"github.com/poiesic/wikistream/core"
	"github.com/poiesic/wikistream/storage"
)

// Config holds configuration for a Sink.
type Config struct {
	// Collection is the unit store collection receiving the units.
	Collection string

	// MaxRetries is the maximum number of embedding attempts per batch.
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff.
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Collection: "wikipedia",
		MaxRetries: 3,
		RetryDelay: 1 * time.Second,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Collection == "" {
		return fmt.Errorf("%w: collection name is required", ErrInvalidConfig)
	}
	if c.MaxRetries <= 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, ErrInvalidMaxAttempts)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("%w: negative retry delay", ErrInvalidConfig)
	}
	return nil
}

// Option configures a Sink.
type Option func(*Sink) error

// WithLogger sets a custom logger for the sink.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sink) error {
		s.logger = logger
		return nil
	}
}

// Sink embeds text units and stores them in a unit repository.
// It is safe for sequential use by a single ingestion pipeline.
type Sink struct {
	repo     storage.UnitRepository
	embedder ai.Embedder
	config   *Config
	logger   *slog.Logger

	stored  atomic.Int64
	skipped atomic.Int64
}

// NewSink creates a sink writing into repo. A nil config uses DefaultConfig.
func NewSink(repo storage.UnitRepository, embedder ai.Embedder, config *Config, opts ...Option) (*Sink, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	s := &Sink{
		repo:     repo,
		embedder: embedder,
		config:   config,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "embedstore", "collection", config.Collection)
	return s, nil
}

// Collection returns the destination collection name.
func (s *Sink) Collection() string {
	return s.config.Collection
}

// Consume embeds and stores a batch of units. Units that fail validation are
// logged and skipped. The batch is stored in one transaction, so either all
// valid units of a batch are accepted or none are.
func (s *Sink) Consume(ctx context.Context, units []core.TextUnit) error {
	valid := make([]core.TextUnit, 0, len(units))
	for _, u := range units {
		if err := core.ValidateTextUnit(u); err != nil {
			s.logger.Warn("skipping invalid text unit", "article_id", u.ArticleID, "err", err)
			s.skipped.Add(1)
			continue
		}
		valid = append(valid, u)
	}
	if len(valid) == 0 {
		return nil
	}

	texts := make([]string, len(valid))
	for i, u := range valid {
		texts[i] = u.Content
	}

	var vectors [][]float32
	err := RetryWithBackoff(ctx, func() error {
		var err error
		vectors, err = s.embedder.EmbedTexts(ctx, texts)
		return err
	}, s.config.MaxRetries, s.config.RetryDelay)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return fmt.Errorf("failed to generate embeddings after %d attempts: %w", s.config.MaxRetries, err)
	}
	if len(vectors) != len(valid) {
		return fmt.Errorf("%w: expected %d, got %d", ErrEmbeddingMismatch, len(valid), len(vectors))
	}

	records := make([]*core.StoredUnit, len(valid))
	for i, u := range valid {
		records[i] = core.NewStoredUnit(s.config.Collection, u, NormalizeVector(vectors[i]))
	}

	if _, err := s.repo.AddUnits(ctx, records...); err != nil {
		return fmt.Errorf("failed to store units: %w", err)
	}

	s.stored.Add(int64(len(records)))
	s.logger.Debug("stored batch", "units", len(records))
	return nil
}

// Stored returns the number of units accepted so far.
func (s *Sink) Stored() int64 {
	return s.stored.Load()
}

// Skipped returns the number of units rejected by validation.
func (s *Sink) Skipped() int64 {
	return s.skipped.Load()
}
