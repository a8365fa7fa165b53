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


package ingestion

import (
	"fmt"
	"slices"

	"github.com/poiesic/wikistream/checkpoint"
)

const (
	DefaultStrategy           = "default"
	DefaultCheckpointInterval = 100
	DefaultBatchSize          = 64
	DefaultProgressInterval   = 1000
	DefaultMinParagraphLength = 50
)

// Config holds the run parameters of a Pipeline.
type Config struct {
	// DumpFile identifies the dump in the checkpoint. Defaults to the source name.
	DumpFile string

	// DumpDate identifies the dump snapshot in the checkpoint.
	DumpDate string

	// Strategy names the downstream technique; checkpoints are kept per strategy.
	Strategy string

	// EmbeddingModel and CollectionName are recorded in the checkpoint.
	EmbeddingModel string
	CollectionName string

	// CheckpointPath overrides the strategy-qualified default path.
	CheckpointPath string

	// CheckpointInterval is the number of completed articles between saves.
	CheckpointInterval int

	// Concurrency above 1 enables parallel mode when an index is configured.
	Concurrency int

	// BatchSize is the number of units handed to the sink at once.
	BatchSize int

	// ProgressInterval is the number of completed articles between progress lines.
	ProgressInterval int

	// MinParagraphLength is the minimum cleaned paragraph length in characters.
	MinParagraphLength int

	// Namespaces lists the page namespaces to ingest. Empty admits every namespace.
	Namespaces []int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Strategy:           DefaultStrategy,
		CheckpointInterval: DefaultCheckpointInterval,
		Concurrency:        1,
		BatchSize:          DefaultBatchSize,
		ProgressInterval:   DefaultProgressInterval,
		MinParagraphLength: DefaultMinParagraphLength,
		Namespaces:         []int{0},
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch {
	case c.Strategy == "":
		return fmt.Errorf("%w: strategy is required", ErrInvalidConfig)
	case c.CheckpointInterval < 1:
		return fmt.Errorf("%w: checkpoint interval must be positive", ErrInvalidConfig)
	case c.BatchSize < 1:
		return fmt.Errorf("%w: batch size must be positive", ErrInvalidConfig)
	case c.ProgressInterval < 1:
		return fmt.Errorf("%w: progress interval must be positive", ErrInvalidConfig)
	case c.Concurrency < 1:
		return fmt.Errorf("%w: concurrency must be positive", ErrInvalidConfig)
	case c.MinParagraphLength < 0:
		return fmt.Errorf("%w: negative minimum paragraph length", ErrInvalidConfig)
	}
	return nil
}

func (c *Config) checkpointPath() string {
	if c.CheckpointPath != "" {
		return c.CheckpointPath
	}
	return checkpoint.DefaultPath(checkpoint.DefaultDir, c.Strategy)
}

func (c *Config) params() checkpoint.Params {
	return checkpoint.Params{
		Strategy:       c.Strategy,
		DumpFile:       c.DumpFile,
		DumpDate:       c.DumpDate,
		EmbeddingModel: c.EmbeddingModel,
		CollectionName: c.CollectionName,
	}
}

func (c *Config) admitsNamespace(ns int) bool {
	return len(c.Namespaces) == 0 || slices.Contains(c.Namespaces, ns)
}
