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
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/wikistream/blockindex"
	"github.com/poiesic/wikistream/checkpoint"
	"github.com/poiesic/wikistream/core"
	"github.com/poiesic/wikistream/dump"
	"github.com/poiesic/wikistream/multiblock"
	"github.com/poiesic/wikistream/resume"
	"github.com/poiesic/wikistream/wikitext"
)

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithIndex sets the multistream index. Together with a concurrency above 1
// it switches the pipeline to parallel mode.
func WithIndex(index dump.Source) Option {
	return func(p *Pipeline) error {
		p.index = index
		return nil
	}
}

// WithProgressWriter sets where progress lines go. Default is os.Stderr.
func WithProgressWriter(w io.Writer) Option {
	return func(p *Pipeline) error {
		if w == nil {
			w = io.Discard
		}
		p.progressOut = w
		return nil
	}
}

// WithStreamerOptions passes options to every page streamer the pipeline creates.
func WithStreamerOptions(opts ...dump.StreamerOption) Option {
	return func(p *Pipeline) error {
		p.streamerOpts = append(p.streamerOpts, opts...)
		return nil
	}
}

// Stats summarizes what a run delivered.
type Stats struct {
	UnitsDelivered int64
	PagesSkipped   int64
}

// pendingProgress is progress whose units may still sit in the unflushed batch.
type pendingProgress struct {
	articles int
	last     string
	offsets  []int64
}

// Pipeline ingests one dump into a Sink.
type Pipeline struct {
	config       Config
	source       dump.Source
	index        dump.Source
	sink         Sink
	logger       *slog.Logger
	progressOut  io.Writer
	streamerOpts []dump.StreamerOption
	runID        string
	path         string

	running  atomic.Bool
	stopping atomic.Bool

	// mu guards writes to cp and reads from outside the Run goroutine.
	mu sync.Mutex
	cp *core.Checkpoint

	// Owned by the Run goroutine.
	parallel      bool
	savedAt       int
	filter        *resume.Filter
	current       string
	batch         []core.TextUnit
	pending       pendingProgress
	blockArticles int
	blockLast     string
	progress      *ProgressTracker

	delivered    atomic.Int64
	skippedPages atomic.Int64
}

// NewPipeline creates a pipeline reading src and delivering to sink.
func NewPipeline(cfg Config, src dump.Source, sink Sink, opts ...Option) (*Pipeline, error) {
	if src == nil {
		return nil, ErrSourceRequired
	}
	if sink == nil {
		return nil, ErrSinkRequired
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.DumpFile == "" {
		cfg.DumpFile = src.Name()
	}
	cfg.Namespaces = slices.Clone(cfg.Namespaces)

	p := &Pipeline{
		config:      cfg,
		source:      src,
		sink:        sink,
		logger:      slog.Default(),
		progressOut: os.Stderr,
		runID:       uuid.NewString(),
		path:        cfg.checkpointPath(),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	p.logger = p.logger.With("component", "ingestion", "run_id", p.runID)
	return p, nil
}

// RunID returns the identifier attached to this run's log records.
func (p *Pipeline) RunID() string {
	return p.runID
}

// CheckpointPath returns where the checkpoint is persisted.
func (p *Pipeline) CheckpointPath() string {
	return p.path
}

// Stop asks Run to stop at the next unit boundary. Run then flushes the
// current batch, saves the checkpoint and returns core.ErrInterrupted.
// Stop is safe to call from any goroutine, any number of times.
func (p *Pipeline) Stop() {
	if p.stopping.CompareAndSwap(false, true) {
		p.logger.Info("stop requested")
	}
}

// Checkpoint returns a copy of the committed checkpoint, or nil before Run has loaded one.
func (p *Pipeline) Checkpoint() *core.Checkpoint {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cp == nil {
		return nil
	}
	return cloneCheckpoint(p.cp)
}

// Stats returns delivery counters.
func (p *Pipeline) Stats() Stats {
	return Stats{
		UnitsDelivered: p.delivered.Load(),
		PagesSkipped:   p.skippedPages.Load(),
	}
}

// Run ingests the dump until it is exhausted, Stop is called or an error occurs.
// A Pipeline runs once.
func (p *Pipeline) Run(ctx context.Context) error {
	if !p.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	cp, resumed, err := checkpoint.LoadOrCreate(p.path, p.config.params(), p.logger)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.cp = cp
	p.mu.Unlock()
	p.savedAt = cp.ArticlesProcessed
	p.batch = make([]core.TextUnit, 0, p.config.BatchSize)
	p.progress = NewProgressTracker(p.progressOut, cp.TotalArticles, p.config.ProgressInterval)
	p.parallel = p.index != nil && p.config.Concurrency > 1

	mode := "sequential"
	if p.parallel {
		mode = "parallel"
	}
	p.logger.Info("starting ingestion",
		"mode", mode,
		"source", p.source.Name(),
		"checkpoint", p.path,
		"resumed", resumed,
		"last_article_id", cp.LastArticleID,
		"articles_processed", cp.ArticlesProcessed)

	var runErr error
	if p.parallel {
		runErr = p.runParallel(ctx)
	} else {
		runErr = p.runSequential(ctx)
	}
	return p.finish(ctx, runErr)
}

func (p *Pipeline) runSequential(ctx context.Context) error {
	p.filter = resume.NewFilter(p.cp.LastArticleID)
	p.progress.Start(p.cp.ArticlesProcessed)

	rc, err := dump.OpenStream(ctx, p.source, 0, -1)
	if err != nil {
		return err
	}
	defer rc.Close()

	err = p.newStreamer(rc).ForEach(ctx, func(page core.Page) error {
		if p.stopping.Load() {
			return errStopped
		}
		if !p.admitPage(page) {
			return nil
		}
		for _, u := range wikitext.Units(page, p.config.MinParagraphLength) {
			if err := p.handleUnit(ctx, u); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := p.completeArticle(ctx); err != nil {
		return err
	}
	return p.filter.Finish()
}

// loadBlocks compacts the index. Per-block article IDs are dropped since
// only counts are needed, which keeps memory proportional to the block count.
func (p *Pipeline) loadBlocks(ctx context.Context) ([]core.Block, blockindex.Stats, error) {
	compactor := blockindex.NewCompactor(
		blockindex.WithArticleIDs(false),
		blockindex.WithProgress(blockindex.DefaultProgressEvery, func(s blockindex.Stats) {
			p.logger.Info("compacting index", "lines", s.Lines, "blocks", s.Blocks)
		}),
	)
	blocks, stats, err := compactor.Load(ctx, p.index)
	if err != nil {
		return nil, stats, err
	}
	if err := core.ValidateBlocks(blocks); err != nil {
		return nil, stats, err
	}
	return blocks, stats, nil
}

func (p *Pipeline) runParallel(ctx context.Context) error {
	blocks, stats, err := p.loadBlocks(ctx)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.cp.TotalArticles = stats.Articles
	if p.cp.CompletedBlockOffsets == nil {
		if p.cp.ArticlesProcessed > 0 {
			p.logger.Warn("checkpoint has no block progress, reprocessing all blocks",
				"last_article_id", p.cp.LastArticleID,
				"articles_processed", p.cp.ArticlesProcessed)
			p.cp.ArticlesProcessed = 0
			p.cp.LastArticleID = core.StartOfDump
			p.savedAt = 0
		}
		p.cp.CompletedBlockOffsets = []int64{}
	}
	p.mu.Unlock()

	completed := make(map[int64]struct{}, len(p.cp.CompletedBlockOffsets))
	for _, off := range p.cp.CompletedBlockOffsets {
		completed[off] = struct{}{}
	}
	remaining := make([]core.Block, 0, len(blocks))
	covered := 0
	for _, b := range blocks {
		if _, ok := completed[b.ByteOffset]; ok {
			covered += b.ArticleCount
			continue
		}
		remaining = append(remaining, b)
	}

	p.logger.Info("index compacted",
		"lines", stats.Lines,
		"blocks", len(blocks),
		"articles", stats.Articles,
		"remaining_blocks", len(remaining))

	// Progress counts index entries covered by completed blocks, so it can
	// reach the total even though redirects and skipped pages yield no units.
	p.progress.SetTotal(stats.Articles)
	p.progress.Start(covered)

	reader, err := multiblock.NewReader(p.config.Concurrency, p.decodeBlock, multiblock.WithLogger(p.logger))
	if err != nil {
		return err
	}
	defer reader.Release()

	return reader.ForEach(ctx, remaining,
		func(u core.TextUnit) error {
			return p.handleUnit(ctx, u)
		},
		func(b core.Block) error {
			return p.completeBlock(ctx, b)
		})
}

// decodeBlock runs on a worker goroutine and must not touch run state.
func (p *Pipeline) decodeBlock(ctx context.Context, b core.Block) ([]core.TextUnit, error) {
	rc, err := dump.OpenStream(ctx, p.source, b.ByteOffset, b.EndOffset)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var units []core.TextUnit
	err = p.newStreamer(rc).ForEach(ctx, func(page core.Page) error {
		if p.admitPage(page) {
			units = append(units, wikitext.Units(page, p.config.MinParagraphLength)...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return units, nil
}

func (p *Pipeline) newStreamer(r io.Reader) *dump.Streamer {
	opts := append([]dump.StreamerOption{dump.WithStreamLogger(p.logger)}, p.streamerOpts...)
	return dump.NewStreamer(r, opts...)
}

// admitPage drops redirects, pages outside the configured namespaces and empty bodies.
func (p *Pipeline) admitPage(page core.Page) bool {
	if page.IsRedirect || !p.config.admitsNamespace(page.Namespace) || strings.TrimSpace(page.RawText) == "" {
		p.skippedPages.Add(1)
		return false
	}
	return true
}

func (p *Pipeline) handleUnit(ctx context.Context, u core.TextUnit) error {
	if p.stopping.Load() {
		return errStopped
	}
	if p.filter != nil && !p.filter.Admit(u.ArticleID) {
		return nil
	}

	if u.ArticleID != p.current {
		if err := p.completeArticle(ctx); err != nil {
			return err
		}
		p.current = u.ArticleID
	}

	p.batch = append(p.batch, u)
	if len(p.batch) >= p.config.BatchSize {
		return p.flush(ctx)
	}
	return nil
}

// completeArticle accounts for the article whose units were just delivered.
// In parallel mode the count is held back until its block completes.
func (p *Pipeline) completeArticle(ctx context.Context) error {
	if p.current == "" {
		return nil
	}
	id := p.current
	p.current = ""

	if p.parallel {
		p.blockArticles++
		p.blockLast = id
		return nil
	}

	p.pending.articles++
	p.pending.last = id
	p.progress.Increment(1)
	return p.maybeSave(ctx)
}

func (p *Pipeline) completeBlock(ctx context.Context, b core.Block) error {
	if err := p.completeArticle(ctx); err != nil {
		return err
	}

	p.pending.articles += p.blockArticles
	if p.blockLast != "" {
		p.pending.last = p.blockLast
	}
	p.pending.offsets = append(p.pending.offsets, b.ByteOffset)
	p.progress.Increment(b.ArticleCount)
	p.blockArticles, p.blockLast = 0, ""

	if err := p.maybeSave(ctx); err != nil {
		return err
	}
	if p.stopping.Load() {
		return errStopped
	}
	return nil
}

func (p *Pipeline) maybeSave(ctx context.Context) error {
	if p.cp.ArticlesProcessed+p.pending.articles-p.savedAt < p.config.CheckpointInterval {
		return nil
	}
	return p.save(ctx)
}

// flush hands the batch to the sink and then commits the pending progress
// whose units it carried.
func (p *Pipeline) flush(ctx context.Context) error {
	if len(p.batch) > 0 {
		if err := p.sink.Consume(ctx, p.batch); err != nil {
			return fmt.Errorf("deliver %d units: %w", len(p.batch), err)
		}
		p.delivered.Add(int64(len(p.batch)))
		p.batch = make([]core.TextUnit, 0, p.config.BatchSize)
	}

	p.mu.Lock()
	p.cp.ArticlesProcessed += p.pending.articles
	if p.pending.last != "" {
		p.cp.LastArticleID = p.pending.last
	}
	if len(p.pending.offsets) > 0 {
		p.cp.CompletedBlockOffsets = append(p.cp.CompletedBlockOffsets, p.pending.offsets...)
	}
	p.mu.Unlock()
	p.pending = pendingProgress{}
	return nil
}

func (p *Pipeline) save(ctx context.Context) error {
	if err := p.flush(ctx); err != nil {
		return err
	}
	return p.persist()
}

// persist writes the committed checkpoint without flushing.
func (p *Pipeline) persist() error {
	p.mu.Lock()
	p.cp.Timestamp = time.Now().UTC()
	snapshot := cloneCheckpoint(p.cp)
	p.mu.Unlock()

	if err := checkpoint.Save(snapshot, p.path); err != nil {
		return err
	}
	p.savedAt = snapshot.ArticlesProcessed
	p.logger.Debug("checkpoint saved",
		"last_article_id", snapshot.LastArticleID,
		"articles_processed", snapshot.ArticlesProcessed,
		"completed_blocks", len(snapshot.CompletedBlockOffsets))
	return nil
}

func (p *Pipeline) finish(ctx context.Context, runErr error) error {
	switch {
	case runErr == nil:
		if err := p.save(ctx); err != nil {
			return fmt.Errorf("save final checkpoint: %w", err)
		}
		p.progress.Finish()
		p.logger.Info("ingestion complete",
			"articles_processed", p.cp.ArticlesProcessed,
			"units_delivered", p.delivered.Load(),
			"pages_skipped", p.skippedPages.Load(),
			"elapsed", p.progress.Elapsed().Round(time.Second))
		return nil

	case errors.Is(runErr, errStopped):
		if err := p.save(context.WithoutCancel(ctx)); err != nil {
			return fmt.Errorf("save checkpoint after stop: %w", err)
		}
		p.progress.Finish()
		p.logger.Warn("ingestion interrupted, checkpoint saved",
			"last_article_id", p.cp.LastArticleID,
			"articles_processed", p.cp.ArticlesProcessed)
		return fmt.Errorf("%w: resume after article %s", core.ErrInterrupted, p.cp.LastArticleID)
	}

	if err := p.save(context.WithoutCancel(ctx)); err != nil {
		p.logger.Warn("could not flush pending units before final checkpoint", "err", err)
		if err := p.persist(); err != nil {
			p.logger.Error("final checkpoint save failed", "err", err)
		}
	}
	p.logger.Error("ingestion failed",
		"err", runErr,
		"last_article_id", p.cp.LastArticleID,
		"articles_processed", p.cp.ArticlesProcessed)
	return runErr
}

func cloneCheckpoint(cp *core.Checkpoint) *core.Checkpoint {
	c := *cp
	if cp.CompletedBlockOffsets != nil {
		c.CompletedBlockOffsets = slices.Clone(cp.CompletedBlockOffsets)
	}
	return &c
}
