// Package checkpoint persists ingestion progress as a JSON document.
//
// Writes go to a temporary sibling that is synced and then renamed over the
// destination, so a reader sees either the previous checkpoint or the new one.
package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/poiesic/wikistream/core"
)

// DefaultDir is where checkpoints live unless a path is given.
const DefaultDir = "checkpoints"

// requiredKeys are the document keys a checkpoint must carry.
// completed_block_offsets is optional: files from sequential runs omit it.
var requiredKeys = []string{
	"last_article_id",
	"articles_processed",
	"total_articles",
	"strategy",
	"dump_file",
	"dump_date",
	"embedding_model",
	"collection_name",
	"timestamp",
}

// Params identify a logical ingestion run.
type Params struct {
	Strategy       string
	DumpFile       string
	DumpDate       string
	EmbeddingModel string
	CollectionName string
}

// DefaultPath returns the strategy-qualified checkpoint path inside dir.
func DefaultPath(dir, strategy string) string {
	if dir == "" {
		dir = DefaultDir
	}
	return filepath.Join(dir, strategy+"_checkpoint.json")
}

// CreateInitial returns a checkpoint that has processed nothing.
// CompletedBlockOffsets stays nil until a multi-block run touches it.
func CreateInitial(p Params) *core.Checkpoint {
	return &core.Checkpoint{
		LastArticleID:  core.StartOfDump,
		Strategy:       p.Strategy,
		DumpFile:       p.DumpFile,
		DumpDate:       p.DumpDate,
		EmbeddingModel: p.EmbeddingModel,
		CollectionName: p.CollectionName,
		Timestamp:      time.Now().UTC(),
	}
}

// Validate reports whether cp was produced by the run described by p.
// Only strategy, dump file and dump date identify a run.
func Validate(cp *core.Checkpoint, p Params) bool {
	if cp == nil {
		return false
	}
	return cp.Strategy == p.Strategy &&
		cp.DumpFile == p.DumpFile &&
		cp.DumpDate == p.DumpDate
}

// Save writes cp to path atomically, creating the directory if needed.
func Save(cp *core.Checkpoint, path string) error {
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create checkpoint directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp checkpoint: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		cleanup()
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("sync checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close checkpoint: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace checkpoint: %w", err)
	}
	return nil
}

// Load reads a checkpoint. A missing file yields core.ErrCheckpointNotFound;
// unreadable JSON or a missing required key yields core.ErrMalformedCheckpoint.
func Load(path string) (*core.Checkpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %w", core.ErrCheckpointNotFound, err)
		}
		return nil, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", core.ErrMalformedCheckpoint, path, err)
	}
	for _, key := range requiredKeys {
		if _, ok := fields[key]; !ok {
			return nil, fmt.Errorf("%w: %s: missing %q", core.ErrMalformedCheckpoint, path, key)
		}
	}

	var cp core.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", core.ErrMalformedCheckpoint, path, err)
	}
	return &cp, nil
}

// LoadOrCreate loads the checkpoint at path if it belongs to the run described
// by p, and otherwise starts fresh. resumed reports whether a saved checkpoint
// is being continued. Malformed files are surfaced rather than overwritten.
func LoadOrCreate(path string, p Params, logger *slog.Logger) (cp *core.Checkpoint, resumed bool, err error) {
	if logger == nil {
		logger = slog.Default()
	}

	cp, err = Load(path)
	switch {
	case errors.Is(err, core.ErrCheckpointNotFound):
		logger.Info("no checkpoint found, starting fresh", "path", path)
		return CreateInitial(p), false, nil
	case err != nil:
		return nil, false, err
	case !Validate(cp, p):
		logger.Warn("checkpoint belongs to a different run, starting fresh",
			"path", path,
			"checkpoint_strategy", cp.Strategy,
			"checkpoint_dump_file", cp.DumpFile,
			"checkpoint_dump_date", cp.DumpDate)
		return CreateInitial(p), false, nil
	}

	logger.Info("resuming from checkpoint",
		"path", path,
		"last_article_id", cp.LastArticleID,
		"articles_processed", cp.ArticlesProcessed,
		"completed_blocks", len(cp.CompletedBlockOffsets))
	return cp, true, nil
}
