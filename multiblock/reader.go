package multiblock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/wikistream/core"
)

// ErrWorkRequired is returned by NewReader when no work function is given.
var ErrWorkRequired = errors.New("block work function is required")

// WorkFunc decodes one block into its text units.
type WorkFunc func(ctx context.Context, block core.Block) ([]core.TextUnit, error)

// Option configures a Reader.
type Option func(*Reader) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reader) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// Reader runs a WorkFunc over blocks on a bounded worker pool.
type Reader struct {
	concurrency int
	work        WorkFunc
	pool        *ants.Pool
	logger      *slog.Logger
}

type result struct {
	units []core.TextUnit
	err   error
}

// NewReader creates a Reader running at most concurrency blocks at once.
// A concurrency below 1 defaults to runtime.NumCPU().
func NewReader(concurrency int, work WorkFunc, opts ...Option) (*Reader, error) {
	if work == nil {
		return nil, ErrWorkRequired
	}
	if concurrency < 1 {
		concurrency = runtime.NumCPU()
	}

	r := &Reader{
		concurrency: concurrency,
		work:        work,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	pool, err := ants.NewPool(concurrency)
	if err != nil {
		return nil, err
	}
	r.pool = pool
	return r, nil
}

// Concurrency returns the in-flight block limit.
func (r *Reader) Concurrency() int {
	return r.concurrency
}

// Release releases the worker pool. The Reader must not be used afterwards.
func (r *Reader) Release() {
	r.pool.Release()
}

// ForEach processes blocks and calls yield for every unit in block order,
// then done once per block after its last unit, including blocks without units.
//
// An error from work, yield or done stops scheduling. Blocks already in flight
// run to completion before ForEach returns.
func (r *Reader) ForEach(ctx context.Context, blocks []core.Block, yield func(core.TextUnit) error, done func(core.Block) error) error {
	if len(blocks) == 0 {
		return nil
	}

	var wg sync.WaitGroup
	defer wg.Wait()

	inFlight := make(map[int]chan result, r.concurrency)
	launch := func(i int) error {
		ch := make(chan result, 1)
		block := blocks[i]
		wg.Add(1)
		err := r.pool.Submit(func() {
			defer wg.Done()
			defer func() {
				if p := recover(); p != nil {
					ch <- result{err: fmt.Errorf("block at offset %d panicked: %v", block.ByteOffset, p)}
				}
			}()
			units, err := r.work(ctx, block)
			ch <- result{units: units, err: err}
		})
		if err != nil {
			wg.Done()
			return fmt.Errorf("submit block at offset %d: %w", block.ByteOffset, err)
		}
		inFlight[i] = ch
		return nil
	}

	for i := range min(r.concurrency, len(blocks)) {
		if err := launch(i); err != nil {
			return err
		}
	}

	for i, block := range blocks {
		ch, ok := inFlight[i]
		if !ok {
			return fmt.Errorf("%w: block %d at offset %d", core.ErrMissingBlockResult, i, block.ByteOffset)
		}

		var res result
		select {
		case res = <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
		delete(inFlight, i)

		if next := i + r.concurrency; next < len(blocks) && res.err == nil {
			if err := launch(next); err != nil {
				return err
			}
		}
		if res.err != nil {
			return fmt.Errorf("block at offset %d: %w", block.ByteOffset, res.err)
		}

		r.logger.Debug("block decoded", "offset", block.ByteOffset, "units", len(res.units))
		for _, u := range res.units {
			if err := yield(u); err != nil {
				return err
			}
		}
		if done != nil {
			if err := done(block); err != nil {
				return err
			}
		}
	}
	return nil
}
