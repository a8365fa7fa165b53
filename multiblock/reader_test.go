package multiblock

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/wikistream/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeBlocks(n int) []core.Block {
	blocks := make([]core.Block, n)
	for i := range blocks {
		blocks[i] = core.Block{ByteOffset: int64(i * 100), EndOffset: int64(i*100 + 99), ArticleCount: 1}
	}
	blocks[n-1].EndOffset = -1
	return blocks
}

func unitsFor(b core.Block, n int) []core.TextUnit {
	units := make([]core.TextUnit, n)
	for i := range units {
		units[i] = core.TextUnit{ArticleID: fmt.Sprint(b.ByteOffset), Position: i, Content: "x"}
	}
	return units
}

func newReader(t *testing.T, n int, work WorkFunc) *Reader {
	t.Helper()
	r, err := NewReader(n, work)
	require.NoError(t, err)
	t.Cleanup(r.Release)
	return r
}

func TestNewReader(t *testing.T) {
	_, err := NewReader(2, nil)
	assert.ErrorIs(t, err, ErrWorkRequired)

	r, err := NewReader(0, func(context.Context, core.Block) ([]core.TextUnit, error) { return nil, nil })
	require.NoError(t, err)
	defer r.Release()
	assert.Greater(t, r.Concurrency(), 0)
}

func TestReader_PreservesBlockOrder(t *testing.T) {
	blocks := makeBlocks(20)
	r := newReader(t, 4, func(ctx context.Context, b core.Block) ([]core.TextUnit, error) {
		time.Sleep(time.Duration(rand.IntN(5)) * time.Millisecond)
		return unitsFor(b, 3), nil
	})

	var got []core.TextUnit
	var completed []int64
	err := r.ForEach(context.Background(), blocks,
		func(u core.TextUnit) error {
			got = append(got, u)
			return nil
		},
		func(b core.Block) error {
			completed = append(completed, b.ByteOffset)
			return nil
		})
	require.NoError(t, err)

	var want []core.TextUnit
	var wantCompleted []int64
	for _, b := range blocks {
		want = append(want, unitsFor(b, 3)...)
		wantCompleted = append(wantCompleted, b.ByteOffset)
	}
	assert.Equal(t, want, got)
	assert.Equal(t, wantCompleted, completed)
}

func TestReader_DoneFollowsUnitsAndCoversEmptyBlocks(t *testing.T) {
	blocks := makeBlocks(4)
	r := newReader(t, 2, func(ctx context.Context, b core.Block) ([]core.TextUnit, error) {
		if b.ByteOffset == 100 {
			return nil, nil
		}
		return unitsFor(b, 2), nil
	})

	var events []string
	err := r.ForEach(context.Background(), blocks,
		func(u core.TextUnit) error {
			events = append(events, "unit "+u.ArticleID)
			return nil
		},
		func(b core.Block) error {
			events = append(events, fmt.Sprintf("done %d", b.ByteOffset))
			return nil
		})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"unit 0", "unit 0", "done 0",
		"done 100",
		"unit 200", "unit 200", "done 200",
		"unit 300", "unit 300", "done 300",
	}, events)
}

func TestReader_RollingWindow(t *testing.T) {
	blocks := []core.Block{
		{ByteOffset: 0, EndOffset: 99, ArticleCount: 1},
		{ByteOffset: 100, EndOffset: 199, ArticleCount: 1},
		{ByteOffset: 200, EndOffset: -1, ArticleCount: 1},
	}
	gate := make(chan struct{})
	thirdStarted := make(chan struct{})
	var firstSeen atomic.Bool

	r := newReader(t, 2, func(ctx context.Context, b core.Block) ([]core.TextUnit, error) {
		switch b.ByteOffset {
		case 100:
			<-gate
		case 200:
			close(thirdStarted)
		}
		return unitsFor(b, 1), nil
	})

	errCh := make(chan error, 1)
	var order []string
	go func() {
		errCh <- r.ForEach(context.Background(), blocks, func(u core.TextUnit) error {
			if u.ArticleID == "0" {
				firstSeen.Store(true)
			}
			order = append(order, u.ArticleID)
			return nil
		}, nil)
	}()

	select {
	case <-thirdStarted:
	case <-time.After(5 * time.Second):
		t.Fatal("third block was not launched while the second was blocked")
	}
	assert.Eventually(t, firstSeen.Load, 5*time.Second, time.Millisecond,
		"first block's units should be emitted before the gate opens")

	close(gate)
	require.NoError(t, <-errCh)
	assert.Equal(t, []string{"0", "100", "200"}, order)
}

func TestReader_BoundsConcurrency(t *testing.T) {
	var running, peak atomic.Int32
	r := newReader(t, 3, func(ctx context.Context, b core.Block) ([]core.TextUnit, error) {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		running.Add(-1)
		return nil, nil
	})

	err := r.ForEach(context.Background(), makeBlocks(15), func(core.TextUnit) error { return nil }, nil)
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestReader_WorkError(t *testing.T) {
	r := newReader(t, 2, func(ctx context.Context, b core.Block) ([]core.TextUnit, error) {
		if b.ByteOffset == 200 {
			return nil, assert.AnError
		}
		return unitsFor(b, 1), nil
	})

	var done []int64
	err := r.ForEach(context.Background(), makeBlocks(5), func(core.TextUnit) error { return nil },
		func(b core.Block) error {
			done = append(done, b.ByteOffset)
			return nil
		})
	require.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "offset 200")
	assert.Equal(t, []int64{0, 100}, done)
}

func TestReader_WorkPanic(t *testing.T) {
	r := newReader(t, 2, func(ctx context.Context, b core.Block) ([]core.TextUnit, error) {
		if b.ByteOffset == 100 {
			panic("boom")
		}
		return nil, nil
	})

	err := r.ForEach(context.Background(), makeBlocks(3), func(core.TextUnit) error { return nil }, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")
}

func TestReader_YieldErrorStops(t *testing.T) {
	var calls atomic.Int32
	r := newReader(t, 2, func(ctx context.Context, b core.Block) ([]core.TextUnit, error) {
		calls.Add(1)
		return unitsFor(b, 2), nil
	})

	yields := 0
	err := r.ForEach(context.Background(), makeBlocks(10), func(core.TextUnit) error {
		yields++
		return assert.AnError
	}, nil)
	require.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 1, yields)
	assert.LessOrEqual(t, calls.Load(), int32(3), "no blocks beyond the window should be scheduled")
}

func TestReader_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := newReader(t, 2, func(ctx context.Context, b core.Block) ([]core.TextUnit, error) {
		if b.ByteOffset == 100 {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return unitsFor(b, 1), nil
	})

	err := r.ForEach(ctx, makeBlocks(3), func(core.TextUnit) error {
		cancel()
		return nil
	}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReader_NoBlocks(t *testing.T) {
	r := newReader(t, 2, func(context.Context, core.Block) ([]core.TextUnit, error) {
		t.Fatal("work should not run")
		return nil, nil
	})
	assert.NoError(t, r.ForEach(context.Background(), nil, func(core.TextUnit) error { return nil }, nil))
}
