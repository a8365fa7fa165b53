package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/poiesic/wikistream/core"
)

// Sink consumes batches of text units. A batch must not be retained after
// Consume returns. A nil error means every unit of the batch was accepted.
type Sink interface {
	Consume(ctx context.Context, units []core.TextUnit) error
}

// JSONLSink writes one JSON object per unit.
type JSONLSink struct {
	mu  sync.Mutex
	enc *json.Encoder
	n   int
}

// NewJSONLSink creates a sink writing JSON Lines to w.
func NewJSONLSink(w io.Writer) *JSONLSink {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &JSONLSink{enc: enc}
}

// Consume writes the batch.
func (s *JSONLSink) Consume(ctx context.Context, units []core.TextUnit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range units {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.enc.Encode(u); err != nil {
			return fmt.Errorf("write unit %s/%d: %w", u.ArticleID, u.Position, err)
		}
		s.n++
	}
	return nil
}

// Written returns the number of units written.
func (s *JSONLSink) Written() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}

// DiscardSink accepts and drops every unit.
type DiscardSink struct{}

// Consume does nothing.
func (DiscardSink) Consume(context.Context, []core.TextUnit) error {
	return nil
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, units []core.TextUnit) error

// Consume calls f.
func (f SinkFunc) Consume(ctx context.Context, units []core.TextUnit) error {
	return f(ctx, units)
}
