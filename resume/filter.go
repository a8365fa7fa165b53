// Package resume decides which text units a resumed sequential run must skip.
package resume

import (
	"fmt"

	"github.com/poiesic/wikistream/core"
)

// State is the position of the stream relative to the resume anchor.
type State int

const (
	// NotFound skips everything until the anchor article appears.
	NotFound State = iota
	// SkippingAnchor skips the remaining units of the anchor article.
	SkippingAnchor
	// PastAnchor admits every unit.
	PastAnchor
)

func (s State) String() string {
	switch s {
	case NotFound:
		return "not-found"
	case SkippingAnchor:
		return "skipping-anchor"
	case PastAnchor:
		return "past-anchor"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Filter admits units that come after the anchor article. The anchor is the
// last article a previous run accounted for; it is skipped entirely.
type Filter struct {
	anchor string
	state  State
}

// NewFilter creates a filter anchored at lastArticleID.
// core.StartOfDump admits everything from the first unit.
func NewFilter(lastArticleID string) *Filter {
	f := &Filter{anchor: lastArticleID}
	if lastArticleID == core.StartOfDump || lastArticleID == "" {
		f.state = PastAnchor
	}
	return f
}

// Admit reports whether a unit of articleID should be delivered.
func (f *Filter) Admit(articleID string) bool {
	switch f.state {
	case NotFound:
		if articleID == f.anchor {
			f.state = SkippingAnchor
		}
		return false
	case SkippingAnchor:
		if articleID == f.anchor {
			return false
		}
		f.state = PastAnchor
		return true
	default:
		return true
	}
}

// Finish must be called when the stream is exhausted. It fails with
// core.ErrAnchorNotFound if the anchor never appeared.
func (f *Filter) Finish() error {
	if f.state == NotFound {
		return fmt.Errorf("%w: article %s", core.ErrAnchorNotFound, f.anchor)
	}
	return nil
}

// State returns the current state.
func (f *Filter) State() State {
	return f.state
}

// Anchor returns the article ID the filter resumes after.
func (f *Filter) Anchor() string {
	return f.anchor
}
