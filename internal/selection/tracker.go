// Package selection keeps the user's editing point alive across prompts.
package selection

import (
	"errors"

	"golang.org/x/net/html"

	"adsconsole/internal/content"
)

// ErrStale is returned by a Handle asked to select a range whose surface was
// unmounted or regenerated, or whose nodes were detached.
var ErrStale = errors.New("selection is stale")

// Point is one boundary of a range.
type Point = content.Position

// Range is a selection inside one content surface. Generation pins the
// surface revision the nodes belong to.
type Range struct {
	Surface    string
	Generation uint64
	Start      Point
	End        Point
}

// Collapsed reports whether the range is a caret.
func (r Range) Collapsed() bool {
	return r.Start.Node == r.End.Node && r.Start.Offset == r.End.Offset
}

// CommonAncestor returns the deepest node containing both boundaries, or nil
// when they live in different trees.
func (r Range) CommonAncestor() *html.Node {
	if r.Start.Node == nil || r.End.Node == nil {
		return nil
	}
	seen := make(map[*html.Node]struct{})
	for n := r.Start.Node; n != nil; n = n.Parent {
		seen[n] = struct{}{}
	}
	for n := r.End.Node; n != nil; n = n.Parent {
		if _, ok := seen[n]; ok {
			return n
		}
	}
	return nil
}

// Handle is the opaque access to the live selection of the editing surfaces.
type Handle interface {
	// Selection returns the current range, if any surface holds one.
	Selection() (Range, bool)
	// Select makes r the current range and focuses its surface.
	Select(r Range) error
}

// Tracker snapshots the selection before a prompt steals it.
type Tracker struct {
	handle Handle
	saved  *Range
}

func NewTracker(h Handle) *Tracker {
	return &Tracker{handle: h}
}

// Capture snapshots the current range and reports whether one existed.
// Without a current range the previous snapshot is kept.
func (t *Tracker) Capture() bool {
	r, ok := t.handle.Selection()
	if !ok {
		return false
	}
	t.saved = &r
	return true
}

// Restore reapplies the snapshot. A stale snapshot is dropped and Restore
// reports false without touching the handle's selection.
func (t *Tracker) Restore() bool {
	if t.saved == nil {
		return false
	}
	if err := t.handle.Select(*t.saved); err != nil {
		t.saved = nil
		return false
	}
	return true
}

// Saved returns the snapshot without applying it.
func (t *Tracker) Saved() (Range, bool) {
	if t.saved == nil {
		return Range{}, false
	}
	return *t.saved, true
}

func (t *Tracker) Clear() { t.saved = nil }
