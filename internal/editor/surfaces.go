package editor

import (
	"fmt"

	"adsconsole/internal/content"
	"adsconsole/internal/domain"
	"adsconsole/internal/selection"
)

// Surface is the mounted, live-editable document of one block.
type Surface struct {
	Key        string
	Zone       domain.Zone
	Generation uint64
	Doc        *content.Document
}

// Surfaces is the registry of mounted surfaces and the current selection in
// them. It implements selection.Handle.
type Surfaces struct {
	byKey   map[string]*Surface
	gen     uint64
	current *selection.Range
	focused string
}

func NewSurfaces() *Surfaces {
	return &Surfaces{byKey: make(map[string]*Surface)}
}

// Mount parses html into a fresh surface for key. Mounting over an existing
// surface replaces it wholesale under a new generation.
func (s *Surfaces) Mount(zone domain.Zone, key, html string) (*Surface, error) {
	doc, err := content.Parse(html)
	if err != nil {
		return nil, domain.Validation("mount surface", err)
	}
	s.gen++
	sf := &Surface{Key: key, Zone: zone, Generation: s.gen, Doc: doc}
	s.byKey[key] = sf
	return sf, nil
}

// Unmount drops the surface for key together with any selection inside it.
func (s *Surfaces) Unmount(key string) {
	delete(s.byKey, key)
	if s.current != nil && s.current.Surface == key {
		s.current = nil
	}
	if s.focused == key {
		s.focused = ""
	}
}

// Reset unmounts everything.
func (s *Surfaces) Reset() {
	clear(s.byKey)
	s.current = nil
	s.focused = ""
}

// Remount replaces every surface of zone with fresh ones built from blocks.
func (s *Surfaces) Remount(zone domain.Zone, blocks []domain.Block) error {
	for key, sf := range s.byKey {
		if sf.Zone == zone {
			s.Unmount(key)
		}
	}
	for _, b := range blocks {
		if _, err := s.Mount(zone, b.Identity.Key(), b.Content); err != nil {
			return fmt.Errorf("remount %s: %w", b.Identity.Key(), err)
		}
	}
	return nil
}

func (s *Surfaces) Get(key string) (*Surface, bool) {
	sf, ok := s.byKey[key]
	return sf, ok
}

// Live renders the current document of a mounted surface.
func (s *Surfaces) Live(key string) (string, bool) {
	sf, ok := s.byKey[key]
	if !ok {
		return "", false
	}
	return sf.Doc.Render(), true
}

// Focus makes key the active surface. It fails silently for unmounted keys.
func (s *Surfaces) Focus(key string) bool {
	if _, ok := s.byKey[key]; !ok {
		return false
	}
	s.focused = key
	return true
}

func (s *Surfaces) Focused() string { return s.focused }

// Selection implements selection.Handle. A range that went stale since it
// was set is not reported.
func (s *Surfaces) Selection() (selection.Range, bool) {
	if s.current == nil || s.validate(*s.current) != nil {
		return selection.Range{}, false
	}
	return *s.current, true
}

// Select implements selection.Handle: the range becomes current and its
// surface focused.
func (s *Surfaces) Select(r selection.Range) error {
	if err := s.validate(r); err != nil {
		return err
	}
	s.current = &r
	s.focused = r.Surface
	return nil
}

// ClearSelection drops the current range, as when the surface loses focus.
func (s *Surfaces) ClearSelection() { s.current = nil }

// RangeAt builds a range over the nodes addressed by paths in the surface's
// current generation. A nil end path collapses the range onto start.
func (s *Surfaces) RangeAt(key string, start content.Path, startOffset int, end content.Path, endOffset int) (selection.Range, error) {
	sf, ok := s.byKey[key]
	if !ok {
		return selection.Range{}, domain.Validation("select", fmt.Errorf("%w: %s", domain.ErrUnknownBlock, key))
	}
	startNode, ok := sf.Doc.Resolve(start)
	if !ok {
		return selection.Range{}, domain.Validation("select", fmt.Errorf("no node at path %v", start))
	}
	endNode := startNode
	if end != nil {
		if endNode, ok = sf.Doc.Resolve(end); !ok {
			return selection.Range{}, domain.Validation("select", fmt.Errorf("no node at path %v", end))
		}
	} else {
		endOffset = startOffset
	}
	return selection.Range{
		Surface:    key,
		Generation: sf.Generation,
		Start:      selection.Point{Node: startNode, Offset: startOffset},
		End:        selection.Point{Node: endNode, Offset: endOffset},
	}, nil
}

func (s *Surfaces) validate(r selection.Range) error {
	sf, ok := s.byKey[r.Surface]
	if !ok || sf.Generation != r.Generation {
		return domain.Stale("select", selection.ErrStale)
	}
	for _, p := range []selection.Point{r.Start, r.End} {
		if p.Node != nil && !sf.Doc.Contains(p.Node) {
			return domain.Stale("select", selection.ErrStale)
		}
	}
	return nil
}
