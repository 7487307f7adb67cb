package editor

import (
	"fmt"
	"sync"

	"adsconsole/internal/annotate"
	"adsconsole/internal/domain"
	"adsconsole/internal/selection"
)

// State is everything an editing session mutates. It is only reachable
// inside Editor.Do.
type State struct {
	Store    *Store
	Surfaces *Surfaces
	Tracker  *selection.Tracker
	Engine   *annotate.Engine
}

// Editor serializes access to the editing state with a single lock. Callers
// must not block on prompts or the network inside Do.
type Editor struct {
	mu    sync.Mutex
	state *State
}

func New() *Editor {
	surfaces := NewSurfaces()
	return &Editor{state: &State{
		Store:    NewStore(),
		Surfaces: surfaces,
		Tracker:  selection.NewTracker(surfaces),
		Engine:   annotate.NewEngine(),
	}}
}

// Do runs fn with exclusive access to the state.
func (e *Editor) Do(fn func(*State) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.state)
}

// Add appends a block to zone and mounts its surface.
func (s *State) Add(zone domain.Zone) (domain.Block, error) {
	b := s.Store.Add(zone)
	if _, err := s.Surfaces.Mount(zone, b.Identity.Key(), b.Content); err != nil {
		s.Store.Remove(zone, b.Identity)
		return domain.Block{}, err
	}
	return b, nil
}

// Remove drops a block locally and unmounts its surface.
func (s *State) Remove(zone domain.Zone, id domain.Identity) bool {
	s.Surfaces.Unmount(id.Key())
	return s.Store.Remove(zone, id)
}

// SetContent replaces a block's content wholesale. The surface is remounted,
// so selections taken inside it become stale.
func (s *State) SetContent(zone domain.Zone, id domain.Identity, html string) error {
	if _, ok := s.Store.Get(zone, id); !ok {
		return domain.Validation("set content", fmt.Errorf("%w: %s", domain.ErrUnknownBlock, id.Key()))
	}
	if _, err := s.Surfaces.Mount(zone, id.Key(), html); err != nil {
		return err
	}
	return s.Store.SetContent(zone, id, html)
}

// Commit copies the live document of a surface back into the store after an
// in-place edit.
func (s *State) Commit(zone domain.Zone, id domain.Identity) error {
	live, ok := s.Surfaces.Live(id.Key())
	if !ok {
		return nil
	}
	return s.Store.SetContent(zone, id, live)
}

// ReplaceZone installs blocks and remounts the zone's surfaces.
func (s *State) ReplaceZone(zone domain.Zone, blocks []domain.Block) error {
	s.Store.ReplaceZone(zone, blocks)
	return s.Surfaces.Remount(zone, s.Store.Blocks(zone))
}

// SetSite switches the active site and forgets every per-site editing artifact.
func (s *State) SetSite(site domain.Site) {
	s.Store.SetSite(site)
	s.Surfaces.Reset()
	s.Tracker.Clear()
	s.Engine.Forget()
}

// Snapshot returns the zone's blocks with content taken from their mounted
// surfaces where present.
func (s *State) Snapshot(zone domain.Zone) []domain.Block {
	blocks := s.Store.Blocks(zone)
	for i, b := range blocks {
		if live, ok := s.Surfaces.Live(b.Identity.Key()); ok {
			blocks[i].Content = live
		}
	}
	return blocks
}

// Target returns the annotation view of a mounted block, with the current
// selection when it lies inside that block.
func (s *State) Target(key string) (annotate.Target, error) {
	sf, ok := s.Surfaces.Get(key)
	if !ok {
		return annotate.Target{}, domain.Stale("target", fmt.Errorf("%w: %s", domain.ErrUnknownBlock, key))
	}
	t := annotate.Target{Surface: key, Doc: sf.Doc}
	if r, ok := s.Surfaces.Selection(); ok && r.Surface == key {
		t.Range = &r
	}
	return t, nil
}
