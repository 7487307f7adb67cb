// Package editor owns the in-memory ad blocks of the active site, their
// mounted editing surfaces, and the lock that serializes every change to them.
package editor

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"adsconsole/internal/domain"
)

// Store holds the ordered blocks of every zone for one site. It is not safe
// for concurrent use; Editor.Do serializes access.
type Store struct {
	site   domain.Site
	loaded bool
	epoch  uint64
	seq    uint64
	zones  map[domain.Zone][]domain.Block
	dirty  map[domain.Zone]bool
}

func NewStore() *Store {
	return &Store{
		zones: make(map[domain.Zone][]domain.Block),
		dirty: make(map[domain.Zone]bool),
	}
}

func (s *Store) Site() domain.Site { return s.site }
func (s *Store) Loaded() bool      { return s.loaded }

// Epoch changes every time the site is switched. Results computed against an
// older epoch must be discarded.
func (s *Store) Epoch() uint64 { return s.epoch }

// MarkLoaded flags the store as populated for the current site.
func (s *Store) MarkLoaded() { s.loaded = true }

// Dirty reports whether the zone changed since it was last loaded or saved.
func (s *Store) Dirty(zone domain.Zone) bool { return s.dirty[zone] }

// SetSite drops every zone and starts a new epoch for site.
func (s *Store) SetSite(site domain.Site) {
	s.site = site
	s.loaded = false
	s.epoch++
	clear(s.zones)
	clear(s.dirty)
}

// Add appends an empty block with a fresh ephemeral identity.
func (s *Store) Add(zone domain.Zone) domain.Block {
	s.seq++
	b := domain.Block{
		Identity: domain.Ephemeral(domain.NewTempID(zone, s.seq, uuid.NewString()[:8])),
		Zone:     zone,
		Order:    len(s.zones[zone]),
		Site:     s.site,
	}
	s.zones[zone] = append(s.zones[zone], b)
	s.dirty[zone] = true
	return b
}

// Remove deletes the block with id from zone. Removing an absent block is a no-op.
func (s *Store) Remove(zone domain.Zone, id domain.Identity) bool {
	blocks := s.zones[zone]
	i := indexOf(blocks, id)
	if i < 0 {
		return false
	}
	s.zones[zone] = reindex(append(blocks[:i:i], blocks[i+1:]...))
	s.dirty[zone] = true
	return true
}

// Reorder moves the block at from to position to.
func (s *Store) Reorder(zone domain.Zone, from, to int) error {
	blocks := s.zones[zone]
	if from < 0 || from >= len(blocks) || to < 0 || to >= len(blocks) {
		return domain.Validation("reorder",
			fmt.Errorf("%w: move %d to %d in %s (len %d)", domain.ErrIndexOutOfRange, from, to, zone, len(blocks)))
	}
	if from == to {
		return nil
	}
	moved := blocks[from]
	rest := append(blocks[:from:from], blocks[from+1:]...)
	out := make([]domain.Block, 0, len(blocks))
	out = append(out, rest[:to]...)
	out = append(out, moved)
	out = append(out, rest[to:]...)
	s.zones[zone] = reindex(out)
	s.dirty[zone] = true
	return nil
}

// ReplaceZone installs blocks as the zone's collection: stable-sorted by
// order, duplicate identities collapsed to the first occurrence, re-indexed.
func (s *Store) ReplaceZone(zone domain.Zone, blocks []domain.Block) {
	sorted := make([]domain.Block, len(blocks))
	copy(sorted, blocks)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })

	seen := make(map[string]struct{}, len(sorted))
	out := make([]domain.Block, 0, len(sorted))
	for _, b := range sorted {
		if b.Identity.IsZero() {
			s.seq++
			b.Identity = domain.Ephemeral(domain.NewTempID(zone, s.seq, uuid.NewString()[:8]))
		}
		key := b.Identity.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		b.Zone = zone
		if b.Site == "" {
			b.Site = s.site
		}
		out = append(out, b)
	}
	s.zones[zone] = reindex(out)
	s.dirty[zone] = false
}

// SetContent replaces the stored content of one block.
func (s *Store) SetContent(zone domain.Zone, id domain.Identity, html string) error {
	blocks := s.zones[zone]
	i := indexOf(blocks, id)
	if i < 0 {
		return domain.Validation("set content", fmt.Errorf("%w: %s", domain.ErrUnknownBlock, id.Key()))
	}
	if blocks[i].Content != html {
		blocks[i].Content = html
		s.dirty[zone] = true
	}
	return nil
}

func (s *Store) Get(zone domain.Zone, id domain.Identity) (domain.Block, bool) {
	blocks := s.zones[zone]
	if i := indexOf(blocks, id); i >= 0 {
		return blocks[i], true
	}
	return domain.Block{}, false
}

// Find looks a block up by key across all zones.
func (s *Store) Find(key string) (domain.Block, bool) {
	id := domain.IdentityFromKey(key)
	for _, z := range domain.Zones() {
		if b, ok := s.Get(z, id); ok {
			return b, true
		}
	}
	return domain.Block{}, false
}

// Blocks returns a copy of the zone's collection in order.
func (s *Store) Blocks(zone domain.Zone) []domain.Block {
	out := make([]domain.Block, len(s.zones[zone]))
	copy(out, s.zones[zone])
	return out
}

func indexOf(blocks []domain.Block, id domain.Identity) int {
	if id.IsZero() {
		return -1
	}
	for i, b := range blocks {
		if b.Identity == id {
			return i
		}
	}
	return -1
}

func reindex(blocks []domain.Block) []domain.Block {
	for i := range blocks {
		blocks[i].Order = i
	}
	return blocks
}
