package app

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"adsconsole/internal/content"
	"adsconsole/internal/domain"
	"adsconsole/internal/editor"
	"adsconsole/internal/prompt"
)

// ─────────────────────────────────────────────────────────────
// Blocks
// ─────────────────────────────────────────────────────────────

// Add appends an empty block to zone.
func (c *Console) Add(zone domain.Zone) (BlockView, error) {
	if err := c.ready(); err != nil {
		return BlockView{}, err
	}
	var b domain.Block
	err := c.editor.Do(func(st *editor.State) error {
		var err error
		b, err = st.Add(zone)
		return err
	})
	if err != nil {
		return BlockView{}, err
	}
	return BlockView{Key: b.Identity.Key(), Zone: zone, Order: b.Order}, nil
}

// QuickAdd asks for the zone and appends a block there.
func (c *Console) QuickAdd(ctx context.Context) (BlockView, bool, error) {
	if err := c.ready(); err != nil {
		return BlockView{}, false, err
	}
	answer, ok := c.ask(ctx, "Add Ad", "Enter section (top/middle/bottom):")
	if !ok {
		return BlockView{}, false, nil
	}
	zone, err := domain.ParseZone(answer)
	if err != nil {
		c.notify(ctx, "Invalid Section", "Please enter: top, middle, or bottom")
		return BlockView{}, false, err
	}
	b, err := c.Add(zone)
	return b, err == nil, err
}

// Remove drops a block from the editor only. Removing an unknown block is a
// no-op.
func (c *Console) Remove(zone domain.Zone, key string) error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.editor.Do(func(st *editor.State) error {
		st.Remove(zone, domain.IdentityFromKey(key))
		return nil
	})
}

// Delete removes a block for good: persisted blocks are deleted from the
// repository after confirmation.
func (c *Console) Delete(ctx context.Context, zone domain.Zone, key string) error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.sync.Delete(ctx, zone, domain.IdentityFromKey(key))
}

// Reorder moves the block at from to to within zone.
func (c *Console) Reorder(zone domain.Zone, from, to int) error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.editor.Do(func(st *editor.State) error {
		return st.Store.Reorder(zone, from, to)
	})
}

// SetContent replaces a block's content wholesale.
func (c *Console) SetContent(zone domain.Zone, key, html string) error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.editor.Do(func(st *editor.State) error {
		return st.SetContent(zone, domain.IdentityFromKey(key), html)
	})
}

// Select places the selection inside a block. Paths address nodes by child
// indexes from the block root; a nil end collapses the range onto start.
func (c *Console) Select(key string, start content.Path, startOffset int, end content.Path, endOffset int) error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.editor.Do(func(st *editor.State) error {
		r, err := st.Surfaces.RangeAt(key, start, startOffset, end, endOffset)
		if err != nil {
			return err
		}
		return st.Surfaces.Select(r)
	})
}

// Blur drops the current selection, as when focus leaves the editor.
func (c *Console) Blur() {
	_ = c.editor.Do(func(st *editor.State) error {
		st.Surfaces.ClearSelection()
		return nil
	})
}

// Pick marks the image at path as the explicit annotation target of its block.
func (c *Console) Pick(key string, path content.Path) error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.editor.Do(func(st *editor.State) error {
		sf, ok := st.Surfaces.Get(key)
		if !ok {
			return unknownBlock("pick image", key)
		}
		n, ok := sf.Doc.Resolve(path)
		if !ok {
			return domain.Validation("pick image", fmt.Errorf("no node at path %v", path))
		}
		if err := st.Engine.Pick(key, sf.Doc, n); err != nil {
			return err
		}
		st.Surfaces.Focus(key)
		return nil
	})
}

// ─────────────────────────────────────────────────────────────
// Persistence
// ─────────────────────────────────────────────────────────────

// Save persists one zone.
func (c *Console) Save(ctx context.Context, zone domain.Zone) error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.sync.Save(ctx, zone)
}

// SaveAll confirms once, then saves every zone in turn.
func (c *Console) SaveAll(ctx context.Context) error {
	if err := c.ready(); err != nil {
		return err
	}
	out := c.prompts.Ask(ctx, prompt.Request{
		Kind:    prompt.KindConfirm,
		Title:   "Save All",
		Message: "Save all sections?",
	})
	if !out.Confirmed() {
		return fmt.Errorf("save all: %w", domain.ErrAborted)
	}
	var errs error
	for _, z := range domain.Zones() {
		errs = multierr.Append(errs, c.sync.Save(ctx, z))
	}
	return errs
}

// Saving reports whether a save is in flight.
func (c *Console) Saving() bool { return c.sync.Saving() }
