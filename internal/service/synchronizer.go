package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"adsconsole/internal/content"
	"adsconsole/internal/domain"
	"adsconsole/internal/editor"
	"adsconsole/internal/prompt"
)

// ─────────────────────────────────────────────────────────────
// Synchronizer: moves zones between the editor and the ads repository
// ─────────────────────────────────────────────────────────────

// Synchronizer loads, saves and deletes ads for the active site. Network
// calls run outside the editor lock; results are committed only while the
// store is still on the epoch they were started in.
type Synchronizer struct {
	editor  *editor.Editor
	repo    domain.AdsRepository
	prompts *prompt.Queue
	emitter EventEmitter
	log     *zap.Logger
	guard   runningGuard
}

// NewSynchronizer creates a Synchronizer.
func NewSynchronizer(ed *editor.Editor, repo domain.AdsRepository, prompts *prompt.Queue, emitter EventEmitter, log *zap.Logger) *Synchronizer {
	if emitter == nil {
		emitter = NopEmitter{}
	}
	return &Synchronizer{
		editor:  ed,
		repo:    repo,
		prompts: prompts,
		emitter: emitter,
		log:     log.Named("sync"),
	}
}

// ZoneEvent identifies a zone whose collection changed.
type ZoneEvent struct {
	Site domain.Site `json:"site"`
	Zone domain.Zone `json:"zone"`
}

// SavingEvent reports the save flag flipping.
type SavingEvent struct {
	Zone   domain.Zone `json:"zone"`
	Saving bool        `json:"saving"`
}

// Saving reports whether a save is in flight.
func (s *Synchronizer) Saving() bool {
	return s.guard.Running(guardSave)
}

// Wait blocks until in-flight saves and refreshes finish or ctx is done.
func (s *Synchronizer) Wait(ctx context.Context) {
	s.guard.WaitAll(ctx)
}

// ── Load ───────────────────────────────────────────────────

// SwitchSite discards the in-memory blocks and loads site.
func (s *Synchronizer) SwitchSite(ctx context.Context, site domain.Site) error {
	if site == "" {
		return domain.Validation("switch site", domain.ErrNoSite)
	}
	_ = s.editor.Do(func(st *editor.State) error {
		st.SetSite(site)
		return nil
	})
	s.log.Debug("site switched", zap.String("site", string(site)))
	return s.Load(ctx)
}

// Load replaces every zone of the active site with the repository's view.
func (s *Synchronizer) Load(ctx context.Context) error {
	site, epoch, err := s.active()
	if err != nil {
		return err
	}

	blocks, err := s.repo.List(ctx, site)
	if err != nil {
		s.log.Warn("load failed", zap.String("site", string(site)), zap.Error(err))
		s.notify(ctx, "Error", "Failed to load ads.")
		return domain.Transport("load ads", err)
	}

	byZone := groupByZone(blocks)
	stale := false
	err = s.editor.Do(func(st *editor.State) error {
		if st.Store.Epoch() != epoch {
			stale = true
			return nil
		}
		var errs error
		for _, z := range domain.Zones() {
			errs = errors.Join(errs, st.ReplaceZone(z, byZone[z]))
		}
		st.Store.MarkLoaded()
		return errs
	})
	if stale {
		s.log.Debug("discarding stale load", zap.String("site", string(site)))
		return nil
	}
	if err != nil {
		return err
	}
	s.log.Info("ads loaded", zap.String("site", string(site)), zap.Int("count", len(blocks)))
	s.emitter.Emit(ctx, EventAdsLoaded, ZoneEvent{Site: site})
	return nil
}

// ── Save ───────────────────────────────────────────────────

// Save persists one zone. Only one save runs at a time across all zones; a
// concurrent call returns ErrSaveInProgress without side effects.
func (s *Synchronizer) Save(ctx context.Context, zone domain.Zone) error {
	if !s.guard.TryLock(guardSave) {
		return domain.Validation("save "+string(zone), domain.ErrSaveInProgress)
	}
	defer s.guard.Unlock(guardSave)

	s.emitter.Emit(ctx, EventSaving, SavingEvent{Zone: zone, Saving: true})
	defer s.emitter.Emit(ctx, EventSaving, SavingEvent{Zone: zone, Saving: false})

	var (
		site   domain.Site
		epoch  uint64
		blocks []domain.Block
	)
	err := s.editor.Do(func(st *editor.State) error {
		site, epoch = st.Store.Site(), st.Store.Epoch()
		blocks = st.Snapshot(zone)
		return nil
	})
	if err != nil {
		return err
	}
	if site == "" {
		return domain.Validation("save "+string(zone), domain.ErrNoSite)
	}

	allEmpty := true
	for i := range blocks {
		clean, err := content.Sanitize(blocks[i].Content)
		if err != nil {
			s.notify(ctx, "Error", "Error saving ads.")
			return domain.Validation("save "+string(zone), err)
		}
		blocks[i].Content = clean
		blocks[i].Order = i
		blocks[i].Site = site
		if !content.IsEmpty(clean) {
			allEmpty = false
		}
	}

	if len(blocks) > 0 && allEmpty {
		out := s.prompts.Ask(ctx, prompt.Request{
			Kind:    prompt.KindConfirm,
			Title:   "Empty Ads",
			Message: fmt.Sprintf("%s ads are empty. Save anyway?", zone),
		})
		if !out.Confirmed() {
			s.log.Debug("empty save declined", zap.String("zone", string(zone)), zap.Stringer("outcome", out.Status))
			return fmt.Errorf("save %s: %w", zone, domain.ErrAborted)
		}
	}

	saved, err := s.repo.UpsertBatch(ctx, site, zone, blocks)
	if err != nil {
		s.log.Warn("save failed", zap.String("site", string(site)), zap.String("zone", string(zone)), zap.Error(err))
		s.notify(ctx, "Error", "Error saving ads.")
		return domain.Transport("save "+string(zone), err)
	}

	committed, err := s.commitZone(epoch, zone, filterZone(saved, zone))
	if err != nil {
		return err
	}
	if !committed {
		s.log.Debug("discarding stale save response", zap.String("site", string(site)), zap.String("zone", string(zone)))
		return nil
	}

	s.log.Info("zone saved", zap.String("site", string(site)), zap.String("zone", string(zone)), zap.Int("count", len(saved)))
	s.emitter.Emit(ctx, EventAdsChanged, ZoneEvent{Site: site, Zone: zone})
	s.notify(ctx, "Success", zone.Title()+" ads saved successfully!")
	return nil
}

// ── Delete ─────────────────────────────────────────────────

// Delete removes a block. Ephemeral blocks are dropped locally; persisted
// ones are deleted from the repository after the user confirms.
func (s *Synchronizer) Delete(ctx context.Context, zone domain.Zone, id domain.Identity) error {
	if !id.IsPersisted() {
		return s.editor.Do(func(st *editor.State) error {
			st.Remove(zone, id)
			return nil
		})
	}

	out := s.prompts.Ask(ctx, prompt.Request{
		Kind:    prompt.KindConfirm,
		Title:   "Delete Ad",
		Message: "Delete this ad permanently from database?",
	})
	if !out.Confirmed() {
		return fmt.Errorf("delete %s: %w", id.Key(), domain.ErrAborted)
	}

	site, epoch, err := s.active()
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id.ID()); err != nil {
		s.log.Warn("delete failed", zap.String("id", id.ID()), zap.Error(err))
		s.notify(ctx, "Error", "Failed to delete ad.")
		return domain.Transport("delete "+id.ID(), err)
	}

	_ = s.editor.Do(func(st *editor.State) error {
		if st.Store.Epoch() == epoch {
			st.Remove(zone, id)
		}
		return nil
	})
	s.log.Info("ad deleted", zap.String("id", id.ID()))
	s.emitter.Emit(ctx, EventAdsChanged, ZoneEvent{Site: site, Zone: zone})
	s.notify(ctx, "Success", "Ad deleted successfully!")
	return nil
}

// ── Refresh ────────────────────────────────────────────────

// Refresh reloads the zones of the active site that have no local edits. It
// is skipped while a save is running.
func (s *Synchronizer) Refresh(ctx context.Context) error {
	if s.Saving() || !s.guard.TryLock(guardRefresh) {
		return nil
	}
	defer s.guard.Unlock(guardRefresh)

	site, epoch, err := s.active()
	if err != nil {
		return nil
	}
	blocks, err := s.repo.List(ctx, site)
	if err != nil {
		return domain.Transport("refresh ads", err)
	}

	byZone := groupByZone(blocks)
	var refreshed []domain.Zone
	err = s.editor.Do(func(st *editor.State) error {
		if st.Store.Epoch() != epoch || !st.Store.Loaded() {
			return nil
		}
		for _, z := range domain.Zones() {
			if st.Store.Dirty(z) || sameBlocks(st.Store.Blocks(z), byZone[z]) {
				continue
			}
			if err := st.ReplaceZone(z, byZone[z]); err != nil {
				return err
			}
			refreshed = append(refreshed, z)
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, z := range refreshed {
		s.log.Debug("zone refreshed", zap.String("site", string(site)), zap.String("zone", string(z)))
		s.emitter.Emit(ctx, EventAdsChanged, ZoneEvent{Site: site, Zone: z})
	}
	return nil
}

// ── helpers ────────────────────────────────────────────────

func (s *Synchronizer) active() (domain.Site, uint64, error) {
	var (
		site  domain.Site
		epoch uint64
	)
	_ = s.editor.Do(func(st *editor.State) error {
		site, epoch = st.Store.Site(), st.Store.Epoch()
		return nil
	})
	if site == "" {
		return "", 0, domain.Validation("active site", domain.ErrNoSite)
	}
	return site, epoch, nil
}

func (s *Synchronizer) commitZone(epoch uint64, zone domain.Zone, blocks []domain.Block) (bool, error) {
	committed := false
	err := s.editor.Do(func(st *editor.State) error {
		if st.Store.Epoch() != epoch {
			return nil
		}
		committed = true
		return st.ReplaceZone(zone, blocks)
	})
	return committed, err
}

// notify posts a message prompt without waiting for it to be acknowledged.
func (s *Synchronizer) notify(ctx context.Context, title, message string) {
	s.prompts.Open(ctx, prompt.Request{Kind: prompt.KindMessage, Title: title, Message: message})
}

func groupByZone(blocks []domain.Block) map[domain.Zone][]domain.Block {
	out := make(map[domain.Zone][]domain.Block, 3)
	for _, b := range blocks {
		out[b.Zone] = append(out[b.Zone], b)
	}
	return out
}

func filterZone(blocks []domain.Block, zone domain.Zone) []domain.Block {
	out := make([]domain.Block, 0, len(blocks))
	for _, b := range blocks {
		if b.Zone == zone || b.Zone == "" {
			out = append(out, b)
		}
	}
	return out
}

func sameBlocks(have, fetched []domain.Block) bool {
	if len(have) != len(fetched) {
		return false
	}
	for i := range have {
		f := fetched[i]
		if have[i].Identity != f.Identity || have[i].Content != f.Content || have[i].Order != f.Order {
			return false
		}
	}
	return true
}
