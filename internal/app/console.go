// Package app is the presentation-facing facade of the ad editor. Every user
// action enters through Console; flows that need an answer go through the
// prompt queue and resume at the saved editing point.
package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"adsconsole/internal/domain"
	"adsconsole/internal/editor"
	"adsconsole/internal/prompt"
	"adsconsole/internal/service"
)

// EventBlockEdited fires after an in-place edit of one block.
const EventBlockEdited = "block:edited"

// SiteOption is one selectable tenant.
type SiteOption struct {
	Label string      `json:"label" yaml:"label"`
	Value domain.Site `json:"value" yaml:"value"`
}

// Deps are the collaborators a Console is built from.
type Deps struct {
	Repo    domain.AdsRepository
	Emitter service.EventEmitter
	Gate    service.AuthGate
	Sites   []SiteOption
	Refresh string // cron spec, empty disables
	Logger  *zap.Logger
	Editor  *editor.Editor // optional, mostly for tests
	Prompts *prompt.Queue  // optional, mostly for tests
}

// Console is one editing session.
type Console struct {
	editor    *editor.Editor
	prompts   *prompt.Queue
	sync      *service.Synchronizer
	refresher *service.Refresher
	emitter   service.EventEmitter
	gate      service.AuthGate
	sitesMu   sync.RWMutex
	sites     []SiteOption
	refresh   string
	log       *zap.Logger
	open      atomic.Bool
}

func New(d Deps) *Console {
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}
	emitter := d.Emitter
	if emitter == nil {
		emitter = service.NopEmitter{}
	}
	ed := d.Editor
	if ed == nil {
		ed = editor.New()
	}
	prompts := d.Prompts
	if prompts == nil {
		prompts = prompt.NewQueue(emitter)
	}
	syncer := service.NewSynchronizer(ed, d.Repo, prompts, emitter, log)
	return &Console{
		editor:    ed,
		prompts:   prompts,
		sync:      syncer,
		refresher: service.NewRefresher(syncer, log),
		emitter:   emitter,
		gate:      d.Gate,
		sites:     d.Sites,
		refresh:   d.Refresh,
		log:       log.Named("console"),
	}
}

// Open checks the principal once and loads the first site (or site, when
// given). The console refuses every other call until Open succeeds.
func (c *Console) Open(ctx context.Context, p domain.Principal, site domain.Site) error {
	if err := c.gate.Check(p); err != nil {
		c.log.Warn("console access denied", zap.Error(err))
		return err
	}
	if sites := c.Sites(); site == "" && len(sites) > 0 {
		site = sites[0].Value
	}
	if site == "" {
		return domain.Validation("open console", domain.ErrNoSite)
	}
	c.open.Store(true)
	if err := c.refresher.Start(ctx, c.refresh); err != nil {
		return err
	}
	c.log.Info("console opened", zap.String("role", p.Role), zap.String("site", string(site)))
	return c.sync.SwitchSite(ctx, site)
}

// Close stops background refreshes and waits for in-flight saves.
func (c *Console) Close(ctx context.Context) {
	c.refresher.Stop()
	c.sync.Wait(ctx)
	c.open.Store(false)
}

func (c *Console) ready() error {
	if !c.open.Load() {
		return domain.Validation("console", domain.ErrUnauthenticated)
	}
	return nil
}

// Sites lists the configured tenants.
func (c *Console) Sites() []SiteOption {
	c.sitesMu.RLock()
	defer c.sitesMu.RUnlock()
	return slices.Clone(c.sites)
}

// SetSites replaces the selectable sites. The active site keeps loading
// even when it is no longer listed.
func (c *Console) SetSites(sites []SiteOption) {
	c.sitesMu.Lock()
	c.sites = slices.Clone(sites)
	c.sitesMu.Unlock()
	c.log.Info("sites updated", zap.Int("count", len(sites)))
}

// SwitchSite discards the in-memory collections and loads site.
func (c *Console) SwitchSite(ctx context.Context, site domain.Site) error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.sync.SwitchSite(ctx, site)
}

// Reload fetches the active site again, dropping unsaved edits.
func (c *Console) Reload(ctx context.Context) error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.sync.Load(ctx)
}

// ── views ──────────────────────────────────────────────────

// BlockView is what the presentation layer renders for one block.
type BlockView struct {
	Key       string      `json:"key"`
	Persisted bool        `json:"persisted"`
	Zone      domain.Zone `json:"zone"`
	Order     int         `json:"order"`
	Content   string      `json:"content"`
}

// View is the whole editor as the presentation layer sees it.
type View struct {
	Site    domain.Site                 `json:"site"`
	Loaded  bool                        `json:"loaded"`
	Saving  bool                        `json:"saving"`
	Zones   map[domain.Zone][]BlockView `json:"zones"`
	Focused string                      `json:"focused,omitempty"`
	Prompt  *prompt.Request             `json:"prompt,omitempty"`
}

// View snapshots the editor. Content is the live surface content.
func (c *Console) View() View {
	v := View{Zones: make(map[domain.Zone][]BlockView, 3), Saving: c.sync.Saving()}
	_ = c.editor.Do(func(st *editor.State) error {
		v.Site, v.Loaded, v.Focused = st.Store.Site(), st.Store.Loaded(), st.Surfaces.Focused()
		for _, z := range domain.Zones() {
			views := []BlockView{}
			for _, b := range st.Snapshot(z) {
				views = append(views, BlockView{
					Key:       b.Identity.Key(),
					Persisted: b.Identity.IsPersisted(),
					Zone:      z,
					Order:     b.Order,
					Content:   b.Content,
				})
			}
			v.Zones[z] = views
		}
		return nil
	})
	if req, ok := c.prompts.Pending(); ok {
		v.Prompt = &req
	}
	return v
}

// ── prompts ────────────────────────────────────────────────

// PendingPrompt returns the outstanding prompt, if any.
func (c *Console) PendingPrompt() (prompt.Request, bool) { return c.prompts.Pending() }

func (c *Console) AnswerPrompt(ctx context.Context, id, value string) error {
	return c.prompts.Submit(ctx, id, value)
}

func (c *Console) CancelPrompt(ctx context.Context, id string) error {
	return c.prompts.Cancel(ctx, id)
}

func (c *Console) DismissPrompt(ctx context.Context, id string) error {
	return c.prompts.Dismiss(ctx, id)
}

// notify posts a notice without waiting for it.
func (c *Console) notify(ctx context.Context, title, message string) {
	c.prompts.Open(ctx, prompt.Request{Kind: prompt.KindMessage, Title: title, Message: message})
}

// ask prompts for text; ok is false when the flow must not continue.
func (c *Console) ask(ctx context.Context, title, message string) (string, bool) {
	out := c.prompts.Ask(ctx, prompt.Request{Kind: prompt.KindText, Title: title, Message: message})
	return out.Value, out.Status == prompt.StatusSubmitted
}

// IsAborted reports whether err only means the user backed out.
func IsAborted(err error) bool {
	return errors.Is(err, domain.ErrAborted)
}

func unknownBlock(op, key string) error {
	return domain.Validation(op, fmt.Errorf("%w: %s", domain.ErrUnknownBlock, key))
}
