package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"adsconsole/internal/annotate"
	"adsconsole/internal/content"
	"adsconsole/internal/domain"
	"adsconsole/internal/editor"
	"adsconsole/internal/prompt"
)

// ─────────────────────────────────────────────────────────────
// Annotation flows
//
// A flow captures the selection, asks its questions with the editor
// unlocked, then restores the selection and refocuses the block before it
// mutates anything. A block removed or replaced meanwhile makes the flow
// fail with a stale error instead of editing another block.
// ─────────────────────────────────────────────────────────────

// EditedEvent is the payload of EventBlockEdited.
type EditedEvent struct {
	Key  string      `json:"key"`
	Zone domain.Zone `json:"zone"`
}

// capture snapshots the selection before a flow starts prompting. It reports
// whether there was a selection to snapshot.
func (c *Console) capture(op, key string) (bool, error) {
	if err := c.ready(); err != nil {
		return false, err
	}
	captured := false
	err := c.editor.Do(func(st *editor.State) error {
		if _, ok := st.Surfaces.Get(key); !ok {
			return unknownBlock(op, key)
		}
		captured = st.Tracker.Capture()
		return nil
	})
	return captured, err
}

// resume restores the editing point in key and runs fn on it. The block's
// content is committed when fn succeeds. A snapshot taken by capture that no
// longer restores fails the flow as stale before fn runs.
func (c *Console) resume(ctx context.Context, op, key string, captured bool, fn func(st *editor.State, t annotate.Target) error) error {
	var zone domain.Zone
	err := c.editor.Do(func(st *editor.State) error {
		if !st.Tracker.Restore() && captured {
			return domain.Stale(op, domain.ErrNothingSelected)
		}
		sf, ok := st.Surfaces.Get(key)
		if !ok {
			return domain.Stale(op, fmt.Errorf("%w: %s", domain.ErrUnknownBlock, key))
		}
		st.Surfaces.Focus(key)
		t, err := st.Target(key)
		if err != nil {
			return err
		}
		if err := fn(st, t); err != nil {
			return err
		}
		zone = sf.Zone
		return st.Commit(sf.Zone, domain.IdentityFromKey(key))
	})
	if err != nil {
		return err
	}
	c.emitter.Emit(ctx, EventBlockEdited, EditedEvent{Key: key, Zone: zone})
	return nil
}

// contactLink runs the link-type choice and the matching text prompt. ok is
// false when the user backed out or left the input blank.
func (c *Console) contactLink(ctx context.Context) (link string, ok bool, err error) {
	out := c.prompts.Ask(ctx, prompt.Request{
		Kind:    prompt.KindChoice,
		Title:   "Select Contact Platform",
		Message: "Choose platform: (1) WhatsApp, (2) Telegram or (3) Web link",
		Choices: []prompt.Choice{
			{Tag: "1", Label: "WhatsApp"},
			{Tag: "2", Label: "Telegram"},
			{Tag: "3", Label: "Web link"},
		},
	})
	if out.Status != prompt.StatusSubmitted {
		return "", false, nil
	}
	mode, err := annotate.ParseMode(out.Value)
	if err != nil {
		return "", false, err
	}

	var title, message string
	switch mode {
	case annotate.ModeWhatsApp:
		title, message = "WhatsApp Number", "Enter WhatsApp number (with country code, e.g., 911234567890):"
	case annotate.ModeTelegram:
		title, message = "Telegram Username", "Enter Telegram username (without @):"
	case annotate.ModeURL:
		title, message = "Web Link", "Enter link address:"
	}
	input, ok := c.ask(ctx, title, message)
	if !ok {
		return "", false, nil
	}
	return annotate.BuildLink(mode, input)
}

// AttachLink links the image at the editing point of key to a contact or web
// address. An already linked image is only relinked after confirmation.
func (c *Console) AttachLink(ctx context.Context, key string) (bool, error) {
	captured, err := c.capture("attach link", key)
	if err != nil {
		return false, err
	}
	link, ok, err := c.contactLink(ctx)
	if err != nil || !ok {
		return false, err
	}

	err = c.resume(ctx, "attach link", key, captured, func(st *editor.State, t annotate.Target) error {
		img, _, err := st.Engine.Resolve(t)
		if err != nil {
			return err
		}
		return st.Engine.Attach(t, img, link, false)
	})
	if !errors.Is(err, annotate.ErrAlreadyLinked) {
		return err == nil, err
	}

	out := c.prompts.Ask(ctx, prompt.Request{
		Kind:    prompt.KindConfirm,
		Title:   "Replace Link",
		Message: "Replace existing link?",
	})
	if !out.Confirmed() {
		return false, nil
	}
	err = c.resume(ctx, "attach link", key, captured, func(st *editor.State, t annotate.Target) error {
		img, _, err := st.Engine.Resolve(t)
		if err != nil {
			return err
		}
		return st.Engine.Attach(t, img, link, true)
	})
	return err == nil, err
}

// DetachLink unwraps the link around the image at the editing point of key.
func (c *Console) DetachLink(ctx context.Context, key string) error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.resume(ctx, "detach link", key, false, func(st *editor.State, t annotate.Target) error {
		img, _, err := st.Engine.Resolve(t)
		if err != nil {
			return err
		}
		return st.Engine.Detach(t, img)
	})
}

// InsertImage inserts an image (data URL or URL) at the editing point of key,
// optionally wrapped in a contact link.
func (c *Console) InsertImage(ctx context.Context, key, src string) (bool, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return false, domain.Validation("insert image", errors.New("image source is empty"))
	}
	captured, err := c.capture("insert image", key)
	if err != nil {
		return false, err
	}

	out := c.prompts.Ask(ctx, prompt.Request{
		Kind:    prompt.KindConfirm,
		Title:   "Add Link",
		Message: "Add link to this image?",
	})
	if !out.Invoked() {
		return false, nil
	}
	var link string
	if out.Confirmed() {
		l, ok, err := c.contactLink(ctx)
		if err != nil || !ok {
			return false, err
		}
		link = l
	}

	err = c.resume(ctx, "insert image", key, captured, func(st *editor.State, t annotate.Target) error {
		img := content.NewImage(src)
		if _, err := t.Doc.InsertAt(insertionPoint(t), img); err != nil {
			return domain.Stale("insert image", err)
		}
		if link == "" {
			return nil
		}
		return st.Engine.Attach(t, img, link, false)
	})
	return err == nil, err
}

// ResizeImage sets the width of the image at the editing point of key.
func (c *Console) ResizeImage(ctx context.Context, key string, width int) error {
	if err := c.ready(); err != nil {
		return err
	}
	err := c.resume(ctx, "resize image", key, false, func(st *editor.State, t annotate.Target) error {
		img, _, err := st.Engine.Resolve(t)
		if err != nil {
			return err
		}
		if err := content.SetImageWidth(img, width); err != nil {
			return domain.Validation("resize image", err)
		}
		return nil
	})
	if errors.Is(err, domain.ErrNothingSelected) {
		c.notify(ctx, "No Image", "No image to resize")
	}
	return err
}

// SetColor colours the selected text of key.
func (c *Console) SetColor(ctx context.Context, key string) (bool, error) {
	captured, err := c.capture("set color", key)
	if err != nil {
		return false, err
	}
	input, ok := c.ask(ctx, "Text Color", "Enter text color (name or hex):")
	if !ok || strings.TrimSpace(input) == "" {
		return false, nil
	}
	color, err := parseColor(input)
	if err != nil {
		return false, err
	}

	colored := false
	err = c.resume(ctx, "set color", key, captured, func(st *editor.State, t annotate.Target) error {
		if t.Range == nil {
			return domain.Validation("set color", domain.ErrNothingSelected)
		}
		var err error
		colored, err = t.Doc.Colorize(t.Range.Start, t.Range.End, color)
		if err != nil {
			return domain.Stale("set color", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	if !colored {
		c.log.Debug("colour applied to empty selection", zap.String("key", key))
	}
	return colored, nil
}

// InsertEmoji inserts the text the user types at the editing point of key.
func (c *Console) InsertEmoji(ctx context.Context, key string) (bool, error) {
	captured, err := c.capture("insert emoji", key)
	if err != nil {
		return false, err
	}
	emoji, ok := c.ask(ctx, "Add Emoji", "Enter emoji:")
	if !ok || emoji == "" {
		return false, nil
	}
	err = c.resume(ctx, "insert emoji", key, captured, func(st *editor.State, t annotate.Target) error {
		if _, err := t.Doc.InsertAt(insertionPoint(t), content.NewText(emoji)); err != nil {
			return domain.Stale("insert emoji", err)
		}
		return nil
	})
	return err == nil, err
}

// insertionPoint is the selection start, or the end of the document when the
// block holds no selection.
func insertionPoint(t annotate.Target) content.Position {
	if t.Range == nil {
		return content.Position{}
	}
	return t.Range.Start
}

// parseColor accepts a single CSS colour value such as "red" or "#ff0000".
func parseColor(s string) (string, error) {
	decls := content.ParseStyle("color:" + strings.TrimSpace(s))
	if len(decls) != 1 || decls[0].Value == "" || strings.ContainsAny(decls[0].Value, `"<>`) {
		return "", domain.Validation("set color", fmt.Errorf("invalid colour %q", s))
	}
	return decls[0].Value, nil
}
