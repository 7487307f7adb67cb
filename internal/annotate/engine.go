// Package annotate finds the image the user means and links or unlinks it.
package annotate

import (
	"errors"
	"fmt"

	"golang.org/x/net/html"

	"adsconsole/internal/content"
	"adsconsole/internal/domain"
	"adsconsole/internal/selection"
)

var (
	ErrAlreadyLinked = errors.New("image is already linked")
	ErrNotLinked     = errors.New("image has no link")
)

// Step names the rule that resolved a target.
type Step int

const (
	StepNone Step = iota
	StepSelection
	StepParent
	StepAncestor
	StepPicked
	StepFallback
)

func (s Step) String() string {
	switch s {
	case StepSelection:
		return "selection"
	case StepParent:
		return "parent"
	case StepAncestor:
		return "ancestor"
	case StepPicked:
		return "picked"
	case StepFallback:
		return "fallback"
	default:
		return "none"
	}
}

// focusStyle outlines the focused image while editing.
var focusStyle = []content.Declaration{
	{Property: "outline", Value: "2px solid #3b82f6"},
	{Property: "outline-offset", Value: "2px"},
}

// Target is one surface as seen by the engine.
type Target struct {
	Surface string
	Doc     *content.Document
	// Range is the restored selection, nil when there is none.
	Range *selection.Range
}

type pick struct {
	surface string
	node    *html.Node
}

// Engine remembers the last image picked or annotated. One per editor.
type Engine struct {
	picked *pick
}

func NewEngine() *Engine { return &Engine{} }

// Resolve finds the image the user means. Selection-based rules only apply
// to a range inside t's surface.
func (e *Engine) Resolve(t Target) (*html.Node, Step, error) {
	if r := t.Range; r != nil && r.Surface == t.Surface {
		if img := e.imageIn(t.Doc, r.Start.Node); img != nil {
			return img, StepSelection, nil
		}
		if r.Start.Node != nil {
			if img := e.imageIn(t.Doc, r.Start.Node.Parent); img != nil {
				return img, StepParent, nil
			}
		}
		if ca := r.CommonAncestor(); ca != nil {
			if img := e.imageIn(t.Doc, ca); img != nil {
				return img, StepAncestor, nil
			}
			if img := e.imageIn(t.Doc, ca.Parent); img != nil {
				return img, StepAncestor, nil
			}
		}
	}
	if p := e.picked; p != nil && p.surface == t.Surface {
		if img := e.imageIn(t.Doc, p.node); img != nil {
			return img, StepPicked, nil
		}
	}
	if img := t.Doc.LastImage(); img != nil {
		return img, StepFallback, nil
	}
	return nil, StepNone, domain.Validation("resolve image", domain.ErrNothingSelected)
}

// imageIn returns n if it is an image still attached to doc.
func (e *Engine) imageIn(doc *content.Document, n *html.Node) *html.Node {
	switch content.KindOf(n) {
	case content.KindImage:
		if doc.Contains(n) {
			return n
		}
		return nil
	case content.KindText, content.KindLink, content.KindElement, content.KindOther:
		return nil
	}
	return nil
}

// Pick remembers img as the explicitly chosen image of surface.
func (e *Engine) Pick(surface string, doc *content.Document, img *html.Node) error {
	if e.imageIn(doc, img) == nil {
		return domain.Validation("pick image", content.ErrNotAnImage)
	}
	e.focus(surface, img)
	return nil
}

// Attach wraps img in a link to href. An image that is already linked is only
// relinked when replace is set; otherwise ErrAlreadyLinked is returned and
// nothing changes.
func (e *Engine) Attach(t Target, img *html.Node, href string, replace bool) error {
	if old := t.Doc.LinkAncestor(img); old != nil {
		if !replace {
			return domain.Validation("attach link", ErrAlreadyLinked)
		}
		if err := t.Doc.Unwrap(old); err != nil {
			return fmt.Errorf("attach link: %w", err)
		}
	}
	if _, err := t.Doc.Wrap(img, href); err != nil {
		return domain.Stale("attach link", err)
	}
	e.focus(t.Surface, img)
	return nil
}

// Linked reports whether img sits inside a link.
func (e *Engine) Linked(t Target, img *html.Node) bool {
	return t.Doc.LinkAncestor(img) != nil
}

// Detach removes the link around img, leaving img in place.
func (e *Engine) Detach(t Target, img *html.Node) error {
	a := t.Doc.LinkAncestor(img)
	if a == nil {
		return domain.Validation("detach link", ErrNotLinked)
	}
	if err := t.Doc.Unwrap(a); err != nil {
		return domain.Stale("detach link", err)
	}
	e.focus(t.Surface, img)
	return nil
}

// Forget drops the remembered image, e.g. on site switch.
func (e *Engine) Forget() {
	if e.picked != nil {
		content.ClearFocus(e.picked.node)
	}
	e.picked = nil
}

func (e *Engine) focus(surface string, img *html.Node) {
	if e.picked != nil && e.picked.node != img {
		content.ClearFocus(e.picked.node)
	}
	content.MarkFocus(img, focusStyle...)
	e.picked = &pick{surface: surface, node: img}
}

